package model

import (
	"fmt"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

const catalogueTestFile = "testdata/catalogue.json"

func loadTestCatalogue(t *testing.T) Catalogue {
	t.Helper()
	catalogue, err := CatalogueFromJson(catalogueTestFile)
	require.NoError(t, err)
	return catalogue
}

// hourSlots builds one-hour timeslots of the given kind valid on every day.
func hourSlots(kind SessionKind, startHours ...int) []Timeslot {
	return lo.Map(startHours, func(hour int, i int) Timeslot {
		return Timeslot{
			Id:    fmt.Sprintf("%v-%d", kind, i+1),
			Order: i + 1,
			Start: fmt.Sprintf("%02d:00", hour),
			End:   fmt.Sprintf("%02d:00", hour+1),
			Kind:  kind,
		}
	})
}

func theoryCourse(id, facultyId string, enrollment int) Course {
	return Course{Id: id, Name: "Course " + id, Code: id, Type: TheoryCourse, FacultyId: facultyId, Enrollment: enrollment}
}

func labCourse(id, facultyId string, enrollment int) Course {
	return Course{Id: id, Name: "Course " + id, Code: id, Type: LabCourse, LabCredits: 1, FacultyId: facultyId, Enrollment: enrollment}
}

func clock(value string) Clock {
	return lo.Must(ParseClock(value))
}

// class builds a one-off theory session for grid level tests.
func class(id int, courseId, facultyId string, day Day, start, end, roomId string) Session {
	return Session{
		Id:         id,
		Kind:       SessionTheory,
		CourseId:   courseId,
		Code:       courseId,
		FacultyId:  facultyId,
		Day:        day,
		Start:      clock(start),
		End:        clock(end),
		RoomId:     roomId,
		Enrollment: 30,
	}
}

func gridOf(days []Day, sessions ...Session) WeeklyGrid {
	grid := NewWeeklyGrid(days)
	for _, session := range sessions {
		grid.Add(session)
	}
	return grid
}

func weekdays() []Day {
	return []Day{Monday, Tuesday, Wednesday, Thursday, Friday}
}
