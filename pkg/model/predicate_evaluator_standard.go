package model

import (
	"slices"

	"github.com/samber/lo"
)

type predicateEvaluatorStandard struct {
	maxClassesPerDay int
}

func (evaluator *predicateEvaluatorStandard) TeacherFree(grid WeeklyGrid, day Day, span Span, facultyId string, exclude ...int) bool {
	return !lo.SomeBy(others(grid, day, exclude), func(session Session) bool {
		return session.FacultyId == facultyId && session.Span().Overlaps(span)
	})
}

func (evaluator *predicateEvaluatorStandard) RoomFree(grid WeeklyGrid, day Day, span Span, roomId string, exclude ...int) bool {
	return !lo.SomeBy(others(grid, day, exclude), func(session Session) bool {
		return session.RoomId == roomId && session.Span().Overlaps(span)
	})
}

func (evaluator *predicateEvaluatorStandard) DailyCapacityOk(grid WeeklyGrid, day Day, exclude ...int) bool {
	return len(others(grid, day, exclude)) < evaluator.maxClassesPerDay
}

func (evaluator *predicateEvaluatorStandard) LabAlreadyScheduled(grid WeeklyGrid, courseId string, exclude ...int) bool {
	return lo.SomeBy(grid.Days, func(day Day) bool {
		return lo.SomeBy(others(grid, day, exclude), func(session Session) bool {
			return session.Kind == SessionLab && session.CourseId == courseId
		})
	})
}

func (evaluator *predicateEvaluatorStandard) FacultyBusyOnDay(grid WeeklyGrid, day Day, facultyId string, exclude ...int) bool {
	return lo.SomeBy(others(grid, day, exclude), func(session Session) bool {
		return session.FacultyId == facultyId
	})
}

func (evaluator *predicateEvaluatorStandard) CourseOnDay(grid WeeklyGrid, day Day, courseId string, exclude ...int) bool {
	return lo.SomeBy(others(grid, day, exclude), func(session Session) bool {
		return session.CourseId == courseId
	})
}

func (evaluator *predicateEvaluatorStandard) Fits(room Room, enrollment int) bool {
	return room.Capacity >= enrollment
}

// others returns the classes of a day minus the excluded ones.
func others(grid WeeklyGrid, day Day, exclude []int) []Session {
	return lo.Filter(grid.Sessions[day], func(session Session, _ int) bool {
		return session.IsClass() && !slices.Contains(exclude, session.Id)
	})
}
