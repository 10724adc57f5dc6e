package export

import (
	"encoding/json"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/samber/lo"

	"github.com/limaJavier/classtimetable/pkg/model"
)

// SessionRow is one grid entry flattened for CSV output.
type SessionRow struct {
	Day        string `csv:"day"`
	Start      string `csv:"start"`
	End        string `csv:"end"`
	Kind       string `csv:"kind"`
	CourseCode string `csv:"course_code"`
	CourseName string `csv:"course_name"`
	FacultyId  string `csv:"faculty_id"`
	RoomId     string `csv:"room_id"`
	Enrollment int    `csv:"enrollment"`
	Degraded   bool   `csv:"degraded_room"`
}

// Document is the JSON output of a generation run.
type Document struct {
	Grid   model.WeeklyGrid       `json:"grid"`
	Report model.GenerationReport `json:"report"`
}

// Rows flattens the grid in day order, markers included.
func Rows(grid model.WeeklyGrid) []SessionRow {
	rows := make([]SessionRow, 0)
	for _, day := range grid.Days {
		rows = append(rows, lo.Map(grid.Sessions[day], func(session model.Session, _ int) SessionRow {
			return SessionRow{
				Day:        string(session.Day),
				Start:      session.Start.String(),
				End:        session.End.String(),
				Kind:       string(session.Kind),
				CourseCode: session.Code,
				CourseName: session.Name,
				FacultyId:  session.FacultyId,
				RoomId:     session.RoomId,
				Enrollment: session.Enrollment,
				Degraded:   session.DegradedRoom,
			}
		})...)
	}
	return rows
}

func WriteCSV(writer io.Writer, grid model.WeeklyGrid) error {
	rows := Rows(grid)
	return gocsv.Marshal(&rows, writer)
}

func WriteJSON(writer io.Writer, grid model.WeeklyGrid, report model.GenerationReport) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(Document{Grid: grid, Report: report})
}
