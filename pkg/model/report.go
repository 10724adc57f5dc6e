package model

import (
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// UnplacedCourse records the sessions a course could not get within its attempt budget.
type UnplacedCourse struct {
	CourseId string      `json:"courseId"`
	Code     string      `json:"code"`
	Kind     SessionKind `json:"kind"`
	Missing  int         `json:"missing"`
	Attempts int         `json:"attempts"`
	Reason   string      `json:"reason"`
}

type RepairStats struct {
	TeacherRelocations int `json:"teacherRelocations"`
	RoomReassignments  int `json:"roomReassignments"`
	BalancedMoves      int `json:"balancedMoves"`
	Unresolved         int `json:"unresolved"`
}

type GenerationReport struct {
	RunId             string           `json:"runId"`
	Strategy          string           `json:"strategy"`
	Unplaced          []UnplacedCourse `json:"unplaced"`
	ResidualConflicts []Conflict       `json:"residualConflicts"`
	Score             int              `json:"score"`
	DayLoads          map[Day]int      `json:"dayLoads"`
	OverloadedDays    []Day            `json:"overloadedDays,omitempty"`
	DegradedRooms     int              `json:"degradedRooms"`
	Repair            RepairStats      `json:"repair"`
	Constraints       Constraints      `json:"constraints"`
}

func newGenerationReport(strategy string, constraints Constraints) GenerationReport {
	return GenerationReport{
		RunId:             uuid.NewString(),
		Strategy:          strategy,
		Unplaced:          []UnplacedCourse{},
		ResidualConflicts: []Conflict{},
		Constraints:       constraints,
	}
}

// UnplacedSessions sums the missing sessions over every unplaced course.
func (report GenerationReport) UnplacedSessions() int {
	return lo.SumBy(report.Unplaced, func(unplaced UnplacedCourse) int { return unplaced.Missing })
}
