package model

import (
	"github.com/samber/lo"
)

const (
	conflictPenalty = 10
	balancePenalty  = 5
	maxScore        = 100
)

type ConflictKind string

const (
	TeacherConflict ConflictKind = "teacher"
	RoomConflict    ConflictKind = "room"
)

// Conflict is a pair of overlapping classes sharing a faculty or a room.
type Conflict struct {
	Kind   ConflictKind `json:"kind"`
	Day    Day          `json:"day"`
	First  Session      `json:"first"`
	Second Session      `json:"second"`
}

// DetectConflicts scans every day for overlapping class pairs that share a faculty or a room.
// A pair sharing both yields one conflict of each kind.
func DetectConflicts(grid WeeklyGrid) []Conflict {
	conflicts := make([]Conflict, 0)
	for _, day := range grid.Days {
		classes := grid.Classes(day)
		for i := 0; i < len(classes)-1; i++ {
			for j := i + 1; j < len(classes); j++ {
				first, second := classes[i], classes[j]
				if !first.Span().Overlaps(second.Span()) {
					continue
				}
				if first.FacultyId != "" && first.FacultyId == second.FacultyId {
					conflicts = append(conflicts, Conflict{Kind: TeacherConflict, Day: day, First: first, Second: second})
				}
				if first.RoomId != "" && first.RoomId == second.RoomId {
					conflicts = append(conflicts, Conflict{Kind: RoomConflict, Day: day, First: first, Second: second})
				}
			}
		}
	}
	return conflicts
}

// Score rates a grid from 0 to 100. Each conflict costs 10 points and each unit of spread
// between the busiest and the quietest occupied day costs 5.
func Score(grid WeeklyGrid) int {
	score := maxScore - conflictPenalty*len(DetectConflicts(grid)) - balancePenalty*loadSpread(grid)
	return max(0, score)
}

// loadSpread is the difference between the highest and lowest class counts over days holding classes.
func loadSpread(grid WeeklyGrid) int {
	loads := lo.Filter(lo.Values(grid.DayLoads()), func(load int, _ int) bool { return load > 0 })
	if len(loads) == 0 {
		return 0
	}
	return lo.Max(loads) - lo.Min(loads)
}
