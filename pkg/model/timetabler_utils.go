package model

import (
	"slices"

	"github.com/onsi/gomega/matchers/support/goraph/bipartitegraph"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type unassignableError struct {
}

func (err unassignableError) Error() string {
	return "not all sessions can be assigned a room"
}

// roomCandidate is an edge of the session-room bipartite graph.
type roomCandidate struct {
	session int
	room    string
}

type roomAssignment struct {
	session int
	room    string
}

// prepareInput normalizes the catalogue and merges the constraints onto their defaults.
func prepareInput(catalogue Catalogue, constraints Constraints) (Catalogue, Constraints, error) {
	normalized, err := NormalizeCatalogue(catalogue)
	if err != nil {
		return Catalogue{}, Constraints{}, err
	}

	merged := constraints.WithDefaults()
	if err := merged.Validate(); err != nil {
		return Catalogue{}, Constraints{}, err
	}

	// A lab block starting at a lab timeslot must end by midnight
	for _, timeslot := range normalized.Timeslots {
		if timeslot.Kind != SessionLab {
			continue
		}
		if end := int(timeslot.Span().Start) + merged.LabDurationHours*minutesPerHour; end > minutesPerDay {
			return Catalogue{}, Constraints{}, newConfigurationError(CodeInvalidTimeslot, "timeslots."+timeslot.Id,
				"a %d hour lab starting at %v runs past midnight", merged.LabDurationHours, timeslot.Span().Start)
		}
	}
	return normalized, merged, nil
}

// finalize repairs a constructed grid, injects markers and fills the report.
func finalize(grid WeeklyGrid, catalogue Catalogue, constraints Constraints, report GenerationReport, logger *zap.Logger) (WeeklyGrid, GenerationReport) {
	repaired, stats := newOptimizer(catalogue, constraints, logger).Repair(grid)
	marked := injectMarkers(repaired, constraints)

	report.Repair = stats
	report.ResidualConflicts = DetectConflicts(marked)
	report.Score = Score(marked)
	report.DayLoads = marked.DayLoads()
	report.OverloadedDays = overloadedDays(marked, constraints)
	report.DegradedRooms = lo.CountBy(marked.AllClasses(), func(session Session) bool { return session.DegradedRoom })

	logger.Info("timetable generated",
		zap.String("run_id", report.RunId),
		zap.String("strategy", report.Strategy),
		zap.Int("score", report.Score),
		zap.Int("sessions", len(marked.AllClasses())),
		zap.Int("unplaced", report.UnplacedSessions()),
		zap.Int("residual_conflicts", len(report.ResidualConflicts)),
		zap.Int("degraded_rooms", report.DegradedRooms),
	)
	return marked, report
}

// overloadedDays lists the days whose scheduled hours exceed MaxHoursPerDay.
func overloadedDays(grid WeeklyGrid, constraints Constraints) []Day {
	return lo.Filter(grid.Days, func(day Day, _ int) bool {
		hours := lo.SumBy(grid.Classes(day), func(session Session) int {
			if session.Kind == SessionLab {
				return constraints.LabDurationHours
			}
			return constraints.TheoryDurationHours
		})
		return hours > constraints.MaxHoursPerDay
	})
}

func verify(grid WeeklyGrid, catalogue Catalogue, constraints Constraints) bool {
	//** Preprocess input
	catalogue, constraints, err := prepareInput(catalogue, constraints)
	if err != nil {
		return false
	}

	//** Initialize dependencies
	evaluator := NewPredicateEvaluator(constraints)
	fallbacks := []string{constraints.FallbackClassroomId, constraints.FallbackLabId}
	labs := make(map[string]int)

	for _, day := range grid.Days {
		classes := grid.Classes(day)

		// Check that:
		// - The day is a teaching day
		// - The day stays under the class ceiling
		if !slices.Contains(constraints.TeachingDays, day) ||
			len(classes) > constraints.MaxClassesPerDay {
			return false
		}

		for _, session := range classes {
			course, ok := catalogue.Course(session.CourseId)
			room, roomOk := catalogue.Room(session.RoomId)

			// Check that:
			// - The session belongs to a known course and keeps its faculty
			// - The faculty and the room are not double booked
			// - The room is known (or a fallback) and fits unless flagged as degraded
			if !ok || course.FacultyId != session.FacultyId ||
				!evaluator.TeacherFree(grid, day, session.Span(), session.FacultyId, session.Id) ||
				!evaluator.RoomFree(grid, day, session.Span(), session.RoomId, session.Id) ||
				(!roomOk && !slices.Contains(fallbacks, session.RoomId)) ||
				(roomOk && !evaluator.Fits(room, session.Enrollment) && !session.DegradedRoom) {
				return false
			}

			// A room that does not fit is only acceptable while no fitting room of its type is free
			if !roomOk || !evaluator.Fits(room, session.Enrollment) {
				if _, found := freeFittingRoom(catalogue, evaluator, grid, session); found {
					return false
				}
			}

			// Lab blocks are contiguous, of the configured length, on lab days
			if session.Kind == SessionLab {
				if session.Span().Minutes() != constraints.LabDurationHours*minutesPerHour ||
					!slices.Contains(constraints.LabDays, day) {
					return false
				}
				labs[session.CourseId]++
			}
		}
	}

	// Check that every lab course holds at most one lab block
	return !lo.SomeBy(lo.Values(labs), func(count int) bool { return count > 1 })
}

// assignRooms finds a maximum matching between sessions and rooms; it fails unless every session gets a room.
func assignRooms(sessions []int, rooms []string, relationships map[roomCandidate]bool) ([]roomAssignment, error) {
	assignments := make([]roomAssignment, 0, len(sessions))

	// Build neighbors predicate based on relationships
	neighbors := func(sessionAny any, roomAny any) (bool, error) {
		session := sessionAny.(int)
		room := roomAny.(string)

		return relationships[roomCandidate{session: session, room: room}], nil
	}

	// Transform sessions and rooms to slices of any
	sessionsAny, roomsAny := lo.Map(sessions, func(session int, _ int) any { return session }), lo.Map(rooms, func(room string, _ int) any { return room })

	graph, err := bipartitegraph.NewBipartiteGraph(sessionsAny, roomsAny, neighbors)
	if err != nil {
		return nil, err
	}

	matching := graph.LargestMatching()

	// Check the matching is a maximum one
	if len(matching) < len(sessions) {
		return nil, unassignableError{}
	}

	for _, edge := range matching {
		sessionIndex, roomIndex := edge.Node1, edge.Node2-len(sessions)
		assignments = append(assignments, roomAssignment{session: sessions[sessionIndex], room: rooms[roomIndex]})
	}

	return assignments, nil
}
