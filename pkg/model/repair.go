package model

import (
	"math"
	"slices"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// optimizer runs the post-construction passes: teacher conflicts, room conflicts, workload balance
// and finally room upgrades. Without StrictRepair the teacher and room moves are applied unchecked beyond
// the rule each pass is named after, and balancing only keeps the faculty and the room free;
// with StrictRepair every move must keep the grid valid.
type optimizer struct {
	catalogue   Catalogue
	constraints Constraints
	evaluator   PredicateEvaluator
	logger      *zap.Logger
}

func newOptimizer(catalogue Catalogue, constraints Constraints, logger *zap.Logger) *optimizer {
	return &optimizer{
		catalogue:   catalogue,
		constraints: constraints,
		evaluator:   NewPredicateEvaluator(constraints),
		logger:      logger,
	}
}

// Repair works on a deep copy; the given grid is left untouched.
func (optimizer *optimizer) Repair(grid WeeklyGrid) (WeeklyGrid, RepairStats) {
	repaired := grid.Clone()
	stats := RepairStats{}

	optimizer.resolveTeacherConflicts(&repaired, &stats)
	optimizer.resolveRoomConflicts(&repaired, &stats)
	optimizer.balanceWorkload(&repaired, &stats)
	optimizer.upgradeRooms(&repaired, &stats)

	return repaired, stats
}

//** Teacher conflicts

func (optimizer *optimizer) resolveTeacherConflicts(grid *WeeklyGrid, stats *RepairStats) {
	handled := make(map[int]bool)
	for {
		offender, ok := nextOffender(*grid, TeacherConflict, handled)
		if !ok {
			return
		}
		handled[offender.Id] = true

		// Same span, another day
		target, found := lo.Find(optimizer.constraints.TeachingDays, func(day Day) bool {
			return day != offender.Day && optimizer.canRelocate(*grid, offender, day)
		})
		if !found {
			stats.Unresolved++
			optimizer.logger.Debug("teacher conflict left in place", zap.String("course", offender.Code), zap.String("day", string(offender.Day)))
			continue
		}

		grid.Move(offender.Id, func(session *Session) { session.Day = target })
		stats.TeacherRelocations++
		optimizer.logger.Debug("session relocated", zap.String("course", offender.Code), zap.String("from", string(offender.Day)), zap.String("to", string(target)))
	}
}

func (optimizer *optimizer) canRelocate(grid WeeklyGrid, session Session, day Day) bool {
	if !optimizer.evaluator.TeacherFree(grid, day, session.Span(), session.FacultyId, session.Id) {
		return false
	}
	if session.Kind == SessionLab && optimizer.evaluator.FacultyBusyOnDay(grid, day, session.FacultyId, session.Id) {
		return false
	}
	if !optimizer.constraints.StrictRepair {
		return true
	}

	return (session.Kind != SessionLab || slices.Contains(optimizer.constraints.LabDays, day)) &&
		optimizer.evaluator.RoomFree(grid, day, session.Span(), session.RoomId, session.Id) &&
		optimizer.evaluator.DailyCapacityOk(grid, day, session.Id) &&
		!optimizer.evaluator.CourseOnDay(grid, day, session.CourseId, session.Id) &&
		!labReserved(grid, day, session.FacultyId)
}

//** Room conflicts

func (optimizer *optimizer) resolveRoomConflicts(grid *WeeklyGrid, stats *RepairStats) {
	handled := make(map[int]bool)
	for {
		offender, ok := nextOffender(*grid, RoomConflict, handled)
		if !ok {
			return
		}

		if optimizer.constraints.StrictRepair {
			optimizer.matchRooms(grid, offender, handled, stats)
			continue
		}
		handled[offender.Id] = true

		replacement, found := lo.Find(optimizer.roomPool(offender), func(roomId string) bool { return roomId != offender.RoomId })
		if !found {
			replacement = optimizer.constraints.fallbackRoom(roomTypeOf(offender.Kind))
		}
		if replacement == offender.RoomId {
			stats.Unresolved++
			continue
		}

		grid.Move(offender.Id, func(session *Session) {
			session.RoomId = replacement
			session.DegradedRoom = !optimizer.fits(replacement, session.Enrollment)
		})
		stats.RoomReassignments++
		optimizer.logger.Debug("room reassigned", zap.String("course", offender.Code), zap.String("from", offender.RoomId), zap.String("to", replacement))
	}
}

// matchRooms reassigns the rooms of every class overlapping the offender through a maximum bipartite
// matching against fitting rooms that no other class holds at those times.
func (optimizer *optimizer) matchRooms(grid *WeeklyGrid, offender Session, handled map[int]bool, stats *RepairStats) {
	cluster := lo.Filter(grid.Classes(offender.Day), func(session Session, _ int) bool {
		return session.Span().Overlaps(offender.Span())
	})
	clusterIds := lo.Map(cluster, func(session Session, _ int) int { return session.Id })
	for _, id := range clusterIds {
		handled[id] = true
	}

	rooms := make([]string, 0)
	relationships := make(map[roomCandidate]bool)
	for _, session := range cluster {
		for _, room := range optimizer.catalogue.RoomsOfType(roomTypeOf(session.Kind)) {
			if !optimizer.evaluator.Fits(room, session.Enrollment) ||
				!optimizer.evaluator.RoomFree(*grid, session.Day, session.Span(), room.Id, clusterIds...) {
				continue
			}
			if !slices.Contains(rooms, room.Id) {
				rooms = append(rooms, room.Id)
			}
			relationships[roomCandidate{session: session.Id, room: room.Id}] = true
		}
	}

	assignments, err := assignRooms(clusterIds, rooms, relationships)
	if err != nil {
		stats.Unresolved++
		optimizer.logger.Debug("room conflict left in place", zap.String("course", offender.Code), zap.Error(err))
		return
	}

	for _, assignment := range assignments {
		session, _ := lo.Find(cluster, func(session Session) bool { return session.Id == assignment.session })
		if session.RoomId == assignment.room && !session.DegradedRoom {
			continue
		}
		grid.Move(session.Id, func(session *Session) {
			session.RoomId = assignment.room
			session.DegradedRoom = false
		})
		stats.RoomReassignments++
	}
}

func (optimizer *optimizer) roomPool(session Session) []string {
	if len(optimizer.constraints.AlternativeRooms) > 0 {
		return optimizer.constraints.AlternativeRooms
	}
	return lo.Map(optimizer.catalogue.RoomsOfType(roomTypeOf(session.Kind)), func(room Room, _ int) string { return room.Id })
}

func (optimizer *optimizer) fits(roomId string, enrollment int) bool {
	room, ok := optimizer.catalogue.Room(roomId)
	return ok && optimizer.evaluator.Fits(room, enrollment)
}

//** Workload balance

func (optimizer *optimizer) balanceWorkload(grid *WeeklyGrid, stats *RepairStats) {
	days := optimizer.constraints.TeachingDays
	if len(days) < 2 {
		return
	}
	mean := float64(lo.Sum(lo.Values(grid.DayLoads()))) / float64(len(days))

	for _, day := range days {
		count := float64(grid.ClassCount(day))
		if count <= mean+1 {
			continue
		}
		excess := int(math.Floor(count - mean))

		// Classes are start ordered, so this is earliest first
		theory := lo.Filter(grid.Classes(day), func(session Session, _ int) bool { return session.Kind == SessionTheory })
		moved := 0
		for _, session := range theory {
			if moved == excess {
				break
			}
			target, ok := optimizer.balanceTarget(*grid, session)
			if !ok {
				continue
			}

			grid.Move(session.Id, func(session *Session) { session.Day = target })
			moved++
			stats.BalancedMoves++
		}
	}
}

// balanceTarget returns the least loaded other day where the faculty and the room are free at the session's span.
// StrictRepair also requires the move to keep every other rule.
func (optimizer *optimizer) balanceTarget(grid WeeklyGrid, session Session) (Day, bool) {
	loads := grid.DayLoads()
	candidates := lo.Filter(optimizer.constraints.TeachingDays, func(day Day, _ int) bool { return day != session.Day })
	slices.SortStableFunc(candidates, func(a, b Day) int { return loads[a] - loads[b] })

	free := func(day Day) bool {
		return optimizer.evaluator.TeacherFree(grid, day, session.Span(), session.FacultyId, session.Id) &&
			optimizer.evaluator.RoomFree(grid, day, session.Span(), session.RoomId, session.Id)
	}
	if !optimizer.constraints.StrictRepair {
		return lo.Find(candidates, free)
	}
	return lo.Find(candidates, func(day Day) bool {
		return loads[day] < loads[session.Day]-1 &&
			free(day) &&
			optimizer.evaluator.DailyCapacityOk(grid, day, session.Id) &&
			!optimizer.evaluator.CourseOnDay(grid, day, session.CourseId, session.Id) &&
			!labReserved(grid, day, session.FacultyId)
	})
}

//** Room upgrades

func (optimizer *optimizer) upgradeRooms(grid *WeeklyGrid, stats *RepairStats) {
	for _, upgrade := range upgradeRooms(grid, optimizer.catalogue, optimizer.evaluator) {
		stats.RoomReassignments++
		optimizer.logger.Debug("room upgraded", zap.String("course", upgrade.Code), zap.String("from", upgrade.RoomId))
	}
}

// upgradeRooms moves every class sitting in a room that does not fit it into a fitting room left free at its span,
// and returns those classes as they were before the move. An upgrade may free a room that fits another class,
// so it runs to a fixpoint.
func upgradeRooms(grid *WeeklyGrid, catalogue Catalogue, evaluator PredicateEvaluator) []Session {
	upgrades := make([]Session, 0)
	for upgraded := true; upgraded; {
		upgraded = false
		for _, session := range grid.AllClasses() {
			if current, ok := catalogue.Room(session.RoomId); ok && evaluator.Fits(current, session.Enrollment) {
				continue
			}
			room, found := freeFittingRoom(catalogue, evaluator, *grid, session)
			if !found {
				continue
			}

			grid.Move(session.Id, func(session *Session) {
				session.RoomId = room.Id
				session.DegradedRoom = false
			})
			upgrades = append(upgrades, session)
			upgraded = true
		}
	}
	return upgrades
}

// freeFittingRoom finds a catalogue room of the session's type that fits its enrollment and is free at its span.
func freeFittingRoom(catalogue Catalogue, evaluator PredicateEvaluator, grid WeeklyGrid, session Session) (Room, bool) {
	return lo.Find(catalogue.RoomsOfType(roomTypeOf(session.Kind)), func(room Room) bool {
		return evaluator.Fits(room, session.Enrollment) &&
			evaluator.RoomFree(grid, session.Day, session.Span(), room.Id, session.Id)
	})
}

// labReserved reports whether the faculty teaches a lab on the day, which keeps the rest of that day free.
func labReserved(grid WeeklyGrid, day Day, facultyId string) bool {
	return lo.SomeBy(grid.Classes(day), func(session Session) bool {
		return session.Kind == SessionLab && session.FacultyId == facultyId
	})
}

// nextOffender picks the later session of the first conflict of the given kind that still has an unhandled side.
func nextOffender(grid WeeklyGrid, kind ConflictKind, handled map[int]bool) (Session, bool) {
	for _, conflict := range DetectConflicts(grid) {
		if conflict.Kind != kind {
			continue
		}
		if !handled[conflict.Second.Id] {
			return conflict.Second, true
		} else if !handled[conflict.First.Id] {
			return conflict.First, true
		}
	}
	return Session{}, false
}

func roomTypeOf(kind SessionKind) RoomType {
	if kind == SessionLab {
		return LabRoom
	}
	return Classroom
}
