package model

import (
	"fmt"
	"math/rand"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// constructor places sessions into an empty grid by bounded random sampling.
type constructor struct {
	catalogue   Catalogue
	constraints Constraints
	evaluator   PredicateEvaluator
	rng         *rand.Rand
	logger      *zap.Logger
	nextId      int
}

func newConstructor(catalogue Catalogue, constraints Constraints, rng *rand.Rand, logger *zap.Logger) *constructor {
	return &constructor{
		catalogue:   catalogue,
		constraints: constraints,
		evaluator:   NewPredicateEvaluator(constraints),
		rng:         rng,
		logger:      logger,
	}
}

// Construct places every theory session first and every lab block afterwards.
func (constructor *constructor) Construct() (WeeklyGrid, []UnplacedCourse) {
	grid := NewWeeklyGrid(constructor.constraints.TeachingDays)
	unplaced := make([]UnplacedCourse, 0)

	//** Theory
	for _, course := range lo.Filter(constructor.catalogue.Courses, func(course Course, _ int) bool { return course.Type == TheoryCourse }) {
		missing := 0
		for range course.TheorySessions() {
			if !constructor.placeTheory(&grid, course) {
				missing++
			}
		}
		if missing > 0 {
			unplaced = append(unplaced, constructor.unplaced(course, SessionTheory, missing, constructor.constraints.TheoryAttempts))
		}
	}

	//** Labs
	for _, course := range lo.Filter(constructor.catalogue.Courses, func(course Course, _ int) bool { return course.Type == LabCourse }) {
		if !constructor.placeLab(&grid, course) {
			unplaced = append(unplaced, constructor.unplaced(course, SessionLab, 1, constructor.constraints.LabAttempts))
		}
	}

	return grid, unplaced
}

func (constructor *constructor) placeTheory(grid *WeeklyGrid, course Course) bool {
	days := constructor.constraints.TeachingDays
	for range constructor.constraints.TheoryAttempts {
		day := days[constructor.rng.Intn(len(days))]
		timeslots := constructor.catalogue.TimeslotsFor(day, SessionTheory)
		if len(timeslots) == 0 {
			continue
		}
		timeslot := timeslots[constructor.rng.Intn(len(timeslots))]
		span := timeslot.Span()

		if !constructor.evaluator.TeacherFree(*grid, day, span, course.FacultyId) ||
			!constructor.evaluator.DailyCapacityOk(*grid, day) ||
			constructor.evaluator.CourseOnDay(*grid, day, course.Id) {
			continue
		}

		roomId, degraded, ok := constructor.chooseRoom(*grid, day, span, Classroom, course.Enrollment)
		if !ok {
			continue
		}

		grid.Add(constructor.session(course, SessionTheory, day, timeslot.Id, span, roomId, degraded))
		return true
	}
	return false
}

func (constructor *constructor) placeLab(grid *WeeklyGrid, course Course) bool {
	days := constructor.constraints.LabDays
	for range constructor.constraints.LabAttempts {
		day := days[constructor.rng.Intn(len(days))]
		timeslots := constructor.catalogue.TimeslotsFor(day, SessionLab)
		if len(timeslots) == 0 {
			continue
		}
		timeslot := timeslots[constructor.rng.Intn(len(timeslots))]
		span := constructor.labSpan(timeslot)

		// Labs reserve the whole day of their faculty
		if constructor.evaluator.FacultyBusyOnDay(*grid, day, course.FacultyId) ||
			constructor.evaluator.LabAlreadyScheduled(*grid, course.Id) ||
			!constructor.evaluator.DailyCapacityOk(*grid, day) {
			continue
		}

		roomId, degraded, ok := constructor.chooseRoom(*grid, day, span, LabRoom, course.Enrollment)
		if !ok {
			continue
		}

		grid.Add(constructor.session(course, SessionLab, day, timeslot.Id, span, roomId, degraded))
		return true
	}
	return false
}

func (constructor *constructor) labSpan(timeslot Timeslot) Span {
	start := timeslot.Span().Start
	return Span{Start: start, End: start + Clock(constructor.constraints.LabDurationHours*minutesPerHour)}
}

// chooseRoom picks a free room of the given type at random, preferring rooms that fit the enrollment.
// Without any room of the type, the fallback id is used while it is free.
func (constructor *constructor) chooseRoom(grid WeeklyGrid, day Day, span Span, roomType RoomType, enrollment int) (roomId string, degraded bool, ok bool) {
	rooms := constructor.catalogue.RoomsOfType(roomType)
	free := lo.Filter(rooms, func(room Room, _ int) bool {
		return constructor.evaluator.RoomFree(grid, day, span, room.Id)
	})
	fitting := lo.Filter(free, func(room Room, _ int) bool {
		return constructor.evaluator.Fits(room, enrollment)
	})

	switch {
	case len(fitting) > 0:
		return fitting[constructor.rng.Intn(len(fitting))].Id, false, true
	case len(free) > 0:
		return free[constructor.rng.Intn(len(free))].Id, true, true
	case len(rooms) == 0:
		fallback := constructor.constraints.fallbackRoom(roomType)
		if constructor.evaluator.RoomFree(grid, day, span, fallback) {
			return fallback, true, true
		}
	}
	return "", false, false
}

func (constructor *constructor) session(course Course, kind SessionKind, day Day, timeslotId string, span Span, roomId string, degraded bool) Session {
	constructor.nextId++
	session := Session{
		Id:           constructor.nextId,
		Kind:         kind,
		CourseId:     course.Id,
		Code:         course.Code,
		Name:         course.Name,
		FacultyId:    course.FacultyId,
		Day:          day,
		TimeslotId:   timeslotId,
		Start:        span.Start,
		End:          span.End,
		RoomId:       roomId,
		Enrollment:   course.Enrollment,
		Groups:       course.Groups,
		DegradedRoom: degraded,
	}
	if kind == SessionLab {
		session.Code = course.Code + "-LAB"
		session.Name = course.Name + " (Lab)"
	}

	if degraded {
		constructor.logger.Warn("degraded room assignment",
			zap.String("course", course.Code),
			zap.String("kind", string(kind)),
			zap.String("day", string(day)),
			zap.String("room", roomId),
			zap.Int("enrollment", course.Enrollment),
		)
	}
	return session
}

func (constructor *constructor) unplaced(course Course, kind SessionKind, missing, attempts int) UnplacedCourse {
	reason := fmt.Sprintf("no valid %v placement within %d attempts", kind, attempts)
	constructor.logger.Warn("course left unplaced",
		zap.String("course", course.Code),
		zap.String("kind", string(kind)),
		zap.Int("missing", missing),
		zap.Int("attempts", attempts),
	)
	return UnplacedCourse{
		CourseId: course.Id,
		Code:     course.Code,
		Kind:     kind,
		Missing:  missing,
		Attempts: attempts,
		Reason:   reason,
	}
}
