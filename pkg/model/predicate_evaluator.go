package model

// PredicateEvaluator answers the hard-rule questions asked while placing and repairing sessions.
// Every method is a pure read of the grid; the optional exclude ids are ignored so a session's own
// move can be tested against the rest of the grid.
type PredicateEvaluator interface {
	// Checks whether the faculty has no class overlapping the span on the given day
	TeacherFree(grid WeeklyGrid, day Day, span Span, facultyId string, exclude ...int) bool

	// Checks whether the room holds no class overlapping the span on the given day
	RoomFree(grid WeeklyGrid, day Day, span Span, roomId string, exclude ...int) bool

	// Checks whether one more class fits under the daily ceiling
	DailyCapacityOk(grid WeeklyGrid, day Day, exclude ...int) bool

	// Checks whether the lab block of the course is already in the grid
	LabAlreadyScheduled(grid WeeklyGrid, courseId string, exclude ...int) bool

	// Checks whether the faculty has any class on the given day
	FacultyBusyOnDay(grid WeeklyGrid, day Day, facultyId string, exclude ...int) bool

	// Checks whether the course already meets on the given day
	CourseOnDay(grid WeeklyGrid, day Day, courseId string, exclude ...int) bool

	// Checks whether the room's capacity is greater than or equal to the enrollment
	Fits(room Room, enrollment int) bool
}

func NewPredicateEvaluator(constraints Constraints) PredicateEvaluator {
	return &predicateEvaluatorStandard{
		maxClassesPerDay: constraints.WithDefaults().MaxClassesPerDay,
	}
}
