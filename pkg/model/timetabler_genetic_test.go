package model

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func geneticConstraints() Constraints {
	return Constraints{Population: 6, Generations: 4}
}

func TestGeneticBuildIsValid(t *testing.T) {
	catalogue := loadTestCatalogue(t)
	constraints := geneticConstraints()
	constraints.StrictRepair = true

	for seed := int64(1); seed <= 5; seed++ {
		timetabler := NewGeneticTimetabler(seeded(seed), nil)

		grid, report, err := timetabler.Build(catalogue, constraints)

		require.NoError(t, err)
		assert.Equal(t, GeneticStrategy, report.Strategy)
		assert.True(t, timetabler.Verify(grid, catalogue, constraints), "seed %d", seed)
		assert.Equal(t, DetectConflicts(grid), report.ResidualConflicts, "seed %d", seed)
	}
}

func TestGeneticBuildPrefersFittingRooms(t *testing.T) {
	//** Arrange
	catalogue := smallCatalogue(theoryCourse("C1", "F1", 50), theoryCourse("C2", "F2", 50), theoryCourse("C3", "F3", 50))
	catalogue.Rooms = []Room{classroom("TINY", 5), classroom("BIG", 100), classroom("TINY2", 5)}
	evaluator := NewPredicateEvaluator(Constraints{}.WithDefaults())

	for seed := int64(1); seed <= 30; seed++ {
		timetabler := NewGeneticTimetabler(seeded(seed), nil)

		//** Act
		grid, report, err := timetabler.Build(catalogue, geneticConstraints())

		//** Assert
		require.NoError(t, err)
		for _, session := range grid.AllClasses() {
			if session.RoomId == "BIG" {
				continue
			}
			assert.True(t, session.DegradedRoom, "seed %d", seed)
			_, free := freeFittingRoom(catalogue, evaluator, grid, session)
			assert.False(t, free, "seed %d: %s sits in %s while BIG is free", seed, session.Code, session.RoomId)
		}
		assert.Equal(t, lo.CountBy(grid.AllClasses(), func(session Session) bool { return session.DegradedRoom }), report.DegradedRooms)
		assert.True(t, timetabler.Verify(grid, catalogue, geneticConstraints()), "seed %d", seed)
	}
}

func TestGeneticBuildWithoutCourses(t *testing.T) {
	grid, report, err := NewGeneticTimetabler(seeded(1), nil).Build(smallCatalogue(), geneticConstraints())

	require.NoError(t, err)
	assert.Empty(t, grid.AllClasses())
	assert.Equal(t, 100, report.Score)
	assert.Empty(t, report.Unplaced)
}

func TestGeneticBuildLabWithoutLabRooms(t *testing.T) {
	catalogue := smallCatalogue(labCourse("L1", "F1", 20))
	catalogue.Timeslots = hourSlots(SessionLab, 8)

	grid, report, err := NewGeneticTimetabler(seeded(2), nil).Build(catalogue, geneticConstraints())

	require.NoError(t, err)
	classes := grid.AllClasses()
	require.Len(t, classes, 1)
	assert.Equal(t, "LAB-DEFAULT", classes[0].RoomId)
	assert.True(t, classes[0].DegradedRoom)
	assert.Equal(t, 120, classes[0].Span().Minutes())
	assert.Equal(t, 1, report.DegradedRooms)
}

func TestGeneticBuildReportsUnplacedLab(t *testing.T) {
	catalogue := smallCatalogue(theoryCourse("C1", "F1", 30), labCourse("L1", "F2", 20))

	grid, report, err := NewGeneticTimetabler(seeded(3), nil).Build(catalogue, geneticConstraints())

	require.NoError(t, err)
	assert.Len(t, grid.AllClasses(), 1)
	require.Len(t, report.Unplaced, 1)
	assert.Equal(t, "L1", report.Unplaced[0].CourseId)
	assert.Equal(t, SessionLab, report.Unplaced[0].Kind)
	assert.Equal(t, 1, report.Unplaced[0].Missing)
	assert.Equal(t, 24, report.Unplaced[0].Attempts)
}

func TestGeneticEncodingRoundTrip(t *testing.T) {
	//** Arrange
	raw := Catalogue{
		Courses: []Course{
			{Id: "C1", Name: "Algebra", Code: "MAT102", Type: TheoryCourse, Credits: 2, FacultyId: "F1", Enrollment: 30},
			theoryCourse("C2", "F2", 15),
			labCourse("L1", "F3", 20),
		},
		Faculty:   []Faculty{{Id: "F1"}, {Id: "F2"}, {Id: "F3"}},
		Rooms:     []Room{classroom("R1", 40), classroom("R2", 20), {Id: "LAB1", Type: LabRoom, Capacity: 25}},
		Timeslots: append(hourSlots(SessionTheory, 8, 9, 10), hourSlots(SessionLab, 13)...),
	}
	catalogue, constraints, err := prepareInput(raw, Constraints{})
	require.NoError(t, err)

	grid, unplaced := newConstructor(catalogue, constraints, seeded(11), zap.NewNop()).Construct()
	require.Empty(t, unplaced)
	search := newGeneticSearch(catalogue, constraints, seeded(12))

	//** Act
	genes := search.encode(grid)
	decoded, skipped := search.decode(genes)

	//** Assert
	assert.Len(t, genes, 4)
	assert.Empty(t, skipped)
	assert.ElementsMatch(t, withoutIds(grid), withoutIds(decoded))
	assert.Equal(t, Score(grid), search.evaluate(genes).fitness)
}

func TestGeneticFeasiblePlacements(t *testing.T) {
	raw := smallCatalogue(labCourse("L1", "F1", 20))
	raw.Rooms = append(raw.Rooms, Room{Id: "LAB1", Type: LabRoom, Capacity: 25})
	raw.Timeslots = append(raw.Timeslots, hourSlots(SessionLab, 13)...)
	catalogue, constraints, err := prepareInput(raw, Constraints{LabDays: []Day{Tuesday, Thursday}})
	require.NoError(t, err)

	search := newGeneticSearch(catalogue, constraints, seeded(1))

	// Five days, four slots, one classroom
	assert.Len(t, search.feasible[SessionTheory], 20)
	// Two lab days, one lab slot, one lab room
	require.Len(t, search.feasible[SessionLab], 2)
	for _, placement := range search.feasible[SessionLab] {
		day, timeslot, room := search.indexer.Attributes(placement)
		assert.Contains(t, []Day{Tuesday, Thursday}, constraints.TeachingDays[day])
		assert.Equal(t, SessionLab, catalogue.Timeslots[timeslot].Kind)
		assert.Equal(t, "LAB1", catalogue.Rooms[room].Id)
	}
}

func TestExpandDemands(t *testing.T) {
	catalogue := smallCatalogue(
		labCourse("L1", "F1", 20),
		Course{Id: "C1", Name: "Algebra", Code: "MAT102", Type: TheoryCourse, Credits: 3, FacultyId: "F1"},
		theoryCourse("C2", "F2", 30),
	)

	demands := expandDemands(catalogue)

	require.Len(t, demands, 5)
	kinds := []SessionKind{SessionTheory, SessionTheory, SessionTheory, SessionTheory, SessionLab}
	courses := []string{"C1", "C1", "C1", "C2", "L1"}
	for i, demand := range demands {
		assert.Equal(t, kinds[i], demand.kind)
		assert.Equal(t, courses[i], demand.course.Id)
	}
}

// withoutIds drops session ids, which depend on placement order.
func withoutIds(grid WeeklyGrid) []Session {
	return lo.Map(grid.AllClasses(), func(session Session, _ int) Session {
		session.Id = 0
		return session
	})
}
