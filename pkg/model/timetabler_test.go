package model

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seeded(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// smallCatalogue has one 40 seat classroom and four morning theory slots valid every day.
func smallCatalogue(courses ...Course) Catalogue {
	return Catalogue{
		Courses:   courses,
		Faculty:   []Faculty{{Id: "F1"}, {Id: "F2"}, {Id: "F3"}},
		Rooms:     []Room{classroom("R1", 40)},
		Timeslots: hourSlots(SessionTheory, 8, 9, 10, 11),
	}
}

func TestBuildWithoutCourses(t *testing.T) {
	//** Arrange
	catalogue := smallCatalogue()
	timetabler := NewRandomizedTimetabler(seeded(1), nil)

	//** Act
	grid, report, err := timetabler.Build(catalogue, Constraints{})

	//** Assert
	require.NoError(t, err)
	assert.Equal(t, weekdays(), grid.Days)
	for _, day := range grid.Days {
		require.Len(t, grid.Sessions[day], 1)
		assert.Equal(t, SessionLunch, grid.Sessions[day][0].Kind)
	}
	assert.Equal(t, 100, report.Score)
	assert.Equal(t, RandomizedStrategy, report.Strategy)
	assert.NotEmpty(t, report.RunId)
	assert.Empty(t, report.Unplaced)
	assert.Empty(t, report.ResidualConflicts)
	assert.True(t, timetabler.Verify(grid, catalogue, Constraints{}))
}

func TestBuildLabWithoutLabRooms(t *testing.T) {
	//** Arrange
	catalogue := smallCatalogue(labCourse("L1", "F1", 20))
	catalogue.Timeslots = hourSlots(SessionLab, 8)
	timetabler := NewRandomizedTimetabler(seeded(3), nil)

	//** Act
	grid, report, err := timetabler.Build(catalogue, Constraints{})

	//** Assert
	require.NoError(t, err)
	classes := grid.AllClasses()
	require.Len(t, classes, 1)
	assert.Equal(t, SessionLab, classes[0].Kind)
	assert.Equal(t, "LAB-DEFAULT", classes[0].RoomId)
	assert.True(t, classes[0].DegradedRoom)
	assert.Equal(t, "L1-LAB", classes[0].Code)
	assert.Equal(t, "08:00", classes[0].Start.String())
	assert.Equal(t, "10:00", classes[0].End.String())
	assert.Equal(t, 1, report.DegradedRooms)
	assert.True(t, timetabler.Verify(grid, catalogue, Constraints{}))
}

func TestBuildSeparatesSharedFaculty(t *testing.T) {
	catalogue := smallCatalogue(theoryCourse("A", "F1", 30), theoryCourse("B", "F1", 30))

	distinct := 0
	for seed := int64(1); seed <= 1000; seed++ {
		grid, _, err := NewRandomizedTimetabler(seeded(seed), nil).Build(catalogue, Constraints{})
		require.NoError(t, err)

		classes := grid.AllClasses()
		require.Len(t, classes, 2)
		if classes[0].Day != classes[1].Day || classes[0].Start != classes[1].Start {
			distinct++
		}
	}

	assert.GreaterOrEqual(t, distinct, 990)
}

func TestBuildSingleFacultySingleRoom(t *testing.T) {
	catalogue := smallCatalogue(theoryCourse("C1", "F1", 50), theoryCourse("C2", "F1", 50))
	catalogue.Rooms = []Room{classroom("R1", 60)}
	catalogue.Timeslots = hourSlots(SessionTheory, 8, 9, 10, 11, 14)

	for seed := int64(1); seed <= 20; seed++ {
		timetabler := NewRandomizedTimetabler(seeded(seed), nil)

		grid, report, err := timetabler.Build(catalogue, Constraints{})

		require.NoError(t, err)
		classes := grid.AllClasses()
		require.Len(t, classes, 2)
		assert.False(t, classes[0].Day == classes[1].Day && classes[0].Start == classes[1].Start, "seed %d", seed)
		assert.Equal(t, 100, report.Score, "seed %d", seed)
		assert.True(t, timetabler.Verify(grid, catalogue, Constraints{}), "seed %d", seed)
	}
}

func TestBuildReportsUnplacedLab(t *testing.T) {
	//** Arrange
	catalogue := smallCatalogue(theoryCourse("C1", "F1", 30), labCourse("L1", "F2", 20))

	//** Act
	grid, report, err := NewRandomizedTimetabler(seeded(5), nil).Build(catalogue, Constraints{})

	//** Assert
	require.NoError(t, err)
	assert.Len(t, grid.AllClasses(), 1)
	require.Len(t, report.Unplaced, 1)
	unplaced := report.Unplaced[0]
	assert.Equal(t, "L1", unplaced.CourseId)
	assert.Equal(t, SessionLab, unplaced.Kind)
	assert.Equal(t, 1, unplaced.Missing)
	assert.Equal(t, 50, unplaced.Attempts)
	assert.NotEmpty(t, unplaced.Reason)
	assert.Equal(t, 1, report.UnplacedSessions())
}

func TestBuildStrictRepairKeepsGridValid(t *testing.T) {
	catalogue := loadTestCatalogue(t)
	constraints := Constraints{StrictRepair: true}

	for seed := int64(1); seed <= 30; seed++ {
		timetabler := NewRandomizedTimetabler(seeded(seed), nil)

		grid, report, err := timetabler.Build(catalogue, constraints)

		require.NoError(t, err)
		assert.True(t, timetabler.Verify(grid, catalogue, constraints), "seed %d", seed)
		assert.Equal(t, DetectConflicts(grid), report.ResidualConflicts, "seed %d", seed)
		assert.Equal(t, Score(grid), report.Score, "seed %d", seed)
		assert.Equal(t, grid.DayLoads(), report.DayLoads, "seed %d", seed)
		assert.True(t, report.Constraints.StrictRepair)
	}
}

func TestBuildRepairAddsNoConflicts(t *testing.T) {
	//** Arrange
	courses := lo.Times(12, func(index int) Course {
		return theoryCourse(fmt.Sprintf("C%d", index+1), fmt.Sprintf("F%d", index%3+1), 30)
	})
	catalogue := smallCatalogue(courses...)
	prepared, constraints, err := prepareInput(catalogue, Constraints{})
	require.NoError(t, err)

	for seed := int64(1); seed <= 200; seed++ {
		//** Act
		raw, _ := newConstructor(prepared, constraints, seeded(seed), zap.NewNop()).Construct()
		grid, report, err := NewRandomizedTimetabler(seeded(seed), nil).Build(catalogue, Constraints{})

		//** Assert
		require.NoError(t, err)
		assert.LessOrEqual(t, len(report.ResidualConflicts), len(DetectConflicts(raw)), "seed %d", seed)
		assert.Equal(t, len(raw.AllClasses()), len(grid.AllClasses()), "seed %d", seed)
		assert.True(t, verify(grid, catalogue, Constraints{}), "seed %d", seed)
	}
}

func TestBuildIsReproducible(t *testing.T) {
	catalogue := loadTestCatalogue(t)

	first, firstReport, err := NewRandomizedTimetabler(seeded(42), nil).Build(catalogue, Constraints{})
	require.NoError(t, err)
	second, secondReport, err := NewRandomizedTimetabler(seeded(42), nil).Build(catalogue, Constraints{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstReport.Score, secondReport.Score)
	assert.NotEqual(t, firstReport.RunId, secondReport.RunId)
}

// lateLabCatalogue holds one lab course and a single lab timeslot starting at the given hour.
func lateLabCatalogue(hour int) Catalogue {
	catalogue := smallCatalogue(labCourse("L1", "F1", 20))
	catalogue.Timeslots = []Timeslot{{
		Id:    "LATE",
		Order: 1,
		Start: fmt.Sprintf("%02d:00", hour),
		End:   fmt.Sprintf("%02d:30", hour),
		Kind:  SessionLab,
	}}
	return catalogue
}

func TestBuildLabEndingAtMidnight(t *testing.T) {
	grid, report, err := NewRandomizedTimetabler(seeded(1), nil).Build(lateLabCatalogue(22), Constraints{})

	require.NoError(t, err)
	require.Empty(t, report.Unplaced)
	classes := grid.AllClasses()
	require.Len(t, classes, 1)
	assert.Equal(t, "24:00", classes[0].End.String())
}

func TestBuildConfigurationErrors(t *testing.T) {
	scenarios := map[string]struct {
		catalogue   Catalogue
		constraints Constraints
		code        string
	}{
		"empty catalogue":         {Catalogue{}, Constraints{}, CodeEmptyCollection},
		"unknown faculty":         {smallCatalogue(theoryCourse("C1", "F9", 30)), Constraints{}, CodeUnknownReference},
		"lab day not a teach day": {smallCatalogue(), Constraints{TeachingDays: []Day{Monday}, LabDays: []Day{Friday}}, CodeInvalidConstraints},
		"lab past midnight":       {lateLabCatalogue(23), Constraints{}, CodeInvalidTimeslot},
		"long lab past midnight":  {lateLabCatalogue(22), Constraints{LabDurationHours: 3}, CodeInvalidTimeslot},
	}

	for name, scenario := range scenarios {
		t.Run(name, func(t *testing.T) {
			for _, timetabler := range []Timetabler{NewRandomizedTimetabler(seeded(1), nil), NewGeneticTimetabler(seeded(1), nil)} {
				_, _, err := timetabler.Build(scenario.catalogue, scenario.constraints)

				var configurationError *ConfigurationError
				require.True(t, errors.As(err, &configurationError))
				assert.Equal(t, scenario.code, configurationError.Code)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	grid, report, err := Generate(loadTestCatalogue(t), Constraints{})

	require.NoError(t, err)
	assert.Equal(t, weekdays(), grid.Days)
	assert.Equal(t, RandomizedStrategy, report.Strategy)
	assert.NotEmpty(t, grid.AllClasses())
}

func TestVerify(t *testing.T) {
	//** Arrange
	catalogue := smallCatalogue(theoryCourse("C1", "F1", 30), theoryCourse("C2", "F1", 30), theoryCourse("C3", "F3", 30), labCourse("L1", "F2", 20))
	catalogue.Rooms = append(catalogue.Rooms, classroom("R2", 10))
	busyR1 := class(3, "C3", "F3", Monday, "08:00", "09:00", "R1")
	lab := func(start, end string) Session {
		session := class(9, "L1", "F2", Tuesday, start, end, "LAB-DEFAULT")
		session.Kind = SessionLab
		return session
	}
	degraded := func(session Session) Session {
		session.DegradedRoom = true
		return session
	}

	scenarios := []struct {
		name     string
		sessions []Session
		expected bool
	}{
		{"valid", []Session{class(1, "C1", "F1", Monday, "08:00", "09:00", "R1"), class(2, "C2", "F1", Monday, "09:00", "10:00", "R1")}, true},
		{"teacher double booked", []Session{class(1, "C1", "F1", Monday, "08:00", "09:00", "R1"), class(2, "C2", "F1", Monday, "08:00", "09:00", "R2")}, false},
		{"room double booked", []Session{class(1, "C1", "F1", Monday, "08:00", "09:00", "R1"), lab("08:00", "10:00"), class(2, "C2", "F1", Tuesday, "08:00", "09:00", "LAB-DEFAULT")}, false},
		{"unknown room", []Session{class(1, "C1", "F1", Monday, "08:00", "09:00", "R9")}, false},
		{"fallback room", []Session{degraded(class(1, "C1", "F1", Monday, "08:00", "09:00", "ROOM-DEFAULT")), busyR1}, true},
		{"fallback room while R1 is free", []Session{degraded(class(1, "C1", "F1", Monday, "08:00", "09:00", "ROOM-DEFAULT"))}, false},
		{"small room", []Session{class(1, "C1", "F1", Monday, "08:00", "09:00", "R2"), busyR1}, false},
		{"flagged small room", []Session{degraded(class(1, "C1", "F1", Monday, "08:00", "09:00", "R2")), busyR1}, true},
		{"flagged small room while R1 is free", []Session{degraded(class(1, "C1", "F1", Monday, "08:00", "09:00", "R2"))}, false},
		{"flagged small room while R1 is free later", []Session{degraded(class(1, "C1", "F1", Monday, "08:00", "09:00", "R2")), class(3, "C3", "F3", Monday, "09:00", "10:00", "R1")}, false},
		{"weekend", []Session{class(1, "C1", "F1", Saturday, "08:00", "09:00", "R1")}, false},
		{"faculty mismatch", []Session{class(1, "C1", "F2", Monday, "08:00", "09:00", "R1")}, false},
		{"unknown course", []Session{class(1, "C9", "F1", Monday, "08:00", "09:00", "R1")}, false},
		{"lab block", []Session{lab("13:00", "15:00")}, true},
		{"short lab block", []Session{lab("13:00", "14:00")}, false},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			grid := gridOf(weekdays(), scenario.sessions...)

			assert.Equal(t, scenario.expected, verify(grid, catalogue, Constraints{}))
		})
	}
}

func TestVerifyDailyCeiling(t *testing.T) {
	catalogue := smallCatalogue(lo.Map([]string{"C1", "C2", "C3"}, func(id string, _ int) Course { return theoryCourse(id, "F1", 30) })...)
	grid := gridOf(weekdays(),
		class(1, "C1", "F1", Monday, "08:00", "09:00", "R1"),
		class(2, "C2", "F1", Monday, "09:00", "10:00", "R1"),
		class(3, "C3", "F1", Monday, "10:00", "11:00", "R1"),
	)

	assert.True(t, verify(grid, catalogue, Constraints{MaxClassesPerDay: 3}))
	assert.False(t, verify(grid, catalogue, Constraints{MaxClassesPerDay: 2}))
}

func TestOverloadedDays(t *testing.T) {
	lab := class(3, "L1", "F2", Monday, "13:00", "15:00", "LAB1")
	lab.Kind = SessionLab
	grid := gridOf(weekdays(),
		class(1, "C1", "F1", Monday, "08:00", "09:00", "R1"),
		class(2, "C2", "F1", Monday, "09:00", "10:00", "R1"),
		lab,
		class(4, "C4", "F1", Tuesday, "08:00", "09:00", "R1"),
	)

	assert.Equal(t, []Day{Monday}, overloadedDays(grid, Constraints{MaxHoursPerDay: 3}.WithDefaults()))
	assert.Empty(t, overloadedDays(grid, Constraints{MaxHoursPerDay: 4}.WithDefaults()))
}
