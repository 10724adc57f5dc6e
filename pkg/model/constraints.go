package model

import (
	"reflect"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

// Constraints tunes generation. A zero field means "not overridden" and takes the default.
type Constraints struct {
	MaxClassesPerDay     int      `mapstructure:"max_classes_per_day" json:"maxClassesPerDay"`
	MaxHoursPerDay       int      `mapstructure:"max_hours_per_day" json:"maxHoursPerDay"`
	LabDurationHours     int      `mapstructure:"lab_duration_hours" json:"labDurationHours"`
	MinBreakMinutes      int      `mapstructure:"min_break_minutes" json:"minBreakMinutes"`
	LunchDurationMinutes int      `mapstructure:"lunch_duration_minutes" json:"lunchDurationMinutes"`
	TheoryDurationHours  int      `mapstructure:"theory_duration_hours" json:"theoryDurationHours"`
	TheoryAttempts       int      `mapstructure:"theory_attempts" json:"theoryAttempts"`
	LabAttempts          int      `mapstructure:"lab_attempts" json:"labAttempts"`
	TeachingDays         []Day    `mapstructure:"teaching_days" json:"teachingDays"`
	LabDays              []Day    `mapstructure:"lab_days" json:"labDays"`
	AlternativeRooms     []string `mapstructure:"alternative_rooms" json:"alternativeRooms,omitempty"`
	FallbackClassroomId  string   `mapstructure:"fallback_classroom_id" json:"fallbackClassroomId"`
	FallbackLabId        string   `mapstructure:"fallback_lab_id" json:"fallbackLabId"`
	StrictRepair         bool     `mapstructure:"strict_repair" json:"strictRepair"`
	Population           int      `mapstructure:"population" json:"population"`
	Generations          int      `mapstructure:"generations" json:"generations"`
}

func DefaultConstraints() Constraints {
	return Constraints{
		MaxClassesPerDay:     6,
		MaxHoursPerDay:       8,
		LabDurationHours:     2,
		MinBreakMinutes:      10,
		LunchDurationMinutes: 60,
		TheoryDurationHours:  1,
		TheoryAttempts:       100,
		LabAttempts:          50,
		TeachingDays:         []Day{Monday, Tuesday, Wednesday, Thursday, Friday},
		FallbackClassroomId:  "ROOM-DEFAULT",
		FallbackLabId:        "LAB-DEFAULT",
		Population:           24,
		Generations:          40,
	}
}

// WithDefaults merges the overrides onto DefaultConstraints. LabDays falls back to TeachingDays.
func (constraints Constraints) WithDefaults() Constraints {
	merged := DefaultConstraints()

	overrideInt := func(target *int, value int) {
		if value != 0 {
			*target = value
		}
	}
	overrideInt(&merged.MaxClassesPerDay, constraints.MaxClassesPerDay)
	overrideInt(&merged.MaxHoursPerDay, constraints.MaxHoursPerDay)
	overrideInt(&merged.LabDurationHours, constraints.LabDurationHours)
	overrideInt(&merged.MinBreakMinutes, constraints.MinBreakMinutes)
	overrideInt(&merged.LunchDurationMinutes, constraints.LunchDurationMinutes)
	overrideInt(&merged.TheoryDurationHours, constraints.TheoryDurationHours)
	overrideInt(&merged.TheoryAttempts, constraints.TheoryAttempts)
	overrideInt(&merged.LabAttempts, constraints.LabAttempts)
	overrideInt(&merged.Population, constraints.Population)
	overrideInt(&merged.Generations, constraints.Generations)

	if len(constraints.TeachingDays) > 0 {
		merged.TeachingDays = canonicalDays(constraints.TeachingDays)
	}
	if len(constraints.LabDays) > 0 {
		merged.LabDays = canonicalDays(constraints.LabDays)
	} else {
		merged.LabDays = slices.Clone(merged.TeachingDays)
	}
	if len(constraints.AlternativeRooms) > 0 {
		merged.AlternativeRooms = slices.Clone(constraints.AlternativeRooms)
	}
	if constraints.FallbackClassroomId != "" {
		merged.FallbackClassroomId = constraints.FallbackClassroomId
	}
	if constraints.FallbackLabId != "" {
		merged.FallbackLabId = constraints.FallbackLabId
	}
	merged.StrictRepair = constraints.StrictRepair

	return merged
}

// Validate checks merged constraints.
func (constraints Constraints) Validate() error {
	counts := []lo.Tuple2[string, int]{
		{A: "maxClassesPerDay", B: constraints.MaxClassesPerDay},
		{A: "maxHoursPerDay", B: constraints.MaxHoursPerDay},
		{A: "labDurationHours", B: constraints.LabDurationHours},
		{A: "minBreakMinutes", B: constraints.MinBreakMinutes},
		{A: "lunchDurationMinutes", B: constraints.LunchDurationMinutes},
		{A: "theoryDurationHours", B: constraints.TheoryDurationHours},
		{A: "theoryAttempts", B: constraints.TheoryAttempts},
		{A: "labAttempts", B: constraints.LabAttempts},
		{A: "population", B: constraints.Population},
		{A: "generations", B: constraints.Generations},
	}
	for _, field := range counts {
		if field.B < 0 {
			return newConfigurationError(CodeInvalidConstraints, field.A, "must not be negative: %v", field.B)
		}
	}

	if constraints.LabDurationHours*minutesPerHour >= minutesPerDay {
		return newConfigurationError(CodeInvalidConstraints, "labDurationHours", "a lab block must fit in a day")
	}

	for _, days := range []lo.Tuple2[string, []Day]{{A: "teachingDays", B: constraints.TeachingDays}, {A: "labDays", B: constraints.LabDays}} {
		if len(days.B) == 0 {
			return newConfigurationError(CodeInvalidConstraints, days.A, "at least one day is required")
		}
		for _, day := range days.B {
			if _, ok := ParseDay(string(day)); !ok {
				return newConfigurationError(CodeInvalidConstraints, days.A, "unknown day %q", day)
			}
		}
		if duplicated := lo.FindDuplicates(days.B); len(duplicated) > 0 {
			return newConfigurationError(CodeInvalidConstraints, days.A, "day %q listed twice", duplicated[0])
		}
	}
	if extra, _ := lo.Difference(constraints.LabDays, constraints.TeachingDays); len(extra) > 0 {
		return newConfigurationError(CodeInvalidConstraints, "labDays", "lab day %q is not a teaching day", extra[0])
	}

	return nil
}

// ConstraintsFromMap decodes loosely typed overrides (config files, env values) and merges them onto the defaults.
func ConstraintsFromMap(raw map[string]any) (Constraints, error) {
	var overrides Constraints
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       stringToListHook,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &overrides,
	})
	if err != nil {
		return Constraints{}, wrapConfigurationError(err, CodeInvalidConstraints, "", "cannot build constraints decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return Constraints{}, wrapConfigurationError(err, CodeInvalidConstraints, "", "cannot decode constraints")
	}

	merged := overrides.WithDefaults()
	if err := merged.Validate(); err != nil {
		return Constraints{}, err
	}
	return merged, nil
}

// canonicalDays maps day names onto their canonical spelling, keeping unknown names for Validate to reject.
func canonicalDays(days []Day) []Day {
	return lo.Map(days, func(day Day, _ int) Day {
		if canonical, ok := ParseDay(string(day)); ok {
			return canonical
		}
		return day
	})
}

// stringToListHook splits comma separated values, as given through env variables, into lists.
func stringToListHook(from, to reflect.Kind, data any) (any, error) {
	if from != reflect.String || to != reflect.Slice {
		return data, nil
	}
	if data.(string) == "" {
		return []string{}, nil
	}
	return lo.Map(strings.Split(data.(string), ","), func(item string, _ int) string {
		return strings.TrimSpace(item)
	}), nil
}

func (constraints Constraints) fallbackRoom(roomType RoomType) string {
	if roomType == LabRoom {
		return constraints.FallbackLabId
	}
	return constraints.FallbackClassroomId
}
