package model

import (
	"math/rand"
	"time"
)

type Timetabler interface {
	// Builds a weekly grid from scratch. Only a *ConfigurationError is ever returned; scheduling
	// shortfalls are reported in the GenerationReport.
	Build(
		catalogue Catalogue,
		constraints Constraints,
	) (grid WeeklyGrid, report GenerationReport, err error)

	Verify(
		grid WeeklyGrid,
		catalogue Catalogue,
		constraints Constraints,
	) bool
}

// Generate builds a timetable with the randomized strategy and a time-seeded source.
func Generate(catalogue Catalogue, constraints Constraints) (WeeklyGrid, GenerationReport, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return NewRandomizedTimetabler(rng, nil).Build(catalogue, constraints)
}
