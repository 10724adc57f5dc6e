package model

import (
	"math/rand"

	"go.uber.org/zap"
)

const RandomizedStrategy = "randomized"

type randomizedTimetabler struct {
	rng    *rand.Rand
	logger *zap.Logger
}

// NewRandomizedTimetabler builds grids by bounded random sampling followed by repair.
// The source is owned by the timetabler; a nil logger discards output.
func NewRandomizedTimetabler(rng *rand.Rand, logger *zap.Logger) Timetabler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &randomizedTimetabler{
		rng:    rng,
		logger: logger.With(zap.String("strategy", RandomizedStrategy)),
	}
}

func (timetabler *randomizedTimetabler) Build(catalogue Catalogue, constraints Constraints) (WeeklyGrid, GenerationReport, error) {
	//** Preprocess input
	catalogue, constraints, err := prepareInput(catalogue, constraints)
	if err != nil {
		return WeeklyGrid{}, GenerationReport{}, err
	}
	report := newGenerationReport(RandomizedStrategy, constraints)

	//** Construct
	grid, unplaced := newConstructor(catalogue, constraints, timetabler.rng, timetabler.logger).Construct()
	report.Unplaced = unplaced

	//** Repair, mark and score
	grid, report = finalize(grid, catalogue, constraints, report, timetabler.logger)
	return grid, report, nil
}

func (timetabler *randomizedTimetabler) Verify(grid WeeklyGrid, catalogue Catalogue, constraints Constraints) bool {
	return verify(grid, catalogue, constraints)
}
