package main

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/limaJavier/classtimetable/internal/config"
	"github.com/limaJavier/classtimetable/internal/export"
	"github.com/limaJavier/classtimetable/internal/logger"
	"github.com/limaJavier/classtimetable/pkg/model"
)

const (
	exitInvalid  = 15 // The grid holds residual conflicts or breaks an invariant
	exitUnplaced = 20 // Some sessions could not be placed
)

var (
	validFormats = []string{"json", "csv"}
	timetablers  = map[string]func(*rand.Rand, *zap.Logger) model.Timetabler{
		model.RandomizedStrategy: model.NewRandomizedTimetabler,
		model.GeneticStrategy:    model.NewGeneticTimetabler,
	}
)

var (
	filePath   string
	outFile    string
	format     string
	strategy   string
	seed       int64
	configFile string
	strict     bool
	exitCode   int
)

func main() {
	cmdTimetable := &cobra.Command{
		Use:          "timetable",
		Short:        "Weekly class timetable generator",
		SilenceUsage: true,
	}
	cmdTimetable.PersistentFlags().StringVarP(&filePath, "file", "f", "", "path to the JSON catalogue")
	cmdTimetable.PersistentFlags().StringVar(&configFile, "config", "", "config file with log, generator and constraint settings")
	_ = cmdTimetable.MarkPersistentFlagRequired("file")

	cmdGenerate := &cobra.Command{
		Use:   "generate",
		Short: "generate a timetable from a catalogue",
		RunE:  commandGenerate,
	}
	cmdGenerate.Flags().StringVarP(&outFile, "out", "o", "", "file where the output is written; standard output when empty")
	cmdGenerate.Flags().StringVar(&format, "format", "json", `output format: "json" (grid and report) or "csv" (grid rows)`)
	cmdGenerate.Flags().StringVarP(&strategy, "strategy", "s", model.RandomizedStrategy, `strategy: "randomized" or "genetic"`)
	cmdGenerate.Flags().Int64Var(&seed, "seed", 0, "random seed; zero seeds from the clock")
	cmdGenerate.Flags().BoolVar(&strict, "strict", false, "validate every repair move against the hard rules")
	cmdTimetable.AddCommand(cmdGenerate)

	cmdValidate := &cobra.Command{
		Use:   "validate",
		Short: "validate a catalogue and the configured constraints",
		RunE:  commandValidate,
	}
	cmdTimetable.AddCommand(cmdValidate)

	if err := cmdTimetable.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}

func commandGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("cannot load configuration: %w", err)
	}
	if cmd.Flags().Changed("strategy") {
		cfg.Generator.Strategy = strings.ToLower(strategy)
	}
	if cmd.Flags().Changed("seed") {
		cfg.Generator.Seed = seed
	}
	if !slices.Contains(validFormats, format) {
		return fmt.Errorf("%v is not a valid format", format)
	}

	log, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("cannot build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	catalogue, constraints, err := loadInput(cfg)
	if err != nil {
		return err
	}
	if strict {
		constraints.StrictRepair = true
	}

	timetabler, err := timetablerFor(cfg.Generator.Strategy, cfg.Generator.Seed, log)
	if err != nil {
		return err
	}

	grid, report, err := timetabler.Build(catalogue, constraints)
	if err != nil {
		return fmt.Errorf("an error occurred during timetable construction: %w", err)
	}

	writer := io.Writer(os.Stdout)
	if outFile != "" {
		file, err := os.Create(outFile)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer file.Close()
		writer = file
	}
	if err := writeOutput(writer, format, grid, report); err != nil {
		return fmt.Errorf("an error occurred while writing the output: %w", err)
	}

	// Verify timetable correctness
	if !timetabler.Verify(grid, catalogue, constraints) {
		log.Warn("timetable breaks hard constraints", zap.Int("residual_conflicts", len(report.ResidualConflicts)))
		exitCode = exitInvalid
	} else if len(report.Unplaced) > 0 {
		exitCode = exitUnplaced
	}
	return nil
}

func commandValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("cannot load configuration: %w", err)
	}

	catalogue, constraints, err := loadInput(cfg)
	if err != nil {
		return err
	}

	demand := lo.SumBy(catalogue.Courses, func(course model.Course) int {
		if course.Type == model.LabCourse {
			return 1
		}
		return course.TheorySessions()
	})
	fmt.Fprintf(cmd.OutOrStdout(), "catalogue OK: %d courses, %d faculty, %d rooms, %d timeslots, %d weekly sessions over %d teaching days (max %d per day)\n",
		len(catalogue.Courses), len(catalogue.Faculty), len(catalogue.Rooms), len(catalogue.Timeslots),
		demand, len(constraints.TeachingDays), constraints.MaxClassesPerDay)
	return nil
}

func loadInput(cfg *config.Config) (model.Catalogue, model.Constraints, error) {
	catalogue, err := model.CatalogueFromJson(filePath)
	if err != nil {
		return model.Catalogue{}, model.Constraints{}, fmt.Errorf("cannot parse input file: %w", err)
	}
	constraints, err := model.ConstraintsFromMap(cfg.Constraints)
	if err != nil {
		return model.Catalogue{}, model.Constraints{}, fmt.Errorf("invalid constraints: %w", err)
	}
	return catalogue, constraints, nil
}

func timetablerFor(strategy string, seed int64, log *zap.Logger) (model.Timetabler, error) {
	constructor, ok := timetablers[strategy]
	if !ok {
		return nil, fmt.Errorf("%v is not a valid strategy", strategy)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return constructor(rand.New(rand.NewSource(seed)), log), nil
}

func writeOutput(writer io.Writer, format string, grid model.WeeklyGrid, report model.GenerationReport) error {
	switch format {
	case "csv":
		return export.WriteCSV(writer, grid)
	case "json":
		return export.WriteJSON(writer, grid, report)
	}
	return fmt.Errorf("%v is not a valid format", format)
}
