package main

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/limaJavier/classtimetable/internal/metrics"
	"github.com/limaJavier/classtimetable/pkg/model"
)

var timetablers = map[string]func(*rand.Rand, *zap.Logger) model.Timetabler{
	model.RandomizedStrategy: model.NewRandomizedTimetabler,
	model.GeneticStrategy:    model.NewGeneticTimetabler,
}

var (
	filePath    string
	seedRange   = "1-20"
	strategies  = []string{model.RandomizedStrategy, model.GeneticStrategy}
	outFile     = "benchmark_results.csv"
	metricsFile string
	strict      bool
)

type BenchmarkResult struct {
	Strategy          string `csv:"strategy"`
	Seed              int64  `csv:"seed"`
	Courses           int    `csv:"courses"`
	Rooms             int    `csv:"rooms"`
	Timeslots         int    `csv:"timeslots"`
	Sessions          int    `csv:"sessions"`
	Unplaced          int    `csv:"unplaced"`
	ResidualConflicts int    `csv:"residual_conflicts"`
	DegradedRooms     int    `csv:"degraded_rooms"`
	Score             int    `csv:"score"`
	Valid             bool   `csv:"valid"`
	Duration          int64  `csv:"duration_ms"`
}

func main() {
	cmdBenchmark := &cobra.Command{
		Use:   "benchmark",
		Short: "run every strategy over a range of seeds and summarize the results",
		Run:   commandBenchmark,
	}
	cmdBenchmark.Flags().StringVarP(&filePath, "file", "f", "", "path to the JSON catalogue")
	cmdBenchmark.Flags().StringVar(&seedRange, "seeds", seedRange, `seeds to run, e.g. "1-20" or "1-3,7"`)
	cmdBenchmark.Flags().StringSliceVar(&strategies, "strategies", strategies, "strategies to benchmark")
	cmdBenchmark.Flags().StringVarP(&outFile, "out", "o", outFile, "CSV file where results are written")
	cmdBenchmark.Flags().StringVar(&metricsFile, "metrics", "", "file where Prometheus metrics are dumped; standard error when empty")
	cmdBenchmark.Flags().BoolVar(&strict, "strict", false, "validate every repair move against the hard rules")
	_ = cmdBenchmark.MarkFlagRequired("file")

	if err := cmdBenchmark.Execute(); err != nil {
		os.Exit(1)
	}
}

func commandBenchmark(_ *cobra.Command, _ []string) {
	seeds, err := parseSeeds(seedRange)
	if err != nil {
		log.Fatalf("invalid seeds: %v", err)
	}
	for _, strategy := range strategies {
		if _, ok := timetablers[strategy]; !ok {
			log.Fatalf("%v is not a valid strategy", strategy)
		}
	}

	catalogue, err := model.CatalogueFromJson(filePath)
	if err != nil {
		log.Fatalf("cannot parse input file: %v", err)
	}
	constraints := model.Constraints{StrictRepair: strict}

	recorder := metrics.NewRecorder()
	results := make([]BenchmarkResult, 0, len(strategies)*len(seeds))

	for _, strategy := range strategies {
		for _, seed := range seeds {
			fmt.Printf("Benchmarking strategy \"%v\" with seed %v\n", strategy, seed)
			timetabler := timetablers[strategy](rand.New(rand.NewSource(seed)), zap.NewNop())

			start := time.Now()
			grid, report, err := timetabler.Build(catalogue, constraints)
			elapsed := time.Since(start)
			if err != nil {
				log.Fatalf("an error occurred during timetable construction with strategy \"%v\" and seed %v: %v", strategy, seed, err)
			}
			recorder.Observe(report, elapsed)

			results = append(results, BenchmarkResult{
				Strategy:          strategy,
				Seed:              seed,
				Courses:           len(catalogue.Courses),
				Rooms:             len(catalogue.Rooms),
				Timeslots:         len(catalogue.Timeslots),
				Sessions:          len(grid.AllClasses()),
				Unplaced:          report.UnplacedSessions(),
				ResidualConflicts: len(report.ResidualConflicts),
				DegradedRooms:     report.DegradedRooms,
				Score:             report.Score,
				Valid:             timetabler.Verify(grid, catalogue, constraints),
				Duration:          elapsed.Milliseconds(),
			})
		}
	}

	toCsv(results)
	dumpMetrics(recorder)
}

func toCsv(results []BenchmarkResult) {
	file, err := os.Create(outFile)
	if err != nil {
		log.Panicf("cannot create CSV file: %v", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&results, file); err != nil {
		log.Panicf("cannot write CSV records: %v", err)
	}
}

func dumpMetrics(recorder *metrics.Recorder) {
	writer := os.Stderr
	if metricsFile != "" {
		file, err := os.Create(metricsFile)
		if err != nil {
			log.Panicf("cannot create metrics file: %v", err)
		}
		defer file.Close()
		writer = file
	}

	if err := recorder.WriteText(writer); err != nil {
		log.Panicf("cannot write metrics: %v", err)
	}
}

// parseSeeds expands a comma separated list of seeds and inclusive ranges.
func parseSeeds(value string) ([]int64, error) {
	seeds := make([]int64, 0)
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		first, last, isRange := strings.Cut(part, "-")
		from, err := strconv.ParseInt(strings.TrimSpace(first), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed seed %q: %w", part, err)
		}
		to := from
		if isRange {
			if to, err = strconv.ParseInt(strings.TrimSpace(last), 10, 64); err != nil {
				return nil, fmt.Errorf("malformed seed range %q: %w", part, err)
			}
		}
		if to < from {
			return nil, fmt.Errorf("empty seed range %q", part)
		}

		for seed := from; seed <= to; seed++ {
			seeds = append(seeds, seed)
		}
	}

	seeds = lo.Uniq(seeds)
	if len(seeds) == 0 {
		return nil, fmt.Errorf("no seeds in %q", value)
	}
	return seeds, nil
}
