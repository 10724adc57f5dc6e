package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/limaJavier/classtimetable/pkg/model"
)

// Recorder collects generation outcomes on its own Prometheus registry.
type Recorder struct {
	registry          *prometheus.Registry
	runs              *prometheus.CounterVec
	unplacedSessions  *prometheus.CounterVec
	residualConflicts *prometheus.CounterVec
	repairMoves       *prometheus.CounterVec
	score             *prometheus.HistogramVec
	duration          *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_generation_runs_total",
		Help: "Total number of timetable generation runs",
	}, []string{"strategy"})

	unplacedSessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_unplaced_sessions_total",
		Help: "Sessions that could not be placed within their attempt budget",
	}, []string{"strategy", "kind"})

	residualConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_residual_conflicts_total",
		Help: "Conflicts left in the final grid after repair",
	}, []string{"strategy", "kind"})

	repairMoves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_repair_moves_total",
		Help: "Moves applied by the repair passes",
	}, []string{"strategy", "pass"})

	score := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_score",
		Help:    "Score of generated timetables",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	}, []string{"strategy"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_generation_duration_seconds",
		Help:    "Duration of timetable generation runs in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy"})

	registry.MustRegister(runs, unplacedSessions, residualConflicts, repairMoves, score, duration)

	return &Recorder{
		registry:          registry,
		runs:              runs,
		unplacedSessions:  unplacedSessions,
		residualConflicts: residualConflicts,
		repairMoves:       repairMoves,
		score:             score,
		duration:          duration,
	}
}

// Observe records one finished run.
func (recorder *Recorder) Observe(report model.GenerationReport, elapsed time.Duration) {
	strategy := report.Strategy

	recorder.runs.WithLabelValues(strategy).Inc()
	recorder.score.WithLabelValues(strategy).Observe(float64(report.Score))
	recorder.duration.WithLabelValues(strategy).Observe(elapsed.Seconds())

	for _, unplaced := range report.Unplaced {
		recorder.unplacedSessions.WithLabelValues(strategy, string(unplaced.Kind)).Add(float64(unplaced.Missing))
	}
	for _, conflict := range report.ResidualConflicts {
		recorder.residualConflicts.WithLabelValues(strategy, string(conflict.Kind)).Inc()
	}

	recorder.repairMoves.WithLabelValues(strategy, "teacher").Add(float64(report.Repair.TeacherRelocations))
	recorder.repairMoves.WithLabelValues(strategy, "room").Add(float64(report.Repair.RoomReassignments))
	recorder.repairMoves.WithLabelValues(strategy, "balance").Add(float64(report.Repair.BalancedMoves))
}

func (recorder *Recorder) Registry() *prometheus.Registry {
	return recorder.registry
}

// WriteText dumps every collected family in the Prometheus text exposition format.
func (recorder *Recorder) WriteText(writer io.Writer) error {
	families, err := recorder.registry.Gather()
	if err != nil {
		return err
	}
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(writer, family); err != nil {
			return err
		}
	}
	return nil
}
