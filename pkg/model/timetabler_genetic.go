package model

import (
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	GeneticStrategy = "genetic"

	tournamentSize   = 3
	eliteCount       = 2
	unplacedPenalty  = 20
	violationPenalty = 10
)

// demand is one session the catalogue asks for.
type demand struct {
	course Course
	kind   SessionKind
}

type individual struct {
	genes   []uint64 // Placement index per demand, math.MaxUint64 when the demand has no feasible placement
	fitness int
}

type geneticTimetabler struct {
	rng    *rand.Rand
	logger *zap.Logger
}

// NewGeneticTimetabler evolves a population of placements seeded by randomized construction.
func NewGeneticTimetabler(rng *rand.Rand, logger *zap.Logger) Timetabler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &geneticTimetabler{
		rng:    rng,
		logger: logger.With(zap.String("strategy", GeneticStrategy)),
	}
}

func (timetabler *geneticTimetabler) Build(catalogue Catalogue, constraints Constraints) (WeeklyGrid, GenerationReport, error) {
	//** Preprocess input
	catalogue, constraints, err := prepareInput(catalogue, constraints)
	if err != nil {
		return WeeklyGrid{}, GenerationReport{}, err
	}
	report := newGenerationReport(GeneticStrategy, constraints)

	//** Initialize dependencies
	search := newGeneticSearch(catalogue, constraints, timetabler.rng)

	//** Evolve
	population := search.seed()
	for generation := range constraints.Generations {
		population = search.evolve(population)
		timetabler.logger.Debug("generation evolved", zap.Int("generation", generation), zap.Int("best_fitness", population[0].fitness))
	}
	slices.SortStableFunc(population, func(a, b individual) int { return b.fitness - a.fitness })
	best := population[0]

	//** Decode best individual
	grid, skipped := search.decode(best.genes)
	report.Unplaced = search.unplaced(skipped)
	for _, unplaced := range report.Unplaced {
		timetabler.logger.Warn("course left unplaced", zap.String("course", unplaced.Code), zap.String("kind", string(unplaced.Kind)), zap.Int("missing", unplaced.Missing))
	}

	//** Repair, mark and score
	grid, report = finalize(grid, catalogue, constraints, report, timetabler.logger)
	return grid, report, nil
}

func (timetabler *geneticTimetabler) Verify(grid WeeklyGrid, catalogue Catalogue, constraints Constraints) bool {
	return verify(grid, catalogue, constraints)
}

// geneticSearch holds the encoding shared by every individual of one run.
type geneticSearch struct {
	catalogue   Catalogue
	constraints Constraints
	evaluator   PredicateEvaluator
	indexer     indexer
	rng         *rand.Rand
	demands     []demand
	feasible    map[SessionKind][]uint64
	population  int
}

func newGeneticSearch(catalogue Catalogue, constraints Constraints, rng *rand.Rand) *geneticSearch {
	demands := expandDemands(catalogue)
	totalDays, totalTimeslots, totalRooms := uint64(len(constraints.TeachingDays)), uint64(len(catalogue.Timeslots)), uint64(len(catalogue.Rooms)+1)

	search := &geneticSearch{
		catalogue:   catalogue,
		constraints: constraints,
		evaluator:   NewPredicateEvaluator(constraints),
		indexer:     newIndexer(totalDays, totalTimeslots, totalRooms),
		rng:         rng,
		demands:     demands,
		feasible:    make(map[SessionKind][]uint64),
		population:  max(eliteCount, constraints.Population),
	}

	generator := newPermutationGenerator(totalDays, totalTimeslots, totalRooms)
	for _, kind := range []SessionKind{SessionTheory, SessionLab} {
		permutations := generator.ConstrainedPermutations(search.placementConstraints(kind))
		search.feasible[kind] = lo.Map(permutations, func(permutation []uint64, _ int) uint64 {
			return search.indexer.Index(permutation[0], permutation[1], permutation[2])
		})
	}
	return search
}

// placementConstraints restricts (day, timeslot, room) triples to those a session of the kind may use.
// The extra room index stands for the fallback room and is only allowed when no room of the type exists.
func (search *geneticSearch) placementConstraints(kind SessionKind) []func(permutation []uint64) bool {
	roomType := roomTypeOf(kind)
	fallbackIndex := uint64(len(search.catalogue.Rooms))
	hasRooms := len(search.catalogue.RoomsOfType(roomType)) > 0

	return []func(permutation []uint64) bool{
		// Labs only on lab days
		func(permutation []uint64) bool {
			day := permutation[0]

			return day == math.MaxUint64 ||
				kind != SessionLab ||
				slices.Contains(search.constraints.LabDays, search.constraints.TeachingDays[day])
		},
		// Timeslot kind and day
		func(permutation []uint64) bool {
			day, timeslot := permutation[0], permutation[1]

			return day == math.MaxUint64 ||
				timeslot == math.MaxUint64 ||
				(search.catalogue.Timeslots[timeslot].Kind == kind && search.catalogue.Timeslots[timeslot].AppliesTo(search.constraints.TeachingDays[day]))
		},
		// Room type or fallback
		func(permutation []uint64) bool {
			room := permutation[2]

			if room == math.MaxUint64 {
				return true
			} else if room == fallbackIndex {
				return !hasRooms
			}
			return search.catalogue.Rooms[room].Type == roomType
		},
	}
}

//** Population

// seed encodes randomized constructions as the initial population.
func (search *geneticSearch) seed() []individual {
	population := make([]individual, 0, search.population)
	for range search.population {
		grid, _ := newConstructor(search.catalogue, search.constraints, search.rng, zap.NewNop()).Construct()
		population = append(population, search.evaluate(search.encode(grid)))
	}
	return population
}

func (search *geneticSearch) evolve(population []individual) []individual {
	slices.SortStableFunc(population, func(a, b individual) int { return b.fitness - a.fitness })

	next := make([]individual, 0, search.population)
	next = append(next, population[:min(eliteCount, len(population))]...)
	for len(next) < search.population {
		first, second := search.tournament(population), search.tournament(population)
		next = append(next, search.evaluate(search.mutate(search.crossover(first, second))))
	}
	return next
}

func (search *geneticSearch) tournament(population []individual) individual {
	best := population[search.rng.Intn(len(population))]
	for range tournamentSize - 1 {
		contender := population[search.rng.Intn(len(population))]
		if contender.fitness > best.fitness {
			best = contender
		}
	}
	return best
}

// crossover takes each gene from either parent with equal probability.
func (search *geneticSearch) crossover(first, second individual) []uint64 {
	genes := make([]uint64, len(first.genes))
	for i := range genes {
		if search.rng.Intn(2) == 0 {
			genes[i] = first.genes[i]
		} else {
			genes[i] = second.genes[i]
		}
	}
	return genes
}

// mutate re-samples each gene with probability 1/len(genes) from the demand's feasible placements.
func (search *geneticSearch) mutate(genes []uint64) []uint64 {
	for i := range genes {
		if search.rng.Intn(len(genes)) == 0 {
			genes[i] = search.sample(search.demands[i].kind)
		}
	}
	return genes
}

func (search *geneticSearch) sample(kind SessionKind) uint64 {
	feasible := search.feasible[kind]
	if len(feasible) == 0 {
		return math.MaxUint64
	}
	return feasible[search.rng.Intn(len(feasible))]
}

func (search *geneticSearch) evaluate(genes []uint64) individual {
	grid, skipped := search.decode(genes)
	violations := lo.CountBy(skipped, func(index int) bool { return genes[index] != math.MaxUint64 })
	return individual{
		genes:   genes,
		fitness: Score(grid) - unplacedPenalty*len(skipped) - violationPenalty*violations,
	}
}

//** Encoding

// encode maps a constructed grid onto genes; demands the construction missed get a random feasible placement.
func (search *geneticSearch) encode(grid WeeklyGrid) []uint64 {
	classes := grid.AllClasses()
	used := make(map[int]bool)

	return lo.Map(search.demands, func(demand demand, _ int) uint64 {
		session, ok := lo.Find(classes, func(session Session) bool {
			return !used[session.Id] && session.CourseId == demand.course.Id && session.Kind == demand.kind
		})
		if !ok {
			return search.sample(demand.kind)
		}
		used[session.Id] = true

		day := slices.Index(search.constraints.TeachingDays, session.Day)
		timeslot := slices.IndexFunc(search.catalogue.Timeslots, func(timeslot Timeslot) bool { return timeslot.Id == session.TimeslotId })
		room := slices.IndexFunc(search.catalogue.Rooms, func(room Room) bool { return room.Id == session.RoomId })
		if room < 0 {
			room = len(search.catalogue.Rooms)
		}
		return search.indexer.Index(uint64(day), uint64(timeslot), uint64(room))
	})
}

// decode builds the grid of an individual, skipping genes that break a hard rule, then moves classes out of rooms
// that do not fit them wherever a fitting room is left free. It returns the skipped demand indices.
func (search *geneticSearch) decode(genes []uint64) (WeeklyGrid, []int) {
	grid := NewWeeklyGrid(search.constraints.TeachingDays)
	skipped := make([]int, 0)

	for i, gene := range genes {
		demand := search.demands[i]
		if gene == math.MaxUint64 {
			skipped = append(skipped, i)
			continue
		}

		dayIndex, timeslotIndex, roomIndex := search.indexer.Attributes(gene)
		day, timeslot := search.constraints.TeachingDays[dayIndex], search.catalogue.Timeslots[timeslotIndex]

		span := timeslot.Span()
		if demand.kind == SessionLab {
			span = Span{Start: span.Start, End: span.Start + Clock(search.constraints.LabDurationHours*minutesPerHour)}
		}

		roomId, degraded := search.constraints.fallbackRoom(roomTypeOf(demand.kind)), true
		if roomIndex < uint64(len(search.catalogue.Rooms)) {
			room := search.catalogue.Rooms[roomIndex]
			roomId, degraded = room.Id, !search.evaluator.Fits(room, demand.course.Enrollment)
		}

		if !search.placeable(grid, demand, day, span, roomId) {
			skipped = append(skipped, i)
			continue
		}

		session := Session{
			Id:           i + 1,
			Kind:         demand.kind,
			CourseId:     demand.course.Id,
			Code:         demand.course.Code,
			Name:         demand.course.Name,
			FacultyId:    demand.course.FacultyId,
			Day:          day,
			TimeslotId:   timeslot.Id,
			Start:        span.Start,
			End:          span.End,
			RoomId:       roomId,
			Enrollment:   demand.course.Enrollment,
			Groups:       demand.course.Groups,
			DegradedRoom: degraded,
		}
		if demand.kind == SessionLab {
			session.Code = demand.course.Code + "-LAB"
			session.Name = demand.course.Name + " (Lab)"
		}
		grid.Add(session)
	}

	// Upgrades wait for the whole grid so no later gene loses the room it encodes
	upgradeRooms(&grid, search.catalogue, search.evaluator)
	return grid, skipped
}

func (search *geneticSearch) placeable(grid WeeklyGrid, demand demand, day Day, span Span, roomId string) bool {
	if !search.evaluator.RoomFree(grid, day, span, roomId) || !search.evaluator.DailyCapacityOk(grid, day) {
		return false
	}
	if demand.kind == SessionLab {
		return !search.evaluator.FacultyBusyOnDay(grid, day, demand.course.FacultyId) &&
			!search.evaluator.LabAlreadyScheduled(grid, demand.course.Id)
	}
	return search.evaluator.TeacherFree(grid, day, span, demand.course.FacultyId) &&
		!search.evaluator.CourseOnDay(grid, day, demand.course.Id)
}

// unplaced groups skipped demands per course and kind, in demand order.
func (search *geneticSearch) unplaced(skipped []int) []UnplacedCourse {
	keyOf := func(index int) string {
		return search.demands[index].course.Id + "/" + string(search.demands[index].kind)
	}
	groups := lo.GroupBy(skipped, keyOf)

	return lo.Map(lo.Uniq(lo.Map(skipped, func(index int, _ int) string { return keyOf(index) })), func(key string, _ int) UnplacedCourse {
		demand := search.demands[groups[key][0]]
		return UnplacedCourse{
			CourseId: demand.course.Id,
			Code:     demand.course.Code,
			Kind:     demand.kind,
			Missing:  len(groups[key]),
			Attempts: search.population * search.constraints.Generations,
			Reason:   fmt.Sprintf("no conflict-free %v placement in the fittest individual", demand.kind),
		}
	})
}

// expandDemands lists every theory session, then every lab block, in catalogue order.
func expandDemands(catalogue Catalogue) []demand {
	demands := make([]demand, 0)
	for _, course := range catalogue.Courses {
		for range course.TheorySessions() {
			demands = append(demands, demand{course: course, kind: SessionTheory})
		}
	}
	for _, course := range catalogue.Courses {
		if course.Type == LabCourse {
			demands = append(demands, demand{course: course, kind: SessionLab})
		}
	}
	return demands
}
