package model

import (
	"github.com/samber/lo"
)

// injectMarkers adds break markers over gaps longer than the minimum break and one lunch marker
// per day, leaving classes untouched. Existing markers are dropped first.
func injectMarkers(grid WeeklyGrid, constraints Constraints) WeeklyGrid {
	marked := NewWeeklyGrid(grid.Days)
	lunch := Span{Start: noon, End: noon + Clock(constraints.LunchDurationMinutes)}

	for _, day := range grid.Days {
		classes := grid.Classes(day)
		for _, class := range classes {
			marked.Add(class)
		}

		lunchFree := !lo.SomeBy(classes, func(class Session) bool { return class.Span().Overlaps(lunch) })

		//** Breaks
		var latestEnd Clock
		for i := 0; i < len(classes)-1; i++ {
			latestEnd = max(latestEnd, classes[i].End)
			gap := Span{Start: latestEnd, End: classes[i+1].Start}
			if gap.Minutes() <= constraints.MinBreakMinutes {
				continue
			}
			// A gap holding the lunch window is the lunch itself
			if lunchFree && gap.Contains(lunch) {
				continue
			}
			marked.Add(newMarker(SessionBreak, day, gap))
		}

		//** Lunch
		if lunchFree {
			marked.Add(newMarker(SessionLunch, day, lunch))
		}
	}

	return marked
}

func newMarker(kind SessionKind, day Day, span Span) Session {
	return Session{
		Kind:  kind,
		Day:   day,
		Start: span.Start,
		End:   span.End,
	}
}
