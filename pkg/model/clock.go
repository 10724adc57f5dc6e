package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Clock is a time of day in minutes since midnight.
type Clock int

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour
	noon           = Clock(12 * minutesPerHour)
)

// ParseClock parses a "HH:MM" string.
func ParseClock(value string) (Clock, error) {
	hours, minutes, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok || len(minutes) != 2 || len(hours) == 0 || len(hours) > 2 {
		return 0, fmt.Errorf("malformed clock %q: expected HH:MM", value)
	}

	h, err := strconv.Atoi(hours)
	if err != nil {
		return 0, fmt.Errorf("malformed clock %q: %w", value, err)
	}
	m, err := strconv.Atoi(minutes)
	if err != nil {
		return 0, fmt.Errorf("malformed clock %q: %w", value, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock %q out of range", value)
	}

	return Clock(h*minutesPerHour + m), nil
}

func (clock Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(clock)/minutesPerHour, int(clock)%minutesPerHour)
}

func (clock Clock) MarshalText() ([]byte, error) {
	return []byte(clock.String()), nil
}

func (clock *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*clock = parsed
	return nil
}

// Span is a half-open interval [Start, End).
type Span struct {
	Start Clock
	End   Clock
}

func (span Span) Overlaps(other Span) bool {
	return span.Start < other.End && other.Start < span.End
}

func (span Span) Contains(other Span) bool {
	return span.Start <= other.Start && other.End <= span.End
}

func (span Span) Minutes() int {
	return int(span.End - span.Start)
}
