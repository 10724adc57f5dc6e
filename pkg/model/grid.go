package model

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

type Day string

const (
	Monday    Day = "Monday"
	Tuesday   Day = "Tuesday"
	Wednesday Day = "Wednesday"
	Thursday  Day = "Thursday"
	Friday    Day = "Friday"
	Saturday  Day = "Saturday"
	Sunday    Day = "Sunday"
)

var Weekdays = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ParseDay resolves a weekday name case-insensitively.
func ParseDay(value string) (Day, bool) {
	return lo.Find(Weekdays, func(day Day) bool {
		return strings.EqualFold(string(day), strings.TrimSpace(value))
	})
}

func (day Day) order() int {
	return slices.Index(Weekdays, day)
}

type SessionKind string

const (
	SessionTheory SessionKind = "theory"
	SessionLab    SessionKind = "lab"
	SessionBreak  SessionKind = "break"
	SessionLunch  SessionKind = "lunch"
)

// IsMarker reports whether the kind is a break or lunch marker rather than a class.
func (kind SessionKind) IsMarker() bool {
	return kind == SessionBreak || kind == SessionLunch
}

// Session is one entry of the weekly grid. Markers carry no course, faculty or room.
type Session struct {
	Id           int         `json:"id"`
	Kind         SessionKind `json:"kind"`
	CourseId     string      `json:"courseId,omitempty"`
	Code         string      `json:"code,omitempty"`
	Name         string      `json:"name,omitempty"`
	FacultyId    string      `json:"facultyId,omitempty"`
	Day          Day         `json:"day"`
	TimeslotId   string      `json:"timeslotId,omitempty"`
	Start        Clock       `json:"start"`
	End          Clock       `json:"end"`
	RoomId       string      `json:"roomId,omitempty"`
	Enrollment   int         `json:"enrollment,omitempty"`
	Groups       []string    `json:"groups,omitempty"`
	DegradedRoom bool        `json:"degradedRoom,omitempty"`
}

func (session Session) Span() Span {
	return Span{Start: session.Start, End: session.End}
}

func (session Session) IsClass() bool {
	return !session.Kind.IsMarker()
}

// WeeklyGrid holds, per teaching day, its sessions ordered by start time.
type WeeklyGrid struct {
	Days     []Day             `json:"days"`
	Sessions map[Day][]Session `json:"sessions"`
}

func NewWeeklyGrid(days []Day) WeeklyGrid {
	grid := WeeklyGrid{
		Days:     slices.Clone(days),
		Sessions: make(map[Day][]Session, len(days)),
	}
	for _, day := range days {
		grid.Sessions[day] = []Session{}
	}
	return grid
}

// Clone returns a deep copy of the grid.
func (grid WeeklyGrid) Clone() WeeklyGrid {
	clone := WeeklyGrid{
		Days:     slices.Clone(grid.Days),
		Sessions: make(map[Day][]Session, len(grid.Sessions)),
	}
	for day, sessions := range grid.Sessions {
		clone.Sessions[day] = lo.Map(sessions, func(session Session, _ int) Session {
			session.Groups = slices.Clone(session.Groups)
			return session
		})
	}
	return clone
}

// Classes returns the theory and lab sessions of a day.
func (grid WeeklyGrid) Classes(day Day) []Session {
	return lo.Filter(grid.Sessions[day], func(session Session, _ int) bool { return session.IsClass() })
}

func (grid WeeklyGrid) ClassCount(day Day) int {
	return lo.CountBy(grid.Sessions[day], func(session Session) bool { return session.IsClass() })
}

// AllClasses returns every theory and lab session in day order.
func (grid WeeklyGrid) AllClasses() []Session {
	classes := make([]Session, 0)
	for _, day := range grid.Days {
		classes = append(classes, grid.Classes(day)...)
	}
	return classes
}

// Find looks a class up by its id.
func (grid WeeklyGrid) Find(id int) (Session, bool) {
	for _, day := range grid.Days {
		if session, ok := lo.Find(grid.Sessions[day], func(session Session) bool {
			return session.IsClass() && session.Id == id
		}); ok {
			return session, true
		}
	}
	return Session{}, false
}

// Add inserts the session into its day keeping start order; equal starts keep insertion order.
func (grid *WeeklyGrid) Add(session Session) {
	if grid.Sessions == nil {
		grid.Sessions = make(map[Day][]Session)
	}
	if !slices.Contains(grid.Days, session.Day) {
		grid.Days = append(grid.Days, session.Day)
		slices.SortStableFunc(grid.Days, func(a, b Day) int { return a.order() - b.order() })
	}

	sessions := grid.Sessions[session.Day]
	position, _ := slices.BinarySearchFunc(sessions, session, func(existing, target Session) int {
		if existing.Start <= target.Start {
			return -1
		}
		return 1
	})
	grid.Sessions[session.Day] = slices.Insert(sessions, position, session)
}

// Remove deletes the class with the given id and returns it.
func (grid *WeeklyGrid) Remove(id int) (Session, bool) {
	for _, day := range grid.Days {
		sessions := grid.Sessions[day]
		index := slices.IndexFunc(sessions, func(session Session) bool {
			return session.IsClass() && session.Id == id
		})
		if index >= 0 {
			removed := sessions[index]
			grid.Sessions[day] = slices.Delete(sessions, index, index+1)
			return removed, true
		}
	}
	return Session{}, false
}

// Move relocates a class, re-sorting both affected days.
func (grid *WeeklyGrid) Move(id int, update func(session *Session)) bool {
	session, ok := grid.Remove(id)
	if !ok {
		return false
	}
	update(&session)
	grid.Add(session)
	return true
}

// DayLoads counts classes per teaching day.
func (grid WeeklyGrid) DayLoads() map[Day]int {
	return lo.SliceToMap(grid.Days, func(day Day) (Day, int) { return day, grid.ClassCount(day) })
}
