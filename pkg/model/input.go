package model

import (
	"encoding/json"
	"errors"
	"os"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

const defaultEnrollment = 60

type CourseType string

const (
	TheoryCourse CourseType = "theory"
	LabCourse    CourseType = "lab"
)

type RoomType string

const (
	Classroom RoomType = "classroom"
	LabRoom   RoomType = "lab"
)

type Course struct {
	Id         string     `json:"id" validate:"required"`
	Name       string     `json:"name" validate:"required"`
	Code       string     `json:"code" validate:"required"`
	Type       CourseType `json:"type" validate:"required,oneof=theory lab"`
	Credits    int        `json:"credits" validate:"gte=0"`
	LabCredits int        `json:"labCredits" validate:"gte=0"`
	FacultyId  string     `json:"facultyId" validate:"required"`
	Enrollment int        `json:"enrollment" validate:"gte=0"`
	Groups     []string   `json:"groups"`
}

// TheorySessions is the weekly number of theory sessions the course needs.
func (course Course) TheorySessions() int {
	if course.Type != TheoryCourse {
		return 0
	}
	return max(1, course.Credits)
}

type Faculty struct {
	Id   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

type Room struct {
	Id       string   `json:"id" validate:"required"`
	Name     string   `json:"name"`
	Type     RoomType `json:"type" validate:"required,oneof=classroom lab"`
	Capacity int      `json:"capacity" validate:"gte=0"`
}

type Timeslot struct {
	Id    string      `json:"id" validate:"required"`
	Order int         `json:"order"`
	Day   Day         `json:"day" validate:"omitempty,weekday"` // Empty applies to every day
	Start string      `json:"start" validate:"required,clock"`
	End   string      `json:"end" validate:"required,clock"`
	Kind  SessionKind `json:"kind" validate:"required,oneof=theory lab break lunch"`
}

// Span assumes a normalized timeslot.
func (timeslot Timeslot) Span() Span {
	return Span{
		Start: lo.Must(ParseClock(timeslot.Start)),
		End:   lo.Must(ParseClock(timeslot.End)),
	}
}

func (timeslot Timeslot) AppliesTo(day Day) bool {
	return timeslot.Day == "" || timeslot.Day == day
}

type Catalogue struct {
	Courses   []Course   `json:"courses" validate:"dive"`
	Faculty   []Faculty  `json:"faculty" validate:"dive"`
	Rooms     []Room     `json:"rooms" validate:"dive"`
	Timeslots []Timeslot `json:"timeslots" validate:"dive"`
}

var catalogueValidator = newCatalogueValidator()

func newCatalogueValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	lo.Must0(validate.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := ParseClock(fl.Field().String())
		return err == nil
	}))
	lo.Must0(validate.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		_, ok := ParseDay(fl.Field().String())
		return ok
	}))
	return validate
}

func CatalogueFromJson(file string) (Catalogue, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return Catalogue{}, wrapConfigurationError(err, CodeUnreadableInput, "", "cannot read catalogue file")
	}

	var catalogueJson map[string]any
	if err := json.Unmarshal(bytes, &catalogueJson); err != nil {
		return Catalogue{}, wrapConfigurationError(err, CodeUnreadableInput, "", "cannot parse catalogue json")
	}

	return CatalogueFromMap(catalogueJson)
}

// CatalogueFromMap decodes a generic document (as produced by encoding/json or viper) into a normalized catalogue.
func CatalogueFromMap(raw map[string]any) (Catalogue, error) {
	var catalogue Catalogue
	if err := mapstructure.Decode(raw, &catalogue); err != nil {
		return Catalogue{}, wrapConfigurationError(err, CodeInvalidCatalogue, "", "cannot decode catalogue")
	}
	return NormalizeCatalogue(catalogue)
}

// NormalizeCatalogue validates the catalogue and returns a copy with canonical days and default enrollments.
func NormalizeCatalogue(catalogue Catalogue) (Catalogue, error) {
	//** Non-empty collections
	if len(catalogue.Rooms) == 0 {
		return Catalogue{}, newConfigurationError(CodeEmptyCollection, "rooms", "at least one room is required")
	} else if len(catalogue.Timeslots) == 0 {
		return Catalogue{}, newConfigurationError(CodeEmptyCollection, "timeslots", "at least one timeslot is required")
	}

	//** Field level validation
	if err := catalogueValidator.Struct(catalogue); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			fieldError := validationErrors[0]
			return Catalogue{}, wrapConfigurationError(err, CodeInvalidCatalogue, fieldError.Namespace(), "failed on the \""+fieldError.Tag()+"\" rule")
		}
		return Catalogue{}, wrapConfigurationError(err, CodeInvalidCatalogue, "", "invalid catalogue")
	}

	//** Unique ids
	duplicates := map[string][]string{
		"courses":   lo.FindDuplicates(lo.Map(catalogue.Courses, func(course Course, _ int) string { return course.Id })),
		"faculty":   lo.FindDuplicates(lo.Map(catalogue.Faculty, func(faculty Faculty, _ int) string { return faculty.Id })),
		"rooms":     lo.FindDuplicates(lo.Map(catalogue.Rooms, func(room Room, _ int) string { return room.Id })),
		"timeslots": lo.FindDuplicates(lo.Map(catalogue.Timeslots, func(timeslot Timeslot, _ int) string { return timeslot.Id })),
	}
	for _, collection := range []string{"courses", "faculty", "rooms", "timeslots"} {
		if len(duplicates[collection]) > 0 {
			return Catalogue{}, newConfigurationError(CodeDuplicateId, collection, "duplicate id %q", duplicates[collection][0])
		}
	}

	normalized := Catalogue{
		Faculty: slices.Clone(catalogue.Faculty),
		Rooms:   slices.Clone(catalogue.Rooms),
	}

	//** Courses
	facultyIds := lo.Map(catalogue.Faculty, func(faculty Faculty, _ int) string { return faculty.Id })
	for _, course := range catalogue.Courses {
		if !slices.Contains(facultyIds, course.FacultyId) {
			return Catalogue{}, newConfigurationError(CodeUnknownReference, "courses."+course.Id+".facultyId", "unknown faculty %q", course.FacultyId)
		}
		if course.Enrollment == 0 {
			course.Enrollment = defaultEnrollment
		}
		course.Groups = slices.Clone(course.Groups)
		normalized.Courses = append(normalized.Courses, course)
	}

	//** Timeslots
	for _, timeslot := range catalogue.Timeslots {
		if timeslot.Day != "" {
			timeslot.Day, _ = ParseDay(string(timeslot.Day))
		}
		if span := timeslot.Span(); span.Start >= span.End {
			return Catalogue{}, newConfigurationError(CodeInvalidTimeslot, "timeslots."+timeslot.Id, "start %v must precede end %v", span.Start, span.End)
		}
		normalized.Timeslots = append(normalized.Timeslots, timeslot)
	}
	slices.SortStableFunc(normalized.Timeslots, func(a, b Timeslot) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return int(a.Span().Start - b.Span().Start)
	})

	return normalized, nil
}

func (catalogue Catalogue) Course(id string) (Course, bool) {
	return lo.Find(catalogue.Courses, func(course Course) bool { return course.Id == id })
}

func (catalogue Catalogue) Room(id string) (Room, bool) {
	return lo.Find(catalogue.Rooms, func(room Room) bool { return room.Id == id })
}

func (catalogue Catalogue) RoomsOfType(roomType RoomType) []Room {
	return lo.Filter(catalogue.Rooms, func(room Room, _ int) bool { return room.Type == roomType })
}

// TimeslotsFor returns the timeslots of the given kind usable on a day.
func (catalogue Catalogue) TimeslotsFor(day Day, kind SessionKind) []Timeslot {
	return lo.Filter(catalogue.Timeslots, func(timeslot Timeslot, _ int) bool {
		return timeslot.Kind == kind && timeslot.AppliesTo(day)
	})
}
