package statsapi

import (
	"strconv"

	"github.com/noah-isme/gradestats-sync/internal/models"
)

// FilterType is the selection mode of a filter.
type FilterType string

const (
	FilterTop      FilterType = "top"
	FilterAll      FilterType = "all"
	FilterItem     FilterType = "item"
	FilterBetween  FilterType = "between"
	FilterLike     FilterType = "like"
	FilterLessThan FilterType = "lessthan"
)

// Upstream table identifiers.
const (
	TableGrades  = 308
	TableCourses = 208
)

// Upstream variable names.
const (
	FieldInstitution = "Institusjonskode"
	FieldDepartment  = "Avdelingskode"
	FieldCourseCode  = "Emnekode"
	FieldCourseName  = "Emnenavn"
	FieldYear        = "Årstall"
	FieldSemester    = "Semester"
	FieldStatus      = "Status"
	FieldGrade       = "Karakter"
	FieldCandidates  = "Antall kandidater totalt"
	FieldCredit      = "Studiepoeng"
	FieldLevelCode   = "Nivåkode"
	FieldTask        = "Oppgave (ny fra h2012)"
)

// Selection is the match part of a filter.
type Selection struct {
	Filter  FilterType `json:"filter"`
	Values  []string   `json:"values"`
	Exclude []string   `json:"exclude"`
}

// Filter restricts one variable of a table.
type Filter struct {
	Variable  string    `json:"variabel"`
	Selection Selection `json:"selection"`
}

// Query is the declarative document posted to the table endpoint.
type Query struct {
	TableID          int      `json:"tabell_id"`
	APIVersion       int      `json:"api_versjon"`
	StatusLine       string   `json:"statuslinje"`
	CodeText         string   `json:"kodetekst"`
	DecimalSeparator string   `json:"desimal_separator"`
	GroupBy          []string `json:"groupBy"`
	SortBy           []string `json:"sortBy"`
	Variables        []string `json:"variabler"`
	Filters          []Filter `json:"filter"`
	Limit            string   `json:"begrensning,omitempty"`
}

// NewFilter builds a filter. A nil exclude list becomes [""], which the API treats as "exclude nothing".
func NewFilter(variable string, filterType FilterType, values []string, exclude []string) Filter {
	if exclude == nil {
		exclude = []string{""}
	}
	if values == nil {
		values = []string{}
	}
	return Filter{
		Variable:  variable,
		Selection: Selection{Filter: filterType, Values: values, Exclude: exclude},
	}
}

// BuildQuery assembles a query; limit <= 0 means unlimited.
func BuildQuery(tableID int, groupBy, sortBy []string, filters []Filter, limit int) Query {
	if groupBy == nil {
		groupBy = []string{}
	}
	if sortBy == nil {
		sortBy = []string{}
	}
	q := Query{
		TableID:          tableID,
		APIVersion:       1,
		StatusLine:       "N",
		CodeText:         "J",
		DecimalSeparator: ".",
		GroupBy:          groupBy,
		SortBy:           sortBy,
		Variables:        []string{"*"},
		Filters:          filters,
	}
	if limit > 0 {
		q.Limit = strconv.Itoa(limit)
	}
	return q
}

// InstitutionFilter selects a single institution.
func InstitutionFilter(institutionID int) Filter {
	return NewFilter(FieldInstitution, FilterItem, []string{strconv.Itoa(institutionID)}, nil)
}

// CourseFilter matches every version of a course code, since upstream codes carry a "-N" suffix.
func CourseFilter(code string) Filter {
	return NewFilter(FieldCourseCode, FilterLike, []string{code + "-%"}, nil)
}

// YearFilter selects a single year.
func YearFilter(year int) Filter {
	return NewFilter(FieldYear, FilterItem, []string{strconv.Itoa(year)}, nil)
}

// SemesterFilter selects a single semester by its numeric code.
func SemesterFilter(semester models.Semester) Filter {
	return NewFilter(FieldSemester, FilterItem, []string{strconv.Itoa(semester.Code())}, nil)
}

// TaskFilter drops thesis style course entries from the course table.
func TaskFilter() Filter {
	return NewFilter(FieldTask, FilterAll, []string{"*"}, []string{"1", "2"})
}
