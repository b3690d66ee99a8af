package models

import "fmt"

// Semester identifies an exam sitting within a year.
type Semester string

const (
	SemesterSpring Semester = "SPRING"
	SemesterSummer Semester = "SUMMER"
	SemesterAutumn Semester = "AUTUMN"
)

// SemesterFromCode maps the statistics API's numeric semester codes.
func SemesterFromCode(code string) (Semester, error) {
	switch code {
	case "1":
		return SemesterSpring, nil
	case "2":
		return SemesterSummer, nil
	case "3":
		return SemesterAutumn, nil
	default:
		return "", fmt.Errorf("unknown semester code %q", code)
	}
}

// Code returns the statistics API code for the semester.
func (s Semester) Code() int {
	switch s {
	case SemesterSpring:
		return 1
	case SemesterSummer:
		return 2
	case SemesterAutumn:
		return 3
	default:
		return 0
	}
}

// Valid reports whether s is one of the known semesters.
func (s Semester) Valid() bool {
	return s.Code() != 0
}
