package models

import "time"

// Grade is the persisted result of one exam sitting, unique per course, year and semester.
type Grade struct {
	ID           string    `db:"id" json:"id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	Year         int       `db:"year" json:"year"`
	Semester     Semester  `db:"semester" json:"semester"`
	A            int       `db:"a" json:"a"`
	B            int       `db:"b" json:"b"`
	C            int       `db:"c" json:"c"`
	D            int       `db:"d" json:"d"`
	E            int       `db:"e" json:"e"`
	F            int       `db:"f" json:"f"`
	Passed       int       `db:"passed" json:"passed"`
	AverageGrade float64   `db:"average_grade" json:"average_grade"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// AttendeeCount is the six letter counts plus the pass count.
func (g Grade) AttendeeCount() int {
	return g.A + g.B + g.C + g.D + g.E + g.F + g.Passed
}

// CourseStats holds the aggregate figures derived from a course's grades.
type CourseStats struct {
	Average       float64 `db:"average" json:"average"`
	PassRate      float64 `db:"pass_rate" json:"pass_rate"`
	AttendeeCount int     `db:"attendee_count" json:"attendee_count"`
}
