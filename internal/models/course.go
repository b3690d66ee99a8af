package models

import "time"

// Course is a catalog entry keyed by its version-less code.
type Course struct {
	ID                string    `db:"id" json:"id"`
	Code              string    `db:"code" json:"code"`
	NorwegianName     string    `db:"norwegian_name" json:"norwegian_name"`
	EnglishName       string    `db:"english_name" json:"english_name"`
	Credit            float64   `db:"credit" json:"credit"`
	StudyLevel        int       `db:"study_level" json:"study_level"`
	TaughtFrom        int       `db:"taught_from" json:"taught_from"`
	TaughtTo          int       `db:"taught_to" json:"taught_to"`
	TaughtInSpring    bool      `db:"taught_in_spring" json:"taught_in_spring"`
	TaughtInAutumn    bool      `db:"taught_in_autumn" json:"taught_in_autumn"`
	TaughtInEnglish   bool      `db:"taught_in_english" json:"taught_in_english"`
	Content           string    `db:"content" json:"content"`
	LearningForm      string    `db:"learning_form" json:"learning_form"`
	LearningGoal      string    `db:"learning_goal" json:"learning_goal"`
	ExamType          string    `db:"exam_type" json:"exam_type"`
	GradeType         string    `db:"grade_type" json:"grade_type"`
	Place             string    `db:"place" json:"place"`
	HasHadDigitalExam bool      `db:"has_had_digital_exam" json:"has_had_digital_exam"`
	FacultyID         *string   `db:"faculty_id" json:"faculty_id,omitempty"`
	DepartmentID      *string   `db:"department_id" json:"department_id,omitempty"`
	Average           float64   `db:"average" json:"average"`
	PassRate          float64   `db:"pass_rate" json:"pass_rate"`
	AttendeeCount     int       `db:"attendee_count" json:"attendee_count"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// CourseData is the resolved descriptive payload written on every sync pass.
// Nil teaching years and references leave stored values untouched.
type CourseData struct {
	Code              string
	NorwegianName     string
	EnglishName       string
	Credit            float64
	StudyLevel        int
	TaughtFrom        *int
	TaughtTo          *int
	TaughtInSpring    bool
	TaughtInAutumn    bool
	TaughtInEnglish   bool
	Content           string
	LearningForm      string
	LearningGoal      string
	ExamType          string
	GradeType         string
	Place             string
	HasHadDigitalExam bool
	FacultyID         *string
	DepartmentID      *string
}

// CourseSnapshot is the descriptive record scraped from a course page.
type CourseSnapshot struct {
	Code              string  `json:"code"`
	Year              int     `json:"year,omitempty"`
	NorwegianName     string  `json:"norwegian_name"`
	EnglishName       string  `json:"english_name"`
	Credit            float64 `json:"credit"`
	StudyLevel        int     `json:"study_level"`
	TaughtInSpring    bool    `json:"taught_in_spring"`
	TaughtInAutumn    bool    `json:"taught_in_autumn"`
	TaughtInEnglish   bool    `json:"taught_in_english"`
	Content           string  `json:"content"`
	LearningForm      string  `json:"learning_form"`
	LearningGoal      string  `json:"learning_goal"`
	ExamType          string  `json:"exam_type"`
	GradeType         string  `json:"grade_type"`
	Place             string  `json:"place"`
	HasHadDigitalExam bool    `json:"has_had_digital_exam"`
}

// ToCourseData lifts a snapshot into the write payload.
func (s CourseSnapshot) ToCourseData() CourseData {
	return CourseData{
		Code:              s.Code,
		NorwegianName:     s.NorwegianName,
		EnglishName:       s.EnglishName,
		Credit:            s.Credit,
		StudyLevel:        s.StudyLevel,
		TaughtInSpring:    s.TaughtInSpring,
		TaughtInAutumn:    s.TaughtInAutumn,
		TaughtInEnglish:   s.TaughtInEnglish,
		Content:           s.Content,
		LearningForm:      s.LearningForm,
		LearningGoal:      s.LearningGoal,
		ExamType:          s.ExamType,
		GradeType:         s.GradeType,
		Place:             s.Place,
		HasHadDigitalExam: s.HasHadDigitalExam,
	}
}
