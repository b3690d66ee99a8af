package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gradestats-sync/internal/models"
)

const courseColumns = `id, code, norwegian_name, english_name, credit, study_level, taught_from, taught_to,
	taught_in_spring, taught_in_autumn, taught_in_english, content, learning_form, learning_goal,
	exam_type, grade_type, place, has_had_digital_exam, faculty_id, department_id,
	average, pass_rate, attendee_count, created_at, updated_at`

// CourseRepository manages persistence for catalog courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByCode fetches a course by its version-less code.
func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE code = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, code); err != nil {
		return nil, err
	}
	return &course, nil
}

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, code, norwegian_name, english_name, credit, study_level, taught_from, taught_to,
		taught_in_spring, taught_in_autumn, taught_in_english, content, learning_form, learning_goal,
		exam_type, grade_type, place, has_had_digital_exam, faculty_id, department_id, created_at, updated_at)
		VALUES (:id, :code, :norwegian_name, :english_name, :credit, :study_level, :taught_from, :taught_to,
		:taught_in_spring, :taught_in_autumn, :taught_in_english, :content, :learning_form, :learning_goal,
		:exam_type, :grade_type, :place, :has_had_digital_exam, :faculty_id, :department_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update rewrites the descriptive columns of an existing course. Stats are
// owned by UpdateStats.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET norwegian_name = :norwegian_name, english_name = :english_name, credit = :credit,
		study_level = :study_level, taught_from = :taught_from, taught_to = :taught_to,
		taught_in_spring = :taught_in_spring, taught_in_autumn = :taught_in_autumn, taught_in_english = :taught_in_english,
		content = :content, learning_form = :learning_form, learning_goal = :learning_goal,
		exam_type = :exam_type, grade_type = :grade_type, place = :place, has_had_digital_exam = :has_had_digital_exam,
		faculty_id = :faculty_id, department_id = :department_id, updated_at = :updated_at
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// UpdateStats stores freshly recomputed aggregate figures.
func (r *CourseRepository) UpdateStats(ctx context.Context, courseID string, stats models.CourseStats) error {
	const query = `UPDATE courses SET average = $2, pass_rate = $3, attendee_count = $4, updated_at = $5 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, courseID, stats.Average, stats.PassRate, stats.AttendeeCount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update course stats: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update course stats %s: %w", courseID, sql.ErrNoRows)
	}
	return nil
}
