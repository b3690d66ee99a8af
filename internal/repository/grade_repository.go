package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gradestats-sync/internal/models"
)

const upsertGradeQuery = `INSERT INTO grades (id, course_id, year, semester, a, b, c, d, e, f, passed, average_grade, created_at, updated_at)
	VALUES (:id, :course_id, :year, :semester, :a, :b, :c, :d, :e, :f, :passed, :average_grade, :created_at, :updated_at)
	ON CONFLICT (course_id, year, semester)
	DO UPDATE SET a = EXCLUDED.a, b = EXCLUDED.b, c = EXCLUDED.c, d = EXCLUDED.d, e = EXCLUDED.e, f = EXCLUDED.f,
		passed = EXCLUDED.passed, average_grade = EXCLUDED.average_grade, updated_at = EXCLUDED.updated_at`

// GradeRepository handles per-sitting grade persistence.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// ListByCourse returns every stored sitting of a course.
func (r *GradeRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Grade, error) {
	const query = `SELECT id, course_id, year, semester, a, b, c, d, e, f, passed, average_grade, created_at, updated_at
		FROM grades WHERE course_id = $1 ORDER BY year, semester`
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, courseID); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

// Upsert inserts or updates a grade keyed by course, year and semester.
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.Grade) error {
	stampGrade(grade)
	if _, err := r.db.NamedExecContext(ctx, upsertGradeQuery, grade); err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	return nil
}

// BulkUpsert writes multiple grades in a single transaction.
func (r *GradeRepository) BulkUpsert(ctx context.Context, grades []models.Grade) error {
	if len(grades) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	for i := range grades {
		stampGrade(&grades[i])
		if _, err := tx.NamedExecContext(ctx, upsertGradeQuery, grades[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("bulk upsert grade: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit grades: %w", err)
	}
	return nil
}

func stampGrade(grade *models.Grade) {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	grade.UpdatedAt = now
}
