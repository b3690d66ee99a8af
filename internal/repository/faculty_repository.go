package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gradestats-sync/internal/models"
)

// FacultyRepository reads the faculty and department reference tables.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository constructs a FacultyRepository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

// ListFaculties returns all faculties.
func (r *FacultyRepository) ListFaculties(ctx context.Context) ([]models.Faculty, error) {
	const query = `SELECT id, nsd_code, norwegian_name, english_name, short_name FROM faculties ORDER BY nsd_code`
	var faculties []models.Faculty
	if err := r.db.SelectContext(ctx, &faculties, query); err != nil {
		return nil, fmt.Errorf("list faculties: %w", err)
	}
	return faculties, nil
}

// ListDepartments returns all departments.
func (r *FacultyRepository) ListDepartments(ctx context.Context) ([]models.Department, error) {
	const query = `SELECT id, nsd_code, faculty_id, norwegian_name, english_name, short_name FROM departments ORDER BY nsd_code`
	var departments []models.Department
	if err := r.db.SelectContext(ctx, &departments, query); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

// LoadOrgUnits reads both reference tables into a caller-owned view.
func (r *FacultyRepository) LoadOrgUnits(ctx context.Context) (models.OrgUnits, error) {
	faculties, err := r.ListFaculties(ctx)
	if err != nil {
		return models.OrgUnits{}, err
	}
	departments, err := r.ListDepartments(ctx)
	if err != nil {
		return models.OrgUnits{}, err
	}
	return models.OrgUnits{Faculties: faculties, Departments: departments}, nil
}
