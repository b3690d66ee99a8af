package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/gradestats-sync/internal/external/statsapi"
	"github.com/noah-isme/gradestats-sync/internal/models"
	appErrors "github.com/noah-isme/gradestats-sync/pkg/errors"
)

type gradeRepo interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Grade, error)
	Upsert(ctx context.Context, grade *models.Grade) error
	BulkUpsert(ctx context.Context, grades []models.Grade) error
}

type sittingSource interface {
	GradesForSemester(ctx context.Context, code string, year int, semester models.Semester) ([]statsapi.RawRow, error)
}

type courseStatsWriter interface {
	UpdateStats(ctx context.Context, courseID string, stats models.CourseStats) error
}

type gradeNormalizer interface {
	Normalize(ctx context.Context, code string, year int, semester models.Semester, rows []statsapi.RawRow) (models.GradeData, error)
	NormalizeCourse(ctx context.Context, code string, rows []statsapi.RawRow) (string, []models.GradeData, error)
}

type conflictResolver interface {
	Resolve(existing []models.Grade, candidates []models.GradeData) (admitted, rejected []models.GradeData)
}

// GradeSyncResult counts what happened to a course's grade records.
type GradeSyncResult struct {
	Written  int
	Rejected int
	Empty    int
	Stats    *models.CourseStats
}

// GradeService normalizes, reconciles and stores grades, then refreshes the
// course statistics.
type GradeService struct {
	sittings   sittingSource
	normalizer gradeNormalizer
	resolver   conflictResolver
	grades     gradeRepo
	courses    courseStatsWriter
	logger     *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(sittings sittingSource, normalizer gradeNormalizer, resolver conflictResolver, grades gradeRepo, courses courseStatsWriter, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{sittings: sittings, normalizer: normalizer, resolver: resolver, grades: grades, courses: courses, logger: logger}
}

// SyncCourseGrades writes the admitted grade records of one course.
func (s *GradeService) SyncCourseGrades(ctx context.Context, code string, rows []statsapi.RawRow) (GradeSyncResult, error) {
	var result GradeSyncResult

	courseID, records, err := s.normalizer.NormalizeCourse(ctx, code, rows)
	if err != nil {
		return result, err
	}

	candidates := make([]models.GradeData, 0, len(records))
	for _, record := range records {
		if record.IsEmpty() {
			result.Empty++
			continue
		}
		candidates = append(candidates, record)
	}
	if len(candidates) == 0 {
		s.logger.Debug("course has no grades", zap.String("course", code))
		return result, nil
	}

	existing, err := s.grades.ListByCourse(ctx, courseID)
	if err != nil {
		return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}

	admitted, rejected := s.resolver.Resolve(existing, candidates)
	result.Rejected = len(rejected)
	if len(admitted) == 0 {
		return result, nil
	}

	grades := make([]models.Grade, 0, len(admitted))
	for _, record := range admitted {
		grades = append(grades, record.ToGrade())
	}
	if err := s.grades.BulkUpsert(ctx, grades); err != nil {
		return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store grades")
	}
	result.Written = len(grades)

	stats, err := s.RefreshStats(ctx, courseID)
	if err != nil {
		return result, err
	}
	result.Stats = &stats
	return result, nil
}

// SyncSemester fetches and writes the grade record of one sitting. The course
// must already exist.
func (s *GradeService) SyncSemester(ctx context.Context, code string, year int, semester models.Semester) (GradeSyncResult, error) {
	var result GradeSyncResult
	if !semester.Valid() {
		return result, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown semester %q", semester))
	}
	log := s.logger.With(zap.String("course", code), zap.Int("year", year), zap.String("semester", string(semester)))

	rows, err := s.sittings.GradesForSemester(ctx, code, year, semester)
	if err != nil {
		return result, appErrors.Cause(appErrors.ErrUpstreamUnavailable, "failed to fetch grades", err)
	}
	if len(rows) == 0 {
		log.Info("sitting has no grades")
		return result, nil
	}

	record, err := s.normalizer.Normalize(ctx, code, year, semester, rows)
	if err != nil {
		return result, err
	}
	if record.IsEmpty() {
		result.Empty++
		log.Info("sitting has no candidates")
		return result, nil
	}

	existing, err := s.grades.ListByCourse(ctx, record.CourseID)
	if err != nil {
		return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}
	admitted, rejected := s.resolver.Resolve(existing, []models.GradeData{record})
	result.Rejected = len(rejected)
	if len(admitted) == 0 {
		log.Info("sitting already represented by legacy data")
		return result, nil
	}

	grade := admitted[0].ToGrade()
	if err := s.grades.Upsert(ctx, &grade); err != nil {
		return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store grade")
	}
	result.Written = 1

	stats, err := s.RefreshStats(ctx, record.CourseID)
	if err != nil {
		return result, err
	}
	result.Stats = &stats
	return result, nil
}

// RefreshStats recomputes the course statistics from every stored grade.
func (s *GradeService) RefreshStats(ctx context.Context, courseID string) (models.CourseStats, error) {
	grades, err := s.grades.ListByCourse(ctx, courseID)
	if err != nil {
		return models.CourseStats{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}
	stats := AggregateStats(grades)
	if err := s.courses.UpdateStats(ctx, courseID, stats); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return stats, appErrors.Cause(appErrors.ErrCourseNotFound, fmt.Sprintf("course %s does not exist", courseID), err)
		}
		return stats, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course stats")
	}
	return stats, nil
}
