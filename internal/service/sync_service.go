package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gradestats-sync/internal/external/statsapi"
	"github.com/noah-isme/gradestats-sync/internal/models"
	appErrors "github.com/noah-isme/gradestats-sync/pkg/errors"
	"github.com/noah-isme/gradestats-sync/pkg/logger"
)

var courseCodePattern = regexp.MustCompile(`^[a-zA-Z0-9-_\sæøå]+$`)

// ValidateCourseCode rejects codes with characters outside the accepted alphabet.
func ValidateCourseCode(code string) error {
	if !courseCodePattern.MatchString(code) {
		return appErrors.Clone(appErrors.ErrInvalidCourseCode, fmt.Sprintf("course code %q has invalid characters", code))
	}
	return nil
}

type statsSource interface {
	AllGrades(ctx context.Context) ([]statsapi.RawRow, error)
	AllCourses(ctx context.Context) ([]statsapi.RawRow, error)
	GradesForCourse(ctx context.Context, code string) ([]statsapi.RawRow, error)
	Course(ctx context.Context, code string) ([]statsapi.RawRow, error)
}

type orgUnitLoader interface {
	LoadOrgUnits(ctx context.Context) (models.OrgUnits, error)
}

type courseSyncer interface {
	BuildCourseData(ctx context.Context, code string, courseRows, gradeRows []statsapi.RawRow, units models.OrgUnits) (*models.CourseData, error)
	CreateOrUpdate(ctx context.Context, data models.CourseData) (*models.Course, error)
}

type gradeSyncer interface {
	SyncCourseGrades(ctx context.Context, code string, rows []statsapi.RawRow) (GradeSyncResult, error)
	SyncSemester(ctx context.Context, code string, year int, semester models.Semester) (GradeSyncResult, error)
}

// SyncService walks courses sequentially and syncs each one. A failing course
// is logged and recorded in the report; the run carries on.
type SyncService struct {
	source   statsSource
	orgUnits orgUnitLoader
	courses  courseSyncer
	grades   gradeSyncer
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewSyncService constructs SyncService.
func NewSyncService(source statsSource, orgUnits orgUnitLoader, courses courseSyncer, grades gradeSyncer, metrics *MetricsService, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		source:   source,
		orgUnits: orgUnits,
		courses:  courses,
		grades:   grades,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// RunAll syncs every course that has grade rows at the institution.
func (s *SyncService) RunAll(ctx context.Context, runID string) (*models.SyncReport, error) {
	report := s.newReport(runID, models.SyncScopeAll)
	log := s.logger.With(zap.String("run_id", runID))

	units, err := s.orgUnits.LoadOrgUnits(ctx)
	if err != nil {
		return s.finish(report, models.SyncStatusFailed), appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculties and departments")
	}

	gradeRows, err := s.source.AllGrades(ctx)
	if err != nil {
		return s.finish(report, models.SyncStatusFailed), appErrors.Cause(appErrors.ErrUpstreamUnavailable, "failed to fetch grades", err)
	}
	courseRows, err := s.source.AllCourses(ctx)
	if err != nil {
		log.Warn("course table unavailable, falling back to per-course lookups", zap.Error(err))
		courseRows = nil
	}
	coursesByCode := make(map[string][]statsapi.RawRow)
	for _, row := range courseRows {
		code := row.CourseCode()
		coursesByCode[code] = append(coursesByCode[code], row)
	}

	rawCodes, gradesByCode := statsapi.GroupByCourse(gradeRows)
	log.Info("sync run started", zap.Int("courses", len(rawCodes)), zap.Int("grade_rows", len(gradeRows)))

	for _, rawCode := range rawCodes {
		if err := ctx.Err(); err != nil {
			return s.finish(report, models.SyncStatusCancelled), err
		}
		if err := ValidateCourseCode(rawCode); err != nil {
			log.Warn("skipping course with invalid code", zap.String("course", rawCode))
			s.skip(report, rawCode, err.Error())
			continue
		}
		code := statsapi.StripVersion(rawCode)
		s.syncCourse(ctx, report, code, coursesByCode[code], gradesByCode[rawCode], units)
	}

	return s.finish(report, models.SyncStatusCompleted), nil
}

// RunCourse syncs a single course by its version-less code.
func (s *SyncService) RunCourse(ctx context.Context, runID, code string) (*models.SyncReport, error) {
	if err := ValidateCourseCode(code); err != nil {
		return nil, err
	}
	report := s.newReport(runID, code)

	units, err := s.orgUnits.LoadOrgUnits(ctx)
	if err != nil {
		return s.finish(report, models.SyncStatusFailed), appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculties and departments")
	}
	s.syncCourse(ctx, report, code, nil, nil, units)
	return s.finish(report, models.SyncStatusCompleted), nil
}

// SittingScope names the report scope of a single sitting run.
func SittingScope(code string, year int, semester models.Semester) string {
	return fmt.Sprintf("%s/%d/%s", code, year, semester)
}

// RunSitting refreshes the grade record of one sitting of an existing course.
// Course data is left untouched. An unreachable statistics API fails the run.
func (s *SyncService) RunSitting(ctx context.Context, runID, code string, year int, semester models.Semester) (*models.SyncReport, error) {
	if err := ValidateCourseCode(code); err != nil {
		return nil, err
	}
	report := s.newReport(runID, SittingScope(code, year, semester))
	log := logger.ForCourse(s.logger, runID, code).With(zap.Int("year", year), zap.String("semester", string(semester)))

	result, err := s.grades.SyncSemester(ctx, code, year, semester)
	report.GradesWritten += result.Written
	report.GradesRejected += result.Rejected
	s.metrics.ObserveGradeRecords(result.Written, result.Rejected)
	if err != nil {
		s.fail(report, log, code, err)
		if errors.Is(err, appErrors.ErrUpstreamUnavailable) {
			return s.finish(report, models.SyncStatusFailed), err
		}
		return s.finish(report, models.SyncStatusCompleted), nil
	}

	report.Processed++
	s.metrics.ObserveCourseSync(OutcomeSynced)
	log.Info("sitting synced", zap.Int("written", result.Written), zap.Int("rejected", result.Rejected))
	return s.finish(report, models.SyncStatusCompleted), nil
}

func (s *SyncService) syncCourse(ctx context.Context, report *models.SyncReport, code string, courseRows, gradeRows []statsapi.RawRow, units models.OrgUnits) {
	log := logger.ForCourse(s.logger, report.RunID, code)
	log.Info("syncing course")

	if len(courseRows) == 0 {
		courseRows = s.fetchRows(ctx, log, "course rows", code, s.source.Course)
	}
	if len(gradeRows) == 0 {
		gradeRows = s.fetchRows(ctx, log, "grade rows", code, s.source.GradesForCourse)
	}
	statsapi.SortByYearSemester(courseRows)

	data, err := s.courses.BuildCourseData(ctx, code, courseRows, gradeRows, units)
	if err != nil {
		s.fail(report, log, code, err)
		return
	}
	if data == nil {
		log.Info("skipping course without data")
		s.skip(report, code, "no course data")
		return
	}
	if _, err := s.courses.CreateOrUpdate(ctx, *data); err != nil {
		s.fail(report, log, code, err)
		return
	}

	result, err := s.grades.SyncCourseGrades(ctx, code, gradeRows)
	report.GradesWritten += result.Written
	report.GradesRejected += result.Rejected
	s.metrics.ObserveGradeRecords(result.Written, result.Rejected)
	if err != nil {
		s.fail(report, log, code, err)
		return
	}

	report.Processed++
	s.metrics.ObserveCourseSync(OutcomeSynced)
	log.Info("course synced", zap.Int("written", result.Written), zap.Int("rejected", result.Rejected), zap.Int("empty", result.Empty))
}

// fetchRows degrades collaborator failures to "no rows".
func (s *SyncService) fetchRows(ctx context.Context, log *zap.Logger, what, code string, fetch func(context.Context, string) ([]statsapi.RawRow, error)) []statsapi.RawRow {
	rows, err := fetch(ctx, code)
	if err != nil {
		log.Warn("statistics lookup failed", zap.String("lookup", what), zap.Error(err))
		return nil
	}
	return rows
}

func (s *SyncService) skip(report *models.SyncReport, code, reason string) {
	report.Skipped++
	report.Failures = append(report.Failures, models.SyncFailure{Code: code, Reason: reason})
	s.metrics.ObserveCourseSync(OutcomeSkipped)
}

func (s *SyncService) fail(report *models.SyncReport, log *zap.Logger, code string, err error) {
	report.Failed++
	report.Failures = append(report.Failures, models.SyncFailure{Code: code, Reason: err.Error()})
	s.metrics.ObserveCourseSync(OutcomeFailed)

	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Status < 500 {
		log.Warn("course sync failed", zap.String("code", appErr.Code), zap.Error(err))
		return
	}
	log.Error("course sync failed", zap.Error(err))
}

func (s *SyncService) newReport(runID, scope string) *models.SyncReport {
	return &models.SyncReport{
		RunID:     runID,
		Scope:     scope,
		Status:    models.SyncStatusRunning,
		StartedAt: s.now().UTC(),
	}
}

func (s *SyncService) finish(report *models.SyncReport, status string) *models.SyncReport {
	report.Status = status
	report.FinishedAt = s.now().UTC()
	s.metrics.ObserveSyncRun(report.Scope, report.FinishedAt.Sub(report.StartedAt))
	s.logger.Info("sync run finished",
		zap.String("run_id", report.RunID),
		zap.String("status", status),
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("grades_written", report.GradesWritten),
		zap.Int("grades_rejected", report.GradesRejected),
	)
	return report
}
