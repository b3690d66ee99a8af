package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/gradestats-sync/internal/models"
	appErrors "github.com/noah-isme/gradestats-sync/pkg/errors"
	"github.com/noah-isme/gradestats-sync/pkg/jobs"
)

// Job types handled by the sync worker.
const (
	JobTypeSyncAll     = "sync.all"
	JobTypeSyncCourse  = "sync.course"
	JobTypeSyncSitting = "sync.sitting"
)

type jobEnqueuer interface {
	Enqueue(job jobs.Job) (string, error)
}

type syncRunner interface {
	RunAll(ctx context.Context, runID string) (*models.SyncReport, error)
	RunCourse(ctx context.Context, runID, code string) (*models.SyncReport, error)
	RunSitting(ctx context.Context, runID, code string, year int, semester models.Semester) (*models.SyncReport, error)
}

type snapshotForgetter interface {
	Forget(ctx context.Context, code string) error
}

// SyncJobService turns sync requests into queued jobs and keeps their reports.
// Reports live in the cache when it is enabled and in memory otherwise.
type SyncJobService struct {
	queue     jobEnqueuer
	runner    syncRunner
	cache     *CacheService
	snapshots snapshotForgetter
	reportTTL time.Duration
	logger    *zap.Logger

	mu      sync.RWMutex
	reports map[string]models.SyncReport
}

// NewSyncJobService constructs SyncJobService. The queue is attached with
// AttachQueue once it has been built around Handle.
func NewSyncJobService(runner syncRunner, cache *CacheService, snapshots snapshotForgetter, reportTTL time.Duration, logger *zap.Logger) *SyncJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncJobService{
		runner:    runner,
		cache:     cache,
		snapshots: snapshots,
		reportTTL: reportTTL,
		logger:    logger,
		reports:   make(map[string]models.SyncReport),
	}
}

// AttachQueue sets the queue jobs are pushed onto.
func (s *SyncJobService) AttachQueue(queue jobEnqueuer) {
	s.queue = queue
}

// TriggerAll queues a full catalog run.
func (s *SyncJobService) TriggerAll(ctx context.Context) (*models.SyncReport, error) {
	return s.trigger(ctx, jobs.Job{Type: JobTypeSyncAll}, models.SyncScopeAll)
}

// TriggerCourse queues a run for one course. With refresh set, cached course
// pages are dropped first.
func (s *SyncJobService) TriggerCourse(ctx context.Context, code string, refresh bool) (*models.SyncReport, error) {
	if err := ValidateCourseCode(code); err != nil {
		return nil, err
	}
	if refresh && s.snapshots != nil {
		if err := s.snapshots.Forget(ctx, code); err != nil {
			s.logger.Warn("failed to drop cached course pages", zap.String("course", code), zap.Error(err))
		}
	}
	job := jobs.Job{Type: JobTypeSyncCourse, Payload: map[string]string{"code": code}}
	return s.trigger(ctx, job, code)
}

// TriggerSitting queues a grade refresh for one sitting of a course.
func (s *SyncJobService) TriggerSitting(ctx context.Context, code string, year int, semester models.Semester) (*models.SyncReport, error) {
	if err := ValidateCourseCode(code); err != nil {
		return nil, err
	}
	if !semester.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown semester %q", semester))
	}
	job := jobs.Job{Type: JobTypeSyncSitting, Payload: map[string]string{
		"code":     code,
		"year":     strconv.Itoa(year),
		"semester": string(semester),
	}}
	return s.trigger(ctx, job, SittingScope(code, year, semester))
}

func (s *SyncJobService) trigger(ctx context.Context, job jobs.Job, scope string) (*models.SyncReport, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrQueueUnavailable, "sync worker is not running")
	}
	runID := uuid.NewString()
	if job.Payload == nil {
		job.Payload = map[string]string{}
	}
	job.Payload["run_id"] = runID

	report := models.SyncReport{RunID: runID, Scope: scope, Status: models.SyncStatusQueued, StartedAt: time.Now().UTC()}
	s.store(ctx, report)

	if _, err := s.queue.Enqueue(job); err != nil {
		report.Status = models.SyncStatusFailed
		s.store(ctx, report)
		return nil, appErrors.Cause(appErrors.ErrQueueUnavailable, "sync queue rejected the run", err)
	}
	s.logger.Info("sync run queued", zap.String("run_id", runID), zap.String("scope", scope))
	return &report, nil
}

// Handle is the queue handler executing sync jobs. Only runs that failed on an
// unreachable statistics API are handed back to the queue for a retry.
func (s *SyncJobService) Handle(ctx context.Context, job jobs.Job) error {
	runID := job.Payload["run_id"]
	if runID == "" {
		runID = job.ID
	}

	var (
		report *models.SyncReport
		err    error
	)
	switch job.Type {
	case JobTypeSyncAll:
		report, err = s.runner.RunAll(ctx, runID)
	case JobTypeSyncCourse:
		report, err = s.runner.RunCourse(ctx, runID, job.Payload["code"])
	case JobTypeSyncSitting:
		year, convErr := strconv.Atoi(job.Payload["year"])
		if convErr != nil {
			s.logger.Error("invalid sitting year", zap.String("job_id", job.ID), zap.String("year", job.Payload["year"]))
			s.store(ctx, models.SyncReport{RunID: runID, Status: models.SyncStatusFailed, FinishedAt: time.Now().UTC()})
			return nil
		}
		report, err = s.runner.RunSitting(ctx, runID, job.Payload["code"], year, models.Semester(job.Payload["semester"]))
	default:
		s.logger.Error("unknown sync job type", zap.String("type", job.Type), zap.String("job_id", job.ID))
		return nil
	}

	if report != nil {
		s.store(ctx, *report)
	}
	if err != nil {
		if report == nil {
			s.store(ctx, models.SyncReport{RunID: runID, Status: models.SyncStatusFailed, FinishedAt: time.Now().UTC()})
		}
		if errors.Is(err, appErrors.ErrUpstreamUnavailable) {
			return fmt.Errorf("sync run %s: %w", runID, err)
		}
		s.logger.Error("sync run failed", zap.String("run_id", runID), zap.String("type", job.Type), zap.Error(err))
	}
	return nil
}

// Report returns the latest report of a run.
func (s *SyncJobService) Report(ctx context.Context, runID string) (*models.SyncReport, error) {
	var report models.SyncReport
	if s.cache.Enabled() {
		hit, err := s.cache.Get(ctx, RunReportCacheKey(runID), &report)
		if err == nil && hit {
			return &report, nil
		}
	}

	s.mu.RLock()
	report, ok := s.reports[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "sync run not found")
	}
	return &report, nil
}

func (s *SyncJobService) store(ctx context.Context, report models.SyncReport) {
	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, RunReportCacheKey(report.RunID), report, s.reportTTL); err == nil {
			return
		}
	}
	s.mu.Lock()
	s.reports[report.RunID] = report
	s.mu.Unlock()
}
