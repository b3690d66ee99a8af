package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gradestats-sync/internal/external/statsapi"
	"github.com/noah-isme/gradestats-sync/internal/models"
	"github.com/noah-isme/gradestats-sync/pkg/config"
)

// Study level codes used by the course table of the statistics API.
var studyLevelCodes = map[string]int{
	"LN": 100,
	"VS": 300,
	"HN": 500,
	"FU": 900,
	"AR": 350,
	"50": 50,
}

// SnapshotSource returns the descriptive page of a course. A nil snapshot
// means there is no page for that year; year 0 asks for the current page.
type SnapshotSource interface {
	CourseSnapshot(ctx context.Context, code string, year int) (*models.CourseSnapshot, error)
}

// DescriptiveResolver obtains course text and metadata from course pages,
// degrading to the statistics rows when no page can be found.
type DescriptiveResolver struct {
	pages  SnapshotSource
	policy config.SyncConfig
	now    func() time.Time
	logger *zap.Logger
}

// NewDescriptiveResolver constructs a DescriptiveResolver.
func NewDescriptiveResolver(pages SnapshotSource, policy config.SyncConfig, logger *zap.Logger) *DescriptiveResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.MaxPageAttempts <= 0 {
		policy.MaxPageAttempts = 8
	}
	if policy.FallbackFloorYear <= 0 {
		policy.FallbackFloorYear = 2000
	}
	if policy.FallbackWindowYears <= 0 {
		policy.FallbackWindowYears = 5
	}
	return &DescriptiveResolver{pages: pages, policy: policy, now: time.Now, logger: logger}
}

// Resolve returns the descriptive data of a course, or nil when neither a
// page nor a raw course row is available.
func (r *DescriptiveResolver) Resolve(ctx context.Context, code string, rng TeachingRange, courseRows []statsapi.RawRow) (*models.CourseData, error) {
	snapshot, err := r.findSnapshot(ctx, code, rng)
	if err != nil {
		return nil, err
	}
	if snapshot != nil {
		data := snapshot.ToCourseData()
		data.Code = code
		return &data, nil
	}

	if len(courseRows) == 0 {
		r.logger.Info("no descriptive data for course", zap.String("course", code))
		return nil, nil
	}
	r.logger.Info("using course data from statistics rows", zap.String("course", code))
	data := SynthesizeCourseData(code, courseRows[len(courseRows)-1])
	return &data, nil
}

// findSnapshot tries the current page, then walks backwards from the last
// taught year towards the floor year.
func (r *DescriptiveResolver) findSnapshot(ctx context.Context, code string, rng TeachingRange) (*models.CourseSnapshot, error) {
	if snapshot := r.snapshot(ctx, code, 0); snapshot != nil {
		return snapshot, nil
	}

	start := rng.To
	if start == 0 {
		start = r.now().Year()
	}
	floor := rng.From
	if floor == 0 || floor > start {
		floor = max(start-r.policy.FallbackWindowYears, r.policy.FallbackFloorYear)
	}

	attempts := 0
	for year := start; year >= floor; year-- {
		if attempts >= r.policy.MaxPageAttempts {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		attempts++
		if snapshot := r.snapshot(ctx, code, year); snapshot != nil {
			return snapshot, nil
		}
	}
	return nil, nil
}

// snapshot treats collaborator failures as missing pages.
func (r *DescriptiveResolver) snapshot(ctx context.Context, code string, year int) *models.CourseSnapshot {
	snapshot, err := r.pages.CourseSnapshot(ctx, code, year)
	if err != nil {
		r.logger.Warn("course page unavailable", zap.String("course", code), zap.Int("year", year), zap.Error(err))
		return nil
	}
	return snapshot
}

// SynthesizeCourseData builds a minimal record from a raw course row.
func SynthesizeCourseData(code string, row statsapi.RawRow) models.CourseData {
	return models.CourseData{
		Code:          code,
		NorwegianName: row.String(statsapi.FieldCourseName),
		Credit:        row.Float(statsapi.FieldCredit),
		StudyLevel:    studyLevelCodes[row.String(statsapi.FieldLevelCode)],
	}
}
