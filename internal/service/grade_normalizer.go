package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/gradestats-sync/internal/external/statsapi"
	"github.com/noah-isme/gradestats-sync/internal/models"
	appErrors "github.com/noah-isme/gradestats-sync/pkg/errors"
)

// Grade category tags used by the statistics API.
const (
	tagPassed = "G"
	tagFailed = "H"
)

var gradeTags = map[string]struct{}{
	tagPassed: {}, tagFailed: {}, "A": {}, "B": {}, "C": {}, "D": {}, "E": {}, "F": {},
}

type courseFinder interface {
	FindByCode(ctx context.Context, code string) (*models.Course, error)
}

// GradeNormalizer converts grouped raw rows into one grade record per sitting.
type GradeNormalizer struct {
	courses courseFinder
	logger  *zap.Logger
}

// NewGradeNormalizer constructs a GradeNormalizer.
func NewGradeNormalizer(courses courseFinder, logger *zap.Logger) *GradeNormalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeNormalizer{courses: courses, logger: logger}
}

// Normalize builds the grade record of a single sitting.
func (n *GradeNormalizer) Normalize(ctx context.Context, code string, year int, semester models.Semester, rows []statsapi.RawRow) (models.GradeData, error) {
	counts, err := countCategories(rows)
	if err != nil {
		return models.GradeData{}, withSitting(err, code, year, semester)
	}
	courseID, err := n.courseID(ctx, code)
	if err != nil {
		return models.GradeData{}, err
	}
	return n.classify(courseID, code, year, semester, counts), nil
}

// NormalizeCourse groups every raw grade row of a course by year and semester
// and normalizes each group. Rows with an unknown semester code or no year are
// skipped. The returned course id is the owner of every record.
func (n *GradeNormalizer) NormalizeCourse(ctx context.Context, code string, rows []statsapi.RawRow) (string, []models.GradeData, error) {
	courseID, err := n.courseID(ctx, code)
	if err != nil {
		return "", nil, err
	}

	type sitting struct {
		year     int
		semester models.Semester
	}
	groups := make(map[sitting][]statsapi.RawRow)
	for _, row := range rows {
		year, ok := row.Year()
		if !ok {
			n.logger.Warn("raw grade row without year", zap.String("course", code))
			continue
		}
		semester, err := models.SemesterFromCode(row.SemesterCode())
		if err != nil {
			n.logger.Warn("skipping raw grade row", zap.String("course", code), zap.Int("year", year), zap.Error(err))
			continue
		}
		key := sitting{year: year, semester: semester}
		groups[key] = append(groups[key], row)
	}

	keys := make([]sitting, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].semester.Code() < keys[j].semester.Code()
	})

	records := make([]models.GradeData, 0, len(keys))
	for _, key := range keys {
		counts, err := countCategories(groups[key])
		if err != nil {
			return courseID, nil, withSitting(err, code, key.year, key.semester)
		}
		records = append(records, n.classify(courseID, code, key.year, key.semester, counts))
	}
	return courseID, records, nil
}

func (n *GradeNormalizer) courseID(ctx context.Context, code string) (string, error) {
	course, err := n.courses.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Cause(appErrors.ErrCourseNotFound, fmt.Sprintf("course %s does not exist", code), err)
		}
		return "", fmt.Errorf("find course %s: %w", code, err)
	}
	return course.ID, nil
}

func (n *GradeNormalizer) classify(courseID, code string, year int, semester models.Semester, counts map[string]int) models.GradeData {
	letters := models.LetterCounts{
		A: counts["A"], B: counts["B"], C: counts["C"],
		D: counts["D"], E: counts["E"], F: counts["F"],
	}
	passed, failed := counts[tagPassed], counts[tagFailed]
	passFail := passed != 0 || failed != 0

	if passFail && letters.Total() != 0 {
		n.logger.Warn("sitting is both pass/fail and letter graded, ignoring pass/fail",
			zap.String("course", code),
			zap.Int("year", year),
			zap.String("semester", string(semester)),
			zap.Int("passed", passed),
			zap.Int("failed", failed),
		)
		passFail = false
	}
	if passFail {
		return models.NewPassFailGradeData(courseID, code, year, semester, passed, failed)
	}
	return models.NewLetterGradeData(courseID, code, year, semester, letters)
}

// countCategories extracts the candidate count of every category. Unknown
// tags are ignored; a category seen twice is an upstream integrity fault.
func countCategories(rows []statsapi.RawRow) (map[string]int, error) {
	counts := make(map[string]int, len(gradeTags))
	for _, row := range rows {
		tag := row.GradeTag()
		if _, ok := gradeTags[tag]; !ok {
			continue
		}
		if _, dup := counts[tag]; dup {
			return nil, appErrors.Clone(appErrors.ErrDuplicateCategory, fmt.Sprintf("more than one row for grade %s", tag))
		}
		counts[tag] = row.Candidates()
	}
	return counts, nil
}

func withSitting(err error, code string, year int, semester models.Semester) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErrors.Clone(appErr, fmt.Sprintf("%s (%s %d %s)", appErr.Message, code, year, semester))
	}
	return err
}
