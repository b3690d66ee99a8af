package service

import (
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/gradestats-sync/internal/models"
)

// MappingState is the inferred answer to "does a legacy summer sitting stand
// in for this semester". Unknown may move to True or False; True may move to
// False; False never moves.
type MappingState uint8

const (
	MappingUnknown MappingState = iota
	MappingTrue
	MappingFalse
)

func (s MappingState) String() string {
	switch s {
	case MappingTrue:
		return "true"
	case MappingFalse:
		return "false"
	default:
		return "unknown"
	}
}

// veto records evidence that summer cannot represent the semester.
func (s MappingState) veto() MappingState {
	return MappingFalse
}

// suggest records tentative evidence that summer represents the semester.
func (s MappingState) suggest() MappingState {
	if s == MappingUnknown {
		return MappingTrue
	}
	return s
}

// SummerMapping is the per-course inference over legacy summer sittings.
type SummerMapping struct {
	RepresentsSpring MappingState
	RepresentsAutumn MappingState
}

type yearSemesters struct {
	spring, summer, autumn bool
}

func (y yearSemesters) any() bool {
	return y.spring || y.summer || y.autumn
}

func semestersByYear(grades []models.Grade) map[int]yearSemesters {
	years := make(map[int]yearSemesters)
	for _, g := range grades {
		entry := years[g.Year]
		switch g.Semester {
		case models.SemesterSpring:
			entry.spring = true
		case models.SemesterSummer:
			entry.summer = true
		case models.SemesterAutumn:
			entry.autumn = true
		}
		years[g.Year] = entry
	}
	return years
}

// InferSummerMapping walks the persisted grades of one course. The result does
// not depend on the order of the input.
func InferSummerMapping(existing []models.Grade) SummerMapping {
	var mapping SummerMapping
	for _, year := range semestersByYear(existing) {
		if !year.summer {
			continue
		}
		if year.autumn {
			mapping.RepresentsAutumn = mapping.RepresentsAutumn.veto()
		} else if year.spring {
			mapping.RepresentsAutumn = mapping.RepresentsAutumn.suggest()
		}
		if year.spring {
			mapping.RepresentsSpring = mapping.RepresentsSpring.veto()
		} else if year.autumn {
			mapping.RepresentsSpring = mapping.RepresentsSpring.suggest()
		}
	}
	return mapping
}

// SemesterConflictResolver decides which new grade records can be written
// without double counting sittings already covered by legacy data.
type SemesterConflictResolver struct {
	cutoffYear int
	logger     *zap.Logger
}

// NewSemesterConflictResolver builds a resolver for the given legacy cutoff year.
func NewSemesterConflictResolver(cutoffYear int, logger *zap.Logger) *SemesterConflictResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemesterConflictResolver{cutoffYear: cutoffYear, logger: logger}
}

// Resolve splits candidates into the records safe to upsert and the ones
// already represented by existing data. Input order is preserved.
func (r *SemesterConflictResolver) Resolve(existing []models.Grade, candidates []models.GradeData) (admitted, rejected []models.GradeData) {
	mapping := InferSummerMapping(existing)
	onFile := semestersByYear(existing)

	decisions := make(map[int]map[models.Semester]bool)
	for _, year := range candidateYears(candidates) {
		decisions[year] = r.admitForYear(year, onFile[year], mapping)
	}

	for _, candidate := range candidates {
		if decisions[candidate.Year][candidate.Semester] {
			admitted = append(admitted, candidate)
			continue
		}
		r.logger.Debug("grade already represented",
			zap.String("course", candidate.CourseCode),
			zap.Int("year", candidate.Year),
			zap.String("semester", string(candidate.Semester)),
			zap.Stringer("summer_represents_spring", mapping.RepresentsSpring),
			zap.Stringer("summer_represents_autumn", mapping.RepresentsAutumn),
		)
		rejected = append(rejected, candidate)
	}
	return admitted, rejected
}

func (r *SemesterConflictResolver) admitForYear(year int, existing yearSemesters, mapping SummerMapping) map[models.Semester]bool {
	if year > r.cutoffYear || !existing.any() {
		return map[models.Semester]bool{
			models.SemesterSpring: true,
			models.SemesterSummer: true,
			models.SemesterAutumn: true,
		}
	}
	// A missing sitting is admitted next to a legacy SUMMER only when the flag
	// of the same name is True: SPRING pairs with RepresentsSpring and AUTUMN
	// with RepresentsAutumn. A year on file as {SPRING, SUMMER} therefore takes
	// a new AUTUMN, and {AUTUMN, SUMMER} takes a new SPRING.
	return map[models.Semester]bool{
		models.SemesterSpring: !existing.spring && (!existing.summer || mapping.RepresentsSpring == MappingTrue),
		models.SemesterAutumn: !existing.autumn && (!existing.summer || mapping.RepresentsAutumn == MappingTrue),
		models.SemesterSummer: !existing.summer,
	}
}

func candidateYears(candidates []models.GradeData) []int {
	seen := make(map[int]struct{})
	var years []int
	for _, c := range candidates {
		if _, ok := seen[c.Year]; ok {
			continue
		}
		seen[c.Year] = struct{}{}
		years = append(years, c.Year)
	}
	sort.Ints(years)
	return years
}
