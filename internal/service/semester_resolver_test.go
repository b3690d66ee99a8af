package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradestats-sync/internal/models"
)

const testCutoff = 2019

func existingGrade(year int, semester models.Semester) models.Grade {
	return models.Grade{CourseID: "course-1", Year: year, Semester: semester, A: 1}
}

func candidate(year int, semester models.Semester) models.GradeData {
	return models.NewLetterGradeData("course-1", "TDT4120", year, semester, models.LetterCounts{A: 3, B: 2})
}

func semestersOf(records []models.GradeData) []models.Semester {
	var out []models.Semester
	for _, r := range records {
		out = append(out, r.Semester)
	}
	return out
}

func TestInferSummerMappingSpringAndSummer(t *testing.T) {
	mapping := InferSummerMapping([]models.Grade{
		existingGrade(2015, models.SemesterSpring),
		existingGrade(2015, models.SemesterSummer),
	})
	assert.Equal(t, MappingTrue, mapping.RepresentsAutumn)
	assert.Equal(t, MappingFalse, mapping.RepresentsSpring)
}

func TestInferSummerMappingVetoIsSticky(t *testing.T) {
	grades := []models.Grade{
		existingGrade(2012, models.SemesterSpring),
		existingGrade(2012, models.SemesterSummer),
		existingGrade(2013, models.SemesterAutumn),
		existingGrade(2013, models.SemesterSummer),
		existingGrade(2014, models.SemesterSpring),
		existingGrade(2014, models.SemesterSummer),
	}
	mapping := InferSummerMapping(grades)
	assert.Equal(t, MappingFalse, mapping.RepresentsAutumn)

	reversed := make([]models.Grade, len(grades))
	for i := range grades {
		reversed[len(grades)-1-i] = grades[i]
	}
	assert.Equal(t, mapping, InferSummerMapping(reversed))
}

func TestInferSummerMappingIdempotent(t *testing.T) {
	grades := []models.Grade{
		existingGrade(2010, models.SemesterAutumn),
		existingGrade(2010, models.SemesterSummer),
		existingGrade(2011, models.SemesterSummer),
	}
	first := InferSummerMapping(grades)
	second := InferSummerMapping(grades)
	assert.Equal(t, first, second)
	assert.Equal(t, MappingTrue, first.RepresentsSpring)
	assert.Equal(t, MappingFalse, first.RepresentsAutumn)
}

func TestInferSummerMappingWithoutSummer(t *testing.T) {
	mapping := InferSummerMapping([]models.Grade{
		existingGrade(2010, models.SemesterSpring),
		existingGrade(2010, models.SemesterAutumn),
	})
	assert.Equal(t, SummerMapping{}, mapping)
}

func TestMappingStateTransitions(t *testing.T) {
	assert.Equal(t, MappingTrue, MappingUnknown.suggest())
	assert.Equal(t, MappingTrue, MappingTrue.suggest())
	assert.Equal(t, MappingFalse, MappingFalse.suggest())
	assert.Equal(t, MappingFalse, MappingTrue.veto())
	assert.Equal(t, "unknown", MappingUnknown.String())
}

func TestResolveAdmitsEverythingAfterCutoff(t *testing.T) {
	resolver := NewSemesterConflictResolver(testCutoff, nil)
	existing := []models.Grade{
		existingGrade(2020, models.SemesterSpring),
		existingGrade(2020, models.SemesterSummer),
		existingGrade(2020, models.SemesterAutumn),
	}
	candidates := []models.GradeData{
		candidate(2020, models.SemesterSpring),
		candidate(2020, models.SemesterSummer),
		candidate(2020, models.SemesterAutumn),
	}

	admitted, rejected := resolver.Resolve(existing, candidates)
	assert.Len(t, admitted, 3)
	assert.Empty(t, rejected)
}

func TestResolveAdmitsYearWithoutExistingRecords(t *testing.T) {
	resolver := NewSemesterConflictResolver(testCutoff, nil)
	existing := []models.Grade{existingGrade(2014, models.SemesterSummer)}

	admitted, rejected := resolver.Resolve(existing, []models.GradeData{
		candidate(2015, models.SemesterSpring),
		candidate(2015, models.SemesterAutumn),
	})
	assert.Len(t, admitted, 2)
	assert.Empty(t, rejected)
}

func TestResolveSpringAndAutumnOnFileAdmitsOnlySummer(t *testing.T) {
	resolver := NewSemesterConflictResolver(testCutoff, nil)
	existing := []models.Grade{
		existingGrade(2016, models.SemesterSpring),
		existingGrade(2016, models.SemesterAutumn),
	}

	admitted, rejected := resolver.Resolve(existing, []models.GradeData{
		candidate(2016, models.SemesterSpring),
		candidate(2016, models.SemesterSummer),
		candidate(2016, models.SemesterAutumn),
	})
	assert.Equal(t, []models.Semester{models.SemesterSummer}, semestersOf(admitted))
	assert.Equal(t, []models.Semester{models.SemesterSpring, models.SemesterAutumn}, semestersOf(rejected))
}

func TestResolveSummerStandingInForAutumn(t *testing.T) {
	resolver := NewSemesterConflictResolver(testCutoff, nil)
	existing := []models.Grade{
		existingGrade(2015, models.SemesterSpring),
		existingGrade(2015, models.SemesterSummer),
	}

	admitted, rejected := resolver.Resolve(existing, []models.GradeData{candidate(2015, models.SemesterAutumn)})
	require.Len(t, admitted, 1)
	assert.Equal(t, models.SemesterAutumn, admitted[0].Semester)
	assert.Empty(t, rejected)
}

func TestResolveSummerOnFileBlocksUnmappedSemesters(t *testing.T) {
	resolver := NewSemesterConflictResolver(testCutoff, nil)
	existing := []models.Grade{existingGrade(2011, models.SemesterSummer)}

	admitted, rejected := resolver.Resolve(existing, []models.GradeData{
		candidate(2011, models.SemesterSpring),
		candidate(2011, models.SemesterSummer),
		candidate(2011, models.SemesterAutumn),
	})
	assert.Empty(t, admitted)
	assert.Len(t, rejected, 3)
}

func TestResolveKeepsInputOrder(t *testing.T) {
	resolver := NewSemesterConflictResolver(testCutoff, nil)

	admitted, _ := resolver.Resolve(nil, []models.GradeData{
		candidate(2021, models.SemesterAutumn),
		candidate(2005, models.SemesterSpring),
		candidate(2021, models.SemesterSpring),
	})
	require.Len(t, admitted, 3)
	assert.Equal(t, 2021, admitted[0].Year)
	assert.Equal(t, 2005, admitted[1].Year)
}

func TestResolveFlagPairing(t *testing.T) {
	r := NewSemesterConflictResolver(testCutoff, nil)

	cases := []struct {
		name      string
		existing  []models.Grade
		candidate models.Semester
		admit     bool
	}{
		{
			name:      "autumn and summer on file take a new spring",
			existing:  []models.Grade{existingGrade(2010, models.SemesterAutumn), existingGrade(2010, models.SemesterSummer)},
			candidate: models.SemesterSpring,
			admit:     true,
		},
		{
			name:      "spring and summer on file take a new autumn",
			existing:  []models.Grade{existingGrade(2015, models.SemesterSpring), existingGrade(2015, models.SemesterSummer)},
			candidate: models.SemesterAutumn,
			admit:     true,
		},
		{
			name:      "summer alone leaves both flags unknown",
			existing:  []models.Grade{existingGrade(2010, models.SemesterSummer)},
			candidate: models.SemesterSpring,
			admit:     false,
		},
		{
			name: "veto from another year blocks the same semester",
			existing: []models.Grade{
				existingGrade(2009, models.SemesterSpring), existingGrade(2009, models.SemesterSummer),
				existingGrade(2010, models.SemesterAutumn), existingGrade(2010, models.SemesterSummer),
			},
			candidate: models.SemesterSpring,
			admit:     false,
		},
	}

	for _, tc := range cases {
		year := tc.existing[len(tc.existing)-1].Year
		admitted, rejected := r.Resolve(tc.existing, []models.GradeData{candidate(year, tc.candidate)})
		if tc.admit {
			assert.Equal(t, []models.Semester{tc.candidate}, semestersOf(admitted), tc.name)
			assert.Empty(t, rejected, tc.name)
			continue
		}
		assert.Empty(t, admitted, tc.name)
		assert.Equal(t, []models.Semester{tc.candidate}, semestersOf(rejected), tc.name)
	}
}
