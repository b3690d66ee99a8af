package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLetterGradeData(t *testing.T) {
	data := NewLetterGradeData("course-1", "TDT4120", 2020, SemesterAutumn, LetterCounts{A: 10, B: 5, F: 5})

	assert.Equal(t, GradeSchemeLetter, data.Scheme())
	assert.InDelta(t, 3.0, data.Average(), 1e-9)
	assert.Equal(t, 20, data.AttendeeCount())
	assert.Equal(t, 0, data.Passed())
	assert.Equal(t, 5, data.Failed())

	grade := data.ToGrade()
	assert.Equal(t, 0, grade.Passed)
	assert.Equal(t, 20, grade.AttendeeCount())
	assert.Equal(t, SemesterAutumn, grade.Semester)
}

func TestPassFailGradeData(t *testing.T) {
	data := NewPassFailGradeData("course-1", "EXPH0300", 2020, SemesterSpring, 40, 3)

	assert.Equal(t, GradeSchemePassFail, data.Scheme())
	assert.Zero(t, data.Average())
	assert.Equal(t, LetterCounts{}, data.Letters())

	grade := data.ToGrade()
	assert.Equal(t, 40, grade.Passed)
	assert.Equal(t, 3, grade.F)
	assert.Zero(t, grade.A+grade.B+grade.C+grade.D+grade.E)
	assert.Equal(t, 43, grade.AttendeeCount())
}

func TestGradeDataIsEmpty(t *testing.T) {
	assert.True(t, NewPassFailGradeData("c", "X", 2020, SemesterSpring, 0, 0).IsEmpty())
	assert.True(t, NewLetterGradeData("c", "X", 2020, SemesterSpring, LetterCounts{}).IsEmpty())
	assert.False(t, NewLetterGradeData("c", "X", 2020, SemesterSpring, LetterCounts{F: 2}).IsEmpty())
}

func TestSemesterFromCode(t *testing.T) {
	for code, want := range map[string]Semester{"1": SemesterSpring, "2": SemesterSummer, "3": SemesterAutumn} {
		got, err := SemesterFromCode(code)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, code, string(rune('0'+got.Code())))
	}
	_, err := SemesterFromCode("9")
	assert.Error(t, err)
}
