package models

// GradeScheme distinguishes the two mutually exclusive grading schemes.
type GradeScheme string

const (
	GradeSchemeLetter   GradeScheme = "LETTER"
	GradeSchemePassFail GradeScheme = "PASS_FAIL"
)

// LetterCounts holds candidate counts from A (best) to F (worst).
type LetterCounts struct {
	A, B, C, D, E, F int
}

// Total returns the number of letter graded candidates.
func (l LetterCounts) Total() int {
	return l.A + l.B + l.C + l.D + l.E + l.F
}

// Average weights A..F as 5..0; zero when nobody was graded.
func (l LetterCounts) Average() float64 {
	total := l.Total()
	if total == 0 {
		return 0
	}
	return float64(5*l.A+4*l.B+3*l.C+2*l.D+l.E) / float64(total)
}

// GradeData is a normalized, not yet persisted, grade record. It is either
// letter graded or pass/fail; the constructors are the only way to build one.
type GradeData struct {
	CourseID   string
	CourseCode string
	Year       int
	Semester   Semester

	scheme  GradeScheme
	letters LetterCounts
	passed  int
	failed  int
}

// NewLetterGradeData builds a letter graded record. F doubles as the fail count.
func NewLetterGradeData(courseID, code string, year int, semester Semester, counts LetterCounts) GradeData {
	return GradeData{
		CourseID:   courseID,
		CourseCode: code,
		Year:       year,
		Semester:   semester,
		scheme:     GradeSchemeLetter,
		letters:    counts,
		failed:     counts.F,
	}
}

// NewPassFailGradeData builds a pass/fail record with no letter counts.
func NewPassFailGradeData(courseID, code string, year int, semester Semester, passed, failed int) GradeData {
	return GradeData{
		CourseID:   courseID,
		CourseCode: code,
		Year:       year,
		Semester:   semester,
		scheme:     GradeSchemePassFail,
		passed:     passed,
		failed:     failed,
	}
}

func (g GradeData) Scheme() GradeScheme   { return g.scheme }
func (g GradeData) Letters() LetterCounts { return g.letters }
func (g GradeData) Passed() int           { return g.passed }
func (g GradeData) Failed() int           { return g.failed }

// Average is the weighted letter average, always zero for pass/fail.
func (g GradeData) Average() float64 {
	if g.scheme != GradeSchemeLetter {
		return 0
	}
	return g.letters.Average()
}

// AttendeeCount counts every candidate in the sitting.
func (g GradeData) AttendeeCount() int {
	if g.scheme == GradeSchemeLetter {
		return g.letters.Total()
	}
	return g.passed + g.failed
}

// IsEmpty reports a sitting without any candidates worth recording.
func (g GradeData) IsEmpty() bool {
	return g.Average() == 0 && g.passed == 0 && g.failed == 0
}

// ToGrade maps the record onto the persisted shape.
func (g GradeData) ToGrade() Grade {
	grade := Grade{
		CourseID:     g.CourseID,
		Year:         g.Year,
		Semester:     g.Semester,
		AverageGrade: g.Average(),
	}
	switch g.scheme {
	case GradeSchemeLetter:
		grade.A, grade.B, grade.C = g.letters.A, g.letters.B, g.letters.C
		grade.D, grade.E, grade.F = g.letters.D, g.letters.E, g.letters.F
	case GradeSchemePassFail:
		grade.Passed = g.passed
		grade.F = g.failed
	}
	return grade
}
