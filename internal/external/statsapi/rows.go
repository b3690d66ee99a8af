package statsapi

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// RawRow is one loosely typed record as returned by the table endpoint.
type RawRow map[string]any

// String returns the field as text, whether upstream sent a string or a number.
func (r RawRow) String(field string) string {
	switch v := r[field].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Int parses the field as an integer, reporting whether it was usable.
func (r RawRow) Int(field string) (int, bool) {
	raw := r.String(field)
	if raw == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return int(math.Round(f)), true
}

// Float parses the field as a decimal number, zero when absent or malformed.
func (r RawRow) Float(field string) float64 {
	f, err := strconv.ParseFloat(strings.Replace(r.String(field), ",", ".", 1), 64)
	if err != nil {
		return 0
	}
	return f
}

func (r RawRow) RawCourseCode() string { return r.String(FieldCourseCode) }
func (r RawRow) CourseCode() string    { return StripVersion(r.RawCourseCode()) }
func (r RawRow) SemesterCode() string  { return r.String(FieldSemester) }
func (r RawRow) Status() string        { return r.String(FieldStatus) }
func (r RawRow) GradeTag() string      { return r.String(FieldGrade) }
func (r RawRow) DepartmentCode() string {
	return r.String(FieldDepartment)
}

// Year returns the row year, reporting whether one was present.
func (r RawRow) Year() (int, bool) {
	return r.Int(FieldYear)
}

// Candidates returns the candidate count, zero when absent.
func (r RawRow) Candidates() int {
	n, _ := r.Int(FieldCandidates)
	return n
}

// StripVersion removes the trailing "-N" version suffix, e.g. "TDT4120-1" -> "TDT4120".
func StripVersion(code string) string {
	code = strings.TrimSpace(code)
	if i := strings.LastIndex(code, "-"); i > 0 {
		return code[:i]
	}
	return code
}

// GroupByCourse splits rows by raw course code, keeping first-seen order.
func GroupByCourse(rows []RawRow) ([]string, map[string][]RawRow) {
	var order []string
	groups := make(map[string][]RawRow)
	for _, row := range rows {
		code := row.RawCourseCode()
		if _, ok := groups[code]; !ok {
			order = append(order, code)
		}
		groups[code] = append(groups[code], row)
	}
	return order, groups
}

// SortByYearSemester orders rows chronologically; ties keep input order.
func SortByYearSemester(rows []RawRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		yi, _ := rows[i].Year()
		yj, _ := rows[j].Year()
		if yi != yj {
			return yi < yj
		}
		return rows[i].SemesterCode() < rows[j].SemesterCode()
	})
}
