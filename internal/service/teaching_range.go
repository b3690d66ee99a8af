package service

import "github.com/noah-isme/gradestats-sync/internal/external/statsapi"

// Course status codes that mark a course as terminated or suspended.
var discontinuedStatuses = map[string]struct{}{"3": {}, "4": {}}

// TeachingRange is the first and last year a course was taught. To is zero
// while the course is active or its end is unknown.
type TeachingRange struct {
	From int
	To   int
}

// ResolveTeachingRange derives the teaching window from raw course status
// rows and raw grade rows. Rows without a year are ignored.
func ResolveTeachingRange(courseRows, gradeRows []statsapi.RawRow) TeachingRange {
	rng := TeachingRange{From: taughtFrom(courseRows, gradeRows), To: taughtTo(courseRows, gradeRows)}
	if rng.From > rng.To {
		rng.To = 0
	}
	return rng
}

func taughtFrom(courseRows, gradeRows []statsapi.RawRow) int {
	first := 0
	for _, rows := range [][]statsapi.RawRow{courseRows, gradeRows} {
		for _, row := range rows {
			if year, ok := row.Year(); ok && (first == 0 || year < first) {
				first = year
			}
		}
	}
	return first
}

func taughtTo(courseRows, gradeRows []statsapi.RawRow) int {
	discontinued, found := 0, false
	for _, row := range courseRows {
		if _, ok := discontinuedStatuses[row.Status()]; !ok {
			continue
		}
		if year, ok := row.Year(); ok && (!found || year > discontinued) {
			discontinued, found = year, true
		}
	}
	if !found {
		return 0
	}

	for _, rows := range [][]statsapi.RawRow{courseRows, gradeRows} {
		for _, row := range rows {
			if year, ok := row.Year(); ok && year > discontinued {
				return 0
			}
		}
	}
	// the course stopped the year before it got the status
	return discontinued - 1
}
