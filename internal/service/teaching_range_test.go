package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/gradestats-sync/internal/external/statsapi"
)

func courseRow(year, status string) statsapi.RawRow {
	return statsapi.RawRow{
		statsapi.FieldCourseCode: "TDT4120-1",
		statsapi.FieldYear:       year,
		statsapi.FieldStatus:     status,
	}
}

func TestTeachingRangeEmpty(t *testing.T) {
	assert.Equal(t, TeachingRange{}, ResolveTeachingRange(nil, nil))
}

func TestTeachingRangeActiveCourse(t *testing.T) {
	rng := ResolveTeachingRange(
		[]statsapi.RawRow{courseRow("2008", "1"), courseRow("2012", "2")},
		[]statsapi.RawRow{gradeRow("2006", "3", "A", 1)},
	)
	assert.Equal(t, 2006, rng.From)
	assert.Equal(t, 0, rng.To)
}

func TestTeachingRangeDiscontinued(t *testing.T) {
	rng := ResolveTeachingRange(
		[]statsapi.RawRow{courseRow("2008", "1"), courseRow("2014", "3"), courseRow("2015", "4")},
		[]statsapi.RawRow{gradeRow("2013", "1", "A", 1)},
	)
	assert.Equal(t, 2008, rng.From)
	assert.Equal(t, 2014, rng.To)
}

func TestTeachingRangeReactivatedCourse(t *testing.T) {
	rng := ResolveTeachingRange(
		[]statsapi.RawRow{courseRow("2010", "3")},
		[]statsapi.RawRow{gradeRow("2012", "1", "A", 1)},
	)
	assert.Equal(t, 0, rng.To)
}

func TestTeachingRangeContradictoryDataResetsEnd(t *testing.T) {
	rng := ResolveTeachingRange([]statsapi.RawRow{courseRow("2010", "4")}, nil)
	assert.Equal(t, 2010, rng.From)
	assert.Equal(t, 0, rng.To)
}
