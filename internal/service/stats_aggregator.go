package service

import "github.com/noah-isme/gradestats-sync/internal/models"

// AggregateStats recomputes a course's figures from all of its grades.
func AggregateStats(grades []models.Grade) models.CourseStats {
	var (
		weighted  float64
		attendees int
		failed    int
	)
	for _, g := range grades {
		count := g.AttendeeCount()
		weighted += g.AverageGrade * float64(count)
		attendees += count
		failed += g.F
	}
	if attendees == 0 {
		return models.CourseStats{}
	}
	return models.CourseStats{
		Average:       weighted / float64(attendees),
		PassRate:      float64(attendees-failed) * 100 / float64(attendees),
		AttendeeCount: attendees,
	}
}
