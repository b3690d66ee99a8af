package dto

import "github.com/noah-isme/gradestats-sync/internal/models"

// SyncCourseRequest is the optional body of a single course trigger.
type SyncCourseRequest struct {
	Refresh bool `json:"refresh"`
}

// SyncBatchRequest queues one run per listed course.
type SyncBatchRequest struct {
	Codes   []string `json:"codes" validate:"required,min=1,max=100,dive,required,max=32"`
	Refresh bool     `json:"refresh"`
}

// SyncBatchResponse lists the queued runs in request order.
type SyncBatchResponse struct {
	Runs []models.SyncReport `json:"runs"`
}

// SyncSittingRequest selects one sitting of a course.
type SyncSittingRequest struct {
	Year     int    `json:"year" validate:"required,min=1990,max=2100"`
	Semester string `json:"semester" validate:"required,oneof=SPRING SUMMER AUTUMN"`
}
