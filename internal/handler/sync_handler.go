package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/gradestats-sync/internal/dto"
	"github.com/noah-isme/gradestats-sync/internal/models"
	appErrors "github.com/noah-isme/gradestats-sync/pkg/errors"
	"github.com/noah-isme/gradestats-sync/pkg/response"
)

type syncJobService interface {
	TriggerAll(ctx context.Context) (*models.SyncReport, error)
	TriggerCourse(ctx context.Context, code string, refresh bool) (*models.SyncReport, error)
	TriggerSitting(ctx context.Context, code string, year int, semester models.Semester) (*models.SyncReport, error)
	Report(ctx context.Context, runID string) (*models.SyncReport, error)
}

// SyncHandler exposes the sync trigger and run status endpoints.
type SyncHandler struct {
	service  syncJobService
	validate *validator.Validate
}

// NewSyncHandler builds a new handler.
func NewSyncHandler(service syncJobService, validate *validator.Validate) *SyncHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &SyncHandler{service: service, validate: validate}
}

// TriggerAll queues a full catalog run.
func (h *SyncHandler) TriggerAll(c *gin.Context) {
	report, err := h.service.TriggerAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, report)
}

// TriggerCourse queues a run for the course in the path. The body is optional.
func (h *SyncHandler) TriggerCourse(c *gin.Context) {
	var req dto.SyncCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sync payload"))
		return
	}
	report, err := h.service.TriggerCourse(c.Request.Context(), c.Param("code"), req.Refresh)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, report)
}

// TriggerBatch queues one run per course in the body.
func (h *SyncHandler) TriggerBatch(c *gin.Context) {
	var req dto.SyncBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sync payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sync payload"))
		return
	}

	runs := make([]models.SyncReport, 0, len(req.Codes))
	for _, code := range req.Codes {
		report, err := h.service.TriggerCourse(c.Request.Context(), code, req.Refresh)
		if err != nil {
			response.Error(c, err)
			return
		}
		runs = append(runs, *report)
	}
	response.Accepted(c, dto.SyncBatchResponse{Runs: runs})
}

// TriggerSitting queues a grade refresh for one sitting of the course in the path.
func (h *SyncHandler) TriggerSitting(c *gin.Context) {
	var req dto.SyncSittingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sitting payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sitting payload"))
		return
	}
	report, err := h.service.TriggerSitting(c.Request.Context(), c.Param("code"), req.Year, models.Semester(req.Semester))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, report)
}

// Report returns the status of a run.
func (h *SyncHandler) Report(c *gin.Context) {
	report, err := h.service.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
