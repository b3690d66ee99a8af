package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradestats-sync/internal/models"
	appErrors "github.com/noah-isme/gradestats-sync/pkg/errors"
)

type syncJobServiceMock struct {
	triggered []string
	refreshed []bool
	reports   map[string]*models.SyncReport
	err       error
}

func (m *syncJobServiceMock) TriggerAll(ctx context.Context) (*models.SyncReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.triggered = append(m.triggered, models.SyncScopeAll)
	return &models.SyncReport{RunID: "run-all", Scope: models.SyncScopeAll, Status: models.SyncStatusQueued}, nil
}

func (m *syncJobServiceMock) TriggerCourse(ctx context.Context, code string, refresh bool) (*models.SyncReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.triggered = append(m.triggered, code)
	m.refreshed = append(m.refreshed, refresh)
	return &models.SyncReport{RunID: "run-" + code, Scope: code, Status: models.SyncStatusQueued}, nil
}

func (m *syncJobServiceMock) TriggerSitting(ctx context.Context, code string, year int, semester models.Semester) (*models.SyncReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	scope := fmt.Sprintf("%s/%d/%s", code, year, semester)
	m.triggered = append(m.triggered, scope)
	return &models.SyncReport{RunID: "run-sitting", Scope: scope, Status: models.SyncStatusQueued}, nil
}

func (m *syncJobServiceMock) Report(ctx context.Context, runID string) (*models.SyncReport, error) {
	if report, ok := m.reports[runID]; ok {
		return report, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "sync run not found")
}

func newSyncContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	return c, w
}

func TestSyncHandlerTriggerAll(t *testing.T) {
	svc := &syncJobServiceMock{}
	handler := NewSyncHandler(svc, nil)
	c, w := newSyncContext(http.MethodPost, "/sync", nil)

	handler.TriggerAll(c)
	require.Equal(t, http.StatusAccepted, w.Code)

	var envelope struct {
		Data models.SyncReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "run-all", envelope.Data.RunID)
	assert.Equal(t, models.SyncStatusQueued, envelope.Data.Status)
}

func TestSyncHandlerTriggerCourseWithoutBody(t *testing.T) {
	svc := &syncJobServiceMock{}
	handler := NewSyncHandler(svc, nil)
	c, w := newSyncContext(http.MethodPost, "/sync/courses/TDT4120", nil)
	c.Params = gin.Params{{Key: "code", Value: "TDT4120"}}

	handler.TriggerCourse(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"TDT4120"}, svc.triggered)
	assert.Equal(t, []bool{false}, svc.refreshed)
}

func TestSyncHandlerTriggerCourseRefresh(t *testing.T) {
	svc := &syncJobServiceMock{}
	handler := NewSyncHandler(svc, nil)
	c, w := newSyncContext(http.MethodPost, "/sync/courses/TDT4120", []byte(`{"refresh":true}`))
	c.Params = gin.Params{{Key: "code", Value: "TDT4120"}}

	handler.TriggerCourse(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []bool{true}, svc.refreshed)
}

func TestSyncHandlerTriggerCourseInvalidCode(t *testing.T) {
	svc := &syncJobServiceMock{err: appErrors.Clone(appErrors.ErrInvalidCourseCode, "invalid course code")}
	handler := NewSyncHandler(svc, nil)
	c, w := newSyncContext(http.MethodPost, "/sync/courses/bad", nil)
	c.Params = gin.Params{{Key: "code", Value: "TDT/4120"}}

	handler.TriggerCourse(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_COURSE_CODE")
}

func TestSyncHandlerTriggerBatch(t *testing.T) {
	svc := &syncJobServiceMock{}
	handler := NewSyncHandler(svc, nil)
	c, w := newSyncContext(http.MethodPost, "/sync/courses", []byte(`{"codes":["TDT4120","TMA4100"]}`))

	handler.TriggerBatch(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"TDT4120", "TMA4100"}, svc.triggered)
}

func TestSyncHandlerTriggerBatchRejectsEmptyList(t *testing.T) {
	svc := &syncJobServiceMock{}
	handler := NewSyncHandler(svc, nil)
	c, w := newSyncContext(http.MethodPost, "/sync/courses", []byte(`{"codes":[]}`))

	handler.TriggerBatch(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.triggered)
}

func TestSyncHandlerQueueUnavailable(t *testing.T) {
	svc := &syncJobServiceMock{err: appErrors.Clone(appErrors.ErrQueueUnavailable, "sync worker is not running")}
	handler := NewSyncHandler(svc, nil)
	c, w := newSyncContext(http.MethodPost, "/sync", nil)

	handler.TriggerAll(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSyncHandlerReport(t *testing.T) {
	svc := &syncJobServiceMock{reports: map[string]*models.SyncReport{
		"run-1": {RunID: "run-1", Status: models.SyncStatusCompleted, Processed: 4},
	}}
	handler := NewSyncHandler(svc, nil)

	c, w := newSyncContext(http.MethodGet, "/sync/runs/run-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "run-1"}}
	handler.Report(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"processed":4`)

	c, w = newSyncContext(http.MethodGet, "/sync/runs/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Report(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSyncHandlerTriggerSitting(t *testing.T) {
	svc := &syncJobServiceMock{}
	handler := NewSyncHandler(svc, nil)
	c, w := newSyncContext(http.MethodPost, "/sync/courses/TDT4120/sittings", []byte(`{"year":2022,"semester":"AUTUMN"}`))
	c.Params = gin.Params{{Key: "code", Value: "TDT4120"}}

	handler.TriggerSitting(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"TDT4120/2022/AUTUMN"}, svc.triggered)
}

func TestSyncHandlerTriggerSittingValidation(t *testing.T) {
	bodies := map[string]string{
		"missing year":     `{"semester":"SPRING"}`,
		"unknown semester": `{"year":2022,"semester":"WINTER"}`,
		"malformed":        `{"year":`,
	}
	for name, body := range bodies {
		svc := &syncJobServiceMock{}
		handler := NewSyncHandler(svc, nil)
		c, w := newSyncContext(http.MethodPost, "/sync/courses/TDT4120/sittings", []byte(body))
		c.Params = gin.Params{{Key: "code", Value: "TDT4120"}}

		handler.TriggerSitting(c)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
		assert.Empty(t, svc.triggered, name)
	}
}
