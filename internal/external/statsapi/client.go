// Package statsapi talks to the tabular statistics API that publishes course
// and grade facts for the institution.
package statsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/noah-isme/gradestats-sync/internal/external/httpclient"
	"github.com/noah-isme/gradestats-sync/internal/models"
	"github.com/noah-isme/gradestats-sync/pkg/config"
)

const tablePath = "/api/Tabeller/hentJSONTabellData"

// Client queries the grade (308) and course (208) tables.
type Client struct {
	http          *httpclient.Client
	baseURL       string
	institutionID int
	logger        *zap.Logger
}

// NewClient constructs a client from configuration.
func NewClient(cfg config.StatsAPIConfig, logger *zap.Logger, observer httpclient.Observer) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http: httpclient.New("stats_api", httpclient.Options{
			Timeout:       cfg.Timeout,
			MaxRetries:    cfg.MaxRetries,
			RetryWaitMin:  cfg.RetryWaitMin,
			RetryWaitMax:  cfg.RetryWaitMax,
			RatePerSecond: cfg.RatePerSecond,
		}, logger, observer),
		baseURL:       cfg.BaseURL,
		institutionID: cfg.InstitutionID,
		logger:        logger,
	}
}

// InstitutionID returns the institution the client is scoped to.
func (c *Client) InstitutionID() int {
	return c.institutionID
}

// Query posts a query document. A body that is not a JSON array yields no rows.
func (c *Client) Query(ctx context.Context, q Query) ([]RawRow, error) {
	payload, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tablePath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("query table %d: %w", q.TableID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read table %d: %w", q.TableID, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("query table %d: status %d", q.TableID, resp.StatusCode)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var rows []RawRow
	if err := dec.Decode(&rows); err != nil {
		c.logger.Warn("stats api returned non-json body", zap.Int("table", q.TableID), zap.Error(err))
		return []RawRow{}, nil
	}
	return rows, nil
}

var gradeGroupBy = []string{FieldInstitution, FieldCourseCode, FieldGrade, FieldYear, FieldSemester, FieldDepartment}

// GradesForCourse returns every grade row for all versions of a course.
func (c *Client) GradesForCourse(ctx context.Context, code string) ([]RawRow, error) {
	q := BuildQuery(TableGrades, gradeGroupBy, []string{FieldCourseCode, FieldYear, FieldSemester},
		[]Filter{InstitutionFilter(c.institutionID), CourseFilter(code)}, 0)
	return c.Query(ctx, q)
}

// GradesForSemester returns grade rows for one sitting.
func (c *Client) GradesForSemester(ctx context.Context, code string, year int, semester models.Semester) ([]RawRow, error) {
	q := BuildQuery(TableGrades,
		[]string{FieldInstitution, FieldDepartment, FieldCourseCode, FieldGrade},
		[]string{FieldInstitution, FieldDepartment},
		[]Filter{SemesterFilter(semester), InstitutionFilter(c.institutionID), CourseFilter(code), YearFilter(year)}, 0)
	return c.Query(ctx, q)
}

// AllGrades returns every grade row for the institution, sorted by course, year and semester.
func (c *Client) AllGrades(ctx context.Context) ([]RawRow, error) {
	q := BuildQuery(TableGrades, gradeGroupBy, []string{FieldCourseCode, FieldYear, FieldSemester},
		[]Filter{InstitutionFilter(c.institutionID)}, 0)
	return c.Query(ctx, q)
}

// Course returns the status rows of one course.
func (c *Client) Course(ctx context.Context, code string) ([]RawRow, error) {
	q := BuildQuery(TableCourses, nil, []string{FieldYear, FieldSemester},
		[]Filter{InstitutionFilter(c.institutionID), TaskFilter(), CourseFilter(code)}, 0)
	return c.Query(ctx, q)
}

// AllCourses returns the status rows of every course.
func (c *Client) AllCourses(ctx context.Context) ([]RawRow, error) {
	q := BuildQuery(TableCourses, nil, []string{FieldCourseCode, FieldYear, FieldSemester},
		[]Filter{InstitutionFilter(c.institutionID), TaskFilter()}, 0)
	return c.Query(ctx, q)
}
