// Package coursepages scrapes the public course description pages.
package coursepages

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/gradestats-sync/internal/external/httpclient"
	"github.com/noah-isme/gradestats-sync/internal/models"
	"github.com/noah-isme/gradestats-sync/pkg/config"
)

// Client fetches the Norwegian and English pages of a course.
type Client struct {
	http   *httpclient.Client
	noBase string
	enBase string
	logger *zap.Logger
	flight singleflight.Group
}

// NewClient constructs a scraper from configuration.
func NewClient(cfg config.CoursePagesConfig, logger *zap.Logger, observer httpclient.Observer) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http: httpclient.New("course_pages", httpclient.Options{
			Timeout:       cfg.Timeout,
			MaxRetries:    cfg.MaxRetries,
			RetryWaitMin:  cfg.RetryWaitMin,
			RetryWaitMax:  cfg.RetryWaitMax,
			RatePerSecond: cfg.RatePerSecond,
		}, logger, observer),
		noBase: cfg.NorwegianBaseURL,
		enBase: cfg.EnglishBaseURL,
		logger: logger,
	}
}

// CourseSnapshot returns the course page for a year, or the current page when
// year is 0. A nil snapshot with a nil error means there is no page for that year.
func (c *Client) CourseSnapshot(ctx context.Context, code string, year int) (*models.CourseSnapshot, error) {
	key := code + "/" + strconv.Itoa(year)
	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		return c.scrape(ctx, code, year)
	})
	if err != nil {
		return nil, err
	}
	snapshot, _ := v.(*models.CourseSnapshot)
	if snapshot == nil {
		return nil, nil
	}
	copied := *snapshot
	return &copied, nil
}

func (c *Client) scrape(ctx context.Context, code string, year int) (*models.CourseSnapshot, error) {
	log := c.logger.With(zap.String("course", code), zap.Int("year", year))

	docNO, err := c.fetch(ctx, pageURL(c.noBase, code, year))
	if err != nil {
		return nil, err
	}
	if docNO == nil {
		log.Debug("course page missing")
		return nil, nil
	}

	details := docNO.Find("div#course-details").First()
	if details.Length() == 0 {
		log.Warn("course page without details block")
		return nil, nil
	}
	if strings.TrimSpace(details.Find("h1").First().Text()) == noContentTitle {
		log.Debug("no info found for course")
		return nil, nil
	}
	if strings.Contains(details.Text(), noLongerTaughtText) {
		log.Debug("course not taught")
		return nil, nil
	}

	docEN, err := c.fetch(ctx, pageURL(c.enBase, code, year))
	if err != nil {
		log.Warn("english course page unavailable", zap.Error(err))
		docEN = nil
	}

	facts := parseFacts(docNO)
	snapshot := &models.CourseSnapshot{
		Code:              code,
		Year:              year,
		NorwegianName:     courseName(docNO),
		EnglishName:       courseName(docEN),
		Credit:            facts.credit,
		StudyLevel:        facts.studyLevel,
		TaughtInSpring:    facts.taughtInSpring,
		TaughtInAutumn:    facts.taughtInAutumn,
		TaughtInEnglish:   facts.taughtInEnglish,
		ExamType:          facts.examType,
		GradeType:         gradeType(docNO),
		Place:             facts.place,
		HasHadDigitalExam: hasDigitalExam(docNO),
		Content:           localizedSection(docNO, docEN, "course-content-toggler"),
		LearningForm:      localizedSection(docNO, docEN, "learning-method-toggler"),
		LearningGoal:      localizedSection(docNO, docEN, "learning-goal-toggler"),
	}
	return snapshot, nil
}

func localizedSection(docNO, docEN *goquery.Document, id string) string {
	text := sectionText(docNO, id)
	if useEnglishVersion(text) {
		return sectionText(docEN, id)
	}
	return text
}

func pageURL(base, code string, year int) string {
	u := base + "/" + code
	if year > 0 {
		u += "/" + strconv.Itoa(year)
	}
	return u
}

// fetch returns nil without error when the page does not exist.
func (c *Client) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(normalizeSpaces(string(body))))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}
