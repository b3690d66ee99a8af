// Package httpclient builds the retrying, rate limited HTTP client shared by the
// statistics API and course page collaborators.
package httpclient

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options configures retries and pacing.
type Options struct {
	Timeout       time.Duration
	MaxRetries    int
	RetryWaitMin  time.Duration
	RetryWaitMax  time.Duration
	RatePerSecond float64
}

// Observer receives the outcome of every outbound call.
type Observer interface {
	ObserveUpstreamCall(source, outcome string, duration time.Duration)
}

// Client pairs a retrying HTTP client with a token bucket limiter.
type Client struct {
	source   string
	http     *retryablehttp.Client
	limiter  *rate.Limiter
	observer Observer
}

// New builds a client. Connection errors and 5xx responses are retried with
// exponential backoff; everything else is returned to the caller.
func New(source string, opts Options, logger *zap.Logger, observer Observer) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.MaxRetries
	if opts.RetryWaitMin > 0 {
		rc.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		rc.RetryWaitMax = opts.RetryWaitMax
	}
	if opts.Timeout > 0 {
		rc.HTTPClient.Timeout = opts.Timeout
	}
	rc.Logger = zapLeveled{logger.Sugar().With("source", source)}

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}

	return &Client{
		source:   source,
		http:     rc,
		limiter:  rate.NewLimiter(limit, 1),
		observer: observer,
	}
}

// Do waits for a rate token and executes the request with retries.
func (c *Client) Do(ctx context.Context, req *retryablehttp.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := c.http.Do(req.WithContext(ctx))
	if c.observer != nil {
		outcome := "error"
		if err == nil {
			outcome = strconv.Itoa(resp.StatusCode)
		}
		c.observer.ObserveUpstreamCall(c.source, outcome, time.Since(start))
	}
	return resp, err
}

type zapLeveled struct {
	s *zap.SugaredLogger
}

func (z zapLeveled) Error(msg string, kv ...interface{}) { z.s.Errorw(msg, kv...) }
func (z zapLeveled) Info(msg string, kv ...interface{})  { z.s.Debugw(msg, kv...) }
func (z zapLeveled) Debug(msg string, kv ...interface{}) { z.s.Debugw(msg, kv...) }
func (z zapLeveled) Warn(msg string, kv ...interface{})  { z.s.Warnw(msg, kv...) }
