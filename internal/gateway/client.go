// Package gateway talks to the digest backend over HTTP/JSON.
//
// It keeps no state about Days: every call goes to the network and callers decide
// what to do with the result.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"newsdays/internal/model"
)

const (
	OpListDays        = "list days"
	OpGetDay          = "get day"
	OpRefreshSource   = "refresh newsletters"
	OpRegenerateDay   = "regenerate day summary"
	summaryField      = "summary"
	maxDrainBytes     = 64 << 10
	defaultTimeout    = 15 * time.Second
	listDaysFlightKey = "days"
)

// Options configures a Client. Only BaseURL is required.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// Timeout applies when HTTPClient is nil.
	Timeout time.Duration
	// SummaryRate limits summary regenerations per second; 0 disables the limit.
	SummaryRate  float64
	SummaryBurst int
	Logger       *zap.Logger
	Metrics      *Metrics
}

type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
	flight  singleflight.Group
	log     *zap.Logger
	metrics *Metrics
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("gateway: base URL is required")
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("gateway: parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("gateway: base URL must be http or https, got %q", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		base:    base,
		http:    hc,
		log:     logger.Named("gateway"),
		metrics: opts.Metrics,
	}
	if opts.SummaryRate > 0 {
		burst := opts.SummaryBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.SummaryRate), burst)
	}
	return c, nil
}

// ListDays fetches the full current snapshot. Concurrent callers share one request;
// the returned Days must be treated as read-only.
func (c *Client) ListDays(ctx context.Context) ([]*model.Day, error) {
	ch := c.flight.DoChan(listDaysFlightKey, func() (any, error) {
		// Detached from any single caller so one caller giving up does not fail the rest.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.requestTimeout())
		defer cancel()
		var days []*model.Day
		err := c.do(fctx, OpListDays, http.MethodGet, c.endpoint("api/v1/days"), &days)
		return days, err
	})
	select {
	case <-ctx.Done():
		return nil, networkError(OpListDays, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		days := res.Val.([]*model.Day)
		for i, d := range days {
			if d == nil {
				return nil, contractError(OpListDays, fmt.Sprintf("day at index %d is null", i), nil)
			}
		}
		return days, nil
	}
}

// GetDay fetches a single Day with all its newsletters.
func (c *Client) GetDay(ctx context.Context, id model.ID) (*model.Day, error) {
	var day model.Day
	if err := c.do(ctx, OpGetDay, http.MethodGet, c.endpoint("api/v1/days", url.PathEscape(string(id))), &day); err != nil {
		return nil, err
	}
	if day.ID != id {
		return nil, contractError(OpGetDay, fmt.Sprintf("asked for day %s, got %s", id, day.ID), nil)
	}
	return &day, nil
}

// RefreshSource asks the backend to ingest new newsletters. The response body is discarded.
func (c *Client) RefreshSource(ctx context.Context) error {
	return c.do(ctx, OpRefreshSource, http.MethodGet, c.endpoint("api/v1/newsletter/"), nil)
}

// RegenerateDaySummary triggers summary regeneration for one Day and returns only the
// new summary. The response must carry the "summary" field; any other spelling is
// reported as a contract violation rather than guessed at.
func (c *Client) RegenerateDaySummary(ctx context.Context, id model.ID) (model.Summary, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return model.NoSummary, networkError(OpRegenerateDay, fmt.Errorf("rate limit wait: %w", err))
		}
	}

	var body map[string]json.RawMessage
	target := c.endpoint("api/v1/days", url.PathEscape(string(id)), "summarize")
	if err := c.do(ctx, OpRegenerateDay, http.MethodPost, target, &body); err != nil {
		return model.NoSummary, err
	}
	raw, ok := body[summaryField]
	if !ok {
		keys := make([]string, 0, len(body))
		for k := range body {
			keys = append(keys, k)
		}
		c.log.Warn("summary response without canonical field",
			zap.String("day_id", string(id)), zap.Strings("fields", keys))
		return model.NoSummary, contractError(OpRegenerateDay,
			fmt.Sprintf("response has no %q field (got %s)", summaryField, strings.Join(keys, ", ")), nil)
	}
	var s model.Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return model.NoSummary, contractError(OpRegenerateDay, "decode summary", err)
	}
	return s, nil
}

func (c *Client) endpoint(elem ...string) string {
	return c.base.JoinPath(elem...).String()
}

func (c *Client) requestTimeout() time.Duration {
	if c.http.Timeout > 0 {
		return c.http.Timeout
	}
	return defaultTimeout
}

// do issues one request. A nil out means the body is read and dropped.
// Bodies of failed responses are never decoded.
func (c *Client) do(ctx context.Context, op, method, target string, out any) (err error) {
	start := time.Now()
	status := 0
	defer func() {
		c.metrics.observe(op, start, err)
		fields := []zap.Field{
			zap.String("op", op),
			zap.String("url", target),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			c.log.Warn("request failed", append(fields, zap.Error(err))...)
			return
		}
		c.log.Debug("request", fields...)
	}()

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return networkError(op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return networkError(op, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		return statusError(op, resp.StatusCode)
	}
	if out == nil {
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			return networkError(op, fmt.Errorf("read body: %w", err))
		}
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return networkError(op, fmt.Errorf("read body: %w", err))
		}
		return contractError(op, "decode response", err)
	}
	return nil
}
