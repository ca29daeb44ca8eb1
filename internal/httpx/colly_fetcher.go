package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
)

// CollyFetcher wraps Colly for HTML page fetching. The caller's context is
// bound to each request, so cancelling it aborts a fetch in flight as well as
// any pending retry. Response bodies are read in full, with no size cap.
type CollyFetcher struct {
	userAgent     string
	timeout       time.Duration
	retries       int
	respectRobots bool
}

func NewCollyFetcher(opts Options) *CollyFetcher {
	opts = opts.withDefaults()
	return &CollyFetcher{
		userAgent:     opts.UserAgent,
		timeout:       opts.Timeout,
		retries:       opts.RetryCount,
		respectRobots: opts.RespectRobots,
	}
}

// FetchBytes returns the body of rawURL. Any failure, including a status
// of 400 or above, is reported as *FetchError.
func (f *CollyFetcher) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte
	_, err := f.fetchWithRetry(ctx, rawURL, func(c *colly.Collector) {
		c.OnResponse(func(r *colly.Response) {
			body = append([]byte(nil), r.Body...)
		})
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (f *CollyFetcher) fetchWithRetry(ctx context.Context, rawURL string, register func(*colly.Collector)) (int, error) {
	target, err := normalizeURL(rawURL)
	if err != nil {
		return 0, &FetchError{Err: err}
	}

	var lastErr error
	var status int
	for attempt := 0; attempt <= f.retries; attempt++ {
		if ctx.Err() != nil {
			return 0, &FetchError{Err: ctx.Err()}
		}
		status, lastErr = f.fetchOnce(ctx, target, register)
		if lastErr == nil {
			return status, nil
		}
		if attempt == f.retries || (status != 0 && !shouldBackoff(status)) {
			break
		}
		delay := time.Duration(500*(1<<attempt)) * time.Millisecond
		if err := sleepWithContext(ctx, delay); err != nil {
			return status, &FetchError{Status: status, Err: err}
		}
	}

	if lastErr == nil {
		lastErr = errors.New("colly fetch failed")
	}
	return status, &FetchError{Status: status, Err: lastErr}
}

func (f *CollyFetcher) fetchOnce(ctx context.Context, target string, register func(*colly.Collector)) (int, error) {
	c := f.newCollector(ctx)
	if register != nil {
		register(c)
	}

	status := 0
	var reqErr error
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		reqErr = err
	})

	if err := c.Request(http.MethodGet, target, nil, colly.NewContext(), nil); err != nil {
		return status, err
	}
	if ctx.Err() != nil {
		return status, ctx.Err()
	}
	if reqErr != nil {
		return status, reqErr
	}
	if status >= 400 {
		return status, fmt.Errorf("status %d", status)
	}
	if status == 0 {
		status = http.StatusOK
	}
	return status, nil
}

func (f *CollyFetcher) newCollector(ctx context.Context) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(f.userAgent),
		colly.StdlibContext(ctx),
		colly.MaxBodySize(0),
	)
	c.IgnoreRobotsTxt = !f.respectRobots
	c.SetRequestTimeout(f.timeout)
	return c
}

func normalizeURL(rawURL string) (string, error) {
	if rawURL == "" {
		return "", errors.New("empty url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	return u.String(), nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
