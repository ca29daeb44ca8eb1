package httpx

import (
	"fmt"
	"net/http"
	"time"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultTimeout   = 30 * time.Second
	MaxRetryCount    = 5
)

// Options configures the outbound clients. The zero value means one attempt
// per request with the default timeout and user agent.
type Options struct {
	UserAgent     string
	Timeout       time.Duration
	RetryCount    int
	RespectRobots bool
}

func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.RetryCount < 0 {
		o.RetryCount = 0
	}
	if o.RetryCount > MaxRetryCount {
		o.RetryCount = MaxRetryCount
	}
	return o
}

// FetchError is returned for transport failures and non-success statuses.
// Status is 0 when no response was received.
type FetchError struct {
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch error (status %d)", e.Status)
	}
	return fmt.Sprintf("fetch error (status %d): %v", e.Status, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func shouldBackoff(status int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500 && status <= 599
}
