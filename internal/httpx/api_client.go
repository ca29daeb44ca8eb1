package httpx

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// APIClient talks to JSON endpoints. It returns raw bodies so callers own decoding.
type APIClient struct {
	client *resty.Client
}

func NewAPIClient(opts Options) *APIClient {
	opts = opts.withDefaults()

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return resp != nil && shouldBackoff(resp.StatusCode())
		})

	return &APIClient{client: client}
}

// PostJSON sends body as JSON and returns the response body on a 2xx status.
func (c *APIClient) PostJSON(ctx context.Context, url string, body any) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json; charset=UTF-8").
		SetBody(body).
		Post(url)
	return checkResponse(resp, err)
}

// GetJSON issues a GET and returns the response body on a 2xx status.
func (c *APIClient) GetJSON(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(url)
	return checkResponse(resp, err)
}

func checkResponse(resp *resty.Response, err error) ([]byte, error) {
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode()
		}
		return nil, &FetchError{Status: status, Err: err}
	}
	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, &FetchError{Status: resp.StatusCode(), Err: fmt.Errorf("status %d", resp.StatusCode())}
	}
	return resp.Body(), nil
}
