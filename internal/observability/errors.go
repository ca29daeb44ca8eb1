package observability

import (
	"context"
	"errors"
	"net/http"

	"github.com/baxromumarov/nowcoder-search/internal/httpx"
	"github.com/baxromumarov/nowcoder-search/internal/scraper"
)

const (
	ErrorValidation = "validation"
	ErrorNetwork    = "network"
	ErrorTimeout    = "timeout"
	ErrorRateLimit  = "rate_limit"
	ErrorUpstream   = "upstream"
	ErrorNotFound   = "not_found"
	ErrorUnknown    = "unknown"
)

// ClassifyFetchError labels transport failures. It returns ErrorUnknown when
// err carries no transport information.
func ClassifyFetchError(err error) string {
	if err == nil {
		return ErrorUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	var fe *httpx.FetchError
	if errors.As(err, &fe) {
		if fe.Status == http.StatusTooManyRequests {
			return ErrorRateLimit
		}
		return ErrorNetwork
	}
	return ErrorUnknown
}

// ClassifyError maps any error to a metrics label.
func ClassifyError(err error) string {
	if err == nil {
		return ErrorUnknown
	}
	switch scraper.KindOf(err) {
	case scraper.ErrorValidation:
		return ErrorValidation
	case scraper.ErrorNotFound:
		return ErrorNotFound
	case scraper.ErrorUpstream:
		return ErrorUpstream
	case scraper.ErrorNetwork:
		if kind := ClassifyFetchError(err); kind != ErrorUnknown {
			return kind
		}
		return ErrorNetwork
	}
	return ClassifyFetchError(err)
}
