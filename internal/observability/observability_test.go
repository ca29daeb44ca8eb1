package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/nowcoder-search/internal/httpx"
	"github.com/baxromumarov/nowcoder-search/internal/scraper"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ErrorUnknown},
		{"plain", errors.New("boom"), ErrorUnknown},
		{"validation", scraper.ValidateFilters(999, ""), ErrorValidation},
		{"upstream", scraper.UpstreamError("search", "bad"), ErrorUpstream},
		{"not found", &scraper.Error{Kind: scraper.ErrorNotFound}, ErrorNotFound},
		{"network", &scraper.Error{Kind: scraper.ErrorNetwork, Err: &httpx.FetchError{Status: 502}}, ErrorNetwork},
		{"rate limited", &scraper.Error{Kind: scraper.ErrorNetwork, Err: &httpx.FetchError{Status: http.StatusTooManyRequests}}, ErrorRateLimit},
		{"timeout", &scraper.Error{Kind: scraper.ErrorNetwork, Err: &httpx.FetchError{Err: fmt.Errorf("get: %w", context.DeadlineExceeded)}}, ErrorTimeout},
		{"bare fetch error", &httpx.FetchError{Status: 500}, ErrorNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestSnapshotCounters(t *testing.T) {
	before := Snapshot()

	ObserveUpstream("search", 200)
	IncPageFetched()
	IncPageSkipped()
	AddRecordsMerged(3)
	AddRecordsMerged(0)
	ObserveToolCall("search", "ok", 0.5)
	IncError(ErrorNetwork, "search")

	after := Snapshot()
	assert.Equal(t, before.UpstreamRequests+1, after.UpstreamRequests)
	assert.Equal(t, before.PagesFetched+1, after.PagesFetched)
	assert.Equal(t, before.PagesSkipped+1, after.PagesSkipped)
	assert.Equal(t, before.RecordsMerged+3, after.RecordsMerged)
	assert.Equal(t, before.ToolCalls+1, after.ToolCalls)
	assert.Equal(t, before.ErrorsTotal+1, after.ErrorsTotal)
	assert.Equal(t, before.ToolCallsByName["search"]+1, after.ToolCallsByName["search"])
	assert.Equal(t, before.ErrorsByComponent["search"]+1, after.ErrorsByComponent["search"])
	assert.Greater(t, after.ToolSecondsAvg, 0.0)
}

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterMetrics(reg))
	require.NoError(t, RegisterMetrics(reg))

	ObserveUpstream("discuss_detail", 404)

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() != "nowcoder_upstream_requests_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["endpoint"] == "discuss_detail" && labels["status"] == "404" {
				found = m.GetCounter().GetValue() >= 1
			}
		}
	}
	assert.True(t, found)
}
