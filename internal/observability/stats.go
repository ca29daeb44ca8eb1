package observability

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

type StatsSnapshot struct {
	UpstreamRequests  uint64            `json:"upstream_requests"`
	PagesFetched      uint64            `json:"pages_fetched"`
	PagesSkipped      uint64            `json:"pages_skipped"`
	RecordsMerged     uint64            `json:"records_merged"`
	ToolCalls         uint64            `json:"tool_calls"`
	ErrorsTotal       uint64            `json:"errors_total"`
	ToolSecondsAvg    float64           `json:"tool_seconds_avg"`
	ToolCallsByName   map[string]uint64 `json:"tool_calls_by_name,omitempty"`
	ErrorsByType      map[string]uint64 `json:"errors_by_type,omitempty"`
	ErrorsByComponent map[string]uint64 `json:"errors_by_component,omitempty"`
}

var (
	upstreamRequests uint64
	pagesFetched     uint64
	pagesSkipped     uint64
	recordsMerged    uint64
	toolCalls        uint64
	errorsTotal      uint64

	toolCount uint64
	toolNanos uint64

	statsMu           sync.Mutex
	toolCallsByName   = map[string]uint64{}
	errorsByType      = map[string]uint64{}
	errorsByComponent = map[string]uint64{}
)

var (
	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nowcoder",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Outbound requests to the NowCoder endpoints",
		},
		[]string{"endpoint", "status"},
	)

	searchPagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nowcoder",
			Subsystem: "search",
			Name:      "pages_total",
			Help:      "Search result pages by outcome",
		},
		[]string{"outcome"},
	)

	recordsMergedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nowcoder",
			Subsystem: "search",
			Name:      "records_merged_total",
			Help:      "Records appended while merging pages",
		},
	)

	toolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nowcoder",
			Subsystem: "mcp",
			Name:      "tool_calls_total",
			Help:      "Tool invocations",
		},
		[]string{"tool", "status"},
	)

	toolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nowcoder",
			Subsystem: "mcp",
			Name:      "tool_duration_seconds",
			Help:      "Tool execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"tool"},
	)

	errorsTotalVec = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nowcoder",
			Name:      "errors_total",
			Help:      "Errors by kind and component",
		},
		[]string{"kind", "component"},
	)

	registerOnce sync.Once
	registerErr  error
)

// RegisterMetrics adds the collectors to reg (the default registerer when nil).
// Only the first call has any effect.
func RegisterMetrics(reg prometheus.Registerer) error {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		for _, c := range []prometheus.Collector{
			upstreamRequestsTotal,
			searchPagesTotal,
			recordsMergedTotal,
			toolCallsTotal,
			toolDuration,
			errorsTotalVec,
		} {
			if err := reg.Register(c); err != nil {
				registerErr = err
				return
			}
		}
	})
	return registerErr
}

// ObserveUpstream records one outbound request. status 0 means no response.
func ObserveUpstream(endpoint string, status int) {
	atomic.AddUint64(&upstreamRequests, 1)
	upstreamRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

func IncPageFetched() {
	atomic.AddUint64(&pagesFetched, 1)
	searchPagesTotal.WithLabelValues("fetched").Inc()
}

func IncPageSkipped() {
	atomic.AddUint64(&pagesSkipped, 1)
	searchPagesTotal.WithLabelValues("skipped").Inc()
}

func AddRecordsMerged(n int) {
	if n <= 0 {
		return
	}
	atomic.AddUint64(&recordsMerged, uint64(n))
	recordsMergedTotal.Add(float64(n))
}

// ObserveToolCall records a finished tool invocation.
func ObserveToolCall(tool, status string, seconds float64) {
	if status == "" {
		status = "unknown"
	}
	atomic.AddUint64(&toolCalls, 1)
	statsMu.Lock()
	toolCallsByName[tool]++
	statsMu.Unlock()
	toolCallsTotal.WithLabelValues(tool, status).Inc()

	if seconds <= 0 {
		return
	}
	atomic.AddUint64(&toolCount, 1)
	atomic.AddUint64(&toolNanos, uint64(seconds*1e9))
	toolDuration.WithLabelValues(tool).Observe(seconds)
}

func IncError(errType, component string) {
	if errType == "" {
		errType = ErrorUnknown
	}
	if component == "" {
		component = "unknown"
	}
	atomic.AddUint64(&errorsTotal, 1)
	statsMu.Lock()
	errorsByType[errType]++
	errorsByComponent[component]++
	statsMu.Unlock()
	errorsTotalVec.WithLabelValues(errType, component).Inc()
}

func Snapshot() StatsSnapshot {
	statsMu.Lock()
	toolCopy := copyMap(toolCallsByName)
	errorsTypeCopy := copyMap(errorsByType)
	errorsComponentCopy := copyMap(errorsByComponent)
	statsMu.Unlock()

	count := atomic.LoadUint64(&toolCount)
	avg := 0.0
	if count > 0 {
		avg = float64(atomic.LoadUint64(&toolNanos)) / float64(count) / 1e9
	}

	return StatsSnapshot{
		UpstreamRequests:  atomic.LoadUint64(&upstreamRequests),
		PagesFetched:      atomic.LoadUint64(&pagesFetched),
		PagesSkipped:      atomic.LoadUint64(&pagesSkipped),
		RecordsMerged:     atomic.LoadUint64(&recordsMerged),
		ToolCalls:         atomic.LoadUint64(&toolCalls),
		ErrorsTotal:       atomic.LoadUint64(&errorsTotal),
		ToolSecondsAvg:    avg,
		ToolCallsByName:   toolCopy,
		ErrorsByType:      errorsTypeCopy,
		ErrorsByComponent: errorsComponentCopy,
	}
}

func copyMap(src map[string]uint64) map[string]uint64 {
	if len(src) == 0 {
		return map[string]uint64{}
	}
	out := make(map[string]uint64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
