package bench

import (
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Metrics aggregates latency and outcome counts across iterations.
// Recording is safe for concurrent workers.
type Metrics struct {
	mu        sync.Mutex
	histogram *hdrhistogram.Histogram
	perCase   map[string]*caseMetrics

	total   int64
	success int64
	errors  int64

	startTime time.Time
	endTime   time.Time
}

type caseMetrics struct {
	histogram *hdrhistogram.Histogram
	total     int64
	success   int64
	errors    int64
}

// histogram range: 1us to 60s, 3 significant digits
func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(1, 60_000_000, 3)
}

func NewMetrics() *Metrics {
	return &Metrics{
		histogram: newHistogram(),
		perCase:   make(map[string]*caseMetrics),
	}
}

func (m *Metrics) Start() {
	m.startTime = time.Now()
}

func (m *Metrics) Stop() {
	m.endTime = time.Now()
}

// Record stores one testcase outcome.
func (m *Metrics) Record(name string, duration time.Duration, success bool, errored bool) {
	latencyUs := duration.Microseconds()
	if latencyUs < 1 {
		latencyUs = 1
	}
	if latencyUs > 60_000_000 {
		latencyUs = 60_000_000
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	switch {
	case errored:
		m.errors++
	case success:
		m.success++
	}
	_ = m.histogram.RecordValue(latencyUs)

	cm, ok := m.perCase[name]
	if !ok {
		cm = &caseMetrics{histogram: newHistogram()}
		m.perCase[name] = cm
	}
	cm.total++
	switch {
	case errored:
		cm.errors++
	case success:
		cm.success++
	}
	_ = cm.histogram.RecordValue(latencyUs)
}

// Summary is a point-in-time aggregation of the collected metrics.
type Summary struct {
	Total    int64
	Success  int64
	Errors   int64
	Failed   int64
	Duration time.Duration
	RPS      float64
	P50      time.Duration
	P95      time.Duration
	P99      time.Duration
	Max      time.Duration
	Cases    []CaseSummary
}

// CaseSummary aggregates one testcase across iterations.
type CaseSummary struct {
	Name    string
	Total   int64
	Success int64
	Errors  int64
	P50     time.Duration
	P95     time.Duration
	P99     time.Duration
}

func percentile(h *hdrhistogram.Histogram, p float64) time.Duration {
	return time.Duration(h.ValueAtQuantile(p)) * time.Microsecond
}

// Summarize snapshots the metrics.
func (m *Metrics) Summarize() *Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	elapsed := m.endTime.Sub(m.startTime)
	if m.endTime.IsZero() {
		elapsed = time.Since(m.startTime)
	}

	s := &Summary{
		Total:    m.total,
		Success:  m.success,
		Errors:   m.errors,
		Failed:   m.total - m.success - m.errors,
		Duration: elapsed,
		P50:      percentile(m.histogram, 50),
		P95:      percentile(m.histogram, 95),
		P99:      percentile(m.histogram, 99),
		Max:      time.Duration(m.histogram.Max()) * time.Microsecond,
	}
	if elapsed > 0 {
		s.RPS = float64(m.total) / elapsed.Seconds()
	}

	names := make([]string, 0, len(m.perCase))
	for name := range m.perCase {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cm := m.perCase[name]
		s.Cases = append(s.Cases, CaseSummary{
			Name:    name,
			Total:   cm.total,
			Success: cm.success,
			Errors:  cm.errors,
			P50:     percentile(cm.histogram, 50),
			P95:     percentile(cm.histogram, 95),
			P99:     percentile(cm.histogram, 99),
		})
	}

	return s
}
