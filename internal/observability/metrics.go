package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	latencyTotal map[string]time.Duration
	bookings     map[string]int64
	rejections   map[string]int64
	sweeps       map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		latencyTotal: make(map[string]time.Duration),
		bookings:     make(map[string]int64),
		rejections:   make(map[string]int64),
		sweeps:       make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.latencyTotal[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordBooking counts booking outcomes such as "created", "conflict_retry"
// or "conflict".
func (m *Metrics) RecordBooking(outcome string) {
	m.inc(func() map[string]int64 { return m.bookings }, outcome)
}

// RecordRejection counts validator rejections by reason.
func (m *Metrics) RecordRejection(reason string) {
	m.inc(func() map[string]int64 { return m.rejections }, reason)
}

// RecordSweep adds the number of expired and activated reservations.
func (m *Metrics) RecordSweep(expired, activated int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweeps["runs"]++
	m.sweeps["expired"] += int64(expired)
	m.sweeps["activated"] += int64(activated)
}

func (m *Metrics) inc(target func() map[string]int64, key string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	target()[key]++
}

// RequestStat is one row of the request table.
type RequestStat struct {
	Key       string  `json:"key"`
	Count     int64   `json:"count"`
	AvgMillis float64 `json:"avg_ms"`
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Requests   []RequestStat    `json:"requests"`
	Errors     map[string]int64 `json:"errors"`
	Bookings   map[string]int64 `json:"bookings"`
	Rejections map[string]int64 `json:"rejections"`
	Sweeps     map[string]int64 `json:"sweeps"`
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	requests := make([]RequestStat, 0, len(m.requestCount))
	for key, count := range m.requestCount {
		stat := RequestStat{Key: key, Count: count}
		if count > 0 {
			stat.AvgMillis = float64(m.latencyTotal[key].Milliseconds()) / float64(count)
		}
		requests = append(requests, stat)
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].Key < requests[j].Key })

	return Snapshot{
		Requests:   requests,
		Errors:     copyCounts(m.errorCount),
		Bookings:   copyCounts(m.bookings),
		Rejections: copyCounts(m.rejections),
		Sweeps:     copyCounts(m.sweeps),
	}
}

func copyCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
