package caseguard

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one counter in [Metrics].
type MetricID uint16

const (
	MetricAuthzAllowed MetricID = iota
	MetricAuthzDenied
	MetricLoginSuccess
	MetricLoginFailure
	MetricAccountLocked
	MetricUserCreated
	MetricUserDuplicate
	MetricStatusToggled
	MetricPermissionsUpdated
	MetricRoleChanged
	MetricProfileUpdated
	MetricPasswordChanged
	MetricActivityLogged
	MetricAuditRecorded
	MetricAuditFailed
	MetricAuditDropped
	MetricAuthorizeLatency
	metricIDCount
)

// latencyBoundsMs are the inclusive upper bounds of the authorization latency
// buckets. A final overflow bucket catches everything above the last bound.
var latencyBoundsMs = [...]int64{5, 10, 25, 50, 100, 250, 500}

const latencyBuckets = len(latencyBoundsMs) + 1

// counterSlot keeps each counter on its own cache line so that hot counters
// bumped from different goroutines do not contend.
type counterSlot struct {
	n atomic.Uint64
	_ [56]byte
}

// Metrics is a fixed block of lock-free counters plus one latency histogram.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled bool
	latency bool
	slots   [metricIDCount]counterSlot
	hist    [latencyBuckets]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool { return m != nil && m.enabled }

func (m *Metrics) LatencyEnabled() bool { return m != nil && m.latency }

func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount {
		return
	}
	m.slots[id].n.Add(1)
}

// Observe records d in the histogram of id. Only MetricAuthorizeLatency has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricAuthorizeLatency {
		return
	}
	m.hist[latencyBucket(d)].Add(1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.slots[id].n.Load()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return snap
	}

	for id := range metricIDCount {
		if id != MetricAuthorizeLatency {
			snap.Counters[id] = m.slots[id].n.Load()
		}
	}
	if m.latency {
		buckets := make([]uint64, latencyBuckets)
		for i := range buckets {
			buckets[i] = m.hist[i].Load()
		}
		snap.Histograms[MetricAuthorizeLatency] = buckets
	}
	return snap
}

func latencyBucket(d time.Duration) int {
	ms := d.Milliseconds()
	for i, bound := range latencyBoundsMs {
		if ms <= bound {
			return i
		}
	}
	return len(latencyBoundsMs)
}
