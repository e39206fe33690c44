package caseguard

import (
	"time"

	"github.com/MrEthical07/caseguard/password"
	"github.com/rs/zerolog"
)

// Engine is the access-control core: it authenticates logins, authorizes resource
// access against per-user permission matrices, manages accounts, and owns the
// audit recorder. Build one with [Builder].
type Engine struct {
	config       Config
	users        UserStore
	records      RecordStore
	passwordHash *password.Argon2
	recorder     *AuditRecorder
	metrics      *Metrics
	logger       zerolog.Logger
	now          func() time.Time
}

// Close drains the audit recorder.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.recorder.Close()
}

// AuditRecorder returns the recorder shared by the HTTP audit stage.
func (e *Engine) AuditRecorder() *AuditRecorder {
	if e == nil {
		return nil
	}
	return e.recorder
}

// AuditDropped returns the number of audit records rejected by a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.recorder.Dropped()
}

// Metrics returns the engine counters, which may be nil when disabled.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Logger returns the engine logger.
func (e *Engine) Logger() zerolog.Logger {
	if e == nil {
		return zerolog.Nop()
	}
	return e.logger
}

// Users returns the underlying account store.
func (e *Engine) Users() UserStore {
	return e.users
}

// Records returns the underlying audit and activity store.
func (e *Engine) Records() RecordStore {
	return e.records
}

func (e *Engine) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now().UTC()
}
