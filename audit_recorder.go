package caseguard

import (
	"context"
	"time"

	"github.com/MrEthical07/caseguard/internal"
	internalaudit "github.com/MrEthical07/caseguard/internal/audit"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

const auditWriteTimeout = 5 * time.Second

// AuditRecorder persists audit records off the request path. Record never blocks
// the caller when DropIfFull is set and never reports persistence failures; those
// are logged and counted.
type AuditRecorder struct {
	dispatcher *internalaudit.Dispatcher[AuditRecord]
	store      RecordStore
	breaker    *gobreaker.CircuitBreaker[struct{}]
	sink       AuditSink
	logger     zerolog.Logger
	metrics    *Metrics
	maxBody    int64
}

// NewAuditRecorder starts the background worker. A nil store only emits to sink.
func NewAuditRecorder(cfg AuditConfig, store RecordStore, sink AuditSink, logger zerolog.Logger, metrics *Metrics) *AuditRecorder {
	if sink == nil {
		sink = NoOpSink{}
	}
	r := &AuditRecorder{
		store:   store,
		sink:    sink,
		logger:  logger.With().Str("component", "audit").Logger(),
		metrics: metrics,
		maxBody: cfg.MaxBodyBytes,
	}

	maxFailures := cfg.Breaker.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	r.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "audit-store",
		Timeout: cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("audit persistence breaker state changed")
		},
	})

	r.dispatcher = internalaudit.NewDispatcher[AuditRecord](internalaudit.Config{
		Enabled:    cfg.Enabled,
		BufferSize: cfg.BufferSize,
		DropIfFull: cfg.DropIfFull,
	}, internalaudit.SinkFunc[AuditRecord](r.persist))

	return r
}

// Record enqueues rec for persistence, filling ID and Timestamp when empty.
func (r *AuditRecorder) Record(ctx context.Context, rec AuditRecord) {
	if r == nil || r.dispatcher == nil {
		return
	}
	if rec.ID == "" {
		rec.ID = internal.NewObjectID()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if !r.dispatcher.Emit(ctx, rec) {
		r.metrics.Inc(MetricAuditDropped)
	}
}

func (r *AuditRecorder) persist(ctx context.Context, rec AuditRecord) {
	if r.store != nil {
		_, err := r.breaker.Execute(func() (struct{}, error) {
			writeCtx, cancel := context.WithTimeout(ctx, auditWriteTimeout)
			defer cancel()
			return struct{}{}, r.store.AppendAudit(writeCtx, rec)
		})
		if err != nil {
			r.metrics.Inc(MetricAuditFailed)
			r.logger.Error().Err(err).
				Str("audit_id", rec.ID).
				Str("action", rec.Action).
				Str("resource", rec.Resource).
				Msg("audit record not persisted")
		} else {
			r.metrics.Inc(MetricAuditRecorded)
		}
	}
	r.sink.Emit(ctx, rec)
}

// MaxBodyBytes is the request body budget for the sanitized snapshot.
func (r *AuditRecorder) MaxBodyBytes() int64 {
	if r == nil {
		return 0
	}
	return r.maxBody
}

// Enabled reports whether records are accepted.
func (r *AuditRecorder) Enabled() bool {
	return r != nil && r.dispatcher != nil
}

// Dropped returns the number of records rejected because the buffer was full.
func (r *AuditRecorder) Dropped() uint64 {
	if r == nil {
		return 0
	}
	return r.dispatcher.Dropped()
}

// Close drains pending records.
func (r *AuditRecorder) Close() {
	if r == nil {
		return
	}
	r.dispatcher.Close()
}
