package caseguard

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/MrEthical07/caseguard/internal/audit"
	"github.com/rs/zerolog"
)

// AuditRecord is the immutable trace of one successful mutating request.
type AuditRecord struct {
	ID           string         `json:"id"`
	ActorID      string         `json:"user"`
	ActorRole    string         `json:"userRole,omitempty"`
	Action       string         `json:"action"`
	Resource     string         `json:"resource"`
	TargetID     string         `json:"resourceId,omitempty"`
	Method       string         `json:"method"`
	Endpoint     string         `json:"endpoint"`
	IP           string         `json:"ip,omitempty"`
	UserAgent    string         `json:"userAgent,omitempty"`
	StatusCode   int            `json:"statusCode"`
	ResponseTime time.Duration  `json:"responseTimeNs"`
	Timestamp    time.Time      `json:"timestamp"`
	RequestData  map[string]any `json:"requestData,omitempty"`
}

// AuditSink receives every record the recorder persists (or tries to).
type AuditSink = internalaudit.Sink[AuditRecord]

// NoOpSink drops records.
type NoOpSink = internalaudit.NoOpSink[AuditRecord]

// MultiSink emits each record to every non-nil sink in order.
type MultiSink = internalaudit.MultiSink[AuditRecord]

// ChannelSink forwards records into a buffered channel. Useful in tests.
type ChannelSink = internalaudit.ChannelSink[AuditRecord]

// JSONWriterSink writes one JSON record per line.
type JSONWriterSink = internalaudit.JSONWriterSink[AuditRecord]

// NewChannelSink returns a [ChannelSink] with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink[AuditRecord](buffer)
}

// NewJSONWriterSink returns a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink[AuditRecord](w)
}

// LogSink writes records as structured log events.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink returns a sink logging each record at info level.
func NewLogSink(logger zerolog.Logger) LogSink {
	return LogSink{logger: logger}
}

func (s LogSink) Emit(_ context.Context, rec AuditRecord) {
	s.logger.Info().
		Str("audit_id", rec.ID).
		Str("actor_id", rec.ActorID).
		Str("action", rec.Action).
		Str("resource", rec.Resource).
		Str("target_id", rec.TargetID).
		Str("method", rec.Method).
		Str("endpoint", rec.Endpoint).
		Int("status", rec.StatusCode).
		Dur("response_time", rec.ResponseTime).
		Msg("audit")
}

// sensitiveFields are stripped from audited request bodies. Matching is by exact
// top-level key.
var sensitiveFields = [...]string{"password", "currentPassword", "newPassword"}

// SanitizePayload returns a copy of body without the credential fields. It returns
// nil when nothing remains.
func SanitizePayload(body map[string]any) map[string]any {
	if len(body) == 0 {
		return nil
	}

	out := make(map[string]any, len(body))
	for k, v := range body {
		out[k] = v
	}
	for _, k := range sensitiveFields {
		delete(out, k)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
