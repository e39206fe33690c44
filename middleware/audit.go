package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/MrEthical07/caseguard"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.WriteHeader(http.StatusOK)
	}
	return s.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Audit records the request once the handler has answered with a status below
// 400. The JSON body, up to the recorder's MaxBodyBytes, is captured with
// credential fields removed and replayed to the handler unchanged.
func Audit(rec *caseguard.AuditRecorder, action, resource string) Stage {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rec.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			payload := captureBody(r, rec.MaxBodyBytes())

			sw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			if sw.status >= http.StatusBadRequest {
				return
			}

			record := caseguard.AuditRecord{
				Action:       action,
				Resource:     resource,
				TargetID:     chi.URLParam(r, "id"),
				Method:       r.Method,
				Endpoint:     r.URL.RequestURI(),
				IP:           caseguard.ClientIPFromContext(r.Context()),
				UserAgent:    r.UserAgent(),
				StatusCode:   sw.status,
				ResponseTime: time.Since(start),
				RequestData:  caseguard.SanitizePayload(payload),
			}
			if actor, ok := caseguard.UserFromContext(r.Context()); ok {
				record.ActorID = actor.ID
				record.ActorRole = actor.Role.String()
			}
			rec.Record(r.Context(), record)
		})
	}
}

// captureBody reads up to limit bytes of a JSON object body and restores
// r.Body so downstream stages see the full stream. Oversized or non-object
// bodies are replayed but not captured.
func captureBody(r *http.Request, limit int64) map[string]any {
	if r.Body == nil || r.Body == http.NoBody || limit <= 0 {
		return nil
	}

	buf, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(buf), r.Body), r.Body}
	if err != nil || int64(len(buf)) > limit {
		return nil
	}

	var body map[string]any
	if err := json.Unmarshal(buf, &body); err != nil {
		return nil
	}
	return body
}
