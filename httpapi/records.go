package httpapi

import (
	"net/http"

	"github.com/MrEthical07/caseguard"
	"github.com/MrEthical07/caseguard/middleware"
)

const (
	defaultRecordLimit = 100
	maxRecordLimit     = 1000
)

func recordFilterFrom(r *http.Request) (caseguard.RecordFilter, error) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		return caseguard.RecordFilter{}, err
	}
	if limit == 0 {
		limit = defaultRecordLimit
	}
	limit = min(limit, maxRecordLimit)
	return caseguard.RecordFilter{ActorID: q.Get("user"), Limit: limit}, nil
}

func (s *Server) listAudit(w http.ResponseWriter, r *http.Request) {
	filter, err := recordFilterFrom(r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	records, err := s.engine.ListAudit(r.Context(), filter)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if records == nil {
		records = []caseguard.AuditRecord{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(records),
		"records": records,
	})
}

func (s *Server) listActivity(w http.ResponseWriter, r *http.Request) {
	filter, err := recordFilterFrom(r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	entries, err := s.engine.ListActivity(r.Context(), filter)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if entries == nil {
		entries = []caseguard.ActivityEntry{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(entries),
		"entries": entries,
	})
}
