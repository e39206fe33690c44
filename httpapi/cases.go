package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/MrEthical07/caseguard/internal"
	"github.com/MrEthical07/caseguard/logging"
	"github.com/MrEthical07/caseguard/middleware"
	"github.com/MrEthical07/caseguard/validation"
	"github.com/go-chi/chi/v5"
)

// Case is the minimal forensic case kept by the demo case routes. Case workflow
// itself lives outside this service; the routes exist to exercise resource
// checks and auditing.
type Case struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	Date        time.Time `json:"data"`
	History     string    `json:"historico,omitempty"`
	Analyses    string    `json:"analises,omitempty"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

type caseBook struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Case
}

func newCaseBook() *caseBook {
	return &caseBook{byID: map[string]Case{}}
}

func (b *caseBook) add(c Case) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byID[c.ID] = c
	b.order = append(b.order, c.ID)
}

// list returns cases newest first.
func (b *caseBook) list() []Case {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Case, 0, len(b.order))
	for i := len(b.order) - 1; i >= 0; i-- {
		out = append(out, b.byID[b.order[i]])
	}
	return out
}

func (b *caseBook) remove(id string) (Case, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.byID[id]
	if !ok {
		return Case{}, false
	}
	delete(b.byID, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return c, true
}

func (s *Server) listCases(w http.ResponseWriter, _ *http.Request) {
	cases := s.cases.list()
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(cases),
		"cases":   cases,
	})
}

func (s *Server) createCase(w http.ResponseWriter, r *http.Request) {
	req, _ := middleware.Validated[validation.CreateCaseRequest](r.Context())
	c := Case{
		ID:          internal.NewObjectID(),
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Status:      req.Status,
		Date:        req.Date,
		History:     req.History,
		Analyses:    req.Analyses,
		CreatedBy:   actorOf(r).ID,
		CreatedAt:   time.Now().UTC(),
	}
	s.cases.add(c)
	middleware.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Case created",
		"case":    c,
	})
}

func (s *Server) deleteCase(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, ok := s.cases.remove(id)
	if !ok {
		middleware.WriteJSON(w, http.StatusNotFound, middleware.ErrorBody{Msg: "case not found"})
		return
	}

	actor := actorOf(r)
	if err := s.engine.LogSensitiveAction(r.Context(), actor.ID, "Case deleted: "+c.Title, c.ID); err != nil {
		log := logging.FromContext(r.Context(), s.logger)
		log.Error().Err(err).
			Str("actor_id", actor.ID).
			Str("case_id", c.ID).
			Msg("activity log append failed")
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Case deleted",
	})
}
