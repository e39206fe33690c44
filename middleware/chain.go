package middleware

import "net/http"

// Stage is one step of a route pipeline.
type Stage = func(http.Handler) http.Handler

// Chain wraps h so that stages run in order, stages[0] first.
func Chain(h http.Handler, stages ...Stage) http.Handler {
	for i := len(stages) - 1; i >= 0; i-- {
		if stages[i] != nil {
			h = stages[i](h)
		}
	}
	return h
}
