package middleware

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/caseguard"
	"github.com/MrEthical07/caseguard/logging"
	"github.com/MrEthical07/caseguard/validation"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// ErrorBody is the failure envelope.
type ErrorBody struct {
	Success    bool              `json:"success"`
	Msg        string            `json:"msg"`
	Required   string            `json:"required,omitempty"`
	UserRole   string            `json:"userRole,omitempty"`
	Errors     []string          `json:"errors,omitempty"`
	Validation map[string]string `json:"validation,omitempty"`
}

// WriteJSON encodes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status and the failure envelope. Unclassified errors
// become a generic 500 and are logged with the request logger.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		log := logging.FromContext(r.Context(), zerolog.Nop())
		log.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	WriteJSON(w, status, body)
}

// StatusOf returns the status WriteError would use for err.
func StatusOf(err error) int {
	status, _ := classify(err)
	return status
}

func classify(err error) (int, ErrorBody) {
	body := ErrorBody{Success: false}

	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		body.Errors = verr.Messages()
		body.Validation = verr.Fields()
		body.Msg = "validation failed"
		if len(body.Errors) > 0 {
			body.Msg = body.Errors[0]
		}
		return http.StatusBadRequest, body
	}

	var permErr *caseguard.PermissionError
	switch {
	case errors.Is(err, caseguard.ErrUnauthenticated):
		body.Msg = "not authenticated"
		return http.StatusUnauthorized, body
	case errors.Is(err, caseguard.ErrInvalidCredentials):
		body.Msg = "invalid credentials"
		return http.StatusUnauthorized, body
	case errors.As(err, &permErr):
		body.Msg = "no permission to " + permErr.Requirement.Action.String() + " " + permErr.Requirement.Resource.String()
		body.Required = permErr.Requirement.String()
		body.UserRole = permErr.Role.String()
		return http.StatusForbidden, body
	case errors.Is(err, caseguard.ErrAccountLocked):
		body.Msg = "account temporarily locked"
		return http.StatusForbidden, body
	case errors.Is(err, caseguard.ErrAccountDisabled):
		body.Msg = "account disabled"
		return http.StatusForbidden, body
	case errors.Is(err, caseguard.ErrSelfDeactivation):
		body.Msg = "you cannot deactivate your own account"
		return http.StatusForbidden, body
	case errors.Is(err, caseguard.ErrForbidden):
		body.Msg = "access denied"
		return http.StatusForbidden, body
	case errors.Is(err, caseguard.ErrUserNotFound):
		body.Msg = "user not found"
		return http.StatusNotFound, body
	case errors.Is(err, caseguard.ErrDuplicateEmail):
		body.Msg = "a user with this email already exists"
		return http.StatusBadRequest, body
	case errors.Is(err, caseguard.ErrDuplicateCPF):
		body.Msg = "a user with this cpf already exists"
		return http.StatusBadRequest, body
	case errors.Is(err, caseguard.ErrInvalidInput):
		body.Msg = err.Error()
		return http.StatusBadRequest, body
	default:
		body.Msg = "internal server error"
		return http.StatusInternalServerError, body
	}
}
