package httpapi

import (
	"net/http"

	"github.com/MrEthical07/caseguard/logging"
	"github.com/MrEthical07/caseguard/middleware"
	"github.com/MrEthical07/caseguard/validation"
)

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	req, _ := middleware.Validated[validation.LoginRequest](r.Context())
	log := logging.FromContext(r.Context(), s.logger)

	user, err := s.engine.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		log.Info().Err(err).Str("email", req.Email).Msg("login rejected")
		middleware.WriteError(w, r, err)
		return
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	log.Info().Str("user_id", user.ID).Str("role", user.Role.String()).Msg("login")
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Login successful",
		"token":     token,
		"expiresIn": int(s.tokens.TTL().Seconds()),
		"user":      user,
	})
}
