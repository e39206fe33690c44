package httpapi

import (
	"net/http"
	"strconv"

	"github.com/MrEthical07/caseguard"
	"github.com/MrEthical07/caseguard/middleware"
	"github.com/MrEthical07/caseguard/permission"
	"github.com/MrEthical07/caseguard/validation"
	"github.com/go-chi/chi/v5"
)

func actorOf(r *http.Request) *caseguard.User {
	u, _ := caseguard.UserFromContext(r.Context())
	return u
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	req, _ := middleware.Validated[validation.CreateUserRequest](r.Context())

	user, err := s.engine.CreateUser(r.Context(), actorOf(r), req.Engine())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "User created",
		"user":    user,
	})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	filter, err := userFilterFrom(r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	users, err := s.engine.ListUsers(r.Context(), filter)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if users == nil {
		users = []caseguard.UserListing{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(users),
		"users":   users,
	})
}

func userFilterFrom(r *http.Request) (caseguard.UserFilter, error) {
	q := r.URL.Query()
	var filter caseguard.UserFilter

	if v := q.Get("role"); v != "" {
		role, err := permission.ParseRole(v)
		if err != nil {
			return filter, validation.NewRequestValidationError("role", "role must be one of [admin perito assistente]")
		}
		filter.Role = role
	}
	if v := q.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return filter, validation.NewRequestValidationError("active", "active must be a boolean")
		}
		filter.Active = &active
	}

	var err error
	if filter.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}

func intParam(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, validation.NewRequestValidationError(field, field+" must be a non-negative integer")
	}
	return n, nil
}

func (s *Server) myPermissions(w http.ResponseWriter, r *http.Request) {
	actor := actorOf(r)
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"permissions": actor.Permissions,
		"role":        actor.Role,
	})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    actorOf(r),
	})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.engine.GetUser(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	req, _ := middleware.Validated[validation.UpdateProfileRequest](r.Context())
	actor := actorOf(r)

	profile := actor.Profile
	if req.Profile != nil {
		profile = req.Profile.Profile()
	}
	user, err := s.engine.UpdateProfile(r.Context(), actor, req.Name, profile)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Profile updated",
		"user":    user,
	})
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	req, _ := middleware.Validated[validation.ChangePasswordRequest](r.Context())

	if err := s.engine.ChangePassword(r.Context(), actorOf(r), req.CurrentPassword, req.NewPassword); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password changed",
	})
}

func (s *Server) toggleStatus(w http.ResponseWriter, r *http.Request) {
	req, _ := middleware.Validated[validation.ToggleStatusRequest](r.Context())

	user, err := s.engine.ToggleStatus(r.Context(), actorOf(r), chi.URLParam(r, "id"), *req.IsActive)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	message := "User deactivated"
	if user.IsActive {
		message = "User activated"
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
		"user": map[string]any{
			"id":       user.ID,
			"name":     user.Name,
			"email":    user.Email,
			"isActive": user.IsActive,
		},
	})
}

func (s *Server) updatePermissions(w http.ResponseWriter, r *http.Request) {
	req, _ := middleware.Validated[validation.UpdatePermissionsRequest](r.Context())

	user, err := s.engine.UpdatePermissions(r.Context(), actorOf(r), chi.URLParam(r, "id"), req.Permissions)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Permissions updated",
		"user": map[string]any{
			"id":          user.ID,
			"name":        user.Name,
			"role":        user.Role,
			"permissions": user.Permissions,
		},
	})
}

func (s *Server) updateRole(w http.ResponseWriter, r *http.Request) {
	req, _ := middleware.Validated[validation.UpdateRoleRequest](r.Context())
	role, err := permission.ParseRole(req.Role)
	if err != nil {
		middleware.WriteError(w, r, validation.NewRequestValidationError("role", "role must be one of [admin perito assistente]"))
		return
	}

	user, err := s.engine.UpdateRole(r.Context(), actorOf(r), chi.URLParam(r, "id"), role)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Role updated",
		"user": map[string]any{
			"id":          user.ID,
			"name":        user.Name,
			"role":        user.Role,
			"permissions": user.Permissions,
		},
	})
}
