package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/caseguard"
	"github.com/MrEthical07/caseguard/internal"
	"github.com/MrEthical07/caseguard/logging"
	"github.com/MrEthical07/caseguard/permission"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

// IdentityVerifier turns a bearer token into a verified identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (caseguard.Identity, error)
}

type targetContextKey struct{}

// TargetFromContext returns the account loaded by [ManageTarget].
func TargetFromContext(ctx context.Context) (*caseguard.User, bool) {
	u, ok := ctx.Value(targetContextKey{}).(*caseguard.User)
	return u, ok && u != nil
}

// RequestContext attaches a request id, the client address, the user agent and a
// request-scoped logger to every request.
func RequestContext(logger zerolog.Logger) Stage {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" || len(requestID) > 64 {
				requestID = internal.NewRequestID()
			}
			w.Header().Set(RequestIDHeader, requestID)

			ctx := logging.WithRequestID(r.Context(), logger, requestID)
			ctx = caseguard.WithClientIP(ctx, clientIP(r))
			ctx = caseguard.WithUserAgent(ctx, r.UserAgent())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Identity authenticates the bearer token and loads the acting account.
func Identity(verifier IdentityVerifier, engine *caseguard.Engine) Stage {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil || engine == nil {
				WriteError(w, r, caseguard.ErrUnauthenticated)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				WriteError(w, r, caseguard.ErrUnauthenticated)
				return
			}

			id, err := verifier.Verify(r.Context(), token)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			user, err := engine.ResolveUser(r.Context(), id)
			if err != nil {
				WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(caseguard.WithUser(r.Context(), user)))
		})
	}
}

// RequireRoles allows the acting account when its role is one of roles.
func RequireRoles(engine *caseguard.Engine, roles ...permission.Role) Stage {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, _ := caseguard.UserFromContext(r.Context())
			if err := engine.AuthorizeRoles(actor, roles...); err != nil {
				WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireResource allows the acting account when its matrix grants action on
// resource. Admins always pass.
func RequireResource(engine *caseguard.Engine, resource permission.Resource, action permission.Action) Stage {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, _ := caseguard.UserFromContext(r.Context())
			if err := engine.AuthorizeResource(actor, resource, action); err != nil {
				WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AccessOwnData lets non-admins through only when {id} is their own account.
func AccessOwnData() Stage {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, _ := caseguard.UserFromContext(r.Context())
			if err := caseguard.CanAccessOwnData(actor, chi.URLParam(r, "id")); err != nil {
				WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ManageTarget loads the account named by {id} and requires the acting account
// to manage it.
func ManageTarget(engine *caseguard.Engine) Stage {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, _ := caseguard.UserFromContext(r.Context())
			if actor == nil {
				WriteError(w, r, caseguard.ErrUnauthenticated)
				return
			}
			target, err := engine.Users().GetUserByID(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				WriteError(w, r, err)
				return
			}
			if err := caseguard.CanManageUser(actor, target); err != nil {
				WriteError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), targetContextKey{}, target)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
