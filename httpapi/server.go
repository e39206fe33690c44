package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/MrEthical07/caseguard"
	"github.com/MrEthical07/caseguard/jwt"
	"github.com/MrEthical07/caseguard/metrics/export/prometheus"
	"github.com/MrEthical07/caseguard/middleware"
	"github.com/MrEthical07/caseguard/permission"
	"github.com/MrEthical07/caseguard/validation"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
)

// Config controls the router.
type Config struct {
	// CORSOrigins lists the allowed origins. Empty disables cross-origin access.
	CORSOrigins []string
	// LoginRateLimit is the number of login attempts allowed per client IP per
	// LoginRateWindow. Zero disables the limiter.
	LoginRateLimit  int
	LoginRateWindow time.Duration
}

// DefaultConfig returns the router defaults.
func DefaultConfig() Config {
	return Config{
		LoginRateLimit:  10,
		LoginRateWindow: time.Minute,
	}
}

// Server owns the handlers. Build it with [New] and mount [Server.Router].
type Server struct {
	engine  *caseguard.Engine
	tokens  *jwt.Manager
	config  Config
	logger  zerolog.Logger
	metrics *HTTPMetrics
	cases   *caseBook
}

// New creates a server over engine. tokens mints login tokens and verifies
// bearer tokens on every protected route.
func New(engine *caseguard.Engine, tokens *jwt.Manager, cfg Config, logger zerolog.Logger) *Server {
	return &Server{
		engine:  engine,
		tokens:  tokens,
		config:  cfg,
		logger:  logger,
		metrics: NewHTTPMetrics(),
		cases:   newCaseBook(),
	}
}

// Router builds the chi router with every route mounted.
func (s *Server) Router() (http.Handler, error) {
	metricsHandler, err := prometheus.Handler(prometheus.NewCollector(s.engine), s.metrics.Collectors()...)
	if err != nil {
		return nil, err
	}

	rec := s.engine.AuditRecorder()
	identity := middleware.Identity(s.tokens, s.engine)
	adminOnly := middleware.RequireRoles(s.engine, permission.RoleAdmin)
	idParam := middleware.Validate[validation.IDParam](middleware.FromParams)

	r := chi.NewRouter()
	r.Use(middleware.RequestContext(s.logger))
	r.Use(s.metrics.Instrument)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api", func(r chi.Router) {
		r.With(
			s.loginLimiter(),
			middleware.Validate[validation.LoginRequest](middleware.FromBody),
		).Post("/auth/login", s.login)

		r.Route("/users", func(r chi.Router) {
			r.Use(identity)

			r.With(
				adminOnly,
				middleware.Audit(rec, "CREATE_USER", "users"),
				middleware.Validate[validation.CreateUserRequest](middleware.FromBody),
			).Post("/create", s.createUser)
			r.With(adminOnly).Get("/admin/all", s.listUsers)

			r.Get("/permissions", s.myPermissions)
			r.Get("/me", s.me)
			r.With(
				middleware.Audit(rec, "UPDATE_PROFILE", "users"),
				middleware.Validate[validation.UpdateProfileRequest](middleware.FromBody),
			).Put("/me/profile", s.updateProfile)
			r.With(
				middleware.Audit(rec, "CHANGE_PASSWORD", "users"),
				middleware.Validate[validation.ChangePasswordRequest](middleware.FromBody),
			).Put("/me/password", s.changePassword)

			r.With(idParam, middleware.AccessOwnData()).Get("/{id}", s.getUser)
			r.With(
				adminOnly,
				idParam,
				middleware.ManageTarget(s.engine),
				middleware.Audit(rec, "TOGGLE_USER_STATUS", "users"),
				middleware.Validate[validation.ToggleStatusRequest](middleware.FromBody),
			).Patch("/{id}/toggle-status", s.toggleStatus)
			r.With(
				adminOnly,
				idParam,
				middleware.ManageTarget(s.engine),
				middleware.Audit(rec, "UPDATE_USER_PERMISSIONS", "users"),
				middleware.Validate[validation.UpdatePermissionsRequest](middleware.FromBody),
			).Patch("/{id}/permissions", s.updatePermissions)
			r.With(
				adminOnly,
				idParam,
				middleware.ManageTarget(s.engine),
				middleware.Audit(rec, "UPDATE_USER_ROLE", "users"),
				middleware.Validate[validation.UpdateRoleRequest](middleware.FromBody),
			).Put("/{id}/role", s.updateRole)
		})

		r.Group(func(r chi.Router) {
			r.Use(identity, adminOnly, middleware.RequireResource(s.engine, permission.Users, permission.Read))
			r.Get("/audit", s.listAudit)
			r.Get("/activity", s.listActivity)
		})

		r.Route("/cases", func(r chi.Router) {
			r.Use(identity)
			r.With(
				middleware.RequireResource(s.engine, permission.Cases, permission.Read),
				middleware.Audit(rec, "LIST_CASES", "cases"),
			).Get("/", s.listCases)
			r.With(
				middleware.RequireResource(s.engine, permission.Cases, permission.Write),
				middleware.Audit(rec, "CREATE_CASE", "cases"),
				middleware.Validate[validation.CreateCaseRequest](middleware.FromBody),
			).Post("/", s.createCase)
			r.With(
				middleware.RequireResource(s.engine, permission.Cases, permission.Delete),
				middleware.Audit(rec, "DELETE_CASE", "cases"),
				idParam,
			).Delete("/{id}", s.deleteCase)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteJSON(w, http.StatusNotFound, middleware.ErrorBody{Msg: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteJSON(w, http.StatusMethodNotAllowed, middleware.ErrorBody{Msg: "method not allowed"})
	})

	return r, nil
}

func (s *Server) loginLimiter() func(http.Handler) http.Handler {
	if s.config.LoginRateLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	window := s.config.LoginRateWindow
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(
		s.config.LoginRateLimit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			middleware.WriteJSON(w, http.StatusTooManyRequests, middleware.ErrorBody{Msg: "too many login attempts, try again later"})
		}),
	)
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.engine.Users().(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			middleware.WriteJSON(w, http.StatusServiceUnavailable, middleware.ErrorBody{Msg: "store unavailable"})
			return
		}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "status": "ok"})
}
