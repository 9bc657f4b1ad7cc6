package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"weatherapi/m/domain"
	"weatherapi/m/internal/auth"
	"weatherapi/m/internal/common"
	"weatherapi/m/internal/logging"
	"weatherapi/m/internal/users"
	"weatherapi/m/internal/weather"
)

type ctxKey string

const ctxIdentity ctxKey = "identity"

// Options carries the dependencies of the HTTP layer.
type Options struct {
	Users          *users.Service
	Weather        *weather.Service
	Issuer         *auth.Issuer
	Logger         logging.Logger
	Metrics        http.Handler
	AllowedOrigins []string
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	users   *users.Service
	weather *weather.Service
	issuer  *auth.Issuer
	logger  logging.Logger
	metrics http.Handler
	origins []string
}

// New constructs a Handler.
func New(opts Options) *Handler {
	return &Handler{
		users:   opts.Users,
		weather: opts.Weather,
		issuer:  opts.Issuer,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		origins: opts.AllowedOrigins,
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
	})

	r.Route("/weather", func(r chi.Router) {
		r.Use(h.authMiddleware)
		r.With(h.requireRole(domain.RoleUser)).Post("/", h.getWeather)
		r.With(h.requireRole(domain.RoleUser)).Get("/my-queries", h.myQueries)
		r.With(h.requireRole(domain.RoleAdmin)).Get("/all", h.allQueries)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.authMiddleware)
		r.Use(h.requireRole(domain.RoleAdmin))
		r.Get("/users", h.listUsers)
		r.Patch("/users/role", h.updateUserRole)
		r.Post("/users", h.createUser)
		r.Delete("/users", h.deleteUser)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Authentication helpers

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			h.fail(w, r, common.ErrMissingToken, "")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		identity, err := h.issuer.Verify(tokenString)
		if err != nil {
			h.fail(w, r, err, "")
			return
		}
		ctx := context.WithValue(r.Context(), ctxIdentity, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := identityFrom(r.Context())
			if !ok {
				h.fail(w, r, common.ErrMissingToken, "")
				return
			}
			if err := auth.Authorize(role, identity.Role); err != nil {
				h.logger.Warn(r.Context(), "forbidden: insufficient role",
					"user_id", identity.UserID, "role", identity.Role, "required", role)
				h.fail(w, r, err, "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func identityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(ctxIdentity).(auth.Identity)
	return id, ok
}

// Helpers

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return common.ErrInvalidBody
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// fail maps err to a status code. Client errors echo their own message;
// anything else is logged and answered with fallback (or a generic message),
// so dependency details never reach the caller.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	for _, m := range errorStatuses {
		if errors.Is(err, m.err) {
			respondError(w, m.status, err.Error())
			return
		}
	}
	h.logger.Error(r.Context(), "request failed",
		"method", r.Method, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	if fallback == "" {
		fallback = "internal server error"
	}
	respondError(w, http.StatusInternalServerError, fallback)
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{common.ErrInvalidBody, http.StatusBadRequest},
	{common.ErrMissingParameter, http.StatusBadRequest},
	{common.ErrInvalidRole, http.StatusBadRequest},
	{common.ErrDuplicateIdentity, http.StatusBadRequest},
	{common.ErrMissingToken, http.StatusUnauthorized},
	{common.ErrInvalidToken, http.StatusUnauthorized},
	{common.ErrExpiredToken, http.StatusUnauthorized},
	{common.ErrInvalidCredentials, http.StatusUnauthorized},
	{common.ErrForbidden, http.StatusForbidden},
	{common.ErrUserNotFound, http.StatusNotFound},
}
