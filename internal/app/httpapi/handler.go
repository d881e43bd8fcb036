// Package httpapi exposes the character and account services over HTTP.
package httpapi

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	app "github.com/R3E-Network/thrones_api/internal/app"
	"github.com/R3E-Network/thrones_api/internal/errors"
	"github.com/R3E-Network/thrones_api/internal/httputil"
	"github.com/R3E-Network/thrones_api/internal/logging"
	"github.com/R3E-Network/thrones_api/internal/middleware"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes int64 = 1 << 20

// publicPaths bypass the auth gate.
var publicPaths = []string{"/api/register", "/api/login", "/healthz", "/metrics"}

type config struct {
	origins  []string
	limiter  *middleware.RateLimiter
	audit    *AuditLog
	maxBytes int64
}

// Option configures NewHandler.
type Option func(*config)

// WithAllowedOrigins restricts CORS. The default allows every origin.
func WithAllowedOrigins(origins []string) Option {
	return func(c *config) { c.origins = origins }
}

// WithRateLimiter throttles requests per user or client address.
func WithRateLimiter(rl *middleware.RateLimiter) Option {
	return func(c *config) { c.limiter = rl }
}

// WithAuditLog records character mutations and serves GET /api/audit.
func WithAuditLog(l *AuditLog) Option {
	return func(c *config) { c.audit = l }
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app      *app.Application
	log      *logging.Logger
	audit    *AuditLog
	maxBytes int64
}

// NewHandler returns the complete HTTP stack: CORS and tracing around a
// router whose routes pass through metrics, the auth gate, rate limiting
// and the audit log.
func NewHandler(application *app.Application, log *logging.Logger, opts ...Option) http.Handler {
	if log == nil {
		log = logging.NewDefault("httpapi")
	}
	cfg := config{maxBytes: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &handler{app: application, log: log, audit: cfg.audit, maxBytes: cfg.maxBytes}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		httputil.WriteServiceError(w, req, errors.RouteNotFound())
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		httputil.WriteServiceError(w, req, errors.MethodNotAllowed(req.Method))
	})

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", application.Metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/api/register", h.register).Methods(http.MethodPost)
	r.HandleFunc("/api/login", h.login).Methods(http.MethodPost)

	r.HandleFunc("/api/characters", h.listCharacters).Methods(http.MethodGet)
	r.HandleFunc("/api/characters", h.createCharacter).Methods(http.MethodPost)
	r.HandleFunc("/api/all_characters", h.allCharacters).Methods(http.MethodGet)
	r.HandleFunc("/api/characters/{id:[0-9]+}", h.getCharacter).Methods(http.MethodGet)
	r.HandleFunc("/api/characters/{id:[0-9]+}", h.updateCharacter).Methods(http.MethodPut)
	r.HandleFunc("/api/characters/{id:[0-9]+}", h.deleteCharacter).Methods(http.MethodDelete)
	if h.audit != nil {
		r.HandleFunc("/api/audit", h.listAudit).Methods(http.MethodGet)
	}

	authMW := middleware.NewAuthMiddleware(application.Tokens, log, publicPaths)
	r.Use(middleware.MetricsMiddleware("thrones-api", application.Metrics))
	r.Use(authMW.Handler)
	if cfg.limiter != nil {
		r.Use(cfg.limiter.Handler)
	}
	if h.audit != nil {
		r.Use(h.audit.Middleware)
	}

	var out http.Handler = r
	out = middleware.NewTracingMiddleware(log).Handler(out)
	out = middleware.NewCORSMiddleware(cfg.origins).Handler(out)
	return out
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type credentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := h.decodeJSON(w, r, &payload); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	if err := h.app.Accounts.Register(r.Context(), payload.Username, payload.Password); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "User registered successfully.", nil)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := h.decodeJSON(w, r, &payload); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	tok, err := h.app.Accounts.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token":      tok.Token,
		"expires_at": tok.ExpiresAt,
	})
}

func (h *handler) listCharacters(w http.ResponseWriter, r *http.Request) {
	records, err := h.app.Characters.Query(r.Context(), r.URL.Query())
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}

func (h *handler) allCharacters(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.app.Characters.All(r.Context()))
}

func (h *handler) createCharacter(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(w, r)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	created, err := h.app.Characters.Create(r.Context(), body)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) getCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := characterID(w, r)
	if !ok {
		return
	}
	record, err := h.app.Characters.Get(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *handler) updateCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := characterID(w, r)
	if !ok {
		return
	}
	body, err := h.readBody(w, r)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	if _, err := h.app.Characters.Update(r.Context(), id, body); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK,
		fmt.Sprintf("Character with id %d has been updated successfully.", id),
		map[string]interface{}{"id": id})
}

func (h *handler) deleteCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := characterID(w, r)
	if !ok {
		return
	}
	if err := h.app.Characters.Delete(r.Context(), id); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK,
		fmt.Sprintf("Character with id %d has been deleted successfully.", id),
		map[string]interface{}{"id": id})
}

func (h *handler) listAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteServiceError(w, r, errors.InvalidLimit("Limit must be greater than 0."))
			return
		}
		limit = n
	}
	httputil.WriteJSON(w, http.StatusOK, h.audit.List(limit))
}

// characterID parses the {id} route variable. Values that overflow int64
// cannot name a record and are reported as a missing route.
func characterID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		httputil.WriteServiceError(w, r, errors.RouteNotFound())
		return 0, false
	}
	return id, true
}

func (h *handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.PayloadTooLarge(tooLarge.Limit)
		}
		return nil, errors.BadRequest("Failed to read request body.")
	}
	return body, nil
}

func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body, err := h.readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errors.BadRequest("Request body must be a JSON object.")
	}
	return nil
}
