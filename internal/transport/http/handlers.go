package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"seopilot/internal/auth"
	"seopilot/internal/content"
	apierrors "seopilot/internal/errors"
	"seopilot/internal/license"
	"seopilot/internal/store"
	"seopilot/internal/validation"
	"seopilot/pkg/contracts"
	api "seopilot/pkg/contracts/api/v1"
	"seopilot/pkg/contracts/domain"
)

// SessionHandler logs administrators in
type SessionHandler struct {
	auth      *auth.Service
	validator *validation.Validator
	errs      *apierrors.ErrorHandler
	logger    *slog.Logger
}

// NewSessionHandler creates a session handler
func NewSessionHandler(a *auth.Service, v *validation.Validator, errs *apierrors.ErrorHandler, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		auth:      a,
		validator: v,
		errs:      errs,
		logger:    logger.With(slog.String("handler", "session")),
	}
}

// Create handles POST /api/session
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req api.SessionRequest
	if err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, 1<<16), &req); err != nil {
		h.errs.HandleError(w, r, apierrors.Validation("body", "invalid request body"))
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errs.HandleError(w, r, err)
		return
	}

	principal, err := h.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.errs.HandleError(w, r, err)
		return
	}
	token, expires, err := h.auth.IssueSession(principal)
	if err != nil {
		h.errs.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Session created", slog.String("username", principal.Username))
	render.JSON(w, r, api.Envelope{Success: true, Data: api.SessionResponse{
		Token:        token,
		ExpiresIn:    int64(time.Until(expires).Seconds()),
		Capabilities: principal.Capabilities,
	}})
}

// ItemHandler lets the host sync content items
type ItemHandler struct {
	items     *content.ItemRepository
	content   *content.Service
	validator *validation.Validator
	errs      *apierrors.ErrorHandler
	logger    *slog.Logger
}

// NewItemHandler creates an item handler
func NewItemHandler(items *content.ItemRepository, svc *content.Service, v *validation.Validator,
	errs *apierrors.ErrorHandler, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{
		items:     items,
		content:   svc,
		validator: v,
		errs:      errs,
		logger:    logger.With(slog.String("handler", "items")),
	}
}

// Routes returns a chi router for item endpoints
func (h *ItemHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Put)
	return r
}

// Get handles GET /api/items/{id}
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.items.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.Envelope{Success: true, Data: item})
}

// Put handles PUT /api/items/{id}. The path ID wins over the body.
func (h *ItemHandler) Put(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var item domain.Item
	if err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, maxActionBody), &item); err != nil {
		h.errs.HandleError(w, r, apierrors.Validation("body", "invalid request body"))
		return
	}
	item.ID = chi.URLParam(r, "id")
	if err := h.validator.Struct(&item); err != nil {
		h.errs.HandleError(w, r, err)
		return
	}
	if err := h.content.RequirePostType(ctx, item.PostType); err != nil {
		h.errs.HandleError(w, r, err)
		return
	}

	// A host sync never clears the optimization timestamp
	if existing, err := h.items.Get(ctx, item.ID); err == nil && item.OptimizedAt == nil {
		item.OptimizedAt = existing.OptimizedAt
	}
	if err := h.items.Save(ctx, item); err != nil {
		h.errs.HandleError(w, r, err)
		return
	}

	h.logger.DebugContext(ctx, "Item synced", slog.String("item_id", item.ID), slog.String("post_type", item.PostType))
	render.JSON(w, r, api.Envelope{Success: true, Data: item})
}

// JobStats reports bulk job counts by state
type JobStats interface {
	GetStats() map[string]int
}

// HubStats reports websocket hub counters
type HubStats interface {
	GetHubMetrics() map[string]int64
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	store    store.Store
	licenses *license.Repository
	jobs     JobStats
	hub      HubStats
	logger   *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(s store.Store, licenses *license.Repository, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		store:    s,
		licenses: licenses,
		logger:   logger.With(slog.String("handler", "health")),
	}
}

// WithJobStats adds bulk job counts to the health response
func (h *HealthHandler) WithJobStats(jobs JobStats) *HealthHandler {
	h.jobs = jobs
	return h
}

// WithHubStats adds websocket hub counters to the health response
func (h *HealthHandler) WithHubStats(hub HubStats) *HealthHandler {
	h.hub = hub
	return h
}

// HealthCheck handles GET /healthz
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	build := contracts.GetVersionInfo()
	resp := api.HealthResponse{Status: "ok", Version: build.Version, Build: build, Checks: map[string]string{}}
	if err := h.store.Ping(ctx); err != nil {
		h.logger.ErrorContext(ctx, "Store ping failed", slog.String("error", err.Error()))
		resp.Status = "degraded"
		resp.Checks["store"] = "unreachable"
	} else {
		resp.Checks["store"] = "ok"
	}
	if status, err := h.licenses.Status(ctx); err == nil {
		resp.Checks["license"] = string(status)
	}
	if h.jobs != nil {
		resp.Jobs = h.jobs.GetStats()
	}
	if h.hub != nil {
		resp.Hub = h.hub.GetHubMetrics()
	}

	if resp.Status != "ok" {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, resp)
}
