package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"seopilot/internal/auth"
	apierrors "seopilot/internal/errors"
	"seopilot/internal/infrastructure"
	custommw "seopilot/internal/middleware"
	"seopilot/internal/validation"
	api "seopilot/pkg/contracts/api/v1"
)

// Header names of the nonce handshake
const (
	HeaderNonce     = "X-Nonce"
	HeaderNextNonce = "X-Next-Nonce"
)

// maxActionBody caps action request bodies; import documents are the largest
const maxActionBody = 4 << 20

// ActionFunc handles one admin action
type ActionFunc func(ctx context.Context, req *ActionRequest) (interface{}, error)

// Action is one entry of the gateway's dispatch table
type Action struct {
	Name       string
	Capability string
	Handle     ActionFunc
}

// ActionRequest is the authenticated input of an action
type ActionRequest struct {
	Principal auth.Principal
	Body      []byte

	validator *validation.Validator
}

// Decode unmarshals the body into v and validates it. An empty body decodes
// as an empty object.
func (r *ActionRequest) Decode(v interface{}) error {
	body := bytes.TrimSpace(r.Body)
	if len(body) == 0 {
		body = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apierrors.Validation("body", fmt.Sprintf("invalid request body: %v", err))
	}
	if r.validator == nil {
		return nil
	}
	return r.validator.Struct(v)
}

// NonceService issues and spends action nonces
type NonceService interface {
	IssueNonce(p auth.Principal, action string) (string, error)
	VerifyNonce(ctx context.Context, p auth.Principal, action, token string) error
}

// Gateway authorizes and dispatches admin actions
type Gateway struct {
	actions   map[string]Action
	nonces    NonceService
	validator *validation.Validator
	errs      *apierrors.ErrorHandler
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewGateway creates an empty gateway
func NewGateway(nonces NonceService, v *validation.Validator, errs *apierrors.ErrorHandler,
	logger *slog.Logger, tracer trace.Tracer) *Gateway {
	return &Gateway{
		actions:   make(map[string]Action),
		nonces:    nonces,
		validator: v,
		errs:      errs,
		logger:    logger.With(slog.String("handler", "gateway")),
		tracer:    tracer,
	}
}

// Register adds an action to the dispatch table. Registering a name twice
// or an action without a handler panics.
func (g *Gateway) Register(a Action) {
	if a.Name == "" || a.Handle == nil {
		panic("gateway: action needs a name and a handler")
	}
	if _, exists := g.actions[a.Name]; exists {
		panic(fmt.Sprintf("gateway: action %q registered twice", a.Name))
	}
	g.actions[a.Name] = a
}

// Actions lists the registered action names in order
func (g *Gateway) Actions() []string {
	names := make([]string, 0, len(g.actions))
	for name := range g.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// lookup authorizes p for the named action
func (g *Gateway) lookup(p auth.Principal, name string) (Action, error) {
	action, ok := g.actions[name]
	if !ok {
		return Action{}, apierrors.NotFound("action " + name)
	}
	if err := auth.RequireCapability(p, action.Capability); err != nil {
		return Action{}, err
	}
	return action, nil
}

// ServeAction handles POST /api/admin/actions/{action}. Session, capability
// and nonce are all checked before the action runs.
func (g *Gateway) ServeAction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "action")
	ctx, span := g.tracer.Start(r.Context(), "gateway.action", trace.WithAttributes(
		attribute.String("action", name),
		attribute.String("request_id", middleware.GetReqID(r.Context()))))
	defer span.End()
	r = r.WithContext(ctx)

	principal, ok := custommw.PrincipalFromContext(ctx)
	if !ok {
		g.errs.HandleError(w, r, apierrors.Authorization("session required"))
		return
	}
	action, err := g.lookup(principal, name)
	if err != nil {
		g.errs.HandleError(w, r, err)
		return
	}
	if err := g.nonces.VerifyNonce(ctx, principal, name, r.Header.Get(HeaderNonce)); err != nil {
		g.errs.HandleError(w, r, err)
		return
	}

	// The nonce is spent from here on, so every outcome carries its successor
	if next, err := g.nonces.IssueNonce(principal, name); err == nil {
		w.Header().Set(HeaderNextNonce, next)
	} else {
		g.logger.ErrorContext(ctx, "Failed to issue next nonce", slog.String("error", err.Error()))
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxActionBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			g.errs.HandleError(w, r, apierrors.Validation("body", "request body too large"))
			return
		}
		g.errs.HandleError(w, r, apierrors.Validation("body", "unreadable request body"))
		return
	}

	start := time.Now()
	data, err := action.Handle(ctx, &ActionRequest{Principal: principal, Body: body, validator: g.validator})
	if err != nil {
		infrastructure.RecordError(ctx, err)
		g.errs.HandleError(w, r, err)
		return
	}

	g.logger.InfoContext(ctx, "Action completed",
		slog.String("action", name),
		slog.String("username", principal.Username),
		slog.Duration("duration", time.Since(start)))

	render.Status(r, http.StatusOK)
	render.JSON(w, r, api.Envelope{Success: true, Data: data})
}

// ServeNonce handles GET /api/nonces/{action}
func (g *Gateway) ServeNonce(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "action")
	principal, ok := custommw.PrincipalFromContext(r.Context())
	if !ok {
		g.errs.HandleError(w, r, apierrors.Authorization("session required"))
		return
	}
	if _, err := g.lookup(principal, name); err != nil {
		g.errs.HandleError(w, r, err)
		return
	}
	nonce, err := g.nonces.IssueNonce(principal, name)
	if err != nil {
		g.errs.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.Envelope{Success: true, Data: api.NonceResponse{Action: name, Nonce: nonce}})
}
