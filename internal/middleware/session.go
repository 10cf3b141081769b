package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"seopilot/internal/auth"
	apierrors "seopilot/internal/errors"
)

type principalKey struct{}

// SessionParser validates session tokens
type SessionParser interface {
	ParseSession(token string) (auth.Principal, error)
}

// ErrorRenderer writes an error envelope
type ErrorRenderer interface {
	HandleError(w http.ResponseWriter, r *http.Request, err error)
}

// Session requires a valid bearer session and stores its principal in the
// request context. When allowQuery is set the token may also arrive as the
// "token" query parameter, which browsers need for websocket upgrades.
func Session(parser SessionParser, errs ErrorRenderer, logger *slog.Logger, allowQuery bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, err := bearerToken(r)
			if err != nil && allowQuery {
				if q := r.URL.Query().Get("token"); q != "" {
					token, err = q, nil
				}
			}
			if err != nil {
				logger.WarnContext(ctx, "missing session",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				errs.HandleError(w, r, err)
				return
			}

			principal, err := parser.ParseSession(token)
			if err != nil {
				logger.WarnContext(ctx, "authentication failed",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				errs.HandleError(w, r, err)
				return
			}

			logger.DebugContext(ctx, "authentication successful",
				"username", principal.Username,
				"path", r.URL.Path,
			)
			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
		})
	}
}

// WithPrincipal stores p in ctx
func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the authenticated principal, if any
func PrincipalFromContext(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(auth.Principal)
	return p, ok
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", apierrors.Authorization("missing authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", apierrors.Authorization("invalid authorization format, use: Bearer <token>")
	}
	return strings.TrimSpace(token), nil
}
