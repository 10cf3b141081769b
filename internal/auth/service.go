// Package auth authenticates administrators and issues the session tokens
// and single-use action nonces the admin gateway checks.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"seopilot/internal/config"
	apierrors "seopilot/internal/errors"
	"seopilot/internal/store"
)

// NoncePrefix prefixes the store key that marks a nonce as spent
const NoncePrefix = "nonce_"

// dummyHash is compared against when the username is unknown so both paths cost a bcrypt round
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z5ZFxJbF3rLpCHJYkM3U4bHe"

type user struct {
	passwordHash string
	capabilities []string
}

// Service authenticates users and signs tokens
type Service struct {
	users      map[string]user
	secret     []byte
	sessionTTL time.Duration
	nonceTTL   time.Duration
	store      store.Store
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates an auth service over the configured users
func NewService(cfg config.AuthConfig, users []config.UserConfig, s store.Store, logger *slog.Logger) *Service {
	byName := make(map[string]user, len(users))
	for _, u := range users {
		byName[u.Username] = user{
			passwordHash: u.PasswordHash,
			capabilities: append([]string(nil), u.Capabilities...),
		}
	}
	return &Service{
		users:      byName,
		secret:     []byte(cfg.SessionSecret),
		sessionTTL: cfg.SessionTTL,
		nonceTTL:   cfg.NonceTTL,
		store:      s,
		logger:     logger.With(slog.String("component", "auth")),
		now:        time.Now,
	}
}

// Authenticate verifies a username and password
func (s *Service) Authenticate(ctx context.Context, username, password string) (Principal, error) {
	u, ok := s.users[username]
	hash := u.passwordHash
	if !ok {
		hash = dummyHash
	}
	if !CheckPassword(password, hash) || !ok {
		s.logger.WarnContext(ctx, "Login failed", slog.String("username", username))
		return Principal{}, apierrors.Authorization("invalid username or password")
	}
	return Principal{Username: username, Capabilities: append([]string(nil), u.capabilities...)}, nil
}

// IssueSession signs a session token for p
func (s *Service) IssueSession(p Principal) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.sessionTTL)
	claims := SessionClaims{
		Caps: p.Capabilities,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Username,
			Audience:  jwt.ClaimStrings{audienceSession},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, apierrors.Internal(fmt.Errorf("sign session: %w", err))
	}
	return token, expires, nil
}

// ParseSession validates a session token. Users removed from the config
// lose access even while their token is unexpired.
func (s *Service) ParseSession(token string) (Principal, error) {
	claims := &SessionClaims{}
	if err := s.parse(token, claims, audienceSession); err != nil {
		return Principal{}, err
	}
	if _, ok := s.users[claims.Subject]; !ok {
		return Principal{}, apierrors.Authorization("unknown user")
	}
	return Principal{Username: claims.Subject, Capabilities: claims.Caps}, nil
}

// IssueNonce signs a nonce that authorizes one call of action by p
func (s *Service) IssueNonce(p Principal, action string) (string, error) {
	now := s.now()
	claims := NonceClaims{
		Action: action,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.Username,
			Audience:  jwt.ClaimStrings{audienceNonce},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.nonceTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", apierrors.Internal(fmt.Errorf("sign nonce: %w", err))
	}
	return token, nil
}

// VerifyNonce checks that token is an unspent nonce for action issued to p,
// then marks it spent.
func (s *Service) VerifyNonce(ctx context.Context, p Principal, action, token string) error {
	if token == "" {
		return apierrors.Authorization("missing nonce")
	}
	claims := &NonceClaims{}
	if err := s.parse(token, claims, audienceNonce); err != nil {
		return err
	}
	if claims.Subject != p.Username || claims.Action != action || claims.ID == "" {
		return apierrors.Authorization("nonce does not match this action")
	}

	ttl := s.nonceTTL
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(s.now())
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	claimed, err := s.store.SetNX(ctx, NoncePrefix+claims.ID, action, ttl)
	if err != nil {
		return apierrors.Internal(fmt.Errorf("claim nonce: %w", err))
	}
	if !claimed {
		s.logger.WarnContext(ctx, "Nonce replay rejected",
			slog.String("username", p.Username),
			slog.String("action", action))
		return apierrors.Authorization("nonce already used")
	}
	return nil
}

// RequireCapability returns a forbidden error unless p holds capability
func RequireCapability(p Principal, capability string) error {
	if !p.Can(capability) {
		return apierrors.Forbidden(fmt.Sprintf("capability %s required", capability))
	}
	return nil
}

func (s *Service) parse(token string, claims jwt.Claims, audience string) error {
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return apierrors.Authorization("token expired")
		}
		return apierrors.Authorization("invalid token")
	}
	return nil
}
