package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"seopilot/internal/config"
	apierrors "seopilot/internal/errors"
	"seopilot/internal/store"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)

	s := store.NewMemoryStore()
	svc := NewService(config.AuthConfig{
		SessionSecret: testSecret,
		SessionTTL:    time.Hour,
		NonceTTL:      time.Hour,
	}, []config.UserConfig{
		{Username: "admin", PasswordHash: hash, Capabilities: []string{config.CapabilityManageOptions}},
		{Username: "author", PasswordHash: hash},
	}, s, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	return svc, s
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	p, err := svc.Authenticate(ctx, "admin", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "admin", p.Username)
	assert.True(t, p.Can(config.CapabilityManageOptions))

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "admin", "battery staple"},
		{"unknown user", "ghost", "correct horse"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Authenticate(ctx, tt.username, tt.password)
			assert.True(t, apierrors.Is(err, apierrors.KindAuthorization))
		})
	}
}

func TestSessionRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	p := Principal{Username: "admin", Capabilities: []string{config.CapabilityManageOptions}}

	token, expires, err := svc.IssueSession(p)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	got, err := svc.ParseSession(token)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestParseSessionRejects(t *testing.T) {
	svc, _ := newTestService(t)
	p := Principal{Username: "admin", Capabilities: []string{config.CapabilityManageOptions}}

	expiredSvc, _ := newTestService(t)
	expiredSvc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := expiredSvc.IssueSession(p)
	require.NoError(t, err)

	other, _ := newTestService(t)
	other.secret = []byte("another-secret-another-secret-000")
	foreign, _, err := other.IssueSession(p)
	require.NoError(t, err)

	nonce, err := svc.IssueNonce(p, "save_settings")
	require.NoError(t, err)

	ghost, _, err := svc.IssueSession(Principal{Username: "ghost"})
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			Audience:  jwt.ClaimStrings{audienceSession},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"expired":        expired,
		"wrong secret":   foreign,
		"nonce as token": nonce,
		"removed user":   ghost,
		"alg none":       unsigned,
		"garbage":        "not-a-jwt",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ParseSession(token)
			assert.True(t, apierrors.Is(err, apierrors.KindAuthorization))
		})
	}
}

func TestNonceSingleUseAndBoundToAction(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)
	admin := Principal{Username: "admin", Capabilities: []string{config.CapabilityManageOptions}}

	nonce, err := svc.IssueNonce(admin, "bulk_start")
	require.NoError(t, err)

	err = svc.VerifyNonce(ctx, admin, "bulk_step", nonce)
	assert.True(t, apierrors.Is(err, apierrors.KindAuthorization), "nonce for A is rejected on B")

	err = svc.VerifyNonce(ctx, Principal{Username: "author"}, "bulk_start", nonce)
	assert.True(t, apierrors.Is(err, apierrors.KindAuthorization), "nonce is bound to its user")

	require.NoError(t, svc.VerifyNonce(ctx, admin, "bulk_start", nonce))

	err = svc.VerifyNonce(ctx, admin, "bulk_start", nonce)
	assert.True(t, apierrors.Is(err, apierrors.KindAuthorization), "second use is rejected")

	session, _, err := svc.IssueSession(admin)
	require.NoError(t, err)
	err = svc.VerifyNonce(ctx, admin, "bulk_start", session)
	assert.True(t, apierrors.Is(err, apierrors.KindAuthorization), "a session is not a nonce")

	err = svc.VerifyNonce(ctx, admin, "bulk_start", "")
	assert.True(t, apierrors.Is(err, apierrors.KindAuthorization))

	claims := &NonceClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(nonce, claims)
	require.NoError(t, err)
	spent, err := s.Get(ctx, NoncePrefix+claims.ID)
	require.NoError(t, err)
	assert.Equal(t, "bulk_start", spent)
}

func TestNonceExpires(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	admin := Principal{Username: "admin"}

	nonce, err := svc.IssueNonce(admin, "export_settings")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	err = svc.VerifyNonce(ctx, admin, "export_settings", nonce)
	assert.True(t, apierrors.Is(err, apierrors.KindAuthorization))
}

func TestRequireCapability(t *testing.T) {
	assert.NoError(t, RequireCapability(Principal{Capabilities: []string{config.CapabilityManageOptions}}, config.CapabilityManageOptions))

	err := RequireCapability(Principal{Username: "author"}, config.CapabilityManageOptions)
	require.Error(t, err)
	assert.Equal(t, 403, apierrors.HTTPStatus(err))
}

func TestPasswordHelpers(t *testing.T) {
	hash, err := HashPassword("secret", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, CheckPassword("secret", hash))
	assert.False(t, CheckPassword("Secret", hash))
	assert.False(t, CheckPassword("secret", "not-a-hash"))
}
