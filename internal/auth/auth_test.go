package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/labbook/internal/config"
	"github.com/spec-kit/labbook/internal/domain"
	apperrors "github.com/spec-kit/labbook/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, expires, err := tm.GenerateToken("user-1", domain.RoleAdmin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), expires, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)

	other := NewTokenManager("different", 5)
	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := tm.GenerateToken("user-1", domain.RoleUser)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", 1).ParseToken(token)
	assert.Error(t, err)
}

func TestCredentials(t *testing.T) {
	code, err := NewAccessCode()
	require.NoError(t, err)
	assert.Len(t, code, 16)

	pass, err := NewBookingPassword()
	require.NoError(t, err)
	assert.Len(t, pass, 8)

	secret, err := NewSecret()
	require.NoError(t, err)
	assert.Len(t, secret, 12)

	for _, r := range code + pass + secret {
		assert.True(t, strings.ContainsRune(credentialAlphabet, r), "unexpected rune %q", r)
	}
}

func TestPasswordHashing(t *testing.T) {
	hasher := NewPasswordHasher(config.AuthConfig{BcryptCost: bcrypt.MinCost})
	hash, err := hasher.Hash("hunter22")
	require.NoError(t, err)
	assert.NoError(t, hasher.Compare(hash, "hunter22"))
	assert.Error(t, hasher.Compare(hash, "wrong"))

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestPasswordHasherCostFromConfig(t *testing.T) {
	assert.Equal(t, 5, NewPasswordHasher(config.AuthConfig{BcryptCost: 5}).Cost())
	assert.Equal(t, DefaultBcryptCost, NewPasswordHasher(config.AuthConfig{}).Cost())
	assert.Equal(t, DefaultBcryptCost, NewPasswordHasher(config.AuthConfig{BcryptCost: 1}).Cost())
	assert.Equal(t, DefaultBcryptCost, NewPasswordHasher(config.AuthConfig{BcryptCost: bcrypt.MaxCost + 1}).Cost())
}

type stubUsers map[string]*domain.User

func (s stubUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func newAuthApp(tm *TokenManager, users stubUsers) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if de, ok := err.(*apperrors.DomainError); ok {
				return c.SendStatus(de.HTTPStatus)
			}
			if fe, ok := err.(*fiber.Error); ok {
				return c.SendStatus(fe.Code)
			}
			return c.SendStatus(http.StatusInternalServerError)
		},
	})
	mw := NewAuthMiddleware(tm, users)
	app.Get("/me", mw.Handle, RequireAnyRole(), func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.UserID)
	})
	app.Get("/admin", mw.Handle, RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	users := stubUsers{
		"u1": {ID: "u1", Role: domain.RoleUser},
		"a1": {ID: "a1", Role: domain.RoleAdmin},
	}
	app := newAuthApp(tm, users)

	userToken, _, err := tm.GenerateToken("u1", domain.RoleUser)
	require.NoError(t, err)
	// Role claim says admin but the stored user is not.
	forged, _, err := tm.GenerateToken("u1", domain.RoleAdmin)
	require.NoError(t, err)
	adminToken, _, err := tm.GenerateToken("a1", domain.RoleAdmin)
	require.NoError(t, err)
	ghostToken, _, err := tm.GenerateToken("ghost", domain.RoleUser)
	require.NoError(t, err)

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing header", "/me", "", http.StatusUnauthorized},
		{"bad scheme", "/me", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "/me", "Bearer abc", http.StatusUnauthorized},
		{"unknown user", "/me", "Bearer " + ghostToken, http.StatusUnauthorized},
		{"user ok", "/me", "Bearer " + userToken, http.StatusOK},
		{"user on admin route", "/admin", "Bearer " + userToken, http.StatusForbidden},
		{"forged role", "/admin", "Bearer " + forged, http.StatusForbidden},
		{"admin ok", "/admin", "Bearer " + adminToken, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}
