package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"mural/internal/config"
	"mural/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type tokenOpts struct {
	userID uint
	role   models.Role
	exp    time.Duration
	iss    string
	aud    string
	jti    string
}

func signToken(t *testing.T, o tokenOpts) string {
	t.Helper()
	if o.role == "" {
		o.role = models.RoleUser
	}
	if o.exp == 0 {
		o.exp = time.Hour
	}
	if o.iss == "" {
		o.iss = TokenIssuer
	}
	if o.aud == "" {
		o.aud = TokenAudience
	}
	if o.jti == "" {
		o.jti = uuid.NewString()
	}
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(o.userID), 10),
		"role": string(o.role),
		"exp":  time.Now().Add(o.exp).Unix(),
		"iss":  o.iss,
		"aud":  o.aud,
		"jti":  o.jti,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(testSecret))
	assert.NoError(t, err)
	return s
}

func TestAuthRequired(t *testing.T) {
	app := fiber.New()
	auth := NewAuth(&config.Config{JWTSecret: testSecret}, nil)

	app.Get("/test", auth.Required, func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"userID": c.Locals("userID"),
			"role":   c.Locals("userRole"),
		})
	})

	tests := []struct {
		name           string
		authHeader     string
		cookie         string
		expectedStatus int
		expectedUserID uint
	}{
		{
			name:           "Bearer token",
			authHeader:     "Bearer " + signToken(t, tokenOpts{userID: 123}),
			expectedStatus: http.StatusOK,
			expectedUserID: 123,
		},
		{
			name:           "Cookie token",
			cookie:         signToken(t, tokenOpts{userID: 7, role: models.RoleAdmin}),
			expectedStatus: http.StatusOK,
			expectedUserID: 7,
		},
		{
			name:           "Missing credentials",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid header format",
			authHeader:     "Basic dXNlcjpwYXNz",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Malformed token",
			authHeader:     "Bearer malformed.token.here",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Expired token",
			authHeader:     "Bearer " + signToken(t, tokenOpts{userID: 123, exp: -time.Hour}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Wrong issuer",
			authHeader:     "Bearer " + signToken(t, tokenOpts{userID: 123, iss: "someone-else"}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Wrong audience",
			authHeader:     "Bearer " + signToken(t, tokenOpts{userID: 123, aud: "other-client"}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Unknown role",
			authHeader:     "Bearer " + signToken(t, tokenOpts{userID: 123, role: models.Role("superuser")}),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		tt := tt // capture range variable
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: tt.cookie})
			}

			resp, err := app.Test(req)
			assert.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body map[string]interface{}
				if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
					assert.Equal(t, float64(tt.expectedUserID), body["userID"])
				}
			}
		})
	}
}

func TestAuthRequired_RevokedToken(t *testing.T) {
	app := fiber.New()
	rdb := newTestRedis(t)
	auth := NewAuth(&config.Config{JWTSecret: testSecret}, rdb)

	app.Get("/test", auth.Required, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	jti := uuid.NewString()
	token := signToken(t, tokenOpts{userID: 1, jti: jti})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	assert.NoError(t, auth.BlacklistToken(context.Background(), jti, time.Hour))

	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestRoleMiddleware(t *testing.T) {
	app := fiber.New()
	auth := NewAuth(&config.Config{JWTSecret: testSecret}, nil)

	app.Get("/mod", auth.Required, ModeratorRequired, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/owner", auth.Required, OwnerRequired, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	tests := []struct {
		name           string
		path           string
		role           models.Role
		expectedStatus int
	}{
		{"user denied moderator route", "/mod", models.RoleUser, http.StatusForbidden},
		{"admin allowed moderator route", "/mod", models.RoleAdmin, http.StatusOK},
		{"owner allowed moderator route", "/mod", models.RoleOwner, http.StatusOK},
		{"user denied owner route", "/owner", models.RoleUser, http.StatusForbidden},
		{"admin denied owner route", "/owner", models.RoleAdmin, http.StatusForbidden},
		{"owner allowed owner route", "/owner", models.RoleOwner, http.StatusOK},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, tokenOpts{userID: 1, role: tt.role}))

			resp, err := app.Test(req)
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			_ = resp.Body.Close()
		})
	}
}
