package middleware

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mural/internal/config"
	"mural/internal/models"
	"mural/internal/observability"
	"mural/internal/policy"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

const (
	// TokenIssuer and TokenAudience are validated on every request.
	TokenIssuer   = "mural-api"
	TokenAudience = "mural-client"

	// AuthCookieName is the cookie carrying the session JWT.
	AuthCookieName = "token"
)

// Auth verifies session tokens and manages the revocation list. Dependencies
// are injected at construction; the Redis client may be nil, in which case
// revocation checks are skipped and revocation writes fail.
type Auth struct {
	cfg *config.Config
	rdb *redis.Client
}

// NewAuth returns auth middleware bound to the given config and Redis client.
func NewAuth(cfg *config.Config, rdb *redis.Client) *Auth {
	return &Auth{cfg: cfg, rdb: rdb}
}

// BlacklistToken marks a token ID as revoked until its natural expiry.
func (a *Auth) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if a.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}
	if ttl <= 0 {
		return nil
	}
	return a.rdb.Set(ctx, "jwt:blacklist:"+jti, "1", ttl).Err()
}

func (a *Auth) tokenRevoked(ctx context.Context, jti string) bool {
	if a.rdb == nil || jti == "" {
		return false
	}
	ctx, span := observability.GetTraceLayer().TraceRedisOperation(ctx, "EXISTS")
	defer span.End()
	n, err := a.rdb.Exists(ctx, "jwt:blacklist:"+jti).Result()
	if err != nil {
		Logger.WarnContext(ctx, "token revocation check failed", "error", err)
		return false
	}
	return n > 0
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
		Code:  models.CodeUnauthorized,
		Error: msg,
	})
}

// extractToken pulls the JWT from the auth cookie, falling back to the
// Authorization header for API clients.
func extractToken(c *fiber.Ctx) string {
	if tok := c.Cookies(AuthCookieName); tok != "" {
		return tok
	}
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// Required enforces authentication for protected routes. On success it stores
// userID (uint), userRole (models.Role) and tokenJTI (string) in the request
// locals.
func (a *Auth) Required(c *fiber.Ctx) error {
	tokenString := extractToken(c)
	if tokenString == "" {
		return unauthorized(c, "authentication required")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(a.cfg.JWTSecret), nil
	}, jwt.WithIssuer(TokenIssuer), jwt.WithAudience(TokenAudience))

	if err != nil || !token.Valid {
		return unauthorized(c, "invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return unauthorized(c, "invalid token claims")
	}

	// User ID travels in the "sub" claim (RFC 7519)
	subStr, err := claims.GetSubject()
	if err != nil || subStr == "" {
		return unauthorized(c, "invalid token structure - missing subject")
	}

	userIDVal, err := strconv.ParseUint(subStr, 10, 32)
	if err != nil {
		return unauthorized(c, "invalid user ID in token")
	}

	roleStr, _ := claims["role"].(string)
	role := models.Role(roleStr)
	if !role.Valid() {
		return unauthorized(c, "invalid role in token")
	}

	jti, _ := claims["jti"].(string)
	if a.tokenRevoked(c.UserContext(), jti) {
		return unauthorized(c, "token has been revoked")
	}

	c.Locals("userID", uint(userIDVal))
	c.Locals("userRole", role)
	c.Locals("tokenJTI", jti)

	return c.Next()
}

// ModeratorRequired enforces that the authenticated user holds a moderator
// role. It must run after Required.
func ModeratorRequired(c *fiber.Ctx) error {
	role, ok := c.Locals("userRole").(models.Role)
	if !ok {
		return unauthorized(c, "authentication required")
	}
	if !policy.IsModerator(role) {
		return c.Status(fiber.StatusForbidden).JSON(models.ErrorResponse{
			Code:  models.CodePermissionDenied,
			Error: "admin access required",
		})
	}
	return c.Next()
}

// OwnerRequired enforces that the authenticated user holds the owner role.
// It must run after Required.
func OwnerRequired(c *fiber.Ctx) error {
	role, ok := c.Locals("userRole").(models.Role)
	if !ok {
		return unauthorized(c, "authentication required")
	}
	if !policy.IsOwner(role) {
		return c.Status(fiber.StatusForbidden).JSON(models.ErrorResponse{
			Code:  models.CodePermissionDenied,
			Error: "owner access required",
		})
	}
	return c.Next()
}
