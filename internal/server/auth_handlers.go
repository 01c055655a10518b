package server

import (
	"fmt"
	"strconv"
	"time"

	"mural/internal/middleware"
	"mural/internal/models"
	"mural/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// tokenLifetime is the JWT expiry and the revocation-list TTL on logout.
const tokenLifetime = 7 * 24 * time.Hour

// Signup handles POST /api/auth/signup
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username, email, and password are required"))
	}
	if err := validation.ValidateUsername(req.Username); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	existing, err := s.userRepo.GetByEmail(c.Context(), req.Email)
	if err != nil {
		return models.RespondError(c, err)
	}
	if existing != nil {
		return models.RespondWithError(c, fiber.StatusConflict,
			models.NewConflictError("Email is already registered"))
	}
	existing, err = s.userRepo.GetByUsername(c.Context(), req.Username)
	if err != nil {
		return models.RespondError(c, err)
	}
	if existing != nil {
		return models.RespondWithError(c, fiber.StatusConflict,
			models.NewConflictError("Username is already taken"))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashed),
		Role:     models.RoleUser,
	}
	if err := s.userRepo.Create(c.Context(), user); err != nil {
		return models.RespondError(c, err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	s.setAuthCookie(c, token)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userRepo.GetByEmail(c.Context(), req.Email)
	if err != nil {
		return models.RespondError(c, err)
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); cmpErr != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	token, err := s.generateToken(user)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	s.setAuthCookie(c, token)

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Logout handles POST /api/auth/logout. The token's jti is blacklisted until
// the token would have expired anyway.
func (s *Server) Logout(c *fiber.Ctx) error {
	if jti, ok := c.Locals("tokenJTI").(string); ok && jti != "" {
		if err := s.auth.BlacklistToken(c.Context(), jti, tokenLifetime); err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewDependencyError("session store", err))
		}
	}
	s.clearAuthCookie(c)

	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// CheckAuth handles GET /api/auth/check-auth
func (s *Server) CheckAuth(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return nil
	}
	return c.JSON(fiber.Map{"user": user})
}

// GetProfile handles GET /api/auth/profile
func (s *Server) GetProfile(c *fiber.Ctx) error {
	actor := s.actor(c)

	profile, err := s.userService.Get(c.Context(), actor, actor.ID)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(profile)
}

// UpdateProfile handles PUT /api/auth/profile. Accepts JSON, or multipart
// form data with an optional "image" file for the profile picture.
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return nil
	}

	var bio, picture *string

	if form, formErr := c.MultipartForm(); formErr == nil && form != nil {
		if vals := form.Value["bio"]; len(vals) > 0 {
			bio = &vals[0]
		}
		if file, fileErr := c.FormFile("image"); fileErr == nil && file != nil {
			url, upErr := s.saveUploadedFile(c, file)
			if upErr != nil {
				return models.RespondWithError(c, fiber.StatusBadRequest,
					models.NewValidationError(upErr.Error()))
			}
			picture = &url
		}
	} else {
		var req struct {
			Bio            *string `json:"bio"`
			ProfilePicture *string `json:"profile_picture"`
		}
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
		bio = req.Bio
		picture = req.ProfilePicture
	}

	updated, err := s.userService.UpdateProfile(c.Context(), user, bio, picture)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(updated)
}

// generateToken creates a session JWT carrying the user's id and role.
func (s *Server) generateToken(user *models.User) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(user.ID), 10),
		"role": string(user.Role),
		"iss":  middleware.TokenIssuer,
		"aud":  middleware.TokenAudience,
		"exp":  now.Add(tokenLifetime).Unix(),
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"jti":  generateJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// generateJTI creates a unique JWT ID so individual tokens can be revoked.
func generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}

func (s *Server) setAuthCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    token,
		Expires:  time.Now().Add(tokenLifetime),
		HTTPOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/",
	})
}

func (s *Server) clearAuthCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/",
	})
}
