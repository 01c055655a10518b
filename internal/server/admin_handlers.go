package server

import (
	"mural/internal/models"
	"mural/internal/validation"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// CreateAdmin handles POST /api/admin/create (owner only).
func (s *Server) CreateAdmin(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return nil
	}

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
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

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	admin, err := s.adminService.CreateAdmin(c.Context(), actor, &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashed),
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(admin)
}

// DeleteAdmin handles DELETE /api/admin/:adminId (owner only).
func (s *Server) DeleteAdmin(c *fiber.Ctx) error {
	adminID, err := s.parseID(c, "adminId")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return nil
	}

	if err := s.adminService.DeleteAdmin(c.Context(), actor, adminID); err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Admin deleted successfully"})
}

// GetAdmins handles GET /api/admin/getAll (owner only).
func (s *Server) GetAdmins(c *fiber.Ctx) error {
	page := parsePagination(c, 50)

	admins, err := s.adminService.ListAdmins(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(admins)
}

// GetAdminUsers handles GET /api/admin/users (moderator only). Returns all
// accounts with their live post counts.
func (s *Server) GetAdminUsers(c *fiber.Ctx) error {
	page := parsePagination(c, 50)

	users, err := s.adminService.ListUsers(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(users)
}
