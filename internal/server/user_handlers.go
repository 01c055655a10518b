package server

import (
	"mural/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetUser handles GET /api/users/:id
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	profile, err := s.userService.Get(c.Context(), s.actor(c), id)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(profile)
}

// GetUsers handles GET /api/users/getAll
func (s *Server) GetUsers(c *fiber.Ctx) error {
	page := parsePagination(c, 50)

	users, err := s.userService.List(c.Context(), s.actor(c), page.Limit, page.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(users)
}

// FollowUser handles POST /api/users/:id/follow
func (s *Server) FollowUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.currentUser(c)
	if err != nil {
		return nil
	}

	if err := s.userService.Follow(c.Context(), user, id); err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User followed successfully"})
}

// UnfollowUser handles DELETE /api/users/:id/unfollow
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.currentUser(c)
	if err != nil {
		return nil
	}

	if err := s.userService.Unfollow(c.Context(), user, id); err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User unfollowed successfully"})
}

// BlockUser handles POST /api/users/:id/block
func (s *Server) BlockUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.currentUser(c)
	if err != nil {
		return nil
	}

	if err := s.userService.Block(c.Context(), user, id); err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User blocked successfully"})
}

// UnblockUser handles DELETE /api/users/:id/unblock
func (s *Server) UnblockUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.currentUser(c)
	if err != nil {
		return nil
	}

	if err := s.userService.Unblock(c.Context(), user, id); err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User unblocked successfully"})
}

// GetBlockedUsers handles GET /api/users/blocked
func (s *Server) GetBlockedUsers(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	blocked, err := s.userService.Blocked(c.Context(), userID)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(blocked)
}

// DeleteUser handles DELETE /api/users/:id (moderator only).
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.currentUser(c)
	if err != nil {
		return nil
	}

	if err := s.userService.Delete(c.Context(), user, id); err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}
