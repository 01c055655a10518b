package server

import (
	"mural/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetActivities handles GET /api/activities/getAll. An optional actorId query
// parameter restricts the feed to one user's activity.
func (s *Server) GetActivities(c *fiber.Ctx) error {
	page := parsePagination(c, 50)

	actorID := c.QueryInt("actorId")
	if actorID > 0 {
		entries, err := s.activityService.FeedByActor(c.Context(), uint(actorID), page.Limit, page.Offset)
		if err != nil {
			return models.RespondError(c, err)
		}
		return c.JSON(entries)
	}

	entries, err := s.activityService.Feed(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(entries)
}
