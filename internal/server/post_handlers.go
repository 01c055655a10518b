package server

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"

	"mural/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// GetPosts handles GET /api/posts/getAll
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePagination(c, 20)

	posts, err := s.postService.List(c.Context(), s.actor(c), page.Limit, page.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(posts)
}

// UploadPost handles POST /api/posts/upload. Multipart with a "content"
// field and an optional "image" file.
func (s *Server) UploadPost(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return nil
	}

	content := c.FormValue("content")

	imageURL := ""
	if file, fileErr := c.FormFile("image"); fileErr == nil && file != nil {
		url, upErr := s.saveUploadedFile(c, file)
		if upErr != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError(upErr.Error()))
		}
		imageURL = url
	}

	post, err := s.postService.Create(c.Context(), user, content, imageURL)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// ToggleLike handles GET /api/posts/like/:postId. Liking an already-liked
// post unlikes it.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	user, err := s.currentUser(c)
	if err != nil {
		return nil
	}

	post, err := s.postService.ToggleLike(c.Context(), user, postID)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:postId
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	user, err := s.currentUser(c)
	if err != nil {
		return nil
	}

	if err := s.postService.Delete(c.Context(), user, postID); err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted successfully"})
}

// RemoveLike handles DELETE /api/posts/:postId/like/:userId (moderator only).
func (s *Server) RemoveLike(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	post, err := s.postService.RemoveLike(c.Context(), s.actor(c), postID, userID)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(post)
}

// GetUserPosts handles GET /api/users/:id/posts
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	authorID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 20)

	posts, err := s.postService.ListByAuthor(c.Context(), s.actor(c), authorID, page.Limit, page.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(posts)
}

// saveUploadedFile spools a multipart file to a temp path, hands it to the
// uploader and removes the temp file whether the upload succeeded or not.
func (s *Server) saveUploadedFile(c *fiber.Ctx, file *multipart.FileHeader) (string, error) {
	tmpPath := filepath.Join(os.TempDir(), "mural-upload-"+uuid.New().String())
	if err := c.SaveFile(file, tmpPath); err != nil {
		return "", fmt.Errorf("saving upload: %w", err)
	}
	defer os.Remove(tmpPath)

	return s.uploader.Upload(tmpPath, file.Filename)
}
