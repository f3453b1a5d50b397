package server

import (
	"errors"
	"log/slog"
	"net/http"

	"feedql/internal/auth"
	"feedql/internal/middleware"
	"feedql/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	msgNoFile     = "No file provided!"
	msgFileStored = "File stored."
)

// UploadResponse is the body of a successful PUT /post-image.
type UploadResponse struct {
	Message  string `json:"message"`
	FilePath string `json:"filePath,omitempty"`
}

// UploadImage handles PUT /post-image. The multipart field "image" carries the
// file and the optional form value "oldPath" names an image to delete.
func (s *Server) UploadImage(c *fiber.Ctx) error {
	id := middleware.IdentityFrom(c)
	if !id.IsAuthenticated() {
		return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(auth.NotAuthenticated))
	}

	if oldPath := c.FormValue("oldPath"); oldPath != "" {
		s.images.Discard(oldPath)
	}

	file, err := c.FormFile("image")
	if err != nil {
		if !errors.Is(err, http.ErrMissingFile) {
			middleware.Logger.DebugContext(c.UserContext(), "upload without a readable file", slog.String("error", err.Error()))
		}
		return c.Status(fiber.StatusOK).JSON(UploadResponse{Message: msgNoFile})
	}

	path, err := s.images.Save(file)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	if path == "" {
		return c.Status(fiber.StatusOK).JSON(UploadResponse{Message: msgNoFile})
	}

	middleware.Logger.InfoContext(c.UserContext(), "image stored",
		slog.Uint64("user_id", uint64(id.UserID())),
		slog.String("path", path),
	)
	return c.Status(fiber.StatusCreated).JSON(UploadResponse{Message: msgFileStored, FilePath: path})
}
