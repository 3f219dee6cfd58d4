package handler

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/service"
)

// FileHandler records uploads. Only metadata is kept; the content is read
// to measure it and then dropped.
type FileHandler struct {
	service FileService
}

func NewFileHandler(service FileService) *FileHandler {
	return &FileHandler{service: service}
}

// Upload handles POST /v1/files.
//
// @Summary      Record an uploaded file
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "File to record"
// @Success      201   {object}  domain.FileMeta
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/files [post]
func (h *FileHandler) Upload(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return fmt.Errorf("%w: file is required", domain.ErrValidation)
	}
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("%w: unreadable upload", domain.ErrValidation)
	}
	defer src.Close()

	size, err := io.Copy(io.Discard, src)
	if err != nil {
		return fmt.Errorf("%w: unreadable upload", domain.ErrValidation)
	}

	meta, err := h.service.Track(c.Request().Context(), sess.Username, filepath.Base(fh.Filename), size)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, meta)
}

// List handles GET /v1/files.
//
// @Summary      Latest uploads
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  fileListResponse
// @Router       /v1/files [get]
func (h *FileHandler) List(c echo.Context) error {
	files, err := h.service.List(c.Request().Context(), service.DefaultListLimit)
	if err != nil {
		return err
	}
	if files == nil {
		files = []domain.FileMeta{}
	}
	return c.JSON(http.StatusOK, fileListResponse{Files: files})
}
