package handlers

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storybook-service/internal/models"
	"storybook-service/internal/storage"
	"storybook-service/internal/validation"
)

type UploadHandler struct {
	storage   storage.Store
	validator *validation.Validator
}

func NewUploadHandler(storageStore storage.Store, validator *validation.Validator) *UploadHandler {
	return &UploadHandler{
		storage:   storageStore,
		validator: validator,
	}
}

// UploadPhoto stores a single photo and runs the quality checks on it.
// A photo that fails the checks is still a successful request: the
// response carries valid=false with the reason, and no usable URL is
// implied for ordering. Exactly one file per request.
func (h *UploadHandler) UploadPhoto(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "no file provided"})
		return
	}

	if fileHeader.Size >= validation.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
			Detail: fmt.Sprintf("file exceeds %d MB limit", validation.MaxUploadBytes>>20),
		})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "failed to read file"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "failed to read file"})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !validation.IsAllowedMIMEType(contentType) {
		// Fall back to sniffing; browsers occasionally omit the part type.
		contentType = http.DetectContentType(data)
		if !validation.IsAllowedMIMEType(contentType) {
			c.JSON(http.StatusUnsupportedMediaType, models.ErrorResponse{Detail: "only JPEG and PNG images are accepted"})
			return
		}
	}

	result, err := h.validator.Validate(c.Request.Context(), data)
	if err != nil {
		log.Printf("photo validation error: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "photo validation failed"})
		return
	}

	response := models.UploadResponse{
		Valid:  result.Valid,
		Reason: result.Reason,
		Checks: &result.Checks,
	}

	if result.Valid {
		path := fmt.Sprintf("photos/%s%s", uuid.New(), photoExt(fileHeader.Filename, contentType))
		url, err := h.storage.Upload(path, contentType, data)
		if err != nil {
			log.Printf("photo upload error: %v", err)
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "failed to store photo"})
			return
		}
		response.URL = url
	}

	c.JSON(http.StatusOK, response)
}

func photoExt(filename, contentType string) string {
	if ext := strings.ToLower(filepath.Ext(filename)); ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
		return ext
	}
	if contentType == "image/png" {
		return ".png"
	}
	return ".jpg"
}
