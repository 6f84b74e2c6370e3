package handler

import (
	"fmt"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"accountmarket/internal/domain/service"
	"accountmarket/pkg/errors"
	"accountmarket/pkg/logger"
	"accountmarket/pkg/response"
)

// FileHandler stores transfer proofs and dispute evidence. Files are always
// private; parties reach them through the URL recorded on the step or
// evidence item.
type FileHandler struct {
	storage     service.EvidenceStorage
	maxFileSize int64
}

var fileHandler *FileHandler

func NewFileHandler(storage service.EvidenceStorage) *FileHandler {
	return &FileHandler{
		storage:     storage,
		maxFileSize: 10 * 1024 * 1024,
	}
}

func SetupFileHandler(storage service.EvidenceStorage) {
	fileHandler = NewFileHandler(storage)
}

func GetFileHandler() *FileHandler {
	return fileHandler
}

func (h *FileHandler) UploadFile(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, errors.BadRequest("Missing or invalid file", err))
	}

	if file.Size > h.maxFileSize {
		logger.Warn("File too large: %d bytes (max: %d)", file.Size, h.maxFileSize)
		return response.Error(c, errors.BadRequest(fmt.Sprintf("File size exceeds maximum allowed (%dMB)", h.maxFileSize/(1024*1024)), nil))
	}

	fileType := file.Header.Get("Content-Type")
	if !isAllowedFileType(fileType) {
		return response.Error(c, errors.BadRequest("File type not supported", nil))
	}

	folder, err := uploadFolder(c.FormValue("purpose"), currentUserID(c))
	if err != nil {
		return response.Error(c, err)
	}

	src, err := file.Open()
	if err != nil {
		return response.Error(c, errors.Internal("Unable to read file", err))
	}
	defer src.Close()

	url, err := h.storage.UploadFile(c.Request().Context(), src, fileType, folder, false)
	if err != nil {
		logger.Error("Error from storage client: %v", err)
		return response.Error(c, errors.Internal("Failed to upload file", err))
	}

	return response.Created(c, map[string]interface{}{
		"url":      url,
		"filename": file.Filename,
		"size":     file.Size,
	})
}

type uploadURLRequest struct {
	FileType string `json:"file_type" validate:"required"`
	Purpose  string `json:"purpose" validate:"required,oneof=proof evidence"`
}

// CreateUploadURL hands out a signed PUT URL so large recordings bypass the
// API.
func (h *FileHandler) CreateUploadURL(c echo.Context) error {
	var req uploadURLRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	if !isAllowedFileType(req.FileType) {
		return response.Error(c, errors.BadRequest("File type not supported", nil))
	}

	folder, err := uploadFolder(req.Purpose, currentUserID(c))
	if err != nil {
		return response.Error(c, err)
	}

	uploadURL, objectURL, err := h.storage.GenerateSignedUploadURL(c.Request().Context(), req.FileType, folder)
	if err != nil {
		logger.Error("Failed to sign upload URL: %v", err)
		return response.Error(c, errors.Internal("Failed to create upload URL", err))
	}

	return response.Success(c, map[string]string{
		"upload_url": uploadURL,
		"file_url":   objectURL,
	})
}

func uploadFolder(purpose, userID string) (string, error) {
	switch purpose {
	case "", "proof":
		purpose = "proofs"
	case "evidence":
	default:
		return "", errors.BadRequest("purpose must be one of: proof evidence", nil)
	}
	return purpose + "/" + sanitizeFolderName(userID), nil
}

func isAllowedFileType(fileType string) bool {
	allowedTypes := []string{
		"image/jpeg",
		"image/jpg",
		"image/png",
		"image/webp",
		"video/mp4",
		"application/pdf",
	}

	for _, allowedType := range allowedTypes {
		if fileType == allowedType {
			return true
		}
	}

	return false
}

func sanitizeFolderName(folder string) string {
	folder = filepath.Base(folder)

	validChars := []rune{}
	for _, char := range folder {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			validChars = append(validChars, char)
		}
	}

	sanitized := string(validChars)
	if sanitized == "" {
		return "anonymous"
	}

	return sanitized
}
