package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/conversation-insights/internal/pipeline"
	"github.com/codebuildervaibhav/conversation-insights/internal/storage"
	"github.com/codebuildervaibhav/conversation-insights/internal/transcription"
	"github.com/codebuildervaibhav/conversation-insights/internal/types"
)

const driveDownloadURL = "https://drive.google.com/uc?export=download&id=%s"

var (
	driveFilePathRe = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)
	driveIDParamRe  = regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`)
	driveBareIDRe   = regexp.MustCompile(`^([a-zA-Z0-9_-]{25,40})$`)
)

// DriveLinkRequest represents the request body
type DriveLinkRequest struct {
	URL  string `json:"url" validate:"required"`
	Name string `json:"name" validate:"max=200"`
}

// DriveLinkHandler processes audio shared as a public Google Drive link
type DriveLinkHandler struct {
	processor   Processor
	files       *storage.TempStorage
	limits      transcription.UploadLimits
	client      *http.Client
	downloadURL string
	validate    *validator.Validate
	log         *logrus.Logger
}

// NewDriveLinkHandler creates a new Google Drive link handler
func NewDriveLinkHandler(processor Processor, files *storage.TempStorage, limits transcription.UploadLimits, log *logrus.Logger) *DriveLinkHandler {
	return &DriveLinkHandler{
		processor:   processor,
		files:       files,
		limits:      limits,
		client:      &http.Client{Timeout: 2 * time.Minute},
		downloadURL: driveDownloadURL,
		validate:    validator.New(),
		log:         log,
	}
}

// Handle downloads the linked file and runs the pipeline on it
func (h *DriveLinkHandler) Handle(c *fiber.Ctx) error {
	if h.processor == nil {
		return sendError(c, missingKeyError())
	}

	var req DriveLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", CodeInvalidBody)
	}
	if err := h.validate.Struct(req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "URL is required", CodeInvalidBody)
	}

	fileID := extractGDriveFileID(req.URL)
	if fileID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid Google Drive URL", CodeInvalidURL)
	}

	filename := req.Name
	if filename == "" {
		filename = "gdrive_file"
	}
	if filepath.Ext(filename) == "" {
		filename += ".mp3"
	}
	if !transcription.ValidateAudioFormat(filename, h.limits.AllowedFormats) {
		return sendError(c, classify(transcription.ValidateUpload(filename, 0, h.limits)))
	}

	jobID := uuid.New().String()
	logEntry := h.log.WithFields(logrus.Fields{"job_id": jobID, "file_id": fileID})
	logEntry.Info("Downloading from Google Drive")

	tempPath, err := h.download(c.UserContext(), jobID, fileID, filename)
	if err != nil {
		logEntry.WithError(err).Warn("Google Drive download failed")
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return sendError(c, apiErr)
		}
		return sendError(c, classify(err))
	}

	job := pipeline.NewJob(jobID, filename, types.SourceDrive, tempPath, true)
	results, err := h.processor.Process(c.UserContext(), job, nil)
	if err != nil {
		return sendError(c, classify(err))
	}
	return c.JSON(results)
}

// download saves the file to temp storage, enforcing the size cap while
// reading since Drive does not always send a length.
func (h *DriveLinkHandler) download(ctx context.Context, jobID, fileID, filename string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(h.downloadURL, fileID), nil)
	if err != nil {
		return "", err
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return "", &APIError{Status: fiber.StatusBadGateway, Message: "Failed to download file from Google Drive", Code: CodeDownloadFailed}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Status: fiber.StatusBadRequest, Message: "File not accessible (may be private or doesn't exist)", Code: CodeDownloadFailed}
	}

	body := io.Reader(resp.Body)
	if h.limits.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, h.limits.MaxBytes+1)
	}
	tempPath, err := h.files.Save(jobID, filename, body)
	if err != nil {
		return "", err
	}

	size, err := fileSize(tempPath)
	if err == nil {
		err = transcription.ValidateUpload(filename, size, h.limits)
	}
	if err != nil {
		h.discard(tempPath)
		return "", err
	}
	return tempPath, nil
}

// discard removes a rejected download
func (h *DriveLinkHandler) discard(path string) {
	if err := h.files.Remove(path); err != nil {
		h.log.WithError(err).WithField("path", path).Warn("Failed to cleanup temp file")
	}
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// extractGDriveFileID extracts the file ID from various Google Drive URL formats
func extractGDriveFileID(url string) string {
	// https://drive.google.com/file/d/{ID}/view
	if matches := driveFilePathRe.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}
	// https://drive.google.com/open?id={ID}
	if matches := driveIDParamRe.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}
	if matches := driveBareIDRe.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}
	return ""
}
