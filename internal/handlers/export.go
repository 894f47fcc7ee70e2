package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/conversation-insights/internal/export"
	"github.com/codebuildervaibhav/conversation-insights/internal/types"
)

// DriveUploader stores an export file and returns a link to it
type DriveUploader interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
}

// ExportHandler turns results posted back by the UI into the JSON export
type ExportHandler struct {
	drive DriveUploader
	now   func() time.Time
	log   *logrus.Logger
}

// NewExportHandler creates a new export handler. drive is nil when Google
// Drive export is not configured.
func NewExportHandler(drive DriveUploader, log *logrus.Logger) *ExportHandler {
	return &ExportHandler{
		drive: drive,
		now:   time.Now,
		log:   log,
	}
}

// Download returns the export as an attachment
func (h *ExportHandler) Download(c *fiber.Ctx) error {
	data, filename, apiErr := h.build(c)
	if apiErr != nil {
		return sendError(c, apiErr)
	}

	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Type("json")
	return c.Send(data)
}

// Drive uploads the export to Google Drive
func (h *ExportHandler) Drive(c *fiber.Ctx) error {
	if h.drive == nil {
		return errorResponse(c, fiber.StatusServiceUnavailable,
			"Google Drive export is not configured", CodeDriveDisabled)
	}

	data, filename, apiErr := h.build(c)
	if apiErr != nil {
		return sendError(c, apiErr)
	}

	url, err := h.drive.Upload(c.UserContext(), filename, data)
	if err != nil {
		h.log.WithError(err).Error("Google Drive export failed")
		return errorResponse(c, fiber.StatusBadGateway, err.Error(), CodeDriveUpload)
	}

	h.log.WithFields(logrus.Fields{"filename": filename, "url": url}).Info("Exported to Google Drive")
	return c.JSON(fiber.Map{
		"filename": filename,
		"url":      url,
	})
}

func (h *ExportHandler) build(c *fiber.Ctx) ([]byte, string, *APIError) {
	var res types.Results
	if err := json.Unmarshal(c.Body(), &res); err != nil {
		return nil, "", &APIError{Status: fiber.StatusBadRequest, Message: "Invalid request body", Code: CodeInvalidBody}
	}
	if res.ProcessedAt.IsZero() {
		res.ProcessedAt = h.now()
	}

	data, err := export.Build(&res)
	if err != nil {
		return nil, "", &APIError{Status: fiber.StatusBadRequest, Message: err.Error(), Code: CodeInvalidBody}
	}
	return data, export.Filename(h.now()), nil
}
