package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/conversation-insights/internal/pipeline"
	"github.com/codebuildervaibhav/conversation-insights/internal/storage"
	"github.com/codebuildervaibhav/conversation-insights/internal/transcription"
	"github.com/codebuildervaibhav/conversation-insights/internal/types"
)

// UploadHandler handles file uploads
type UploadHandler struct {
	processor Processor
	files     *storage.TempStorage
	limits    transcription.UploadLimits
	log       *logrus.Logger
}

// NewUploadHandler creates a new upload handler. A nil processor means no
// API key is configured and every request gets setup instructions.
func NewUploadHandler(processor Processor, files *storage.TempStorage, limits transcription.UploadLimits, log *logrus.Logger) *UploadHandler {
	return &UploadHandler{
		processor: processor,
		files:     files,
		limits:    limits,
		log:       log,
	}
}

// Handle validates the upload, runs the pipeline and returns the results
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	if h.processor == nil {
		return sendError(c, missingKeyError())
	}

	file, err := c.FormFile("file")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "No file uploaded", CodeNoFile)
	}

	if err := transcription.ValidateUpload(file.Filename, file.Size, h.limits); err != nil {
		h.log.WithFields(logrus.Fields{
			"filename": file.Filename,
			"size":     file.Size,
		}).WithError(err).Warn("Upload rejected")
		return sendError(c, classify(err))
	}

	requestName := c.FormValue("name")
	if requestName == "" {
		requestName = file.Filename
	}

	src, err := file.Open()
	if err != nil {
		h.log.WithError(err).Error("Failed to open uploaded file")
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to read file", CodeSaveFailed)
	}
	defer src.Close()

	jobID := uuid.New().String()
	tempPath, err := h.files.Save(jobID, file.Filename, src)
	if err != nil {
		h.log.WithError(err).Error("Failed to save uploaded file")
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to save file", CodeSaveFailed)
	}

	job := pipeline.NewJob(jobID, requestName, types.SourceUpload, tempPath, true)
	results, err := h.processor.Process(c.UserContext(), job, nil)
	if err != nil {
		return sendError(c, classify(err))
	}

	return c.JSON(results)
}
