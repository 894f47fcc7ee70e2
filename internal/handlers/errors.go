package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/conversation-insights/internal/aiclient"
	"github.com/codebuildervaibhav/conversation-insights/internal/pipeline"
	"github.com/codebuildervaibhav/conversation-insights/internal/transcription"
	"github.com/codebuildervaibhav/conversation-insights/internal/types"
)

// Error codes returned in JSON error bodies
const (
	CodeMissingAPIKey    = "ERR_MISSING_API_KEY"
	CodeFileTooLarge     = "ERR_FILE_TOO_LARGE"
	CodeInvalidFormat    = "ERR_INVALID_FORMAT"
	CodeEmptyFile        = "ERR_EMPTY_FILE"
	CodeNoFile           = "ERR_NO_FILE"
	CodeInvalidBody      = "ERR_INVALID_BODY"
	CodeUpstream         = "ERR_UPSTREAM"
	CodeTimeout          = "ERR_TIMEOUT"
	CodeProcessingFailed = "ERR_PROCESSING_FAILED"
	CodeSaveFailed       = "ERR_SAVE_FAILED"
	CodeSampleNotFound   = "ERR_SAMPLE_NOT_FOUND"
	CodeDriveDisabled    = "ERR_DRIVE_DISABLED"
	CodeDriveUpload      = "ERR_DRIVE_UPLOAD"
	CodeDownloadFailed   = "ERR_DOWNLOAD_FAILED"
	CodeInvalidURL       = "ERR_INVALID_URL"
	CodeHTTP             = "ERR_HTTP"
)

// SetupInstructions is shown when no API key could be resolved
const SetupInstructions = "OpenAI API key not configured. Add OPENAI_API_KEY to .env " +
	"(see .env.example) or to config/secrets.yaml, then restart the server."

// Processor runs the pipeline for one job
type Processor interface {
	Process(ctx context.Context, job *pipeline.Job, progress pipeline.ProgressFunc) (*types.Results, error)
}

// APIError is a classified failure ready to be sent to the client
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Code    string `json:"code"`
}

func (e *APIError) Error() string { return e.Message }

func errorResponse(c *fiber.Ctx, status int, message, code string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}

func sendError(c *fiber.Ctx, e *APIError) error {
	return errorResponse(c, e.Status, e.Message, e.Code)
}

func missingKeyError() *APIError {
	return &APIError{Status: fiber.StatusServiceUnavailable, Message: SetupInstructions, Code: CodeMissingAPIKey}
}

// classify maps validation, hosted API and pipeline errors to a response
func classify(err error) *APIError {
	var upstream *aiclient.UpstreamError
	switch {
	case errors.Is(err, transcription.ErrFileTooLarge):
		return &APIError{Status: fiber.StatusRequestEntityTooLarge, Message: err.Error(), Code: CodeFileTooLarge}
	case errors.Is(err, transcription.ErrUnsupportedFormat):
		return &APIError{Status: fiber.StatusBadRequest, Message: err.Error(), Code: CodeInvalidFormat}
	case errors.Is(err, transcription.ErrEmptyFile):
		return &APIError{Status: fiber.StatusBadRequest, Message: err.Error(), Code: CodeEmptyFile}
	case errors.Is(err, context.DeadlineExceeded):
		return &APIError{Status: fiber.StatusGatewayTimeout, Message: "Processing timed out", Code: CodeTimeout}
	case errors.As(err, &upstream):
		return &APIError{Status: fiber.StatusBadGateway, Message: upstream.Message, Code: CodeUpstream}
	default:
		return &APIError{Status: fiber.StatusInternalServerError, Message: err.Error(), Code: CodeProcessingFailed}
	}
}

// ErrorHandler renders errors that escape handlers, including fiber's own
// body limit and routing errors, as JSON.
func ErrorHandler(log *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code := CodeHTTP
			if fe.Code == fiber.StatusRequestEntityTooLarge {
				code = CodeFileTooLarge
			}
			return errorResponse(c, fe.Code, fe.Message, code)
		}

		log.WithError(err).Error("Unhandled request error")
		return sendError(c, classify(err))
	}
}
