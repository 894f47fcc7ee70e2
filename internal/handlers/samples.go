package handlers

import (
	"context"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/conversation-insights/internal/pipeline"
	"github.com/codebuildervaibhav/conversation-insights/internal/samples"
	"github.com/codebuildervaibhav/conversation-insights/internal/transcription"
	"github.com/codebuildervaibhav/conversation-insights/internal/types"
)

// SampleGenerator synthesizes missing scenario audio
type SampleGenerator interface {
	Generate(ctx context.Context, s samples.Scenario, outPath string, multiVoice bool) error
}

// SamplesHandler lists, serves and processes the built-in scenarios
type SamplesHandler struct {
	processor Processor
	generator SampleGenerator
	dir       string
	log       *logrus.Logger
}

// NewSamplesHandler creates a new samples handler. processor and generator
// are nil when no API key is configured.
func NewSamplesHandler(processor Processor, generator SampleGenerator, dir string, log *logrus.Logger) *SamplesHandler {
	return &SamplesHandler{
		processor: processor,
		generator: generator,
		dir:       dir,
		log:       log,
	}
}

// List returns every scenario with the state of its audio file
func (h *SamplesHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"samples":              samples.Catalog(h.dir),
		"generation_available": h.generator != nil,
	})
}

// Audio streams a generated sample for preview
func (h *SamplesHandler) Audio(c *fiber.Ctx) error {
	entry, ok := samples.Lookup(h.dir, c.Params("id"))
	if !ok {
		return errorResponse(c, fiber.StatusNotFound, "Sample not found", CodeSampleNotFound)
	}
	if !entry.Available {
		return errorResponse(c, fiber.StatusNotFound, "Sample audio has not been generated yet", CodeSampleNotFound)
	}
	if err := c.SendFile(entry.Path); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, transcription.AudioMIMEType(entry.Filename))
	return nil
}

// Process runs the pipeline on a sample, generating its audio first when
// the file does not exist yet
func (h *SamplesHandler) Process(c *fiber.Ctx) error {
	entry, ok := samples.Lookup(h.dir, c.Params("id"))
	if !ok {
		return errorResponse(c, fiber.StatusNotFound, "Sample not found", CodeSampleNotFound)
	}
	if h.processor == nil {
		return sendError(c, missingKeyError())
	}

	logEntry := h.log.WithField("sample", entry.Name)
	if !entry.Available {
		if h.generator == nil {
			return sendError(c, missingKeyError())
		}
		logEntry.Info("Generating sample audio on demand")
		if err := os.MkdirAll(h.dir, 0755); err != nil {
			return errorResponse(c, fiber.StatusInternalServerError, "Failed to create sample directory", CodeSaveFailed)
		}
		if err := h.generator.Generate(c.UserContext(), entry.Scenario, entry.Path, false); err != nil {
			logEntry.WithError(err).Error("Sample generation failed")
			return sendError(c, classify(err))
		}
	}

	// samples are kept for reuse, only uploads are removed after processing
	job := pipeline.NewJob(uuid.New().String(), entry.Filename, types.SourceSample, entry.Path, false)
	results, err := h.processor.Process(c.UserContext(), job, nil)
	if err != nil {
		return sendError(c, classify(err))
	}
	return c.JSON(results)
}
