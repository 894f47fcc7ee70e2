package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/conversation-insights/internal/logging"
)

// Version is reported by /health
const Version = "1.0.0"

// StatusInfo is what the UI needs to render its sidebar
type StatusInfo struct {
	APIKeyConfigured  bool     `json:"api_key_configured"`
	SetupInstructions string   `json:"setup_instructions,omitempty"`
	MaxFileSizeMB     int      `json:"max_file_size_mb"`
	AllowedFormats    []string `json:"allowed_formats"`
	SpeakerMode       string   `json:"speaker_mode"`
	DriveEnabled      bool     `json:"drive_enabled"`
}

// StatusHandler serves status, health and log endpoints
type StatusHandler struct {
	info StatusInfo
	logs *logging.LogBuffer
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(info StatusInfo, logs *logging.LogBuffer) *StatusHandler {
	if !info.APIKeyConfigured {
		info.SetupInstructions = SetupInstructions
	}
	return &StatusHandler{info: info, logs: logs}
}

// Status reports whether processing is available
func (h *StatusHandler) Status(c *fiber.Ctx) error {
	return c.JSON(h.info)
}

// Health is the liveness probe
func (h *StatusHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"version": Version,
	})
}

// Logs returns the most recent server log lines
func (h *StatusHandler) Logs(c *fiber.Ctx) error {
	var lines []string
	if h.logs != nil {
		lines = h.logs.GetLogs()
	}
	if lines == nil {
		lines = []string{}
	}
	return c.JSON(fiber.Map{
		"logs": lines,
	})
}
