package handlers

import (
	"bytes"
	"context"
	"path/filepath"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/conversation-insights/internal/pipeline"
	"github.com/codebuildervaibhav/conversation-insights/internal/storage"
	"github.com/codebuildervaibhav/conversation-insights/internal/transcription"
	"github.com/codebuildervaibhav/conversation-insights/internal/types"
)

// defaultStreamExt is used when the client names the recording without an
// extension. Browser recorders produce webm.
const defaultStreamExt = ".webm"

// Stream event types
const (
	EventAccepted = "accepted"
	EventProgress = "progress"
	EventResult   = "result"
	EventError    = "error"
)

// StreamEvent is one JSON message sent back over the socket
type StreamEvent struct {
	Type    string         `json:"type"`
	JobID   string         `json:"job_id,omitempty"`
	Step    pipeline.Step  `json:"step,omitempty"`
	Message string         `json:"message,omitempty"`
	Code    string         `json:"code,omitempty"`
	Results *types.Results `json:"results,omitempty"`
}

// streamConn is the part of a websocket connection the handler uses
type streamConn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
}

// StreamHandler receives audio over a websocket and reports each pipeline
// step as it runs. The client sends an optional name as text, the audio as
// binary messages, then "END".
type StreamHandler struct {
	processor Processor
	files     *storage.TempStorage
	limits    transcription.UploadLimits
	log       *logrus.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(processor Processor, files *storage.TempStorage, limits transcription.UploadLimits, log *logrus.Logger) *StreamHandler {
	return &StreamHandler{
		processor: processor,
		files:     files,
		limits:    limits,
		log:       log,
	}
}

// Handle processes WebSocket connections
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()
	h.serve(context.Background(), c)
}

func (h *StreamHandler) serve(ctx context.Context, c streamConn) {
	jobID := uuid.New().String()
	logEntry := h.log.WithField("job_id", jobID)
	logEntry.Info("WebSocket connection established")

	send := func(ev StreamEvent) {
		ev.JobID = jobID
		if err := c.WriteJSON(ev); err != nil {
			logEntry.WithError(err).Warn("WebSocket write failed")
		}
	}
	fail := func(e *APIError) {
		send(StreamEvent{Type: EventError, Message: e.Message, Code: e.Code})
	}

	if h.processor == nil {
		fail(missingKeyError())
		return
	}

	var (
		buffer      bytes.Buffer
		requestName string
		ended       bool
	)

	for !ended {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			logEntry.WithError(err).Warn("WebSocket read error")
			return
		}

		switch messageType {
		case websocket.TextMessage:
			msg := string(message)
			if msg == "END" {
				ended = true
				continue
			}
			if len(msg) > 0 && len(msg) < 200 {
				requestName = msg
			}
		case websocket.BinaryMessage:
			buffer.Write(message)
			if h.limits.MaxBytes > 0 && int64(buffer.Len()) > h.limits.MaxBytes {
				fail(classify(transcription.ValidateUpload(defaultStreamExt, int64(buffer.Len()), h.streamLimits())))
				return
			}
		}
	}

	if requestName == "" {
		requestName = "stream_recording"
	}
	filename := requestName
	if filepath.Ext(filename) == "" {
		filename += defaultStreamExt
	}

	if err := transcription.ValidateUpload(filename, int64(buffer.Len()), h.streamLimits()); err != nil {
		logEntry.WithError(err).Warn("Stream rejected")
		fail(classify(err))
		return
	}

	tempPath, err := h.files.Save(jobID, filename, &buffer)
	if err != nil {
		logEntry.WithError(err).Error("Failed to save stream buffer")
		fail(&APIError{Message: "Failed to save audio", Code: CodeSaveFailed})
		return
	}
	logEntry.WithField("path", tempPath).Info("Stream saved")
	send(StreamEvent{Type: EventAccepted, Message: requestName})

	job := pipeline.NewJob(jobID, requestName, types.SourceStream, tempPath, true)
	results, err := h.processor.Process(ctx, job, func(step pipeline.Step, message string) {
		send(StreamEvent{Type: EventProgress, Step: step, Message: message})
	})
	if err != nil {
		fail(classify(err))
		return
	}
	send(StreamEvent{Type: EventResult, Results: results})
}

// streamLimits accepts browser recordings on top of the configured formats
func (h *StreamHandler) streamLimits() transcription.UploadLimits {
	formats := append([]string{defaultStreamExt[1:]}, h.limits.AllowedFormats...)
	return transcription.UploadLimits{MaxBytes: h.limits.MaxBytes, AllowedFormats: formats}
}
