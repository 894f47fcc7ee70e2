package transcription

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/conversation-insights/internal/aiclient"
	"github.com/codebuildervaibhav/conversation-insights/internal/types"
)

// Transcriber turns an audio file into text
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*types.TranscriptionResult, error)
}

// OpenAITranscriber sends audio to the hosted Whisper API
type OpenAITranscriber struct {
	client   *openai.Client
	model    string
	language string
	log      *logrus.Logger
}

// NewOpenAITranscriber creates a transcriber for the given model. language
// may be empty to let the service detect it.
func NewOpenAITranscriber(client *openai.Client, model, language string, log *logrus.Logger) *OpenAITranscriber {
	return &OpenAITranscriber{
		client:   client,
		model:    model,
		language: language,
		log:      log,
	}
}

// Transcribe uploads the file and returns the transcript
func (t *OpenAITranscriber) Transcribe(ctx context.Context, audioPath string) (*types.TranscriptionResult, error) {
	t.log.WithFields(logrus.Fields{"file": audioPath, "model": t.model}).Info("Transcribing audio")

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: audioPath,
		Language: t.language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, aiclient.Wrap("transcription", err)
	}

	segments := make([]types.Segment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		segments = append(segments, types.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}

	duration := resp.Duration
	if duration == 0 && len(segments) > 0 {
		duration = segments[len(segments)-1].End
	}

	result := &types.TranscriptionResult{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
		Duration: duration,
		Segments: segments,
	}

	t.log.WithFields(logrus.Fields{
		"segments": len(segments),
		"duration": duration,
		"language": resp.Language,
	}).Info("Transcription completed")
	return result, nil
}
