package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/codebuildervaibhav/conversation-insights/internal/types"
)

// TimestampLayout matches the timestamp shown in the UI
const TimestampLayout = "2006-01-02 15:04:05"

// Document is the downloadable JSON export
type Document struct {
	OriginalTranscript       string                `json:"original_transcript"`
	ConversationWithSpeakers string                `json:"conversation_with_speakers"`
	SpeakerTurns             []types.Turn          `json:"speaker_turns"`
	Speakers                 map[string][]string   `json:"speakers"`
	SpeakerMethod            string                `json:"speaker_method"`
	Analysis                 types.KeywordAnalysis `json:"analysis"`
	Insights                 json.RawMessage       `json:"insights"`
	Language                 string                `json:"language,omitempty"`
	DurationSeconds          float64               `json:"duration_seconds,omitempty"`
	SourceFile               string                `json:"source_file"`
	Timestamp                string                `json:"timestamp"`
}

// NewDocument flattens pipeline results into the export shape
func NewDocument(res *types.Results) (*Document, error) {
	if res == nil || res.Transcript == nil {
		return nil, errors.New("export: no results to export")
	}

	insights := res.Insights
	if len(insights) == 0 || string(insights) == "null" {
		insights = json.RawMessage(`{}`)
	}
	if !json.Valid(insights) {
		return nil, errors.New("export: insights are not valid JSON")
	}

	return &Document{
		OriginalTranscript:       res.Transcript.Text,
		ConversationWithSpeakers: res.SpeakerData.FormattedConversation,
		SpeakerTurns:             res.SpeakerData.Turns,
		Speakers:                 res.SpeakerData.Speakers,
		SpeakerMethod:            res.SpeakerData.Method,
		Analysis:                 res.Analysis,
		Insights:                 insights,
		Language:                 res.Transcript.Language,
		DurationSeconds:          res.Transcript.Duration,
		SourceFile:               res.SourceFile,
		Timestamp:                res.ProcessedAt.Format(TimestampLayout),
	}, nil
}

// Build renders the export as indented JSON
func Build(res *types.Results) ([]byte, error) {
	doc, err := NewDocument(res)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: failed to marshal: %w", err)
	}
	return data, nil
}

// Filename returns the download name for an export made at t
func Filename(t time.Time) string {
	return fmt.Sprintf("conversation_analysis_%s.json", t.Format("20060102_150405"))
}
