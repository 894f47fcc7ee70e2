package export

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/codebuildervaibhav/conversation-insights/internal/transcription"
	"github.com/codebuildervaibhav/conversation-insights/internal/types"
)

func sampleResults() *types.Results {
	text := "Where are we on batch 237? We found defects in fifteen percent of units."
	return &types.Results{
		JobID:       "job-1",
		SourceFile:  "qc.mp3",
		Transcript:  &types.TranscriptionResult{Text: text, Language: "english", Duration: 8.5},
		SpeakerData: transcription.SplitSpeakers(text, 2),
		Analysis:    types.KeywordAnalysis{MainTopic: "Quality Control", WordCount: 14},
		Insights:    json.RawMessage(`{"main_topic":"Quality Control","action_items":[{"owner":"Speaker B","task":"Recalibrate machine 3"}],"sentiment":"urgent"}`),
		ProcessedAt: time.Date(2025, 3, 4, 9, 15, 30, 0, time.UTC),
	}
}

func TestBuildIsValidJSONWithHostedFields(t *testing.T) {
	data, err := Build(sampleResults())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !json.Valid(data) {
		t.Fatalf("Build() produced invalid JSON:\n%s", data)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"original_transcript", "conversation_with_speakers", "speaker_turns", "speakers", "analysis", "insights", "timestamp"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("export missing %q", key)
		}
	}

	insights, ok := doc["insights"].(map[string]any)
	if !ok {
		t.Fatalf("insights = %T, want object", doc["insights"])
	}
	for _, key := range []string{"main_topic", "action_items", "sentiment"} {
		if _, ok := insights[key]; !ok {
			t.Errorf("insights missing hosted field %q", key)
		}
	}

	if doc["timestamp"] != "2025-03-04 09:15:30" {
		t.Errorf("timestamp = %v", doc["timestamp"])
	}
	if turns, _ := doc["speaker_turns"].([]any); len(turns) != 2 {
		t.Errorf("speaker_turns = %v, want 2 turns", doc["speaker_turns"])
	}
}

func TestBuildEmptyInsights(t *testing.T) {
	res := sampleResults()
	res.Insights = nil

	data, err := Build(res)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if string(doc.Insights) != "{}" {
		t.Errorf("Insights = %s, want {}", doc.Insights)
	}
}

func TestBuildRejectsInvalidInsights(t *testing.T) {
	res := sampleResults()
	res.Insights = json.RawMessage(`{"broken":`)
	if _, err := Build(res); err == nil {
		t.Error("Build() should reject invalid insights")
	}
}

func TestBuildNoResults(t *testing.T) {
	if _, err := Build(nil); err == nil {
		t.Error("Build(nil) should fail")
	}
}

func TestFilename(t *testing.T) {
	got := Filename(time.Date(2025, 3, 4, 9, 15, 30, 0, time.UTC))
	if got != "conversation_analysis_20250304_091530.json" {
		t.Errorf("Filename() = %q", got)
	}
}
