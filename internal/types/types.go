package types

import (
	"encoding/json"
	"time"
)

// Job status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Source type constants
const (
	SourceUpload = "upload"
	SourceSample = "sample"
	SourceStream = "stream"
	SourceDrive  = "drive_link"
)

// Speaker split methods
const (
	SpeakerMethodHeuristic = "heuristic"
	SpeakerMethodLabels    = "labels"
	SpeakerMethodLLM       = "llm"
)

// TranscriptionResult represents the output from the hosted transcription API
type TranscriptionResult struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Segments []Segment `json:"segments"`
}

// Segment represents a timestamped segment of transcription
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Turn is one speaker turn produced by the speaker split
type Turn struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// SpeakerData is the outcome of splitting a transcript into speaker turns
type SpeakerData struct {
	FormattedConversation string              `json:"formatted_conversation"`
	Turns                 []Turn              `json:"turns"`
	Speakers              map[string][]string `json:"speakers"`
	SpeakerOrder          []string            `json:"speaker_order"`
	SpeakerCount          int                 `json:"speaker_count"`
	Method                string              `json:"method"`
}

// SpeakerStats summarises one speaker's contribution
type SpeakerStats struct {
	Utterances         int `json:"utterances"`
	Words              int `json:"words"`
	SafetyMentions     int `json:"safety_mentions"`
	QualityMentions    int `json:"quality_mentions"`
	ProductionMentions int `json:"production_mentions"`
}

// KeywordAnalysis is the local manufacturing-topic analysis
type KeywordAnalysis struct {
	MainTopic          string                  `json:"main_topic"`
	SafetyMentions     int                     `json:"safety_mentions"`
	QualityMentions    int                     `json:"quality_mentions"`
	ProductionMentions int                     `json:"production_mentions"`
	KeyPoints          []string                `json:"key_points"`
	WordCount          int                     `json:"word_count"`
	EstimatedDuration  string                  `json:"estimated_duration"`
	SpeakerAnalysis    map[string]SpeakerStats `json:"speaker_analysis"`
	TotalSpeakers      int                     `json:"total_speakers"`
}

// Results bundles everything produced for one processed file
type Results struct {
	JobID       string               `json:"job_id"`
	SourceFile  string               `json:"source_file"`
	SourceType  string               `json:"source_type"`
	Transcript  *TranscriptionResult `json:"transcript"`
	SpeakerData SpeakerData          `json:"speaker_data"`
	Analysis    KeywordAnalysis      `json:"analysis"`
	Insights    json.RawMessage      `json:"insights"`
	ProcessedAt time.Time            `json:"processed_at"`
}
