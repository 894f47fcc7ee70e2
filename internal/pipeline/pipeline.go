package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/conversation-insights/internal/analysis"
	"github.com/codebuildervaibhav/conversation-insights/internal/transcription"
	"github.com/codebuildervaibhav/conversation-insights/internal/types"
)

// Step identifies a pipeline stage reported to progress listeners
type Step string

const (
	StepTranscribing        Step = "transcribing"
	StepIdentifyingSpeakers Step = "identifying_speakers"
	StepAnalyzing           Step = "analyzing"
	StepComplete            Step = "complete"
)

var stepMessages = map[Step]string{
	StepTranscribing:        "Step 1: Converting speech to text...",
	StepIdentifyingSpeakers: "Step 2: Identifying speakers...",
	StepAnalyzing:           "Step 3: Analyzing conversation...",
	StepComplete:            "Processing complete!",
}

// StepMessage returns the user-facing text for a step
func StepMessage(s Step) string {
	return stepMessages[s]
}

// ProgressFunc receives each step as it starts. It may be nil.
type ProgressFunc func(step Step, message string)

// FileRemover deletes temp files
type FileRemover interface {
	Remove(path string) error
}

// Pipeline runs transcription, speaker split and analysis for one file
type Pipeline struct {
	transcriber transcription.Transcriber
	splitter    transcription.SpeakerSplitter
	analyzer    analysis.Analyzer
	files       FileRemover
	log         *logrus.Logger
}

// New creates a pipeline
func New(
	transcriber transcription.Transcriber,
	splitter transcription.SpeakerSplitter,
	analyzer analysis.Analyzer,
	files FileRemover,
	log *logrus.Logger,
) *Pipeline {
	return &Pipeline{
		transcriber: transcriber,
		splitter:    splitter,
		analyzer:    analyzer,
		files:       files,
		log:         log,
	}
}

// Process runs every step synchronously and returns the combined results.
// A panic in any step is reported as an error.
func (p *Pipeline) Process(ctx context.Context, job *Job, progress ProgressFunc) (results *types.Results, err error) {
	logEntry := p.log.WithFields(logrus.Fields{
		"job_id": job.ID,
		"source": job.SourceType,
		"name":   job.RequestName,
	})

	// a job runs once; its temp file may already be gone
	if job.Status != types.StatusQueued {
		return nil, fmt.Errorf("job %s is %s, not %s", job.ID, job.Status, types.StatusQueued)
	}

	defer func() {
		if r := recover(); r != nil {
			logEntry.Errorf("PANIC processing job: %v\n%s", r, string(debug.Stack()))
			results = nil
			err = fmt.Errorf("processing panic: %v", r)
		}
		if err != nil {
			job.Status = types.StatusFailed
			job.Error = err
		}
		if job.RemoveAfter {
			if rmErr := p.files.Remove(job.FilePath); rmErr != nil {
				logEntry.WithError(rmErr).Warn("Failed to cleanup temp file")
			}
		}

		finished := logEntry.WithFields(logrus.Fields{
			"status": job.Status,
			"total":  time.Since(job.CreatedAt).Round(time.Millisecond),
		})
		if job.Error != nil {
			finished.WithError(job.Error).Error("Job failed")
			return
		}
		finished.Info("Job finished")
	}()

	report := func(s Step) {
		logEntry.WithField("step", s).Info(StepMessage(s))
		if progress != nil {
			progress(s, StepMessage(s))
		}
	}

	job.Status = types.StatusProcessing
	start := time.Now()

	// Step 1: hosted transcription
	report(StepTranscribing)
	transcript, err := p.transcriber.Transcribe(ctx, job.FilePath)
	if err != nil {
		logEntry.WithError(err).Error("Transcription failed")
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	// Step 2: speaker split
	report(StepIdentifyingSpeakers)
	speakers := p.splitter.Split(ctx, transcript.Text)

	// Step 3: local keyword analysis plus hosted analysis
	report(StepAnalyzing)
	keywordAnalysis := analysis.AnalyzeKeywords(transcript.Text, speakers)
	insights, err := p.analyzer.Analyze(ctx, transcript.Text, speakers)
	if err != nil {
		logEntry.WithError(err).Error("Analysis failed")
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	results = &types.Results{
		JobID:       job.ID,
		SourceFile:  job.RequestName,
		SourceType:  job.SourceType,
		Transcript:  transcript,
		SpeakerData: speakers,
		Analysis:    keywordAnalysis,
		Insights:    insights,
		ProcessedAt: time.Now(),
	}

	job.Status = types.StatusCompleted
	report(StepComplete)
	logEntry.WithFields(logrus.Fields{
		"speakers": speakers.SpeakerCount,
		"words":    keywordAnalysis.WordCount,
		"elapsed":  time.Since(start).Round(time.Millisecond),
	}).Info("Job completed successfully")
	return results, nil
}
