package pipeline

import (
	"time"

	"github.com/codebuildervaibhav/conversation-insights/internal/types"
)

// Job is one file going through the pipeline
type Job struct {
	ID          string
	RequestName string
	SourceType  string
	FilePath    string
	// RemoveAfter deletes FilePath once the job finishes
	RemoveAfter bool
	Status      string
	Error       error
	CreatedAt   time.Time
}

// NewJob creates a new job with default values
func NewJob(id, requestName, sourceType, filePath string, removeAfter bool) *Job {
	return &Job{
		ID:          id,
		RequestName: requestName,
		SourceType:  sourceType,
		FilePath:    filePath,
		RemoveAfter: removeAfter,
		Status:      types.StatusQueued,
		CreatedAt:   time.Now(),
	}
}
