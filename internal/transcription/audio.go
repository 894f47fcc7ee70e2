package transcription

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Upload validation errors
var (
	ErrEmptyFile         = errors.New("uploaded file is empty")
	ErrFileTooLarge      = errors.New("file too large")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// UploadLimits bounds what the demo accepts
type UploadLimits struct {
	MaxBytes       int64
	AllowedFormats []string
}

// ValidateUpload checks the size cap and the format allowlist
func ValidateUpload(filename string, size int64, limits UploadLimits) error {
	if !ValidateAudioFormat(filename, limits.AllowedFormats) {
		return fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat,
			filepath.Ext(filename), strings.Join(limits.AllowedFormats, ", "))
	}
	if size <= 0 {
		return ErrEmptyFile
	}
	if limits.MaxBytes > 0 && size > limits.MaxBytes {
		return fmt.Errorf("%w: %.1fMB (max %dMB)", ErrFileTooLarge,
			float64(size)/(1024*1024), limits.MaxBytes/(1024*1024))
	}
	return nil
}

// ValidateAudioFormat checks if the file extension is in the allowlist
func ValidateAudioFormat(filename string, allowed []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return false
	}

	for _, format := range allowed {
		if ext == strings.TrimPrefix(strings.ToLower(format), ".") {
			return true
		}
	}
	return false
}

var audioMIMETypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".webm": "audio/webm",
}

// AudioMIMEType returns the content type used for preview and download
func AudioMIMEType(filename string) string {
	if t, ok := audioMIMETypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return t
	}
	return "application/octet-stream"
}
