package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// TempStorage holds uploaded audio for the duration of one request
type TempStorage struct {
	dir string
}

// NewTempStorage creates the temp directory if needed
func NewTempStorage(dir string) (*TempStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &TempStorage{dir: dir}, nil
}

// Dir returns the temp directory
func (ts *TempStorage) Dir() string {
	return ts.dir
}

// Save writes r to <dir>/<jobID><ext of filename> and returns the path
func (ts *TempStorage) Save(jobID, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(ts.dir, jobID+ext)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return path, nil
}

// Remove deletes a temp file. Missing files are not an error.
func (ts *TempStorage) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SanitizeFilename reduces a user-supplied name to a safe base name
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r), r < 0x20:
			b.WriteRune('_')
		case r == ' ':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	result := strings.Trim(b.String(), "._")
	if result == "" {
		result = "untitled"
	}
	if len(result) > 100 {
		result = result[:100] // Limit length
	}
	return result
}
