package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

const maxBufferedLines = 1000

// New builds the application logger. Output goes to stdout and to buf so
// recent lines can be served over HTTP.
func New(level, format string, buf *LogBuffer) *logrus.Logger {
	log := logrus.New()

	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if buf != nil {
		log.SetOutput(io.MultiWriter(os.Stdout, buf))
	} else {
		log.SetOutput(os.Stdout)
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log
}

// LogBuffer captures logs in memory
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

// NewLogBuffer creates an empty buffer
func NewLogBuffer() *LogBuffer {
	return &LogBuffer{lines: make([]string, 0, maxBufferedLines)}
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))

	// Keep last 1000 lines
	if len(lb.lines) > maxBufferedLines {
		lb.lines = lb.lines[len(lb.lines)-maxBufferedLines:]
	}

	return len(p), nil
}

// GetLogs returns a copy of the buffered lines
func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}
