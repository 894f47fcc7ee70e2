package cleanup

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Scheduler removes stale files left in the temp directory by aborted
// requests and on-demand sample generation
type Scheduler struct {
	tempDir  string
	interval time.Duration
	maxAge   time.Duration
	log      *logrus.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a new cleanup scheduler
func NewScheduler(tempDir string, intervalMinutes, maxAgeHours int, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		tempDir:  tempDir,
		interval: time.Duration(intervalMinutes) * time.Minute,
		maxAge:   time.Duration(maxAgeHours) * time.Hour,
		log:      log,
		stopChan: make(chan struct{}),
	}
}

// Start runs one sweep immediately and then one per interval
func (s *Scheduler) Start() {
	s.log.Info("Running initial temp file cleanup...")
	s.cleanOldFiles(time.Now())

	ticker := time.NewTicker(s.interval)

	go func() {
		for {
			select {
			case now := <-ticker.C:
				s.cleanOldFiles(now)
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	s.log.WithFields(logrus.Fields{
		"interval": s.interval,
		"max_age":  s.maxAge,
	}).Info("Cleanup scheduler started")
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.log.Info("Cleanup scheduler stopped")
	})
}

// cleanOldFiles removes files older than maxAge and returns how many went
func (s *Scheduler) cleanOldFiles(now time.Time) int {
	var (
		deletedCount int
		deletedSize  int64
	)

	err := filepath.Walk(s.tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}
		if info.IsDir() {
			return nil
		}

		age := now.Sub(info.ModTime())
		if age <= s.maxAge {
			return nil
		}

		if err := os.Remove(path); err != nil {
			s.log.WithError(err).WithField("file", path).Warn("Failed to delete old temp file")
			return nil
		}
		deletedCount++
		deletedSize += info.Size()
		s.log.WithFields(logrus.Fields{
			"file":    filepath.Base(path),
			"age":     age.Round(time.Minute),
			"size_kb": info.Size() / 1024,
		}).Debug("Deleted old temp file")
		return nil
	})
	if err != nil {
		s.log.WithError(err).Error("Error during cleanup")
	}

	if deletedCount > 0 {
		s.log.Infof("Cleanup complete: %d files deleted, %.2fMB freed",
			deletedCount, float64(deletedSize)/(1024*1024))
	}
	return deletedCount
}
