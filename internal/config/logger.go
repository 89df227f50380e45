package config

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jamfkit/sgscan/internal/models"
)

const (
	runIDField         = "run_id"
	maxDiagnosticItems = 100
)

// diagnostics is a logrus hook that stamps every entry with the run id and
// keeps the most recent warnings and errors in a ring buffer so the CLI
// can summarize them after output has been written.
type diagnostics struct {
	runID       uuid.UUID
	eventBuffer []*models.LogEntry
	maxSize     int
	currentPos  int
	isFull      bool
	mu          sync.RWMutex
}

func newDiagnostics(size int) *diagnostics {
	return &diagnostics{
		runID:       uuid.New(),
		eventBuffer: make([]*models.LogEntry, size),
		maxSize:     size,
	}
}

func (d *diagnostics) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (d *diagnostics) Fire(entry *logrus.Entry) error {
	entry.Data[runIDField] = d.runID.String()

	if entry.Level > logrus.WarnLevel {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.eventBuffer[d.currentPos] = models.NewLogEntry(entry)
	d.currentPos = (d.currentPos + 1) % d.maxSize
	if d.currentPos == 0 {
		d.isFull = true
	}
	return nil
}

// GetEvents returns recorded entries oldest first.
func (d *diagnostics) GetEvents() []*models.LogEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.isFull {
		result := make([]*models.LogEntry, d.currentPos)
		copy(result, d.eventBuffer[:d.currentPos])
		return result
	}

	result := make([]*models.LogEntry, d.maxSize)
	copy(result, d.eventBuffer[d.currentPos:])
	copy(result[d.maxSize-d.currentPos:], d.eventBuffer[:d.currentPos])
	return result
}

func (d *diagnostics) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.eventBuffer = make([]*models.LogEntry, d.maxSize)
	d.currentPos = 0
	d.isFull = false
}
