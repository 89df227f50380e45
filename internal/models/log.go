package models

import (
	"time"

	"github.com/sirupsen/logrus"
)

// LogEntry is a retained copy of a warning or error emitted during a run.
type LogEntry struct {
	Time    time.Time     `json:"time"`
	Level   logrus.Level  `json:"level"`
	Message string        `json:"message"`
	Fields  logrus.Fields `json:"fields,omitempty"`
}

func NewLogEntry(entry *logrus.Entry) *LogEntry {
	fields := make(logrus.Fields, len(entry.Data))
	for key, value := range entry.Data {
		if err, ok := value.(error); ok {
			value = err.Error()
		}
		fields[key] = value
	}

	return &LogEntry{
		Time:    entry.Time,
		Level:   entry.Level,
		Message: entry.Message,
		Fields:  fields,
	}
}

// Summary renders the entry as a single diagnostic line.
func (l *LogEntry) Summary() string {
	if err, ok := l.Fields[logrus.ErrorKey]; ok {
		return l.Message + ": " + toString(err)
	}
	return l.Message
}

func toString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	if err, ok := value.(error); ok {
		return err.Error()
	}
	return ""
}
