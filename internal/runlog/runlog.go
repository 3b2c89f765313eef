// Package runlog writes the timestamped, human-readable run.log that
// accompanies every investigation's blackboard.json and final answer.
package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Logger appends timestamped lines to a run log file, matching
// utils.py's RunLogger.
type Logger struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

func Open(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}
	return &Logger{f: f, path: path}, nil
}

// Log appends one timestamped line.
func (l *Logger) Log(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("[%s] %s\n", time.Now().UTC().Format(time.RFC3339), fmt.Sprintf(format, args...))
	l.f.WriteString(line)
}

// LogJSON appends a timestamped line labeling a JSON-serialized payload.
func (l *Logger) LogJSON(label string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		l.Log("%s: <unserializable: %v>", label, err)
		return
	}
	l.Log("%s: %s", label, payload)
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
