// Package audit appends a JSONL record of every model call and verification
// pass. Auditing is best-effort: a failure to write never fails the command.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jgowrie/advocate/internal/schema"
)

// Entry is one audit record.
type Entry struct {
	ID          string              `json:"id"`
	Timestamp   time.Time           `json:"timestamp"`
	Command     string              `json:"command"`
	Provider    string              `json:"provider"`
	Model       string              `json:"model"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature,omitempty"`
	Outcome     schema.OutcomeState `json:"outcome,omitempty"`
	Verified    int                 `json:"verified,omitempty"`
	Unverified  int                 `json:"unverified,omitempty"`
	Attempts    int                 `json:"attempts,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// Logger appends entries to a JSONL file. The zero-value path disables
// logging entirely.
type Logger struct {
	mu   sync.Mutex
	path string
}

// New returns a Logger writing to path. An empty path yields a no-op logger.
func New(path string) *Logger {
	return &Logger{path: path}
}

// Record writes one entry, filling ID and Timestamp. Errors are swallowed;
// the audit trail is never worth failing user work over.
func (l *Logger) Record(e Entry) {
	if l.path == "" {
		return
	}
	e.ID = uuid.NewString()
	e.Timestamp = time.Now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	b = append(b, '\n')
	_, _ = f.Write(b)
}
