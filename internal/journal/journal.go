// Package journal captures emitted signals for later analysis.
package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	sig "sigflow-go/internal/signal"
)

// Recorder captures emitted signals for later inspection.
type Recorder interface {
	Record(sig.Signal)
}

// JSONLRecorder appends signals as JSON lines for later analysis.
type JSONLRecorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJSONLRecorder creates/opens the target file and returns a recorder.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLRecorder{
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// Record writes a single signal to the underlying JSONL file.
func (r *JSONLRecorder) Record(s sig.Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.enc.Encode(s)
}

// Close flushes and closes the file handle.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// Ledger stores emitted signals in memory for quick inspection.
type Ledger struct {
	mu      sync.Mutex
	signals []sig.Signal
}

// NewLedger creates an empty ledger optionally pre-sizing storage.
func NewLedger(capacity int) *Ledger {
	if capacity < 0 {
		capacity = 0
	}
	return &Ledger{signals: make([]sig.Signal, 0, capacity)}
}

// Record appends a signal to the ledger.
func (l *Ledger) Record(s sig.Signal) {
	l.mu.Lock()
	l.signals = append(l.signals, s)
	l.mu.Unlock()
}

// Snapshot returns a copy of the recorded signals.
func (l *Ledger) Snapshot() []sig.Signal {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]sig.Signal, len(l.signals))
	copy(out, l.signals)
	return out
}

// Reset clears all stored signals.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.signals = l.signals[:0]
	l.mu.Unlock()
}
