package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	sig "sigflow-go/internal/signal"
)

func TestJSONLRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.jsonl")

	recorder, err := NewJSONLRecorder(path)
	if err != nil {
		t.Fatalf("NewJSONLRecorder error: %v", err)
	}
	s := sig.Signal{ID: "abc", Instrument: "ESZ5", Side: sig.Bid, Direction: sig.Long, Confidence: 0.67, Entry: 100.25}
	recorder.Record(s)
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	// Closing twice is harmless.
	if err := recorder.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open recorded file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		t.Fatalf("expected one line in recorder output")
	}
	var decoded sig.Signal
	if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if decoded.ID != s.ID || decoded.Instrument != s.Instrument || decoded.Direction != s.Direction {
		t.Fatalf("unexpected decoded signal: %+v", decoded)
	}
}

func TestLedger(t *testing.T) {
	ledger := NewLedger(4)
	ledger.Record(sig.Signal{ID: "1", Instrument: "ESZ5"})
	ledger.Record(sig.Signal{ID: "2", Instrument: "NQZ5"})

	snap := ledger.Snapshot()
	if len(snap) != 2 || snap[0].ID != "1" || snap[1].ID != "2" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	// Snapshot is a copy; mutating it leaves the ledger intact.
	snap[0].ID = "mutated"
	if ledger.Snapshot()[0].ID != "1" {
		t.Fatalf("snapshot aliasing detected")
	}

	ledger.Reset()
	if len(ledger.Snapshot()) != 0 {
		t.Fatalf("expected empty ledger after reset")
	}
}
