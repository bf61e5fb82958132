package execution

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	sig "sigflow-go/internal/signal"
)

func TestSubmitLogsSignal(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	exec := NewExecutor(logger)
	err := exec.Submit(sig.Signal{ID: "abc", Instrument: "ESZ5", Side: sig.Bid, Direction: sig.Long, Strength: sig.Moderate, Entry: 100, StopLoss: 98, TakeProfit: 104, Confidence: 0.62})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "ESZ5") {
		t.Fatalf("log does not contain instrument: %s", out)
	}
	if !strings.Contains(out, "long") || !strings.Contains(out, "BID") {
		t.Fatalf("log does not contain direction/side: %s", out)
	}
}
