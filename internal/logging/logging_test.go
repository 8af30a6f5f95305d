package logging

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNew_VerboseWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(true, &buf)
	log.Debug("apply operation", zap.String("path", "English/001.pck"), zap.Int("attempt", 2))
	if err := log.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"DEBUG", "apply operation", `"path": "English/001.pck"`, `"attempt": 2`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected log output to contain %q, got %q", want, out)
		}
	}
}

func TestNew_QuietIsNop(t *testing.T) {
	var buf bytes.Buffer
	log := New(false, &buf)
	log.Info("ignored")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
	if OrNop(nil) == nil {
		t.Fatalf("expected OrNop to return a logger")
	}
}
