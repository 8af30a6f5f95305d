package terminal

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestIsInteractive_NoPanic(t *testing.T) {
	// Depends on how the tests are run; only the call itself is checked.
	_ = IsInteractive()
}

func TestIsTerminalWriter(t *testing.T) {
	if IsTerminalWriter(&bytes.Buffer{}) {
		t.Fatalf("expected buffer to not be a terminal")
	}
	if IsTerminalWriter(nil) {
		t.Fatalf("expected nil writer to not be a terminal")
	}

	f, err := os.Create(filepath.Join(t.TempDir(), "out.log"))
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	if IsTerminalWriter(f) {
		t.Fatalf("expected regular file to not be a terminal")
	}
}
