// Package terminal reports whether the process talks to an interactive terminal.
package terminal

import (
	"io"
	"os"

	"golang.org/x/term"
)

// IsInteractive reports whether stdin and stdout are both terminals. Prompts require it.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

type fdWriter interface {
	Fd() uintptr
}

// IsTerminalWriter reports whether w is a file attached to a terminal. Progress bars are
// only drawn on such writers.
func IsTerminalWriter(w io.Writer) bool {
	f, ok := w.(fdWriter)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
