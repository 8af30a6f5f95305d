package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/conn-castle/langpatch/internal/messages"
	"github.com/conn-castle/langpatch/internal/txn"
)

// Text writes one line per plan, state change, and finished operation. It is used when
// output is not a terminal or the bar is disabled. Downloaded bytes are tallied and
// printed with the final state.
type Text struct {
	mu         sync.Mutex
	out        io.Writer
	received   int64
	showStates bool
}

// NewText returns a Text reporter writing to out. States are printed only when verbose.
func NewText(out io.Writer, verbose bool) *Text {
	return &Text{out: out, showStates: verbose}
}

// Planned implements txn.Reporter.
func (t *Text) Planned(tx *txn.Transaction) {
	s := tx.Plan.Summary()
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = fmt.Fprintf(t.out, messages.ProgressPlannedFmt,
		tx.ID, s.Adds, s.Removes+s.RemovedDirs, s.Kept, humanize.Bytes(uint64(s.DownloadBytes)))
}

// StateChanged implements txn.Reporter.
func (t *Text) StateChanged(state txn.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch state {
	case txn.StateCommitted:
		_, _ = fmt.Fprintln(t.out, color.GreenString(messages.ProgressCommittedFmt, humanize.Bytes(uint64(t.received))))
	case txn.StateRolledBack, txn.StateFailed:
		_, _ = fmt.Fprintln(t.out, color.RedString(messages.ProgressStateFmt, state))
	default:
		if t.showStates {
			_, _ = fmt.Fprintf(t.out, messages.ProgressStateFmt+"\n", state)
		}
	}
}

// Downloaded implements txn.Reporter.
func (t *Text) Downloaded(n int64) {
	t.mu.Lock()
	t.received += n
	t.mu.Unlock()
}

// OperationDone implements txn.Reporter.
func (t *Text) OperationDone(o txn.Outcome) {
	path := o.Path
	if o.Dir {
		path += "/"
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if o.Error != "" {
		_, _ = fmt.Fprintln(t.out, color.RedString(messages.ProgressOpFailedFmt, opSymbol(o.Kind), path, o.Error))
		return
	}
	line := fmt.Sprintf(messages.ProgressOpFmt, opSymbol(o.Kind), path)
	if o.Attempts > 1 {
		line += fmt.Sprintf(messages.ProgressAttemptsFmt, o.Attempts)
	}
	_, _ = fmt.Fprintln(t.out, line)
}

var _ txn.Reporter = (*Text)(nil)
