// Package progress renders transaction progress events for the CLI.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/conn-castle/langpatch/internal/messages"
	"github.com/conn-castle/langpatch/internal/reconcile"
	"github.com/conn-castle/langpatch/internal/txn"
)

const (
	barPadding  = 2
	maxBarWidth = 60
)

type plannedMsg struct {
	operations int
	total      int64
}

type stateMsg txn.State

type bytesMsg int64

type outcomeMsg txn.Outcome

type stopMsg struct{}

// model is the bubbletea model behind Bar. The bar is rendered statically with ViewAs,
// so no animation frames are scheduled.
type model struct {
	bar        progress.Model
	state      txn.State
	operations int
	finished   int
	failed     int
	total      int64
	received   int64
	last       string
	quitting   bool
}

func newModel() model {
	return model{
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-barPadding*2, maxBarWidth)
		if m.bar.Width < 10 {
			m.bar.Width = 10
		}
	case plannedMsg:
		m.operations = msg.operations
		m.total = msg.total
	case stateMsg:
		m.state = txn.State(msg)
	case bytesMsg:
		m.received += int64(msg)
	case outcomeMsg:
		m.finished++
		if msg.Error != "" {
			m.failed++
		}
		m.last = msg.Path
	case stopMsg:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// percent reports download progress, falling back to the operation count when the plan
// downloads nothing.
func (m model) percent() float64 {
	if m.total > 0 {
		return min(float64(m.received)/float64(m.total), 1)
	}
	if m.operations > 0 {
		return float64(m.finished) / float64(m.operations)
	}
	return 0
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	pad := strings.Repeat(" ", barPadding)
	var b strings.Builder
	b.WriteString(pad + m.bar.ViewAs(m.percent()) + "\n")
	status := fmt.Sprintf(messages.ProgressStatusFmt, m.state, m.finished, m.operations,
		humanize.Bytes(uint64(m.received)), humanize.Bytes(uint64(m.total)))
	if m.failed > 0 {
		status += fmt.Sprintf(messages.ProgressFailedFmt, m.failed)
	}
	b.WriteString(pad + status + "\n")
	if m.last != "" {
		b.WriteString(pad + m.last + "\n")
	}
	return b.String()
}

// Bar is a terminal progress bar driven by transaction events. Its methods are safe for
// concurrent use. Start must be called before events are reported and Stop after the
// transaction ends.
type Bar struct {
	program *tea.Program
	done    chan struct{}
	start   sync.Once
	stop    sync.Once
}

// NewBar returns a Bar rendering to w. It reads no input and leaves signal handling to
// the caller.
func NewBar(w io.Writer) *Bar {
	return &Bar{
		program: tea.NewProgram(newModel(),
			tea.WithOutput(w),
			tea.WithInput(nil),
			tea.WithoutSignalHandler(),
		),
		done: make(chan struct{}),
	}
}

// Start runs the renderer in the background.
func (b *Bar) Start() {
	b.start.Do(func() {
		go func() {
			defer close(b.done)
			_, _ = b.program.Run()
		}()
	})
}

// Stop clears the bar and waits for the renderer to exit.
func (b *Bar) Stop() {
	b.stop.Do(func() {
		b.program.Send(stopMsg{})
		<-b.done
	})
}

// Planned implements txn.Reporter.
func (b *Bar) Planned(tx *txn.Transaction) {
	s := tx.Plan.Summary()
	b.program.Send(plannedMsg{operations: len(tx.Plan.Operations), total: s.DownloadBytes})
}

// StateChanged implements txn.Reporter.
func (b *Bar) StateChanged(state txn.State) {
	b.program.Send(stateMsg(state))
}

// Downloaded implements txn.Reporter.
func (b *Bar) Downloaded(n int64) {
	b.program.Send(bytesMsg(n))
}

// OperationDone implements txn.Reporter.
func (b *Bar) OperationDone(o txn.Outcome) {
	b.program.Send(outcomeMsg(o))
}

var _ txn.Reporter = (*Bar)(nil)

func opSymbol(kind reconcile.Kind) string {
	switch kind {
	case reconcile.KindAdd:
		return "+"
	case reconcile.KindRemove:
		return "-"
	}
	return " "
}
