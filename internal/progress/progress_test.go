package progress

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/conn-castle/langpatch/internal/manifest"
	"github.com/conn-castle/langpatch/internal/reconcile"
	"github.com/conn-castle/langpatch/internal/txn"
)

func noColor(t *testing.T) {
	t.Helper()
	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })
}

func sampleTx() *txn.Transaction {
	d := manifest.Descriptor{Path: "English/vo.pck", Size: 2048, Language: "en"}
	return &txn.Transaction{
		ID: "01TEST",
		Plan: reconcile.Plan{
			Voice: "en",
			Operations: []reconcile.Operation{
				{Kind: reconcile.KindRemove, Path: "Japanese/vo.pck", Reason: reconcile.ReasonOtherLanguage},
				{Kind: reconcile.KindAdd, Path: d.Path, Reason: reconcile.ReasonMissing, Descriptor: &d},
			},
			Kept: []string{"English/shared.pck"},
		},
	}
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(model)
	require.True(t, ok)
	return out
}

func TestModel_TracksEvents(t *testing.T) {
	m := newModel()
	require.Nil(t, m.Init())
	require.Zero(t, m.percent())

	m = update(t, m, plannedMsg{operations: 2, total: 2048})
	m = update(t, m, stateMsg(txn.StateAssetsApplying))
	m = update(t, m, bytesMsg(1024))
	require.InDelta(t, 0.5, m.percent(), 0.0001)

	m = update(t, m, outcomeMsg{Kind: reconcile.KindRemove, Path: "Japanese/vo.pck", Attempts: 1})
	m = update(t, m, outcomeMsg{Kind: reconcile.KindAdd, Path: "English/vo.pck", Attempts: 3, Error: "boom"})
	require.Equal(t, 2, m.finished)
	require.Equal(t, 1, m.failed)

	view := m.View()
	require.Contains(t, view, "assets_applying")
	require.Contains(t, view, "2/2 operations")
	require.Contains(t, view, "1 failed")
	require.Contains(t, view, "English/vo.pck")
}

func TestModel_PercentWithoutDownloads(t *testing.T) {
	m := update(t, newModel(), plannedMsg{operations: 4})
	m = update(t, m, outcomeMsg{Kind: reconcile.KindRemove, Path: "a"})
	require.InDelta(t, 0.25, m.percent(), 0.0001)

	m = update(t, m, plannedMsg{operations: 1, total: 10})
	m = update(t, m, bytesMsg(50))
	require.Equal(t, 1.0, m.percent())
}

func TestModel_WindowSizeClampsWidth(t *testing.T) {
	m := update(t, newModel(), tea.WindowSizeMsg{Width: 200})
	require.Equal(t, maxBarWidth, m.bar.Width)
	m = update(t, m, tea.WindowSizeMsg{Width: 8})
	require.Equal(t, 10, m.bar.Width)
}

func TestModel_StopQuits(t *testing.T) {
	next, cmd := newModel().Update(stopMsg{})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
	require.Empty(t, next.View())
}

func TestBar_Lifecycle(t *testing.T) {
	var out bytes.Buffer
	bar := NewBar(&out)
	bar.Start()
	bar.Start()

	tx := sampleTx()
	bar.Planned(tx)
	bar.StateChanged(txn.StateAssetsApplying)
	bar.Downloaded(2048)
	bar.OperationDone(txn.Outcome{Kind: reconcile.KindAdd, Path: "English/vo.pck", Attempts: 1})
	bar.Stop()
	bar.Stop()
}

func TestText_Output(t *testing.T) {
	noColor(t)
	var out bytes.Buffer
	r := NewText(&out, false)

	r.Planned(sampleTx())
	r.StateChanged(txn.StateAssetsApplying)
	r.OperationDone(txn.Outcome{Kind: reconcile.KindRemove, Path: "Japanese/vo.pck", Attempts: 1})
	r.OperationDone(txn.Outcome{Kind: reconcile.KindRemove, Path: "Japanese/sub", Dir: true, Attempts: 1})
	r.Downloaded(1000)
	r.Downloaded(1048)
	r.OperationDone(txn.Outcome{Kind: reconcile.KindAdd, Path: "English/vo.pck", Attempts: 2})
	r.StateChanged(txn.StateCommitted)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Equal(t, []string{
		"transaction 01TEST: 1 to download, 1 to remove, 1 kept (2.0 kB)",
		"  - Japanese/vo.pck",
		"  - Japanese/sub/",
		"  + English/vo.pck (2 attempts)",
		"transaction committed (2.0 kB downloaded)",
	}, lines)
}

func TestText_VerboseStatesAndFailures(t *testing.T) {
	noColor(t)
	var out bytes.Buffer
	r := NewText(&out, true)

	r.StateChanged(txn.StateAssetsApplying)
	r.OperationDone(txn.Outcome{Kind: reconcile.KindAdd, Path: "English/vo.pck", Attempts: 3, Error: "fetch failed"})
	r.StateChanged(txn.StateFailed)

	require.Equal(t,
		"transaction assets_applying\n  + English/vo.pck: fetch failed\ntransaction failed\n",
		out.String())
}
