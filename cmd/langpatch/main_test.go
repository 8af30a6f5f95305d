package main

// Tests in this file replace package-level seams (getwd, lookupEnv, isTerminalWriter,
// selectLanguages). Do not use t.Parallel().

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/conn-castle/langpatch/internal/lang"
	"github.com/conn-castle/langpatch/internal/layout"
	"github.com/conn-castle/langpatch/internal/manifest"
	"github.com/conn-castle/langpatch/internal/progress"
	"github.com/conn-castle/langpatch/internal/prompt"
	"github.com/conn-castle/langpatch/internal/reconcile"
	"github.com/conn-castle/langpatch/internal/record"
	"github.com/conn-castle/langpatch/internal/testutil"
	"github.com/conn-castle/langpatch/internal/txn"
)

var (
	japaneseAssets = map[string]string{
		"Japanese/vo_001.pck":     "jp voice 1",
		"Japanese/ch1/vo_002.pck": "jp voice 2",
	}
	englishAssets = map[string]string{
		"English/vo_001.pck":     "en voice 1",
		"English/ch1/vo_002.pck": "en voice 2",
	}
)

type cliFixture struct {
	inst   testutil.Install
	source string
}

// newCLIFixture isolates the CLI from the test process environment and builds an
// installation at text=en, voice=jp with a manifest directory offering en and jp.
func newCLIFixture(t *testing.T) cliFixture {
	t.Helper()
	origColor := color.NoColor
	origGetwd, origLookup, origTerm, origSelect := getwd, lookupEnv, isTerminalWriter, selectLanguages
	t.Cleanup(func() {
		color.NoColor = origColor
		getwd, lookupEnv, isTerminalWriter, selectLanguages = origGetwd, origLookup, origTerm, origSelect
	})
	color.NoColor = true
	cwd := t.TempDir()
	getwd = func() (string, error) { return cwd, nil }
	lookupEnv = func(string) (string, bool) { return "", false }
	isTerminalWriter = func(io.Writer) bool { return false }
	selectLanguages = func([]prompt.Option, lang.Selection) (lang.Selection, error) {
		t.Fatal("unexpected prompt")
		return lang.Selection{}, nil
	}

	inst := testutil.NewInstall(t, "en", "jp")
	testutil.WriteFiles(t, inst.Layout.AudioRoot, japaneseAssets)
	testutil.WriteFiles(t, inst.Layout.AudioRoot, map[string]string{"shared.bnk": "shared"})
	source := t.TempDir()
	testutil.WriteManifestDir(t, source, "en", englishAssets)
	testutil.WriteManifestDir(t, source, "jp", japaneseAssets)
	return cliFixture{inst: inst, source: source}
}

func (f cliFixture) selection(t *testing.T) lang.Selection {
	t.Helper()
	sel, err := record.Read(record.RealSystem{}, f.inst.Layout, f.inst.Config.Record)
	require.NoError(t, err)
	return sel
}

func (f cliFixture) tree(t *testing.T) map[string]string {
	t.Helper()
	return testutil.ReadTree(t, f.inst.Layout.AudioRoot)
}

// run executes the CLI and returns stdout, stderr, and the exit code.
func run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := 0
	runMain(append([]string{"langpatch"}, args...), &stdout, &stderr, func(c int) { code = c })
	return stdout.String(), stderr.String(), code
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, execute([]string{"langpatch", "--version"}, &out, &out))
	require.Contains(t, out.String(), Version)
}

func TestVersionString(t *testing.T) {
	origCommit, origBuild := Commit, BuildDate
	t.Cleanup(func() { Commit, BuildDate = origCommit, origBuild })

	Commit, BuildDate = "unknown", "unknown"
	require.Equal(t, Version, versionString())

	Commit, BuildDate = "abc123", "2026-01-02"
	require.Equal(t, Version+" (commit abc123, built 2026-01-02)", versionString())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "path", err: fmt.Errorf("x: %w", layout.ErrPathNotFound), want: 2},
		{name: "layout", err: fmt.Errorf("x: %w", layout.ErrInvalidLayout), want: 2},
		{name: "language", err: &txn.PhaseError{Phase: txn.PhaseValidate, Err: lang.ErrInvalidLanguageCode}, want: 3},
		{name: "record", err: &txn.PhaseError{Phase: txn.PhasePlan, Err: record.ErrRecordCorrupt}, want: 4},
		{name: "fetch", err: &manifest.FetchError{Source: "x", Err: errors.New("gone")}, want: 5},
		{name: "checksum", err: fmt.Errorf("add: %w", reconcile.ErrChecksumMismatch), want: 5},
		{name: "other", err: errors.New("boom"), want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestRunMain_UnknownFlag(t *testing.T) {
	newCLIFixture(t)
	_, stderr, code := run(t, "--bogus")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "unknown flag")
}

func TestSwitchLanguages(t *testing.T) {
	f := newCLIFixture(t)
	root := f.inst.Layout.GameRoot

	stdout, stderr, code := run(t, root, "--lang", "text=cn,voice=en", "--manifest", f.source, "--no-progress")
	require.Equal(t, 0, code, stderr)
	require.Contains(t, stdout, "+ English/vo_001.pck")
	require.Contains(t, stdout, "- Japanese/ch1/vo_002.pck")
	require.Contains(t, stdout, "- Japanese/ch1/")
	require.Contains(t, stdout, "switched text=en,voice=jp -> text=cn,voice=en")
	require.Equal(t, lang.Selection{Text: "cn", Voice: "en"}, f.selection(t))

	want := map[string]string{"shared.bnk": "shared"}
	for k, v := range englishAssets {
		want[k] = v
	}
	require.Equal(t, want, f.tree(t))
	require.NoDirExists(t, txn.StateDirPath(f.inst.Layout.AudioRoot))

	stdout, _, code = run(t, root, "--lang", "0cn,1en", "--manifest", f.source)
	require.Equal(t, 0, code)
	require.Contains(t, stdout, "already using text=cn,voice=en")
}

func TestSwitchQuietPrintsNothing(t *testing.T) {
	f := newCLIFixture(t)
	stdout, stderr, code := run(t, f.inst.Layout.GameRoot, "--lang", "text=kr,voice=jp", "--quiet")
	require.Equal(t, 0, code)
	require.Empty(t, stdout)
	require.Empty(t, stderr)
	require.Equal(t, lang.Selection{Text: "kr", Voice: "jp"}, f.selection(t))
}

func TestSwitchFromDesignDataPathAndEnvManifest(t *testing.T) {
	f := newCLIFixture(t)
	lookupEnv = func(key string) (string, bool) {
		if key == "LANGPATCH_MANIFEST" {
			return f.source, true
		}
		return "", false
	}
	_, stderr, code := run(t, f.inst.Layout.DesignDataRoot, "--lang", "text=en,voice=en", "--workers", "2")
	require.Equal(t, 0, code, stderr)
	require.Equal(t, lang.Selection{Text: "en", Voice: "en"}, f.selection(t))
}

func TestExitCodes(t *testing.T) {
	f := newCLIFixture(t)
	root := f.inst.Layout.GameRoot

	_, _, code := run(t, filepath.Join(root, "missing"), "--lang", "text=en,voice=jp")
	require.Equal(t, 2, code)

	_, _, code = run(t, f.inst.Layout.AudioRoot, "--lang", "text=en,voice=jp")
	require.Equal(t, 2, code)

	treeBefore := f.tree(t)
	_, stderr, code := run(t, root, "--lang", "text=fr,voice=jp", "--manifest", f.source)
	require.Equal(t, 3, code)
	require.Contains(t, stderr, "invalid language code")
	require.Equal(t, treeBefore, f.tree(t))

	_, stderr, code = run(t, root, "--lang", "text=en,voice=kr")
	require.Equal(t, 5, code)
	require.Contains(t, stderr, "still usable with text=en,voice=jp")
	require.Equal(t, lang.Selection{Text: "en", Voice: "jp"}, f.selection(t))

	_, _, code = run(t, root, "--lang", "text=en,voice=jp", "--workers", "0")
	require.Equal(t, 1, code)

	_, _, code = run(t, root, "--lang", "text=en,voice=jp", "--interactive")
	require.Equal(t, 1, code)

	require.NoError(t, os.WriteFile(f.inst.Record.VersionPath, []byte("short"), 0o644))
	_, _, code = run(t, root, "--lang", "text=en,voice=en", "--manifest", f.source)
	require.Equal(t, 4, code)
	_, _, code = run(t, root)
	require.Equal(t, 4, code)
	require.Equal(t, treeBefore, f.tree(t))
}

func TestDiagnostic(t *testing.T) {
	f := newCLIFixture(t)
	root := f.inst.Layout.GameRoot

	stdout, _, code := run(t, root)
	require.Equal(t, 0, code)
	require.Contains(t, stdout, "current: text=en,voice=jp")
	require.Contains(t, stdout, "voice assets present: jp")
	require.Contains(t, stdout, "no manifest source configured")

	stdout, _, code = run(t, root, "--manifest", f.source)
	require.Equal(t, 0, code)
	require.Contains(t, stdout, "voice assets for jp match the manifest (2 files)")

	require.NoError(t, os.Remove(filepath.Join(f.inst.Layout.AudioRoot, "Japanese", "vo_001.pck")))
	treeBefore := f.tree(t)
	stdout, _, code = run(t, root, "--manifest", f.source)
	require.Equal(t, 0, code)
	require.Contains(t, stdout, "voice assets for jp need 1 download(s) and 0 removal(s)")
	require.Equal(t, treeBefore, f.tree(t))
}

func TestPlanText(t *testing.T) {
	f := newCLIFixture(t)
	treeBefore := f.tree(t)

	stdout, stderr, code := run(t, "plan", f.inst.Layout.GameRoot, "--lang", "text=cn,voice=en", "--manifest", f.source)
	require.Equal(t, 0, code, stderr)
	require.Contains(t, stdout, "plan (dry run): text=en,voice=jp -> text=cn,voice=en")
	require.Contains(t, stdout, "2 download(s)")
	require.Contains(t, stdout, "  - Japanese/vo_001.pck (other language)")
	require.Contains(t, stdout, "  + English/ch1/vo_002.pck (missing)")
	require.Contains(t, stdout, "--- language record (current)")
	require.Contains(t, stdout, "+++ language record (planned)")
	require.Equal(t, treeBefore, f.tree(t))
	require.Equal(t, lang.Selection{Text: "en", Voice: "jp"}, f.selection(t))
}

func TestPlanJSON(t *testing.T) {
	f := newCLIFixture(t)
	stdout, _, code := run(t, "plan", f.inst.Layout.GameRoot, "--lang", "text=en,voice=en", "--manifest", f.source, "--json")
	require.Equal(t, 0, code)

	var got struct {
		Previous lang.Selection    `json:"previous"`
		Target   lang.Selection    `json:"target"`
		Plan     reconcile.Plan    `json:"plan"`
		Summary  reconcile.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	require.Equal(t, lang.Selection{Text: "en", Voice: "jp"}, got.Previous)
	require.Equal(t, lang.Selection{Text: "en", Voice: "en"}, got.Target)
	require.Equal(t, 2, got.Summary.Adds)
	require.Equal(t, 2, got.Summary.Removes)
	require.Equal(t, 1, got.Summary.RemovedDirs)
	require.Len(t, got.Plan.Operations, 5)
}

func TestPlanRequiresLanguages(t *testing.T) {
	f := newCLIFixture(t)
	_, stderr, code := run(t, "plan", f.inst.Layout.GameRoot)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "--lang")
}

func TestInteractiveUsesPrompt(t *testing.T) {
	f := newCLIFixture(t)
	var gotCurrent lang.Selection
	var gotOptions []prompt.Option
	selectLanguages = func(options []prompt.Option, current lang.Selection) (lang.Selection, error) {
		gotOptions, gotCurrent = options, current
		return lang.Selection{Text: "kr", Voice: "jp"}, nil
	}

	_, stderr, code := run(t, f.inst.Layout.GameRoot, "--interactive")
	require.Equal(t, 0, code, stderr)
	require.Equal(t, lang.Selection{Text: "en", Voice: "jp"}, gotCurrent)
	require.Len(t, gotOptions, 4)
	require.Equal(t, prompt.Option{Code: "jp", Label: "jp (Japanese)"}, gotOptions[3])
	require.Equal(t, lang.Selection{Text: "kr", Voice: "jp"}, f.selection(t))
}

func TestInteractiveCancelled(t *testing.T) {
	f := newCLIFixture(t)
	selectLanguages = func([]prompt.Option, lang.Selection) (lang.Selection, error) {
		return lang.Selection{}, prompt.ErrCancelled
	}
	_, stderr, code := run(t, f.inst.Layout.GameRoot, "-i")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "cancelled")
	require.Equal(t, lang.Selection{Text: "en", Voice: "jp"}, f.selection(t))
}

func TestStatus(t *testing.T) {
	f := newCLIFixture(t)
	journal := txn.JournalPath(f.inst.Layout.AudioRoot)
	require.NoError(t, os.MkdirAll(filepath.Dir(journal), 0o755))
	require.NoError(t, os.WriteFile(journal, []byte(
		`{"schema_version":1,"tx_id":"01JTEST","time_utc":"2026-01-02T03:04:05Z","event":"state","state":"planned","previous":{"text":"en","voice":"jp"},"target":{"text":"en","voice":"en"},"operations":4}`+"\n"+
			`{"schema_version":1,"tx_id":"01JTEST","time_utc":"2026-01-02T03:04:06Z","event":"op","op":{"kind":"remove","path":"Japanese/vo_001.pck","attempts":1}}`+"\n"+
			`{"schema_version":1,"tx_id":"01JTEST","time_utc":"2026-01-02T03:04:07Z","event":"state","state":"failed","error":"disk on fire"}`+"\n"),
		0o644))

	stdout, _, code := run(t, "status", f.inst.Layout.GameRoot)
	require.Equal(t, 0, code)
	require.Contains(t, stdout, "current: text=en,voice=jp")
	require.Contains(t, stdout, "interrupted transaction 01JTEST: failed, 1 of 4 operations applied")
	require.Contains(t, stdout, "last error: disk on fire")

	stdout, _, code = run(t, "status", f.inst.Layout.GameRoot, "--json")
	require.Equal(t, 0, code)
	var st txn.Status
	require.NoError(t, json.Unmarshal([]byte(stdout), &st))
	require.Equal(t, lang.Selection{Text: "en", Voice: "jp"}, st.Selection)
	require.Equal(t, []string{"jp"}, st.VoiceLocal)
	require.NotNil(t, st.Interrupted)
	require.Equal(t, "01JTEST", st.Interrupted.ID)
	require.FileExists(t, journal)
}

func TestReporterSelection(t *testing.T) {
	newCLIFixture(t)
	s := &session{out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}

	r, stop := s.reporter(&globalFlags{quiet: true})
	require.IsType(t, txn.NopReporter{}, r)
	stop()

	isTerminalWriter = func(io.Writer) bool { return true }
	r, stop = s.reporter(&globalFlags{noProgress: true})
	require.IsType(t, &progress.Text{}, r)
	stop()
}
