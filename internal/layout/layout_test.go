package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/require"

	"github.com/conn-castle/langpatch/internal/config"
)

func testLayoutConfig() config.Layout {
	return config.Layout{
		Executables:   []string{"Game.exe"},
		DesignDataDir: "Game_Data/DesignData",
		AudioDir:      "Game_Data/Audio",
		SearchDepth:   2,
	}
}

func makeInstall(t *testing.T, root string, cfg config.Layout) Layout {
	t.Helper()
	l := FromGameRoot(root, cfg)
	require.NoError(t, os.MkdirAll(l.DesignDataRoot, 0o755))
	require.NoError(t, os.MkdirAll(l.AudioRoot, 0o755))
	for _, exe := range cfg.Executables {
		require.NoError(t, os.WriteFile(filepath.Join(root, exe), []byte("MZ"), 0o755))
	}
	return l
}

func TestResolve_GameRootArgument(t *testing.T) {
	cfg := testLayoutConfig()
	root := t.TempDir()
	want := makeInstall(t, root, cfg)

	got, err := Resolve(RealSystem{}, root, "/unused", cfg)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestResolve_DesignDataArgument(t *testing.T) {
	cfg := testLayoutConfig()
	root := t.TempDir()
	want := makeInstall(t, root, cfg)

	got, err := Resolve(RealSystem{}, want.DesignDataRoot, "/unused", cfg)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestResolve_RelativeArgument(t *testing.T) {
	cfg := testLayoutConfig()
	parent := t.TempDir()
	want := makeInstall(t, filepath.Join(parent, "game"), cfg)

	got, err := Resolve(RealSystem{}, "game", parent, cfg)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestResolve_HomeArgument(t *testing.T) {
	cfg := testLayoutConfig()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })
	want := makeInstall(t, filepath.Join(home, "game"), cfg)

	got, err := Resolve(RealSystem{}, "~/game", "/unused", cfg)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestResolve_MissingArgument(t *testing.T) {
	cfg := testLayoutConfig()
	_, err := Resolve(RealSystem{}, filepath.Join(t.TempDir(), "nope"), "/unused", cfg)
	require.ErrorIs(t, err, ErrPathNotFound)
}

func TestResolve_ArgumentWithoutExecutable(t *testing.T) {
	cfg := testLayoutConfig()
	root := t.TempDir()
	makeInstall(t, root, cfg)
	require.NoError(t, os.Remove(filepath.Join(root, "Game.exe")))

	_, err := Resolve(RealSystem{}, root, "/unused", cfg)
	require.ErrorIs(t, err, ErrInvalidLayout)
	require.Contains(t, err.Error(), "Game.exe")
}

func TestResolve_ArgumentIsFile(t *testing.T) {
	cfg := testLayoutConfig()
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err := Resolve(RealSystem{}, file, "/unused", cfg)
	require.ErrorIs(t, err, ErrInvalidLayout)
}

func TestResolve_MissingAudioRoot(t *testing.T) {
	cfg := testLayoutConfig()
	root := t.TempDir()
	l := makeInstall(t, root, cfg)
	require.NoError(t, os.RemoveAll(l.AudioRoot))

	_, err := Resolve(RealSystem{}, root, "/unused", cfg)
	require.ErrorIs(t, err, ErrInvalidLayout)
}

func TestResolve_AutoDetectFromWorkingDir(t *testing.T) {
	cfg := testLayoutConfig()
	root := t.TempDir()
	want := makeInstall(t, root, cfg)

	got, err := Resolve(RealSystem{}, "", root, cfg)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestResolve_AutoDetectFromDesignData(t *testing.T) {
	cfg := testLayoutConfig()
	root := t.TempDir()
	want := makeInstall(t, root, cfg)

	got, err := Resolve(RealSystem{}, "", want.DesignDataRoot, cfg)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestResolve_AutoDetectFromAncestor(t *testing.T) {
	cfg := testLayoutConfig()
	root := t.TempDir()
	want := makeInstall(t, root, cfg)
	sub := filepath.Join(root, "tools", "bin")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	got, err := Resolve(RealSystem{}, "", sub, cfg)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestResolve_AutoDetectNotFound(t *testing.T) {
	cfg := testLayoutConfig()
	_, err := Resolve(RealSystem{}, "", t.TempDir(), cfg)
	require.ErrorIs(t, err, ErrPathNotFound)
}

func TestCandidates(t *testing.T) {
	cfg := testLayoutConfig()
	cwd := filepath.Join(string(filepath.Separator), "games", "hsr", "Game_Data", "DesignData")

	got := Candidates(cwd, cfg)
	require.Len(t, got, 3)
	require.Equal(t, ReasonWorkingDir, got[0].Reason)
	require.Equal(t, cwd, got[0].Layout.GameRoot)
	require.Equal(t, ReasonDesignData, got[1].Reason)
	require.Equal(t, filepath.Join(string(filepath.Separator), "games", "hsr"), got[1].Layout.GameRoot)
	require.Equal(t, ReasonAncestor, got[2].Reason)
	require.Equal(t, filepath.Join(string(filepath.Separator), "games", "hsr", "Game_Data"), got[2].Layout.GameRoot)

	require.Equal(t, got, Candidates(cwd, cfg), "candidates must be deterministic")
	require.Nil(t, Candidates("", cfg))
}

func TestValidate_RejectsEscapingRoots(t *testing.T) {
	cfg := testLayoutConfig()
	root := t.TempDir()
	l := makeInstall(t, root, cfg)
	l.AudioRoot = t.TempDir()
	err := Validate(RealSystem{}, l, cfg)
	require.ErrorIs(t, err, ErrInvalidLayout)
}
