package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, []string{"StarRail.exe"}, cfg.Layout.Executables)
	require.Equal(t, "StarRail_Data/StreamingAssets/DesignData/Windows", cfg.Layout.DesignDataDir)
	require.Equal(t, int32(-515329346), cfg.Record.NameHash)
	require.Equal(t, []string{"cn", "en", "kr", "jp"}, cfg.Record.Languages)
	require.Equal(t, "Japanese", cfg.Audio.LanguageDirs["jp"])
	require.Equal(t, 4, cfg.Apply.Workers)
	require.Equal(t, "500ms", cfg.Apply.Backoff().String())
	require.Equal(t, "30s", cfg.Manifest.Timeout().String())

	set, err := cfg.LanguageSet()
	require.NoError(t, err)
	require.True(t, set.Contains("kr"))
}

func TestParse_OverridesDefaults(t *testing.T) {
	data := []byte(`
[layout]
executables = []
audio_dir = "Audio"

[record]
languages = ["en", "jp"]

[audio.language_dirs]
en = "en"
jp = "jp"

[apply]
workers = 8
`)
	cfg, err := Parse(data, "test.toml")
	require.NoError(t, err)
	require.Empty(t, cfg.Layout.Executables)
	require.Equal(t, "Audio", cfg.Layout.AudioDir)
	require.Equal(t, "StarRail_Data/StreamingAssets/DesignData/Windows", cfg.Layout.DesignDataDir)
	require.Equal(t, map[string]string{"en": "en", "jp": "jp"}, cfg.Audio.LanguageDirs)
	require.Equal(t, 8, cfg.Apply.Workers)
	require.Equal(t, 3, cfg.Apply.MaxAttempts)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		validation bool
	}{
		{name: "syntax", data: "[layout\n"},
		{name: "unknown key", data: "[layout]\nbogus = 1\n"},
		{name: "absolute audio dir", data: "[layout]\naudio_dir = \"/abs\"\n", validation: true},
		{name: "escaping design dir", data: "[layout]\ndesign_data_dir = \"../x\"\n", validation: true},
		{name: "unclean design dir", data: "[layout]\ndesign_data_dir = \"a//b\"\n", validation: true},
		{name: "executable with slash", data: "[layout]\nexecutables = [\"bin/x.exe\"]\n", validation: true},
		{name: "bad language", data: "[record]\nlanguages = [\"english\"]\n", validation: true},
		{name: "missing language dir", data: "[record]\nlanguages = [\"en\", \"de\"]\n", validation: true},
		{name: "duplicate language dir", data: "[audio.language_dirs]\ncn = \"x\"\nen = \"x\"\njp = \"j\"\nkr = \"k\"\n", validation: true},
		{name: "nested language dir", data: "[audio.language_dirs]\ncn = \"a/b\"\nen = \"e\"\njp = \"j\"\nkr = \"k\"\n", validation: true},
		{name: "zero workers", data: "[apply]\nworkers = 0\n", validation: true},
		{name: "zero attempts", data: "[apply]\nmax_attempts = 0\n", validation: true},
		{name: "zero timeout", data: "[manifest]\ntimeout_seconds = 0\n", validation: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), "test.toml")
			require.Error(t, err)
			require.Equal(t, tt.validation, isValidation(err), "error: %v", err)
		})
	}
}

func isValidation(err error) bool {
	return errors.Is(err, ErrConfigValidation)
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadOptional("", dir)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFileName), []byte("[apply]\nworkers = 2\n"), 0o644))
	cfg, err = LoadOptional("", dir)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Apply.Workers)

	explicit := filepath.Join(dir, "other.toml")
	require.NoError(t, os.WriteFile(explicit, []byte("[apply]\nworkers = 6\n"), 0o644))
	cfg, err = LoadOptional(explicit, dir)
	require.NoError(t, err)
	require.Equal(t, 6, cfg.Apply.Workers)

	_, err = LoadOptional(filepath.Join(dir, "missing.toml"), dir)
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvManifest:         " https://mirror.example/assets ",
		EnvNoNetwork:        "1",
		EnvWorkers:          "12",
		EnvMaxDownloadBytes: "1024",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	require.Equal(t, "https://mirror.example/assets", cfg.Manifest.Source)
	require.True(t, cfg.Manifest.NoNetwork)
	require.Equal(t, 12, cfg.Apply.Workers)
	require.Equal(t, int64(1024), cfg.Manifest.MaxDownloadBytes)

	env[EnvWorkers] = "zero"
	err := Default().ApplyEnv(lookup)
	require.ErrorIs(t, err, ErrConfigValidation)
}
