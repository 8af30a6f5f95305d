// Package config loads langpatch settings from TOML with built-in defaults and env overrides.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/conn-castle/langpatch/internal/lang"
	"github.com/conn-castle/langpatch/internal/messages"
)

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = "langpatch.toml"

// Environment overrides.
const (
	EnvManifest         = "LANGPATCH_MANIFEST"
	EnvWorkers          = "LANGPATCH_WORKERS"
	EnvNoNetwork        = "LANGPATCH_NO_NETWORK"
	EnvMaxDownloadBytes = "LANGPATCH_MAX_DOWNLOAD_BYTES"
)

// ErrConfigValidation wraps config validation failures
// (as opposed to TOML syntax or filesystem errors).
var ErrConfigValidation = errors.New("config validation failed")

//go:embed default.toml
var defaultTOML []byte

// Config is the full langpatch configuration.
type Config struct {
	Layout   Layout   `toml:"layout"`
	Record   Record   `toml:"record"`
	Audio    Audio    `toml:"audio"`
	Manifest Manifest `toml:"manifest"`
	Apply    Apply    `toml:"apply"`
}

// Layout describes where the design-data and audio folders live inside the game root.
type Layout struct {
	Executables   []string `toml:"executables"`
	DesignDataDir string   `toml:"design_data_dir"`
	AudioDir      string   `toml:"audio_dir"`
	SearchDepth   int      `toml:"search_depth"`
}

// Record locates the language table inside the design data.
type Record struct {
	VersionFile string   `toml:"version_file"`
	IndexPrefix string   `toml:"index_prefix"`
	NameHash    int32    `toml:"name_hash"`
	Languages   []string `toml:"languages"`
}

// Audio maps language codes to the top-level audio directory each one owns.
type Audio struct {
	LanguageDirs map[string]string `toml:"language_dirs"`
}

// Manifest configures the asset manifest provider.
type Manifest struct {
	Source           string `toml:"source"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	MaxDownloadBytes int64  `toml:"max_download_bytes"`
	// NoNetwork is only set from the environment.
	NoNetwork bool `toml:"-"`
}

// Timeout returns the per-request timeout.
func (m Manifest) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// Apply tunes how the transaction applies operations.
type Apply struct {
	Workers     int `toml:"workers"`
	MaxAttempts int `toml:"max_attempts"`
	BackoffMS   int `toml:"backoff_ms"`
}

// Backoff returns the base retry delay.
func (a Apply) Backoff() time.Duration {
	return time.Duration(a.BackoffMS) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := decode(defaultTOML, "built-in defaults", nil)
	if err != nil {
		panic(fmt.Sprintf("built-in config is invalid: %v", err))
	}
	return cfg
}

// Load reads the config at path layered over the defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf(messages.ConfigReadFmt, path, err)
	}
	return Parse(data, path)
}

// LoadOptional loads path when it is set, otherwise cwd/langpatch.toml when present,
// otherwise the defaults.
func LoadOptional(path string, cwd string) (*Config, error) {
	if strings.TrimSpace(path) != "" {
		return Load(path)
	}
	if cwd == "" {
		return Default(), nil
	}
	candidate := filepath.Join(cwd, DefaultFileName)
	if _, err := os.Stat(candidate); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf(messages.ConfigStatFmt, candidate, err)
	}
	return Load(candidate)
}

// Parse decodes data over the defaults and validates the result.
// source is used in error messages.
func Parse(data []byte, source string) (*Config, error) {
	base, err := decode(defaultTOML, "built-in defaults", nil)
	if err != nil {
		return nil, err
	}
	return decode(data, source, base)
}

func decode(data []byte, source string, base *Config) (*Config, error) {
	cfg := base
	if cfg == nil {
		cfg = &Config{}
	}
	dirsBefore := cfg.Audio.LanguageDirs
	cfg.Audio.LanguageDirs = nil

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf(messages.ConfigInvalidFmt, source, err)
	}
	// A file that names language_dirs replaces the table instead of merging into it.
	if cfg.Audio.LanguageDirs == nil {
		cfg.Audio.LanguageDirs = dirsBefore
	}
	if err := cfg.Validate(source); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv layers environment overrides onto c. lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvManifest); ok && strings.TrimSpace(v) != "" {
		c.Manifest.Source = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvNoNetwork); ok && strings.TrimSpace(v) != "" {
		c.Manifest.NoNetwork = true
	}
	if v, ok := lookup(EnvWorkers); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n <= 0 {
			return fmt.Errorf(messages.ConfigEnvPositiveIntFmt, ErrConfigValidation, EnvWorkers, v)
		}
		c.Apply.Workers = n
	}
	if v, ok := lookup(EnvMaxDownloadBytes); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf(messages.ConfigEnvPositiveIntFmt, ErrConfigValidation, EnvMaxDownloadBytes, v)
		}
		c.Manifest.MaxDownloadBytes = n
	}
	return nil
}

// LanguageSet returns the supported language enumeration.
func (c *Config) LanguageSet() (lang.Set, error) {
	return lang.NewSet(c.Record.Languages)
}
