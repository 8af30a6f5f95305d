package config

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/conn-castle/langpatch/internal/lang"
	"github.com/conn-castle/langpatch/internal/messages"
)

// Validate ensures the config is complete and consistent. Failures wrap ErrConfigValidation.
func (c *Config) Validate(source string) error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrConfigValidation, source, fmt.Sprintf(format, args...))
	}

	if err := validateRelDir(c.Layout.DesignDataDir); err != nil {
		return fail(messages.ConfigFieldInvalidFmt, "layout.design_data_dir", err)
	}
	if err := validateRelDir(c.Layout.AudioDir); err != nil {
		return fail(messages.ConfigFieldInvalidFmt, "layout.audio_dir", err)
	}
	if c.Layout.SearchDepth < 0 {
		return fail(messages.ConfigFieldNonNegative, "layout.search_depth")
	}
	for _, exe := range c.Layout.Executables {
		if strings.TrimSpace(exe) == "" || strings.ContainsAny(exe, `/\`) {
			return fail(messages.ConfigExecutableInvalidFmt, exe)
		}
	}

	if strings.TrimSpace(c.Record.VersionFile) == "" {
		return fail(messages.ConfigFieldRequired, "record.version_file")
	}
	if strings.TrimSpace(c.Record.IndexPrefix) == "" {
		return fail(messages.ConfigFieldRequired, "record.index_prefix")
	}
	set, err := lang.NewSet(c.Record.Languages)
	if err != nil {
		return fail(messages.ConfigFieldInvalidFmt, "record.languages", err)
	}

	seen := make(map[string]string, len(c.Audio.LanguageDirs))
	for _, code := range set.Codes() {
		dir, ok := c.Audio.LanguageDirs[code]
		if !ok || strings.TrimSpace(dir) == "" {
			return fail(messages.ConfigLanguageDirMissingFmt, code)
		}
	}
	for code, dir := range c.Audio.LanguageDirs {
		if strings.ContainsAny(dir, `/\`) || dir == "." || dir == ".." || strings.HasPrefix(dir, ".langpatch") {
			return fail(messages.ConfigLanguageDirInvalidFmt, code, dir)
		}
		if other, dup := seen[dir]; dup {
			return fail(messages.ConfigLanguageDirDuplicateFmt, dir, other, code)
		}
		seen[dir] = code
	}

	if c.Manifest.TimeoutSeconds <= 0 {
		return fail(messages.ConfigFieldPositive, "manifest.timeout_seconds")
	}
	if c.Manifest.MaxDownloadBytes <= 0 {
		return fail(messages.ConfigFieldPositive, "manifest.max_download_bytes")
	}
	if c.Apply.Workers <= 0 {
		return fail(messages.ConfigFieldPositive, "apply.workers")
	}
	if c.Apply.MaxAttempts <= 0 {
		return fail(messages.ConfigFieldPositive, "apply.max_attempts")
	}
	if c.Apply.BackoffMS < 0 {
		return fail(messages.ConfigFieldNonNegative, "apply.backoff_ms")
	}
	return nil
}

// validateRelDir requires a clean, relative, non-escaping slash path.
func validateRelDir(dir string) error {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return fmt.Errorf(messages.ConfigPathRequired)
	}
	if filepath.IsAbs(dir) || strings.HasPrefix(dir, "/") || strings.Contains(dir, `\`) {
		return fmt.Errorf(messages.ConfigPathNotRelativeFmt, dir)
	}
	clean := path.Clean(dir)
	if clean != dir || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf(messages.ConfigPathNotCleanFmt, dir)
	}
	return nil
}
