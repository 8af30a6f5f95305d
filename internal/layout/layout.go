// Package layout resolves and validates the game installation layout.
package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/conn-castle/langpatch/internal/config"
	"github.com/conn-castle/langpatch/internal/messages"
)

var (
	// ErrPathNotFound is returned when the given path, or every auto-detect candidate, is missing.
	ErrPathNotFound = errors.New("game path not found")
	// ErrInvalidLayout is returned when a path exists but is not a usable installation.
	ErrInvalidLayout = errors.New("invalid installation layout")
)

// Layout is the validated set of roots every other component works under.
type Layout struct {
	GameRoot       string `json:"game_root"`
	DesignDataRoot string `json:"design_data_root"`
	AudioRoot      string `json:"audio_root"`
}

// System abstracts the filesystem queries the locator needs.
type System interface {
	Stat(name string) (os.FileInfo, error)
}

// RealSystem implements System using the OS filesystem.
type RealSystem struct{}

// Stat returns a FileInfo describing the named file.
func (RealSystem) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// FromGameRoot derives the layout for a game root using the configured relative paths.
func FromGameRoot(gameRoot string, cfg config.Layout) Layout {
	gameRoot = filepath.Clean(gameRoot)
	return Layout{
		GameRoot:       gameRoot,
		DesignDataRoot: filepath.Join(gameRoot, filepath.FromSlash(cfg.DesignDataDir)),
		AudioRoot:      filepath.Join(gameRoot, filepath.FromSlash(cfg.AudioDir)),
	}
}

// gameRootFromDesignData strips the configured design-data suffix from dir.
// ok is false when dir does not end with that suffix.
func gameRootFromDesignData(dir string, cfg config.Layout) (string, bool) {
	dir = filepath.Clean(dir)
	suffix := filepath.Clean(filepath.FromSlash(cfg.DesignDataDir))
	if !strings.HasSuffix(dir, string(filepath.Separator)+suffix) {
		return "", false
	}
	root := strings.TrimSuffix(dir, string(filepath.Separator)+suffix)
	if root == "" {
		root = string(filepath.Separator)
	}
	return root, true
}

// Validate checks the layout invariants: executable marker present (when configured),
// all three roots exist and are directories, and both data roots sit inside the game root.
func Validate(sys System, l Layout, cfg config.Layout) error {
	if sys == nil {
		return fmt.Errorf(messages.LayoutSystemRequired)
	}
	for _, root := range []string{l.GameRoot, l.DesignDataRoot, l.AudioRoot} {
		if !filepath.IsAbs(root) {
			return fmt.Errorf(messages.LayoutNotAbsoluteFmt, ErrInvalidLayout, root)
		}
	}
	if !isDescendant(l.GameRoot, l.DesignDataRoot) {
		return fmt.Errorf(messages.LayoutOutsideRootFmt, ErrInvalidLayout, l.DesignDataRoot, l.GameRoot)
	}
	if !isDescendant(l.GameRoot, l.AudioRoot) {
		return fmt.Errorf(messages.LayoutOutsideRootFmt, ErrInvalidLayout, l.AudioRoot, l.GameRoot)
	}
	if err := requireDir(sys, l.GameRoot); err != nil {
		return err
	}
	if len(cfg.Executables) > 0 {
		found := false
		for _, exe := range cfg.Executables {
			info, err := sys.Stat(filepath.Join(l.GameRoot, exe))
			if err == nil && info.Mode().IsRegular() {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf(messages.LayoutMissingExecutableFmt, ErrInvalidLayout, l.GameRoot, strings.Join(cfg.Executables, ", "))
		}
	}
	if err := requireDir(sys, l.DesignDataRoot); err != nil {
		return err
	}
	return requireDir(sys, l.AudioRoot)
}

func requireDir(sys System, dir string) error {
	info, err := sys.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf(messages.LayoutMissingDirFmt, ErrInvalidLayout, dir)
		}
		return fmt.Errorf(messages.LayoutStatFmt, dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf(messages.LayoutNotDirFmt, ErrInvalidLayout, dir)
	}
	return nil
}

// isDescendant reports whether child is strictly inside parent.
func isDescendant(parent string, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// Resolve turns an optional path argument (or cwd when arg is empty) into a validated Layout.
// An explicit path may name either the game root or the design-data folder.
func Resolve(sys System, arg string, cwd string, cfg config.Layout) (Layout, error) {
	if sys == nil {
		return Layout{}, fmt.Errorf(messages.LayoutSystemRequired)
	}
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return detect(sys, cwd, cfg)
	}

	expanded, err := homedir.Expand(arg)
	if err != nil {
		return Layout{}, fmt.Errorf(messages.LayoutExpandPathFmt, arg, err)
	}
	if !filepath.IsAbs(expanded) {
		expanded = filepath.Join(cwd, expanded)
	}
	expanded = filepath.Clean(expanded)

	info, err := sys.Stat(expanded)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Layout{}, fmt.Errorf(messages.LayoutPathNotFoundFmt, ErrPathNotFound, expanded)
		}
		return Layout{}, fmt.Errorf(messages.LayoutStatFmt, expanded, err)
	}
	if !info.IsDir() {
		return Layout{}, fmt.Errorf(messages.LayoutNotDirFmt, ErrInvalidLayout, expanded)
	}

	asRoot := FromGameRoot(expanded, cfg)
	rootErr := Validate(sys, asRoot, cfg)
	if rootErr == nil {
		return asRoot, nil
	}
	if gameRoot, ok := gameRootFromDesignData(expanded, cfg); ok {
		asDesign := FromGameRoot(gameRoot, cfg)
		if err := Validate(sys, asDesign, cfg); err != nil {
			return Layout{}, err
		}
		return asDesign, nil
	}
	return Layout{}, rootErr
}
