package layout

import (
	"fmt"
	"path/filepath"

	"github.com/conn-castle/langpatch/internal/config"
	"github.com/conn-castle/langpatch/internal/messages"
)

// Candidate is one layout the auto-detector will try.
type Candidate struct {
	Layout Layout
	// Reason names the lookup that produced this candidate.
	Reason string
}

// Candidate reasons.
const (
	ReasonWorkingDir = "working directory is the game root"
	ReasonDesignData = "working directory is the design-data folder"
	ReasonAncestor   = "ancestor of the working directory is the game root"
)

// Candidates lists, in priority order, the layouts implied by cwd. It does not touch the
// filesystem: cwd as the game root, cwd as the design-data folder, then each ancestor of
// cwd up to cfg.SearchDepth levels as the game root.
func Candidates(cwd string, cfg config.Layout) []Candidate {
	if cwd == "" {
		return nil
	}
	cwd = filepath.Clean(cwd)
	out := []Candidate{{Layout: FromGameRoot(cwd, cfg), Reason: ReasonWorkingDir}}
	seen := map[string]struct{}{cwd: {}}

	if root, ok := gameRootFromDesignData(cwd, cfg); ok {
		out = append(out, Candidate{Layout: FromGameRoot(root, cfg), Reason: ReasonDesignData})
		seen[root] = struct{}{}
	}

	dir := cwd
	for i := 0; i < cfg.SearchDepth; i++ {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
		if _, dup := seen[dir]; dup {
			continue
		}
		seen[dir] = struct{}{}
		out = append(out, Candidate{Layout: FromGameRoot(dir, cfg), Reason: ReasonAncestor})
	}
	return out
}

// detect returns the first candidate that validates.
func detect(sys System, cwd string, cfg config.Layout) (Layout, error) {
	if cwd == "" {
		return Layout{}, fmt.Errorf(messages.LayoutWorkingDirRequired)
	}
	for _, candidate := range Candidates(cwd, cfg) {
		if err := Validate(sys, candidate.Layout, cfg); err == nil {
			return candidate.Layout, nil
		}
	}
	return Layout{}, fmt.Errorf(messages.LayoutAutoDetectFailedFmt, ErrPathNotFound, cwd)
}
