// Package reconcile computes the file operations that bring the audio tree to a target
// voice language.
package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/conn-castle/langpatch/internal/manifest"
	"github.com/conn-castle/langpatch/internal/messages"
)

// Kind is the operation kind.
type Kind string

// Operation kinds. Plans only carry add and remove; kept paths are listed separately.
const (
	KindAdd    Kind = "add"
	KindRemove Kind = "remove"
	KindKeep   Kind = "keep"
)

// Reasons attached to operations.
const (
	ReasonMissing       = "missing"
	ReasonStale         = "stale"
	ReasonOtherLanguage = "other language"
	ReasonEmptied       = "emptied"
)

// Operation is one step of a plan.
type Operation struct {
	Kind   Kind   `json:"kind"`
	Path   string `json:"path"`
	Dir    bool   `json:"dir,omitempty"`
	Reason string `json:"reason"`
	// Descriptor is set for additions.
	Descriptor *manifest.Descriptor `json:"descriptor,omitempty"`
}

// Plan is the ordered set of operations for one voice language.
type Plan struct {
	Voice      string      `json:"voice"`
	Operations []Operation `json:"operations"`
	Kept       []string    `json:"kept"`
}

// Options controls plan construction.
type Options struct {
	// Voice is the target voice language.
	Voice string
	// LanguageDirs maps language codes to the top-level audio directory each owns.
	LanguageDirs map[string]string
}

// Summary counts a plan's operations.
type Summary struct {
	Adds          int   `json:"adds"`
	Removes       int   `json:"removes"`
	RemovedDirs   int   `json:"removed_dirs"`
	Kept          int   `json:"kept"`
	DownloadBytes int64 `json:"download_bytes"`
}

// Empty reports whether the plan changes nothing.
func (p Plan) Empty() bool {
	return len(p.Operations) == 0
}

// Summary returns operation counts.
func (p Plan) Summary() Summary {
	s := Summary{Kept: len(p.Kept)}
	for _, op := range p.Operations {
		switch {
		case op.Kind == KindAdd:
			s.Adds++
			if op.Descriptor != nil {
				s.DownloadBytes += op.Descriptor.Size
			}
		case op.Dir:
			s.RemovedDirs++
		default:
			s.Removes++
		}
	}
	return s
}

// Removals returns the remove operations in plan order.
func (p Plan) Removals() []Operation {
	return p.filter(KindRemove)
}

// Additions returns the add operations in plan order.
func (p Plan) Additions() []Operation {
	return p.filter(KindAdd)
}

func (p Plan) filter(kind Kind) []Operation {
	var out []Operation
	for _, op := range p.Operations {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

// Owner returns the language owning p through its first path segment, or "" for shared files.
func (o Options) Owner(p string) string {
	first, _, _ := strings.Cut(p, "/")
	for code, dir := range o.LanguageDirs {
		if dir == first {
			return code
		}
	}
	return ""
}

// Build compares idx with the target descriptors. Files present in both are kept unless
// size or checksum differ, in which case they are removed and re-added. Files only in the
// target are added. Local files owned by another language are removed; files owned by the
// target language or by no language are left alone. Directories below a language directory
// that removals leave empty are removed too, as are directories below another language's
// directory that are already empty. Identical inputs always give identical plans.
func Build(idx Index, descriptors []manifest.Descriptor, opts Options) (Plan, error) {
	if _, ok := opts.LanguageDirs[opts.Voice]; !ok {
		return Plan{}, fmt.Errorf(messages.ReconcileVoiceDirMissingFmt, opts.Voice)
	}
	if err := manifest.Validate(descriptors, opts.Voice); err != nil {
		return Plan{}, err
	}
	target := make(map[string]manifest.Descriptor, len(descriptors))
	for _, d := range descriptors {
		target[d.Path] = d
	}

	plan := Plan{Voice: opts.Voice, Operations: []Operation{}, Kept: []string{}}
	var removes, adds []Operation
	surviving := map[string]struct{}{}
	removedUnder := map[string]struct{}{}

	for _, p := range idx.Paths() {
		entry := idx.Files[p]
		if d, ok := target[p]; ok {
			if entry.Matches(d) {
				plan.Kept = append(plan.Kept, p)
				surviving[p] = struct{}{}
			} else {
				removes = append(removes, Operation{Kind: KindRemove, Path: p, Reason: ReasonStale})
			}
			continue
		}
		if owner := opts.Owner(p); owner != "" && owner != opts.Voice {
			removes = append(removes, Operation{Kind: KindRemove, Path: p, Reason: ReasonOtherLanguage})
			markAncestors(removedUnder, p)
			continue
		}
		surviving[p] = struct{}{}
	}

	for _, d := range descriptors {
		d := d
		entry, local := idx.Files[d.Path]
		if local && entry.Matches(d) {
			continue
		}
		reason := ReasonMissing
		if local {
			reason = ReasonStale
		}
		adds = append(adds, Operation{Kind: KindAdd, Path: d.Path, Reason: reason, Descriptor: &d})
		surviving[d.Path] = struct{}{}
	}

	sort.Slice(removes, func(i, j int) bool { return removes[i].Path < removes[j].Path })
	sort.Slice(adds, func(i, j int) bool { return adds[i].Path < adds[j].Path })

	plan.Operations = append(plan.Operations, removes...)
	plan.Operations = append(plan.Operations, emptiedDirs(idx, opts, surviving, removedUnder)...)
	plan.Operations = append(plan.Operations, adds...)
	return plan, nil
}

// emptiedDirs returns, deepest first, the directories strictly below a language directory
// that end up empty: those emptied by removals, and those of another language that hold
// nothing already.
func emptiedDirs(idx Index, opts Options, surviving map[string]struct{}, removedUnder map[string]struct{}) []Operation {
	occupied := map[string]struct{}{}
	for p := range surviving {
		markAncestors(occupied, p)
	}

	dirs := make([]string, 0, len(idx.Dirs))
	for d := range idx.Dirs {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := strings.Count(dirs[i], "/"), strings.Count(dirs[j], "/")
		if di != dj {
			return di > dj
		}
		return dirs[i] < dirs[j]
	})

	var out []Operation
	for _, d := range dirs {
		_, hadRemoval := removedUnder[d]
		_, busy := occupied[d]
		owner := opts.Owner(d)
		belowLanguageDir := strings.Contains(d, "/") && owner != ""
		if belowLanguageDir && !busy && (hadRemoval || owner != opts.Voice) {
			out = append(out, Operation{Kind: KindRemove, Path: d, Dir: true, Reason: ReasonEmptied})
			continue
		}
		markAncestors(occupied, d)
	}
	return out
}

// markAncestors adds every parent directory of p to set.
func markAncestors(set map[string]struct{}, p string) {
	for {
		i := strings.LastIndex(p, "/")
		if i < 0 {
			return
		}
		p = p[:i]
		set[p] = struct{}{}
	}
}
