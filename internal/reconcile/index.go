package reconcile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/conn-castle/langpatch/internal/manifest"
	"github.com/conn-castle/langpatch/internal/messages"
)

// StateDir is the tool's own directory under the audio root. It is never scanned.
const StateDir = ".langpatch"

// System abstracts the filesystem access of Scan and Fingerprint.
type System interface {
	WalkDir(root string, fn fs.WalkDirFunc) error
	Open(name string) (io.ReadCloser, error)
}

// RealSystem implements System using the OS filesystem.
type RealSystem struct{}

// WalkDir walks the tree rooted at root.
func (RealSystem) WalkDir(root string, fn fs.WalkDirFunc) error {
	return filepath.WalkDir(root, fn)
}

// Open opens the named file for reading.
func (RealSystem) Open(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

// Entry is one local file.
type Entry struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
	// Checksum is empty until Fingerprint computes it.
	Checksum string `json:"checksum,omitempty"`
	// Special marks symlinks and other non-regular entries. They never match a
	// descriptor.
	Special bool `json:"special,omitempty"`
}

// Matches reports whether e holds exactly the content d describes.
func (e Entry) Matches(d manifest.Descriptor) bool {
	return !e.Special && e.Size == d.Size && e.Checksum == d.Checksum
}

// Index is the set of files and directories present under the audio root.
type Index struct {
	Files map[string]Entry
	Dirs  map[string]struct{}
}

// NewIndex returns an empty index.
func NewIndex() Index {
	return Index{Files: map[string]Entry{}, Dirs: map[string]struct{}{}}
}

// Paths returns the file paths in sorted order.
func (idx Index) Paths() []string {
	out := make([]string, 0, len(idx.Files))
	for p := range idx.Files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Scan indexes every file and directory under audioRoot, skipping StateDir. Symlinks are
// not followed; they are indexed as special entries like any other non-regular file.
// Paths are slash-separated and relative to audioRoot.
func Scan(ctx context.Context, sys System, audioRoot string) (Index, error) {
	if sys == nil {
		return Index{}, fmt.Errorf(messages.ReconcileSystemRequired)
	}
	idx := NewIndex()
	err := sys.WalkDir(audioRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(audioRoot, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel == StateDir {
				return filepath.SkipDir
			}
			idx.Dirs[rel] = struct{}{}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		idx.Files[rel] = Entry{Path: rel, Size: info.Size(), Special: !d.Type().IsRegular()}
		return nil
	})
	if err != nil {
		return Index{}, fmt.Errorf(messages.ReconcileScanFmt, audioRoot, err)
	}
	return idx, nil
}

// Fingerprint computes checksums for local files that also appear in descriptors with the
// same size. Files of a different size are already stale and are not read.
func (idx Index) Fingerprint(ctx context.Context, sys System, audioRoot string, descriptors []manifest.Descriptor) error {
	for _, d := range descriptors {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, ok := idx.Files[d.Path]
		if !ok || entry.Special || entry.Size != d.Size || entry.Checksum != "" {
			continue
		}
		sum, err := hashFile(sys, filepath.Join(audioRoot, filepath.FromSlash(d.Path)))
		if err != nil {
			return err
		}
		entry.Checksum = sum
		idx.Files[d.Path] = entry
	}
	return nil
}

func hashFile(sys System, name string) (string, error) {
	f, err := sys.Open(name)
	if err != nil {
		return "", fmt.Errorf(messages.ReconcileOpenFmt, name, err)
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf(messages.ReconcileHashFmt, name, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ErrChecksumMismatch is returned when content does not match its descriptor.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// Copy streams r into w while verifying the size and checksum promised by d.
// It reads at most d.Size+1 bytes.
func Copy(w io.Writer, r io.Reader, d manifest.Descriptor) (int64, error) {
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(w, h), io.LimitReader(r, d.Size+1))
	if err != nil {
		return n, err
	}
	if n != d.Size {
		return n, fmt.Errorf(messages.ReconcileSizeMismatchFmt, ErrChecksumMismatch, d.Path, d.Size, n)
	}
	if got := hex.EncodeToString(h.Sum(nil)); got != d.Checksum {
		return n, fmt.Errorf(messages.ReconcileChecksumMismatchFmt, ErrChecksumMismatch, d.Path, d.Checksum, got)
	}
	return n, nil
}
