// Package record reads and rewrites the game's allowed-language table in its design data.
package record

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conn-castle/langpatch/internal/config"
	"github.com/conn-castle/langpatch/internal/fsutil"
	"github.com/conn-castle/langpatch/internal/lang"
	"github.com/conn-castle/langpatch/internal/layout"
	"github.com/conn-castle/langpatch/internal/messages"
)

var (
	// ErrRecordCorrupt is returned when the record files are missing or cannot be parsed.
	ErrRecordCorrupt = errors.New("language record is corrupt")
	// ErrRecordOverflow is returned when the patched table no longer fits its region.
	ErrRecordOverflow = errors.New("language record does not fit its region")
)

// Areas whose rows are rewritten. The os rows define the current selection.
const (
	AreaOS = "os"
	AreaCN = "cn"
)

// System abstracts the filesystem operations the codec needs.
type System interface {
	ReadFile(name string) ([]byte, error)
	Stat(name string) (os.FileInfo, error)
	WriteFileAtomic(filename string, data []byte, perm os.FileMode) error
}

// RealSystem implements System using the OS filesystem.
type RealSystem struct{}

// ReadFile reads the named file.
func (RealSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// Stat returns a FileInfo describing the named file.
func (RealSystem) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// WriteFileAtomic replaces filename via a same-directory temp file and rename.
func (RealSystem) WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	return fsutil.WriteFileAtomic(filename, data, perm)
}

// Location identifies the table region inside the design data.
type Location struct {
	IndexHash string `json:"index_hash"`
	IndexPath string `json:"index_path"`
	BlobPath  string `json:"blob_path"`
	Offset    int    `json:"offset"`
	Size      int    `json:"size"`
}

// Snapshot is a decoded view of the record.
type Snapshot struct {
	Location  Location
	Rows      []Row
	Selection lang.Selection
}

// Locate follows the version file and design index to the table region.
func Locate(sys System, l layout.Layout, cfg config.Record) (Location, error) {
	if sys == nil {
		return Location{}, fmt.Errorf(messages.RecordSystemRequired)
	}
	versionPath := filepath.Join(l.DesignDataRoot, cfg.VersionFile)
	versionData, err := readRecordFile(sys, versionPath)
	if err != nil {
		return Location{}, err
	}
	indexHash, err := parseVersionHash(versionData)
	if err != nil {
		return Location{}, err
	}

	indexPath := filepath.Join(l.DesignDataRoot, cfg.IndexPrefix+indexHash+".bytes")
	indexData, err := readRecordFile(sys, indexPath)
	if err != nil {
		return Location{}, err
	}
	idx, err := parseIndex(indexData)
	if err != nil {
		return Location{}, err
	}
	entry, file, ok := idx.find(cfg.NameHash)
	if !ok {
		return Location{}, fmt.Errorf(messages.RecordEntryNotFoundFmt, ErrRecordCorrupt, cfg.NameHash, indexPath)
	}
	if entry.Offset < 0 || entry.Size <= 0 {
		return Location{}, fmt.Errorf(messages.RecordEntryBoundsFmt, ErrRecordCorrupt, entry.Offset, entry.Size)
	}
	return Location{
		IndexHash: indexHash,
		IndexPath: indexPath,
		BlobPath:  filepath.Join(l.DesignDataRoot, file.FileHash+".bytes"),
		Offset:    int(entry.Offset),
		Size:      int(entry.Size),
	}, nil
}

// Inspect decodes the record without changing it.
func Inspect(sys System, l layout.Layout, cfg config.Record) (Snapshot, error) {
	set, err := lang.NewSet(cfg.Languages)
	if err != nil {
		return Snapshot{}, err
	}
	loc, err := Locate(sys, l, cfg)
	if err != nil {
		return Snapshot{}, err
	}
	blob, err := readRecordFile(sys, loc.BlobPath)
	if err != nil {
		return Snapshot{}, err
	}
	rows, err := decodeRegion(blob, loc)
	if err != nil {
		return Snapshot{}, err
	}
	sel, err := selectionFromRows(rows, set)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Location: loc, Rows: rows, Selection: sel}, nil
}

// Read returns the currently configured text and voice languages.
func Read(sys System, l layout.Layout, cfg config.Record) (lang.Selection, error) {
	snap, err := Inspect(sys, l, cfg)
	if err != nil {
		return lang.Selection{}, err
	}
	return snap.Selection, nil
}

// Write sets both languages. The selection is validated before any file is read, and the
// blob is replaced atomically, so a failure leaves the previous record readable.
// Writing the selection already on disk does not touch the file.
func Write(sys System, l layout.Layout, cfg config.Record, sel lang.Selection) error {
	set, err := lang.NewSet(cfg.Languages)
	if err != nil {
		return err
	}
	if err := sel.Validate(set); err != nil {
		return err
	}
	loc, err := Locate(sys, l, cfg)
	if err != nil {
		return err
	}
	blob, err := readRecordFile(sys, loc.BlobPath)
	if err != nil {
		return err
	}
	rows, err := decodeRegion(blob, loc)
	if err != nil {
		return err
	}
	if _, err := selectionFromRows(rows, set); err != nil {
		return err
	}

	patched, err := patchRegion(blob, loc, rows, sel)
	if err != nil {
		return err
	}
	if bytes.Equal(patched, blob) {
		return nil
	}

	perm := os.FileMode(0o644)
	if info, err := sys.Stat(loc.BlobPath); err == nil {
		perm = info.Mode().Perm()
	}
	if err := sys.WriteFileAtomic(loc.BlobPath, patched, perm); err != nil {
		return fmt.Errorf(messages.RecordWriteFmt, loc.BlobPath, err)
	}
	return nil
}

// Patched returns the rows Write would produce for sel.
func Patched(rows []Row, sel lang.Selection) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	for i := range out {
		row := &out[i]
		if row.Mask&hasArea == 0 || (row.Area != AreaOS && row.Area != AreaCN) {
			continue
		}
		switch {
		case row.IsText():
			row.setLanguage(sel.Text)
		case row.IsVoice():
			row.setLanguage(sel.Voice)
		}
	}
	return out
}

func patchRegion(blob []byte, loc Location, rows []Row, sel lang.Selection) ([]byte, error) {
	encoded, err := encodeTable(Patched(rows, sel))
	if err != nil {
		return nil, err
	}
	if len(encoded) > loc.Size {
		return nil, fmt.Errorf(messages.RecordOverflowFmt, ErrRecordOverflow, len(encoded), loc.Size)
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	region := out[loc.Offset : loc.Offset+loc.Size]
	n := copy(region, encoded)
	clear(region[n:])
	return out, nil
}

func decodeRegion(blob []byte, loc Location) ([]Row, error) {
	if loc.Offset+loc.Size > len(blob) {
		return nil, fmt.Errorf(messages.RecordRegionOutOfRangeFmt, ErrRecordCorrupt, loc.Offset, loc.Size, len(blob))
	}
	return decodeTable(blob[loc.Offset : loc.Offset+loc.Size])
}

// selectionFromRows requires text and voice rows for both areas and reports the os pair.
func selectionFromRows(rows []Row, set lang.Set) (lang.Selection, error) {
	var sel lang.Selection
	for _, area := range []string{AreaOS, AreaCN} {
		text, err := findDefault(rows, area, false, set)
		if err != nil {
			return lang.Selection{}, err
		}
		voice, err := findDefault(rows, area, true, set)
		if err != nil {
			return lang.Selection{}, err
		}
		if area == AreaOS {
			sel = lang.Selection{Text: text, Voice: voice}
		}
	}
	return sel, nil
}

func findDefault(rows []Row, area string, voice bool, set lang.Set) (string, error) {
	kind := "text"
	if voice {
		kind = "voice"
	}
	for _, row := range rows {
		if row.Mask&hasArea == 0 || row.Area != area {
			continue
		}
		if (voice && !row.IsVoice()) || (!voice && !row.IsText()) {
			continue
		}
		if row.Mask&hasDefault == 0 {
			return "", fmt.Errorf(messages.RecordRowNoDefaultFmt, ErrRecordCorrupt, area, kind)
		}
		if !set.Contains(row.Default) {
			return "", fmt.Errorf(messages.RecordRowUnknownCodeFmt, ErrRecordCorrupt, area, kind, row.Default)
		}
		return row.Default, nil
	}
	return "", fmt.Errorf(messages.RecordRowMissingFmt, ErrRecordCorrupt, area, kind)
}

func readRecordFile(sys System, path string) ([]byte, error) {
	data, err := sys.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf(messages.RecordFileMissingFmt, ErrRecordCorrupt, path)
		}
		return nil, fmt.Errorf(messages.RecordReadFmt, path, err)
	}
	return data, nil
}
