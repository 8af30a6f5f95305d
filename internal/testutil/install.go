package testutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/conn-castle/langpatch/internal/config"
	"github.com/conn-castle/langpatch/internal/layout"
)

// LanguageRow describes one allowed-language table row in a fixture.
type LanguageRow struct {
	Area      string
	Voice     bool
	Languages []string
	Default   string
}

// StandardRows returns the os/cn text and voice rows plus one unrelated row that
// patching must leave alone.
func StandardRows(text string, voice string) []LanguageRow {
	return []LanguageRow{
		{Area: "os", Languages: []string{text}, Default: text},
		{Area: "cn", Voice: true, Languages: []string{voice}, Default: voice},
		{Area: "os", Voice: true, Languages: []string{voice}, Default: voice},
		{Area: "cn", Languages: []string{text}, Default: text},
		{Area: "global", Languages: []string{"cn", "en", "kr", "jp"}, Default: "cn"},
	}
}

// EncodeLanguageTable encodes rows in the design-data table format without padding.
func EncodeLanguageTable(rows []LanguageRow) []byte {
	buf := []byte{0x00}
	buf = binary.AppendVarint(buf, int64(len(rows)))
	for _, row := range rows {
		var mask byte
		if row.Area != "" {
			mask |= 1 << 0
		}
		if row.Voice {
			mask |= 1 << 1
		}
		if row.Languages != nil {
			mask |= 1 << 2
		}
		if row.Default != "" {
			mask |= 1 << 3
		}
		buf = append(buf, mask)
		if row.Area != "" {
			buf = appendString(buf, row.Area)
		}
		if row.Voice {
			buf = append(buf, 1)
		}
		if row.Languages != nil {
			buf = binary.AppendVarint(buf, int64(len(row.Languages)))
			for _, code := range row.Languages {
				buf = appendString(buf, code)
			}
		}
		if row.Default != "" {
			buf = appendString(buf, row.Default)
		}
	}
	return buf
}

func appendString(buf []byte, s string) []byte {
	buf = append(buf, byte(len(s)))
	return append(buf, s...)
}

// RecordFiles are the design-data files written for a fixture.
type RecordFiles struct {
	VersionPath string
	IndexPath   string
	BlobPath    string
	Offset      int
	Size        int
}

// Install is a fake game installation in a temporary directory.
type Install struct {
	Layout layout.Layout
	Config *config.Config
	Record RecordFiles
}

// Fixture hashes. The version file stores indexHash as byte-reversed 32-bit words.
var (
	indexHash = []byte{0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e, 0x1f}
	blobHash  = []byte{0xa0, 0xa1, 0xa2, 0xa3, 0xa4, 0xa5, 0xa6, 0xa7, 0xa8, 0xa9, 0xaa, 0xab, 0xac, 0xad, 0xae, 0xaf}
	decoyHash = []byte{0xd0, 0xd1, 0xd2, 0xd3, 0xd4, 0xd5, 0xd6, 0xd7, 0xd8, 0xd9, 0xda, 0xdb, 0xdc, 0xdd, 0xde, 0xdf}
)

// regionSlack is extra zero padding after the encoded table.
const regionSlack = 16

// NewInstall creates a game root with the default config layout, a language record set to
// text/voice, and empty per-language audio directories.
func NewInstall(t *testing.T, text string, voice string) Install {
	t.Helper()
	cfg := config.Default()
	root := t.TempDir()
	l := layout.FromGameRoot(root, cfg.Layout)
	mustMkdir(t, l.DesignDataRoot)
	mustMkdir(t, l.AudioRoot)
	for _, exe := range cfg.Layout.Executables {
		mustWrite(t, filepath.Join(root, exe), []byte("MZ"))
	}
	for _, dir := range cfg.Audio.LanguageDirs {
		mustMkdir(t, filepath.Join(l.AudioRoot, dir))
	}
	inst := Install{Layout: l, Config: cfg}
	inst.Record = WriteRecord(t, l.DesignDataRoot, cfg.Record, EncodeLanguageTable(StandardRows(text, voice)))
	return inst
}

// WriteRecord writes the version file, design index, and blob holding table.
func WriteRecord(t *testing.T, designDataRoot string, cfg config.Record, table []byte) RecordFiles {
	t.Helper()
	files := RecordFiles{
		VersionPath: filepath.Join(designDataRoot, cfg.VersionFile),
		IndexPath:   filepath.Join(designDataRoot, cfg.IndexPrefix+hex.EncodeToString(indexHash)+".bytes"),
		BlobPath:    filepath.Join(designDataRoot, hex.EncodeToString(blobHash)+".bytes"),
		Offset:      41,
		Size:        len(table) + regionSlack,
	}

	version := make([]byte, 0x1C, 0x1C+24)
	for chunk := 0; chunk < 4; chunk++ {
		for i := 3; i >= 0; i-- {
			version = append(version, indexHash[chunk*4+i])
		}
	}
	version = append(version, bytes.Repeat([]byte{0xee}, 8)...)
	mustWrite(t, files.VersionPath, version)

	blob := bytes.Repeat([]byte{0xa5}, files.Offset)
	blob = append(blob, table...)
	blob = append(blob, make([]byte, regionSlack)...)
	blob = append(blob, bytes.Repeat([]byte{0x5a}, 23)...)
	mustWrite(t, files.BlobPath, blob)

	var index []byte
	index = binary.LittleEndian.AppendUint64(index, 7)
	index = binary.BigEndian.AppendUint32(index, 2)
	index = binary.LittleEndian.AppendUint32(index, 0)
	index = appendIndexFile(index, 11, decoyHash, 0, [][3]int32{{99, 4, 0}})
	index = appendIndexFile(index, 22, blobHash, uint64(len(blob)), [][3]int32{
		{1234, 8, 0},
		{cfg.NameHash, int32(files.Size), int32(files.Offset)},
	})
	mustWrite(t, files.IndexPath, index)
	return files
}

func appendIndexFile(buf []byte, nameHash int32, fileHash []byte, readSize uint64, entries [][3]int32) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(nameHash))
	buf = append(buf, fileHash...)
	buf = binary.BigEndian.AppendUint64(buf, readSize)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(entries)))
	for _, e := range entries {
		for _, v := range e {
			buf = binary.BigEndian.AppendUint32(buf, uint32(v))
		}
	}
	return append(buf, 0)
}

// WriteFiles writes files (slash-separated relative path to content) under root.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		mustMkdir(t, filepath.Dir(path))
		mustWrite(t, path, []byte(content))
	}
}

// ReadTree returns every regular file under root keyed by slash-separated relative path,
// skipping the .langpatch state directory.
func ReadTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel == ".langpatch" {
				return filepath.SkipDir
			}
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[rel] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("read tree %s: %v", root, err)
	}
	return out
}

// Checksum returns the lowercase hex SHA-256 of content.
func Checksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// WriteManifestDir lays out a directory manifest source for language code: a manifest.json
// describing files and the blobs under files/.
func WriteManifestDir(t *testing.T, dir string, code string, files map[string]string) {
	t.Helper()
	type entry struct {
		Path     string `json:"path"`
		Size     int64  `json:"size"`
		Checksum string `json:"checksum"`
	}
	doc := struct {
		Language string  `json:"language"`
		Files    []entry `json:"files"`
	}{Language: code, Files: []entry{}}
	for rel, content := range files {
		doc.Files = append(doc.Files, entry{Path: rel, Size: int64(len(content)), Checksum: Checksum(content)})
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}
	langDir := filepath.Join(dir, code)
	mustMkdir(t, langDir)
	mustWrite(t, filepath.Join(langDir, "manifest.json"), data)
	WriteFiles(t, filepath.Join(langDir, "files"), files)
}

func mustMkdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
}

func mustWrite(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
