package record

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/conn-castle/langpatch/internal/messages"
)

// versionHashOffset is where the 16-byte index hash starts in the version file.
const versionHashOffset = 0x1C

// DataEntry points at one table inside a design-data blob.
type DataEntry struct {
	NameHash int32
	Size     int32
	Offset   int32
}

// FileEntry describes one design-data blob and the tables it contains.
type FileEntry struct {
	NameHash int32
	FileHash string
	ReadSize uint64
	Entries  []DataEntry
	Trailer  uint8
}

// Index is the parsed DesignV_<hash>.bytes file.
type Index struct {
	Header  uint64
	Reserve uint32
	Files   []FileEntry
}

// parseVersionHash extracts the index hash from the version file. The hash is stored as
// four 32-bit words with reversed byte order.
func parseVersionHash(data []byte) (string, error) {
	if len(data) < versionHashOffset+16 {
		return "", fmt.Errorf(messages.RecordVersionTooShortFmt, ErrRecordCorrupt, len(data))
	}
	raw := data[versionHashOffset : versionHashOffset+16]
	hash := make([]byte, 16)
	for chunk := 0; chunk < 4; chunk++ {
		for i := 0; i < 4; i++ {
			hash[chunk*4+i] = raw[chunk*4+3-i]
		}
	}
	return hex.EncodeToString(hash), nil
}

// parseIndex decodes the design index. Any truncation is reported as corruption.
func parseIndex(data []byte) (Index, error) {
	r := bytes.NewReader(data)
	var idx Index
	var fileCount uint32
	if err := readAll(r,
		field{binary.LittleEndian, &idx.Header},
		field{binary.BigEndian, &fileCount},
		field{binary.LittleEndian, &idx.Reserve},
	); err != nil {
		return Index{}, fmt.Errorf(messages.RecordIndexHeaderFmt, ErrRecordCorrupt, err)
	}
	// Each file entry takes at least 33 bytes; reject counts the data cannot hold.
	if uint64(fileCount)*33 > uint64(r.Len()) {
		return Index{}, fmt.Errorf(messages.RecordIndexCountFmt, ErrRecordCorrupt, fileCount, r.Len())
	}

	idx.Files = make([]FileEntry, 0, fileCount)
	for i := uint32(0); i < fileCount; i++ {
		var file FileEntry
		var fileHash [16]byte
		var entryCount uint32
		if err := readAll(r,
			field{binary.BigEndian, &file.NameHash},
			field{binary.BigEndian, &fileHash},
			field{binary.BigEndian, &file.ReadSize},
			field{binary.BigEndian, &entryCount},
		); err != nil {
			return Index{}, fmt.Errorf(messages.RecordIndexFileFmt, ErrRecordCorrupt, i, err)
		}
		if uint64(entryCount)*12+1 > uint64(r.Len()) {
			return Index{}, fmt.Errorf(messages.RecordIndexCountFmt, ErrRecordCorrupt, entryCount, r.Len())
		}
		file.FileHash = hex.EncodeToString(fileHash[:])
		file.Entries = make([]DataEntry, entryCount)
		for j := range file.Entries {
			entry := &file.Entries[j]
			if err := readAll(r,
				field{binary.BigEndian, &entry.NameHash},
				field{binary.BigEndian, &entry.Size},
				field{binary.BigEndian, &entry.Offset},
			); err != nil {
				return Index{}, fmt.Errorf(messages.RecordIndexFileFmt, ErrRecordCorrupt, i, err)
			}
		}
		if err := binary.Read(r, binary.BigEndian, &file.Trailer); err != nil {
			return Index{}, fmt.Errorf(messages.RecordIndexFileFmt, ErrRecordCorrupt, i, err)
		}
		idx.Files = append(idx.Files, file)
	}
	return idx, nil
}

// find returns the first table entry with nameHash and the blob that holds it.
func (idx Index) find(nameHash int32) (DataEntry, FileEntry, bool) {
	for _, file := range idx.Files {
		for _, entry := range file.Entries {
			if entry.NameHash == nameHash {
				return entry, file, true
			}
		}
	}
	return DataEntry{}, FileEntry{}, false
}

type field struct {
	order binary.ByteOrder
	ptr   any
}

func readAll(r io.Reader, fields ...field) error {
	for _, f := range fields {
		if err := binary.Read(r, f.order, f.ptr); err != nil {
			return err
		}
	}
	return nil
}
