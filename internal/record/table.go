package record

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/conn-castle/langpatch/internal/messages"
)

// Row field presence bits.
const (
	hasArea      uint8 = 1 << 0
	hasType      uint8 = 1 << 1
	hasLanguages uint8 = 1 << 2
	hasDefault   uint8 = 1 << 3

	knownFields = hasArea | hasType | hasLanguages | hasDefault
)

// tableMarker opens every encoded language table.
const tableMarker byte = 0x00

// Row is one entry of the allowed-language table. Fields without their presence bit set
// are absent in the encoding and hold zero values here.
type Row struct {
	Mask      uint8
	Area      string
	Type      uint8
	Languages []string
	Default   string
}

// IsVoice reports whether the row selects the voice language; rows without a type select text.
func (r Row) IsVoice() bool {
	return r.Mask&hasType != 0 && r.Type == 1
}

// IsText reports whether the row selects the text language.
func (r Row) IsText() bool {
	return r.Mask&hasType == 0
}

// setLanguage points the row's default and allowed list at code.
func (r *Row) setLanguage(code string) {
	r.Mask |= hasLanguages | hasDefault
	r.Languages = []string{code}
	r.Default = code
}

// decodeTable parses a language table region. Bytes after the last row must be zero padding.
func decodeTable(region []byte) ([]Row, error) {
	r := bytes.NewReader(region)
	marker, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf(messages.RecordTableTruncatedFmt, ErrRecordCorrupt, "marker", err)
	}
	if marker != tableMarker {
		return nil, fmt.Errorf(messages.RecordTableMarkerFmt, ErrRecordCorrupt, marker)
	}
	count, err := readCount(r)
	if err != nil {
		return nil, fmt.Errorf(messages.RecordTableTruncatedFmt, ErrRecordCorrupt, "row count", err)
	}

	rows := make([]Row, 0, count)
	for i := 0; i < count; i++ {
		row, err := decodeRow(r)
		if err != nil {
			return nil, fmt.Errorf(messages.RecordTableRowFmt, ErrRecordCorrupt, i, err)
		}
		rows = append(rows, row)
	}
	for r.Len() > 0 {
		b, _ := r.ReadByte()
		if b != 0 {
			return nil, fmt.Errorf(messages.RecordTableTrailingFmt, ErrRecordCorrupt, len(region)-r.Len()-1)
		}
	}
	return rows, nil
}

func decodeRow(r *bytes.Reader) (Row, error) {
	var row Row
	mask, err := r.ReadByte()
	if err != nil {
		return Row{}, err
	}
	if mask&^knownFields != 0 {
		return Row{}, fmt.Errorf(messages.RecordTableUnknownBitsFmt, mask)
	}
	row.Mask = mask
	if mask&hasArea != 0 {
		if row.Area, err = readString(r); err != nil {
			return Row{}, err
		}
	}
	if mask&hasType != 0 {
		if row.Type, err = r.ReadByte(); err != nil {
			return Row{}, err
		}
	}
	if mask&hasLanguages != 0 {
		n, err := readCount(r)
		if err != nil {
			return Row{}, err
		}
		row.Languages = make([]string, 0, n)
		for j := 0; j < n; j++ {
			s, err := readString(r)
			if err != nil {
				return Row{}, err
			}
			row.Languages = append(row.Languages, s)
		}
	}
	if mask&hasDefault != 0 {
		if row.Default, err = readString(r); err != nil {
			return Row{}, err
		}
	}
	return row, nil
}

// encodeTable is the inverse of decodeTable, without padding.
func encodeTable(rows []Row) ([]byte, error) {
	if len(rows) > math.MaxInt8 {
		return nil, fmt.Errorf(messages.RecordTableTooManyFmt, len(rows), math.MaxInt8)
	}
	buf := []byte{tableMarker}
	buf = binary.AppendVarint(buf, int64(len(rows)))
	for _, row := range rows {
		buf = append(buf, row.Mask)
		if row.Mask&hasArea != 0 {
			var err error
			if buf, err = appendString(buf, row.Area); err != nil {
				return nil, err
			}
		}
		if row.Mask&hasType != 0 {
			buf = append(buf, row.Type)
		}
		if row.Mask&hasLanguages != 0 {
			if len(row.Languages) > math.MaxInt8 {
				return nil, fmt.Errorf(messages.RecordTableTooManyFmt, len(row.Languages), math.MaxInt8)
			}
			buf = binary.AppendVarint(buf, int64(len(row.Languages)))
			for _, code := range row.Languages {
				var err error
				if buf, err = appendString(buf, code); err != nil {
					return nil, err
				}
			}
		}
		if row.Mask&hasDefault != 0 {
			var err error
			if buf, err = appendString(buf, row.Default); err != nil {
				return nil, err
			}
		}
	}
	return buf, nil
}

// readCount reads a zigzag varint count that must fit a signed byte.
func readCount(r io.ByteReader) (int, error) {
	n, err := binary.ReadVarint(r)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > math.MaxInt8 {
		return 0, fmt.Errorf(messages.RecordTableCountRangeFmt, n)
	}
	return int(n), nil
}

func readString(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	if int(n) > r.Len() {
		return "", io.ErrUnexpectedEOF
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func appendString(buf []byte, s string) ([]byte, error) {
	if len(s) > math.MaxUint8 {
		return nil, fmt.Errorf(messages.RecordTableStringTooLongFmt, s)
	}
	buf = append(buf, byte(len(s)))
	return append(buf, s...), nil
}
