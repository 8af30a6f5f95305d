package messages

// Language record codec messages.
const (
	RecordSystemRequired     = "record system is required"
	RecordFileMissingFmt     = "%w: %s is missing"
	RecordReadFmt            = "failed to read %s: %w"
	RecordWriteFmt           = "failed to write language record %s: %w"
	RecordVersionTooShortFmt = "%w: version file is %d bytes, too short to hold the index hash"
	RecordIndexHeaderFmt     = "%w: design index header: %v"
	RecordIndexCountFmt      = "%w: design index declares %d entries but only %d bytes remain"
	RecordIndexFileFmt       = "%w: design index file entry %d: %v"
	RecordEntryNotFoundFmt   = "%w: no table with name hash %d in %s"
	RecordEntryBoundsFmt     = "%w: table entry has invalid offset %d or size %d"

	RecordRegionOutOfRangeFmt = "%w: table region %d+%d exceeds blob size %d"

	RecordTableTruncatedFmt     = "%w: language table %s: %v"
	RecordTableMarkerFmt        = "%w: language table starts with 0x%02x, expected 0x00"
	RecordTableRowFmt           = "%w: language table row %d: %v"
	RecordTableTrailingFmt      = "%w: language table has non-zero data after the last row at byte %d"
	RecordTableUnknownBitsFmt   = "row field mask 0x%02x has unknown bits"
	RecordTableCountRangeFmt    = "count %d out of range"
	RecordTableTooManyFmt       = "cannot encode %d items (max %d)"
	RecordTableStringTooLongFmt = "cannot encode string %q longer than 255 bytes"

	RecordRowMissingFmt     = "%w: no %s %s row"
	RecordRowNoDefaultFmt   = "%w: %s %s row has no default language"
	RecordRowUnknownCodeFmt = "%w: %s %s row names unsupported language %q"
	RecordOverflowFmt       = "%w: encoded table is %d bytes, region holds %d"
)
