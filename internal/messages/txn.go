package messages

// Patch transaction messages.
const (
	TxnConfigRequired       = "config is required"
	TxnPhaseErrorFmt        = "%s phase failed: %v"
	TxnOperationFmt         = "%s failed after %d attempt(s): %w"
	TxnUnknownOperationFmt  = "unknown operation kind %q"
	TxnMissingDescriptorFmt = "add %s has no asset descriptor"
	TxnCreateStateDirFmt    = "failed to create state directory: %w"
	TxnCreateStagingFmt     = "failed to create staging file: %w"
	TxnSyncStagingFmt       = "failed to sync staging file %s: %w"
	TxnCloseStagingFmt      = "failed to close staging file %s: %w"
	TxnMkdirFmt             = "failed to create directory %s: %w"
	TxnRenameFmt            = "failed to move asset into %s: %w"
	TxnRemoveFmt            = "failed to remove %s: %w"

	TxnJournalOpenFmt   = "failed to open journal %s: %w"
	TxnJournalEncodeFmt = "failed to encode journal record: %w"
	TxnJournalWriteFmt  = "failed to write journal %s: %w"
	TxnJournalReadFmt   = "failed to read journal %s: %w"
	TxnJournalDecodeFmt = "journal %s line %d is malformed: %w"
)
