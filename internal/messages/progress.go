package messages

// Progress output.
const (
	ProgressStatusFmt    = "%s  %d/%d operations  %s of %s"
	ProgressFailedFmt    = "  %d failed"
	ProgressPlannedFmt   = "transaction %s: %d to download, %d to remove, %d kept (%s)\n"
	ProgressStateFmt     = "transaction %s"
	ProgressCommittedFmt = "transaction committed (%s downloaded)"
	ProgressOpFmt        = "  %s %s"
	ProgressOpFailedFmt  = "  %s %s: %s"
	ProgressAttemptsFmt  = " (%d attempts)"
)
