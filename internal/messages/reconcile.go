package messages

// Asset reconciler messages.
const (
	ReconcileSystemRequired      = "reconcile system is required"
	ReconcileScanFmt             = "failed to scan %s: %w"
	ReconcileOpenFmt             = "failed to open %s: %w"
	ReconcileHashFmt             = "failed to hash %s: %w"
	ReconcileVoiceDirMissingFmt  = "no audio directory is configured for voice language %q"
	ReconcileSizeMismatchFmt     = "%w: %s: expected %d bytes, got %d"
	ReconcileChecksumMismatchFmt = "%w: %s: expected sha256 %s, got %s"
)
