package messages

// Manifest provider messages.
const (
	ManifestFetchErrorFmt       = "fetch %s: %v"
	ManifestSourceInvalidFmt    = "invalid manifest source %q: %w"
	ManifestNoNetworkFmt        = "network access is disabled by %s"
	ManifestUnexpectedStatusFmt = "unexpected status %s"
	ManifestTooLargeFmt         = "content exceeds the %d byte download limit"
	ManifestStalledFmt          = "no data received for %s"

	ManifestDecodeFmt             = "%w: %v"
	ManifestLanguageMismatchFmt   = "%w: manifest is for language %q, expected %q"
	ManifestPathEmptyFmt          = "%w: empty asset path"
	ManifestPathInvalidFmt        = "%w: asset path %q must be a clean relative path"
	ManifestPathReservedFmt       = "%w: asset path %q is inside the reserved .langpatch directory"
	ManifestDuplicatePathFmt      = "%w: asset path %q is listed more than once"
	ManifestNegativeSizeFmt       = "%w: asset %q has negative size %d"
	ManifestChecksumInvalidFmt    = "%w: asset %q has invalid sha256 checksum %q"
	ManifestDescriptorLanguageFmt = "%w: asset %q belongs to language %q, expected %q"
)
