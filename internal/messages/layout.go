package messages

// Installation locator messages.
const (
	LayoutSystemRequired       = "layout system is required"
	LayoutWorkingDirRequired   = "working directory is required"
	LayoutExpandPathFmt        = "expand path %s: %w"
	LayoutStatFmt              = "failed to stat %s: %w"
	LayoutPathNotFoundFmt      = "%w: %s does not exist"
	LayoutAutoDetectFailedFmt  = "%w: no game installation found at or above %s\nmake sure langpatch runs from the game folder or pass the game path as an argument"
	LayoutNotAbsoluteFmt       = "%w: %s is not an absolute path"
	LayoutOutsideRootFmt       = "%w: %s is not inside game root %s"
	LayoutMissingExecutableFmt = "%w: %s does not contain the game executable (%s)"
	LayoutMissingDirFmt        = "%w: %s is missing"
	LayoutNotDirFmt            = "%w: %s is not a directory"
)
