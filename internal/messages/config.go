package messages

// Config messages for configuration loading and validation.
const (
	ConfigReadFmt    = "failed to read config %s: %w"
	ConfigStatFmt    = "failed to stat config %s: %w"
	ConfigInvalidFmt = "invalid config %s: %w"
	// ConfigEnvPositiveIntFmt wraps config.ErrConfigValidation.
	ConfigEnvPositiveIntFmt = "%w: %s must be a positive integer (got %q)"

	ConfigFieldRequired           = "%s is required"
	ConfigFieldPositive           = "%s must be greater than zero"
	ConfigFieldNonNegative        = "%s must not be negative"
	ConfigFieldInvalidFmt         = "%s: %v"
	ConfigExecutableInvalidFmt    = "layout.executables entry %q must be a bare file name"
	ConfigLanguageDirMissingFmt   = "audio.language_dirs is missing a directory for language %q"
	ConfigLanguageDirInvalidFmt   = "audio.language_dirs.%s = %q must be a single directory name"
	ConfigLanguageDirDuplicateFmt = "audio.language_dirs directory %q is shared by %s and %s"
	ConfigPathRequired            = "path is required"
	ConfigPathNotRelativeFmt      = "path %q must be relative and use forward slashes"
	ConfigPathNotCleanFmt         = "path %q must be clean and stay inside the game root"
)
