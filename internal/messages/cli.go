package messages

// CLI command text and output.
const (
	// RootUse is the CLI command name.
	RootUse   = "langpatch [path]"
	RootShort = "Switch the text and voice language of an installed game client"
	RootLong  = `langpatch rewrites the client's language record and reconciles the voice asset
folders so they match the chosen voice language.

The path may name the game root or its design-data folder. Without a path the
working directory and its parents are searched. Without --lang or --interactive
a read-only diagnostic is printed.`
	RootVersionFlag = "Print version and exit"

	// VersionCommitFmt formats the commit hash for version display.
	VersionCommitFmt = "commit %s"
	VersionBuildFmt  = "built %s"
	VersionFullFmt   = "%s (%s)"
	VersionTemplate  = "{{.Version}}\n"

	FlagLang        = "Target languages, e.g. text=en,voice=jp (legacy form 0en,1jp also accepted)"
	FlagInteractive = "Choose the languages with an interactive prompt"
	FlagConfig      = "Path to a langpatch.toml config file"
	FlagManifest    = "Asset manifest source: http(s) URL, file:// URL, or directory"
	FlagWorkers     = "Number of concurrent downloads"
	FlagQuiet       = "Only print errors"
	FlagVerbose     = "Print diagnostic logs to stderr"
	FlagNoProgress  = "Print plain progress lines instead of a progress bar"
	FlagJSON        = "Print machine-readable JSON"

	FlagLangAndInteractive = "--lang and --interactive cannot be combined"
	FlagWorkersInvalidFmt  = "--workers must be positive, got %d"
	GetwdFmt               = "failed to resolve working directory: %w"

	PlanUse          = "plan [path]"
	PlanShort        = "Show what a language change would do without changing anything"
	PlanLangRequired = "plan requires --lang or --interactive"

	StatusUse   = "status [path]"
	StatusShort = "Show the current languages and any interrupted transaction"

	// Output.
	OutInstallFmt        = "installation: %s\n"
	OutSelectionFmt      = "current: %s\n"
	OutSelectionUnknown  = "current: unreadable (%v)\n"
	OutVoiceLocalFmt     = "voice assets present: %s\n"
	OutNone              = "(none)"
	OutInterruptedFmt    = "interrupted transaction %s: %s, %d of %d operations applied, last update %s"
	OutInterruptedErrFmt = "  last error: %s"
	OutInterruptedHint   = "  the next language change re-plans from the files on disk"
	OutNoProvider        = "no manifest source configured; voice assets not checked"
	OutConsistentFmt     = "voice assets for %s match the manifest (%d files)"
	OutRepairNeededFmt   = "voice assets for %s need %d download(s) and %d removal(s); rerun with --lang %s to repair"
	OutNoOpFmt           = "already using %s; nothing to do"
	OutSwitchedFmt       = "switched %s -> %s"
	OutFailureHintFmt    = "the installation is still usable with %s"

	OutPlanHeaderFmt = "plan (dry run): %s -> %s\n"
	OutPlanSummary   = "%d download(s) (%s), %d removal(s), %d kept\n"
	OutPlanEmpty     = "  (no asset changes)\n"
	OutPlanOpFmt     = "  %s %s (%s)\n"
	OutPlanRecord    = "\nlanguage record:\n"
	OutPlanNoRecord  = "\nlanguage record: unchanged\n"
)
