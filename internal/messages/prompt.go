package messages

// Interactive prompt messages.
const (
	PromptRequiresTerminal = "--interactive requires an interactive terminal"
	PromptNoOptions        = "no languages to choose from"
	PromptTextTitle        = "Text language"
	PromptVoiceTitle       = "Voice language"
	PromptCurrentFmt       = "currently %s"
	PromptNone             = "unknown"
	PromptOptionFmt        = "%s (%s)"
)
