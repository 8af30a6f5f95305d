package messages

// Language code and selector messages.
const (
	LangSetEmpty         = "at least one supported language code is required"
	LangMalformedCodeFmt = "language code %q must be two lowercase letters"
	LangDuplicateCodeFmt = "language code %q is listed more than once"
	// LangUnsupportedCodeFmt wraps lang.ErrInvalidLanguageCode.
	LangUnsupportedCodeFmt = "%w: %q (supported: %s)"
	LangTextFieldFmt       = "text language: %w"
	LangVoiceFieldFmt      = "voice language: %w"

	LangSelectorEmpty          = "language selector is empty; expected text=<code>,voice=<code>"
	LangSelectorPartsFmt       = "language selector %q must name exactly two languages, e.g. text=en,voice=jp"
	LangSelectorDuplicateFmt   = "language selector names %s more than once"
	LangSelectorUnknownKindFmt = "unknown language kind %q (expected text or voice)"
	LangSelectorMissingFmt     = "language selector is missing the %s language"
	LangSelectorPartInvalidFmt = "invalid language selector part %q"
	LangSelectorLegacyKindFmt  = "language selector part %q: type must be 0 (text) or 1 (voice)"
)
