package lang

import (
	"fmt"
	"strings"

	"github.com/conn-castle/langpatch/internal/messages"
)

// ParseSelector parses a language selector and validates both codes against set.
//
// Two syntaxes are accepted:
//
//	text=en,voice=jp
//	0en,1jp          (legacy: 0 is text, 1 is voice)
//
// Both languages must be present. Unsupported codes wrap ErrInvalidLanguageCode.
func ParseSelector(raw string, set Set) (Selection, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "-lang:")
	if raw == "" {
		return Selection{}, fmt.Errorf(messages.LangSelectorEmpty)
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return Selection{}, fmt.Errorf(messages.LangSelectorPartsFmt, raw)
	}

	var sel Selection
	for _, part := range parts {
		part = strings.TrimSpace(part)
		kind, code, err := splitSelectorPart(part)
		if err != nil {
			return Selection{}, err
		}
		switch kind {
		case "text":
			if sel.Text != "" {
				return Selection{}, fmt.Errorf(messages.LangSelectorDuplicateFmt, kind)
			}
			sel.Text = code
		case "voice":
			if sel.Voice != "" {
				return Selection{}, fmt.Errorf(messages.LangSelectorDuplicateFmt, kind)
			}
			sel.Voice = code
		default:
			return Selection{}, fmt.Errorf(messages.LangSelectorUnknownKindFmt, kind)
		}
	}
	if sel.Text == "" {
		return Selection{}, fmt.Errorf(messages.LangSelectorMissingFmt, "text")
	}
	if sel.Voice == "" {
		return Selection{}, fmt.Errorf(messages.LangSelectorMissingFmt, "voice")
	}
	if err := sel.Validate(set); err != nil {
		return Selection{}, err
	}
	return sel, nil
}

func splitSelectorPart(part string) (string, string, error) {
	if key, value, ok := strings.Cut(part, "="); ok {
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" {
			return "", "", fmt.Errorf(messages.LangSelectorMissingFmt, key)
		}
		return key, value, nil
	}
	if len(part) < 3 {
		return "", "", fmt.Errorf(messages.LangSelectorPartInvalidFmt, part)
	}
	code := strings.ToLower(part[1:])
	switch part[0] {
	case '0':
		return "text", code, nil
	case '1':
		return "voice", code, nil
	default:
		return "", "", fmt.Errorf(messages.LangSelectorLegacyKindFmt, part)
	}
}
