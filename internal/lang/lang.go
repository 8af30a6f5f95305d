// Package lang defines the supported language codes and the text/voice selection pair.
package lang

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/conn-castle/langpatch/internal/messages"
)

// ErrInvalidLanguageCode is wrapped by every validation failure caused by an unsupported code.
var ErrInvalidLanguageCode = errors.New("invalid language code")

// DefaultCodes are the languages the client ships with.
var DefaultCodes = []string{"cn", "en", "kr", "jp"}

// Set is an ordered enumeration of supported two-letter codes.
type Set struct {
	codes []string
}

// NewSet builds a Set from codes, preserving order and rejecting malformed or duplicate entries.
func NewSet(codes []string) (Set, error) {
	if len(codes) == 0 {
		return Set{}, fmt.Errorf(messages.LangSetEmpty)
	}
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if !wellFormed(code) {
			return Set{}, fmt.Errorf(messages.LangMalformedCodeFmt, code)
		}
		if slices.Contains(out, code) {
			return Set{}, fmt.Errorf(messages.LangDuplicateCodeFmt, code)
		}
		out = append(out, code)
	}
	return Set{codes: out}, nil
}

// DefaultSet returns the Set built from DefaultCodes.
func DefaultSet() Set {
	return Set{codes: slices.Clone(DefaultCodes)}
}

// Codes returns a copy of the supported codes in declaration order.
func (s Set) Codes() []string {
	return slices.Clone(s.codes)
}

// Contains reports whether code is supported.
func (s Set) Contains(code string) bool {
	return slices.Contains(s.codes, code)
}

// Validate returns an error wrapping ErrInvalidLanguageCode when code is not supported.
func (s Set) Validate(code string) error {
	if s.Contains(code) {
		return nil
	}
	return fmt.Errorf(messages.LangUnsupportedCodeFmt, ErrInvalidLanguageCode, code, strings.Join(s.codes, ", "))
}

func wellFormed(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// Selection is the persisted pair of text and voice languages.
type Selection struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// Validate checks both codes against set. Both fields are required.
func (sel Selection) Validate(set Set) error {
	if err := set.Validate(sel.Text); err != nil {
		return fmt.Errorf(messages.LangTextFieldFmt, err)
	}
	if err := set.Validate(sel.Voice); err != nil {
		return fmt.Errorf(messages.LangVoiceFieldFmt, err)
	}
	return nil
}

// String formats the selection in selector syntax.
func (sel Selection) String() string {
	return fmt.Sprintf("text=%s,voice=%s", sel.Text, sel.Voice)
}
