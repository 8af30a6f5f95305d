package lang

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestParseSelector(t *testing.T) {
	set := DefaultSet()
	tests := []struct {
		name string
		raw  string
		want Selection
	}{
		{name: "keyed", raw: "text=en,voice=jp", want: Selection{Text: "en", Voice: "jp"}},
		{name: "keyed reversed", raw: "voice=kr, text=cn", want: Selection{Text: "cn", Voice: "kr"}},
		{name: "keyed uppercase", raw: "TEXT=EN,VOICE=JP", want: Selection{Text: "en", Voice: "jp"}},
		{name: "legacy", raw: "0en,1jp", want: Selection{Text: "en", Voice: "jp"}},
		{name: "legacy with prefix", raw: "-lang:1cn,0kr", want: Selection{Text: "kr", Voice: "cn"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSelector(tt.raw, set)
			if err != nil {
				t.Fatalf("ParseSelector(%q): %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("ParseSelector(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseSelector_Errors(t *testing.T) {
	set := DefaultSet()
	tests := []struct {
		name        string
		raw         string
		invalidCode bool
	}{
		{name: "empty", raw: ""},
		{name: "single part", raw: "text=en"},
		{name: "three parts", raw: "text=en,voice=jp,text=cn"},
		{name: "duplicate kind", raw: "text=en,text=jp"},
		{name: "unknown kind", raw: "text=en,audio=jp"},
		{name: "missing value", raw: "text=,voice=jp"},
		{name: "legacy bad kind", raw: "0en,2jp"},
		{name: "legacy too short", raw: "0e,1jp"},
		{name: "unsupported text", raw: "text=fr,voice=jp", invalidCode: true},
		{name: "unsupported voice", raw: "0en,1de", invalidCode: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSelector(tt.raw, set)
			if err == nil {
				t.Fatalf("expected error for %q", tt.raw)
			}
			if got := errors.Is(err, ErrInvalidLanguageCode); got != tt.invalidCode {
				t.Fatalf("errors.Is(ErrInvalidLanguageCode) = %v, want %v (err: %v)", got, tt.invalidCode, err)
			}
		})
	}
}

func TestNewSet(t *testing.T) {
	set, err := NewSet([]string{"en", " jp "})
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	if got := set.Codes(); !slices.Equal(got, []string{"en", "jp"}) {
		t.Fatalf("unexpected codes: %v", got)
	}
	if !set.Contains("jp") || set.Contains("cn") {
		t.Fatalf("unexpected membership for %v", set.Codes())
	}

	for _, codes := range [][]string{nil, {"eng"}, {"EN"}, {"en", "en"}} {
		if _, err := NewSet(codes); err == nil {
			t.Fatalf("expected error for %v", codes)
		}
	}
}

func TestSelectionValidate(t *testing.T) {
	set := DefaultSet()
	if err := (Selection{Text: "cn", Voice: "en"}).Validate(set); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	tests := []struct {
		sel  Selection
		kind string
	}{
		{sel: Selection{Text: "", Voice: "en"}, kind: "text"},
		{sel: Selection{Text: "en", Voice: "xx"}, kind: "voice"},
	}
	for _, tt := range tests {
		err := tt.sel.Validate(set)
		if !errors.Is(err, ErrInvalidLanguageCode) {
			t.Fatalf("expected ErrInvalidLanguageCode for %v, got %v", tt.sel, err)
		}
		if !strings.Contains(err.Error(), tt.kind) {
			t.Fatalf("expected error to name %q, got %v", tt.kind, err)
		}
	}
}

func TestSelectionString(t *testing.T) {
	if got := (Selection{Text: "en", Voice: "jp"}).String(); got != "text=en,voice=jp" {
		t.Fatalf("unexpected string %q", got)
	}
}
