// Package prompt asks for a language selection on an interactive terminal.
package prompt

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/conn-castle/langpatch/internal/lang"
	"github.com/conn-castle/langpatch/internal/messages"
	"github.com/conn-castle/langpatch/internal/terminal"
)

// ErrCancelled is returned when the user aborts the prompt.
var ErrCancelled = errors.New("language selection cancelled")

var runFormFunc = func(form *huh.Form) error { return form.Run() }

// Option is one selectable language.
type Option struct {
	Code  string
	Label string
}

// Options lists the codes of set in order, labelled with their audio directory when known.
func Options(set lang.Set, labels map[string]string) []Option {
	codes := set.Codes()
	out := make([]Option, 0, len(codes))
	for _, code := range codes {
		label := code
		if name, ok := labels[code]; ok && name != "" {
			label = fmt.Sprintf(messages.PromptOptionFmt, code, name)
		}
		out = append(out, Option{Code: code, Label: label})
	}
	return out
}

// HuhUI asks with charmbracelet/huh forms on stderr.
type HuhUI struct {
	isTerminal func() bool
}

// NewHuhUI returns a HuhUI that requires an interactive terminal.
func NewHuhUI() *HuhUI {
	return &HuhUI{isTerminal: terminal.IsInteractive}
}

func (ui *HuhUI) ensureInteractive() error {
	checker := ui.isTerminal
	if checker == nil {
		checker = terminal.IsInteractive
	}
	if checker() {
		return nil
	}
	return errors.New(messages.PromptRequiresTerminal)
}

// keyMap disables list filtering; the lists are a handful of entries and esc aborts.
func keyMap() *huh.KeyMap {
	km := huh.NewDefaultKeyMap()
	km.Quit = key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "cancel"))
	km.Select.Filter.SetEnabled(false)
	km.Select.SetFilter.SetEnabled(false)
	km.Select.ClearFilter.SetEnabled(false)
	return km
}

// Select asks for the text and voice languages, starting from current. Codes of current
// that are not offered start on the first option.
func (ui *HuhUI) Select(options []Option, current lang.Selection) (lang.Selection, error) {
	if err := ui.ensureInteractive(); err != nil {
		return lang.Selection{}, err
	}
	if len(options) == 0 {
		return lang.Selection{}, errors.New(messages.PromptNoOptions)
	}

	sel := lang.Selection{
		Text:  initial(options, current.Text),
		Voice: initial(options, current.Voice),
	}
	opts := make([]huh.Option[string], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o.Label, o.Code)
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(messages.PromptTextTitle).
				Description(fmt.Sprintf(messages.PromptCurrentFmt, orNone(current.Text))).
				Options(opts...).
				Value(&sel.Text),
			huh.NewSelect[string]().
				Title(messages.PromptVoiceTitle).
				Description(fmt.Sprintf(messages.PromptCurrentFmt, orNone(current.Voice))).
				Options(opts...).
				Value(&sel.Voice),
		),
	)
	form.WithKeyMap(keyMap())
	form.WithProgramOptions(
		tea.WithOutput(os.Stderr),
		tea.WithFilter(interruptFilter),
	)

	if err := runFormFunc(form); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return lang.Selection{}, ErrCancelled
		}
		return lang.Selection{}, err
	}
	return sel, nil
}

// interruptFilter turns an interrupt into a quit so the renderer clears the form.
func interruptFilter(_ tea.Model, msg tea.Msg) tea.Msg {
	if _, ok := msg.(tea.InterruptMsg); ok {
		return tea.QuitMsg{}
	}
	return msg
}

func initial(options []Option, code string) string {
	for _, o := range options {
		if o.Code == code {
			return code
		}
	}
	return options[0].Code
}

func orNone(code string) string {
	if code == "" {
		return messages.PromptNone
	}
	return code
}
