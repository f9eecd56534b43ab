// Package tui provides the terminal interaction of libro-dl: the format
// prompt and the styled progress output.
package tui

import (
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/handiism/libro-downloader/internal/model"
)

// ErrPromptCanceled is returned when the user leaves the prompt with
// esc or ctrl+c.
var ErrPromptCanceled = errors.New("format prompt canceled")

// FormatPrompt is the Bubble Tea model asking which format to download.
type FormatPrompt struct {
	textInput textinput.Model
	format    model.Format
	err       error
	done      bool
}

// NewFormatPrompt creates a focused, empty prompt.
func NewFormatPrompt() FormatPrompt {
	ti := textinput.New()
	ti.Placeholder = "m4b or mp3"
	ti.Focus()
	ti.CharLimit = 8
	ti.Width = 12

	return FormatPrompt{textInput: ti}
}

// Init initializes the model.
func (p FormatPrompt) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles key presses. Enter accepts the input; anything other than
// m4b or mp3 ends the prompt with model.ErrInvalidFormat.
func (p FormatPrompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			p.err = ErrPromptCanceled
			p.done = true
			return p, tea.Quit

		case tea.KeyEnter:
			p.format, p.err = parseChoice(p.textInput.Value())
			p.done = true
			return p, tea.Quit
		}
	}

	var cmd tea.Cmd
	p.textInput, cmd = p.textInput.Update(msg)
	return p, cmd
}

// View renders the prompt.
func (p FormatPrompt) View() string {
	if p.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(Header())
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("Which format do you want to download?"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  m4b  single-file audiobook"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  mp3  zip of mp3 tracks, extracted after download"))
	b.WriteString("\n\n")
	b.WriteString(p.textInput.View())
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("enter: confirm • esc: quit"))
	b.WriteString("\n")
	return b.String()
}

// Result returns the chosen format, or the reason there is none.
func (p FormatPrompt) Result() (model.Format, error) {
	if !p.done {
		return model.FormatNone, ErrPromptCanceled
	}
	return p.format, p.err
}

// PromptFormat runs the format prompt on the given terminal streams.
func PromptFormat(in io.Reader, out io.Writer) (model.Format, error) {
	final, err := tea.NewProgram(NewFormatPrompt(), tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		return model.FormatNone, err
	}
	return final.(FormatPrompt).Result()
}

// parseChoice accepts exactly m4b or mp3; an empty answer is not a choice.
func parseChoice(s string) (model.Format, error) {
	if strings.TrimSpace(s) == "" {
		return model.FormatNone, model.ErrInvalidFormat
	}
	return model.ParseFormat(s)
}
