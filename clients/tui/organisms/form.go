package organisms

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/dbtsel/internal/wizard"
)

// FormResponseMsg is sent when the user submits or cancels a form.
type FormResponseMsg struct {
	ID        string
	Cancelled bool
	Value     string
}

// Form renders one wizard prompt: text, confirm or select.
type Form struct {
	active    bool
	prompt    wizard.Prompt
	cursor    int
	textInput textinput.Model
	style     lipgloss.Style
	muted     lipgloss.Style
}

// NewForm creates an inactive form.
func NewForm(style, muted lipgloss.Style) Form {
	ti := textinput.New()
	ti.CharLimit = 256
	return Form{
		style:     style,
		muted:     muted,
		textInput: ti,
	}
}

// Active returns whether a prompt is active.
func (f *Form) Active() bool {
	return f.active
}

// Prompt returns the prompt being asked.
func (f *Form) Prompt() wizard.Prompt {
	return f.prompt
}

// Activate sets up the form for p. Select prompts start on the default
// option; text prompts show the default as placeholder.
func (f *Form) Activate(p wizard.Prompt) {
	f.active = true
	f.prompt = p
	f.cursor = max(slices.Index(p.Options, p.Default), 0)

	f.textInput.Reset()
	f.textInput.Placeholder = p.Default
	if p.Kind == wizard.KindText {
		f.textInput.Focus()
	} else {
		f.textInput.Blur()
	}
}

// Deactivate resets the form.
func (f *Form) Deactivate() {
	f.active = false
	f.textInput.Blur()
}

// SetWidth sets the text input width.
func (f *Form) SetWidth(w int) {
	f.textInput.Width = max(w-6, 10)
}

// Update handles form input.
func (f Form) Update(msg tea.Msg) (Form, tea.Cmd) {
	if !f.active {
		return f, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if f.prompt.Kind == wizard.KindText {
			var cmd tea.Cmd
			f.textInput, cmd = f.textInput.Update(msg)
			return f, cmd
		}
		return f, nil
	}

	if keyMsg.Type == tea.KeyEsc {
		f.active = false
		return f, f.respond("", true)
	}

	switch f.prompt.Kind {
	case wizard.KindConfirm:
		return f.updateConfirm(keyMsg)
	case wizard.KindSelect:
		return f.updateSelect(keyMsg)
	default:
		return f.updateText(keyMsg)
	}
}

func (f Form) respond(value string, cancelled bool) tea.Cmd {
	id := f.prompt.ID
	return func() tea.Msg {
		return FormResponseMsg{ID: id, Value: value, Cancelled: cancelled}
	}
}

func (f Form) updateConfirm(msg tea.KeyMsg) (Form, tea.Cmd) {
	switch strings.ToLower(msg.String()) {
	case "y":
		f.active = false
		return f, f.respond("true", false)
	case "n":
		f.active = false
		return f, f.respond("false", false)
	case "enter":
		f.active = false
		return f, f.respond("", false)
	}
	return f, nil
}

func (f Form) updateText(msg tea.KeyMsg) (Form, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		f.active = false
		return f, f.respond(f.textInput.Value(), false)
	}
	var cmd tea.Cmd
	f.textInput, cmd = f.textInput.Update(msg)
	return f, cmd
}

func (f Form) updateSelect(msg tea.KeyMsg) (Form, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		if f.cursor > 0 {
			f.cursor--
		}
	case tea.KeyDown:
		if f.cursor < len(f.prompt.Options)-1 {
			f.cursor++
		}
	case tea.KeyEnter:
		if f.cursor < len(f.prompt.Options) {
			f.active = false
			return f, f.respond(f.prompt.Options[f.cursor], false)
		}
	}
	return f, nil
}

// View renders the form.
func (f Form) View() string {
	if !f.active {
		return ""
	}

	var sb strings.Builder
	if f.prompt.Path != "" {
		sb.WriteString(f.muted.Render(f.prompt.Path) + "\n")
	}

	switch f.prompt.Kind {
	case wizard.KindConfirm:
		hint := "[y/N]"
		if f.prompt.Default == "true" {
			hint = "[Y/n]"
		}
		sb.WriteString(fmt.Sprintf("%s %s ", f.prompt.Label, hint))
		if f.prompt.Help != "" {
			sb.WriteString("\n" + f.muted.Render(f.prompt.Help))
		}

	case wizard.KindSelect:
		sb.WriteString(f.prompt.Label + "\n")
		if f.prompt.Help != "" {
			sb.WriteString(f.muted.Render(f.prompt.Help) + "\n")
		}
		for i, opt := range f.prompt.Options {
			cursor := "  "
			if i == f.cursor {
				cursor = "> "
			}
			sb.WriteString(cursor + opt + "\n")
		}

	default:
		sb.WriteString(f.prompt.Label + "\n")
		if f.prompt.Help != "" {
			sb.WriteString(f.muted.Render(f.prompt.Help) + "\n")
		}
		sb.WriteString(f.textInput.View())
	}

	return f.style.Render(strings.TrimRight(sb.String(), "\n"))
}
