package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/dbtsel/clients/tui/organisms"
	"github.com/dohr-michael/dbtsel/internal/selectors"
	"github.com/dohr-michael/dbtsel/internal/wizard"
)

// App is the wizard application model.
// Architecture: PREVIEW | FORM | STATUS
type App struct {
	wizard   *wizard.Wizard
	existing int

	preview organisms.Preview
	form    organisms.Form
	info    organisms.InformationPanel

	width     int
	height    int
	cancelled bool
	quitting  bool
}

// NewApp creates the application for w. Selectors already in w's session
// are counted as existing.
func NewApp(w *wizard.Wizard, path string) App {
	a := App{
		wizard:   w,
		existing: w.Session().Collection().Len(),
		preview:  organisms.NewPreview(80, 10, TitleStyle),
		form:     organisms.NewForm(PromptBorderStyle, MutedStyle),
		info:     organisms.NewInformationPanel(StatusBarStyle, ErrorStyle),
	}
	a.info.SetPath(path)
	a.refresh()
	if !w.Done() {
		a.form.Activate(w.Prompt())
	}
	return a
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	if a.wizard.Done() {
		return tea.Quit
	}
	return nil
}

// Cancelled reports whether the user left with Esc or Ctrl+C.
func (a App) Cancelled() bool {
	return a.cancelled
}

// Update processes all incoming messages.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.form.SetWidth(a.width)
		a.info.SetWidth(a.width)
		a.layout()
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a.cancel()
		case "pgup":
			a.preview.PageUp()
			return a, nil
		case "pgdown":
			a.preview.PageDown()
			return a, nil
		}
		var cmd tea.Cmd
		a.form, cmd = a.form.Update(msg)
		return a, cmd

	case organisms.FormResponseMsg:
		if msg.Cancelled {
			return a.cancel()
		}
		return a.answer(msg.Value)
	}

	var cmd tea.Cmd
	a.form, cmd = a.form.Update(msg)
	return a, cmd
}

func (a App) answer(value string) (tea.Model, tea.Cmd) {
	err := a.wizard.Answer(value)
	a.info.SetError(err)
	a.refresh()
	if a.wizard.Done() {
		a.quitting = true
		return a, tea.Quit
	}
	a.form.Activate(a.wizard.Prompt())
	a.layout()
	return a, nil
}

func (a App) cancel() (tea.Model, tea.Cmd) {
	a.wizard.Cancel()
	a.form.Deactivate()
	a.cancelled = true
	a.quitting = true
	return a, tea.Quit
}

// refresh re-renders the preview and the counters from the session.
func (a *App) refresh() {
	sess := a.wizard.Session()
	doc, err := selectors.Render(sess.Collection().Selectors())
	if err != nil {
		a.info.SetError(err)
		return
	}
	content := YAMLStyle.Render(strings.TrimRight(string(doc), "\n"))
	if meta, def := sess.Pending(); sess.State() != selectors.StateEmpty {
		pending := fmt.Sprintf("pending: %s", meta.Name)
		if def != nil {
			pending += fmt.Sprintf(" (%s)", def.Mode())
		}
		content += "\n" + MutedStyle.Render(pending)
	}
	a.preview.SetContent(content)
	a.info.SetCounts(a.existing, len(a.wizard.Added()))
}

// layout gives the preview whatever height the form and status bar leave.
func (a *App) layout() {
	if a.width == 0 {
		return
	}
	used := lipgloss.Height(a.form.View()) + lipgloss.Height(a.info.View())
	a.preview.SetSize(a.width, max(a.height-used, 3))
}

// View renders the application.
func (a App) View() string {
	if a.quitting {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		a.preview.View(),
		a.form.View(),
		a.info.View(),
	)
}

// Run drives w in a full-screen program until it finishes or the user
// cancels. It reports whether the run was cancelled.
func Run(ctx context.Context, w *wizard.Wizard, path string) (bool, error) {
	final, err := tea.NewProgram(NewApp(w, path), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return false, fmt.Errorf("run wizard: %w", err)
	}
	app, ok := final.(App)
	return ok && app.Cancelled(), nil
}
