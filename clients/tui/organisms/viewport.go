package organisms

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Preview is a scrollable view of the rendered selectors document.
type Preview struct {
	viewport viewport.Model
	title    lipgloss.Style
	content  string
}

// NewPreview creates an empty preview.
func NewPreview(width, height int, title lipgloss.Style) Preview {
	vp := viewport.New(width, height)
	vp.SetContent("")
	// Arrow keys drive the form; scroll is PageUp/PageDown only.
	vp.KeyMap = viewport.KeyMap{}
	vp.MouseWheelEnabled = false
	return Preview{viewport: vp, title: title}
}

// SetSize updates the preview dimensions. One line goes to the title.
func (p *Preview) SetSize(width, height int) {
	p.viewport.Width = width
	p.viewport.Height = max(height-1, 1)
	p.viewport.SetContent(p.content)
}

// SetContent replaces the document and scrolls to the bottom.
func (p *Preview) SetContent(s string) {
	p.content = s
	p.viewport.SetContent(s)
	p.viewport.GotoBottom()
}

// Content returns the document on display.
func (p *Preview) Content() string {
	return p.content
}

// PageUp scrolls up by one page.
func (p *Preview) PageUp() {
	p.viewport.PageUp()
}

// PageDown scrolls down by one page.
func (p *Preview) PageDown() {
	p.viewport.PageDown()
}

// Update handles viewport messages.
func (p Preview) Update(msg tea.Msg) (Preview, tea.Cmd) {
	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

// View renders the title and the viewport.
func (p Preview) View() string {
	return p.title.Render("selectors.yml preview") + "\n" + p.viewport.View()
}
