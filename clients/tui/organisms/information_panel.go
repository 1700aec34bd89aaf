package organisms

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// InformationPanel displays the status bar: output file, selector counts
// and the last error.
type InformationPanel struct {
	path     string
	existing int
	added    int
	err      error
	width    int
	style    lipgloss.Style
	errStyle lipgloss.Style
}

// NewInformationPanel creates a new status bar panel.
func NewInformationPanel(style, errStyle lipgloss.Style) InformationPanel {
	return InformationPanel{style: style, errStyle: errStyle}
}

// SetPath updates the output file shown.
func (p *InformationPanel) SetPath(path string) { p.path = path }

// SetCounts updates the number of selectors already in the file and added
// in this run.
func (p *InformationPanel) SetCounts(existing, added int) {
	p.existing = existing
	p.added = added
}

// SetError shows err until it is cleared with nil.
func (p *InformationPanel) SetError(err error) { p.err = err }

// Err returns the error on display.
func (p *InformationPanel) Err() error { return p.err }

// SetWidth updates the rendering width.
func (p *InformationPanel) SetWidth(w int) { p.width = w }

// View renders the error line, if any, above the status bar.
func (p InformationPanel) View() string {
	bar := fmt.Sprintf(" %s | %d existing | %d added | esc: cancel ", p.path, p.existing, p.added)
	out := p.style.Width(p.width).Render(bar)
	if p.err != nil {
		out = p.errStyle.Width(p.width).Render(p.err.Error()) + "\n" + out
	}
	return out
}
