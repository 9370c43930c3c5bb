package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/smartscheduler/smartscheduler/internal/assistant"
)

// printer writes styled status lines. Colors are dropped automatically when
// the writer is not a terminal.
type printer struct {
	w      io.Writer
	styles map[assistant.Status]lipgloss.Style
	icons  map[assistant.Status]string
}

func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w: w,
		styles: map[assistant.Status]lipgloss.Style{
			assistant.StatusOK:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
			assistant.StatusInfo:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
			assistant.StatusItem:  r.NewStyle(),
			assistant.StatusWarn:  r.NewStyle().Foreground(lipgloss.Color("11")),
			assistant.StatusError: r.NewStyle().Foreground(lipgloss.Color("1")),
		},
		icons: map[assistant.Status]string{
			assistant.StatusOK:    "✅ ",
			assistant.StatusInfo:  "📋 ",
			assistant.StatusItem:  "   ",
			assistant.StatusWarn:  "⚠️  ",
			assistant.StatusError: "❌ ",
		},
	}
}

func (p *printer) line(l assistant.Line) {
	fmt.Fprintln(p.w, p.styles[l.Status].Render(p.icons[l.Status]+l.Text))
}

func (p *printer) lines(ls []assistant.Line) {
	for _, l := range ls {
		p.line(l)
	}
}

func (p *printer) ok(format string, args ...interface{}) {
	p.line(assistant.Line{Status: assistant.StatusOK, Text: fmt.Sprintf(format, args...)})
}

func (p *printer) fail(format string, args ...interface{}) {
	p.line(assistant.Line{Status: assistant.StatusError, Text: fmt.Sprintf(format, args...)})
}
