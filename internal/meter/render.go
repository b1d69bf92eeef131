package meter

import (
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Terminal prints one indicator line per rendered chunk. Lines end in "\r\n"
// so output stays aligned while stdin is in raw mode.
type Terminal struct {
	mu    sync.Mutex
	w     io.Writer
	bar   lipgloss.Style
	label lipgloss.Style
}

// NewTerminal returns a renderer writing to w. Colors are only emitted when w is a color-capable terminal.
func NewTerminal(w io.Writer) *Terminal {
	r := lipgloss.NewRenderer(w)
	return &Terminal{
		w:     w,
		bar:   r.NewStyle().Foreground(lipgloss.Color("2")),
		label: r.NewStyle().Faint(true),
	}
}

func (t *Terminal) Render(bar, label string) {
	t.writeLine(t.bar.Render(bar) + " " + t.label.Render(label))
}

func (t *Terminal) Message(msg string) {
	t.writeLine(msg)
}

func (t *Terminal) writeLine(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	io.WriteString(t.w, strings.ReplaceAll(line, "\n", "\r\n")+"\r\n")
}

// Discard is a renderer that draws nothing.
type Discard struct{}

func (Discard) Render(bar, label string) {}
func (Discard) Message(msg string)       {}

var _ Renderer = (*Terminal)(nil)
var _ Renderer = Discard{}

