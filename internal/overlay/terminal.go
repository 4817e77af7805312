package overlay

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Terminal renders cards as colored boxes on a text stream.
type Terminal struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTerminal writes to out.
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

// Render draws a card without writing it anywhere.
func Render(c Card) string {
	color := lipgloss.Color(c.Color())
	badge := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(color).Padding(0, 1)
	price := lipgloss.NewStyle().Bold(true)
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	body := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, badge.Render(c.Label()), " ", muted.Render(string(c.App))),
		price.Render(c.PriceText()),
		c.DetailText(),
		muted.Render(c.RateText()),
	)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Render(body)
}

func (t *Terminal) Show(c Card) {
	t.write(Render(c))
}

func (t *Terminal) Hide() {
	t.write(lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("(card hidden)"))
}

// HideSelf is a no-op; terminal output never appears in a device screenshot.
func (t *Terminal) HideSelf() {}

func (t *Terminal) Restore() {}

func (t *Terminal) write(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = fmt.Fprintln(t.out, s)
}

var _ Sink = (*Terminal)(nil)
