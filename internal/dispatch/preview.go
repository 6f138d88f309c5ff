package dispatch

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	previewHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	previewBody   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#dce0e5")).
			Padding(0, 1)
)

// PreviewSender prints messages instead of sending them.
type PreviewSender struct {
	W io.Writer
}

// Send writes the message addressed to phone.
func (p *PreviewSender) Send(ctx context.Context, phone, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(p.W, "%s\n%s\n\n", previewHeader.Render("+"+phone), previewBody.Render(text))
	return err
}
