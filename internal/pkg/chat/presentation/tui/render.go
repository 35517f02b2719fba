package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	chat "go-chatty-client/internal/pkg/chat/application/domain"
)

const (
	localLabel = "You"
	timeLayout = "15:04"
)

// RenderOptions controls how a conversation is laid out.
type RenderOptions struct {
	LocalUser chat.ID
	PeerName  string
	Width     int
	// Location used to format timestamps. Defaults to time.Local.
	Location *time.Location
}

// RenderMessages lays out msgs in order: the local user's messages on the
// right under "You", the peer's on the left under the peer name. An empty
// conversation renders a placeholder.
func RenderMessages(msgs []chat.Message, opts RenderOptions) string {
	width := opts.Width
	if width <= 0 {
		width = 80
	}
	if len(msgs) == 0 {
		return lipgloss.NewStyle().Width(width).Align(lipgloss.Center).
			Render(placeholderStyle.Render(Placeholder(opts.PeerName)))
	}

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	bubbleWidth := width * 2 / 3
	if bubbleWidth < 10 {
		bubbleWidth = width
	}

	blocks := make([]string, 0, len(msgs))
	for _, m := range msgs {
		stamp := ""
		if !m.Timestamp.IsZero() {
			stamp = " " + timeStyle.Render(m.Timestamp.In(loc).Format(timeLayout))
		}
		if m.IsFrom(opts.LocalUser) {
			header := localLabelStyle.Render(localLabel) + stamp
			body := localTextStyle.Width(bubbleWidth).Align(lipgloss.Right).Render(m.Text)
			block := lipgloss.JoinVertical(lipgloss.Right, header, body)
			blocks = append(blocks, lipgloss.PlaceHorizontal(width, lipgloss.Right, block))
			continue
		}
		header := remoteLabelStyle.Render(peerLabel(opts.PeerName, m.SenderID)) + stamp
		body := remoteTextStyle.Width(bubbleWidth).Render(m.Text)
		blocks = append(blocks, lipgloss.JoinVertical(lipgloss.Left, header, body))
	}
	return strings.Join(blocks, "\n\n")
}

// Placeholder is shown while the conversation has no messages.
func Placeholder(peerName string) string {
	if strings.TrimSpace(peerName) == "" {
		return "Start a conversation"
	}
	return "Start a conversation with " + peerName
}

func peerLabel(name string, sender chat.ID) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return sender.String()
}
