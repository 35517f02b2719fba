// Package tui renders a chat session in the terminal with bubbletea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	bspinner "github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	chat "go-chatty-client/internal/pkg/chat/application/domain"
	"go-chatty-client/internal/pkg/chat/application/session"
)

type keyMap struct {
	Send  key.Binding
	Retry key.Binding
	Quit  key.Binding
}

var keys = keyMap{
	Send:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	Retry: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload")),
	Quit:  key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
}

// Config describes the screen. Timeout bounds each backend call.
type Config struct {
	LocalUser  chat.ID
	RemoteUser chat.ID
	PeerName   string
	Timeout    time.Duration
	Location   *time.Location
}

type bootstrapDoneMsg struct{ err error }

type sendDoneMsg struct {
	text string
	msg  *chat.Message
	err  error
}

// sessionEventMsg wraps a session event delivered to the update loop.
type sessionEventMsg struct{ event session.Event }

// Model is the chat screen. Create it with New and release it with Close.
type Model struct {
	ctx     context.Context
	session *session.ChatSession
	cfg     Config

	events      chan session.Event
	unsubscribe func()

	viewport viewport.Model
	input    textinput.Model
	spinner  bspinner.Model

	width    int
	ready    bool
	loading  bool
	inFlight int
	lastErr  error
}

func New(ctx context.Context, s *session.ChatSession, cfg Config) *Model {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	in := textinput.New()
	in.Placeholder = "Type a message"
	in.Prompt = "> "
	in.CharLimit = 4000
	in.Focus()

	sp := bspinner.New()
	sp.Spinner = bspinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)

	m := &Model{
		ctx:      ctx,
		session:  s,
		cfg:      cfg,
		events:   make(chan session.Event, 64),
		viewport: viewport.New(80, 20),
		input:    in,
		spinner:  sp,
		width:    80,
		loading:  true,
	}
	// The model re-reads the session on every event, so a dropped event
	// only delays a redraw until the next one.
	m.unsubscribe = s.Subscribe(func(ev session.Event) {
		select {
		case m.events <- ev:
		default:
		}
	})
	m.refresh()
	return m
}

// Close stops listening to the session.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.bootstrap(), m.waitForEvent())
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-m.events:
			return sessionEventMsg{event: ev}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) bootstrap() tea.Cmd {
	s, cfg, parent := m.session, m.cfg, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, cfg.Timeout)
		defer cancel()
		return bootstrapDoneMsg{err: s.Bootstrap(ctx, cfg.LocalUser, cfg.RemoteUser)}
	}
}

func (m *Model) send(text string) tea.Cmd {
	s, timeout, parent := m.session, m.cfg.Timeout, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		msg, err := s.Send(ctx, text)
		return sendDoneMsg{text: text, msg: msg, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch ev := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = ev.Width
		m.viewport.Width = ev.Width
		// header, blank line, input, status
		m.viewport.Height = max(ev.Height-4, 1)
		m.input.Width = max(ev.Width-len(m.input.Prompt)-1, 1)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(ev, keys.Quit):
			return m, tea.Quit
		case key.Matches(ev, keys.Retry):
			if m.ready || m.loading {
				return m, nil
			}
			m.loading = true
			m.lastErr = nil
			return m, tea.Batch(m.spinner.Tick, m.bootstrap())
		case key.Matches(ev, keys.Send):
			return m, m.submit()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.session.SetDraft(m.input.Value())
		return m, cmd

	case bootstrapDoneMsg:
		m.loading = false
		switch {
		case ev.err == nil:
			m.ready = true
			m.lastErr = nil
		case errors.Is(ev.err, session.ErrSessionChanged):
		default:
			m.lastErr = ev.err
		}
		m.refresh()
		return m, nil

	case sendDoneMsg:
		m.inFlight--
		if ev.err != nil {
			m.lastErr = ev.err
			// Give the text back so the user can retry by pressing enter.
			if m.input.Value() == "" {
				m.input.SetValue(ev.text)
				m.input.CursorEnd()
				m.session.SetDraft(ev.text)
			}
			return m, nil
		}
		m.lastErr = nil
		m.refresh()
		return m, nil

	case sessionEventMsg:
		m.refresh()
		return m, m.waitForEvent()
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	if m.loading {
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// submit sends the input line. Sending stays disabled until the
// conversation is loaded.
func (m *Model) submit() tea.Cmd {
	text := m.input.Value()
	if _, ok := chat.NormalizeText(text); !ok {
		return nil
	}
	if !m.ready {
		return nil
	}
	m.input.Reset()
	m.session.SetDraft("")
	m.inFlight++
	return m.send(text)
}

// refresh re-renders the conversation and scrolls to the newest message.
func (m *Model) refresh() {
	content := RenderMessages(m.session.Messages(), RenderOptions{
		LocalUser: m.cfg.LocalUser,
		PeerName:  m.cfg.PeerName,
		Width:     m.viewport.Width,
		Location:  m.cfg.Location,
	})
	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}

func (m *Model) View() string {
	return m.header() + "\n" + m.viewport.View() + "\n\n" + m.input.View() + "\n" + m.status()
}

func (m *Model) header() string {
	title := headerStyle.Render("Chat with " + peerLabel(m.cfg.PeerName, m.cfg.RemoteUser))
	if m.loading {
		return title + " " + m.spinner.View()
	}
	return title
}

func (m *Model) status() string {
	switch {
	case m.lastErr != nil && !m.ready:
		return errorStyle.Render(fmt.Sprintf("could not load conversation: %v", m.lastErr)) +
			statusStyle.Render(" ("+keys.Retry.Help().Key+" to retry)")
	case m.lastErr != nil:
		return errorStyle.Render(fmt.Sprintf("message not sent: %v", m.lastErr))
	case !m.ready:
		return statusStyle.Render("connecting…")
	case m.inFlight > 0:
		return statusStyle.Render("sending…")
	default:
		return statusStyle.Render(keys.Send.Help().Key + " " + keys.Send.Help().Desc + " · " + keys.Quit.Help().Key + " " + keys.Quit.Help().Desc)
	}
}

// Ready reports whether sending is enabled.
func (m *Model) Ready() bool { return m.ready }
