// Package tui is the terminal front end of a chat session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/janhq/support-chat/internal/client"
	"github.com/janhq/support-chat/internal/domain/chat"
)

const (
	inputHeight  = 3
	chromeHeight = 4
	bubbleRatio  = 0.75
)

type stateMsg client.State

type sendDoneMsg struct {
	text string
	err  error
}

type authDoneMsg struct {
	action string
	err    error
}

// Model renders a client.Session and feeds it user input.
type Model struct {
	ctx     context.Context
	session *client.Session
	auth    client.Authenticator
	log     zerolog.Logger

	updates     chan client.State
	unsubscribe func()

	input    textarea.Model
	viewport viewport.Model
	state    client.State
	status   string
	width    int
	height   int
}

// New builds the model. auth may be nil, in which case sign in is unavailable.
func New(ctx context.Context, session *client.Session, auth client.Authenticator, log zerolog.Logger) *Model {
	ta := textarea.New()
	ta.Placeholder = "Message"
	ta.Focus()
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(inputHeight)
	ta.SetWidth(80)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "shift+enter"))

	m := &Model{
		ctx:      ctx,
		session:  session,
		auth:     auth,
		log:      log.With().Str("component", "tui").Logger(),
		updates:  make(chan client.State, 1),
		input:    ta,
		viewport: viewport.New(80, 20),
		state:    session.State(),
		width:    80,
		height:   24,
	}
	m.unsubscribe = session.Subscribe(m.deliver)
	m.renderConversation()
	return m
}

// deliver keeps only the newest state so a slow renderer never blocks the session.
func (m *Model) deliver(state client.State) {
	for {
		select {
		case m.updates <- state:
			return
		default:
		}
		select {
		case <-m.updates:
		default:
		}
	}
}

func (m *Model) waitForState() tea.Msg {
	state, ok := <-m.updates
	if !ok {
		return nil
	}
	return stateMsg(state)
}

// Close detaches the model from the session.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForState)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case stateMsg:
		m.state = client.State(msg)
		m.renderConversation()
		return m, m.waitForState

	case sendDoneMsg:
		switch {
		case errors.Is(msg.err, client.ErrBusy):
			if m.input.Value() == "" {
				m.input.SetValue(msg.text)
			}
			m.status = "Still answering the previous message."
		case msg.err != nil:
			m.status = "The last message failed."
		}
		return m, nil

	case authDoneMsg:
		if msg.err != nil {
			m.log.Warn().Err(msg.err).Str("action", msg.action).Msg("authentication failed")
			m.status = fmt.Sprintf("%s failed.", msg.action)
		} else {
			m.status = ""
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.Close()
			return m, tea.Quit
		case "enter":
			return m, m.send()
		case "ctrl+s":
			return m, m.authAction("Sign in", func(ctx context.Context) error { return m.auth.SignIn(ctx) })
		case "ctrl+o":
			return m, m.authAction("Sign out", func(ctx context.Context) error { return m.auth.SignOut(ctx) })
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) send() tea.Cmd {
	text := m.input.Value()
	// m.state may lag the session, so ask it directly.
	if chat.IsBlank(text) || m.session.State().Loading {
		return nil
	}
	m.input.Reset()
	m.status = ""
	ctx := m.ctx
	return func() tea.Msg {
		err := m.session.Send(ctx, text)
		if errors.Is(err, client.ErrBusy) {
			return sendDoneMsg{text: text, err: err}
		}
		return sendDoneMsg{err: err}
	}
}

func (m *Model) authAction(action string, fn func(context.Context) error) tea.Cmd {
	if m.auth == nil {
		m.status = "Sign in is not configured."
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		return authDoneMsg{action: action, err: fn(ctx)}
	}
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.input.SetWidth(width)
	m.viewport.Width = width
	m.viewport.Height = max(height-inputHeight-chromeHeight, 1)
	m.renderConversation()
}

func (m *Model) renderConversation() {
	bubbleWidth := max(int(float64(m.width)*bubbleRatio), 10)
	var b strings.Builder
	for i, turn := range m.state.Conversation {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(renderTurn(turn, m.width, bubbleWidth))
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// renderTurn places assistant turns on the left and user turns on the right.
func renderTurn(turn chat.Turn, width, bubbleWidth int) string {
	content := turn.Content
	if content == "" {
		content = "…"
	}
	if turn.Role == chat.RoleUser {
		bubble := userBubble.MaxWidth(bubbleWidth).Width(min(lipgloss.Width(content)+2, bubbleWidth-2)).Render(content)
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, bubble)
	}
	bubble := assistantBubble.MaxWidth(bubbleWidth).Width(min(lipgloss.Width(content)+2, bubbleWidth-2)).Render(content)
	return lipgloss.PlaceHorizontal(width, lipgloss.Left, bubble)
}

func (m *Model) header() string {
	if m.state.Identity == nil {
		return titleStyle.Render("Support chat") + "  " + dimStyle.Render("not signed in")
	}
	return titleStyle.Render(fmt.Sprintf("Hello, %s!", m.state.Identity.DisplayName()))
}

func (m *Model) footer() string {
	send := "Send"
	if m.state.Loading {
		send = "Sending..."
	}
	account := []string{"ctrl+s", "Sign In"}
	if m.state.Identity != nil {
		account = []string{"ctrl+o", "Sign Out"}
	}
	parts := append([]string{"enter", send, "alt+enter", "Newline"}, account...)
	parts = append(parts, "ctrl+c", "Quit")
	footer := formatFooter(parts...)
	if m.status != "" {
		footer += "  " + errorStyle.Render(m.status)
	}
	return footer
}

func (m *Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		m.viewport.View(),
		m.input.View(),
		m.footer(),
	)
}
