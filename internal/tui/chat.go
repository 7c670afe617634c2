package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/raphaelgruber/companion/internal/models"
	"github.com/raphaelgruber/companion/internal/service"
)

type (
	sentMsg  struct{ err error }
	savedMsg struct{ err error }
)

// chatView is the main screen.
type chatView struct {
	input    textinput.Model
	selected int // transcript index of the highlighted user message, -1 for none
	loading  bool
	saving   bool
}

func newChatView() chatView {
	in := textinput.New()
	in.Placeholder = "Type a message..."
	in.Focus()
	return chatView{input: in, selected: -1}
}

func (m Model) updateChat(msg tea.Msg) (tea.Model, tea.Cmd) {
	chat := m.deps.Services.Chat
	v := &m.chat

	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "esc":
			if v.selected >= 0 {
				v.selected = -1
				return m, nil
			}
			return m, tea.Quit
		case "enter":
			return m.send()
		case "up":
			v.selected = prevUserMessage(chat.Transcript(), v.selected)
			return m, nil
		case "down":
			v.selected = nextUserMessage(chat.Transcript(), v.selected)
			return m, nil
		case "ctrl+s":
			return m.saveSelected()
		case "ctrl+r":
			m.screen = screenMemory
			m.memory = newMemoryView()
			return m, m.openMemory()
		case "ctrl+d":
			m.screen = screenDev
			m.dev = newDevView()
			return m, nil
		case "ctrl+k":
			m.screen = screenSurvey
			m.survey = newSurveyView(m.deps.Services.Survey)
			return m, m.survey.load()
		case "ctrl+n":
			if chat.Sending() {
				return m, nil
			}
			return m, func() tea.Msg {
				_, err := chat.NewSession(context.Background())
				return newSessionMsg{err: err}
			}
		case "ctrl+l":
			if err := m.deps.Services.Auth.Logout(); err != nil {
				return m.setStatus(err.Error(), true)
			}
			chat.Reset()
			return m.toLogin(nil)
		}
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return m, cmd
}

func (m Model) send() (tea.Model, tea.Cmd) {
	chat := m.deps.Services.Chat
	p, err := chat.BeginSend(m.chat.input.Value())
	switch {
	case errors.Is(err, service.ErrEmptyMessage), errors.Is(err, service.ErrSendInFlight):
		return m, nil
	case errors.Is(err, service.ErrNotLoggedIn):
		return m.toLogin(err)
	case err != nil:
		return m.setStatus(err.Error(), true)
	}

	m.chat.input.SetValue("")
	m.chat.input.Blur()
	m.chat.selected = -1
	return m, func() tea.Msg {
		return sentMsg{err: chat.CompleteSend(context.Background(), p)}
	}
}

func (m Model) saveSelected() (tea.Model, tea.Cmd) {
	chat := m.deps.Services.Chat
	if !chat.CanSaveMessages() || m.chat.saving {
		return m, nil
	}
	idx := m.chat.selected
	if idx < 0 {
		idx = prevUserMessage(chat.Transcript(), -1)
	}
	if idx < 0 {
		return m, nil
	}
	m.chat.saving = true
	return m, func() tea.Msg {
		return savedMsg{err: chat.SaveToMemory(context.Background(), idx)}
	}
}

// prevUserMessage returns the user message before from, wrapping to the last
// one when from is -1.
func prevUserMessage(tr []models.Message, from int) int {
	start := len(tr) - 1
	if from >= 0 {
		start = from - 1
	}
	for i := start; i >= 0; i-- {
		if tr[i].Role == models.RoleUser {
			return i
		}
	}
	return from
}

func nextUserMessage(tr []models.Message, from int) int {
	if from < 0 {
		return -1
	}
	for i := from + 1; i < len(tr); i++ {
		if tr[i].Role == models.RoleUser {
			return i
		}
	}
	return -1
}

func (m Model) viewChat() string {
	chat := m.deps.Services.Chat
	t := m.theme
	var b strings.Builder

	b.WriteString(t.bannerStyle().Render(chat.Banner()) + "\n\n")

	if m.chat.loading {
		b.WriteString(t.hintStyle().Render("Loading conversation...") + "\n")
	}

	canSave := chat.CanSaveMessages()
	var lines []string
	for i, msg := range chat.Transcript() {
		user := msg.Role == models.RoleUser
		who := "Companion"
		if user {
			who = "You"
		}
		lines = append(lines, t.roleStyle(user).Render(who+":")+" "+msg.Content)
		if user && canSave && i == m.chat.selected {
			lines = append(lines, t.selectedStyle().Render("  ↳ Save memory (ctrl+s)"))
		}
	}
	if chat.Sending() {
		lines = append(lines, t.hintStyle().Render("Companion is typing..."))
	}
	if len(lines) == 0 && !m.chat.loading {
		lines = append(lines, t.hintStyle().Render("Say hello to start the conversation."))
	}
	b.WriteString(strings.Join(tail(lines, m.transcriptRows()), "\n") + "\n\n")

	if chat.Sending() {
		b.WriteString(t.hintStyle().Render("  waiting for reply...") + "\n")
	} else {
		b.WriteString(m.chat.input.View() + "\n")
	}

	badge := t.badgeStyle().Render(fmt.Sprintf("Memory (%d)", chat.CandidateCount()))
	hints := "enter send · ctrl+r memory · ctrl+n new session · ctrl+k survey · ctrl+d dev · ctrl+l logout · ctrl+c quit"
	if canSave {
		hints = "↑/↓ pick message · ctrl+s save memory · " + hints
	}
	b.WriteString("\n" + badge + "  " + t.hintStyle().Render(hints))
	return b.String()
}

// transcriptRows is how many transcript lines fit on screen.
func (m Model) transcriptRows() int {
	if m.height == 0 {
		return 0
	}
	return max(m.height-10, 3)
}

// tail returns the last n lines, or all of them when n is 0.
func tail(lines []string, n int) []string {
	if n <= 0 || len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
