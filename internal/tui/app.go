// Package tui implements the interactive terminal client: login, chat,
// memory review, developer panel and checkpoint surveys.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/raphaelgruber/companion/internal/metrics"
	"github.com/raphaelgruber/companion/internal/service"
	"github.com/raphaelgruber/companion/internal/state"
)

// Deps is what the interactive client needs from the rest of the program.
type Deps struct {
	Services  *service.Services
	Session   *state.Session
	Collector *metrics.Collector
	Logger    *slog.Logger
}

type screen int

const (
	screenLogin screen = iota
	screenChat
	screenMemory
	screenDev
	screenSurvey
)

// Messages produced by background commands.
type (
	loadedMsg struct {
		err      error
		complete bool
	}
	tutorialMsg    struct{ tutorial state.Tutorial }
	newSessionMsg  struct{ err error }
	statusClearMsg struct{ seq int }
)

const statusTTL = 4 * time.Second

// Model is the root bubbletea model; it routes input to the active screen.
type Model struct {
	deps   Deps
	theme  Theme
	screen screen
	width  int
	height int

	login  loginView
	chat   chatView
	memory memoryView
	dev    devView
	survey surveyView

	tutorial  state.Tutorial
	status    string
	statusErr bool
	statusSeq int
}

// New creates the root model. Without a stored login it starts on the login
// screen.
func New(deps Deps) Model {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	m := Model{
		deps:   deps,
		theme:  defaultTheme,
		login:  newLoginView(),
		chat:   newChatView(),
		memory: newMemoryView(),
		dev:    newDevView(),
	}
	if deps.Session.LoggedIn() {
		m.screen = screenChat
		m.chat.loading = true
	}
	return m
}

// Init loads the chat screen when already logged in.
func (m Model) Init() tea.Cmd {
	if m.screen == screenChat {
		return m.loadChat()
	}
	return nil
}

// Update handles messages and returns the updated model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.chat.input.SetWidth(max(msg.Width-4, 20))
		return m, nil

	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.tutorial != state.TutorialNone {
			return m.dismissTutorial()
		}

	case loadedMsg:
		m.chat.loading = false
		if msg.err != nil {
			return m.toLogin(msg.err)
		}
		if !msg.complete {
			return m, nil
		}
		t := m.deps.Services.Chat.PendingTutorial()
		if t == state.TutorialNone {
			return m, nil
		}
		return m, revealTutorial(t, service.TutorialDelay)

	case tutorialMsg:
		if m.screen != screenChat {
			return m, nil
		}
		if err := m.deps.Services.Chat.ShowTutorial(msg.tutorial); err != nil {
			m.deps.Logger.Warn("mark tutorial seen failed", "error", err)
		}
		m.tutorial = msg.tutorial
		return m, nil

	case sentMsg:
		m.chat.input.Focus()
		return m, nil

	case savedMsg:
		m.chat.saving = false
		if msg.err != nil {
			return m.setStatus(msg.err.Error(), true)
		}
		return m.setStatus("Saved to memory.", false)

	case newSessionMsg:
		if msg.err != nil {
			return m.setStatus(fmt.Sprintf("Could not start a new session: %v", msg.err), true)
		}
		m.chat.selected = -1
		return m.setStatus("Started a new session.", false)

	case statusClearMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil
	}

	switch m.screen {
	case screenLogin:
		return m.updateLogin(msg)
	case screenMemory:
		return m.updateMemory(msg)
	case screenDev:
		return m.updateDev(msg)
	case screenSurvey:
		return m.updateSurvey(msg)
	default:
		return m.updateChat(msg)
	}
}

// View renders the active screen.
func (m Model) View() tea.View {
	var body string
	switch m.screen {
	case screenLogin:
		body = m.viewLogin()
	case screenMemory:
		body = m.viewMemory()
	case screenDev:
		body = m.viewDev()
	case screenSurvey:
		body = m.survey.view(m.theme)
	default:
		body = m.viewChat()
	}

	if m.tutorial != state.TutorialNone {
		body += "\n\n" + m.theme.overlayStyle().Render(tutorialText(m.tutorial))
	}
	if m.status != "" {
		style := m.theme.successStyle()
		if m.statusErr {
			style = m.theme.errorStyle()
		}
		body += "\n" + style.Render(m.status)
	}

	v := tea.NewView(body + "\n")
	v.AltScreen = true
	return v
}

// ============================================================================
// Navigation
// ============================================================================

func (m Model) loadChat() tea.Cmd {
	chat := m.deps.Services.Chat
	return func() tea.Msg {
		err := chat.Load(context.Background())
		return loadedMsg{err: err, complete: chat.Loaded()}
	}
}

func (m Model) toChat() (Model, tea.Cmd) {
	m.screen = screenChat
	cmd := m.chat.input.Focus()
	return m, cmd
}

func (m Model) toLogin(err error) (Model, tea.Cmd) {
	m.screen = screenLogin
	m.tutorial = state.TutorialNone
	m.login = newLoginView()
	if err != nil && !errors.Is(err, service.ErrNotLoggedIn) {
		m.login.err = err.Error()
	}
	return m, nil
}

func (m Model) setStatus(text string, isErr bool) (Model, tea.Cmd) {
	m.statusSeq++
	m.status, m.statusErr = text, isErr
	seq := m.statusSeq
	return m, tea.Tick(statusTTL, func(time.Time) tea.Msg { return statusClearMsg{seq: seq} })
}

// ============================================================================
// Tutorials
// ============================================================================

func revealTutorial(t state.Tutorial, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg { return tutorialMsg{tutorial: t} })
}

func (m Model) dismissTutorial() (Model, tea.Cmd) {
	shown := m.tutorial
	m.tutorial = state.TutorialNone
	if next := m.deps.Services.Chat.NextTutorial(shown); next != state.TutorialNone {
		return m, revealTutorial(next, service.ChainedTutorialDelay)
	}
	return m, nil
}

func tutorialText(t state.Tutorial) string {
	switch t {
	case state.TutorialMenu:
		return strings.Join([]string{
			"Welcome!",
			"",
			"ctrl+r  review what the companion remembers",
			"ctrl+n  start a new session",
			"ctrl+k  answer a checkpoint survey",
			"ctrl+d  developer panel",
			"",
			"Press any key to continue.",
		}, "\n")
	case state.TutorialChat:
		return strings.Join([]string{
			"Chatting",
			"",
			"Type a message and press enter to send it.",
			"The banner above explains how your memories are handled.",
			"\"Memory (n)\" shows how many memory candidates this session has.",
			"",
			"Press any key to continue.",
		}, "\n")
	}
	return ""
}

// Run starts the interactive client and blocks until it exits.
func Run(deps Deps) error {
	p := tea.NewProgram(New(deps))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("interactive UI error: %w", err)
	}
	return nil
}
