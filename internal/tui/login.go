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

type authDoneMsg struct{ err error }

const (
	fieldUsername = iota
	fieldPassword
	fieldCondition
)

// loginView is the login/register form.
type loginView struct {
	mode      service.AuthMode
	username  textinput.Model
	password  textinput.Model
	condition int // 0 = assigned by the server, otherwise index+1 into AllConditions
	field     int
	busy      bool
	err       string
}

func newLoginView() loginView {
	user := textinput.New()
	user.Placeholder = "username"
	user.CharLimit = service.MaxUsernameLen
	user.Focus()

	pass := textinput.New()
	pass.Placeholder = "password"
	pass.EchoMode = textinput.EchoPassword

	return loginView{username: user, password: pass}
}

func (v loginView) fields() int {
	if v.mode == service.ModeRegister {
		return 3
	}
	return 2
}

func (v *loginView) setField(f int) tea.Cmd {
	v.field = (f + v.fields()) % v.fields()
	v.username.Blur()
	v.password.Blur()
	switch v.field {
	case fieldUsername:
		return v.username.Focus()
	case fieldPassword:
		return v.password.Focus()
	}
	return nil
}

func (v loginView) credentials() service.Credentials {
	cr := service.Credentials{
		Mode:     v.mode,
		Username: v.username.Value(),
		Password: v.password.Value(),
	}
	if v.mode == service.ModeRegister && v.condition > 0 {
		cr.Condition = models.AllConditions()[v.condition-1].ID()
	}
	return cr
}

func (m Model) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	v := &m.login

	switch msg := msg.(type) {
	case authDoneMsg:
		v.busy = false
		if msg.err != nil {
			var fe *service.FormError
			if errors.As(msg.err, &fe) {
				v.err = fe.Message
			} else {
				v.err = msg.err.Error()
			}
			return m, nil
		}
		m.chat = newChatView()
		m.chat.loading = true
		m.deps.Services.Chat.Reset()
		m.screen = screenChat
		return m, m.loadChat()

	case tea.KeyPressMsg:
		if v.busy {
			return m, nil
		}
		switch msg.String() {
		case "esc":
			return m, tea.Quit
		case "tab", "down":
			cmd := v.setField(v.field + 1)
			return m, cmd
		case "shift+tab", "up":
			cmd := v.setField(v.field - 1)
			return m, cmd
		case "ctrl+t":
			if v.mode == service.ModeLogin {
				v.mode = service.ModeRegister
			} else {
				v.mode = service.ModeLogin
			}
			v.err = ""
			cmd := v.setField(v.field)
			return m, cmd
		case "left", "right":
			if v.field == fieldCondition {
				n := len(models.AllConditions()) + 1
				if msg.String() == "left" {
					v.condition = (v.condition + n - 1) % n
				} else {
					v.condition = (v.condition + 1) % n
				}
				return m, nil
			}
		case "enter":
			cr := v.credentials()
			if err := cr.Validate(); err != nil {
				v.err = err.Error()
				return m, nil
			}
			v.busy = true
			v.err = ""
			auth := m.deps.Services.Auth
			return m, func() tea.Msg {
				_, err := auth.Submit(context.Background(), cr)
				return authDoneMsg{err: err}
			}
		}
	}

	var cmd tea.Cmd
	switch v.field {
	case fieldUsername:
		v.username, cmd = v.username.Update(msg)
	case fieldPassword:
		v.password, cmd = v.password.Update(msg)
	}
	return m, cmd
}

func (m Model) viewLogin() string {
	v := m.login
	t := m.theme
	var b strings.Builder

	title := "Log in"
	other := "register"
	if v.mode == service.ModeRegister {
		title, other = "Create an account", "log in"
	}
	b.WriteString(t.titleStyle().Render(title) + "\n\n")

	label := func(f int, name string) string {
		if v.field == f {
			return t.selectedStyle().Render("> " + name)
		}
		return "  " + name
	}
	b.WriteString(label(fieldUsername, "Username") + "\n  " + v.username.View() + "\n\n")
	b.WriteString(label(fieldPassword, "Password") + "\n  " + v.password.View() + "\n")

	if v.mode == service.ModeRegister {
		cond := "assigned by the study"
		if v.condition > 0 {
			cond = models.AllConditions()[v.condition-1].Label()
		}
		b.WriteString("\n" + label(fieldCondition, "Condition") + fmt.Sprintf("\n  ‹ %s ›\n", cond))
	}

	if v.busy {
		b.WriteString("\n" + t.statusStyle().Render("Please wait...") + "\n")
	}
	if v.err != "" {
		b.WriteString("\n" + t.errorStyle().Render(v.err) + "\n")
	}
	b.WriteString("\n" + t.hintStyle().Render(fmt.Sprintf("enter submit · tab next field · ctrl+t %s instead · esc quit", other)))
	return b.String()
}
