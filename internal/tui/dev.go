package tui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/raphaelgruber/companion/internal/models"
)

type conditionSetMsg struct {
	condition models.Condition
	err       error
}

// devView is the developer panel: a password gate, then the condition list.
type devView struct {
	password textinput.Model
	cursor   int
	busy     bool
	err      string
}

func newDevView() devView {
	pw := textinput.New()
	pw.Placeholder = "developer password"
	pw.EchoMode = textinput.EchoPassword
	pw.Focus()
	return devView{password: pw}
}

func (m Model) updateDev(msg tea.Msg) (tea.Model, tea.Cmd) {
	dev := m.deps.Services.Dev
	v := &m.dev

	switch msg := msg.(type) {
	case conditionSetMsg:
		v.busy = false
		if msg.err != nil {
			v.err = msg.err.Error()
			return m, nil
		}
		v.err = ""
		return m.setStatus(fmt.Sprintf("Condition set to %s.", msg.condition.Label()), false)

	case tea.KeyPressMsg:
		if msg.String() == "esc" {
			return m.toChat()
		}
		if v.busy {
			return m, nil
		}

		if !dev.Unlocked() {
			if msg.String() == "enter" {
				if err := dev.Unlock(v.password.Value()); err != nil {
					v.err = err.Error()
					v.password.SetValue("")
					return m, nil
				}
				v.err = ""
				v.password.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			v.password, cmd = v.password.Update(msg)
			return m, cmd
		}

		conds := dev.Conditions()
		switch msg.String() {
		case "up", "k":
			v.cursor = max(v.cursor-1, 0)
		case "down", "j":
			v.cursor = min(v.cursor+1, len(conds)-1)
		case "l":
			if err := dev.Lock(); err != nil {
				v.err = err.Error()
			}
		case "enter":
			userID := m.deps.Session.Identity().UserID
			c := conds[v.cursor]
			v.busy = true
			return m, func() tea.Msg {
				return conditionSetMsg{condition: c, err: dev.SetCondition(context.Background(), userID, c)}
			}
		}
	}
	return m, nil
}

func (m Model) viewDev() string {
	dev := m.deps.Services.Dev
	t := m.theme
	v := m.dev
	var b strings.Builder

	b.WriteString(t.titleStyle().Render("Developer panel") + "\n\n")

	if !dev.Unlocked() {
		b.WriteString("Enter the developer password to override the study condition.\n\n")
		b.WriteString("  " + v.password.View() + "\n")
		if v.err != "" {
			b.WriteString("\n" + t.errorStyle().Render(v.err) + "\n")
		}
		b.WriteString("\n" + t.hintStyle().Render("enter unlock · esc back"))
		return b.String()
	}

	current := m.deps.Services.Chat.ConditionID()
	for i, c := range dev.Conditions() {
		cursor := "  "
		if i == v.cursor {
			cursor = t.selectedStyle().Render("> ")
		}
		mark := ""
		if c.ID() == current {
			mark = t.badgeStyle().Render(" (current)")
		}
		b.WriteString(fmt.Sprintf("%s%-18s %s%s\n", cursor, c.Label(), c.ID(), mark))
	}
	b.WriteString("\n" + t.hintStyle().Render("Overrides are for testing and may not survive a new login.") + "\n")
	if v.err != "" {
		b.WriteString("\n" + t.errorStyle().Render(v.err) + "\n")
	}

	if m.deps.Collector != nil {
		snap := m.deps.Collector.Snapshot()
		b.WriteString("\n" + t.statusStyle().Render("API calls") + "\n")
		b.WriteString(fmt.Sprintf("  %d calls, %d errors\n", snap.TotalCalls, snap.TotalErrors))
		for _, op := range snap.Operations {
			b.WriteString(fmt.Sprintf("  %-18s %4d  avg %6.1fms  max %5dms\n", op.Operation, op.Count, op.AvgTimeMs, op.MaxTimeMs))
		}
	}

	hints := "↑/↓ choose · enter apply · l lock · esc back"
	if v.busy {
		hints = "Applying..."
	}
	b.WriteString("\n" + t.hintStyle().Render(hints))
	return b.String()
}
