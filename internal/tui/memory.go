package tui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/raphaelgruber/companion/internal/models"
)

type (
	memoryOpenedMsg struct{}
	memoryActionMsg struct {
		done string
		err  error
	}
)

// memoryView is the memory review panel.
type memoryView struct {
	cursor  int
	loading bool
	busy    bool
	editing bool
	editor  textinput.Model
}

func newMemoryView() memoryView {
	ed := textinput.New()
	ed.CharLimit = models.MemoryTextLimit
	return memoryView{loading: true, editor: ed}
}

// rows lists what the cursor moves over: editable candidates, then saved.
func (m Model) memoryRows() []models.Memory {
	review := m.deps.Services.Memory
	return append(review.EditableCandidates(), review.Saved()...)
}

func (m Model) openMemory() tea.Cmd {
	review := m.deps.Services.Memory
	return func() tea.Msg {
		review.Open(context.Background())
		return memoryOpenedMsg{}
	}
}

// memoryAction runs fn in the background and reports done on success.
func memoryAction(done string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return memoryActionMsg{done: done, err: fn(context.Background())}
	}
}

func (m Model) updateMemory(msg tea.Msg) (tea.Model, tea.Cmd) {
	review := m.deps.Services.Memory
	v := &m.memory

	switch msg := msg.(type) {
	case memoryOpenedMsg:
		v.loading = false
		v.cursor = min(v.cursor, max(len(m.memoryRows())-1, 0))
		return m, nil

	case memoryActionMsg:
		v.busy = false
		v.cursor = min(v.cursor, max(len(m.memoryRows())-1, 0))
		if msg.err != nil {
			return m.setStatus(msg.err.Error(), true)
		}
		if msg.done != "" {
			return m.setStatus(msg.done, false)
		}
		return m, nil

	case tea.KeyPressMsg:
		if v.busy {
			return m, nil
		}
		if v.editing {
			return m.updateMemoryEditor(msg)
		}
		if review.PendingDelete() != "" {
			switch msg.String() {
			case "y", "enter":
				v.busy = true
				return m, memoryAction("Memory deleted.", review.ConfirmDelete)
			default:
				review.CancelDelete()
			}
			return m, nil
		}

		rows := m.memoryRows()
		var current *models.Memory
		if v.cursor < len(rows) {
			current = &rows[v.cursor]
		}

		switch msg.String() {
		case "esc", "q":
			return m.toChat()
		case "up", "k":
			v.cursor = max(v.cursor-1, 0)
		case "down", "j":
			v.cursor = min(v.cursor+1, max(len(rows)-1, 0))
		case "space", " ":
			if current != nil && !current.IsActive {
				if _, err := review.ToggleSelect(current.MemoryID); err != nil {
					return m.setStatus(err.Error(), true)
				}
			}
		case "e":
			if current == nil {
				return m, nil
			}
			if err := review.StartEdit(current.MemoryID); err != nil {
				return m.setStatus(err.Error(), true)
			}
			v.editing = true
			v.editor.SetValue(current.Text)
			v.editor.CursorEnd()
			cmd := v.editor.Focus()
			return m, cmd
		case "d", "delete":
			if current == nil {
				return m, nil
			}
			if err := review.RequestDelete(current.MemoryID); err != nil {
				return m.setStatus(err.Error(), true)
			}
		case "a":
			if len(review.Selected()) == 0 {
				return m.setStatus("Select memories with space first.", true)
			}
			v.busy = true
			return m, memoryAction("Selected memories saved.", func(ctx context.Context) error {
				_, err := review.BatchApprove(ctx)
				return err
			})
		case "r":
			v.loading = true
			return m, m.openMemory()
		}
	}
	return m, nil
}

func (m Model) updateMemoryEditor(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	review := m.deps.Services.Memory
	v := &m.memory

	switch msg.String() {
	case "esc":
		review.CancelEdit()
		v.editing = false
		v.editor.Blur()
		return m, nil
	case "enter":
		if err := review.SetEditText(v.editor.Value()); err != nil {
			return m.setStatus(err.Error(), true)
		}
		v.editing = false
		v.editor.Blur()
		v.busy = true
		return m, memoryAction("Memory updated.", review.SaveEdit)
	}

	var cmd tea.Cmd
	v.editor, cmd = v.editor.Update(msg)
	if err := review.SetEditText(v.editor.Value()); err != nil {
		m.deps.Logger.Debug("edit buffer out of sync", "error", err)
	}
	return m, cmd
}

func (m Model) viewMemory() string {
	review := m.deps.Services.Memory
	t := m.theme
	v := m.memory
	var b strings.Builder

	b.WriteString(t.titleStyle().Render("Memory") + "\n")
	b.WriteString(t.hintStyle().Render(m.deps.Services.Chat.Banner()) + "\n\n")
	if v.loading {
		b.WriteString(t.hintStyle().Render("Loading...") + "\n")
	}

	row := 0
	line := func(mem models.Memory, prefix string) {
		text := mem.Text
		if edit, ok := review.Editing(); ok && v.editing && edit.MemoryID == mem.MemoryID {
			text = v.editor.View() + t.hintStyle().Render(fmt.Sprintf(" %d/%d", len([]rune(v.editor.Value())), models.MemoryTextLimit))
		}
		cursor := "  "
		if row == v.cursor {
			cursor = t.selectedStyle().Render("> ")
		}
		b.WriteString(cursor + prefix + text + "\n")
		if review.PendingDelete() == mem.MemoryID {
			b.WriteString(t.errorStyle().Render("    Delete this memory? y to confirm, any other key to cancel") + "\n")
		}
		row++
	}

	cands := review.Candidates()
	b.WriteString(t.statusStyle().Render(fmt.Sprintf("Candidates (%d)", len(cands))) + "\n")
	if review.UserControlled() {
		for _, mem := range review.EditableCandidates() {
			box := "[ ] "
			if review.IsSelected(mem.MemoryID) {
				box = "[x] "
			}
			line(mem, box)
		}
		if len(cands) == 0 {
			b.WriteString(t.hintStyle().Render("  No candidates in this session.") + "\n")
		}
	} else {
		b.WriteString(t.hintStyle().Render("  Candidates are handled automatically in your condition.") + "\n")
	}

	saved := review.Saved()
	b.WriteString("\n" + t.statusStyle().Render(fmt.Sprintf("Saved (%d)", len(saved))) + "\n")
	for _, mem := range saved {
		line(mem, "")
	}
	if len(saved) == 0 {
		b.WriteString(t.hintStyle().Render("  Nothing saved yet.") + "\n")
	}

	hints := "↑/↓ move · e edit · d delete · r reload · esc back"
	if review.UserControlled() {
		hints = "space select · a save selected · " + hints
	}
	if v.editing {
		hints = "enter save · esc cancel"
	}
	if v.busy || review.BatchApproving() {
		hints = "Working..."
	}
	b.WriteString("\n" + t.hintStyle().Render(hints))
	return b.String()
}
