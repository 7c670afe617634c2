package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"charm.land/bubbles/v2/progress"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/raphaelgruber/companion/internal/models"
	"github.com/raphaelgruber/companion/internal/service"
)

type (
	surveyLoadedMsg struct {
		survey *service.Survey
		err    error
	}
	surveyDoneMsg struct {
		sessionID string
		err       error
	}
	surveyCancelMsg struct{}
)

// surveyView asks a checkpoint survey one question at a time.
type surveyView struct {
	svc        *service.SurveyService
	survey     *service.Survey
	index      int
	input      textinput.Model
	bar        progress.Model
	err        string
	loadErr    string
	submitting bool
}

func newSurveyView(svc *service.SurveyService) surveyView {
	in := textinput.New()
	in.Placeholder = "your answer"
	in.Focus()
	return surveyView{
		svc:   svc,
		input: in,
		bar: progress.New(
			progress.WithDefaultBlend(),
			progress.WithWidth(40),
		),
	}
}

func (v surveyView) load() tea.Cmd {
	svc := v.svc
	return func() tea.Msg {
		sv, err := svc.Load(context.Background(), "", "")
		return surveyLoadedMsg{survey: sv, err: err}
	}
}

func (v *surveyView) setSurvey(sv *service.Survey) {
	v.survey = sv
	v.show(0)
}

// show moves to question i and pre-fills its current answer.
func (v *surveyView) show(i int) {
	v.index = i
	v.input.SetValue("")
	if v.survey == nil || i >= len(v.survey.Questions) {
		return
	}
	q := v.survey.Questions[i]
	v.input.SetValue(v.survey.AnswerFor(q.QuestionID).String())
	v.input.CursorEnd()
}

func (v surveyView) update(msg tea.Msg) (surveyView, tea.Cmd) {
	switch msg := msg.(type) {
	case surveyLoadedMsg:
		if msg.err != nil {
			v.loadErr = msg.err.Error()
			return v, nil
		}
		v.setSurvey(msg.survey)
		return v, nil

	case tea.KeyPressMsg:
		if v.submitting {
			return v, nil
		}
		if msg.String() == "esc" {
			return v, func() tea.Msg { return surveyCancelMsg{} }
		}
		if v.survey == nil || len(v.survey.Questions) == 0 {
			return v, nil
		}

		switch msg.String() {
		case "shift+tab", "ctrl+p":
			if v.index > 0 {
				v.err = ""
				v.show(v.index - 1)
			}
			return v, nil
		case "enter":
			return v.submitAnswer()
		}
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v surveyView) submitAnswer() (surveyView, tea.Cmd) {
	q := v.survey.Questions[v.index]
	if err := v.survey.Answer(q.QuestionID, v.input.Value()); err != nil {
		v.err = err.Error()
		return v, nil
	}
	v.err = ""

	if v.index < len(v.survey.Questions)-1 {
		v.show(v.index + 1)
		return v, nil
	}

	if missing := v.survey.Missing(); len(missing) > 0 {
		v.err = service.ErrIncomplete.Error()
		v.show(slices.IndexFunc(v.survey.Questions, func(q models.SurveyQuestion) bool {
			return q.QuestionID == missing[0]
		}))
		return v, nil
	}

	v.submitting = true
	svc, sv := v.svc, v.survey
	return v, func() tea.Msg {
		id, err := svc.Complete(context.Background(), sv)
		return surveyDoneMsg{sessionID: id, err: err}
	}
}

// handleDone keeps the form open when the survey turned out incomplete.
func (v surveyView) handleDone(msg surveyDoneMsg) (surveyView, bool) {
	v.submitting = false
	var inc *service.IncompleteError
	if errors.As(msg.err, &inc) && len(inc.QuestionIDs) > 0 {
		v.err = inc.Error()
		v.show(slices.IndexFunc(v.survey.Questions, func(q models.SurveyQuestion) bool {
			return q.QuestionID == inc.QuestionIDs[0]
		}))
		return v, true
	}
	return v, false
}

func (v surveyView) view(t Theme) string {
	var b strings.Builder
	b.WriteString(t.titleStyle().Render("Checkpoint survey") + "\n\n")

	switch {
	case v.loadErr != "":
		b.WriteString(t.errorStyle().Render("Could not load the survey: "+v.loadErr) + "\n")
		b.WriteString("\n" + t.hintStyle().Render("esc back"))
		return b.String()
	case v.survey == nil:
		b.WriteString(t.hintStyle().Render("Loading survey...") + "\n")
		return b.String()
	case len(v.survey.Questions) == 0:
		b.WriteString("This survey has no questions.\n")
		b.WriteString("\n" + t.hintStyle().Render("esc back"))
		return b.String()
	}

	answered, total := v.survey.Progress()
	b.WriteString(fmt.Sprintf("%s %d/%d answered\n\n", v.bar.ViewAs(float64(answered)/float64(total)), answered, total))

	q := v.survey.Questions[v.index]
	req := ""
	if q.Required {
		req = t.errorStyle().Render(" *")
	}
	b.WriteString(t.statusStyle().Render(fmt.Sprintf("Question %d of %d", v.index+1, total)) + "\n")
	b.WriteString(q.QuestionText + req + "\n\n")

	switch q.QuestionType {
	case models.QuestionMCQ, models.QuestionLikert:
		for i, opt := range q.Options {
			b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, opt))
		}
		b.WriteString("\n")
	case models.QuestionRating:
		lo, hi := q.RatingRange()
		b.WriteString(t.hintStyle().Render(fmt.Sprintf("  Rate from %d to %d", lo, hi)) + "\n\n")
	case models.QuestionYesNo:
		b.WriteString(t.hintStyle().Render("  yes / no") + "\n\n")
	}

	b.WriteString(v.input.View() + "\n")
	if v.err != "" {
		b.WriteString("\n" + t.errorStyle().Render(v.err) + "\n")
	}

	hints := "enter next · shift+tab previous · esc cancel"
	if v.index == total-1 {
		hints = "enter submit · shift+tab previous · esc cancel"
	}
	if v.submitting {
		hints = "Submitting..."
	}
	b.WriteString("\n" + t.hintStyle().Render(hints))
	return b.String()
}

// ============================================================================
// Embedded in the chat client
// ============================================================================

func (m Model) updateSurvey(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case surveyCancelMsg:
		return m.toChat()

	case surveyDoneMsg:
		var kept bool
		if m.survey, kept = m.survey.handleDone(msg); kept {
			return m, nil
		}
		if msg.err != nil {
			next, focus := m.toChat()
			next, status := next.setStatus("Could not start a new session: "+msg.err.Error(), true)
			return next, tea.Batch(focus, status)
		}
		m.deps.Services.Chat.Reset()
		m.chat = newChatView()
		m.chat.loading = true
		m.screen = screenChat
		next, status := m.setStatus("Thank you! A new session has started.", false)
		return next, tea.Batch(next.loadChat(), status)
	}

	var cmd tea.Cmd
	m.survey, cmd = m.survey.update(msg)
	return m, cmd
}

// ============================================================================
// Standalone
// ============================================================================

// surveyProgram runs a single survey outside the chat client.
type surveyProgram struct {
	view      surveyView
	theme     Theme
	sessionID string
	err       error
}

func (p surveyProgram) Init() tea.Cmd { return nil }

func (p surveyProgram) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" {
			return p, tea.Quit
		}
	case surveyCancelMsg:
		return p, tea.Quit
	case surveyDoneMsg:
		var kept bool
		if p.view, kept = p.view.handleDone(msg); kept {
			return p, nil
		}
		p.sessionID, p.err = msg.sessionID, msg.err
		return p, tea.Quit
	}

	var cmd tea.Cmd
	p.view, cmd = p.view.update(msg)
	return p, cmd
}

func (p surveyProgram) View() tea.View {
	return tea.NewView(p.view.view(p.theme) + "\n")
}

// RunSurvey asks sv interactively and returns the new session id, or "" if
// the user cancelled.
func RunSurvey(svc *service.SurveyService, sv *service.Survey) (string, error) {
	view := newSurveyView(svc)
	view.setSurvey(sv)

	final, err := tea.NewProgram(surveyProgram{view: view, theme: defaultTheme}).Run()
	if err != nil {
		return "", fmt.Errorf("survey UI error: %w", err)
	}
	p, ok := final.(surveyProgram)
	if !ok {
		return "", nil
	}
	return p.sessionID, p.err
}
