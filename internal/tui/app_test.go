package tui

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/google/uuid"
	"github.com/raphaelgruber/companion/internal/client"
	"github.com/raphaelgruber/companion/internal/config"
	"github.com/raphaelgruber/companion/internal/metrics"
	"github.com/raphaelgruber/companion/internal/models"
	"github.com/raphaelgruber/companion/internal/service"
	"github.com/raphaelgruber/companion/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testUserID      = uuid.NewString()
	testSessionID   = uuid.NewString()
	testCandidateID = uuid.NewString()
	testSavedID     = uuid.NewString()
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// backend is a minimal stand-in for the REST API. deleted counts memory
// deletions.
func backend(t *testing.T, condition models.Condition, deleted *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /condition/{user}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"condition_id": condition.ID()})
	})
	mux.HandleFunc("PUT /condition/{user}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"condition_id": r.URL.Query().Get("condition_id")})
	})
	mux.HandleFunc("GET /session/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []any{})
	})
	mux.HandleFunc("GET /memory/candidates/{user}/{session}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{{"memory_id": testCandidateID, "text": "likes tea", "is_active": false}})
	})
	mux.HandleFunc("GET /memory/{user}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{
			{"memory_id": testCandidateID, "text": "likes tea", "is_active": false},
			{"memory_id": testSavedID, "text": "has a cat", "is_active": true},
		})
	})
	mux.HandleFunc("DELETE /memory/{id}", func(w http.ResponseWriter, r *http.Request) {
		deleted.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /chat", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"response": "Hello there", "memory_candidates": []any{}})
	})
	mux.HandleFunc("POST /session", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"session_id": uuid.NewString(), "user_id": testUserID})
	})
	mux.HandleFunc("GET /survey/template/{type}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"survey_type": r.PathValue("type"),
			"questions": []map[string]any{
				{"question_id": "trust", "question_text": "How much do you trust the companion?", "question_type": "rating", "min_rating": 1, "max_rating": 5, "required": true},
				{"question_id": "again", "question_text": "Would you use it again?", "question_type": "yes_no", "required": true},
			},
		})
	})
	mux.HandleFunc("POST /survey/submit", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestModel(t *testing.T, condition models.Condition, loggedIn bool) (Model, *state.Session) {
	t.Helper()
	return newModelWithBackend(t, backend(t, condition, new(atomic.Int32)).URL, condition, loggedIn)
}

func newModelWithBackend(t *testing.T, url string, condition models.Condition, loggedIn bool) (Model, *state.Session) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sess := state.NewSession(state.NewMemoryStore())
	if loggedIn {
		require.NoError(t, sess.SaveLogin(
			models.User{UserID: testUserID, Username: "ada", ConditionID: condition.ID()},
			models.Session{SessionID: testSessionID},
		))
	}
	api := client.New(url, client.WithLogger(logger))
	cfg := config.Config{Environment: config.EnvProduction, DevPassword: "dev123"}

	return New(Deps{
		Services:  service.New(cfg, api, sess, logger),
		Session:   sess,
		Collector: metrics.NewCollector(),
		Logger:    logger,
	}), sess
}

func press(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func typed(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func ctrl(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Mod: tea.ModCtrl}
}

// step feeds msg to m and returns the new model.
func step(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func TestStartsOnLoginWithoutIdentity(t *testing.T) {
	m, _ := newTestModel(t, models.SessionAuto, false)
	assert.Equal(t, screenLogin, m.screen)
	assert.Nil(t, m.Init())
	assert.Contains(t, m.viewLogin(), "Log in")

	m, _ = step(t, m, ctrl('t'))
	assert.Equal(t, service.ModeRegister, m.login.mode)
	assert.Contains(t, m.viewLogin(), "Condition")
}

func TestLoginValidationIsInline(t *testing.T) {
	m, _ := newTestModel(t, models.SessionAuto, false)
	m.login.username.SetValue("ab")
	m.login.password.SetValue("password")

	m, cmd := step(t, m, press(tea.KeyEnter))
	assert.Nil(t, cmd)
	assert.Contains(t, m.login.err, "Username must be between")
	assert.False(t, m.login.busy)
}

func TestChatLoadShowsBannerAndBadge(t *testing.T) {
	m, _ := newTestModel(t, models.PersistentUser, true)
	require.Equal(t, screenChat, m.screen)

	cmd := m.Init()
	require.NotNil(t, cmd)
	m, next := step(t, m, cmd())
	assert.NotNil(t, next, "first tutorial is scheduled")

	view := m.viewChat()
	assert.Contains(t, view, "choose which information to save")
	assert.Contains(t, view, "Memory (1)")
}

func TestTutorialOverlayChains(t *testing.T) {
	m, sess := newTestModel(t, models.SessionAuto, true)

	m, _ = step(t, m, tutorialMsg{tutorial: state.TutorialMenu})
	assert.Equal(t, state.TutorialMenu, m.tutorial)
	assert.True(t, sess.TutorialSeen(state.TutorialMenu))

	m, cmd := step(t, m, press(tea.KeyEnter))
	assert.Equal(t, state.TutorialNone, m.tutorial)
	assert.NotNil(t, cmd, "chat tutorial follows the menu tutorial")

	m, _ = step(t, m, tutorialMsg{tutorial: state.TutorialChat})
	m, cmd = step(t, m, press(tea.KeyEnter))
	assert.Nil(t, cmd)
	assert.True(t, sess.TutorialSeen(state.TutorialChat))
	assert.Empty(t, m.chat.input.Value(), "dismissing a tutorial does not type into the input")
}

func TestSendFromChat(t *testing.T) {
	m, _ := newTestModel(t, models.PersistentUser, true)
	m.chat.input.SetValue("I like tea")

	m, cmd := step(t, m, press(tea.KeyEnter))
	require.NotNil(t, cmd)
	assert.Empty(t, m.chat.input.Value())
	assert.True(t, m.deps.Services.Chat.Sending())

	m, _ = step(t, m, cmd())
	tr := m.deps.Services.Chat.Transcript()
	require.Len(t, tr, 2)
	assert.Equal(t, "Hello there", tr[1].Content)
	assert.True(t, m.chat.input.Focused())

	m, _ = step(t, m, press(tea.KeyUp))
	assert.Equal(t, 0, m.chat.selected)
	assert.Contains(t, m.viewChat(), "Save memory")
}

func TestNoSaveAffordanceInAutomaticCondition(t *testing.T) {
	m, _ := newTestModel(t, models.SessionAuto, true)
	require.NoError(t, m.deps.Services.Chat.Send(context.Background(), "hello"))

	m, _ = step(t, m, press(tea.KeyUp))
	assert.NotContains(t, m.viewChat(), "Save memory")

	_, cmd := step(t, m, ctrl('s'))
	assert.Nil(t, cmd)
}

func TestDevPanelGate(t *testing.T) {
	m, sess := newTestModel(t, models.SessionAuto, true)
	m, _ = step(t, m, ctrl('d'))
	require.Equal(t, screenDev, m.screen)

	m.dev.password.SetValue("nope")
	m, _ = step(t, m, press(tea.KeyEnter))
	assert.Equal(t, service.ErrWrongPassword.Error(), m.dev.err)
	assert.False(t, sess.DeveloperMode())

	m.dev.password.SetValue("dev123")
	m, _ = step(t, m, press(tea.KeyEnter))
	assert.True(t, sess.DeveloperMode())
	assert.Contains(t, m.viewDev(), "Persistent + User")

	m, _ = step(t, m, press(tea.KeyDown))
	m, cmd := step(t, m, press(tea.KeyEnter))
	require.NotNil(t, cmd)
	m, _ = step(t, m, cmd())
	assert.Equal(t, models.SessionUser, sess.Condition())
	assert.Equal(t, models.SessionUser, m.deps.Services.Chat.Condition())
}

func TestSurveyFlowRotatesSession(t *testing.T) {
	m, sess := newTestModel(t, models.SessionAuto, true)
	m, cmd := step(t, m, ctrl('k'))
	require.Equal(t, screenSurvey, m.screen)
	m, _ = step(t, m, cmd())
	require.NotNil(t, m.survey.survey)

	m.survey.input.SetValue("9")
	m, _ = step(t, m, press(tea.KeyEnter))
	assert.Contains(t, m.survey.err, "between 1 and 5")
	assert.Equal(t, 0, m.survey.index)

	m.survey.input.SetValue("4")
	m, _ = step(t, m, press(tea.KeyEnter))
	assert.Empty(t, m.survey.err)
	assert.Equal(t, 1, m.survey.index)

	m.survey.input.SetValue("")
	m, cmd = step(t, m, press(tea.KeyEnter))
	assert.Nil(t, cmd)
	assert.Equal(t, service.ErrIncomplete.Error(), m.survey.err)

	m.survey.input.SetValue("yes")
	m, cmd = step(t, m, press(tea.KeyEnter))
	require.NotNil(t, cmd)
	assert.True(t, m.survey.submitting)

	m, _ = step(t, m, cmd())
	assert.Equal(t, screenChat, m.screen)
	assert.NotEqual(t, testSessionID, sess.Identity().SessionID, "session rotates even though the submission failed")
	assert.Contains(t, m.status, "new session")
}

func TestFailedLoadSkipsTutorial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"down"}`, http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	m, sess := newModelWithBackend(t, srv.URL, models.SessionAuto, true)
	assert.True(t, m.chat.loading)
	assert.Contains(t, m.viewChat(), "Loading conversation...")

	m, next := step(t, m, m.Init()())
	assert.Nil(t, next, "no tutorial after an incomplete load")
	assert.False(t, m.chat.loading)
	assert.False(t, sess.TutorialSeen(state.TutorialMenu))
	assert.Equal(t, screenChat, m.screen)
}

func TestMemoryPanelAutomaticCondition(t *testing.T) {
	var deleted atomic.Int32
	srv := backend(t, models.SessionAuto, &deleted)
	m, _ := newModelWithBackend(t, srv.URL, models.SessionAuto, true)

	m, cmd := step(t, m, ctrl('r'))
	require.Equal(t, screenMemory, m.screen)
	m, _ = step(t, m, cmd())

	view := m.viewMemory()
	assert.Contains(t, view, "handled automatically")
	assert.NotContains(t, view, "likes tea")
	assert.Contains(t, view, "has a cat")
	require.Len(t, m.memoryRows(), 1)

	m, _ = step(t, m, tea.KeyPressMsg{Code: tea.KeySpace, Text: " "})
	assert.Empty(t, m.deps.Services.Memory.Selected())

	m, _ = step(t, m, typed('d'))
	assert.Equal(t, testSavedID, m.deps.Services.Memory.PendingDelete())
	assert.Contains(t, m.viewMemory(), "Delete this memory?")

	m, cmd = step(t, m, typed('n'))
	assert.Nil(t, cmd)
	assert.Empty(t, m.deps.Services.Memory.PendingDelete())
	assert.Zero(t, deleted.Load())

	m, _ = step(t, m, typed('d'))
	m, cmd = step(t, m, typed('y'))
	require.NotNil(t, cmd)
	m, _ = step(t, m, cmd())
	assert.Equal(t, int32(1), deleted.Load())
	assert.Equal(t, "Memory deleted.", m.status)

	m, _ = step(t, m, press(tea.KeyEscape))
	assert.Equal(t, screenChat, m.screen)
}

func TestMemoryPanelUserControlledSelects(t *testing.T) {
	m, _ := newTestModel(t, models.PersistentUser, true)
	m, cmd := step(t, m, ctrl('r'))
	m, _ = step(t, m, cmd())

	assert.Contains(t, m.viewMemory(), "[ ] likes tea")
	require.Len(t, m.memoryRows(), 2)

	m, _ = step(t, m, tea.KeyPressMsg{Code: tea.KeySpace, Text: " "})
	assert.True(t, m.deps.Services.Memory.IsSelected(testCandidateID))
	assert.Contains(t, m.viewMemory(), "[x] likes tea")
}
