package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/raphaelgruber/companion/internal/client"
	"github.com/raphaelgruber/companion/internal/models"
	"github.com/raphaelgruber/companion/internal/state"
)

const (
	testUserID    = "user-1"
	testSessionID = "session-1"
)

var errBackend = errors.New("backend unavailable")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// loggedIn returns a session store holding a login in condition c.
func loggedIn(c models.Condition) *state.Session {
	sess := state.NewSession(state.NewMemoryStore())
	_ = sess.SaveLogin(
		models.User{UserID: testUserID, Username: "ada", ConditionID: c.ID()},
		models.Session{SessionID: testSessionID},
	)
	return sess
}

// fakeAPI is an in-memory backend. Fields ending in Err force failures.
type fakeAPI struct {
	mu sync.Mutex

	calls       []string
	conditionID string
	messages    []models.Message
	memories    []models.Memory
	template    models.SurveyTemplate
	submissions []models.SurveySubmission
	reply       models.ChatReply
	sessions    int

	loginErr     error
	sessionErr   error
	conditionErr error
	messagesErr  error
	chatErr      error
	createErr    error
	submitErr    error
	deleteErr    error
	listErr      error
}

func newFakeAPI(c models.Condition) *fakeAPI {
	return &fakeAPI{conditionID: c.ID()}
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeAPI) called(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeAPI) Register(_ context.Context, username, _ string, conditionID string) (*models.User, error) {
	f.record("register")
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	if conditionID == "" {
		conditionID = f.conditionID
	}
	return &models.User{UserID: testUserID, Username: username, ConditionID: conditionID}, nil
}

func (f *fakeAPI) Login(_ context.Context, username, _ string) (*models.User, error) {
	f.record("login")
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.User{UserID: testUserID, Username: username, ConditionID: f.conditionID}, nil
}

func (f *fakeAPI) CreateSession(_ context.Context, userID string) (*models.Session, error) {
	f.record("session.create")
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions++
	return &models.Session{SessionID: fmt.Sprintf("session-%d", f.sessions+1), UserID: userID}, nil
}

func (f *fakeAPI) GetSession(_ context.Context, sessionID string) (*models.Session, error) {
	f.record("session.get")
	return &models.Session{SessionID: sessionID, UserID: testUserID}, nil
}

func (f *fakeAPI) ListUserSessions(context.Context, string) ([]models.Session, error) {
	f.record("session.list")
	return []models.Session{{SessionID: testSessionID, UserID: testUserID}}, nil
}

func (f *fakeAPI) EndSession(_ context.Context, sessionID string) (*models.Session, error) {
	f.record("session.end")
	return &models.Session{SessionID: sessionID}, nil
}

func (f *fakeAPI) ListMessages(context.Context, string) ([]models.Message, error) {
	f.record("session.messages")
	if f.messagesErr != nil {
		return nil, f.messagesErr
	}
	return f.messages, nil
}

func (f *fakeAPI) SendChat(context.Context, string, string, string) (*models.ChatReply, error) {
	f.record("chat.send")
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	reply := f.reply
	return &reply, nil
}

func (f *fakeAPI) ListCandidates(context.Context, string, string) ([]models.Memory, error) {
	f.record("memory.candidates")
	f.mu.Lock()
	defer f.mu.Unlock()
	cands, _ := models.SplitMemories(f.memories)
	return cands, nil
}

func (f *fakeAPI) ListMemories(context.Context, string, string) ([]models.Memory, error) {
	f.record("memory.list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Memory(nil), f.memories...), nil
}

func (f *fakeAPI) CreateMemory(_ context.Context, in models.MemoryInput) (*models.Memory, error) {
	f.record("memory.create")
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m := models.Memory{
		MemoryID:  fmt.Sprintf("mem-new-%d", len(f.memories)),
		UserID:    in.UserID,
		SessionID: in.SessionID,
		Text:      in.Text,
		IsActive:  in.IsActive,
	}
	f.memories = append(f.memories, m)
	return &m, nil
}

func (f *fakeAPI) setActive(id string, text *string) (*models.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.memories {
		if f.memories[i].MemoryID == id {
			if text != nil {
				f.memories[i].Text = *text
			} else {
				f.memories[i].IsActive = true
			}
			m := f.memories[i]
			return &m, nil
		}
	}
	return nil, &client.APIError{StatusCode: http.StatusNotFound, Detail: "Memory not found"}
}

func (f *fakeAPI) ApproveMemory(_ context.Context, id string) (*models.Memory, error) {
	f.record("memory.approve")
	return f.setActive(id, nil)
}

func (f *fakeAPI) UpdateMemory(_ context.Context, id string, u models.MemoryUpdate) (*models.Memory, error) {
	f.record("memory.update")
	return f.setActive(id, u.Text)
}

func (f *fakeAPI) DeleteMemory(_ context.Context, id string) error {
	f.record("memory.delete")
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.memories {
		if f.memories[i].MemoryID == id {
			f.memories = append(f.memories[:i], f.memories[i+1:]...)
			return nil
		}
	}
	return &client.APIError{StatusCode: http.StatusNotFound, Detail: "Memory not found"}
}

func (f *fakeAPI) BatchUpdateMemories(_ context.Context, updates []models.BatchUpdate) (*models.BatchUpdateResult, error) {
	f.record("memory.batch_update")
	res := &models.BatchUpdateResult{}
	for _, u := range updates {
		m, err := f.setActive(u.MemoryID, nil)
		if err != nil {
			continue
		}
		res.Updated++
		res.Memories = append(res.Memories, *m)
	}
	return res, nil
}

func (f *fakeAPI) GetCondition(context.Context, string) (*models.ConditionInfo, error) {
	f.record("condition.get")
	if f.conditionErr != nil {
		return nil, f.conditionErr
	}
	return &models.ConditionInfo{ConditionID: f.conditionID}, nil
}

func (f *fakeAPI) UpdateCondition(_ context.Context, _ string, conditionID string) (*models.ConditionInfo, error) {
	f.record("condition.update")
	if f.conditionErr != nil {
		return nil, f.conditionErr
	}
	f.conditionID = conditionID
	return &models.ConditionInfo{ConditionID: conditionID}, nil
}

func (f *fakeAPI) GetSurveyTemplate(_ context.Context, surveyType string) (*models.SurveyTemplate, error) {
	f.record("survey.template")
	tmpl := f.template
	tmpl.SurveyType = surveyType
	return &tmpl, nil
}

func (f *fakeAPI) SubmitSurvey(_ context.Context, sub models.SurveySubmission) (*models.SurveySubmitResult, error) {
	f.record("survey.submit")
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.mu.Lock()
	f.submissions = append(f.submissions, sub)
	f.mu.Unlock()
	return &models.SurveySubmitResult{ResponseCount: len(sub.Responses)}, nil
}

func (f *fakeAPI) ListSurveyResponses(context.Context, string, string) ([]models.SurveyResponseRecord, error) {
	f.record("survey.responses")
	return nil, nil
}

func candidate(id, text string) models.Memory {
	return models.Memory{MemoryID: id, UserID: testUserID, Text: text}
}

func saved(id, text string) models.Memory {
	return models.Memory{MemoryID: id, UserID: testUserID, Text: text, IsActive: true}
}
