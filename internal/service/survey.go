package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/raphaelgruber/companion/internal/models"
	"github.com/raphaelgruber/companion/internal/state"
)

// Survey is a checkpoint survey being filled in.
type Survey struct {
	SurveyType string
	SessionID  string
	Questions  []models.SurveyQuestion

	answers map[string]models.Answer
}

func newSurvey(tmpl models.SurveyTemplate, surveyType, sessionID string) *Survey {
	s := &Survey{
		SurveyType: surveyType,
		SessionID:  sessionID,
		Questions:  tmpl.Questions,
		answers:    make(map[string]models.Answer, len(tmpl.Questions)),
	}
	for _, q := range tmpl.Questions {
		s.answers[q.QuestionID] = models.EmptyAnswer(q)
	}
	return s
}

func (s *Survey) question(id string) (models.SurveyQuestion, bool) {
	for _, q := range s.Questions {
		if q.QuestionID == id {
			return q, true
		}
	}
	return models.SurveyQuestion{}, false
}

// Answer records raw input for questionID. Empty input clears the answer.
func (s *Survey) Answer(questionID, raw string) error {
	q, ok := s.question(questionID)
	if !ok {
		return fmt.Errorf("unknown question %q", questionID)
	}
	a, err := models.ParseAnswer(q, raw)
	if err != nil {
		return err
	}
	s.answers[questionID] = a
	return nil
}

// AnswerFor returns the current answer to questionID.
func (s *Survey) AnswerFor(questionID string) models.Answer {
	return s.answers[questionID]
}

// Missing returns the required questions without an answer, in order.
func (s *Survey) Missing() []string {
	var ids []string
	for _, q := range s.Questions {
		if q.Required && s.answers[q.QuestionID].Empty() {
			ids = append(ids, q.QuestionID)
		}
	}
	return ids
}

// Progress returns how many questions have an answer out of the total.
func (s *Survey) Progress() (answered, total int) {
	for _, q := range s.Questions {
		if !s.answers[q.QuestionID].Empty() {
			answered++
		}
	}
	return answered, len(s.Questions)
}

// Responses returns the answered questions in wire form.
func (s *Survey) Responses() []models.SurveyResponseItem {
	items := make([]models.SurveyResponseItem, 0, len(s.Questions))
	for _, q := range s.Questions {
		a := s.answers[q.QuestionID]
		if a.Empty() {
			continue
		}
		items = append(items, models.SurveyResponseItem{
			QuestionID:    q.QuestionID,
			ResponseValue: models.ResponseValue{Value: a.Value(), Type: q.QuestionType},
		})
	}
	return items
}

// SurveyService loads and completes checkpoint surveys.
type SurveyService struct {
	api    SurveyAPI
	sess   *state.Session
	logger *slog.Logger

	mu         sync.Mutex
	submitting bool
}

// NewSurveyService creates a survey service.
func NewSurveyService(api SurveyAPI, sess *state.Session, logger *slog.Logger) *SurveyService {
	return &SurveyService{api: api, sess: sess, logger: loggerOrDefault(logger)}
}

// Load fetches the template for surveyType, defaulting to the mid-study
// checkpoint, and attaches it to sessionID or the stored session.
func (s *SurveyService) Load(ctx context.Context, surveyType, sessionID string) (*Survey, error) {
	id := s.sess.Identity()
	if id.UserID == "" {
		return nil, ErrNotLoggedIn
	}
	if surveyType == "" {
		surveyType = models.DefaultSurveyType
	}
	if sessionID == "" {
		sessionID = id.SessionID
	}

	tmpl, err := s.api.GetSurveyTemplate(ctx, surveyType)
	if err != nil {
		return nil, fmt.Errorf("load survey %s: %w", surveyType, err)
	}
	return newSurvey(*tmpl, surveyType, sessionID), nil
}

// Submitting reports whether a submission is running.
func (s *SurveyService) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// Complete submits sv and rotates to a new session. A rejected submission
// is logged and does not stop the rotation; the new session id is returned.
func (s *SurveyService) Complete(ctx context.Context, sv *Survey) (string, error) {
	if missing := sv.Missing(); len(missing) > 0 {
		return "", &IncompleteError{QuestionIDs: missing}
	}
	id := s.sess.Identity()
	if id.UserID == "" {
		return "", ErrNotLoggedIn
	}

	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return "", ErrSubmitInFlight
	}
	s.submitting = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.submitting = false
		s.mu.Unlock()
	}()

	sub := models.SurveySubmission{
		UserID:     id.UserID,
		SurveyType: sv.SurveyType,
		Responses:  sv.Responses(),
	}
	if sv.SessionID != "" {
		sub.SessionID = models.Ptr(sv.SessionID)
	}
	if res, err := s.api.SubmitSurvey(ctx, sub); err != nil {
		s.logger.Error("submit survey failed", "survey_type", sv.SurveyType, "error", err)
	} else {
		s.logger.Info("survey submitted", "survey_type", sv.SurveyType, "responses", res.ResponseCount)
	}

	session, err := s.api.CreateSession(ctx, id.UserID)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	if err := s.sess.SetSessionID(session.SessionID); err != nil {
		return "", fmt.Errorf("store session id: %w", err)
	}
	return session.SessionID, nil
}

// Responses lists the logged-in user's stored answers, optionally filtered
// by survey type.
func (s *SurveyService) Responses(ctx context.Context, surveyType string) ([]models.SurveyResponseRecord, error) {
	id := s.sess.Identity()
	if id.UserID == "" {
		return nil, ErrNotLoggedIn
	}
	recs, err := s.api.ListSurveyResponses(ctx, id.UserID, surveyType)
	if err != nil {
		return nil, fmt.Errorf("list survey responses: %w", err)
	}
	return recs, nil
}
