package service_test

import (
	"context"
	"testing"

	"github.com/raphaelgruber/companion/internal/models"
	"github.com/raphaelgruber/companion/internal/service"
	"github.com/raphaelgruber/companion/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkpointTemplate() models.SurveyTemplate {
	return models.SurveyTemplate{Questions: []models.SurveyQuestion{
		{QuestionID: "trust", QuestionType: models.QuestionRating, MinRating: models.Ptr(1), MaxRating: models.Ptr(7), Required: true},
		{QuestionID: "control", QuestionType: models.QuestionYesNo, Required: true},
		{QuestionID: "comments", QuestionType: models.QuestionFreeResponse},
	}}
}

func loadSurvey(t *testing.T, api *fakeAPI, sess *state.Session) (*service.SurveyService, *service.Survey) {
	t.Helper()
	api.template = checkpointTemplate()
	svc := service.NewSurveyService(api, sess, testLogger())
	sv, err := svc.Load(context.Background(), "", "")
	require.NoError(t, err)
	return svc, sv
}

func TestSurveyLoadDefaults(t *testing.T) {
	api := newFakeAPI(models.SessionAuto)
	_, sv := loadSurvey(t, api, loggedIn(models.SessionAuto))

	assert.Equal(t, models.DefaultSurveyType, sv.SurveyType)
	assert.Equal(t, testSessionID, sv.SessionID)
	assert.Nil(t, sv.AnswerFor("trust").Rating)
	assert.Equal(t, "", sv.AnswerFor("control").Text)

	answered, total := sv.Progress()
	assert.Zero(t, answered)
	assert.Equal(t, 3, total)
}

func TestSurveyLoadRequiresUser(t *testing.T) {
	svc := service.NewSurveyService(newFakeAPI(models.SessionAuto), state.NewSession(state.NewMemoryStore()), testLogger())
	_, err := svc.Load(context.Background(), "", "")
	assert.ErrorIs(t, err, service.ErrNotLoggedIn)
}

func TestSurveyIncompleteIsRejectedLocally(t *testing.T) {
	api := newFakeAPI(models.SessionAuto)
	sess := loggedIn(models.SessionAuto)
	svc, sv := loadSurvey(t, api, sess)
	require.NoError(t, sv.Answer("trust", "5"))

	_, err := svc.Complete(context.Background(), sv)
	require.ErrorIs(t, err, service.ErrIncomplete)
	var inc *service.IncompleteError
	require.ErrorAs(t, err, &inc)
	assert.Equal(t, []string{"control"}, inc.QuestionIDs)

	assert.Zero(t, api.called("survey.submit"))
	assert.Zero(t, api.called("session.create"))
	assert.Equal(t, testSessionID, sess.Identity().SessionID)
}

func TestSurveyAnswerValidation(t *testing.T) {
	_, sv := loadSurvey(t, newFakeAPI(models.SessionAuto), loggedIn(models.SessionAuto))

	assert.Error(t, sv.Answer("trust", "9"))
	assert.Error(t, sv.Answer("control", "maybe"))
	assert.Error(t, sv.Answer("missing", "x"))
	require.NoError(t, sv.Answer("control", "y"))
	assert.Equal(t, models.AnswerYes, sv.AnswerFor("control").Text)
}

func TestSurveyCompleteRotatesSession(t *testing.T) {
	api := newFakeAPI(models.SessionAuto)
	sess := loggedIn(models.SessionAuto)
	svc, sv := loadSurvey(t, api, sess)
	require.NoError(t, sv.Answer("trust", "6"))
	require.NoError(t, sv.Answer("control", "no"))

	newID, err := svc.Complete(context.Background(), sv)
	require.NoError(t, err)
	assert.NotEqual(t, testSessionID, newID)
	assert.Equal(t, newID, sess.Identity().SessionID)

	require.Len(t, api.submissions, 1)
	sub := api.submissions[0]
	assert.Equal(t, testSessionID, *sub.SessionID)
	require.Len(t, sub.Responses, 2, "unanswered optional questions are not sent")
	assert.Equal(t, models.ResponseValue{Value: 6, Type: models.QuestionRating}, sub.Responses[0].ResponseValue)
	assert.Equal(t, models.ResponseValue{Value: models.AnswerNo, Type: models.QuestionYesNo}, sub.Responses[1].ResponseValue)
}

func TestSurveySubmitFailureStillRotatesSession(t *testing.T) {
	api := newFakeAPI(models.SessionAuto)
	api.submitErr = errBackend
	sess := loggedIn(models.SessionAuto)
	svc, sv := loadSurvey(t, api, sess)
	require.NoError(t, sv.Answer("trust", "2"))
	require.NoError(t, sv.Answer("control", "yes"))

	newID, err := svc.Complete(context.Background(), sv)
	require.NoError(t, err)
	assert.Equal(t, newID, sess.Identity().SessionID)
	assert.NotEqual(t, testSessionID, newID)
	assert.Equal(t, 1, api.called("survey.submit"))
	assert.False(t, svc.Submitting())
}

func TestSurveySessionFailure(t *testing.T) {
	api := newFakeAPI(models.SessionAuto)
	sess := loggedIn(models.SessionAuto)
	svc, sv := loadSurvey(t, api, sess)
	require.NoError(t, sv.Answer("trust", "2"))
	require.NoError(t, sv.Answer("control", "yes"))
	api.sessionErr = errBackend

	_, err := svc.Complete(context.Background(), sv)
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, testSessionID, sess.Identity().SessionID)
}
