package service_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/raphaelgruber/companion/internal/client"
	"github.com/raphaelgruber/companion/internal/models"
	"github.com/raphaelgruber/companion/internal/service"
	"github.com/raphaelgruber/companion/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ service.API = (*client.Client)(nil)
var _ service.API = (*fakeAPI)(nil)

func TestCredentialsValidate(t *testing.T) {
	tests := []struct {
		name    string
		cr      service.Credentials
		wantErr string
	}{
		{"valid login", service.Credentials{Username: "ada", Password: "password"}, ""},
		{"short username", service.Credentials{Username: "ad", Password: "password"}, "Username must be between 3 and 50 characters"},
		{"short password", service.Credentials{Username: "ada", Password: "pass"}, "Password must be at least 8 characters"},
		{"register needs digit", service.Credentials{Mode: service.ModeRegister, Username: "ada", Password: "password"}, "Password must contain at least one letter and one number"},
		{"register valid", service.Credentials{Mode: service.ModeRegister, Username: "ada", Password: "password1"}, ""},
		{"register unknown condition", service.Credentials{Mode: service.ModeRegister, Username: "ada", Password: "password1", Condition: "BOGUS"}, `unknown condition "BOGUS"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cr.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var fe *service.FormError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.wantErr, fe.Message)
		})
	}
}

func TestSubmitLoginPersistsIdentity(t *testing.T) {
	api := newFakeAPI(models.PersistentUser)
	sess := state.NewSession(state.NewMemoryStore())
	auth := service.NewAuthService(api, sess, testLogger())

	user, err := auth.Submit(context.Background(), service.Credentials{Username: " ada ", Password: "password"})
	require.NoError(t, err)
	assert.Equal(t, "ada", user.Username)

	id := sess.Identity()
	assert.Equal(t, testUserID, id.UserID)
	assert.Equal(t, "session-2", id.SessionID)
	assert.Equal(t, "PERSISTENT_USER", id.ConditionID)
	assert.True(t, sess.LoggedIn())
	assert.Equal(t, 1, api.called("session.create"))
}

func TestSubmitRegisterSendsCondition(t *testing.T) {
	api := newFakeAPI(models.SessionAuto)
	sess := state.NewSession(state.NewMemoryStore())
	auth := service.NewAuthService(api, sess, testLogger())

	_, err := auth.Submit(context.Background(), service.Credentials{
		Mode: service.ModeRegister, Username: "ada", Password: "password1", Condition: "SESSION_USER",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SessionUser, sess.Condition())
	assert.Equal(t, 1, api.called("register"))
}

func TestSubmitFailureShowsServerDetail(t *testing.T) {
	api := newFakeAPI(models.SessionAuto)
	api.loginErr = &client.APIError{StatusCode: http.StatusUnauthorized, Detail: "Incorrect username or password"}
	sess := state.NewSession(state.NewMemoryStore())
	auth := service.NewAuthService(api, sess, testLogger())

	_, err := auth.Submit(context.Background(), service.Credentials{Username: "ada", Password: "password"})
	var fe *service.FormError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "Incorrect username or password", fe.Message)
	assert.False(t, sess.LoggedIn())
	assert.Zero(t, api.called("session.create"))
}

func TestSubmitSessionFailureUsesGenericMessage(t *testing.T) {
	api := newFakeAPI(models.SessionAuto)
	api.sessionErr = errBackend
	sess := state.NewSession(state.NewMemoryStore())
	auth := service.NewAuthService(api, sess, testLogger())

	_, err := auth.Submit(context.Background(), service.Credentials{Username: "ada", Password: "password"})
	var fe *service.FormError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, client.GenericErrorMessage, fe.Message)
	assert.ErrorIs(t, err, errBackend)
	assert.False(t, sess.LoggedIn())
}

func TestLogoutClearsState(t *testing.T) {
	sess := loggedIn(models.SessionAuto)
	require.NoError(t, sess.SetDeveloperMode(true))
	auth := service.NewAuthService(newFakeAPI(models.SessionAuto), sess, testLogger())

	require.NoError(t, auth.Logout())
	assert.Equal(t, state.ClientState{}, sess.Snapshot())
	assert.False(t, sess.LoggedIn())
}
