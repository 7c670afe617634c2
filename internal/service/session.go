package service

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/companion/internal/models"
	"github.com/raphaelgruber/companion/internal/state"
)

// SessionService inspects and ends conversation sessions.
type SessionService struct {
	api  SessionAPI
	sess *state.Session
}

// NewSessionService creates a session service.
func NewSessionService(api SessionAPI, sess *state.Session) *SessionService {
	return &SessionService{api: api, sess: sess}
}

// Current fetches the stored session.
func (s *SessionService) Current(ctx context.Context) (*models.Session, error) {
	if !s.sess.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	session, err := s.api.GetSession(ctx, s.sess.Identity().SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// List returns every session of the logged-in user.
func (s *SessionService) List(ctx context.Context) ([]models.Session, error) {
	if !s.sess.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	sessions, err := s.api.ListUserSessions(ctx, s.sess.Identity().UserID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// End ends sessionID, or the stored session when empty. The stored id is kept.
func (s *SessionService) End(ctx context.Context, sessionID string) (*models.Session, error) {
	if !s.sess.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	if sessionID == "" {
		sessionID = s.sess.Identity().SessionID
	}
	session, err := s.api.EndSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	return session, nil
}
