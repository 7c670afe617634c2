package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/raphaelgruber/companion/internal/client"
	"github.com/raphaelgruber/companion/internal/models"
	"github.com/raphaelgruber/companion/internal/state"
)

// Credential limits enforced before any request is made.
const (
	MinUsernameLen = 3
	MaxUsernameLen = 50
	MinPasswordLen = 8
)

// AuthMode selects between logging in and creating an account.
type AuthMode int

const (
	ModeLogin AuthMode = iota
	ModeRegister
)

func (m AuthMode) String() string {
	if m == ModeRegister {
		return "register"
	}
	return "login"
}

// Credentials is the content of the login/register form.
type Credentials struct {
	Mode     AuthMode
	Username string
	Password string
	// Condition is only sent on registration; empty lets the server assign one.
	Condition string
}

// Validate checks the form locally.
func (c Credentials) Validate() error {
	name := strings.TrimSpace(c.Username)
	if n := utf8.RuneCountInString(name); n < MinUsernameLen || n > MaxUsernameLen {
		return &FormError{Message: fmt.Sprintf("Username must be between %d and %d characters", MinUsernameLen, MaxUsernameLen)}
	}
	if utf8.RuneCountInString(c.Password) < MinPasswordLen {
		return &FormError{Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLen)}
	}
	if c.Mode == ModeRegister {
		var letter, digit bool
		for _, r := range c.Password {
			letter = letter || unicode.IsLetter(r)
			digit = digit || unicode.IsDigit(r)
		}
		if !letter || !digit {
			return &FormError{Message: "Password must contain at least one letter and one number"}
		}
		if c.Condition != "" {
			if _, err := models.ParseCondition(c.Condition); err != nil {
				return &FormError{Message: err.Error()}
			}
		}
	}
	return nil
}

// AuthService establishes an identity and stores it locally.
type AuthService struct {
	api    AuthAPI
	sess   *state.Session
	logger *slog.Logger
}

// NewAuthService creates an auth service.
func NewAuthService(api AuthAPI, sess *state.Session, logger *slog.Logger) *AuthService {
	return &AuthService{api: api, sess: sess, logger: loggerOrDefault(logger)}
}

// Submit registers or logs in, always opens a fresh session, and persists the
// resulting identity. Every failure is a *FormError carrying the server's
// detail message when there is one. Server-side effects of earlier steps are
// not undone.
func (s *AuthService) Submit(ctx context.Context, cr Credentials) (*models.User, error) {
	if err := cr.Validate(); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(cr.Username)

	var (
		user *models.User
		err  error
	)
	if cr.Mode == ModeRegister {
		user, err = s.api.Register(ctx, username, cr.Password, cr.Condition)
	} else {
		user, err = s.api.Login(ctx, username, cr.Password)
	}
	if err != nil {
		s.logger.Warn("authentication failed", "mode", cr.Mode, "username", username, "error", err)
		return nil, formError(err)
	}

	session, err := s.api.CreateSession(ctx, user.UserID)
	if err != nil {
		s.logger.Warn("create session after login failed", "user_id", user.UserID, "error", err)
		return nil, formError(err)
	}

	if err := s.sess.SaveLogin(*user, *session); err != nil {
		return nil, &FormError{Message: client.GenericErrorMessage, Err: fmt.Errorf("save login: %w", err)}
	}
	s.logger.Info("logged in", "user_id", user.UserID, "session_id", session.SessionID, "condition", user.ConditionID)
	return user, nil
}

// Logout forgets the stored identity and every local flag.
func (s *AuthService) Logout() error {
	if err := s.sess.Logout(); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	return nil
}

func formError(err error) *FormError {
	return &FormError{Message: client.DetailMessage(err, client.GenericErrorMessage), Err: err}
}
