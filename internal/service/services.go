package service

import (
	"context"
	"log/slog"

	"github.com/raphaelgruber/companion/internal/config"
	"github.com/raphaelgruber/companion/internal/state"
)

// Services bundles the controllers of one client and wires their hooks:
// the memory panel follows the chat screen's condition, refreshes its badge
// and is cleared with it, and a developer override updates the chat screen.
type Services struct {
	Auth     *AuthService
	Chat     *ChatService
	Memory   *MemoryReview
	Dev      *DevMode
	Survey   *SurveyService
	Sessions *SessionService
}

// New creates the controllers for cfg on top of api and sess.
func New(cfg config.Config, api API, sess *state.Session, logger *slog.Logger) *Services {
	logger = loggerOrDefault(logger)
	chat := NewChatService(api, sess, logger)

	memory := NewMemoryReview(api, sess, chat.Condition, logger)
	memory.OnCandidatesChanged = func() { chat.RefreshCandidates(context.Background()) }
	chat.OnReset = memory.Reset

	dev := NewDevMode(api, sess, cfg.Environment, cfg.DevPassword, logger)
	dev.OnChange = chat.SetCondition

	return &Services{
		Auth:     NewAuthService(api, sess, logger),
		Chat:     chat,
		Memory:   memory,
		Dev:      dev,
		Survey:   NewSurveyService(api, sess, logger),
		Sessions: NewSessionService(api, sess),
	}
}
