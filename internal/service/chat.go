package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/raphaelgruber/companion/internal/models"
	"github.com/raphaelgruber/companion/internal/state"
)

// Tutorial timing: the first unseen tutorial appears TutorialDelay after the
// chat screen loads; dismissing the menu tutorial reveals the chat tutorial
// after ChainedTutorialDelay.
const (
	TutorialDelay        = 500 * time.Millisecond
	ChainedTutorialDelay = 300 * time.Millisecond
)

// PendingSend is a message that has been shown optimistically but not yet
// answered by the backend.
type PendingSend struct {
	UserID    string
	SessionID string
	Text      string
}

// ChatService owns the transcript, the candidate badge and the active
// condition of the main screen.
type ChatService struct {
	api    ChatAPI
	sess   *state.Session
	logger *slog.Logger
	now    func() time.Time

	// OnReset is called whenever the screen state is cleared, so panels
	// holding data of the previous session can drop it too.
	OnReset func()

	mu          sync.Mutex
	loaded      bool
	conditionID string
	transcript  []models.Message
	candidates  []models.Memory
	sending     bool
	saving      bool
}

// NewChatService creates a chat service seeded with the stored condition.
func NewChatService(api ChatAPI, sess *state.Session, logger *slog.Logger) *ChatService {
	return &ChatService{
		api:         api,
		sess:        sess,
		logger:      loggerOrDefault(logger),
		now:         time.Now,
		conditionID: sess.Identity().ConditionID,
	}
}

// Load populates the screen: condition, then transcript, then candidates.
// A failed fetch is logged and stops loading; whatever was loaded stays and
// Loaded reports false until a later Load succeeds.
func (s *ChatService) Load(ctx context.Context) error {
	id := s.sess.Identity()
	if !s.sess.LoggedIn() {
		return ErrNotLoggedIn
	}

	s.mu.Lock()
	s.loaded = false
	s.conditionID = id.ConditionID
	s.mu.Unlock()

	if err := s.RefreshCondition(ctx); err != nil {
		s.logger.Warn("load condition failed", "user_id", id.UserID, "error", err)
		return nil
	}

	msgs, err := s.api.ListMessages(ctx, id.SessionID)
	if err != nil {
		s.logger.Warn("load messages failed", "session_id", id.SessionID, "error", err)
		return nil
	}
	s.mu.Lock()
	s.transcript = slices.Clone(msgs)
	s.mu.Unlock()

	cands, err := s.api.ListCandidates(ctx, id.UserID, id.SessionID)
	if err != nil {
		s.logger.Warn("load memory candidates failed", "session_id", id.SessionID, "error", err)
		return nil
	}
	s.mu.Lock()
	s.candidates = slices.Clone(cands)
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Loaded reports whether the last Load fetched condition, transcript and
// candidates without error.
func (s *ChatService) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// ============================================================================
// Condition
// ============================================================================

// RefreshCondition asks the server for the user's condition and stores it.
func (s *ChatService) RefreshCondition(ctx context.Context) error {
	id := s.sess.Identity()
	if id.UserID == "" {
		return ErrNotLoggedIn
	}
	info, err := s.api.GetCondition(ctx, id.UserID)
	if err != nil {
		return fmt.Errorf("get condition: %w", err)
	}

	s.mu.Lock()
	s.conditionID = info.ConditionID
	s.mu.Unlock()

	c, err := models.ParseCondition(info.ConditionID)
	if err != nil {
		s.logger.Warn("server reported unknown condition", "condition", info.ConditionID)
		return nil
	}
	if err := s.sess.SetCondition(c); err != nil {
		return fmt.Errorf("store condition: %w", err)
	}
	return nil
}

// ConditionID returns the raw condition id as last reported.
func (s *ChatService) ConditionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conditionID
}

// Condition returns the active condition, falling back to the default for
// ids this client does not know.
func (s *ChatService) Condition() models.Condition {
	c, err := models.ParseCondition(s.ConditionID())
	if err != nil {
		return models.DefaultCondition
	}
	return c
}

// Banner returns the explanatory text for the active condition.
func (s *ChatService) Banner() string {
	return models.BannerFor(s.ConditionID())
}

// SetCondition reflects a condition change made elsewhere.
func (s *ChatService) SetCondition(c models.Condition) {
	s.mu.Lock()
	s.conditionID = c.ID()
	s.mu.Unlock()
}

// CanSaveMessages reports whether user messages offer "Save memory".
func (s *ChatService) CanSaveMessages() bool {
	return s.Condition().UserControlled()
}

// ============================================================================
// Tutorials
// ============================================================================

// PendingTutorial returns the tutorial to reveal on load. At most one is
// pending at a time, menu before chat.
func (s *ChatService) PendingTutorial() state.Tutorial {
	switch {
	case !s.sess.TutorialSeen(state.TutorialMenu):
		return state.TutorialMenu
	case !s.sess.TutorialSeen(state.TutorialChat):
		return state.TutorialChat
	default:
		return state.TutorialNone
	}
}

// ShowTutorial marks t as seen so it never appears again.
func (s *ChatService) ShowTutorial(t state.Tutorial) error {
	if err := s.sess.MarkTutorialSeen(t); err != nil {
		return fmt.Errorf("mark tutorial %s seen: %w", t, err)
	}
	return nil
}

// NextTutorial returns the tutorial chained after dismissing t, if unseen.
func (s *ChatService) NextTutorial(t state.Tutorial) state.Tutorial {
	if t == state.TutorialMenu && !s.sess.TutorialSeen(state.TutorialChat) {
		return state.TutorialChat
	}
	return state.TutorialNone
}

// ============================================================================
// Transcript & sending
// ============================================================================

// Transcript returns a copy of the messages shown on screen.
func (s *ChatService) Transcript() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.transcript)
}

// Sending reports whether a message is awaiting its reply.
func (s *ChatService) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// BeginSend shows text as a user message and marks a send as in flight.
func (s *ChatService) BeginSend(text string) (PendingSend, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return PendingSend{}, ErrEmptyMessage
	}
	id := s.sess.Identity()
	if !s.sess.LoggedIn() {
		return PendingSend{}, ErrNotLoggedIn
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sending {
		return PendingSend{}, ErrSendInFlight
	}
	s.sending = true
	s.transcript = append(s.transcript, models.Message{
		SessionID: id.SessionID,
		Role:      models.RoleUser,
		Content:   text,
		CreatedAt: s.now(),
	})
	return PendingSend{UserID: id.UserID, SessionID: id.SessionID, Text: text}, nil
}

// CompleteSend delivers p. On success the reply is appended and the returned
// candidates merged into the badge; on failure a single apology message is
// appended instead and the error returned. The optimistic user message stays
// either way.
func (s *ChatService) CompleteSend(ctx context.Context, p PendingSend) error {
	reply, err := s.api.SendChat(ctx, p.UserID, p.SessionID, p.Text)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sending = false

	if err != nil {
		s.logger.Error("send chat message failed", "session_id", p.SessionID, "error", err)
		s.transcript = append(s.transcript, models.Message{
			SessionID: p.SessionID,
			Role:      models.RoleAssistant,
			Content:   SendFailureReply,
			CreatedAt: s.now(),
		})
		return fmt.Errorf("send message: %w", err)
	}

	s.transcript = append(s.transcript, models.Message{
		SessionID: p.SessionID,
		Role:      models.RoleAssistant,
		Content:   reply.Response,
		CreatedAt: s.now(),
	})
	s.candidates = models.MergeMemories(s.candidates, reply.MemoryCandidates)
	return nil
}

// Send is BeginSend followed by CompleteSend.
func (s *ChatService) Send(ctx context.Context, text string) error {
	p, err := s.BeginSend(text)
	if err != nil {
		return err
	}
	return s.CompleteSend(ctx, p)
}

// SaveToMemory stores the user message at index as a memory candidate and
// refreshes the badge. Only user-controlled conditions may do this.
func (s *ChatService) SaveToMemory(ctx context.Context, index int) error {
	if !s.CanSaveMessages() {
		return ErrNotUserControlled
	}
	id := s.sess.Identity()

	s.mu.Lock()
	if index < 0 || index >= len(s.transcript) {
		s.mu.Unlock()
		return fmt.Errorf("message %d: %w", index, ErrUnknownMemory)
	}
	msg := s.transcript[index]
	if msg.Role != models.RoleUser {
		s.mu.Unlock()
		return fmt.Errorf("only your own messages can be saved")
	}
	if s.saving {
		s.mu.Unlock()
		return ErrSaveInFlight
	}
	s.saving = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.saving = false
		s.mu.Unlock()
	}()

	_, err := s.api.CreateMemory(ctx, models.MemoryInput{
		UserID:    id.UserID,
		SessionID: models.Ptr(id.SessionID),
		Text:      models.TruncateRunes(msg.Content, models.MemoryTextLimit),
		IsActive:  false,
	})
	if err != nil {
		s.logger.Error("save message to memory failed", "session_id", id.SessionID, "error", err)
		return &FormError{Message: SaveFailureMessage, Err: err}
	}

	s.RefreshCandidates(ctx)
	return nil
}

// ============================================================================
// Candidates & sessions
// ============================================================================

// Candidates returns the memory candidates of the current session.
func (s *ChatService) Candidates() []models.Memory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.candidates)
}

// CandidateCount is the number shown on the memory badge.
func (s *ChatService) CandidateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.candidates)
}

// MergeCandidates adds candidates not yet known.
func (s *ChatService) MergeCandidates(ms []models.Memory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = models.MergeMemories(s.candidates, ms)
}

// RefreshCandidates replaces the candidates with the server's list.
// Failures are logged and leave the badge unchanged.
func (s *ChatService) RefreshCandidates(ctx context.Context) {
	id := s.sess.Identity()
	cands, err := s.api.ListCandidates(ctx, id.UserID, id.SessionID)
	if err != nil {
		s.logger.Warn("refresh memory candidates failed", "session_id", id.SessionID, "error", err)
		return
	}
	s.mu.Lock()
	s.candidates = slices.Clone(cands)
	s.mu.Unlock()
}

// NewSession starts a fresh session and clears the screen.
func (s *ChatService) NewSession(ctx context.Context) (*models.Session, error) {
	id := s.sess.Identity()
	if !s.sess.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	session, err := s.api.CreateSession(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := s.sess.SetSessionID(session.SessionID); err != nil {
		return nil, fmt.Errorf("store session id: %w", err)
	}

	s.Reset()
	s.logger.Info("started new session", "session_id", session.SessionID)
	return session, nil
}

// Reset clears the screen state after the stored session changed elsewhere.
func (s *ChatService) Reset() {
	s.mu.Lock()
	s.transcript = nil
	s.candidates = nil
	s.loaded = false
	s.mu.Unlock()
	if s.OnReset != nil {
		s.OnReset()
	}
}

// Logout clears the stored identity and the screen.
func (s *ChatService) Logout() error {
	s.Reset()
	if err := s.sess.Logout(); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	return nil
}
