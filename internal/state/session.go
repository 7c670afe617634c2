package state

import (
	"fmt"

	"github.com/raphaelgruber/companion/internal/models"
)

// Tutorial identifies a one-time onboarding hint.
type Tutorial int

const (
	TutorialNone Tutorial = iota
	TutorialMenu
	TutorialChat
)

func (t Tutorial) String() string {
	switch t {
	case TutorialMenu:
		return "menu"
	case TutorialChat:
		return "chat"
	default:
		return "none"
	}
}

func (t Tutorial) key() string {
	switch t {
	case TutorialMenu:
		return KeySeenMenuTutorial
	case TutorialChat:
		return KeySeenChatTutorial
	default:
		return ""
	}
}

const flagTrue = "true"

// Identity is the stored login.
type Identity struct {
	UserID      string
	SessionID   string
	Username    string
	ConditionID string
}

// ClientState is a typed snapshot of everything the client persists.
type ClientState struct {
	Identity
	DeveloperMode    bool
	SeenMenuTutorial bool
	SeenChatTutorial bool
}

// Session is the typed accessor over a Store.
type Session struct {
	store Store
}

// NewSession wraps store.
func NewSession(store Store) *Session {
	return &Session{store: store}
}

// Store returns the underlying store.
func (s *Session) Store() Store {
	return s.store
}

func (s *Session) get(key string) string {
	v, _ := s.store.Get(key)
	return v
}

// Identity returns the stored identity; missing keys are empty.
func (s *Session) Identity() Identity {
	return Identity{
		UserID:      s.get(KeyUserID),
		SessionID:   s.get(KeySessionID),
		Username:    s.get(KeyUsername),
		ConditionID: s.get(KeyConditionID),
	}
}

// LoggedIn reports whether both a user id and a session id are stored.
// This is the only logged-in signal the client uses.
func (s *Session) LoggedIn() bool {
	id := s.Identity()
	return id.UserID != "" && id.SessionID != ""
}

// SaveLogin stores the identity established by login or registration.
func (s *Session) SaveLogin(user models.User, session models.Session) error {
	for _, kv := range [][2]string{
		{KeyUserID, user.UserID},
		{KeySessionID, session.SessionID},
		{KeyUsername, user.Username},
		{KeyConditionID, user.ConditionID},
	} {
		if err := s.store.Set(kv[0], kv[1]); err != nil {
			return fmt.Errorf("store %s: %w", kv[0], err)
		}
	}
	return nil
}

// SetSessionID replaces the stored session id.
func (s *Session) SetSessionID(id string) error {
	return s.store.Set(KeySessionID, id)
}

// SetCondition stores the active condition.
func (s *Session) SetCondition(c models.Condition) error {
	return s.store.Set(KeyConditionID, c.ID())
}

// Condition returns the stored condition, or DefaultCondition if none or unknown.
func (s *Session) Condition() models.Condition {
	c, err := models.ParseCondition(s.get(KeyConditionID))
	if err != nil {
		return models.DefaultCondition
	}
	return c
}

// DeveloperMode reports whether the developer gate was unlocked before.
func (s *Session) DeveloperMode() bool {
	return s.get(KeyDeveloperMode) == flagTrue
}

// SetDeveloperMode persists or clears the developer flag.
func (s *Session) SetDeveloperMode(on bool) error {
	if on {
		return s.store.Set(KeyDeveloperMode, flagTrue)
	}
	return s.store.Remove(KeyDeveloperMode)
}

// TutorialSeen reports whether t was already shown.
func (s *Session) TutorialSeen(t Tutorial) bool {
	if t == TutorialNone {
		return true
	}
	return s.get(t.key()) == flagTrue
}

// MarkTutorialSeen records that t was shown.
func (s *Session) MarkTutorialSeen(t Tutorial) error {
	if t == TutorialNone {
		return nil
	}
	return s.store.Set(t.key(), flagTrue)
}

// Logout forgets everything, including developer mode and tutorial flags.
func (s *Session) Logout() error {
	return s.store.Clear()
}

// Snapshot returns the full typed client state.
func (s *Session) Snapshot() ClientState {
	return ClientState{
		Identity:         s.Identity(),
		DeveloperMode:    s.DeveloperMode(),
		SeenMenuTutorial: s.TutorialSeen(TutorialMenu),
		SeenChatTutorial: s.TutorialSeen(TutorialChat),
	}
}
