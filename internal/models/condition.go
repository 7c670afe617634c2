package models

import "fmt"

// Persistence is whether memories outlive the session that produced them.
type Persistence int

const (
	PersistenceSession Persistence = iota
	PersistencePersistent
)

// Control is who decides which memories are kept.
type Control int

const (
	ControlAutomatic Control = iota
	ControlUser
)

// Condition is an experimental condition: one point on the
// persistence x control grid.
type Condition struct {
	Persistence Persistence
	Control     Control
}

// The four study conditions.
var (
	SessionAuto    = Condition{PersistenceSession, ControlAutomatic}
	SessionUser    = Condition{PersistenceSession, ControlUser}
	PersistentAuto = Condition{PersistencePersistent, ControlAutomatic}
	PersistentUser = Condition{PersistencePersistent, ControlUser}
)

// DefaultCondition is assumed until the backend says otherwise.
var DefaultCondition = SessionAuto

// UnknownConditionBanner is shown for condition ids this client does not know.
const UnknownConditionBanner = "Unknown condition"

var conditionIDs = map[Condition]string{
	SessionAuto:    "SESSION_AUTO",
	SessionUser:    "SESSION_USER",
	PersistentAuto: "PERSISTENT_AUTO",
	PersistentUser: "PERSISTENT_USER",
}

var conditionBanners = map[Condition]string{
	SessionAuto:    "Your conversation will not be saved after this session ends.",
	SessionUser:    "You can review saved memories, but they will be cleared after this session ends.",
	PersistentAuto: "Your conversation is automatically saved and will persist in future sessions.",
	PersistentUser: "You can choose which information to save, edit, or delete, and it will persist in future sessions.",
}

var conditionLabels = map[Condition]string{
	SessionAuto:    "Session + Auto",
	SessionUser:    "Session + User",
	PersistentAuto: "Persistent + Auto",
	PersistentUser: "Persistent + User",
}

// AllConditions lists the conditions in display order.
func AllConditions() []Condition {
	return []Condition{SessionAuto, SessionUser, PersistentAuto, PersistentUser}
}

// ParseCondition maps a wire id such as "PERSISTENT_USER" to a Condition.
func ParseCondition(id string) (Condition, error) {
	for c, s := range conditionIDs {
		if s == id {
			return c, nil
		}
	}
	return Condition{}, fmt.Errorf("unknown condition %q", id)
}

// ID returns the wire id of c.
func (c Condition) ID() string {
	if s, ok := conditionIDs[c]; ok {
		return s
	}
	return ""
}

func (c Condition) String() string {
	return c.ID()
}

// UserControlled reports whether the participant curates memories.
func (c Condition) UserControlled() bool {
	return c.Control == ControlUser
}

// Persistent reports whether memories persist across sessions.
func (c Condition) Persistent() bool {
	return c.Persistence == PersistencePersistent
}

// Banner is the explanation shown above the chat.
func (c Condition) Banner() string {
	if s, ok := conditionBanners[c]; ok {
		return s
	}
	return UnknownConditionBanner
}

// Label is the short name used in condition pickers.
func (c Condition) Label() string {
	if s, ok := conditionLabels[c]; ok {
		return s
	}
	return c.ID()
}

// BannerFor returns the banner for a raw condition id.
func BannerFor(id string) string {
	c, err := ParseCondition(id)
	if err != nil {
		return UnknownConditionBanner
	}
	return c.Banner()
}

// MarshalText implements encoding.TextMarshaler.
func (c Condition) MarshalText() ([]byte, error) {
	id := c.ID()
	if id == "" {
		return nil, fmt.Errorf("invalid condition %d/%d", c.Persistence, c.Control)
	}
	return []byte(id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Condition) UnmarshalText(b []byte) error {
	parsed, err := ParseCondition(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
