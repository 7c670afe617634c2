package models

import "time"

// User is a study participant.
type User struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	ConditionID string    `json:"condition_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Condition parses the user's assigned condition, falling back to DefaultCondition.
func (u User) Condition() Condition {
	c, err := ParseCondition(u.ConditionID)
	if err != nil {
		return DefaultCondition
	}
	return c
}

// RegisterInput is the payload for POST /auth/register.
type RegisterInput struct {
	Username    string  `json:"username"`
	Password    string  `json:"password"`
	ConditionID *string `json:"condition_id,omitempty"`
}

// LoginInput is the payload for POST /auth/login.
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ConditionInfo is returned by the condition endpoints.
type ConditionInfo struct {
	ConditionID string `json:"condition_id"`
	Description string `json:"description"`
}
