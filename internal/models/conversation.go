// Package models defines the data structures exchanged with the companion backend.
package models

import "time"

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Session is one chat session. A new session ends the previous one server-side.
type Session struct {
	SessionID string     `json:"session_id"`
	UserID    string     `json:"user_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Active reports whether the session has not been ended.
func (s Session) Active() bool {
	return s.EndedAt == nil
}

// Message is a single chat message within a session.
// Messages appended locally before the server confirms them carry an empty MsgID.
type Message struct {
	MsgID     string    `json:"msg_id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatRequest is the payload for POST /chat.
type ChatRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ChatReply is the backend's answer to a chat message.
type ChatReply struct {
	Response         string   `json:"response"`
	MemoryCandidates []Memory `json:"memory_candidates"`
}
