package models

import "time"

// MemoryTextLimit is the maximum length of a memory's text.
const MemoryTextLimit = 200

// Memory is a remembered fact about the user. Inactive memories are candidates
// awaiting review; active memories are saved.
type Memory struct {
	MemoryID  string     `json:"memory_id"`
	UserID    string     `json:"user_id"`
	SessionID *string    `json:"session_id,omitempty"`
	Text      string     `json:"text"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// MemoryInput is the payload for POST /memory.
type MemoryInput struct {
	UserID    string  `json:"user_id"`
	SessionID *string `json:"session_id"`
	Text      string  `json:"text"`
	IsActive  bool    `json:"is_active"`
}

// MemoryUpdate is the payload for PUT /memory/{id}. Nil fields are left unchanged.
type MemoryUpdate struct {
	Text     *string `json:"text,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// BatchUpdate is one entry of POST /memory/batch-update.
type BatchUpdate struct {
	MemoryID string  `json:"memory_id"`
	Text     *string `json:"text,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// BatchUpdateResult summarizes a batch update.
type BatchUpdateResult struct {
	Updated  int      `json:"updated"`
	Memories []Memory `json:"memories"`
}

// MemoryID returns the identifier of m. Used as the key for MergeByID.
func MemoryID(m Memory) string {
	return m.MemoryID
}

// MergeMemories merges incoming memories into existing ones by memory id.
func MergeMemories(existing, incoming []Memory) []Memory {
	return MergeByID(existing, incoming, MemoryID)
}

// SplitMemories separates inactive candidates from active (saved) memories,
// preserving order within each group.
func SplitMemories(ms []Memory) (candidates, saved []Memory) {
	for _, m := range ms {
		if m.IsActive {
			saved = append(saved, m)
		} else {
			candidates = append(candidates, m)
		}
	}
	return candidates, saved
}
