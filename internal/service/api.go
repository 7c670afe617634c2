// Package service holds the client-side controllers: login, chat, memory
// review, the developer override, checkpoint surveys and session utilities.
// Controllers talk to the backend through the narrow interfaces below and
// persist identity through state.Session.
package service

import (
	"context"
	"log/slog"

	"github.com/raphaelgruber/companion/internal/models"
)

// AuthAPI is the subset of the backend used to establish an identity.
type AuthAPI interface {
	Register(ctx context.Context, username, password, conditionID string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.User, error)
	CreateSession(ctx context.Context, userID string) (*models.Session, error)
}

// ChatAPI is the subset of the backend used by the chat screen.
type ChatAPI interface {
	CreateSession(ctx context.Context, userID string) (*models.Session, error)
	ListMessages(ctx context.Context, sessionID string) ([]models.Message, error)
	SendChat(ctx context.Context, userID, sessionID, message string) (*models.ChatReply, error)
	ListCandidates(ctx context.Context, userID, sessionID string) ([]models.Memory, error)
	CreateMemory(ctx context.Context, input models.MemoryInput) (*models.Memory, error)
	GetCondition(ctx context.Context, userID string) (*models.ConditionInfo, error)
}

// MemoryAPI is the subset of the backend used by the memory review panel.
type MemoryAPI interface {
	ListMemories(ctx context.Context, userID, sessionID string) ([]models.Memory, error)
	CreateMemory(ctx context.Context, input models.MemoryInput) (*models.Memory, error)
	ApproveMemory(ctx context.Context, memoryID string) (*models.Memory, error)
	UpdateMemory(ctx context.Context, memoryID string, update models.MemoryUpdate) (*models.Memory, error)
	DeleteMemory(ctx context.Context, memoryID string) error
	BatchUpdateMemories(ctx context.Context, updates []models.BatchUpdate) (*models.BatchUpdateResult, error)
}

// ConditionAPI changes a user's experimental condition.
type ConditionAPI interface {
	UpdateCondition(ctx context.Context, userID, conditionID string) (*models.ConditionInfo, error)
}

// SurveyAPI is the subset of the backend used by checkpoint surveys.
type SurveyAPI interface {
	GetSurveyTemplate(ctx context.Context, surveyType string) (*models.SurveyTemplate, error)
	SubmitSurvey(ctx context.Context, submission models.SurveySubmission) (*models.SurveySubmitResult, error)
	ListSurveyResponses(ctx context.Context, userID, surveyType string) ([]models.SurveyResponseRecord, error)
	CreateSession(ctx context.Context, userID string) (*models.Session, error)
}

// SessionAPI reads and ends conversation sessions.
type SessionAPI interface {
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	ListUserSessions(ctx context.Context, userID string) ([]models.Session, error)
	EndSession(ctx context.Context, sessionID string) (*models.Session, error)
}

// API is everything the controllers need; *client.Client implements it.
type API interface {
	AuthAPI
	ChatAPI
	MemoryAPI
	ConditionAPI
	SurveyAPI
	SessionAPI
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
