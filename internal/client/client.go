// Package client provides a REST client for the companion research backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/companion/internal/metrics"
	"github.com/raphaelgruber/companion/internal/models"
)

// Client talks to the companion backend. Every method performs exactly one
// HTTP request: there are no retries and no request deduplication.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	collector  *metrics.Collector
	slow       time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its transport is wrapped
// for logging.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets an overall request timeout. Zero keeps the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger sets the logger for call logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithCollector records call statistics into col.
func WithCollector(col *metrics.Collector) Option {
	return func(c *Client) { c.collector = col }
}

// WithSlowThreshold sets the duration above which calls log at WARN.
func WithSlowThreshold(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.slow = d
		}
	}
}

// New creates a client for the backend at baseURL, e.g. "http://localhost:8000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     slog.Default(),
		slow:       defaultSlowThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}

	next := c.httpClient.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	wrapped := *c.httpClient
	wrapped.Transport = &loggingTransport{
		next:      next,
		logger:    c.logger,
		collector: c.collector,
		slow:      c.slow,
	}
	c.httpClient = &wrapped

	return c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends one request and decodes the JSON response into result (if non-nil).
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, result any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(withOperation(ctx, op), method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, resp.Status, data)
	}

	if result != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// checkID rejects ids that are not UUIDs before they are placed in a URL path.
func checkID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid %s id %q: %w", kind, id, err)
	}
	return nil
}

// =============================================================================
// AUTH
// =============================================================================

// Register creates a user. An empty conditionID lets the backend assign one.
func (c *Client) Register(ctx context.Context, username, password, conditionID string) (*models.User, error) {
	input := models.RegisterInput{Username: username, Password: password}
	if conditionID != "" {
		input.ConditionID = &conditionID
	}

	var user models.User
	if err := c.do(ctx, "auth.register", http.MethodPost, "/auth/register", nil, input, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates a user and returns it.
func (c *Client) Login(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	input := models.LoginInput{Username: username, Password: password}
	if err := c.do(ctx, "auth.login", http.MethodPost, "/auth/login", nil, input, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser fetches a user by id.
func (c *Client) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if err := checkID("user", userID); err != nil {
		return nil, err
	}
	var user models.User
	if err := c.do(ctx, "auth.user", http.MethodGet, "/auth/user/"+userID, nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// =============================================================================
// SESSIONS
// =============================================================================

// CreateSession starts a new session for the user, implicitly ending the current one.
func (c *Client) CreateSession(ctx context.Context, userID string) (*models.Session, error) {
	if err := checkID("user", userID); err != nil {
		return nil, err
	}
	var session models.Session
	body := map[string]string{"user_id": userID}
	if err := c.do(ctx, "session.create", http.MethodPost, "/session", nil, body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSession fetches a session by id.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	if err := checkID("session", sessionID); err != nil {
		return nil, err
	}
	var session models.Session
	if err := c.do(ctx, "session.get", http.MethodGet, "/session/"+sessionID, nil, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListUserSessions returns the user's sessions, newest first.
func (c *Client) ListUserSessions(ctx context.Context, userID string) ([]models.Session, error) {
	if err := checkID("user", userID); err != nil {
		return nil, err
	}
	var sessions []models.Session
	if err := c.do(ctx, "session.list", http.MethodGet, "/session/user/"+userID, nil, nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListMessages returns the session's messages in chronological order.
func (c *Client) ListMessages(ctx context.Context, sessionID string) ([]models.Message, error) {
	if err := checkID("session", sessionID); err != nil {
		return nil, err
	}
	var messages []models.Message
	if err := c.do(ctx, "session.messages", http.MethodGet, "/session/"+sessionID+"/messages", nil, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// EndSession ends a session.
func (c *Client) EndSession(ctx context.Context, sessionID string) (*models.Session, error) {
	if err := checkID("session", sessionID); err != nil {
		return nil, err
	}
	var session models.Session
	if err := c.do(ctx, "session.end", http.MethodPost, "/session/"+sessionID+"/end", nil, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// =============================================================================
// CHAT
// =============================================================================

// SendChat sends a user message and returns the assistant's reply together
// with any memory candidates the backend extracted.
func (c *Client) SendChat(ctx context.Context, userID, sessionID, message string) (*models.ChatReply, error) {
	if err := checkID("user", userID); err != nil {
		return nil, err
	}
	if err := checkID("session", sessionID); err != nil {
		return nil, err
	}
	var reply models.ChatReply
	body := models.ChatRequest{UserID: userID, SessionID: sessionID, Message: message}
	if err := c.do(ctx, "chat.send", http.MethodPost, "/chat", nil, body, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// =============================================================================
// MEMORY
// =============================================================================

// ListMemories returns the user's memories, optionally limited to one session.
func (c *Client) ListMemories(ctx context.Context, userID, sessionID string) ([]models.Memory, error) {
	if err := checkID("user", userID); err != nil {
		return nil, err
	}
	var query url.Values
	if sessionID != "" {
		query = url.Values{"session_id": {sessionID}}
	}
	var memories []models.Memory
	if err := c.do(ctx, "memory.list", http.MethodGet, "/memory/"+userID, query, nil, &memories); err != nil {
		return nil, err
	}
	return memories, nil
}

// ListCandidates returns the inactive memory candidates for a session.
func (c *Client) ListCandidates(ctx context.Context, userID, sessionID string) ([]models.Memory, error) {
	if err := checkID("user", userID); err != nil {
		return nil, err
	}
	if err := checkID("session", sessionID); err != nil {
		return nil, err
	}
	var memories []models.Memory
	path := "/memory/candidates/" + userID + "/" + sessionID
	if err := c.do(ctx, "memory.candidates", http.MethodGet, path, nil, nil, &memories); err != nil {
		return nil, err
	}
	return memories, nil
}

// CreateMemory creates a memory (inactive unless input.IsActive).
func (c *Client) CreateMemory(ctx context.Context, input models.MemoryInput) (*models.Memory, error) {
	if err := checkID("user", input.UserID); err != nil {
		return nil, err
	}
	var memory models.Memory
	if err := c.do(ctx, "memory.create", http.MethodPost, "/memory", nil, input, &memory); err != nil {
		return nil, err
	}
	return &memory, nil
}

// ApproveMemory marks a candidate as active.
func (c *Client) ApproveMemory(ctx context.Context, memoryID string) (*models.Memory, error) {
	if err := checkID("memory", memoryID); err != nil {
		return nil, err
	}
	var memory models.Memory
	if err := c.do(ctx, "memory.approve", http.MethodPost, "/memory/"+memoryID+"/approve", nil, nil, &memory); err != nil {
		return nil, err
	}
	return &memory, nil
}

// UpdateMemory changes a memory's text and/or activation flag.
func (c *Client) UpdateMemory(ctx context.Context, memoryID string, update models.MemoryUpdate) (*models.Memory, error) {
	if err := checkID("memory", memoryID); err != nil {
		return nil, err
	}
	var memory models.Memory
	if err := c.do(ctx, "memory.update", http.MethodPut, "/memory/"+memoryID, nil, update, &memory); err != nil {
		return nil, err
	}
	return &memory, nil
}

// DeleteMemory deletes a memory.
func (c *Client) DeleteMemory(ctx context.Context, memoryID string) error {
	if err := checkID("memory", memoryID); err != nil {
		return err
	}
	return c.do(ctx, "memory.delete", http.MethodDelete, "/memory/"+memoryID, nil, nil, nil)
}

// BatchUpdateMemories applies several memory updates in one request.
func (c *Client) BatchUpdateMemories(ctx context.Context, updates []models.BatchUpdate) (*models.BatchUpdateResult, error) {
	for _, u := range updates {
		if err := checkID("memory", u.MemoryID); err != nil {
			return nil, err
		}
	}
	if updates == nil {
		updates = []models.BatchUpdate{}
	}
	var result models.BatchUpdateResult
	if err := c.do(ctx, "memory.batch_update", http.MethodPost, "/memory/batch-update", nil, updates, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// =============================================================================
// CONDITION
// =============================================================================

// GetCondition returns the user's current condition.
func (c *Client) GetCondition(ctx context.Context, userID string) (*models.ConditionInfo, error) {
	if err := checkID("user", userID); err != nil {
		return nil, err
	}
	var info models.ConditionInfo
	if err := c.do(ctx, "condition.get", http.MethodGet, "/condition/"+userID, nil, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// UpdateCondition overrides the user's condition.
func (c *Client) UpdateCondition(ctx context.Context, userID, conditionID string) (*models.ConditionInfo, error) {
	if err := checkID("user", userID); err != nil {
		return nil, err
	}
	var info models.ConditionInfo
	query := url.Values{"condition_id": {conditionID}}
	if err := c.do(ctx, "condition.update", http.MethodPut, "/condition/"+userID, query, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// =============================================================================
// SURVEY
// =============================================================================

// GetSurveyTemplate fetches the questions for a survey type.
func (c *Client) GetSurveyTemplate(ctx context.Context, surveyType string) (*models.SurveyTemplate, error) {
	var tmpl models.SurveyTemplate
	path := "/survey/template/" + url.PathEscape(surveyType)
	if err := c.do(ctx, "survey.template", http.MethodGet, path, nil, nil, &tmpl); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// SubmitSurvey stores a set of survey answers.
func (c *Client) SubmitSurvey(ctx context.Context, submission models.SurveySubmission) (*models.SurveySubmitResult, error) {
	if err := checkID("user", submission.UserID); err != nil {
		return nil, err
	}
	var result models.SurveySubmitResult
	if err := c.do(ctx, "survey.submit", http.MethodPost, "/survey/submit", nil, submission, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListSurveyResponses returns the user's stored answers, optionally for one survey type.
func (c *Client) ListSurveyResponses(ctx context.Context, userID, surveyType string) ([]models.SurveyResponseRecord, error) {
	if err := checkID("user", userID); err != nil {
		return nil, err
	}
	var query url.Values
	if surveyType != "" {
		query = url.Values{"survey_type": {surveyType}}
	}
	var records []models.SurveyResponseRecord
	if err := c.do(ctx, "survey.responses", http.MethodGet, "/survey/"+userID+"/responses", query, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}
