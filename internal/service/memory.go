package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/raphaelgruber/companion/internal/models"
	"github.com/raphaelgruber/companion/internal/state"
)

// MemoryEdit is the single in-progress text edit of the review panel.
type MemoryEdit struct {
	MemoryID string
	Text     string
}

// MemoryReview is the memory panel: saved memories plus, in user-controlled
// conditions, reviewable candidates.
type MemoryReview struct {
	api       MemoryAPI
	sess      *state.Session
	logger    *slog.Logger
	condition func() models.Condition

	// OnCandidatesChanged is called after a delete or batch approval so the
	// owning screen can refresh its badge.
	OnCandidatesChanged func()

	mu            sync.Mutex
	memories      []models.Memory
	selected      map[string]bool
	edit          *MemoryEdit
	pendingDelete string
	batching      bool
}

// NewMemoryReview creates a review panel. condition reports the active
// condition each time it is consulted.
func NewMemoryReview(api MemoryAPI, sess *state.Session, condition func() models.Condition, logger *slog.Logger) *MemoryReview {
	if condition == nil {
		condition = sess.Condition
	}
	return &MemoryReview{
		api:       api,
		sess:      sess,
		logger:    loggerOrDefault(logger),
		condition: condition,
		selected:  make(map[string]bool),
	}
}

// UserControlled reports whether candidates may be reviewed.
func (r *MemoryReview) UserControlled() bool {
	return r.condition().UserControlled()
}

// Open reloads every memory of the current user and session.
// Failures are logged and leave the panel as it was.
func (r *MemoryReview) Open(ctx context.Context) {
	id := r.sess.Identity()
	ms, err := r.api.ListMemories(ctx, id.UserID, id.SessionID)
	if err != nil {
		r.logger.Warn("load memories failed", "user_id", id.UserID, "session_id", id.SessionID, "error", err)
		return
	}
	r.mu.Lock()
	r.memories = slices.Clone(ms)
	r.mu.Unlock()
}

// Reset forgets everything loaded along with the selection, the edit and a
// pending delete.
func (r *MemoryReview) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memories = nil
	r.selected = make(map[string]bool)
	r.edit = nil
	r.pendingDelete = ""
}

// Memories returns everything loaded, candidates and saved.
func (r *MemoryReview) Memories() []models.Memory {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.memories)
}

// Candidates returns the inactive memories.
func (r *MemoryReview) Candidates() []models.Memory {
	cands, _ := models.SplitMemories(r.Memories())
	return cands
}

// Saved returns the active memories.
func (r *MemoryReview) Saved() []models.Memory {
	_, saved := models.SplitMemories(r.Memories())
	return saved
}

// EditableCandidates returns the candidates the user may act on: all of
// them in user-controlled conditions, none otherwise.
func (r *MemoryReview) EditableCandidates() []models.Memory {
	if !r.UserControlled() {
		return nil
	}
	return r.Candidates()
}

// MergeCandidates adds memories not yet loaded.
func (r *MemoryReview) MergeCandidates(ms []models.Memory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memories = models.MergeMemories(r.memories, ms)
}

// lookup returns the loaded memory with id. Callers hold r.mu.
func (r *MemoryReview) lookup(id string) (models.Memory, bool) {
	i := slices.IndexFunc(r.memories, func(m models.Memory) bool { return m.MemoryID == id })
	if i < 0 {
		return models.Memory{}, false
	}
	return r.memories[i], true
}

// checkAccess rejects candidate actions outside user-controlled conditions.
func (r *MemoryReview) checkAccess(id string) (models.Memory, error) {
	r.mu.Lock()
	m, ok := r.lookup(id)
	r.mu.Unlock()
	if !ok {
		return models.Memory{}, fmt.Errorf("%w: %s", ErrUnknownMemory, id)
	}
	if !m.IsActive && !r.UserControlled() {
		return models.Memory{}, ErrNotUserControlled
	}
	return m, nil
}

// ============================================================================
// Selection
// ============================================================================

// ToggleSelect flips the selection of candidate id and reports the new state.
func (r *MemoryReview) ToggleSelect(id string) (bool, error) {
	if !r.UserControlled() {
		return false, ErrNotUserControlled
	}
	m, err := r.checkAccess(id)
	if err != nil {
		return false, err
	}
	if m.IsActive {
		return false, fmt.Errorf("memory %s is already saved", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selected[id] {
		delete(r.selected, id)
		return false, nil
	}
	r.selected[id] = true
	return true, nil
}

// Selected returns the selected ids in panel order.
func (r *MemoryReview) Selected() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, m := range r.memories {
		if r.selected[m.MemoryID] {
			ids = append(ids, m.MemoryID)
		}
	}
	return ids
}

// IsSelected reports whether id is selected.
func (r *MemoryReview) IsSelected(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected[id]
}

// ============================================================================
// Editing
// ============================================================================

// StartEdit begins editing id, replacing any other edit in progress.
func (r *MemoryReview) StartEdit(id string) error {
	m, err := r.checkAccess(id)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.edit = &MemoryEdit{MemoryID: id, Text: m.Text}
	r.mu.Unlock()
	return nil
}

// Editing returns the edit in progress, if any.
func (r *MemoryReview) Editing() (MemoryEdit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.edit == nil {
		return MemoryEdit{}, false
	}
	return *r.edit, true
}

// SetEditText replaces the edit buffer, capped at the memory text limit.
func (r *MemoryReview) SetEditText(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.edit == nil {
		return ErrNotEditing
	}
	r.edit.Text = models.TruncateRunes(text, models.MemoryTextLimit)
	return nil
}

// CancelEdit discards the edit in progress.
func (r *MemoryReview) CancelEdit() {
	r.mu.Lock()
	r.edit = nil
	r.mu.Unlock()
}

// SaveEdit writes the edit, reloads the panel and ends editing.
// On failure the edit is kept so the user can retry.
func (r *MemoryReview) SaveEdit(ctx context.Context) error {
	edit, ok := r.Editing()
	if !ok {
		return ErrNotEditing
	}
	text := strings.TrimSpace(edit.Text)
	if text == "" {
		return &FormError{Message: "Memory text cannot be empty"}
	}

	if _, err := r.api.UpdateMemory(ctx, edit.MemoryID, models.MemoryUpdate{Text: &text}); err != nil {
		r.logger.Error("update memory failed", "memory_id", edit.MemoryID, "error", err)
		return fmt.Errorf("update memory: %w", err)
	}

	r.mu.Lock()
	r.edit = nil
	r.mu.Unlock()
	r.Open(ctx)
	return nil
}

// ============================================================================
// Deleting
// ============================================================================

// RequestDelete asks for confirmation before deleting id.
func (r *MemoryReview) RequestDelete(id string) error {
	if _, err := r.checkAccess(id); err != nil {
		return err
	}
	r.mu.Lock()
	r.pendingDelete = id
	r.mu.Unlock()
	return nil
}

// PendingDelete returns the id awaiting confirmation, or "".
func (r *MemoryReview) PendingDelete() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pendingDelete
}

// CancelDelete drops the pending confirmation.
func (r *MemoryReview) CancelDelete() {
	r.mu.Lock()
	r.pendingDelete = ""
	r.mu.Unlock()
}

// ConfirmDelete deletes the pending memory, reloads and notifies the owner.
func (r *MemoryReview) ConfirmDelete(ctx context.Context) error {
	r.mu.Lock()
	id := r.pendingDelete
	r.pendingDelete = ""
	r.mu.Unlock()
	if id == "" {
		return ErrNoPendingDelete
	}

	if err := r.api.DeleteMemory(ctx, id); err != nil {
		r.logger.Error("delete memory failed", "memory_id", id, "error", err)
		return fmt.Errorf("delete memory: %w", err)
	}

	r.mu.Lock()
	delete(r.selected, id)
	if r.edit != nil && r.edit.MemoryID == id {
		r.edit = nil
	}
	r.mu.Unlock()

	r.Open(ctx)
	r.notify()
	return nil
}

// ============================================================================
// Approving
// ============================================================================

// BatchApproving reports whether a batch approval is running.
func (r *MemoryReview) BatchApproving() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batching
}

// BatchApprove saves every selected candidate in one request.
func (r *MemoryReview) BatchApprove(ctx context.Context) (int, error) {
	if !r.UserControlled() {
		return 0, ErrNotUserControlled
	}
	ids := r.Selected()
	if len(ids) == 0 {
		return 0, ErrNoSelection
	}

	r.mu.Lock()
	if r.batching {
		r.mu.Unlock()
		return 0, ErrBatchInFlight
	}
	r.batching = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.batching = false
		r.mu.Unlock()
	}()

	updates := make([]models.BatchUpdate, 0, len(ids))
	for _, id := range ids {
		updates = append(updates, models.BatchUpdate{MemoryID: id, IsActive: models.Ptr(true)})
	}
	res, err := r.api.BatchUpdateMemories(ctx, updates)
	if err != nil {
		r.logger.Error("batch approve failed", "count", len(ids), "error", err)
		return 0, fmt.Errorf("approve memories: %w", err)
	}

	r.mu.Lock()
	clear(r.selected)
	r.mu.Unlock()

	r.Open(ctx)
	r.notify()
	return res.Updated, nil
}

// Add proposes text as a new candidate of the current session.
func (r *MemoryReview) Add(ctx context.Context, text string) (*models.Memory, error) {
	if !r.UserControlled() {
		return nil, ErrNotUserControlled
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &FormError{Message: "Memory text cannot be empty"}
	}
	id := r.sess.Identity()
	m, err := r.api.CreateMemory(ctx, models.MemoryInput{
		UserID:    id.UserID,
		SessionID: models.Ptr(id.SessionID),
		Text:      models.TruncateRunes(text, models.MemoryTextLimit),
	})
	if err != nil {
		r.logger.Error("create memory failed", "session_id", id.SessionID, "error", err)
		return nil, &FormError{Message: SaveFailureMessage, Err: err}
	}
	r.Open(ctx)
	r.notify()
	return m, nil
}

// ApproveOne saves a single candidate.
func (r *MemoryReview) ApproveOne(ctx context.Context, id string) (*models.Memory, error) {
	if !r.UserControlled() {
		return nil, ErrNotUserControlled
	}
	m, err := r.api.ApproveMemory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("approve memory: %w", err)
	}
	r.mu.Lock()
	delete(r.selected, id)
	r.mu.Unlock()
	r.Open(ctx)
	r.notify()
	return m, nil
}

func (r *MemoryReview) notify() {
	if r.OnCandidatesChanged != nil {
		r.OnCandidatesChanged()
	}
}
