package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotLoggedIn       = errors.New("not logged in")
	ErrSendInFlight      = errors.New("a message is already being sent")
	ErrSaveInFlight      = errors.New("a memory is already being saved")
	ErrBatchInFlight     = errors.New("a batch approval is already running")
	ErrSubmitInFlight    = errors.New("a survey is already being submitted")
	ErrNotUserControlled = errors.New("memory candidates are managed automatically in this condition")
	ErrWrongPassword     = errors.New("incorrect developer password")
	ErrLocked            = errors.New("developer mode is locked")
	ErrIncomplete        = errors.New("please answer all required questions")
	ErrEmptyMessage      = errors.New("message is empty")
	ErrNoSelection       = errors.New("no memories selected")
	ErrNotEditing        = errors.New("no memory is being edited")
	ErrNoPendingDelete   = errors.New("no delete awaiting confirmation")
	ErrUnknownMemory     = errors.New("unknown memory")
)

// User-facing failure texts.
const (
	SendFailureReply   = "Sorry, I encountered an error. Please try again."
	SaveFailureMessage = "Failed to save memory. Please try again."
)

// FormError is a failure meant to be shown inline next to a form.
type FormError struct {
	Message string
	Err     error
}

func (e *FormError) Error() string { return e.Message }

func (e *FormError) Unwrap() error { return e.Err }

// IncompleteError lists the required questions that have no answer.
type IncompleteError struct {
	QuestionIDs []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%s (%s)", ErrIncomplete, strings.Join(e.QuestionIDs, ", "))
}

func (e *IncompleteError) Is(target error) bool { return target == ErrIncomplete }
