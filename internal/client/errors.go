package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// GenericErrorMessage is shown when the backend gave no usable detail.
const GenericErrorMessage = "An error occurred"

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Status     string
	// Detail is the backend's "detail" message, if it sent one.
	Detail string
	Body   string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server error: %s - %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("server error: %s - %s", e.Status, e.Body)
}

// newAPIError builds an APIError, extracting the detail message from body.
func newAPIError(statusCode int, status string, body []byte) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Status:     status,
		Detail:     parseDetail(body),
		Body:       strings.TrimSpace(string(body)),
	}
}

// parseDetail understands both {"detail": "msg"} and the validation form
// {"detail": [{"msg": "..."}, ...]}, of which only the first message is kept.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		for _, it := range items {
			if it.Msg != "" {
				return it.Msg
			}
		}
	}
	return ""
}

// DetailMessage returns the server-provided detail carried by err,
// or fallback when there is none.
func DetailMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
