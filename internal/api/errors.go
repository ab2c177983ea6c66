package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrSessionExpired     = errors.New("session expired, please log in again")
	ErrBackendUnavailable = errors.New("backend temporarily unavailable")
)

// Error is the normalized shape of every failed backend call.
// Status is 0 when the request never produced a response.
type Error struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("backend request failed: %s", e.Message)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// StatusOf returns the backend status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// MessageOf returns a message suitable for showing to the visitor.
func MessageOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, ErrSessionExpired) {
		return ErrSessionExpired.Error()
	}
	return "something went wrong, please try again"
}

func newError(status int, body []byte) *Error {
	e := &Error{Status: status}

	var envelope struct {
		Message string          `json:"message"`
		Error   string          `json:"error"`
		Msg     string          `json:"msg"`
		Data    json.RawMessage `json:"data"`
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' && json.Unmarshal(trimmed, &envelope) == nil {
		switch {
		case envelope.Message != "":
			e.Message = envelope.Message
		case envelope.Error != "":
			e.Message = envelope.Error
		default:
			e.Message = envelope.Msg
		}
		if len(envelope.Data) > 0 && string(envelope.Data) != "null" {
			e.Data = envelope.Data
		}
	} else if len(trimmed) > 0 && len(trimmed) <= 200 && trimmed[0] != '<' {
		e.Message = strings.TrimSpace(string(trimmed))
	}

	if e.Message == "" {
		e.Message = strings.ToLower(http.StatusText(status))
	}
	return e
}
