package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"maderalink/internal/apperrors"
)

// CodeDuplicateRating is the code the backend sends when a user rates a
// project twice.
const CodeDuplicateRating = "duplicate_rating"

// Error is a non-2xx backend response.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	Method     string
	Path       string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("backend %s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

// Is maps backend statuses onto the application sentinels so callers can use
// errors.Is without knowing about HTTP.
func (e *Error) Is(target error) bool {
	switch target {
	case apperrors.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case apperrors.ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case apperrors.ErrUnauthenticated:
		return e.StatusCode == http.StatusUnauthorized
	case apperrors.ErrValidation:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
	case apperrors.ErrDuplicateRating:
		return e.duplicate()
	}
	return false
}

// The duplicate signal is recognised by code or, for older backends, by the
// wording of the message.
func (e *Error) duplicate() bool {
	if e.Code == CodeDuplicateRating {
		return true
	}
	if e.StatusCode != http.StatusConflict && e.StatusCode != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "already rated")
}

// IsDuplicateRating reports whether err is the backend's duplicate-rating
// signal.
func IsDuplicateRating(err error) bool {
	return errors.Is(err, apperrors.ErrDuplicateRating)
}

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func decodeError(resp *http.Response) *Error {
	apiErr := &Error{StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	if err != nil || len(raw) == 0 {
		return apiErr
	}

	var body errorBody
	if json.Unmarshal(raw, &body) != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}
	apiErr.Code = body.Code
	for _, m := range []string{body.Message, body.Detail, body.Error} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}
	// Some endpoints put the machine code in "error" and nothing else.
	if apiErr.Code == "" && body.Error != "" && !strings.Contains(body.Error, " ") {
		apiErr.Code = body.Error
	}
	return apiErr
}
