package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrRejected      = errors.New("rejected by backend")
	ErrUnavailable   = errors.New("backend unavailable")
	ErrWrongAudience = errors.New("session cannot call this endpoint")
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrRejected:
		return e.Status == http.StatusBadRequest || e.Status == http.StatusConflict || e.Status == http.StatusUnprocessableEntity
	case ErrUnavailable:
		return e.Status >= http.StatusInternalServerError
	default:
		return false
	}
}

// decodeError accepts {"error":"..."}, {"error":{"code","message"}} and
// {"message":"..."} bodies.
func decodeError(status int, data []byte) error {
	apiErr := &APIError{Status: status}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		if len(apiErr.Message) > 200 {
			apiErr.Message = apiErr.Message[:200]
		}
		return apiErr
	}
	if raw, ok := body["error"]; ok {
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			apiErr.Message = text
		} else {
			var nested struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			}
			if err := json.Unmarshal(raw, &nested); err == nil {
				apiErr.Code = nested.Code
				apiErr.Message = nested.Message
			}
		}
	}
	if apiErr.Message == "" {
		if raw, ok := body["message"]; ok {
			_ = json.Unmarshal(raw, &apiErr.Message)
		}
	}
	return apiErr
}

// Message returns the backend's message for err, if it carried one.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
