package backend

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrTimeout means the backend did not respond within the configured bound.
	ErrTimeout = errors.New("backend request timed out")
	// ErrMalformedResponse means the response body could not be interpreted
	// as the expected JSON shape.
	ErrMalformedResponse = errors.New("malformed backend response")
)

// HTTPError is a non-2xx response from the backend. Message carries the
// most specific error text the response body yielded.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

// BackendError means the backend answered 2xx but explicitly signalled
// failure (an error field, or task.success=false).
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error: %s", e.Message)
}

// extractErrorMessage pulls the most specific human message out of an
// HTTP error body. The backend wraps errors in a double-encoded envelope:
// the top-level "details" field is itself a JSON string whose "message"
// field carries the real cause. Fallback order: details.message, then
// top-level message, then top-level error, then a generic message.
func extractErrorMessage(body []byte) string {
	const generic = "Request failed"

	var envelope struct {
		Details string `json:"details"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return generic
	}

	if envelope.Details != "" {
		var details struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal([]byte(envelope.Details), &details); err == nil && details.Message != "" {
			return details.Message
		}
	}

	if envelope.Message != "" {
		return envelope.Message
	}
	if envelope.Error != "" {
		return envelope.Error
	}
	return generic
}
