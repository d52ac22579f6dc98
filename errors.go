package googleai

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrNoCredentials is returned by NewClient when neither an API key nor
	// a token source was configured.
	ErrNoCredentials = errors.New("googleai: no credentials configured")

	// ErrBlocked is returned when the service refused the prompt outright
	// instead of generating candidates.
	ErrBlocked = errors.New("googleai: prompt blocked")
)

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Status     string // service status name, e.g. "INVALID_ARGUMENT"
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("googleai: %s (%d): %s", e.Status, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("googleai: HTTP %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// apiError translates an error response body into an *APIError. The service
// wraps failures in a google.rpc.Status envelope; anything else is reported
// with the raw body as the message.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var envelope struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Status:     envelope.Error.Status,
			Message:    envelope.Error.Message,
		}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
}
