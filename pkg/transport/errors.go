package transport

import (
	"encoding/json"
	"errors"
	"fmt"
)

const maxErrorBody = 256

// envelope is the wrapper shared by every appliance response.
type envelope struct {
	Success   bool            `json:"success"`
	Result    json.RawMessage `json:"result,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
	Msg       string          `json:"msg,omitempty"`
}

// APIError is returned when the appliance answers with success: false,
// whatever the HTTP status.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("appliance error %s: %s (http %d)", e.Code, e.Message, e.Status)
}

// HTTPError is returned when the response body is not a decodable JSON document.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected response (http %d): %q", e.Status, e.Body)
}

func newHTTPError(status int, body []byte) *HTTPError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &HTTPError{Status: status, Body: string(body)}
}

// ErrorCode extracts the appliance error code from err, if any.
func ErrorCode(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	return "", false
}
