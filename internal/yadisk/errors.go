package yadisk

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hwuu/diskup/internal/remote"
)

// APIError is the error document returned by the Disk REST API.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("disk api: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("disk api: HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap maps well-known statuses onto the remote sentinels so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return remote.ErrNotAuthorized
	case http.StatusNotFound:
		return remote.ErrNotFound
	case http.StatusConflict:
		return remote.ErrAlreadyExists
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil && len(body) > 0 {
		// a non-JSON body still yields an error carrying the status code
		_ = json.Unmarshal(body, apiErr)
	}
	return apiErr
}
