package models

import (
	"errors"
	"fmt"
)

var (
	// ErrParse is returned for malformed numeric strings and bad download responses
	ErrParse = errors.New("parse error")
	// ErrProtocol marks a download response that breaks the tracker's contract
	ErrProtocol = fmt.Errorf("%w: protocol", ErrParse)
	// ErrPersistence wraps storage write failures
	ErrPersistence = errors.New("persistence error")
	// ErrSubmission is returned when the download client rejects a file
	ErrSubmission = errors.New("submission error")
)

// APIError is a non-success tracker response or a transport failure
type APIError struct {
	Status     string // envelope status, empty for transport failures
	StatusCode int    // HTTP status, 0 when the request never completed
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.Status != "" && e.Err != nil:
		return fmt.Sprintf("API returned error status: %s: %v", e.Status, e.Err)
	case e.Status != "":
		return fmt.Sprintf("API returned error status: %s", e.Status)
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("API request failed with status %d: %v", e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("API request failed with status %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("API request failed: %v", e.Err)
	default:
		return "API request failed"
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}
