package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMalformedPayload means a 2xx response did not match the expected schema
	ErrMalformedPayload = errors.New("malformed response payload")

	// ErrPayloadTooLarge maps HTTP 413
	ErrPayloadTooLarge = errors.New("document too large for the analysis service")

	// ErrUnsupportedMedia maps HTTP 415
	ErrUnsupportedMedia = errors.New("document type rejected by the analysis service")

	// ErrServerBusy maps HTTP 429 and 5xx
	ErrServerBusy = errors.New("analysis service unavailable")

	// ErrEmptyText is returned when a text operation is called with blank text
	ErrEmptyText = errors.New("text is empty")

	// ErrEmptyFile is returned when a file operation is called without data
	ErrEmptyFile = errors.New("file is empty")
)

// StatusError is returned for any non-2xx response
type StatusError struct {
	StatusCode int
	Status     string
	Body       string // First bytes of the response body, for diagnostics
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.StatusCode, e.Status)
}

// Unwrap exposes the status class as a sentinel for errors.Is
func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusRequestEntityTooLarge:
		return ErrPayloadTooLarge
	case e.StatusCode == http.StatusUnsupportedMediaType:
		return ErrUnsupportedMedia
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode >= 500:
		return ErrServerBusy
	default:
		return nil
	}
}

// Retryable reports whether the status is worth another attempt
func (e *StatusError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// TransportError wraps failures below HTTP (dial, TLS, reset, timeout)
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// isRetryable decides whether a failed attempt should be repeated
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}

	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// UserMessage turns any submission error into one line suitable for end users
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPayloadTooLarge):
		return "The document is too large for the analysis service. Try a smaller file or paste the relevant part."
	case errors.Is(err, ErrUnsupportedMedia):
		return "The analysis service does not accept this document type. Use PDF, DOCX or plain text."
	case errors.Is(err, ErrServerBusy):
		return "The analysis service is busy or unavailable. Please try again in a moment."
	case errors.Is(err, context.DeadlineExceeded):
		return "The analysis service took too long to answer. Please try again."
	case errors.Is(err, context.Canceled):
		return "Submission cancelled."
	case errors.Is(err, ErrMalformedPayload):
		return "The analysis service returned an unexpected response. Please try again."
	default:
		return "Something went wrong while contacting the analysis service. Please try again."
	}
}
