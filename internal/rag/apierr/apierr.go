// Package apierr classifies failures coming back from the embedding and LLM providers.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// StatusError carries the HTTP status of a failed provider call.
type StatusError struct {
	Provider string
	Code     int
	Err      error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %v", e.Provider, e.Code, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Reason is a short label used in logs and metrics.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonRateLimited Reason = "rate_limited"
	ReasonTimeout     Reason = "timeout"
	ReasonUnavailable Reason = "unavailable"
	ReasonProvider    Reason = "provider_error"
)

// Classify maps err to a Reason. A nil error is ReasonNone.
func Classify(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case IsRateLimited(err):
		return ReasonRateLimited
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case statusCode(err) >= http.StatusInternalServerError:
		return ReasonUnavailable
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.Unavailable {
		return ReasonUnavailable
	}
	return ReasonProvider
}

func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		return true
	}
	return statusCode(err) == http.StatusTooManyRequests
}

// IsTransient reports whether another attempt may succeed.
func IsTransient(err error) bool {
	switch Classify(err) {
	case ReasonRateLimited, ReasonTimeout, ReasonUnavailable:
		return true
	}
	return false
}

func statusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return 0
}
