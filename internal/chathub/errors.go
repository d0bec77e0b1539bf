package chathub

import (
	"errors"

	"interviewhub/backend/internal/models"
)

// Request outcomes reported to clients. Unauthenticated lives in auth: it
// never reaches the hub because the connection is refused first.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRateLimited       = errors.New("rate limited")
	ErrValidation        = errors.New("validation error")
	ErrGenerationFailure = errors.New("generation failure")
	// ErrAnalysisFailure is logged only, never sent to a client.
	ErrAnalysisFailure = errors.New("analysis failure")
)

// Error codes on the wire.
const (
	CodeUnauthorized      = "unauthorized"
	CodeRateLimited       = "rate_limited"
	CodeValidation        = "validation_error"
	CodeGenerationFailure = "generation_failure"
	CodeInternal          = "internal_error"
)

// ErrorCode maps err onto its wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrGenerationFailure):
		return CodeGenerationFailure
	default:
		return CodeInternal
	}
}

func errorEvent(err error, event models.EventType, clientID string) models.Event {
	code := ErrorCode(err)
	msg := err.Error()
	if code == CodeInternal {
		msg = "internal error"
	}
	return models.NewEvent(models.EventError, models.ErrorPayload{
		Message:  msg,
		Code:     code,
		Event:    event,
		ClientID: clientID,
	})
}
