// Package errors builds gofulmen error envelopes for the HTTP edge and maps
// them onto status codes.
package errors

import (
	"context"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/google/uuid"

	"github.com/platelog/platelog/internal/server/middleware"
)

// Envelope codes used by the API.
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeTimeout            = "TIMEOUT"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeDatabase           = "DATABASE_ERROR"
	CodeConfigInvalid      = "CONFIG_INVALID"
	CodeInternal           = "INTERNAL_ERROR"
)

func NewInvalidInputError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInvalidInput, message)
}

func NewNotFoundError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeNotFound, message)
}

func NewMethodNotAllowedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeMethodNotAllowed, message)
}

func NewValidationError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeValidationFailed, message)
}

func NewInternalError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInternal, message)
}

func NewConfigInvalidError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeConfigInvalid, message)
}

// The Wrap helpers tag the envelope with the request ID found in ctx and
// keep the cause text under "wrapped_error".

func WrapInvalidInput(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeInvalidInput, err, message)
}

func WrapValidationError(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeValidationFailed, err, message)
}

func WrapInternal(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeInternal, err, message)
}

func WrapDatabaseError(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeDatabase, err, message)
}

func WrapTimeout(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeTimeout, err, message)
}

func WrapConfigInvalid(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeConfigInvalid, err, message)
}

func wrap(ctx context.Context, code string, err error, message string) *errors.ErrorEnvelope {
	id := requestIDOr(ctx, uuid.NewString)
	envelope := errors.NewErrorEnvelope(code, message).
		WithCorrelationID(id).
		WithTraceID(id)
	return withCause(envelope, err)
}

// requestIDOr returns the chi request ID carried by ctx, or fallback() when
// there is none. There is no tracing backend, so the same ID serves as trace ID.
func requestIDOr(ctx context.Context, fallback func() string) string {
	if ctx != nil {
		if id := middleware.GetRequestID(ctx); id != "" {
			return id
		}
	}
	return fallback()
}

func withCause(envelope *errors.ErrorEnvelope, err error) *errors.ErrorEnvelope {
	if envelope == nil || err == nil {
		return envelope
	}
	updated, ctxErr := envelope.WithContext(map[string]interface{}{"wrapped_error": err.Error()})
	if ctxErr != nil {
		return envelope
	}
	return updated
}

// toEnvelope passes envelopes through and turns any other error into a
// high-severity INTERNAL_ERROR that keeps the original text.
func toEnvelope(err error) *errors.ErrorEnvelope {
	if envelope, ok := err.(*errors.ErrorEnvelope); ok && envelope != nil {
		return envelope
	}

	severity := errors.SeverityHigh
	envelope := errors.NewErrorEnvelope(CodeInternal, "unexpected error")
	if err == nil {
		severity = errors.SeverityCritical
		envelope = errors.NewErrorEnvelope(CodeInternal, "unexpected nil error")
	}
	envelope = withCause(envelope, err)
	if updated, sevErr := envelope.WithSeverity(severity); sevErr == nil {
		envelope = updated
	}
	return envelope
}
