package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/platelog/platelog/internal/metrics"
	"github.com/platelog/platelog/internal/observability"
)

// Recovery turns a handler panic into a critical INTERNAL_ERROR response.
// The JSON shape matches the one written by internal/errors, which this
// package cannot import.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}

			metrics.RecordPanic()
			envelope := panicEnvelope(recovered, GetRequestID(r.Context()))
			if observability.ServerLogger != nil {
				observability.ServerLogger.Error(envelope.Message,
					zap.String("request_id", envelope.CorrelationID),
					zap.String("path", r.URL.Path),
					zap.Any("stack_trace", envelope.Context["stack_trace"]))
			}
			writePanicResponse(w, envelope)
		}()

		next.ServeHTTP(w, r)
	})
}

func panicEnvelope(recovered any, requestID string) *errors.ErrorEnvelope {
	envelope := errors.NewErrorEnvelope("INTERNAL_ERROR", fmt.Sprintf("panic: %v", recovered)).
		WithCorrelationID(requestID)
	if updated, err := envelope.WithContext(map[string]interface{}{
		"stack_trace": string(debug.Stack()),
	}); err == nil {
		envelope = updated
	}
	if updated, err := envelope.WithSeverity(errors.SeverityCritical); err == nil {
		envelope = updated
	}
	return envelope
}

func writePanicResponse(w http.ResponseWriter, envelope *errors.ErrorEnvelope) {
	body := map[string]interface{}{
		"error": map[string]interface{}{
			"code":       envelope.Code,
			"message":    envelope.Message,
			"request_id": envelope.CorrelationID,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(body)
}
