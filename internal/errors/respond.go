package errors

import (
	"encoding/json"
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/platelog/platelog/internal/metrics"
	"github.com/platelog/platelog/internal/observability"
	"github.com/platelog/platelog/internal/server/middleware"
)

var statusByCode = map[string]int{
	CodeInvalidInput:       http.StatusBadRequest,
	CodeValidationFailed:   http.StatusBadRequest,
	CodeNotFound:           http.StatusNotFound,
	CodeMethodNotAllowed:   http.StatusMethodNotAllowed,
	CodeTimeout:            http.StatusGatewayTimeout,
	CodeServiceUnavailable: http.StatusServiceUnavailable,
}

// HTTPStatusFromEnvelope maps an envelope code to its HTTP status. Unknown
// codes, DATABASE_ERROR included, are 500.
func HTTPStatusFromEnvelope(envelope *errors.ErrorEnvelope) int {
	if envelope == nil {
		return http.StatusInternalServerError
	}
	if status, ok := statusByCode[envelope.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ResponseDetails merges envelope details with its context. Details win on
// key collisions. Returns nil when both are empty.
func ResponseDetails(envelope *errors.ErrorEnvelope) map[string]interface{} {
	if envelope == nil {
		return nil
	}

	details := make(map[string]interface{}, len(envelope.Details)+len(envelope.Context))
	for key, value := range envelope.Context {
		details[key] = value
	}
	for key, value := range envelope.Details {
		details[key] = value
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// HTTPErrorDetail is the body of every API error.
type HTTPErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// HTTPErrorResponse is the JSON document written for API errors.
type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

// RespondWithError writes err as a JSON error document, logging it on the
// server logger and counting it in error metrics.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	if w == nil {
		return
	}

	envelope := toEnvelope(err)
	if envelope.CorrelationID == "" {
		fallback := func() string { return "fallback-" + errors.GenerateCorrelationID() }
		id := fallback()
		if r != nil {
			id = requestIDOr(r.Context(), fallback)
		}
		envelope = envelope.WithCorrelationID(id)
	}

	status := HTTPStatusFromEnvelope(envelope)
	logHTTPError(envelope, status)

	metrics.RecordError(envelope.Code, status)
	if r != nil {
		metrics.RecordErrorByEndpoint(middleware.EndpointPattern(r), envelope.Code)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{
		Error: HTTPErrorDetail{
			Code:      envelope.Code,
			Message:   envelope.Message,
			Details:   ResponseDetails(envelope),
			RequestID: envelope.CorrelationID,
		},
	})
}

func logHTTPError(envelope *errors.ErrorEnvelope, status int) {
	logger := observability.ServerLogger
	if logger == nil {
		return
	}

	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
		zap.Int("http_status", status),
		zap.String("request_id", envelope.CorrelationID),
	}
	if envelope.Severity != "" {
		fields = append(fields, zap.String("severity", string(envelope.Severity)))
	}
	for key, value := range envelope.Context {
		fields = append(fields, zap.Any(key, value))
	}

	switch envelope.Severity {
	case errors.SeverityCritical, errors.SeverityHigh:
		logger.Error(envelope.Message, fields...)
	case errors.SeverityMedium:
		logger.Warn(envelope.Message, fields...)
	default:
		logger.Info(envelope.Message, fields...)
	}
}
