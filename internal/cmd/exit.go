package cmd

import (
	"fmt"
	"os"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
)

// ExitWithCode logs msg and err with the foundry exit-code metadata and
// exits. A nil logger falls back to stderr.
func ExitWithCode(logger *logging.Logger, exitCode foundry.ExitCode, msg string, err error) {
	info, known := foundry.GetExitCodeInfo(exitCode)
	if logger == nil || !known {
		ExitWithCodeStderr(exitCode, msg, err)
		return
	}

	fields := []zap.Field{
		zap.Int("exit_code", info.Code),
		zap.String("exit_name", info.Name),
		zap.String("exit_description", info.Description),
		zap.String("exit_category", info.Category),
	}
	if envelope, ok := err.(*errors.ErrorEnvelope); ok {
		fields = append(fields, envelopeFields(envelope)...)
		err = underlying(envelope)
	}
	logger.Error(msg, append(fields, zap.Error(err))...)

	os.Exit(info.Code)
}

// ExitWithCodeStderr reports to stderr and exits. It is for failures that
// happen before the CLI logger exists.
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	fmt.Fprintln(os.Stderr, fatalLine(msg, err))
	if envelope, ok := err.(*errors.ErrorEnvelope); ok {
		if cause := underlying(envelope); cause != err {
			fmt.Fprintf(os.Stderr, "Underlying error: %v\n", cause)
		}
	}

	info, known := foundry.GetExitCodeInfo(exitCode)
	if !known {
		fmt.Fprintf(os.Stderr, "Exit Code: %d\n", exitCode)
		os.Exit(int(exitCode))
	}
	fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
	os.Exit(info.Code)
}

func fatalLine(msg string, err error) string {
	switch e := err.(type) {
	case nil:
		return "FATAL: " + msg
	case *errors.ErrorEnvelope:
		return fmt.Sprintf("FATAL: %s [%s]: %s (correlation: %s)", msg, e.Code, e.Message, e.CorrelationID)
	default:
		return fmt.Sprintf("FATAL: %s: %v", msg, err)
	}
}

func envelopeFields(envelope *errors.ErrorEnvelope) []zap.Field {
	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
		zap.String("error_message", envelope.Message),
		zap.String("correlation_id", envelope.CorrelationID),
		zap.String("trace_id", envelope.TraceID),
	}
	if envelope.Context != nil {
		fields = append(fields, zap.Any("error_context", envelope.Context))
	}
	return fields
}

// underlying returns the error an envelope wraps, or the envelope itself.
func underlying(envelope *errors.ErrorEnvelope) error {
	if cause, ok := envelope.Original.(error); ok && cause != nil {
		return cause
	}
	return envelope
}
