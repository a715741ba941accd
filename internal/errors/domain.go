package errors

import (
	"context"
	stderrors "errors"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/platelog/platelog/internal/core"
)

// FromMealError maps a meal pipeline failure onto the matching error envelope.
func FromMealError(ctx context.Context, err error) *errors.ErrorEnvelope {
	var portionErr *core.PortionError
	switch {
	case err == nil:
		return nil
	case stderrors.As(err, &portionErr):
		envelope := WrapValidationError(ctx, err, portionErr.Error())
		if updated, updateErr := envelope.WithContext(map[string]interface{}{
			"item_index": portionErr.Index,
			"reason":     portionErr.Reason,
		}); updateErr == nil {
			envelope = updated
		}
		return envelope
	case stderrors.Is(err, core.ErrInvalidPortion):
		return WrapValidationError(ctx, err, "invalid portion")
	case stderrors.Is(err, context.DeadlineExceeded):
		return WrapTimeout(ctx, err, "meal analysis timed out")
	case stderrors.Is(err, context.Canceled):
		return WrapTimeout(ctx, err, "meal analysis was cancelled")
	default:
		return WrapInternal(ctx, err, "meal analysis failed")
	}
}
