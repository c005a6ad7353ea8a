package radio

import (
	"context"
	"errors"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// The different adapter error types.
var (
	ErrNotEnabled           = errors.New("adapter is not enabled")
	ErrAlreadyScanning      = errors.New("adapter is already scanning")
	ErrDeviceNotFound       = errors.New("device not found")
	ErrDestroyed            = errors.New("adapter has been destroyed")
	ErrPermissionDenied     = errors.New("radio permission denied")
	ErrInvalidServiceFilter = errors.New("invalid service filter")
)

// wrapError wraps an adapter error with the operation it occurred in.
func wrapError(err error, op, message string, kv ...string) error {
	tag := ftag.Internal
	switch {
	case errors.Is(err, ErrDeviceNotFound):
		tag = ftag.NotFound

	case errors.Is(err, ErrPermissionDenied):
		tag = ftag.PermissionDenied

	case errors.Is(err, ErrInvalidServiceFilter):
		tag = ftag.InvalidArgument

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		tag = ftag.Cancelled
	}

	return fault.Wrap(err,
		fctx.With(context.Background(), append([]string{"error_at", op}, kv...)...),
		ftag.With(tag),
		fmsg.WithDesc(message, message),
	)
}
