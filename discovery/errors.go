package discovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// The different discovery error types.
var (
	// ErrScan is reported when the adapter fails while scanning.
	ErrScan = errors.New("scan error")

	// ErrConnection is reported when a connection cannot be established.
	ErrConnection = errors.New("connection error")

	ErrAttemptInProgress = errors.New("connection attempt in progress")
	ErrInvalidDevice     = errors.New("invalid device identifier")
	ErrClosed            = errors.New("discovery service is closed")
)

// scanError wraps an adapter error that ended a scan session.
func scanError(err error, session string) error {
	return fault.Wrap(fmt.Errorf("%w: %w", ErrScan, err),
		fctx.With(context.Background(),
			"error_at", "scan",
			"session", session,
		),
		ftag.With(ftag.Internal),
		fmsg.WithDesc("scan session failed", "Scanning stopped"),
	)
}

// connectionError wraps an adapter error that failed a connection attempt.
func connectionError(err error, deviceID string) error {
	tag := ftag.Internal
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		tag = ftag.Cancelled
	}

	return fault.Wrap(fmt.Errorf("%w: %w", ErrConnection, err),
		fctx.With(context.Background(),
			"error_at", "connect",
			"device", deviceID,
		),
		ftag.With(tag),
		fmsg.WithDesc("connection attempt failed", "Could not connect to the device"),
	)
}

// teardownError returns an error for a panic recovered while destroying the adapter.
func teardownError(recovered any) error {
	return fault.Wrap(fmt.Errorf("adapter teardown panicked: %v", recovered),
		fctx.With(context.Background(), "error_at", "destroy"),
		ftag.With(ftag.Internal),
		fmsg.WithDesc("adapter teardown failed", "The radio adapter could not be released"),
	)
}

// rejectedError returns an error for a connection attempt that was not started.
func rejectedError(kind error, deviceID, message string) error {
	tag := ftag.InvalidArgument
	if errors.Is(kind, ErrAttemptInProgress) {
		tag = ftag.AlreadyExists
	}

	return fault.Wrap(kind,
		fctx.With(context.Background(),
			"error_at", "connect",
			"device", deviceID,
		),
		ftag.With(tag),
		fmsg.WithDesc(message, message),
	)
}

// Issue returns the user-facing description of an error.
func Issue(err error) string {
	if err == nil {
		return ""
	}

	if issue := fmsg.GetIssue(err); issue != "" {
		return issue
	}

	return err.Error()
}

// IsReported returns whether the error has already been published as a notice.
func IsReported(err error) bool {
	return errors.Is(err, ErrScan) || errors.Is(err, ErrConnection)
}
