package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/Southclaws/fault/ftag"
)

func TestIssue(t *testing.T) {
	if got := Issue(nil); got != "" {
		t.Errorf("Issue(nil) = %q, want empty", got)
	}

	if got := Issue(errors.New("plain")); got != "plain" {
		t.Errorf("Issue(plain) = %q, want %q", got, "plain")
	}

	err := connectionError(errors.New("refused"), "AA:BB:CC:DD:EE:FF")
	if got := Issue(err); got != "Could not connect to the device" {
		t.Errorf("Issue(connection error) = %q", got)
	}
}

func TestIsReported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"scan", scanError(errors.New("radio off"), "session"), true},
		{"connection", connectionError(errors.New("refused"), "id"), true},
		{"in progress", rejectedError(ErrAttemptInProgress, "id", "busy"), false},
		{"invalid", rejectedError(ErrInvalidDevice, "", "no device"), false},
		{"closed", ErrClosed, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsReported(test.err); got != test.want {
				t.Errorf("IsReported() = %v, want %v", got, test.want)
			}
		})
	}
}

func TestConnectionErrorTags(t *testing.T) {
	if tag := ftag.Get(connectionError(context.DeadlineExceeded, "id")); tag != ftag.Cancelled {
		t.Errorf("timeout tag = %v, want %v", tag, ftag.Cancelled)
	}

	if tag := ftag.Get(connectionError(errors.New("refused"), "id")); tag != ftag.Internal {
		t.Errorf("failure tag = %v, want %v", tag, ftag.Internal)
	}

	if tag := ftag.Get(rejectedError(ErrAttemptInProgress, "id", "busy")); tag != ftag.AlreadyExists {
		t.Errorf("in progress tag = %v, want %v", tag, ftag.AlreadyExists)
	}

	err := connectionError(context.Canceled, "id")
	if !errors.Is(err, ErrConnection) || !errors.Is(err, context.Canceled) {
		t.Errorf("connection error does not wrap its causes: %v", err)
	}
}
