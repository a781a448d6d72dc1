package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapPreservesFirstKind(t *testing.T) {
	inner := New(KindAuth, "login", "credentials rejected")
	outer := Wrap(KindConnection, "connect", inner)

	if got := KindOf(outer); got != KindAuth {
		t.Errorf("KindOf() = %v, want %v", got, KindAuth)
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(KindStore, "insert", nil); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestKindOfUnclassified(t *testing.T) {
	err := errors.New("plain")
	if got := KindOf(err); got != KindUnknown {
		t.Errorf("KindOf() = %v, want %v", got, KindUnknown)
	}
}

func TestKindOfThroughWrapping(t *testing.T) {
	err := Wrap(KindProtocol, "fetch", errors.New("short response"))
	wrapped := fmt.Errorf("update mailbox: %w", err)

	if got := KindOf(wrapped); got != KindProtocol {
		t.Errorf("KindOf() = %v, want %v", got, KindProtocol)
	}
}

func TestIsDisconnect(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connection error", New(KindConnection, "fetch", "broken pipe"), true},
		{"auth error", New(KindAuth, "login", "rejected"), false},
		{"plain error", errors.New("whatever"), false},
		{"wrapped connection error", fmt.Errorf("op: %w", New(KindConnection, "select", "EOF")), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDisconnect(tt.err); got != tt.want {
				t.Errorf("IsDisconnect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorMessageIncludesOp(t *testing.T) {
	err := New(KindNotFound, "get_session", "no session 42")
	if got := err.Error(); got != "get_session: no session 42" {
		t.Errorf("Error() = %q", got)
	}
}
