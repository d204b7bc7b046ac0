package indexa

import (
	"errors"
	"fmt"
	"testing"

	"github.com/UndeffinedDev/Indexa/lib/engine"
)

func TestErrorUnwrapsToEngineCause(t *testing.T) {
	err := NewError(KindRequest, "add", engine.ErrKeyExists)

	if !errors.Is(err, engine.ErrKeyExists) {
		t.Errorf("errors.Is must reach the engine cause")
	}
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindRequest {
		t.Errorf("errors.As failed or wrong kind: %+v", e)
	}

	// kinds survive further wrapping
	wrapped := fmt.Errorf("outer: %w", err)
	if !IsKind(wrapped, KindRequest) {
		t.Errorf("IsKind must see through wrapping")
	}
	if IsKind(wrapped, KindOpen) {
		t.Errorf("IsKind matched the wrong kind")
	}
	if IsKind(nil, KindRequest) {
		t.Errorf("IsKind(nil) must be false")
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindOpen:        "OpenError",
		KindTransaction: "TransactionError",
		KindRequest:     "RequestError",
		KindBlocked:     "BlockedError",
	}
	for kind, want := range cases {
		if kind.String() != want {
			t.Errorf("%d.String() = %q, want %q", kind, kind.String(), want)
		}
	}
}
