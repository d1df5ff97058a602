package scanerrors

import (
	"context"
	"errors"
	"testing"
)

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindTransientIO, "mmapfile.Open", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to see through to cause")
	}
	se, ok := As(err)
	if !ok {
		t.Fatalf("expected As to succeed")
	}
	if se.Kind != KindTransientIO {
		t.Fatalf("got kind %v, want KindTransientIO", se.Kind)
	}
}

func TestKindOfUnknownError(t *testing.T) {
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatalf("expected KindUnknown for a plain error")
	}
}

func TestIsRetriable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{Wrap(KindTransientIO, "op", nil), true},
		{Wrap(KindCancelled, "op", context.Canceled), false},
		{Wrap(KindCircuitOpen, "op", nil), false},
		{Wrap(KindInvalidInput, "op", nil), false},
		{Wrap(KindFatal, "op", nil), false},
		{Wrap(KindNotFound, "op", nil), true},
		{ErrCancelled, false},
	}
	for _, c := range cases {
		if got := IsRetriable(c.err); got != c.want {
			t.Errorf("IsRetriable(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}
