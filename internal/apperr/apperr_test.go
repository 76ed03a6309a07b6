package apperr

import (
	"errors"
	"testing"
)

func TestKindOf(t *testing.T) {
	if got := KindOf(nil); got != "" {
		t.Fatalf("KindOf(nil) = %q, want empty", got)
	}
	if got := KindOf(errors.New("boom")); got != Internal {
		t.Fatalf("KindOf(plain error) = %q, want Internal", got)
	}
	err := MissingVariable("B")
	if got := KindOf(err); got != MissingVariableKind {
		t.Fatalf("KindOf(MissingVariable) = %q, want %q", got, MissingVariableKind)
	}
	if err.Error() != "missing variable: B" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestWithRow(t *testing.T) {
	base := New(ValidationError, "value must be numeric")
	rowed := base.WithRow(2)
	if base.Row != 0 {
		t.Fatal("WithRow must not mutate the receiver")
	}
	if rowed.Error() != "row 2: value must be numeric" {
		t.Fatalf("unexpected row-annotated message: %s", rowed.Error())
	}
}

func TestWrapPreservesUnderlyingError(t *testing.T) {
	underlying := errors.New("db down")
	wrapped := Wrap(Internal, underlying, "load project")
	if !errors.Is(wrapped, underlying) {
		t.Fatal("expected errors.Is to see through Wrap")
	}
}
