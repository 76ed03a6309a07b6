package expr

import (
	"testing"

	"github.com/GreonXpert/netreduction-engine/internal/apperr"
)

func TestEvaluateBasicArithmetic(t *testing.T) {
	got, err := Evaluate("rate * inputValue + 2", Binding{"rate": 2.5, "inputValue": 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 12 {
		t.Fatalf("got %v, want 12", got)
	}
}

func TestEvaluateFunctions(t *testing.T) {
	got, err := Evaluate("max(a, b) - min(a, b)", Binding{"a": 3, "b": 9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 6 {
		t.Fatalf("got %v, want 6", got)
	}
}

func TestEvaluateMissingVariableFails(t *testing.T) {
	_, err := Evaluate("a + b", Binding{"a": 1})
	if err == nil {
		t.Fatal("expected an error for unbound identifier b")
	}
	if apperr.KindOf(err) != apperr.MissingVariableKind {
		t.Fatalf("got kind %v, want MissingVariableKind", apperr.KindOf(err))
	}
}

func TestEvaluateNonFiniteCoercesToZero(t *testing.T) {
	got, err := Evaluate("a / b", Binding{"a": 1, "b": 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Fatalf("got %v, want 0 for a division by zero result", got)
	}
}

func TestIdentifiersExcludesFunctionNames(t *testing.T) {
	parsed, err := Parse("sqrt(x) + pow(y, 2)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := parsed.Identifiers()
	want := map[string]bool{"x": true, "y": true}
	if len(ids) != len(want) {
		t.Fatalf("got identifiers %v, want keys of %v", ids, want)
	}
	for _, id := range ids {
		if !want[id] {
			t.Fatalf("unexpected identifier %q", id)
		}
	}
}

func TestParseCachedReusesAST(t *testing.T) {
	first, err := ParseCached("f1", 1, "a + b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ParseCached("f1", 1, "a + b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatal("expected the same cached *Expression pointer for an unchanged (formulaID, version)")
	}

	Invalidate("f1", 1)
	third, err := ParseCached("f1", 1, "a + b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if third == first {
		t.Fatal("expected a fresh *Expression after Invalidate")
	}
}

func TestParseCachedDistinctVersionsDoNotCollide(t *testing.T) {
	v1, err := ParseCached("f2", 1, "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v2, err := ParseCached("f2", 2, "a + b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v1 == v2 {
		t.Fatal("expected distinct cache entries for distinct versions")
	}
}

func TestInvalidExpressionFails(t *testing.T) {
	if _, err := Parse("a +* b"); err == nil {
		t.Fatal("expected a parse error for malformed expression")
	}
}
