// Package expr implements a restricted arithmetic expression engine: numeric
// literals, identifiers, the four basic operators, parentheses, and a small
// fixed set of math functions, evaluated against a caller-supplied numeric
// binding with no side effects and no access outside that binding.
//
// Parsing is delegated to github.com/PaesslerAG/gval, restricted to its
// Arithmetic base language plus a closed set of registered functions so the
// grammar stays deliberately small. Parsed expressions are cached
// process-wide by (formulaID, version) so repeat evaluations of the same
// formula never re-parse.
package expr

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sync"

	"github.com/GreonXpert/netreduction-engine/internal/apperr"
	"github.com/PaesslerAG/gval"
)

// language is the closed arithmetic grammar: +, -, *, /, parentheses,
// numeric literals, identifiers, and a fixed set of unary/binary functions.
var language = gval.NewLanguage(
	gval.Arithmetic(),
	gval.Function("abs", func(args ...interface{}) (interface{}, error) { return math.Abs(toFloat(args[0])), nil }),
	gval.Function("sqrt", func(args ...interface{}) (interface{}, error) { return math.Sqrt(toFloat(args[0])), nil }),
	gval.Function("pow", func(args ...interface{}) (interface{}, error) {
		return math.Pow(toFloat(args[0]), toFloat(args[1])), nil
	}),
	gval.Function("min", func(args ...interface{}) (interface{}, error) { return math.Min(toFloat(args[0]), toFloat(args[1])), nil }),
	gval.Function("max", func(args ...interface{}) (interface{}, error) { return math.Max(toFloat(args[0]), toFloat(args[1])), nil }),
	gval.Function("ln", func(args ...interface{}) (interface{}, error) { return math.Log(toFloat(args[0])), nil }),
	gval.Function("log10", func(args ...interface{}) (interface{}, error) { return math.Log10(toFloat(args[0])), nil }),
	gval.Function("exp", func(args ...interface{}) (interface{}, error) { return math.Exp(toFloat(args[0])), nil }),
	gval.Function("floor", func(args ...interface{}) (interface{}, error) { return math.Floor(toFloat(args[0])), nil }),
	gval.Function("ceil", func(args ...interface{}) (interface{}, error) { return math.Ceil(toFloat(args[0])), nil }),
)

func toFloat(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}

// identifierPattern matches bare identifiers; a following '(' marks a
// function call rather than a variable reference.
var identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

var knownFunctions = map[string]bool{
	"abs": true, "sqrt": true, "pow": true, "min": true, "max": true,
	"ln": true, "log10": true, "exp": true, "floor": true, "ceil": true,
}

// Binding maps identifier names to numeric values for one evaluation.
type Binding map[string]float64

// Expression is a parsed, cacheable formula.
type Expression struct {
	source      string
	evaluable   gval.Evaluable
	identifiers []string
}

var cache sync.Map // key -> *Expression

// cacheKey identifies a parsed expression by formula id and version so a
// formula update invalidates only its own entry.
func cacheKey(formulaID string, version int) string {
	return fmt.Sprintf("%s@%d", formulaID, version)
}

// Parse compiles expression once and returns the reusable result without
// caching it. Callers that don't have a stable (formulaID, version) key
// (e.g. ad hoc M3 item formulas) use Parse; ParseCached should be used
// instead whenever a stable cache key is available.
func Parse(source string) (*Expression, error) {
	evaluable, err := language.NewEvaluable(source)
	if err != nil {
		return nil, apperr.Wrap(apperr.ValidationError, err, "invalid expression: %s", source)
	}
	return &Expression{
		source:      source,
		evaluable:   evaluable,
		identifiers: freeIdentifiers(source),
	}, nil
}

// ParseCached returns the parsed Expression for (formulaID, version, source),
// parsing and caching it on first use. Subsequent calls with the same key
// reuse the cached AST even if source is re-supplied (callers should bump
// version on any expression edit).
func ParseCached(formulaID string, version int, source string) (*Expression, error) {
	key := cacheKey(formulaID, version)
	if v, ok := cache.Load(key); ok {
		return v.(*Expression), nil
	}
	parsed, err := Parse(source)
	if err != nil {
		return nil, err
	}
	cache.Store(key, parsed)
	return parsed, nil
}

// Invalidate drops any cached parse for (formulaID, version), forcing the
// next ParseCached call to re-parse. Call this when a formula's expression
// text changes under a version that was already cached (e.g. a draft edit).
func Invalidate(formulaID string, version int) {
	cache.Delete(cacheKey(formulaID, version))
}

// Identifiers returns the free identifiers referenced by the expression
// (function names are excluded).
func (e *Expression) Identifiers() []string {
	out := make([]string, len(e.identifiers))
	copy(out, e.identifiers)
	return out
}

// Evaluate binds the expression's free identifiers against binding and
// returns the numeric result. Any identifier not present in binding fails
// with apperr.MissingVariable before gval ever runs. Non-finite results
// coerce to 0.
func (e *Expression) Evaluate(binding Binding) (float64, error) {
	for _, name := range e.identifiers {
		if _, ok := binding[name]; !ok {
			return 0, apperr.MissingVariable(name)
		}
	}

	params := make(map[string]interface{}, len(binding))
	for k, v := range binding {
		params[k] = v
	}

	result, err := e.evaluable.EvalFloat64(context.Background(), params)
	if err != nil {
		return 0, apperr.Wrap(apperr.ValidationError, err, "evaluate expression %q", e.source)
	}

	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, nil
	}
	return result, nil
}

// Evaluate is a convenience one-shot helper for callers that don't need
// caching (e.g. evaluating a literal expression once).
func Evaluate(source string, binding Binding) (float64, error) {
	parsed, err := Parse(source)
	if err != nil {
		return 0, err
	}
	return parsed.Evaluate(binding)
}

func freeIdentifiers(source string) []string {
	seen := map[string]bool{}
	var out []string
	matches := identifierPattern.FindAllStringIndex(source, -1)
	for _, m := range matches {
		name := source[m[0]:m[1]]
		if knownFunctions[name] {
			continue
		}
		// Skip if immediately followed (ignoring whitespace) by '(' — that's
		// a call to an unregistered function, which gval will reject at
		// evaluation time anyway; we don't want to treat it as a variable.
		rest := source[m[1]:]
		i := 0
		for i < len(rest) && (rest[i] == ' ' || rest[i] == '\t') {
			i++
		}
		if i < len(rest) && rest[i] == '(' {
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
