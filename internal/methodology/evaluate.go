package methodology

import (
	"fmt"
	"strconv"
	"time"

	"github.com/GreonXpert/netreduction-engine/internal/apperr"
	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
	"github.com/GreonXpert/netreduction-engine/internal/expr"
	"github.com/GreonXpert/netreduction-engine/internal/frozenvar"
	"github.com/GreonXpert/netreduction-engine/internal/round"
)

// EvaluateM1 computes netReduction = round6(inputValue * project rate). The
// rate is the project's precomputed emissionReductionRate at write time; the
// caller is responsible for snapshotting it onto the entry so later project
// edits never retroactively change an already-written entry.
func EvaluateM1(p *project.Project, inputValue float64) (netReduction, rate float64, err error) {
	if p.M1 == nil {
		return 0, 0, apperr.New(apperr.ValidationError, "project %s has no M1 parameters", p.ProjectID)
	}
	rate = p.M1.EmissionReductionRate
	return round.Round6(inputValue * rate), rate, nil
}

// M2Result is the intermediate and final output of an M2 evaluation.
type M2Result struct {
	NetReductionInFormula float64
	LE                    float64
	NetReduction          float64
}

// EvaluateM2 builds the binding (submitted variables plus resolved frozen
// symbols), evaluates the project's bound formula, and subtracts the
// project's precomputed leakage.
func EvaluateM2(p *project.Project, formulas FormulaLookup, submitted map[string]float64, timestamp time.Time) (M2Result, error) {
	if p.M2 == nil {
		return M2Result{}, apperr.New(apperr.ValidationError, "project %s has no M2 parameters", p.ProjectID)
	}

	binding := expr.Binding{}
	for k, v := range submitted {
		binding[k] = v
	}

	for symbol, role := range p.M2.FormulaRef.VariableKinds {
		if role != project.RoleFrozen {
			continue
		}
		value, err := frozenvar.Resolve(p, symbol, timestamp)
		if err != nil {
			return M2Result{}, err
		}
		binding[symbol] = value
	}

	f, err := formulas.GetFormula(p.M2.FormulaRef.FormulaID)
	if err != nil {
		return M2Result{}, apperr.Wrap(apperr.FormulaNotFound, err, "formula %s not found", p.M2.FormulaRef.FormulaID)
	}

	parsed, err := expr.ParseCached(f.ID, f.Version, f.Expression)
	if err != nil {
		return M2Result{}, err
	}

	netInFormula, err := parsed.Evaluate(binding)
	if err != nil {
		return M2Result{}, err
	}
	netInFormula = round.Round6(netInFormula)

	le := p.M2.LE
	return M2Result{
		NetReductionInFormula: netInFormula,
		LE:                    le,
		NetReduction:          round.Round6(netInFormula - le),
	}, nil
}

// M3ManualInputs is the manual variable payload for an M3 entry, keyed by
// item id then variable name, as submitted on the wire (float64, int, or
// numeric string accepted; anything else is a validation error).
type M3ManualInputs map[string]map[string]interface{}

// M3ItemResult is one evaluated baseline/project/leakage item.
type M3ItemResult struct {
	ItemID string
	Label  string
	Value  float64
}

// M3Result is the full evaluation output for an M3 entry.
type M3Result struct {
	BETotal               float64
	PETotal               float64
	LETotal               float64
	NetWithoutUncertainty float64
	NetWithUncertainty    float64
	Baseline              []M3ItemResult
	Project               []M3ItemResult
	Leakage               []M3ItemResult
}

// EvaluateM3 evaluates every baseline/project/leakage item independently
// (items may reference each other via "internal" variables) and aggregates
// the three totals into a buffer-discounted net reduction.
func EvaluateM3(p *project.Project, formulas FormulaLookup, manual M3ManualInputs) (M3Result, error) {
	if p.M3 == nil {
		return M3Result{}, apperr.New(apperr.ValidationError, "project %s has no M3 parameters", p.ProjectID)
	}

	byID := map[string]*project.M3Item{}
	for i := range p.M3.BaselineEmissions {
		byID[p.M3.BaselineEmissions[i].ID] = &p.M3.BaselineEmissions[i]
	}
	for i := range p.M3.ProjectEmissions {
		byID[p.M3.ProjectEmissions[i].ID] = &p.M3.ProjectEmissions[i]
	}
	for i := range p.M3.LeakageEmissions {
		byID[p.M3.LeakageEmissions[i].ID] = &p.M3.LeakageEmissions[i]
	}

	ev := &m3evaluator{
		formulas: formulas,
		manual:   manual,
		byID:     byID,
		memo:     map[string]float64{},
		visiting: map[string]bool{},
	}

	result := M3Result{}

	evalGroup := func(items []project.M3Item) ([]M3ItemResult, float64, error) {
		var out []M3ItemResult
		var total float64
		for _, it := range items {
			v, err := ev.evaluate(it.ID)
			if err != nil {
				return nil, 0, err
			}
			out = append(out, M3ItemResult{ItemID: it.ID, Label: it.Label, Value: v})
			total += v
		}
		return out, round.Round6(total), nil
	}

	var err error
	result.Baseline, result.BETotal, err = evalGroup(p.M3.BaselineEmissions)
	if err != nil {
		return M3Result{}, err
	}
	result.Project, result.PETotal, err = evalGroup(p.M3.ProjectEmissions)
	if err != nil {
		return M3Result{}, err
	}
	result.Leakage, result.LETotal, err = evalGroup(p.M3.LeakageEmissions)
	if err != nil {
		return M3Result{}, err
	}

	rawNet := result.BETotal - result.PETotal - result.LETotal
	result.NetWithoutUncertainty = round.Round6(rawNet)
	result.NetWithUncertainty = round.Round6(rawNet * (1 - p.M3.BufferPercent/100))
	return result, nil
}

// m3evaluator evaluates one M3 item's formula, memoizing results so an item
// referenced by multiple "internal" variables is only evaluated once, and
// detecting reference cycles.
type m3evaluator struct {
	formulas FormulaLookup
	manual   M3ManualInputs
	byID     map[string]*project.M3Item
	memo     map[string]float64
	visiting map[string]bool
}

func (ev *m3evaluator) evaluate(itemID string) (float64, error) {
	if v, ok := ev.memo[itemID]; ok {
		return v, nil
	}
	if ev.visiting[itemID] {
		return 0, apperr.New(apperr.ValidationError, "cyclic internal variable reference at item %s", itemID)
	}
	ev.visiting[itemID] = true
	defer delete(ev.visiting, itemID)

	item, ok := ev.byID[itemID]
	if !ok {
		return 0, apperr.New(apperr.NotFound, "m3 item %s not found", itemID)
	}

	f, err := ev.formulas.GetFormula(item.FormulaID)
	if err != nil {
		return 0, apperr.Wrap(apperr.FormulaNotFound, err, "formula %s not found for item %s", item.FormulaID, itemID)
	}

	binding := expr.Binding{}
	for _, v := range item.Variables {
		value, err := ev.bindVariable(itemID, v)
		if err != nil {
			return 0, err
		}
		binding[v.Name] = value
	}

	parsed, err := expr.ParseCached(f.ID, f.Version, f.Expression)
	if err != nil {
		return 0, err
	}
	result, err := parsed.Evaluate(binding)
	if err != nil {
		return 0, err
	}

	value := round.Round6(result)
	ev.memo[itemID] = value
	return value, nil
}

func (ev *m3evaluator) bindVariable(itemID string, v project.M3Variable) (float64, error) {
	switch v.Type {
	case project.M3VarConstant:
		if v.Value == nil {
			return 0, apperr.New(apperr.ValidationError, "constant variable %s on item %s has no value", v.Name, itemID)
		}
		return *v.Value, nil

	case project.M3VarManual:
		raw, ok := ev.manual[itemID][v.Name]
		if !ok {
			return 0, apperr.MissingManual(itemID, v.Name)
		}
		return toFloat(raw, itemID, v.Name)

	case project.M3VarInternal:
		var total float64
		for _, src := range v.InternalSources {
			sv, err := ev.evaluate(src)
			if err != nil {
				return 0, err
			}
			total += sv
		}
		return total, nil

	default:
		return 0, apperr.New(apperr.ValidationError, "unknown variable type %q for %s on item %s", v.Type, v.Name, itemID)
	}
}

func toFloat(raw interface{}, itemID, name string) (float64, error) {
	switch x := raw.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case string:
		if x == "" {
			return 0, apperr.MissingManual(itemID, name)
		}
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, apperr.New(apperr.ValidationError, "manual value %s for item %s must be numeric", name, itemID)
		}
		return f, nil
	case nil:
		return 0, apperr.MissingManual(itemID, name)
	default:
		return 0, apperr.New(apperr.ValidationError, "manual value %s for item %s has unsupported type %s", name, itemID, fmt.Sprintf("%T", raw))
	}
}
