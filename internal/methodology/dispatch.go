package methodology

import (
	"time"

	"github.com/GreonXpert/netreduction-engine/internal/apperr"
	"github.com/GreonXpert/netreduction-engine/internal/domain/entry"
	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
)

// EntryInput is the tagged-variant ingestion payload: exactly one of M1, M2,
// M3 is set, matching the project's methodology.
type EntryInput struct {
	M1 *M1Input
	M2 *M2Input
	M3 *M3Input
}

// M1Input is the single scalar an M1 entry supplies.
type M1Input struct {
	InputValue float64
}

// M2Input is the submitted variable binding for an M2 entry.
type M2Input struct {
	FormulaID string
	Variables map[string]float64
}

// M3Input is the manual line-item inputs for an M3 entry.
type M3Input struct {
	Manual M3ManualInputs
}

// Evaluate dispatches on the project's methodology and produces the
// entry-level payload and netReduction. Timestamp is the entry's canonical
// timestamp (used by M2's Frozen-Variable Resolver).
func Evaluate(p *project.Project, formulas FormulaLookup, input EntryInput, timestamp time.Time) (*entry.Entry, error) {
	result := &entry.Entry{Methodology: p.Methodology}

	switch p.Methodology {
	case project.M1:
		if input.M1 == nil {
			return nil, apperr.New(apperr.ValidationError, "methodology M1 requires an inputValue")
		}
		net, rate, err := EvaluateM1(p, input.M1.InputValue)
		if err != nil {
			return nil, err
		}
		result.M1 = &entry.M1Payload{InputValue: input.M1.InputValue, EmissionReductionRate: rate}
		result.NetReduction = net

	case project.M2:
		if input.M2 == nil {
			return nil, apperr.New(apperr.ValidationError, "methodology M2 requires submitted variables")
		}
		m2, err := EvaluateM2(p, formulas, input.M2.Variables, timestamp)
		if err != nil {
			return nil, err
		}
		result.M2 = &entry.M2Payload{
			FormulaID:             p.M2.FormulaRef.FormulaID,
			Variables:             input.M2.Variables,
			NetReductionInFormula: m2.NetReductionInFormula,
		}
		result.NetReduction = m2.NetReduction

	case project.M3:
		if input.M3 == nil {
			return nil, apperr.New(apperr.ValidationError, "methodology M3 requires manual line-item inputs")
		}
		m3, err := EvaluateM3(p, formulas, input.M3.Manual)
		if err != nil {
			return nil, err
		}
		result.M3 = &entry.M3Payload{
			BETotal:               m3.BETotal,
			PETotal:               m3.PETotal,
			LETotal:               m3.LETotal,
			BufferPercent:         p.M3.BufferPercent,
			NetWithoutUncertainty: m3.NetWithoutUncertainty,
			NetWithUncertainty:    m3.NetWithUncertainty,
			BaselineBreakdown:     toBreakdown(m3.Baseline),
			ProjectBreakdown:      toBreakdown(m3.Project),
			LeakageBreakdown:      toBreakdown(m3.Leakage),
		}
		result.NetReduction = m3.NetWithUncertainty

	default:
		return nil, apperr.New(apperr.ValidationError, "unknown methodology %q", p.Methodology)
	}

	return result, nil
}

func toBreakdown(items []M3ItemResult) []entry.M3ItemBreakdown {
	out := make([]entry.M3ItemBreakdown, len(items))
	for i, it := range items {
		out[i] = entry.M3ItemBreakdown{ItemID: it.ItemID, Label: it.Label, Value: it.Value}
	}
	return out
}
