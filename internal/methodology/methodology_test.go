package methodology

import (
	"testing"
	"time"

	"github.com/GreonXpert/netreduction-engine/internal/apperr"
	"github.com/GreonXpert/netreduction-engine/internal/domain/formula"
	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
)

type fakeFormulas map[string]*formula.Formula

func (f fakeFormulas) GetFormula(id string) (*formula.Formula, error) {
	ff, ok := f[id]
	if !ok {
		return nil, apperr.New(apperr.FormulaNotFound, "formula %s not found", id)
	}
	return ff, nil
}

func TestRecomputeM1(t *testing.T) {
	m1 := &project.M1Params{
		ABD:           []project.UnitItem{{Value: 100, EF: 1, GWP: 1, AF: 1, UncertaintyPct: 0}},
		APD:           []project.UnitItem{{Value: 50, EF: 1, GWP: 1, AF: 1, UncertaintyPct: 0}},
		BufferPercent: 0,
	}
	RecomputeM1(m1)
	if m1.BE != 100 || m1.PE != 50 || m1.ER != 50 {
		t.Fatalf("unexpected derived scalars: %+v", m1)
	}
	if m1.CAPD != 50 {
		t.Fatalf("CAPD = %v, want 50", m1.CAPD)
	}
	if m1.EmissionReductionRate != 1 {
		t.Fatalf("rate = %v, want 1", m1.EmissionReductionRate)
	}
}

// S1: project with rate = 0.5; insert value = 10 -> netReduction = 5.0.
func TestEvaluateM1Scenario(t *testing.T) {
	p := &project.Project{
		Methodology: project.M1,
		M1:          &project.M1Params{EmissionReductionRate: 0.5},
	}
	net, rate, err := EvaluateM1(p, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate != 0.5 || net != 5 {
		t.Fatalf("got net=%v rate=%v, want net=5 rate=0.5", net, rate)
	}
}

// S3: formula E = A * B, A frozen monthly with history giving A=10 in
// March, B realtime = 3, project LE = 1 -> netInFormula = 30, netReduction = 29.
func TestEvaluateM2Scenario(t *testing.T) {
	fromDate := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &project.Project{
		Methodology: project.M2,
		M2: &project.M2Params{
			LE: 1,
			FormulaRef: project.FormulaRef{
				FormulaID: "f-e",
				Version:   1,
				VariableKinds: map[string]project.VariableRole{
					"A": project.RoleFrozen,
					"B": project.RoleRealtime,
				},
				Variables: map[string]project.FrozenVar{
					"A": {
						Value: 999,
						Policy: project.Policy{
							Schedule: project.Schedule{Frequency: project.FrequencyMonthly, FromDate: &fromDate},
						},
						History: []project.HistoryEntry{
							{Value: 10, From: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
							{Value: 20, From: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
						},
					},
				},
			},
		},
	}
	formulas := fakeFormulas{"f-e": {ID: "f-e", Version: 1, Expression: "A * B"}}

	result, err := EvaluateM2(p, formulas, map[string]float64{"B": 3}, time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NetReductionInFormula != 30 {
		t.Fatalf("netInFormula = %v, want 30", result.NetReductionInFormula)
	}
	if result.NetReduction != 29 {
		t.Fatalf("netReduction = %v, want 29", result.NetReduction)
	}
}

// S4: same formula, missing B -> rejected with MissingVariable("B").
func TestEvaluateM2MissingVariableFails(t *testing.T) {
	p := &project.Project{
		Methodology: project.M2,
		M2: &project.M2Params{
			FormulaRef: project.FormulaRef{FormulaID: "f-e", Version: 1, VariableKinds: map[string]project.VariableRole{}},
		},
	}
	formulas := fakeFormulas{"f-e": {ID: "f-e", Version: 1, Expression: "A * B"}}

	_, err := EvaluateM2(p, formulas, map[string]float64{"A": 10}, time.Now())
	if apperr.KindOf(err) != apperr.MissingVariableKind {
		t.Fatalf("got kind %v, want MissingVariableKind", apperr.KindOf(err))
	}
}

// S5: M3 Reduction. B1 = EF_b * Q, EF_b=2 constant, Q=100 manual;
// P1 = EF_p * Q, EF_p=1 constant, Q=100 manual; no leakage; buffer=0.
func TestEvaluateM3ReductionScenario(t *testing.T) {
	efB := 2.0
	efP := 1.0
	p := &project.Project{
		Methodology: project.M3,
		M3: &project.M3Params{
			ProjectActivity: project.ActivityReduction,
			BufferPercent:   0,
			BaselineEmissions: []project.M3Item{{
				ID: "B1", FormulaID: "f-mul",
				Variables: []project.M3Variable{
					{Name: "EF_b", Type: project.M3VarConstant, Value: &efB},
					{Name: "Q", Type: project.M3VarManual},
				},
			}},
			ProjectEmissions: []project.M3Item{{
				ID: "P1", FormulaID: "f-mul2",
				Variables: []project.M3Variable{
					{Name: "EF_p", Type: project.M3VarConstant, Value: &efP},
					{Name: "Q", Type: project.M3VarManual},
				},
			}},
		},
	}
	formulas := fakeFormulas{
		"f-mul":  {ID: "f-mul", Version: 1, Expression: "EF_b * Q"},
		"f-mul2": {ID: "f-mul2", Version: 1, Expression: "EF_p * Q"},
	}
	manual := M3ManualInputs{
		"B1": {"Q": 100.0},
		"P1": {"Q": 100.0},
	}

	result, err := EvaluateM3(p, formulas, manual)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.BETotal != 200 || result.PETotal != 100 || result.LETotal != 0 {
		t.Fatalf("unexpected totals: %+v", result)
	}
	if result.NetWithoutUncertainty != 100 || result.NetWithUncertainty != 100 {
		t.Fatalf("unexpected net: %+v", result)
	}
}

// S6: same as S5 but Removal with buffer=10 -> netWithUncertainty = 90.
func TestEvaluateM3RemovalWithBuffer(t *testing.T) {
	efB := 2.0
	efP := 1.0
	p := &project.Project{
		Methodology: project.M3,
		M3: &project.M3Params{
			ProjectActivity: project.ActivityRemoval,
			BufferPercent:   10,
			BaselineEmissions: []project.M3Item{{
				ID: "B1", FormulaID: "f-mul",
				Variables: []project.M3Variable{
					{Name: "EF_b", Type: project.M3VarConstant, Value: &efB},
					{Name: "Q", Type: project.M3VarManual},
				},
			}},
			ProjectEmissions: []project.M3Item{{
				ID: "P1", FormulaID: "f-mul2",
				Variables: []project.M3Variable{
					{Name: "EF_p", Type: project.M3VarConstant, Value: &efP},
					{Name: "Q", Type: project.M3VarManual},
				},
			}},
		},
	}
	formulas := fakeFormulas{
		"f-mul":  {ID: "f-mul", Version: 1, Expression: "EF_b * Q"},
		"f-mul2": {ID: "f-mul2", Version: 1, Expression: "EF_p * Q"},
	}
	manual := M3ManualInputs{
		"B1": {"Q": 100.0},
		"P1": {"Q": 100.0},
	}

	result, err := EvaluateM3(p, formulas, manual)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NetWithUncertainty != 90 {
		t.Fatalf("netWithUncertainty = %v, want 90", result.NetWithUncertainty)
	}
}

func TestEvaluateM3MissingManualFails(t *testing.T) {
	efB := 2.0
	p := &project.Project{
		Methodology: project.M3,
		M3: &project.M3Params{
			BaselineEmissions: []project.M3Item{{
				ID: "B1", FormulaID: "f-mul",
				Variables: []project.M3Variable{
					{Name: "EF_b", Type: project.M3VarConstant, Value: &efB},
					{Name: "Q", Type: project.M3VarManual},
				},
			}},
		},
	}
	formulas := fakeFormulas{"f-mul": {ID: "f-mul", Version: 1, Expression: "EF_b * Q"}}

	_, err := EvaluateM3(p, formulas, M3ManualInputs{})
	if apperr.KindOf(err) != apperr.ValidationError {
		t.Fatalf("got kind %v, want ValidationError (MissingManual)", apperr.KindOf(err))
	}
}

func TestEvaluateM3InternalVariableSumsReferencedItems(t *testing.T) {
	a := 5.0
	b := 7.0
	p := &project.Project{
		Methodology: project.M3,
		M3: &project.M3Params{
			BaselineEmissions: []project.M3Item{
				{ID: "B1", FormulaID: "f-const", Variables: []project.M3Variable{{Name: "x", Type: project.M3VarConstant, Value: &a}}},
				{ID: "B2", FormulaID: "f-const", Variables: []project.M3Variable{{Name: "x", Type: project.M3VarConstant, Value: &b}}},
				{ID: "B3", FormulaID: "f-identity", Variables: []project.M3Variable{{Name: "total", Type: project.M3VarInternal, InternalSources: []string{"B1", "B2"}}}},
			},
		},
	}
	formulas := fakeFormulas{
		"f-const":    {ID: "f-const", Version: 1, Expression: "x"},
		"f-identity": {ID: "f-identity", Version: 1, Expression: "total"},
	}

	result, err := EvaluateM3(p, formulas, M3ManualInputs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.BETotal != 24 { // 5 + 7 + (5+7)
		t.Fatalf("BETotal = %v, want 24", result.BETotal)
	}
}

func TestDispatchEvaluateM1(t *testing.T) {
	p := &project.Project{Methodology: project.M1, M1: &project.M1Params{EmissionReductionRate: 2}}
	e, err := Evaluate(p, fakeFormulas{}, EntryInput{M1: &M1Input{InputValue: 3}}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.NetReduction != 6 {
		t.Fatalf("NetReduction = %v, want 6", e.NetReduction)
	}
}
