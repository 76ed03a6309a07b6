package projectvalidate

import (
	"strings"
	"testing"

	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
)

func TestNormalizeAcceptsWellFormedM1(t *testing.T) {
	p := &project.Project{
		ClientID: "c1", Name: "Solar Farm", Methodology: project.M1,
		M1: &project.M1Params{ABD: []project.UnitItem{{Label: "row1", Value: 1}}, BufferPercent: 10},
	}
	if err := Normalize(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNormalizeCollectsMultipleFailures(t *testing.T) {
	p := &project.Project{Methodology: project.M1, M1: &project.M1Params{BufferPercent: 200}}
	err := Normalize(p)
	if err == nil {
		t.Fatal("expected an error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "clientId") || !strings.Contains(msg, "name is required") {
		t.Fatalf("expected multiple distinct failures in one error, got: %s", msg)
	}
}

func TestNormalizeRejectsMismatchedParamBlocks(t *testing.T) {
	p := &project.Project{
		ClientID: "c1", Name: "x", Methodology: project.M1,
		M1: &project.M1Params{},
		M2: &project.M2Params{},
	}
	if err := Normalize(p); err == nil {
		t.Fatal("expected an error for a stray m2 block under methodology M1")
	}
}

func TestNormalizeM2RequiresFrozenVariableConfigured(t *testing.T) {
	p := &project.Project{
		ClientID: "c1", Name: "x", Methodology: project.M2,
		M2: &project.M2Params{FormulaRef: project.FormulaRef{
			FormulaID:     "f1",
			VariableKinds: map[string]project.VariableRole{"EF": project.RoleFrozen},
			Variables:     map[string]project.FrozenVar{},
		}},
	}
	err := Normalize(p)
	if err == nil || !strings.Contains(err.Error(), "EF") {
		t.Fatalf("expected an error naming the unconfigured frozen symbol, got %v", err)
	}
}

func TestNormalizeM3RejectsDuplicateItemIDs(t *testing.T) {
	p := &project.Project{
		ClientID: "c1", Name: "x", Methodology: project.M3,
		M3: &project.M3Params{
			ProjectActivity: project.ActivityReduction,
			BaselineEmissions: []project.M3Item{
				{ID: "B1", FormulaID: "f1"},
				{ID: "B1", FormulaID: "f2"},
			},
		},
	}
	err := Normalize(p)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected a duplicate-id error, got %v", err)
	}
}
