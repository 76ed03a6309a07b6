// Package projectvalidate is the pure project validator/normalizer called
// out in spec §9's re-architecture guidance: split the source's single
// pre-validate hook into (a) this validator reporting every structural problem,
// (b) internal/idgen for sequence-assigned ids, and (c)
// internal/methodology's RecomputeM1/RecomputeM2Leakage for the derived
// M1/M2 scalars. Normalize runs every failing check before returning so the
// caller sees every problem in one pass, not just the first.
package projectvalidate

import (
	"github.com/hashicorp/go-multierror"

	"github.com/GreonXpert/netreduction-engine/internal/apperr"
	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
)

// Normalize checks p's required fields and methodology-specific parameter
// block for structural consistency, returning every failure found (wrapped
// in a single apperr.ValidationError) or nil if p is well-formed.
func Normalize(p *project.Project) error {
	var errs *multierror.Error

	if p.ClientID == "" {
		errs = multierror.Append(errs, apperr.New(apperr.ValidationError, "clientId is required"))
	}
	if p.Name == "" {
		errs = multierror.Append(errs, apperr.New(apperr.ValidationError, "name is required"))
	}

	switch p.Methodology {
	case project.M1:
		if p.M1 == nil {
			errs = multierror.Append(errs, apperr.New(apperr.ValidationError, "methodology M1 requires an m1 parameter block"))
		} else {
			errs = appendUnitItemErrors(errs, "ABD", p.M1.ABD)
			errs = appendUnitItemErrors(errs, "APD", p.M1.APD)
			errs = appendUnitItemErrors(errs, "ALD", p.M1.ALD)
			if p.M1.BufferPercent < 0 || p.M1.BufferPercent > 100 {
				errs = multierror.Append(errs, apperr.New(apperr.ValidationError, "m1.bufferPercent must be within [0, 100]"))
			}
		}
		if p.M2 != nil || p.M3 != nil {
			errs = multierror.Append(errs, apperr.New(apperr.ValidationError, "only the m1 parameter block may be set for methodology M1"))
		}

	case project.M2:
		if p.M2 == nil {
			errs = multierror.Append(errs, apperr.New(apperr.ValidationError, "methodology M2 requires an m2 parameter block"))
		} else {
			errs = appendUnitItemErrors(errs, "ALD", p.M2.ALD)
			if p.M2.FormulaRef.FormulaID == "" {
				errs = multierror.Append(errs, apperr.New(apperr.ValidationError, "m2.formulaRef.formulaId is required"))
			}
			for symbol, role := range p.M2.FormulaRef.VariableKinds {
				if role == project.RoleFrozen {
					if _, ok := p.M2.FormulaRef.Variables[symbol]; !ok {
						errs = multierror.Append(errs, apperr.New(apperr.ValidationError, "symbol %q is declared frozen but has no configured FrozenVar", symbol))
					}
				}
			}
		}
		if p.M1 != nil || p.M3 != nil {
			errs = multierror.Append(errs, apperr.New(apperr.ValidationError, "only the m2 parameter block may be set for methodology M2"))
		}

	case project.M3:
		if p.M3 == nil {
			errs = multierror.Append(errs, apperr.New(apperr.ValidationError, "methodology M3 requires an m3 parameter block"))
		} else {
			if p.M3.ProjectActivity != project.ActivityReduction && p.M3.ProjectActivity != project.ActivityRemoval {
				errs = multierror.Append(errs, apperr.New(apperr.ValidationError, "m3.projectActivity must be Reduction or Removal"))
			}
			errs = appendM3ItemErrors(errs, "baselineEmissions", p.M3.BaselineEmissions)
			errs = appendM3ItemErrors(errs, "projectEmissions", p.M3.ProjectEmissions)
			errs = appendM3ItemErrors(errs, "leakageEmissions", p.M3.LeakageEmissions)
		}
		if p.M1 != nil || p.M2 != nil {
			errs = multierror.Append(errs, apperr.New(apperr.ValidationError, "only the m3 parameter block may be set for methodology M3"))
		}

	default:
		errs = multierror.Append(errs, apperr.New(apperr.ValidationError, "methodology must be one of M1, M2, M3"))
	}

	if errs == nil || errs.Len() == 0 {
		return nil
	}
	return apperr.Wrap(apperr.ValidationError, errs.ErrorOrNil(), "project %s failed validation", p.Name)
}

func appendUnitItemErrors(errs *multierror.Error, field string, items []project.UnitItem) *multierror.Error {
	for i, it := range items {
		if it.Label == "" {
			errs = multierror.Append(errs, apperr.New(apperr.ValidationError, "%s[%d].label is required", field, i))
		}
	}
	return errs
}

func appendM3ItemErrors(errs *multierror.Error, field string, items []project.M3Item) *multierror.Error {
	seen := map[string]bool{}
	for i, it := range items {
		if it.ID == "" {
			errs = multierror.Append(errs, apperr.New(apperr.ValidationError, "%s[%d].id is required", field, i))
			continue
		}
		if seen[it.ID] {
			errs = multierror.Append(errs, apperr.New(apperr.ValidationError, "%s has duplicate item id %q", field, it.ID))
		}
		seen[it.ID] = true
		if it.FormulaID == "" {
			errs = multierror.Append(errs, apperr.New(apperr.ValidationError, "%s[%d] (%s) requires a formulaId", field, i, it.ID))
		}
		for _, v := range it.Variables {
			if v.Type == project.M3VarConstant && v.Value == nil {
				errs = multierror.Append(errs, apperr.New(apperr.ValidationError, "%s item %s variable %s is constant but has no value", field, it.ID, v.Name))
			}
			if v.Type == project.M3VarInternal && len(v.InternalSources) == 0 {
				errs = multierror.Append(errs, apperr.New(apperr.ValidationError, "%s item %s variable %s is internal but names no source items", field, it.ID, v.Name))
			}
		}
	}
	return errs
}
