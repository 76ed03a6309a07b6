// Package methodology dispatches entry evaluation on a project's
// methodology (M1/M2/M3) and recomputes the project-level scalars (M1 rate,
// M2 leakage) that entry evaluation reads at write time.
package methodology

import (
	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
	"github.com/GreonXpert/netreduction-engine/internal/round"
)

// RecomputeM1 recomputes the derived M1 scalars (BE, PE, LE, bufferEmission,
// ER, CAPD, emissionReductionRate) in place from the current ABD/APD/ALD
// sequences and bufferPercent. Called on every project save or validation.
func RecomputeM1(p *project.M1Params) {
	p.BE = sumWithUncertainty(p.ABD)
	p.PE = sumWithUncertainty(p.APD)
	p.LE = sumWithUncertainty(p.ALD)
	p.BufferEmission = round.Round6((p.BufferPercent / 100) * (p.BE - p.PE - p.LE))
	p.ER = round.Round6(p.BE - p.PE - p.LE - p.BufferEmission)
	p.CAPD = round.Round6(sumValue(p.APD))
	if p.CAPD > 0 {
		p.EmissionReductionRate = round.Round6(p.ER / p.CAPD)
	} else {
		p.EmissionReductionRate = 0
	}
}

// RecomputeM2Leakage recomputes M2's LE identically to M1's leakage sum,
// from m2.ALD. Stored on the project and read by every M2 entry write.
func RecomputeM2Leakage(p *project.M2Params) {
	p.LE = sumWithUncertainty(p.ALD)
}

func sumWithUncertainty(items []project.UnitItem) float64 {
	var total float64
	for _, it := range items {
		raw := it.Value * it.EF * it.GWP * it.AF
		total += raw * (1 + it.UncertaintyPct/100)
	}
	return round.Round6(total)
}

func sumValue(items []project.UnitItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Value
	}
	return total
}
