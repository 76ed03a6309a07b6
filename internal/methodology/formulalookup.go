package methodology

import "github.com/GreonXpert/netreduction-engine/internal/domain/formula"

// FormulaLookup resolves a formula by id. Implemented by
// internal/repository; kept as a narrow interface here so this package
// never depends on storage concerns.
type FormulaLookup interface {
	GetFormula(id string) (*formula.Formula, error)
}
