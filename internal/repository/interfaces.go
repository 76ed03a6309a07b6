// Package repository defines the Reduction Repository boundary (C12): the
// storage interfaces every other component depends on, with memory
// (internal/repository/memory) and PostgreSQL (internal/repository/postgres)
// implementations.
package repository

import (
	"time"

	"github.com/GreonXpert/netreduction-engine/internal/domain/entry"
	"github.com/GreonXpert/netreduction-engine/internal/domain/formula"
	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
)

// ErrNotFound is returned by Get-style methods when the identified record
// does not exist (or is soft-deleted, for projects/entries).
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "not found" }

// ProjectRepository persists project configuration.
type ProjectRepository interface {
	Save(p *project.Project) error
	Get(clientID, projectID string) (*project.Project, error)
	List(clientID string) ([]*project.Project, error)
	Delete(clientID, projectID string) error
	NextSequence(clientID string) (int, error)
}

// DerivedUpdate is one row's recomputed series columns, for a bulk write.
type DerivedUpdate struct {
	EntryID    string
	Cumulative float64
	High       float64
	Low        float64
}

// EntryFilter scopes a paginated entry list.
type EntryFilter struct {
	ClientID    string
	ProjectID   string
	Methodology project.Methodology
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// EntryRepository persists ingested entries and their derived series
// columns.
type EntryRepository interface {
	Append(e *entry.Entry) error
	Get(id string) (*entry.Entry, error)
	Update(e *entry.Entry) error
	Delete(id string) error
	ListSeries(key entry.SeriesKey) ([]*entry.Entry, error)
	BulkUpdateDerived(updates []DerivedUpdate) error
	ListFiltered(filter EntryFilter) ([]*entry.Entry, error)
	ListForClientWindow(clientID string, from, to time.Time) ([]*entry.Entry, error)
}

// FormulaRepository persists formula definitions. GetFormula satisfies
// internal/methodology.FormulaLookup directly.
type FormulaRepository interface {
	GetFormula(id string) (*formula.Formula, error)
	Save(f *formula.Formula) error
	List(clientID string) ([]*formula.Formula, error)
}

// SummaryRepository persists the period and legacy client summary
// documents produced by the Summary Engine.
type SummaryRepository interface {
	UpsertPeriodSummary(clientID, period, windowKey string, summaryJSON []byte) error
	GetPeriodSummary(clientID, period, windowKey string) ([]byte, bool, error)
	UpsertClientSummary(clientID string, summaryJSON []byte) error
	GetClientSummary(clientID string) ([]byte, bool, error)
}

// Repository aggregates every storage boundary the engine depends on.
type Repository interface {
	Projects() ProjectRepository
	Entries() EntryRepository
	Formulas() FormulaRepository
	Summaries() SummaryRepository
}
