// Package postgres implements internal/repository's storage interfaces
// backed by PostgreSQL via jmoiron/sqlx and lib/pq, storing the
// methodology-specific payload blocks as JSONB alongside queryable top-level
// columns.
package postgres

import (
	"context"
	"time"

	core "github.com/GreonXpert/netreduction-engine/internal/core/service"
	"github.com/GreonXpert/netreduction-engine/internal/repository"
	"github.com/jmoiron/sqlx"
)

// ioRetryPolicy covers transient connection errors (a dropped connection, a
// brief network blip) on writes. A driver error here means the command
// never committed, so retrying is safe; it is not used on reads where a
// stale cached plan could otherwise mask a real schema problem.
var ioRetryPolicy = core.RetryPolicy{
	Attempts:       3,
	InitialBackoff: 25 * time.Millisecond,
	MaxBackoff:     250 * time.Millisecond,
	Multiplier:     2,
}

func retryIO(fn func() error) error {
	return core.Retry(context.Background(), ioRetryPolicy, fn)
}

// Store implements repository.Repository backed by a *sqlx.DB.
type Store struct {
	db *sqlx.DB
}

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

var _ repository.Repository = (*Store)(nil)

func (s *Store) Projects() repository.ProjectRepository { return projectStore{s.db} }
func (s *Store) Entries() repository.EntryRepository     { return entryStore{s.db} }
func (s *Store) Formulas() repository.FormulaRepository  { return formulaStore{s.db} }
func (s *Store) Summaries() repository.SummaryRepository { return summaryStore{s.db} }
