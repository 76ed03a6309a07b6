// Package store implements the Entry Store (C6): append, edit, and delete
// of individual entries. Derived series columns (cumulative/high/low) are
// never written here — they belong exclusively to the Series Recomputer
// (internal/recompute) and are left at their prior value (or zero, on
// append) until the next recompute runs.
package store

import (
	"github.com/GreonXpert/netreduction-engine/internal/apperr"
	"github.com/GreonXpert/netreduction-engine/internal/domain/entry"
	"github.com/GreonXpert/netreduction-engine/internal/repository"
	"github.com/google/uuid"
)

// Store is the Entry Store.
type Store struct {
	entries repository.EntryRepository
}

// New returns an Entry Store backed by repo.
func New(repo repository.EntryRepository) *Store {
	return &Store{entries: repo}
}

// Append assigns an id (if the caller didn't set one) and persists a newly
// evaluated entry. Derived columns start at zero; the caller must trigger a
// recompute of the entry's series afterward.
//
// Ids are UUIDv7, not v4: a series' tie-break on equal timestamp (spec
// §4.6) is insertion order, and only a time-ordered id sorts that way —
// two entries normalized to the same second by internal/timenorm are
// common, and a random v4 id would tie-break them nondeterministically.
func (s *Store) Append(e *entry.Entry) (*entry.Entry, error) {
	if e.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "generate entry id")
		}
		e.ID = id.String()
	}
	if err := s.entries.Append(e); err != nil {
		return nil, err
	}
	return e, nil
}

// Get loads one entry by id.
func (s *Store) Get(id string) (*entry.Entry, error) {
	return s.entries.Get(id)
}

// Edit replaces the methodology payload and evaluated fields of an existing
// manual entry, preserving its id, provenance, and derived columns (which
// the caller must recompute afterward). The series identity
// (client/project/methodology) of a manual entry never changes on edit.
func (s *Store) Edit(updated *entry.Entry) (*entry.Entry, error) {
	existing, err := s.entries.Get(updated.ID)
	if err != nil {
		return nil, err
	}
	if existing.ClientID != updated.ClientID || existing.ProjectID != updated.ProjectID || existing.Methodology != updated.Methodology {
		return nil, apperr.New(apperr.ValidationError, "edit may not change the series of entry %s", updated.ID)
	}

	updated.CumulativeNetReduction = existing.CumulativeNetReduction
	updated.HighNetReduction = existing.HighNetReduction
	updated.LowNetReduction = existing.LowNetReduction

	if err := s.entries.Update(updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete soft/hard-deletes (implementation defined by the repository) an
// entry. The caller must trigger a recompute of the entry's series
// afterward so the remaining rows' derived columns reflect its absence.
func (s *Store) Delete(id string) (entry.SeriesKey, error) {
	existing, err := s.entries.Get(id)
	if err != nil {
		return entry.SeriesKey{}, err
	}
	if err := s.entries.Delete(id); err != nil {
		return entry.SeriesKey{}, err
	}
	return existing.Series(), nil
}

// ListFiltered returns a paginated, filtered entry list for the read API.
func (s *Store) ListFiltered(filter repository.EntryFilter) ([]*entry.Entry, error) {
	return s.entries.ListFiltered(filter)
}
