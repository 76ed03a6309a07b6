// Package memory is a thread-safe in-memory implementation of
// internal/repository's storage interfaces, intended for tests and for
// running the engine without a configured database.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/GreonXpert/netreduction-engine/internal/domain/entry"
	"github.com/GreonXpert/netreduction-engine/internal/domain/formula"
	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
	"github.com/GreonXpert/netreduction-engine/internal/repository"
)

// Store implements repository.Repository entirely in memory.
type Store struct {
	mu sync.RWMutex

	projects  map[string]*project.Project // keyed by clientID|projectID
	sequences map[string]int
	entries   map[string]*entry.Entry
	formulas  map[string]*formula.Formula // keyed by id|version
	periods   map[string][]byte           // keyed by clientID|period|windowKey
	clients   map[string][]byte           // keyed by clientID
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		projects:  make(map[string]*project.Project),
		sequences: make(map[string]int),
		entries:   make(map[string]*entry.Entry),
		formulas:  make(map[string]*formula.Formula),
		periods:   make(map[string][]byte),
		clients:   make(map[string][]byte),
	}
}

func projectKey(clientID, projectID string) string { return clientID + "|" + projectID }
func formulaKey(id string, version int) string     { return id + "|" + itoa(version) }
func periodKey(clientID, period, windowKey string) string {
	return clientID + "|" + period + "|" + windowKey
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func clone(p *project.Project) *project.Project {
	cp := *p
	return &cp
}

func cloneEntry(e *entry.Entry) *entry.Entry {
	cp := *e
	return &cp
}

// Projects returns the ProjectRepository view of this store.
func (s *Store) Projects() repository.ProjectRepository { return projectStore{s} }

// Entries returns the EntryRepository view of this store.
func (s *Store) Entries() repository.EntryRepository { return entryStore{s} }

// Formulas returns the FormulaRepository view of this store.
func (s *Store) Formulas() repository.FormulaRepository { return formulaStore{s} }

// Summaries returns the SummaryRepository view of this store.
func (s *Store) Summaries() repository.SummaryRepository { return summaryStore{s} }

var _ repository.Repository = (*Store)(nil)

type projectStore struct{ s *Store }

func (p projectStore) Save(pr *project.Project) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.projects[projectKey(pr.ClientID, pr.ProjectID)] = clone(pr)
	return nil
}

func (p projectStore) Get(clientID, projectID string) (*project.Project, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	pr, ok := p.s.projects[projectKey(clientID, projectID)]
	if !ok || pr.IsDeleted {
		return nil, repository.ErrNotFound
	}
	return clone(pr), nil
}

func (p projectStore) List(clientID string) ([]*project.Project, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	var out []*project.Project
	for _, pr := range p.s.projects {
		if pr.ClientID == clientID && !pr.IsDeleted {
			out = append(out, clone(pr))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProjectID < out[j].ProjectID })
	return out, nil
}

func (p projectStore) Delete(clientID, projectID string) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	key := projectKey(clientID, projectID)
	pr, ok := p.s.projects[key]
	if !ok {
		return repository.ErrNotFound
	}
	pr.IsDeleted = true
	return nil
}

func (p projectStore) NextSequence(clientID string) (int, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.sequences[clientID]++
	return p.s.sequences[clientID], nil
}

type entryStore struct{ s *Store }

func (e entryStore) Append(en *entry.Entry) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	e.s.entries[en.ID] = cloneEntry(en)
	return nil
}

func (e entryStore) Get(id string) (*entry.Entry, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()
	en, ok := e.s.entries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneEntry(en), nil
}

func (e entryStore) Update(en *entry.Entry) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if _, ok := e.s.entries[en.ID]; !ok {
		return repository.ErrNotFound
	}
	e.s.entries[en.ID] = cloneEntry(en)
	return nil
}

func (e entryStore) Delete(id string) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if _, ok := e.s.entries[id]; !ok {
		return repository.ErrNotFound
	}
	delete(e.s.entries, id)
	return nil
}

func (e entryStore) ListSeries(key entry.SeriesKey) ([]*entry.Entry, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()
	var out []*entry.Entry
	for _, en := range e.s.entries {
		if en.Series() == key {
			out = append(out, cloneEntry(en))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (e entryStore) BulkUpdateDerived(updates []repository.DerivedUpdate) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	for _, u := range updates {
		en, ok := e.s.entries[u.EntryID]
		if !ok {
			continue
		}
		en.CumulativeNetReduction = u.Cumulative
		en.HighNetReduction = u.High
		en.LowNetReduction = u.Low
	}
	return nil
}

func (e entryStore) ListFiltered(filter repository.EntryFilter) ([]*entry.Entry, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()
	var out []*entry.Entry
	for _, en := range e.s.entries {
		if filter.ClientID != "" && en.ClientID != filter.ClientID {
			continue
		}
		if filter.ProjectID != "" && en.ProjectID != filter.ProjectID {
			continue
		}
		if filter.Methodology != "" && en.Methodology != filter.Methodology {
			continue
		}
		if filter.From != nil && en.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && en.Timestamp.After(*filter.To) {
			continue
		}
		out = append(out, cloneEntry(en))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (e entryStore) ListForClientWindow(clientID string, from, to time.Time) ([]*entry.Entry, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()
	var out []*entry.Entry
	for _, en := range e.s.entries {
		if en.ClientID != clientID {
			continue
		}
		if en.Timestamp.Before(from) || en.Timestamp.After(to) {
			continue
		}
		out = append(out, cloneEntry(en))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

type formulaStore struct{ s *Store }

func (f formulaStore) GetFormula(id string) (*formula.Formula, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()
	var best *formula.Formula
	for k, fo := range f.s.formulas {
		_ = k
		if fo.ID == id {
			if best == nil || fo.Version > best.Version {
				best = fo
			}
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (f formulaStore) Save(fo *formula.Formula) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	cp := *fo
	f.s.formulas[formulaKey(fo.ID, fo.Version)] = &cp
	return nil
}

func (f formulaStore) List(clientID string) ([]*formula.Formula, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()
	var out []*formula.Formula
	for _, fo := range f.s.formulas {
		if fo.ClientID == clientID || fo.ClientID == "" {
			cp := *fo
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type summaryStore struct{ s *Store }

func (sm summaryStore) UpsertPeriodSummary(clientID, period, windowKey string, summaryJSON []byte) error {
	sm.s.mu.Lock()
	defer sm.s.mu.Unlock()
	cp := append([]byte(nil), summaryJSON...)
	sm.s.periods[periodKey(clientID, period, windowKey)] = cp
	return nil
}

func (sm summaryStore) GetPeriodSummary(clientID, period, windowKey string) ([]byte, bool, error) {
	sm.s.mu.RLock()
	defer sm.s.mu.RUnlock()
	v, ok := sm.s.periods[periodKey(clientID, period, windowKey)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (sm summaryStore) UpsertClientSummary(clientID string, summaryJSON []byte) error {
	sm.s.mu.Lock()
	defer sm.s.mu.Unlock()
	sm.s.clients[clientID] = append([]byte(nil), summaryJSON...)
	return nil
}

func (sm summaryStore) GetClientSummary(clientID string) ([]byte, bool, error) {
	sm.s.mu.RLock()
	defer sm.s.mu.RUnlock()
	v, ok := sm.s.clients[clientID]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}
