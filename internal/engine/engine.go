// Package engine wires the full write path described by spec §2's data-flow
// diagram: HTTP edge -> Authorization Oracle -> Ingestion Channel Controller
// -> Time Normalizer -> Methodology Evaluator -> Entry Store append ->
// Series Recomputer -> Summary Engine -> Event Bus. internal/app constructs
// it and internal/httpapi is the only caller of its request methods;
// everything here is transport-agnostic.
package engine

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/GreonXpert/netreduction-engine/internal/apperr"
	"github.com/GreonXpert/netreduction-engine/internal/authz"
	core "github.com/GreonXpert/netreduction-engine/internal/core/service"
	"github.com/GreonXpert/netreduction-engine/internal/csvimport"
	"github.com/GreonXpert/netreduction-engine/internal/domain/entry"
	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
	"github.com/GreonXpert/netreduction-engine/internal/eventbus"
	"github.com/GreonXpert/netreduction-engine/internal/idgen"
	"github.com/GreonXpert/netreduction-engine/internal/ingestion"
	"github.com/GreonXpert/netreduction-engine/internal/lock"
	"github.com/GreonXpert/netreduction-engine/internal/methodology"
	"github.com/GreonXpert/netreduction-engine/internal/platform/metrics"
	"github.com/GreonXpert/netreduction-engine/internal/projectvalidate"
	"github.com/GreonXpert/netreduction-engine/internal/recompute"
	"github.com/GreonXpert/netreduction-engine/internal/repository"
	"github.com/GreonXpert/netreduction-engine/internal/store"
	"github.com/GreonXpert/netreduction-engine/internal/summary"
	"github.com/GreonXpert/netreduction-engine/internal/timenorm"
)

// Engine is the net-reduction write/read orchestrator. It holds no request
// state; every method takes the actor and identifiers it needs.
type Engine struct {
	oracle   authz.Oracle
	channels *ingestion.Controller
	projects repository.ProjectRepository
	formulas repository.FormulaRepository
	entries  *store.Store
	recomp   *recompute.Recomputer
	summary  *summary.Engine
	summaryRepo repository.SummaryRepository
	locker   *lock.SeriesLocker
	bus      eventbus.Publisher
	log      *logrus.Logger
}

// Deps bundles the Engine's collaborators for New.
type Deps struct {
	Oracle   authz.Oracle
	Channels *ingestion.Controller
	Repo     repository.Repository
	Summary  *summary.Engine
	Bus      eventbus.Publisher
	Log      *logrus.Logger
}

// New assembles an Engine from its collaborators.
func New(d Deps) *Engine {
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		oracle:   d.Oracle,
		channels: d.Channels,
		projects: d.Repo.Projects(),
		formulas: d.Repo.Formulas(),
		entries:  store.New(d.Repo.Entries()),
		recomp:   recompute.New(d.Repo.Entries()),
		summary:  d.Summary,
		summaryRepo: d.Repo.Summaries(),
		locker:   lock.NewSeriesLocker(),
		bus:      d.Bus,
		log:      log,
	}
}

// IngestSingle runs one entry through the full write path and returns the
// committed, evaluated entry.
func (e *Engine) IngestSingle(actor authz.Actor, clientID, projectID string, channel project.InputType, input methodology.EntryInput, dateStr, timeStr string, source entry.SourceDetails) (*entry.Entry, error) {
	if d := e.oracle.CanWrite(actor, clientID); !d.OK {
		return nil, apperr.New(apperr.Forbidden, "%s", d.Reason)
	}
	if err := e.channels.VerifyChannel(clientID, projectID, channel); err != nil {
		return nil, err
	}

	p, err := e.projects.Get(clientID, projectID)
	if err != nil {
		return nil, err
	}

	canonical := timenorm.Normalize(dateStr, timeStr)
	result, err := methodology.Evaluate(p, e.formulas, input, canonical.Timestamp)
	if err != nil {
		return nil, err
	}

	result.ClientID = clientID
	result.ProjectID = projectID
	result.InputType = entry.InputType(channel)
	result.SourceDetails = source
	result.Date = canonical.Date
	result.Time = canonical.Time
	result.Timestamp = canonical.Timestamp

	committed, err := e.entries.Append(result)
	if err != nil {
		return nil, err
	}

	if err := e.recomp.Recompute(committed.Series()); err != nil {
		return nil, err
	}
	metrics.RecordEntryIngested(string(p.Methodology), string(channel), "ok")
	e.refreshSummaryBestEffort(clientID, canonical.Timestamp)
	e.publishEntryEvent(eventForChannel(channel, p.Methodology), committed)

	return committed, nil
}

func eventForChannel(channel project.InputType, meth project.Methodology) string {
	switch channel {
	case project.InputAPI:
		return eventbus.EventAPISaved
	case project.InputIOT:
		return eventbus.EventIOTSaved
	default: // manual
		if meth == project.M3 {
			return eventbus.EventM3ManualSaved
		}
		return eventbus.EventManualUpdated
	}
}

// EditManual re-evaluates and replaces a manual entry's payload in place,
// under the entry's series lock.
func (e *Engine) EditManual(actor authz.Actor, entryID string, input methodology.EntryInput, dateStr, timeStr string) (*entry.Entry, error) {
	existing, err := e.entries.Get(entryID)
	if err != nil {
		return nil, err
	}
	if d := e.oracle.CanWrite(actor, existing.ClientID); !d.OK {
		return nil, apperr.New(apperr.Forbidden, "%s", d.Reason)
	}

	unlock := e.locker.Lock(existing.Series())
	defer unlock()

	p, err := e.projects.Get(existing.ClientID, existing.ProjectID)
	if err != nil {
		return nil, err
	}

	canonical := timenorm.Normalize(dateStr, timeStr)
	result, err := methodology.Evaluate(p, e.formulas, input, canonical.Timestamp)
	if err != nil {
		return nil, err
	}
	result.ID = existing.ID
	result.ClientID = existing.ClientID
	result.ProjectID = existing.ProjectID
	result.InputType = entry.InputManual
	result.SourceDetails = existing.SourceDetails
	result.Date = canonical.Date
	result.Time = canonical.Time
	result.Timestamp = canonical.Timestamp

	updated, err := e.entries.Edit(result)
	if err != nil {
		return nil, err
	}
	if err := e.recomp.Recompute(updated.Series()); err != nil {
		return nil, err
	}
	e.refreshSummaryBestEffort(updated.ClientID, canonical.Timestamp)
	e.publishEntryEvent(eventbus.EventManualUpdated, updated)

	return updated, nil
}

// DeleteManual removes a manual entry and recomputes its series under the
// series lock. A recompute following a failed delete must not run.
func (e *Engine) DeleteManual(actor authz.Actor, entryID string) error {
	existing, err := e.entries.Get(entryID)
	if err != nil {
		return err
	}
	if d := e.oracle.CanWrite(actor, existing.ClientID); !d.OK {
		return apperr.New(apperr.Forbidden, "%s", d.Reason)
	}

	unlock := e.locker.Lock(existing.Series())
	defer unlock()

	key, err := e.entries.Delete(entryID)
	if err != nil {
		return err
	}
	if err := e.recomp.Recompute(key); err != nil {
		return err
	}
	e.refreshSummaryBestEffort(existing.ClientID, time.Now())

	if e.bus != nil {
		e.bus.Publish(eventbus.ClientRoom(existing.ClientID), eventbus.Event{
			EventType: eventbus.EventManualDeleted,
			Timestamp: time.Now(),
			ClientID:  existing.ClientID,
			Payload:   map[string]any{"entryId": existing.ID, "projectId": existing.ProjectID, "methodology": existing.Methodology},
		})
	}
	return nil
}

// List returns a paginated, filtered entry list for the read API, subject
// to the Authorization Oracle's read predicate.
func (e *Engine) List(actor authz.Actor, filter repository.EntryFilter) ([]*entry.Entry, error) {
	if d := e.oracle.CanRead(actor, filter.ClientID); !d.OK {
		return nil, apperr.New(apperr.Forbidden, "%s", d.Reason)
	}
	return e.entries.ListFiltered(filter)
}

// CSVImportResult is the per-batch commit report.
type CSVImportResult struct {
	Committed int
	Errors    []csvimport.RowError
}

// ImportCSV evaluates and commits every parsed row for one project's
// methodology, recomputing the series once at the end rather than once per
// row. Malformed rows (reported by the csvimport parse step) and rows that
// fail evaluation both surface in Errors by 1-based row index; valid rows
// still commit.
func (e *Engine) ImportCSV(actor authz.Actor, clientID, projectID, uploadedBy, fileName string, m1Rows []csvimport.M1Row, m2Rows []csvimport.M2Row, m3Rows []csvimport.M3Row, parseErrors []csvimport.RowError) (*CSVImportResult, error) {
	if d := e.oracle.CanWrite(actor, clientID); !d.OK {
		return nil, apperr.New(apperr.Forbidden, "%s", d.Reason)
	}

	p, err := e.projects.Get(clientID, projectID)
	if err != nil {
		return nil, err
	}

	result := &CSVImportResult{Errors: append([]csvimport.RowError{}, parseErrors...)}
	source := entry.SourceDetails{UploadedBy: uploadedBy, DataSource: "csv", FileName: fileName}

	var seriesKey entry.SeriesKey
	commit := func(row int, input methodology.EntryInput, dateStr, timeStr string) {
		canonical := timenorm.Normalize(dateStr, timeStr)
		ev, err := methodology.Evaluate(p, e.formulas, input, canonical.Timestamp)
		if err != nil {
			result.Errors = append(result.Errors, csvimport.RowError{Row: row, Error: err.Error()})
			return
		}
		ev.ClientID = clientID
		ev.ProjectID = projectID
		ev.InputType = entry.InputCSV
		ev.SourceDetails = source
		ev.Date = canonical.Date
		ev.Time = canonical.Time
		ev.Timestamp = canonical.Timestamp

		committed, err := e.entries.Append(ev)
		if err != nil {
			result.Errors = append(result.Errors, csvimport.RowError{Row: row, Error: err.Error()})
			return
		}
		seriesKey = committed.Series()
		result.Committed++
		metrics.RecordEntryIngested(string(p.Methodology), "CSV", "ok")
	}

	switch p.Methodology {
	case project.M1:
		for _, r := range m1Rows {
			commit(r.Row, methodology.EntryInput{M1: &methodology.M1Input{InputValue: r.Value}}, r.Date, r.Time)
		}
	case project.M2:
		for _, r := range m2Rows {
			commit(r.Row, methodology.EntryInput{M2: &methodology.M2Input{FormulaID: p.M2.FormulaRef.FormulaID, Variables: r.Variables}}, r.Date, r.Time)
		}
	case project.M3:
		for _, r := range m3Rows {
			manual := methodology.M3ManualInputs{}
			for itemID, vars := range r.Items {
				manual[itemID] = map[string]any{}
				for name, v := range vars {
					manual[itemID][name] = v
				}
			}
			commit(r.Row, methodology.EntryInput{M3: &methodology.M3Input{Manual: manual}}, r.Date, r.Time)
		}
	}

	if result.Committed > 0 {
		if err := e.recomp.Recompute(seriesKey); err != nil {
			return nil, err
		}
		e.refreshSummaryBestEffort(clientID, time.Now())
	}

	if e.bus != nil {
		e.bus.Publish(eventbus.ClientRoom(clientID), eventbus.Event{
			EventType: eventbus.EventCSVProcessed,
			Timestamp: time.Now(),
			ClientID:  clientID,
			Payload:   map[string]any{"projectId": projectID, "committed": result.Committed, "errors": len(result.Errors)},
		})
	}
	return result, nil
}

// RefreshSummary recomputes both summary outputs for a client on explicit
// request (e.g. GET .../summary/{clientId}?refresh=true).
func (e *Engine) RefreshSummary(actor authz.Actor, clientID string) error {
	if d := e.oracle.CanRead(actor, clientID); !d.OK {
		return apperr.New(apperr.Forbidden, "%s", d.Reason)
	}
	return e.summary.Refresh(clientID, time.Now())
}

// CheckRead enforces the same read predicate RefreshSummary/List use,
// without performing any work; the summary read handlers call this before
// loading a persisted document directly out of the repository.
func (e *Engine) CheckRead(actor authz.Actor, clientID string) error {
	if d := e.oracle.CanRead(actor, clientID); !d.OK {
		return apperr.New(apperr.Forbidden, "%s", d.Reason)
	}
	return nil
}

// Summaries exposes the summary repository for the read-only HTTP handlers
// that fetch a persisted PeriodSummary/ClientSummary directly (CheckRead
// gates access first).
func (e *Engine) Summaries() repository.SummaryRepository {
	return e.summaryRepo
}

// SwitchInputType changes a project's active ingestion channel, restricted
// to an actor the oracle recognizes as the client-admin (spec §4.8).
func (e *Engine) SwitchInputType(actor authz.Actor, clientID, projectID string, next project.InputType) (*project.Project, error) {
	if d := e.oracle.CanManageChannel(actor, clientID); !d.OK {
		return nil, apperr.New(apperr.Forbidden, "%s", d.Reason)
	}
	return e.channels.SwitchInputType(clientID, projectID, next)
}

// Disconnect deactivates a project's active channel without changing which
// channel is configured.
func (e *Engine) Disconnect(actor authz.Actor, clientID, projectID string) (*project.Project, error) {
	if d := e.oracle.CanManageChannel(actor, clientID); !d.OK {
		return nil, apperr.New(apperr.Forbidden, "%s", d.Reason)
	}
	return e.channels.Disconnect(clientID, projectID)
}

// Reconnect reactivates a project's configured channel, optionally rotating
// its endpoint.
func (e *Engine) Reconnect(actor authz.Actor, clientID, projectID, newEndpoint string) (*project.Project, error) {
	if d := e.oracle.CanManageChannel(actor, clientID); !d.OK {
		return nil, apperr.New(apperr.Forbidden, "%s", d.Reason)
	}
	return e.channels.Reconnect(clientID, projectID, newEndpoint)
}

// RequestAPIKey opens an apiKeyRequest for a project's API channel.
func (e *Engine) RequestAPIKey(actor authz.Actor, clientID, projectID string) (*project.Project, error) {
	if d := e.oracle.CanManageChannel(actor, clientID); !d.OK {
		return nil, apperr.New(apperr.Forbidden, "%s", d.Reason)
	}
	return e.channels.RequestAPIKey(clientID, projectID)
}

// ApproveAPIKey issues a hashed API key for a pending request.
func (e *Engine) ApproveAPIKey(actor authz.Actor, clientID, projectID, plaintextKey, keyScopedEndpoint string) (*project.Project, error) {
	if d := e.oracle.CanManageChannel(actor, clientID); !d.OK {
		return nil, apperr.New(apperr.Forbidden, "%s", d.Reason)
	}
	return e.channels.ApproveAPIKey(clientID, projectID, plaintextKey, keyScopedEndpoint)
}

// RejectAPIKey declines a pending apiKeyRequest.
func (e *Engine) RejectAPIKey(actor authz.Actor, clientID, projectID string) (*project.Project, error) {
	if d := e.oracle.CanManageChannel(actor, clientID); !d.OK {
		return nil, apperr.New(apperr.Forbidden, "%s", d.Reason)
	}
	return e.channels.RejectAPIKey(clientID, projectID)
}

// GetProject loads one project, subject to the read predicate. The HTTP
// edge uses this to resolve a project's methodology before parsing a CSV
// upload or routing a manual-entry request.
func (e *Engine) GetProject(actor authz.Actor, clientID, projectID string) (*project.Project, error) {
	if d := e.oracle.CanRead(actor, clientID); !d.OK {
		return nil, apperr.New(apperr.Forbidden, "%s", d.Reason)
	}
	return e.projects.Get(clientID, projectID)
}

// CreateProject normalizes and persists a new project, assigning it a
// sequence id before the first save.
func (e *Engine) CreateProject(actor authz.Actor, p *project.Project) (*project.Project, error) {
	if d := e.oracle.CanManageChannel(actor, p.ClientID); !d.OK {
		return nil, apperr.New(apperr.Forbidden, "%s", d.Reason)
	}
	if err := projectvalidate.Normalize(p); err != nil {
		return nil, err
	}
	if p.ProjectID == "" {
		id, err := idgen.Generate(p.ClientID, sequenceAdapter{e.projects})
		if err != nil {
			return nil, err
		}
		p.ProjectID = id
	}
	precomputeDerived(p)
	if err := e.projects.Save(p); err != nil {
		return nil, err
	}
	return p, nil
}

// sequenceAdapter satisfies idgen.SequenceStore over a ProjectRepository's
// NextSequence.
type sequenceAdapter struct {
	repo repository.ProjectRepository
}

func (s sequenceAdapter) Next(clientID string) (int, error) { return s.repo.NextSequence(clientID) }

// UpdateProject re-normalizes an existing project before persisting edits.
func (e *Engine) UpdateProject(actor authz.Actor, p *project.Project) (*project.Project, error) {
	if d := e.oracle.CanManageChannel(actor, p.ClientID); !d.OK {
		return nil, apperr.New(apperr.Forbidden, "%s", d.Reason)
	}
	if err := projectvalidate.Normalize(p); err != nil {
		return nil, err
	}
	precomputeDerived(p)
	if err := e.projects.Save(p); err != nil {
		return nil, err
	}
	return p, nil
}

func precomputeDerived(p *project.Project) {
	switch p.Methodology {
	case project.M1:
		if p.M1 != nil {
			methodology.RecomputeM1(p.M1)
		}
	case project.M2:
		if p.M2 != nil {
			methodology.RecomputeM2Leakage(p.M2)
		}
	}
}

func (e *Engine) refreshSummaryBestEffort(clientID string, now time.Time) {
	if e.summary == nil {
		return
	}
	if err := e.summary.Refresh(clientID, now); err != nil {
		e.log.WithError(err).WithField("client_id", clientID).Warn("engine: summary refresh failed after write")
	}
}

// Descriptor advertises the engine's placement to /system/descriptors.
func (e *Engine) Descriptor() core.Descriptor {
	return core.Descriptor{
		Name:         "net-reduction-engine",
		Domain:       "net-reduction",
		Layer:        core.LayerEngine,
		Capabilities: []string{"ingest", "recompute", "summary-refresh"},
	}
}

func (e *Engine) publishEntryEvent(eventType string, en *entry.Entry) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(eventbus.ClientRoom(en.ClientID), eventbus.Event{
		EventType: eventType,
		Timestamp: time.Now(),
		ClientID:  en.ClientID,
		Payload: map[string]any{
			"entryId":                en.ID,
			"projectId":              en.ProjectID,
			"methodology":            en.Methodology,
			"netReduction":           en.NetReduction,
			"cumulativeNetReduction": en.CumulativeNetReduction,
			"highNetReduction":       en.HighNetReduction,
			"lowNetReduction":        en.LowNetReduction,
		},
	})
}
