// Package summary implements the Summary Engine (C8): for a client, join
// every entry in a window with its project's descriptive metadata and
// aggregate into the five-cadence PeriodSummary documents plus the legacy
// cross-period ClientSummary roll-up (spec §4.7, §9 Open Question —
// "Two Summary Engines").
package summary

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	core "github.com/GreonXpert/netreduction-engine/internal/core/service"
	"github.com/GreonXpert/netreduction-engine/internal/domain/entry"
	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
	"github.com/GreonXpert/netreduction-engine/internal/eventbus"
	"github.com/GreonXpert/netreduction-engine/internal/platform/metrics"
	"github.com/GreonXpert/netreduction-engine/internal/repository"
	"github.com/GreonXpert/netreduction-engine/internal/round"
)

func round6(v float64) float64 { return round.Round6(v) }

// Engine orchestrates both summary outputs required by spec §9: the five
// PeriodSummary documents and the legacy ClientSummary.
type Engine struct {
	entries   repository.EntryRepository
	summaries repository.SummaryRepository
	metadata  MetadataProvider
	bus       eventbus.Publisher
	log       *logrus.Logger
}

// New returns an Engine. bus may be nil, in which case no events are
// emitted (useful for offline/batch recomputes).
func New(entries repository.EntryRepository, summaries repository.SummaryRepository, metadata MetadataProvider, bus eventbus.Publisher, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{entries: entries, summaries: summaries, metadata: metadata, bus: bus, log: log}
}

// Refresh recomputes every period for clientID as of now and the legacy
// cross-period summary, persisting both and emitting their completion
// events. It is invoked after every successful write (once the Series
// Recomputer finishes) and on explicit refresh requests.
func (e *Engine) Refresh(clientID string, now time.Time) error {
	meta, err := e.metadata.ProjectMetadata(clientID)
	if err != nil {
		return err
	}

	allTime := WindowFor(PeriodAllTime, now)
	all, err := e.entries.ListForClientWindow(clientID, allTime.From, allTime.To)
	if err != nil {
		return err
	}

	for _, period := range Periods {
		done := core.StartObservation(context.Background(), core.ObservationHooks{
			OnComplete: func(_ context.Context, fields map[string]string, _ error, d time.Duration) {
				metrics.RecordSummaryRefresh(fields["period"], d)
			},
		}, map[string]string{"period": string(period)})

		w := WindowFor(period, now)
		windowEntries := filterByWindow(all, w)
		doc := buildPeriodSummary(clientID, period, w, windowEntries, meta, now)
		err := e.persistPeriodSummary(doc)
		done(err)
		if err != nil {
			return err
		}
	}

	clientDoc := buildClientSummary(clientID, all, now)
	if err := e.persistClientSummary(clientDoc); err != nil {
		return err
	}

	return nil
}

func filterByWindow(entries []*entry.Entry, w Window) []*entry.Entry {
	out := make([]*entry.Entry, 0, len(entries))
	for _, e := range entries {
		ts := e.Timestamp
		if ts.Before(w.From) || ts.After(w.To) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (e *Engine) persistPeriodSummary(doc *PeriodSummary) error {
	doc.HasReductionSummary = true
	doc.LastReductionSummaryCalculatedAt = time.Now().UTC()

	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if err := e.summaries.UpsertPeriodSummary(doc.ClientID, string(doc.Period), doc.WindowKey, raw); err != nil {
		return err
	}
	e.log.WithFields(logrus.Fields{
		"client_id": doc.ClientID,
		"period":    doc.Period,
		"window":    doc.WindowKey,
	}).Debug("summary: period summary refreshed")

	if e.bus != nil {
		e.bus.Publish(eventbus.SummariesRoom(doc.ClientID), eventbus.Event{
			EventType: eventbus.EventSummaryUpdated,
			Timestamp: time.Now(),
			ClientID:  doc.ClientID,
			Payload: map[string]any{
				"period":    doc.Period,
				"windowKey": doc.WindowKey,
			},
		})
	}
	return nil
}

func (e *Engine) persistClientSummary(doc *ClientSummary) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if err := e.summaries.UpsertClientSummary(doc.ClientID, raw); err != nil {
		return err
	}
	e.log.WithField("client_id", doc.ClientID).Debug("summary: legacy client summary refreshed")

	if e.bus != nil {
		e.bus.Publish(eventbus.ClientRoom(doc.ClientID), eventbus.Event{
			EventType: eventbus.EventClientSummaryDone,
			Timestamp: time.Now(),
			ClientID:  doc.ClientID,
		})
	}
	return nil
}

func buildPeriodSummary(clientID string, period Period, w Window, entries []*entry.Entry, meta map[string]project.Metadata, now time.Time) *PeriodSummary {
	doc := newPeriodSummary(clientID, period, w)

	type projectAgg struct {
		total float64
		count int
	}
	byProjectAgg := map[string]*projectAgg{}

	bump := func(m map[string]Bucket, key string, net float64) {
		b := m[key]
		b.TotalNetReduction = round6(b.TotalNetReduction + net)
		b.EntriesCount++
		m[key] = b
	}

	for _, en := range entries {
		doc.TotalNetReduction = round6(doc.TotalNetReduction + en.NetReduction)
		doc.EntriesCount++

		md, known := meta[en.ProjectID]
		if !known {
			md = project.Metadata{ProjectName: "Unknown", ProjectActivity: "Unknown", Category: "Unknown", Scope: "Unknown", Location: "Unknown", Methodology: en.Methodology}
		}

		agg := byProjectAgg[en.ProjectID]
		if agg == nil {
			agg = &projectAgg{}
			byProjectAgg[en.ProjectID] = agg
		}
		agg.total = round6(agg.total + en.NetReduction)
		agg.count++

		bump(doc.ByCategory, md.Category, en.NetReduction)
		bump(doc.ByScope, md.Scope, en.NetReduction)
		bump(doc.ByLocation, md.Location, en.NetReduction)
		bump(doc.ByProjectActivity, md.ProjectActivity, en.NetReduction)
		bump(doc.ByMethodology, string(md.Methodology), en.NetReduction)
	}

	projectIDs := make([]string, 0, len(byProjectAgg))
	for id := range byProjectAgg {
		projectIDs = append(projectIDs, id)
	}
	sort.Strings(projectIDs)
	for _, id := range projectIDs {
		agg := byProjectAgg[id]
		md, known := meta[id]
		if !known {
			md = project.Metadata{ProjectName: "Unknown", ProjectActivity: "Unknown", Category: "Unknown", Scope: "Unknown", Location: "Unknown"}
		}
		doc.ByProject = append(doc.ByProject, ProjectBucket{
			ProjectID:         id,
			Metadata:          md,
			TotalNetReduction: agg.total,
			EntriesCount:      agg.count,
		})
	}

	return doc
}

func buildClientSummary(clientID string, all []*entry.Entry, now time.Time) *ClientSummary {
	doc := &ClientSummary{
		ClientID:        clientID,
		ByProjectSeries: map[string][]TimeSeriesPoint{},
		CalculatedAt:    time.Now().UTC(),
	}

	sevenDaysAgo := now.UTC().AddDate(0, 0, -7)
	thirtyDaysAgo := now.UTC().AddDate(0, 0, -30)

	// daily per-project net reduction, accumulated into a sorted time series.
	perProjectDaily := map[string]map[string]float64{}

	for _, en := range all {
		doc.TotalNetReduction = round6(doc.TotalNetReduction + en.NetReduction)
		doc.EntriesCount++

		ts := en.Timestamp.UTC()
		if !ts.Before(sevenDaysAgo) {
			doc.Last7Days.TotalNetReduction = round6(doc.Last7Days.TotalNetReduction + en.NetReduction)
			doc.Last7Days.EntriesCount++
		}
		if !ts.Before(thirtyDaysAgo) {
			doc.Last30Days.TotalNetReduction = round6(doc.Last30Days.TotalNetReduction + en.NetReduction)
			doc.Last30Days.EntriesCount++
		}

		day := ts.Format("2006-01-02")
		byDay := perProjectDaily[en.ProjectID]
		if byDay == nil {
			byDay = map[string]float64{}
			perProjectDaily[en.ProjectID] = byDay
		}
		byDay[day] = round6(byDay[day] + en.NetReduction)
	}

	for projectID, byDay := range perProjectDaily {
		days := make([]string, 0, len(byDay))
		for d := range byDay {
			days = append(days, d)
		}
		sort.Strings(days)

		var cumulative float64
		series := make([]TimeSeriesPoint, 0, len(days))
		for _, d := range days {
			cumulative = round6(cumulative + byDay[d])
			series = append(series, TimeSeriesPoint{Date: d, NetReduction: byDay[d], CumulativeNetReduction: cumulative})
		}
		doc.ByProjectSeries[projectID] = series
	}

	return doc
}
