package summary

import (
	"time"

	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
)

// Bucket is one key's rollup within a grouped breakdown.
type Bucket struct {
	TotalNetReduction float64 `json:"totalNetReduction"`
	EntriesCount      int     `json:"entriesCount"`
}

// ProjectBucket is one project's row inside byProject.
type ProjectBucket struct {
	ProjectID         string           `json:"projectId"`
	Metadata          project.Metadata `json:"metadata"`
	TotalNetReduction float64          `json:"totalNetReduction"`
	EntriesCount      int              `json:"entriesCount"`
}

// PeriodSummary is the per-(clientId, period) rollup document (spec §4.7).
type PeriodSummary struct {
	ClientID  string    `json:"clientId"`
	Period    Period    `json:"period"`
	WindowKey string    `json:"windowKey"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`

	TotalNetReduction float64 `json:"totalNetReduction"`
	EntriesCount      int     `json:"entriesCount"`

	ByProject         []ProjectBucket   `json:"byProject"`
	ByCategory        map[string]Bucket `json:"byCategory"`
	ByScope           map[string]Bucket `json:"byScope"`
	ByLocation        map[string]Bucket `json:"byLocation"`
	ByProjectActivity map[string]Bucket `json:"byProjectActivity"`
	ByMethodology     map[string]Bucket `json:"byMethodology"`

	HasReductionSummary              bool      `json:"hasReductionSummary"`
	LastReductionSummaryCalculatedAt time.Time `json:"lastReductionSummaryCalculatedAt"`
}

// TimeSeriesPoint is one day's value inside a project's legacy time series.
type TimeSeriesPoint struct {
	Date                   string  `json:"date"` // YYYY-MM-DD, UTC
	NetReduction           float64 `json:"netReduction"`
	CumulativeNetReduction float64 `json:"cumulativeNetReduction"`
}

// WindowTotal is a simple scalar rollup over a fixed trailing window.
type WindowTotal struct {
	TotalNetReduction float64 `json:"totalNetReduction"`
	EntriesCount      int     `json:"entriesCount"`
}

// ClientSummary is the legacy cross-period rollup doc: an all-time total, a
// 7-day and 30-day trailing window, and a per-project daily time series.
type ClientSummary struct {
	ClientID          string                       `json:"clientId"`
	TotalNetReduction float64                      `json:"totalNetReduction"`
	EntriesCount      int                          `json:"entriesCount"`
	Last7Days         WindowTotal                  `json:"last7Days"`
	Last30Days        WindowTotal                  `json:"last30Days"`
	ByProjectSeries   map[string][]TimeSeriesPoint `json:"byProjectSeries"`
	CalculatedAt      time.Time                    `json:"calculatedAt"`
}

func newPeriodSummary(clientID string, period Period, w Window) *PeriodSummary {
	return &PeriodSummary{
		ClientID:          clientID,
		Period:            period,
		WindowKey:         w.Key,
		From:              w.From,
		To:                w.To,
		ByProject:         []ProjectBucket{},
		ByCategory:        map[string]Bucket{},
		ByScope:           map[string]Bucket{},
		ByLocation:        map[string]Bucket{},
		ByProjectActivity: map[string]Bucket{},
		ByMethodology:     map[string]Bucket{},
	}
}
