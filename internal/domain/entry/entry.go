// Package entry holds the NetReductionEntry aggregate: one row per ingested
// data point, carrying its methodology-specific payload and the derived
// series columns owned by the Series Recomputer.
package entry

import (
	"time"

	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
)

// InputType is the channel an entry arrived through. Unlike a project's
// active channel, an entry may also record CSV as its original source.
type InputType string

const (
	InputManual InputType = "manual"
	InputAPI    InputType = "API"
	InputIOT    InputType = "IOT"
	InputCSV    InputType = "CSV"
)

// SourceDetails is free-form provenance attached to an entry at ingestion
// time.
type SourceDetails struct {
	UploadedBy  string
	DataSource  string
	APIEndpoint string
	IOTDeviceID string
	FileName    string
}

// M1Payload is the methodology-specific data an M1 entry carries.
type M1Payload struct {
	InputValue            float64
	EmissionReductionRate float64 // snapshot of the project's rate at write time
}

// M2Payload is the methodology-specific data an M2 entry carries.
type M2Payload struct {
	FormulaID           string
	Variables           map[string]float64 // as submitted (realtime/manual roles)
	NetReductionInFormula float64
}

// M3ItemBreakdown is one evaluated line item within an M3 entry.
type M3ItemBreakdown struct {
	ItemID string
	Label  string
	Value  float64
}

// M3Payload is the methodology-specific data an M3 entry carries.
type M3Payload struct {
	BETotal               float64
	PETotal               float64
	LETotal               float64
	BufferPercent         float64
	NetWithoutUncertainty float64
	NetWithUncertainty    float64
	BaselineBreakdown     []M3ItemBreakdown
	ProjectBreakdown      []M3ItemBreakdown
	LeakageBreakdown      []M3ItemBreakdown
}

// Entry is one ingested, evaluated data point in a project's series.
type Entry struct {
	ID          string
	ClientID    string
	ProjectID   string
	Methodology project.Methodology

	InputType     InputType
	SourceDetails SourceDetails

	Date      string // DD/MM/YYYY
	Time      string // HH:mm
	Timestamp time.Time

	M1 *M1Payload
	M2 *M2Payload
	M3 *M3Payload

	NetReduction float64

	// Derived columns, owned exclusively by the Series Recomputer.
	CumulativeNetReduction float64
	HighNetReduction       float64
	LowNetReduction        float64
}

// SeriesKey identifies one totally-ordered series: all entries sharing a
// (client, project, methodology) triple.
type SeriesKey struct {
	ClientID    string
	ProjectID   string
	Methodology project.Methodology
}

func (e *Entry) Series() SeriesKey {
	return SeriesKey{ClientID: e.ClientID, ProjectID: e.ProjectID, Methodology: e.Methodology}
}
