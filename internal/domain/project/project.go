// Package project holds the Project aggregate: identity, the three
// methodology-specific parameter blocks (M1/M2/M3), and the per-project
// ingestion channel state.
package project

import (
	"fmt"
	"time"
)

// Methodology selects which of the three pluggable computation modes a
// project uses. It is immutable after creation; individual entries record
// the methodology in effect at write time.
type Methodology string

const (
	M1 Methodology = "M1"
	M2 Methodology = "M2"
	M3 Methodology = "M3"
)

// InputType is the active ingestion channel for a project.
type InputType string

const (
	InputManual InputType = "manual"
	InputAPI    InputType = "API"
	InputIOT    InputType = "IOT"
	InputCSV    InputType = "CSV" // never an active channel; only an originalInputType value
)

// APIKeyRequestStatus tracks the lifecycle of a pending API credential grant.
type APIKeyRequestStatus string

const (
	APIKeyRequestNone     APIKeyRequestStatus = "none"
	APIKeyRequestPending  APIKeyRequestStatus = "pending"
	APIKeyRequestApproved APIKeyRequestStatus = "approved"
	APIKeyRequestRejected APIKeyRequestStatus = "rejected"
)

// UnitItem is one row of an M1 ABD/APD/ALD sequence.
type UnitItem struct {
	Label          string
	Value          float64
	EF             float64
	GWP            float64
	AF             float64
	UncertaintyPct float64
}

// M1Params holds the unit-item sequences and buffer percentage a project
// carries under methodology M1, plus the scalars derived by the project
// recompute step (internal/methodology.RecomputeM1).
type M1Params struct {
	ABD           []UnitItem
	APD           []UnitItem
	ALD           []UnitItem
	BufferPercent float64

	// Derived, recomputed on every project save/validation.
	BE                    float64
	PE                    float64
	LE                    float64
	BufferEmission        float64
	ER                    float64
	CAPD                  float64
	EmissionReductionRate float64
}

// ScheduleFrequency is how often a frozen variable's scheduled value rolls
// over.
type ScheduleFrequency string

const (
	FrequencyMonthly    ScheduleFrequency = "monthly"
	FrequencyQuarterly  ScheduleFrequency = "quarterly"
	FrequencySemiannual ScheduleFrequency = "semiannual"
	FrequencyYearly     ScheduleFrequency = "yearly"
)

// Schedule is the periodic-rollover configuration for a non-constant frozen
// variable.
type Schedule struct {
	Frequency ScheduleFrequency
	FromDate  *time.Time
	ToDate    *time.Time
}

// Policy governs how a frozen variable's effective value is chosen for a
// given instant.
type Policy struct {
	IsConstant bool
	Schedule   Schedule
}

// HistoryEntry is one scheduled value record for a frozen variable.
type HistoryEntry struct {
	Value float64
	From  time.Time
	To    *time.Time
}

// FrozenVar is an M2 expression symbol bound by project configuration
// rather than by the ingestion payload.
type FrozenVar struct {
	Value   float64
	Policy  Policy
	History []HistoryEntry
}

// VariableRole is how an M2 expression symbol is bound at write time.
type VariableRole string

const (
	RoleFrozen   VariableRole = "frozen"
	RoleRealtime VariableRole = "realtime"
	RoleManual   VariableRole = "manual"
)

// FormulaRef binds a project to one formula and its symbol roles.
type FormulaRef struct {
	FormulaID     string
	Version       int
	VariableKinds map[string]VariableRole
	Variables     map[string]FrozenVar // only entries for frozen symbols
}

// M2Params holds the optional leakage sequence and the bound formula
// reference a project carries under methodology M2.
type M2Params struct {
	ALD        []UnitItem
	FormulaRef FormulaRef

	// Derived, recomputed identically to M1's LE.
	LE float64
}

// ProjectActivity distinguishes an M3 project's accounting posture.
type ProjectActivity string

const (
	ActivityReduction ProjectActivity = "Reduction"
	ActivityRemoval   ProjectActivity = "Removal"
)

// M3VariableType is how an M3 item variable's value is supplied.
type M3VariableType string

const (
	M3VarConstant M3VariableType = "constant"
	M3VarManual   M3VariableType = "manual"
	M3VarInternal M3VariableType = "internal"
)

// M3Variable is one variable reference inside an M3 item's formula binding.
type M3Variable struct {
	Name            string
	Type            M3VariableType
	Value           *float64 // set when Type == M3VarConstant
	InternalSources []string // item IDs summed when Type == M3VarInternal
}

// M3Item is one baseline/project/leakage line item.
type M3Item struct {
	ID        string
	Label     string
	FormulaID string
	Variables []M3Variable
}

// M3Params holds the three item sequences a project carries under
// methodology M3.
type M3Params struct {
	ProjectActivity   ProjectActivity
	BufferPercent     float64
	BaselineEmissions []M3Item
	ProjectEmissions  []M3Item
	LeakageEmissions  []M3Item
}

// ChannelState is the per-project ingestion channel configuration and
// lifecycle (internal/ingestion operates on this).
type ChannelState struct {
	InputType         InputType
	OriginalInputType InputType
	APIEndpoint       string
	IOTDeviceID       string
	APIStatus         bool
	IOTStatus         bool
	APIKeyHash        string
	APIKeyRequest     APIKeyRequestStatus
	APIKeyRequestedAt time.Time
}

// Project is the full aggregate: identity, methodology parameters, and
// ingestion channel state.
type Project struct {
	ClientID    string
	ProjectID   string
	Name        string
	Category    string
	Scope       string
	Place       string
	Address     string
	Latitude    *float64
	Longitude   *float64
	Methodology Methodology

	M1 *M1Params
	M2 *M2Params
	M3 *M3Params

	Channel ChannelState

	IsDeleted bool
}

// Metadata is the project slice the Summary Engine joins onto every entry.
type Metadata struct {
	ProjectName     string
	ProjectActivity string
	Category        string
	Scope           string
	Location        string
	Methodology     Methodology
}

// LocationKey resolves the byLocation summary grouping key: place, then
// address, then "lat,lon", then "Unknown", in that priority order.
func (p *Project) LocationKey() string {
	if p.Place != "" {
		return p.Place
	}
	if p.Address != "" {
		return p.Address
	}
	if p.Latitude != nil && p.Longitude != nil {
		return fmt.Sprintf("%g,%g", *p.Latitude, *p.Longitude)
	}
	return "Unknown"
}

// ToMetadata extracts the summary-join metadata from a project, defaulting
// missing descriptive fields to "Unknown".
func (p *Project) ToMetadata() Metadata {
	m := Metadata{
		ProjectName: orUnknown(p.Name),
		Category:    orUnknown(p.Category),
		Scope:       orUnknown(p.Scope),
		Location:    p.LocationKey(),
		Methodology: p.Methodology,
	}
	if p.M3 != nil {
		m.ProjectActivity = string(p.M3.ProjectActivity)
	}
	if m.ProjectActivity == "" {
		m.ProjectActivity = "Unknown"
	}
	return m
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
