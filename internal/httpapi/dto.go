package httpapi

import (
	"github.com/GreonXpert/netreduction-engine/internal/apperr"
	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
	"github.com/GreonXpert/netreduction-engine/internal/methodology"
)

// manualEntryRequest is the wire shape for a single manual entry, or one
// element of a batch submitted via entries[]. Exactly the field matching
// the project's methodology should be set: value for M1, variables for M2,
// entry for M3 (the itemId -> variableName -> value grouping).
type manualEntryRequest struct {
	Date      string                            `json:"date,omitempty"`
	Time      string                             `json:"time,omitempty"`
	Value     *float64                          `json:"value,omitempty"`
	Variables map[string]float64                `json:"variables,omitempty"`
	Entry     map[string]map[string]interface{} `json:"entry,omitempty"`
}

// manualBatchRequest accepts either one entry inline or a batch under
// entries.
type manualBatchRequest struct {
	manualEntryRequest
	Entries []manualEntryRequest `json:"entries,omitempty"`
}

func (r manualBatchRequest) items() []manualEntryRequest {
	if len(r.Entries) > 0 {
		return r.Entries
	}
	return []manualEntryRequest{r.manualEntryRequest}
}

// toEntryInput builds the methodology.EntryInput for one methodology, given
// a manualEntryRequest and the path's methodology segment.
func toEntryInput(meth string, req manualEntryRequest) (methodology.EntryInput, error) {
	switch meth {
	case "m1", "M1":
		if req.Value == nil {
			return methodology.EntryInput{}, apperr.New(apperr.ValidationError, "value is required for methodology M1")
		}
		return methodology.EntryInput{M1: &methodology.M1Input{InputValue: *req.Value}}, nil
	case "m2", "M2":
		if req.Variables == nil {
			return methodology.EntryInput{}, apperr.New(apperr.ValidationError, "variables is required for methodology M2")
		}
		return methodology.EntryInput{M2: &methodology.M2Input{Variables: req.Variables}}, nil
	case "m3", "M3":
		if req.Entry == nil {
			return methodology.EntryInput{}, apperr.New(apperr.ValidationError, "entry is required for methodology M3")
		}
		manual := methodology.M3ManualInputs(req.Entry)
		return methodology.EntryInput{M3: &methodology.M3Input{Manual: manual}}, nil
	default:
		return methodology.EntryInput{}, apperr.New(apperr.ValidationError, "unknown methodology %q", meth)
	}
}

// apiEntryRequest is the payload accepted on the no-auth API/IoT channels.
// It carries the same methodology-tagged fields as manualEntryRequest plus
// provenance the engine stamps onto the committed entry.
type apiEntryRequest struct {
	manualEntryRequest
	DeviceID string `json:"deviceId,omitempty"`
}

// inputTypeRequest is the body of the PATCH .../input-type route.
type inputTypeRequest struct {
	InputType string `json:"inputType" validate:"required,oneof=manual API IOT"`
}

// reconnectRequest is the body of the POST .../reconnect route.
type reconnectRequest struct {
	Endpoint string `json:"endpoint,omitempty"`
}

// approveAPIKeyRequest is the body of the POST .../api-key/approve route.
type approveAPIKeyRequest struct {
	PlaintextKey      string `json:"plaintextKey" validate:"required"`
	KeyScopedEndpoint string `json:"keyScopedEndpoint" validate:"required"`
}

// projectRequest is the body of POST/PUT .../projects[/{projectId}]. Only
// the parameter block matching Methodology is read; internal/projectvalidate
// rejects a mismatched or missing block, and internal/methodology's project
// recompute step derives M1/M2's scalar fields server-side regardless of
// what the caller sends in them.
type projectRequest struct {
	Name        string            `json:"name" validate:"required"`
	Category    string            `json:"category,omitempty"`
	Scope       string            `json:"scope,omitempty"`
	Place       string            `json:"place,omitempty"`
	Address     string            `json:"address,omitempty"`
	Latitude    *float64          `json:"latitude,omitempty"`
	Longitude   *float64          `json:"longitude,omitempty"`
	Methodology string            `json:"methodology" validate:"required,oneof=M1 M2 M3"`
	M1          *project.M1Params `json:"m1,omitempty"`
	M2          *project.M2Params `json:"m2,omitempty"`
	M3          *project.M3Params `json:"m3,omitempty"`
}
