// Package httpapi is the thin HTTP edge over internal/engine: chi routing,
// request decoding/validation, and response envelopes. Routing itself
// carries no business logic (spec §1 names HTTP framing a non-goal of the
// core) — every handler's body is a decode, an engine call, and an encode.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/GreonXpert/netreduction-engine/internal/apperr"
	"github.com/GreonXpert/netreduction-engine/internal/engine"
	"github.com/GreonXpert/netreduction-engine/internal/eventbus"
	"github.com/GreonXpert/netreduction-engine/internal/platform/metrics"
	"github.com/GreonXpert/netreduction-engine/internal/repository"
	"github.com/GreonXpert/netreduction-engine/internal/system"
)

var validate = validator.New()

// envelope is the response shape every handler writes: {success, message,
// data?, error?}.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeOK(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Wrap(apperr.ValidationError, err, "malformed request body")
	}
	return nil
}

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return apperr.Wrap(apperr.ValidationError, err, "request failed validation")
	}
	return nil
}

// statusForError maps the opaque apperr.Kind taxonomy (spec §7) onto the
// HTTP status codes spec §6 names.
func statusForError(err error) int {
	if errors.Is(err, repository.ErrNotFound) {
		return http.StatusNotFound
	}
	switch apperr.KindOf(err) {
	case apperr.Unauthenticated:
		return http.StatusUnauthorized
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.NotFound, apperr.FormulaNotFound:
		return http.StatusNotFound
	case apperr.ChannelMismatch, apperr.ValidationError, apperr.MissingVariableKind, apperr.FrozenVariableMissing:
		return http.StatusBadRequest
	case apperr.Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Deps bundles every collaborator the edge needs. Bus is kept distinct from
// Engine's internal eventbus.Publisher because handler_system's websocket
// subscribe endpoint needs Register, not just Publish.
type Deps struct {
	Engine      *engine.Engine
	Bus         *eventbus.Bus
	Descriptors []system.DescriptorProvider
	Log         *logrus.Logger
}

// NewRouter builds the full chi.Router for the net-reduction HTTP surface.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	h := &handler{engine: d.Engine, bus: d.Bus, descriptors: d.Descriptors, log: d.Log}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(metrics.InstrumentHandler)

	r.Get("/healthz", h.health)
	r.Get("/metrics", metrics.Handler().ServeHTTP)
	r.Get("/system/descriptors", h.systemDescriptors)
	r.Get("/net-reduction/ws/{clientId}", h.subscribe)

	r.Route("/net-reduction", func(r chi.Router) {
		r.Get("/", h.listEntries)
		r.Get("/summary/{clientId}", h.clientSummary)
		r.Get("/summary/{clientId}/{projectId}", h.projectSummary)

		r.Post("/{clientId}/projects", h.createProject)
		r.Put("/{clientId}/projects/{projectId}", h.updateProject)

		r.Patch("/{clientId}/{projectId}/input-type", h.switchInputType)
		r.Post("/{clientId}/{projectId}/disconnect", h.disconnect)
		r.Post("/{clientId}/{projectId}/reconnect", h.reconnect)
		r.Post("/{clientId}/{projectId}/api-key/request", h.requestAPIKey)
		r.Post("/{clientId}/{projectId}/api-key/approve", h.approveAPIKey)
		r.Post("/{clientId}/{projectId}/api-key/reject", h.rejectAPIKey)

		r.Post("/{clientId}/{projectId}/{methodology}/manual", h.postManual)
		r.Patch("/{clientId}/{projectId}/{methodology}/manual/{entryId}", h.patchManual)
		r.Delete("/{clientId}/{projectId}/{methodology}/manual/{entryId}", h.deleteManual)
		r.Post("/{clientId}/{projectId}/{methodology}/api", h.postAPI)
		r.Post("/{clientId}/{projectId}/{methodology}/iot", h.postIOT)
		r.Post("/{clientId}/{projectId}/{methodology}/csv", h.postCSV)
	})

	return r
}

type handler struct {
	engine      *engine.Engine
	bus         *eventbus.Bus
	descriptors []system.DescriptorProvider
	log         *logrus.Logger
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, "ok", map[string]string{"status": "ok"})
}

func (h *handler) systemDescriptors(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, "", system.CollectDescriptors(h.descriptors))
}
