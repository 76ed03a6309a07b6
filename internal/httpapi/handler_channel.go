package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
)

// switchInputType handles PATCH .../input-type.
func (h *handler) switchInputType(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	clientID := chi.URLParam(r, "clientId")
	projectID := chi.URLParam(r, "projectId")

	var req inputTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.engine.SwitchInputType(actor, clientID, projectID, project.InputType(req.InputType))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "ingestion channel switched", p)
}

// disconnect handles POST .../disconnect.
func (h *handler) disconnect(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.engine.Disconnect(actor, chi.URLParam(r, "clientId"), chi.URLParam(r, "projectId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "channel disconnected", p)
}

// reconnect handles POST .../reconnect.
func (h *handler) reconnect(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req reconnectRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	p, err := h.engine.Reconnect(actor, chi.URLParam(r, "clientId"), chi.URLParam(r, "projectId"), req.Endpoint)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "channel reconnected", p)
}

// requestAPIKey handles POST .../api-key/request.
func (h *handler) requestAPIKey(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.engine.RequestAPIKey(actor, chi.URLParam(r, "clientId"), chi.URLParam(r, "projectId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, "api key requested", p)
}

// approveAPIKey handles POST .../api-key/approve.
func (h *handler) approveAPIKey(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req approveAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.engine.ApproveAPIKey(actor, chi.URLParam(r, "clientId"), chi.URLParam(r, "projectId"), req.PlaintextKey, req.KeyScopedEndpoint)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "api key approved", p)
}

// rejectAPIKey handles POST .../api-key/reject.
func (h *handler) rejectAPIKey(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.engine.RejectAPIKey(actor, chi.URLParam(r, "clientId"), chi.URLParam(r, "projectId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "api key request rejected", p)
}
