package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
)

func (req projectRequest) toProject(clientID, projectID string) *project.Project {
	return &project.Project{
		ClientID:    clientID,
		ProjectID:   projectID,
		Name:        req.Name,
		Category:    req.Category,
		Scope:       req.Scope,
		Place:       req.Place,
		Address:     req.Address,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Methodology: project.Methodology(req.Methodology),
		M1:          req.M1,
		M2:          req.M2,
		M3:          req.M3,
	}
}

// createProject handles POST .../projects.
func (h *handler) createProject(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	clientID := chi.URLParam(r, "clientId")

	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.engine.CreateProject(actor, req.toProject(clientID, ""))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, "project created", p)
}

// updateProject handles PUT .../projects/{projectId}.
func (h *handler) updateProject(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	clientID := chi.URLParam(r, "clientId")
	projectID := chi.URLParam(r, "projectId")

	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.engine.UpdateProject(actor, req.toProject(clientID, projectID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "project updated", p)
}
