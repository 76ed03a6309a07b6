package httpapi

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/GreonXpert/netreduction-engine/internal/apperr"
	core "github.com/GreonXpert/netreduction-engine/internal/core/service"
	"github.com/GreonXpert/netreduction-engine/internal/csvimport"
	"github.com/GreonXpert/netreduction-engine/internal/domain/entry"
	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
	"github.com/GreonXpert/netreduction-engine/internal/repository"
)

// postManual handles POST .../manual: a single entry or an entries[] batch,
// each committed independently (spec §7: batch handlers catch per-row
// errors and continue).
func (h *handler) postManual(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	clientID := chi.URLParam(r, "clientId")
	projectID := chi.URLParam(r, "projectId")
	meth := chi.URLParam(r, "methodology")

	var req manualBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	items := req.items()
	saved := make([]*entry.Entry, 0, len(items))
	var errs []csvimport.RowError
	for i, item := range items {
		input, err := toEntryInput(meth, item)
		if err != nil {
			errs = append(errs, csvimport.RowError{Row: i + 1, Error: err.Error()})
			continue
		}
		en, err := h.engine.IngestSingle(actor, clientID, projectID, project.InputManual, input, item.Date, item.Time, entry.SourceDetails{DataSource: "manual"})
		if err != nil {
			if len(items) == 1 {
				writeError(w, err)
				return
			}
			errs = append(errs, csvimport.RowError{Row: i + 1, Error: err.Error()})
			continue
		}
		saved = append(saved, en)
	}

	writeOK(w, http.StatusCreated, "manual entry committed", map[string]any{"saved": saved, "errors": errs})
}

// postAPI handles POST .../api: the no-auth synchronous channel push.
func (h *handler) postAPI(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientId")
	projectID := chi.URLParam(r, "projectId")
	meth := chi.URLParam(r, "methodology")

	var req apiEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	input, err := toEntryInput(meth, req.manualEntryRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	en, err := h.engine.IngestSingle(unauthenticatedActor(clientID), clientID, projectID, project.InputAPI, input, req.Date, req.Time, entry.SourceDetails{DataSource: "API"})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, "API entry committed", en)
}

// postIOT handles POST .../iot: the no-auth device telemetry channel.
func (h *handler) postIOT(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientId")
	projectID := chi.URLParam(r, "projectId")
	meth := chi.URLParam(r, "methodology")

	var req apiEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	input, err := toEntryInput(meth, req.manualEntryRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	en, err := h.engine.IngestSingle(unauthenticatedActor(clientID), clientID, projectID, project.InputIOT, input, req.Date, req.Time, entry.SourceDetails{DataSource: "IOT", IOTDeviceID: req.DeviceID})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, "IoT entry committed", en)
}

const maxCSVUpload = 10 << 20 // 10 MiB, matching pkg/config.EngineConfig.CSVMaxBytes's default

// postCSV handles POST .../csv: a multipart-form CSV upload, parsed
// according to the project's methodology and committed row by row.
func (h *handler) postCSV(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	clientID := chi.URLParam(r, "clientId")
	projectID := chi.URLParam(r, "projectId")

	p, err := h.engine.GetProject(actor, clientID, projectID)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxCSVUpload); err != nil {
		writeError(w, apperr.Wrap(apperr.ValidationError, err, "parsing multipart form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperr.Wrap(apperr.ValidationError, err, "missing multipart field \"file\""))
		return
	}
	defer file.Close()

	var (
		m1Rows      []csvimport.M1Row
		m2Rows      []csvimport.M2Row
		m3Rows      []csvimport.M3Row
		parseErrors []csvimport.RowError
		parseErr    error
	)
	switch p.Methodology {
	case project.M1:
		m1Rows, parseErrors, parseErr = csvimport.ParseM1(file)
	case project.M2:
		m2Rows, parseErrors, parseErr = csvimport.ParseM2(file)
	case project.M3:
		m3Rows, parseErrors, parseErr = csvimport.ParseM3(file)
	}
	if parseErr != nil {
		writeError(w, parseErr)
		return
	}

	uploadedBy := r.Header.Get("X-User-Id")
	result, err := h.engine.ImportCSV(actor, clientID, projectID, uploadedBy, fileName(header), m1Rows, m2Rows, m3Rows, parseErrors)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "CSV import processed", map[string]any{"committed": result.Committed, "errors": result.Errors})
}

func fileName(h *multipart.FileHeader) string {
	if h == nil {
		return ""
	}
	return h.Filename
}

// patchManual handles PATCH .../manual/{entryId}: re-evaluate and commit an
// edit to an existing manual entry.
func (h *handler) patchManual(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	entryID := chi.URLParam(r, "entryId")
	meth := chi.URLParam(r, "methodology")

	var req manualEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	input, err := toEntryInput(meth, req)
	if err != nil {
		writeError(w, err)
		return
	}
	en, err := h.engine.EditManual(actor, entryID, input, req.Date, req.Time)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "manual entry updated", en)
}

// deleteManual handles DELETE .../manual/{entryId}.
func (h *handler) deleteManual(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	entryID := chi.URLParam(r, "entryId")
	if err := h.engine.DeleteManual(actor, entryID); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "manual entry deleted", nil)
}

// listEntries handles GET /net-reduction (filtered, paginated).
func (h *handler) listEntries(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	filter := repository.EntryFilter{
		ClientID:  coalesce(q.Get("clientId"), actor.ClientID),
		ProjectID: q.Get("projectId"),
		Limit:     core.ClampLimit(atoiOr(q.Get("limit"), 0), core.DefaultListLimit, core.MaxListLimit),
		Offset:    atoiOr(q.Get("offset"), 0),
	}
	if meth := q.Get("methodology"); meth != "" {
		filter.Methodology = project.Methodology(meth)
	}
	if from, ok := parseRFC3339(q.Get("from")); ok {
		filter.From = &from
	}
	if to, ok := parseRFC3339(q.Get("to")); ok {
		filter.To = &to
	}

	entries, err := h.engine.List(actor, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "", entries)
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseRFC3339(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
