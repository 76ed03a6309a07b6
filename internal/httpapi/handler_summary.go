package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/GreonXpert/netreduction-engine/internal/apperr"
	"github.com/GreonXpert/netreduction-engine/internal/summary"
)

func resolvePeriod(raw string) summary.Period {
	switch summary.Period(raw) {
	case summary.PeriodDaily, summary.PeriodWeekly, summary.PeriodMonthly, summary.PeriodYearly, summary.PeriodAllTime:
		return summary.Period(raw)
	default:
		return summary.PeriodAllTime
	}
}

// clientSummary handles GET .../summary/{clientId}. With ?period= it
// returns that cadence's PeriodSummary; otherwise the legacy cross-period
// ClientSummary (spec §9's "two Summary Engines"). ?refresh=true forces a
// recompute first.
func (h *handler) clientSummary(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	clientID := chi.URLParam(r, "clientId")

	if r.URL.Query().Get("refresh") == "true" {
		if err := h.engine.RefreshSummary(actor, clientID); err != nil {
			writeError(w, err)
			return
		}
	} else if err := h.engine.CheckRead(actor, clientID); err != nil {
		writeError(w, err)
		return
	}

	if raw := r.URL.Query().Get("period"); raw != "" {
		period := resolvePeriod(raw)
		windowKey := summary.WindowFor(period, time.Now()).Key
		doc, found, err := h.engine.Summaries().GetPeriodSummary(clientID, string(period), windowKey)
		if err != nil {
			writeError(w, err)
			return
		}
		if !found {
			writeError(w, apperr.New(apperr.NotFound, "no %s summary for client %s yet", period, clientID))
			return
		}
		writeRawJSON(w, http.StatusOK, doc)
		return
	}

	doc, found, err := h.engine.Summaries().GetClientSummary(clientID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		writeError(w, apperr.New(apperr.NotFound, "no summary for client %s yet", clientID))
		return
	}
	writeRawJSON(w, http.StatusOK, doc)
}

// projectSummary handles GET .../summary/{clientId}/{projectId}: the
// requested (default all-time) PeriodSummary's byProject slice for one
// project.
func (h *handler) projectSummary(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	clientID := chi.URLParam(r, "clientId")
	projectID := chi.URLParam(r, "projectId")

	if r.URL.Query().Get("refresh") == "true" {
		if err := h.engine.RefreshSummary(actor, clientID); err != nil {
			writeError(w, err)
			return
		}
	} else if err := h.engine.CheckRead(actor, clientID); err != nil {
		writeError(w, err)
		return
	}

	period := resolvePeriod(r.URL.Query().Get("period"))
	windowKey := summary.WindowFor(period, time.Now()).Key
	raw, found, err := h.engine.Summaries().GetPeriodSummary(clientID, string(period), windowKey)
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		writeError(w, apperr.New(apperr.NotFound, "no %s summary for client %s yet", period, clientID))
		return
	}

	var doc summary.PeriodSummary
	if err := json.Unmarshal(raw, &doc); err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, err, "decoding stored summary"))
		return
	}
	for _, bucket := range doc.ByProject {
		if bucket.ProjectID == projectID {
			writeOK(w, http.StatusOK, "", bucket)
			return
		}
	}
	writeError(w, apperr.New(apperr.NotFound, "no summary entries for project %s in period %s", projectID, period))
}

// writeRawJSON writes an already-marshaled document as the envelope's data
// field, preserving the stored JSON verbatim instead of round-tripping it
// through another Go value.
func writeRawJSON(w http.ResponseWriter, status int, raw json.RawMessage) {
	writeOK(w, status, "", raw)
}
