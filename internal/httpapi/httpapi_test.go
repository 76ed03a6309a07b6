package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GreonXpert/netreduction-engine/internal/authz"
	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
	"github.com/GreonXpert/netreduction-engine/internal/engine"
	"github.com/GreonXpert/netreduction-engine/internal/ingestion"
	"github.com/GreonXpert/netreduction-engine/internal/repository/memory"
	"github.com/GreonXpert/netreduction-engine/internal/summary"
)

func newTestRouter(t *testing.T) (http.Handler, *memory.Store) {
	t.Helper()
	repo := memory.New()
	channels := ingestion.New(repo.Projects(), ingestion.DefaultConfig())
	summaryEngine := summary.New(repo.Entries(), repo.Summaries(), summary.NewMetadataProvider(repo.Projects()), nil, nil)
	e := engine.New(engine.Deps{
		Oracle:   authz.DefaultRoleTable(),
		Channels: channels,
		Repo:     repo,
		Summary:  summaryEngine,
	})
	return NewRouter(Deps{Engine: e}), repo
}

func seedProject(t *testing.T, repo *memory.Store, clientID, projectID string) {
	t.Helper()
	p := &project.Project{
		ClientID:    clientID,
		ProjectID:   projectID,
		Name:        "Solar Rollout",
		Methodology: project.M1,
		Channel:     project.ChannelState{InputType: project.InputManual},
		M1:          &project.M1Params{BufferPercent: 0},
	}
	if err := repo.Projects().Save(p); err != nil {
		t.Fatalf("seeding project: %v", err)
	}
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func adminHeaders(clientID string) map[string]string {
	return map[string]string{"X-User-Id": "u1", "X-Client-Id": clientID, "X-User-Role": "client-admin"}
}

func TestPostManualCommitsSingleEntry(t *testing.T) {
	router, repo := newTestRouter(t)
	seedProject(t, repo, "acme", "acme-RED-acme-0001")

	value := 12.5
	rec := doRequest(t, router, http.MethodPost, "/net-reduction/acme/acme-RED-acme-0001/M1/manual",
		manualEntryRequest{Value: &value}, adminHeaders("acme"))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPostManualRejectsMissingActor(t *testing.T) {
	router, repo := newTestRouter(t)
	seedProject(t, repo, "acme", "acme-RED-acme-0001")

	value := 12.5
	rec := doRequest(t, router, http.MethodPost, "/net-reduction/acme/acme-RED-acme-0001/M1/manual",
		manualEntryRequest{Value: &value}, nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPostAPIChannelRequiresNoAuthHeaders(t *testing.T) {
	router, repo := newTestRouter(t)
	seedProject(t, repo, "acme", "acme-RED-acme-0001")
	if _, err := repo.Projects().Get("acme", "acme-RED-acme-0001"); err != nil {
		t.Fatalf("seed sanity check: %v", err)
	}
	switchToAPI(t, repo, "acme", "acme-RED-acme-0001")

	value := 4.0
	rec := doRequest(t, router, http.MethodPost, "/net-reduction/acme/acme-RED-acme-0001/M1/api",
		manualEntryRequest{Value: &value}, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for the no-auth API channel, got %d: %s", rec.Code, rec.Body.String())
	}
}

func switchToAPI(t *testing.T, repo *memory.Store, clientID, projectID string) {
	t.Helper()
	p, err := repo.Projects().Get(clientID, projectID)
	if err != nil {
		t.Fatalf("loading project: %v", err)
	}
	p.Channel.InputType = project.InputAPI
	if err := repo.Projects().Save(p); err != nil {
		t.Fatalf("saving project: %v", err)
	}
}

func TestListEntriesRequiresActorClientMatch(t *testing.T) {
	router, repo := newTestRouter(t)
	seedProject(t, repo, "acme", "acme-RED-acme-0001")

	rec := doRequest(t, router, http.MethodGet, "/net-reduction?clientId=other", nil, adminHeaders("acme"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cross-client read, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestClientSummaryRefreshReturns200(t *testing.T) {
	router, repo := newTestRouter(t)
	seedProject(t, repo, "acme", "acme-RED-acme-0001")

	rec := doRequest(t, router, http.MethodGet, "/net-reduction/summary/acme?refresh=true", nil, adminHeaders("acme"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateProjectViaHTTP(t *testing.T) {
	router, _ := newTestRouter(t)

	body := projectRequest{
		Name:        "New Solar Array",
		Methodology: "M1",
		M1:          &project.M1Params{BufferPercent: 5},
	}
	rec := doRequest(t, router, http.MethodPost, "/net-reduction/acme/projects", body, adminHeaders("acme"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}
