package scheduler

import (
	"testing"
	"time"

	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
)

type fakeSummary struct {
	refreshed []string
}

func (f *fakeSummary) Refresh(clientID string, now time.Time) error {
	f.refreshed = append(f.refreshed, clientID)
	return nil
}

type fakeClients struct{ ids []string }

func (f fakeClients) ListClientIDs() ([]string, error) { return f.ids, nil }

type fakeHousekeeping struct {
	byClient map[string][]*project.Project
	saved    []*project.Project
}

func (f *fakeHousekeeping) List(clientID string) ([]*project.Project, error) {
	return f.byClient[clientID], nil
}

func (f *fakeHousekeeping) Save(p *project.Project) error {
	f.saved = append(f.saved, p)
	return nil
}

func TestRunSummaryRefreshCoversEveryClient(t *testing.T) {
	summary := &fakeSummary{}
	s := New(Config{}, summary, fakeClients{ids: []string{"c1", "c2"}}, nil, nil)

	s.runSummaryRefresh()

	if len(summary.refreshed) != 2 {
		t.Fatalf("expected 2 refreshes, got %v", summary.refreshed)
	}
}

func TestHousekeepingExpiresStalePendingRequest(t *testing.T) {
	stale := &project.Project{
		ClientID: "c1", ProjectID: "p1",
		Channel: project.ChannelState{
			APIKeyRequest:     project.APIKeyRequestPending,
			APIKeyRequestedAt: time.Now().Add(-96 * time.Hour),
		},
	}
	fresh := &project.Project{
		ClientID: "c1", ProjectID: "p2",
		Channel: project.ChannelState{
			APIKeyRequest:     project.APIKeyRequestPending,
			APIKeyRequestedAt: time.Now().Add(-1 * time.Hour),
		},
	}
	housek := &fakeHousekeeping{byClient: map[string][]*project.Project{"c1": {stale, fresh}}}
	s := New(Config{StalePendingAfter: 72 * time.Hour}, &fakeSummary{}, fakeClients{ids: []string{"c1"}}, housek, nil)

	s.runHousekeeping()

	if stale.Channel.APIKeyRequest != project.APIKeyRequestRejected {
		t.Fatalf("expected the stale request to be auto-rejected, got %v", stale.Channel.APIKeyRequest)
	}
	if fresh.Channel.APIKeyRequest != project.APIKeyRequestPending {
		t.Fatalf("expected the fresh request to remain pending, got %v", fresh.Channel.APIKeyRequest)
	}
	if len(housek.saved) != 1 || housek.saved[0] != stale {
		t.Fatalf("expected exactly the stale project to be saved, got %+v", housek.saved)
	}
}

func TestStartRejectsMalformedCronSpec(t *testing.T) {
	s := New(Config{SummarySpec: "not-a-valid-spec"}, &fakeSummary{}, fakeClients{}, nil, nil)
	if err := s.Start(); err == nil {
		t.Fatal("expected an error for a malformed cron expression")
	}
}
