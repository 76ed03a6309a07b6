// Package scheduler drives the periodic work the engine's write path never
// triggers on its own: a cron-scheduled Summary Engine refresh per known
// client, and a housekeeping sweep over ingestion channels.
package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	core "github.com/GreonXpert/netreduction-engine/internal/core/service"
	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
)

// SummaryRefresher is the subset of internal/summary.Engine the scheduler
// drives.
type SummaryRefresher interface {
	Refresh(clientID string, now time.Time) error
}

// ClientLister enumerates the clients the scheduler should sweep. Backed in
// production by whatever keeps the authoritative tenant list (a config
// table or an external directory); internal/repository has no single
// "every client" query, so the caller supplies this.
type ClientLister interface {
	ListClientIDs() ([]string, error)
}

// HousekeepingStore is the subset of project storage the channel sweep
// needs to find and clear stale apiKeyRequests.
type HousekeepingStore interface {
	List(clientID string) ([]*project.Project, error)
	Save(p *project.Project) error
}

// Config controls the scheduler's cron expressions. All fields default to
// sensible values if left empty.
type Config struct {
	// SummarySpec schedules the all-five-cadence summary refresh. Defaults
	// to hourly.
	SummarySpec string
	// HousekeepingSpec schedules the apiKeyRequest/channel sweep. Defaults
	// to once every six hours.
	HousekeepingSpec string
	// StalePendingAfter is how long an apiKeyRequest may sit in "pending"
	// before the sweep auto-rejects it. Defaults to 72h.
	StalePendingAfter time.Duration
}

func (c Config) withDefaults() Config {
	if c.SummarySpec == "" {
		c.SummarySpec = "0 * * * *"
	}
	if c.HousekeepingSpec == "" {
		c.HousekeepingSpec = "0 */6 * * *"
	}
	if c.StalePendingAfter <= 0 {
		c.StalePendingAfter = 72 * time.Hour
	}
	return c
}

// Scheduler owns a *cron.Cron and the jobs registered on it.
type Scheduler struct {
	cron    *cron.Cron
	cfg     Config
	summary SummaryRefresher
	clients ClientLister
	housek  HousekeepingStore
	log     *logrus.Logger
}

// New builds a Scheduler. housekeeping may be nil to disable the channel
// sweep (summary refresh alone still runs).
func New(cfg Config, summary SummaryRefresher, clients ClientLister, housekeeping HousekeepingStore, log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{
		cron:    cron.New(),
		cfg:     cfg.withDefaults(),
		summary: summary,
		clients: clients,
		housek:  housekeeping,
		log:     log,
	}
}

// Start registers both jobs and starts the cron scheduler's own goroutine.
// Registration errors (a malformed spec) are returned without starting
// anything.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.SummarySpec, s.runSummaryRefresh); err != nil {
		return err
	}
	if s.housek != nil {
		if _, err := s.cron.AddFunc(s.cfg.HousekeepingSpec, s.runHousekeeping); err != nil {
			return err
		}
	}
	s.cron.Start()
	return nil
}

// Stop cancels pending runs and blocks until any in-flight job returns.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Descriptor advertises the scheduler's placement to /system/descriptors.
func (s *Scheduler) Descriptor() core.Descriptor {
	return core.Descriptor{
		Name:         "scheduler",
		Domain:       "net-reduction",
		Layer:        core.LayerEngine,
		Capabilities: []string{"summary-refresh-cron", "channel-housekeeping"},
	}
}

func (s *Scheduler) runSummaryRefresh() {
	ids, err := s.clients.ListClientIDs()
	if err != nil {
		s.log.WithError(err).Error("scheduler: failed to list clients for summary refresh")
		return
	}
	now := time.Now()
	for _, clientID := range ids {
		if err := s.summary.Refresh(clientID, now); err != nil {
			s.log.WithError(err).WithField("client_id", clientID).Warn("scheduler: summary refresh failed")
		}
	}
}

func (s *Scheduler) runHousekeeping() {
	ids, err := s.clients.ListClientIDs()
	if err != nil {
		s.log.WithError(err).Error("scheduler: failed to list clients for housekeeping sweep")
		return
	}
	cutoff := time.Now().Add(-s.cfg.StalePendingAfter)
	for _, clientID := range ids {
		projects, err := s.housek.List(clientID)
		if err != nil {
			s.log.WithError(err).WithField("client_id", clientID).Warn("scheduler: failed to list projects for housekeeping")
			continue
		}
		for _, p := range projects {
			if s.expirePendingAPIKeyRequest(p, cutoff) {
				if err := s.housek.Save(p); err != nil {
					s.log.WithError(err).WithField("project_id", p.ProjectID).Warn("scheduler: failed to save housekept project")
				}
			}
		}
	}
}

// expirePendingAPIKeyRequest auto-rejects an apiKeyRequest left pending
// past cutoff, reporting whether it changed p.
func (s *Scheduler) expirePendingAPIKeyRequest(p *project.Project, cutoff time.Time) bool {
	if p.Channel.APIKeyRequest != project.APIKeyRequestPending {
		return false
	}
	if p.Channel.APIKeyRequestedAt.IsZero() || p.Channel.APIKeyRequestedAt.After(cutoff) {
		return false
	}
	p.Channel.APIKeyRequest = project.APIKeyRequestRejected
	s.log.WithFields(logrus.Fields{
		"client_id":  p.ClientID,
		"project_id": p.ProjectID,
	}).Info("scheduler: auto-rejected a stale pending apiKeyRequest")
	return true
}
