// Package app wires every internal package into one runnable service:
// storage, the authorization oracle, the ingestion/engine/summary
// pipeline, the event bus, the cron-driven scheduler, and the HTTP edge.
// cmd/reductionengine is its only caller.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/GreonXpert/netreduction-engine/internal/authz"
	core "github.com/GreonXpert/netreduction-engine/internal/core/service"
	"github.com/GreonXpert/netreduction-engine/internal/engine"
	"github.com/GreonXpert/netreduction-engine/internal/eventbus"
	"github.com/GreonXpert/netreduction-engine/internal/httpapi"
	"github.com/GreonXpert/netreduction-engine/internal/ingestion"
	"github.com/GreonXpert/netreduction-engine/internal/repository"
	"github.com/GreonXpert/netreduction-engine/internal/repository/memory"
	"github.com/GreonXpert/netreduction-engine/internal/scheduler"
	"github.com/GreonXpert/netreduction-engine/internal/summary"
	"github.com/GreonXpert/netreduction-engine/internal/system"
	"github.com/GreonXpert/netreduction-engine/pkg/config"
)

// staticClientLister backs scheduler.ClientLister with a fixed tenant
// list. internal/repository deliberately has no "every client" query (see
// internal/scheduler's ClientLister doc comment), so the wiring layer
// supplies the directory — a config-provided list here, a real accounts
// table in a deployment that has one.
type staticClientLister []string

func (s staticClientLister) ListClientIDs() ([]string, error) { return []string(s), nil }

// Application owns every long-lived component and its lifecycle.
type Application struct {
	cfg  *config.Config
	log  *logrus.Logger
	repo repository.Repository

	Engine    *engine.Engine
	Bus       *eventbus.Bus
	Scheduler *scheduler.Scheduler

	httpServer *http.Server
	services   []system.Service
}

// New assembles an Application from configuration. repo is typically a
// *postgres.Store backed by a live *sqlx.DB, or nil to fall back to an
// in-memory store for local runs and tests. clientIDs seeds the
// scheduler's tenant directory (see staticClientLister).
func New(cfg *config.Config, repo repository.Repository, log *logrus.Logger, clientIDs []string) (*Application, error) {
	if cfg == nil {
		cfg = config.New()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if repo == nil {
		repo = memory.New()
	}

	bus := eventbus.New(log)

	ratePerSecond := float64(cfg.Engine.APIRatePerMinute) / 60
	channels := ingestion.New(repo.Projects(), ingestion.Config{RequestsPerSecond: ratePerSecond})

	summaryEngine := summary.New(repo.Entries(), repo.Summaries(), summary.NewMetadataProvider(repo.Projects()), bus, log)

	eng := engine.New(engine.Deps{
		Oracle:   authz.DefaultRoleTable(),
		Channels: channels,
		Repo:     repo,
		Summary:  summaryEngine,
		Bus:      bus,
		Log:      log,
	})

	sched := scheduler.New(scheduler.Config{
		SummarySpec: cfg.Engine.SummaryCron,
	}, summaryEngine, staticClientLister(clientIDs), repo.Projects(), log)

	a := &Application{
		cfg:       cfg,
		log:       log,
		repo:      repo,
		Engine:    eng,
		Bus:       bus,
		Scheduler: sched,
	}

	descriptors := []system.DescriptorProvider{eng, bus, sched}
	router := httpapi.NewRouter(httpapi.Deps{
		Engine:      eng,
		Bus:         bus,
		Descriptors: descriptors,
		Log:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	a.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	a.services = []system.Service{
		schedulerService{sched},
		httpService{srv: a.httpServer, log: log},
	}

	return a, nil
}

// Start starts every registered lifecycle service (scheduler, then HTTP
// server) in order, unwinding anything already started if one fails.
func (a *Application) Start(ctx context.Context) error {
	for i, svc := range a.services {
		if err := svc.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = a.services[j].Stop(ctx)
			}
			return fmt.Errorf("start %s: %w", svc.Name(), err)
		}
	}
	return nil
}

// Stop stops every registered service in reverse order, collecting the
// first error but attempting every shutdown regardless.
func (a *Application) Stop(ctx context.Context) error {
	var firstErr error
	for i := len(a.services) - 1; i >= 0; i-- {
		if err := a.services[i].Stop(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stop %s: %w", a.services[i].Name(), err)
		}
	}
	return firstErr
}

// Descriptors reports every advertised component for /system/descriptors.
func (a *Application) Descriptors() []core.Descriptor {
	return system.CollectDescriptors([]system.DescriptorProvider{a.Engine, a.Bus, a.Scheduler})
}
