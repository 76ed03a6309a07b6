package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/GreonXpert/netreduction-engine/internal/scheduler"
)

// schedulerService adapts *scheduler.Scheduler to system.Service so the
// cron-driven summary refresh and housekeeping sweep start and stop
// alongside everything else the application manages.
type schedulerService struct {
	sched *scheduler.Scheduler
}

func (schedulerService) Name() string { return "scheduler" }

func (s schedulerService) Start(ctx context.Context) error {
	return s.sched.Start()
}

func (s schedulerService) Stop(ctx context.Context) error {
	s.sched.Stop()
	return nil
}

// httpService adapts *http.Server to system.Service: Start launches
// ListenAndServe on its own goroutine (a bound failure surfaces through
// the logger, matching a server that is expected to run until Stop calls
// Shutdown), Stop gracefully drains in-flight requests.
type httpService struct {
	srv *http.Server
	log *logrus.Logger
}

func (httpService) Name() string { return "http" }

func (h httpService) Start(ctx context.Context) error {
	go func() {
		if err := h.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log.WithError(err).Error("http server exited unexpectedly")
		}
	}()
	return nil
}

func (h httpService) Stop(ctx context.Context) error {
	return h.srv.Shutdown(ctx)
}
