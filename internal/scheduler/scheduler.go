// Package scheduler runs capture processing and event extraction on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context)
}

// Scheduler wraps a cron runner. Overlapping runs of the same job are skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	jobs   []Job
}

// New registers jobs. Specs use the standard five-field syntax or descriptors like "@every 5m".
func New(logger *slog.Logger, jobs ...Job) (*Scheduler, error) {
	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	for _, j := range jobs {
		if _, err := cron.ParseStandard(j.Spec); err != nil {
			return nil, fmt.Errorf("scheduler: job %s: %w", j.Name, err)
		}
	}
	return &Scheduler{cron: c, logger: logger, jobs: jobs}, nil
}

// Run starts the jobs and blocks until ctx is cancelled, then waits for running jobs.
func (s *Scheduler) Run(ctx context.Context) error {
	for _, j := range s.jobs {
		if _, err := s.cron.AddFunc(j.Spec, func() {
			s.logger.Debug("scheduled job started", slog.String("job", j.Name))
			j.Run(ctx)
		}); err != nil {
			return fmt.Errorf("scheduler: job %s: %w", j.Name, err)
		}
		s.logger.Info("job scheduled", slog.String("job", j.Name), slog.String("spec", j.Spec))
	}

	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, slog.String("error", err.Error()))...)
}
