// Package maintenance runs periodic storage upkeep on a cron schedule.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Checkpointer is implemented by the repository
type Checkpointer interface {
	Checkpoint(ctx context.Context) error
}

// Scheduler wraps a cron runner with the checkpoint job
type Scheduler struct {
	cron    *cron.Cron
	store   Checkpointer
	log     *logrus.Logger
	timeout time.Duration
}

// NewScheduler registers the checkpoint job under spec. An empty spec returns nil.
func NewScheduler(spec string, store Checkpointer, log *logrus.Logger) (*Scheduler, error) {
	if spec == "" {
		return nil, nil
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithLogger(cron.PrintfLogger(log))),
		store:   store,
		log:     log,
		timeout: time.Minute,
	}
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("failed to schedule checkpoint %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for a running job up to ctx
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("Checkpoint still running at shutdown")
	}
}

// RunOnce performs a single checkpoint
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.store.Checkpoint(ctx); err != nil {
		s.log.WithError(err).Error("Storage checkpoint failed")
		return
	}
	s.log.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("Storage checkpoint complete")
}
