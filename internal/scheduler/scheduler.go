package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/misbar-ag/satwatch/internal/monitor"
)

// Scheduler periodically runs a full fleet refresh.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *monitor.Service
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler around the controller. timeout bounds one
// whole refresh cycle.
func New(service *monitor.Service, interval, timeout time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		service:   service,
		interval:  interval,
		timeout:   timeout,
	}
}

// Start schedules the periodic refresh job and starts the underlying
// scheduler. The first run fires immediately so the dashboard has data
// without waiting a full interval.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	_, err := s.scheduler.Every(interval).StartImmediately().Do(func() {
		log.Println("scheduler: running satellite refresh cycle")

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.service.RefreshAll(ctx); err != nil {
			if errors.Is(err, monitor.ErrRefreshInProgress) {
				// A manual trigger beat the timer; skip this tick.
				log.Println("scheduler: refresh already running, skipping tick")
				return
			}
			log.Printf("scheduler: refresh cycle failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
