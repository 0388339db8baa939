package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "alldaycal/internal/log"
)

// Runner produces snapshots; *Pipeline is the production implementation.
type Runner interface {
	Run(ctx context.Context) (*Snapshot, error)
}

// Hook runs after every successful refresh, e.g. to capture a preview.
type Hook func(ctx context.Context, snap *Snapshot)

// Scheduler runs a Runner on a cron schedule and publishes the results to a
// Store. Refreshes never overlap.
type Scheduler struct {
	runner  Runner
	store   *Store
	hook    Hook
	cron    *cron.Cron
	timeout time.Duration

	// ctx parents every refresh started by the schedule; cancel aborts them.
	ctx     context.Context
	cancel  context.CancelFunc
	initial sync.WaitGroup

	mu sync.Mutex // serializes refreshes
}

// NewScheduler validates spec (standard 5-field cron) and prepares the
// schedule in loc. hook may be nil.
func NewScheduler(spec string, loc *time.Location, runner Runner, store *Store, hook Hook) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	s := &Scheduler{
		runner:  runner,
		store:   store,
		hook:    hook,
		cron:    cron.New(cron.WithLocation(loc)),
		timeout: 2 * time.Minute,
		ctx:     context.Background(),
		cancel:  func() {},
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, err
	}
	return s, nil
}

// Start runs one refresh in the background and starts the schedule.
// Scheduled refreshes run under ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		s.tick()
	}()
	s.cron.Start()
	appLog.Info("scheduler started", "next", s.Next())
}

// Stop stops the schedule and waits for the initial and any running
// scheduled refresh to finish. When ctx expires first, those refreshes are
// cancelled.
func (s *Scheduler) Stop(ctx context.Context) {
	cronDone := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.initial.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.cancel()
		<-done
	}
	s.cancel()
}

// Next returns the next scheduled run.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	if _, err := s.RefreshNow(ctx); err != nil {
		appLog.Error("scheduled refresh failed", err)
	}
}

// RefreshNow runs the pipeline immediately and publishes the snapshot. On
// error the store keeps the previous snapshot.
func (s *Scheduler) RefreshNow(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.runner.Run(ctx)
	if err != nil {
		return nil, err
	}
	s.store.Set(snap)
	if s.hook != nil {
		s.hook(ctx, snap)
	}
	return snap, nil
}
