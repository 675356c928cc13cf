package dirsyncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"mirrorsync/internal/log"
	"mirrorsync/internal/model"
	"mirrorsync/pkg/helpers/run"

	"github.com/jonboulle/clockwork"
)

//State of the Scheduler. Stopped is terminal.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

//Syncer runs one tick.
type Syncer interface {
	SyncOnce(ctx context.Context) (model.Report, error)
}

//Scheduler repeats ticks with a fixed pause between the end of one tick and the start of the next one.
//Ticks never overlap, whichever way they are triggered.
type Scheduler struct {
	log      log.Logger
	syncer   Syncer
	interval time.Duration
	clock    clockwork.Clock

	tickMu sync.Mutex // held for the whole tick

	mu       sync.Mutex // guards the fields below
	state    State
	looping  bool
	stopCh   chan struct{}
	stopOnce sync.Once
	loopDone chan struct{}
	loopErr  error
}

func NewScheduler(logger log.Logger, syncer Syncer, interval time.Duration, clock clockwork.Clock) *Scheduler {
	return &Scheduler{
		log:      logger,
		syncer:   syncer,
		interval: interval,
		clock:    clock,
		stopCh:   make(chan struct{}),
		loopDone: make(chan struct{}),
	}
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

//RunOnce runs a single tick synchronously. If another tick is in progress, it waits for it to finish first.
//The tick itself is not interrupted by ctx cancellation: filesystem operations in flight are completed.
func (s *Scheduler) RunOnce(ctx context.Context) (model.Report, error) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	if !s.transition(StateIdle, StateRunning) {
		return model.Report{}, ErrSchedulerStopped
	}
	defer s.transition(StateRunning, StateIdle)

	var report model.Report
	err := run.WithError(func() error {
		var err error
		report, err = s.syncer.SyncOnce(context.WithoutCancel(ctx))
		return err
	})
	return report, err
}

//Run runs the tick loop in the calling goroutine until ctx is done or Stop is called.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.claimLoop(); err != nil {
		return err
	}
	err := s.loop(ctx)
	s.finishLoop(err)
	return err
}

//Start launches the tick loop in a separate goroutine and returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.claimLoop(); err != nil {
		return err
	}
	errCh := run.AsyncWithError(func() error { return s.loop(ctx) })
	go func() { s.finishLoop(<-errCh) }()
	return nil
}

//Stop makes sure no new tick begins after it returns. A tick in progress is let to finish;
//use Wait to await the end of a loop launched by Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
	s.stopOnce.Do(func() { close(s.stopCh) })
}

//Wait blocks until the loop (if any was started) is over and returns its error.
func (s *Scheduler) Wait() error {
	s.mu.Lock()
	looping := s.looping
	s.mu.Unlock()
	if !looping {
		return nil
	}
	<-s.loopDone
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loopErr
}

func (s *Scheduler) loop(ctx context.Context) error {
	s.log.Info("sync loop started", log.Duration("interval", s.interval))
	defer s.log.Info("sync loop stopped")
	for {
		report, err := s.RunOnce(ctx)
		switch {
		case errors.Is(err, ErrSchedulerStopped):
			return nil
		case err != nil:
			s.log.Error("sync tick failed", log.Cause(err))
		default:
			s.log.Debug("sync tick completed",
				log.Int("succeeded", report.Succeeded()), log.Int("failed", report.Failed()))
		}

		select {
		case <-ctx.Done():
			s.Stop()
			return nil
		case <-s.stopCh:
			return nil
		case <-s.clock.After(s.interval):
		}
	}
}

func (s *Scheduler) claimLoop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return ErrSchedulerStopped
	}
	if s.looping {
		return ErrSchedulerStarted
	}
	s.looping = true
	return nil
}

func (s *Scheduler) finishLoop(err error) {
	s.mu.Lock()
	s.loopErr = err
	s.mu.Unlock()
	close(s.loopDone)
}

func (s *Scheduler) transition(from, to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return false
	}
	s.state = to
	return true
}
