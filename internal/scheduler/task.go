package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"moneymanager/internal/log"
)

// ErrInvalidInterval is returned for non-positive intervals.
var ErrInvalidInterval = errors.New("interval must be positive")

// Func is the work run on every tick. The context is cancelled on Stop.
type Func func(ctx context.Context) error

// Task runs a Func periodically. Ticks never overlap: a tick arriving while
// the previous run is still busy is dropped. A Func must not call Stop or
// Reset on its own task.
type Task struct {
	name   string
	fn     Func
	clock  Clock
	logger *log.Logger

	// lifecycle serialises Start and Stop so one loop exists at most.
	lifecycle sync.Mutex

	mu       sync.Mutex
	running  bool
	interval time.Duration
	next     time.Time
	cancel   context.CancelFunc
	doneCh   chan struct{}
	runs     int
}

// Option configures a Task.
type Option func(*Task)

func WithClock(c Clock) Option { return func(t *Task) { t.clock = c } }

func WithLogger(l *log.Logger) Option { return func(t *Task) { t.logger = l } }

func NewTask(name string, fn Func, opts ...Option) *Task {
	t := &Task{name: name, fn: fn, clock: RealClock{}}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = log.Discard()
	}
	t.logger = t.logger.WithComponent(log.ComponentScheduler).With(log.FieldTask, name)
	return t
}

// Start schedules the task every interval. Starting a running task
// reschedules it.
func (t *Task) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()
	t.stop()

	t.mu.Lock()
	defer t.mu.Unlock()
	runCtx, cancel := context.WithCancel(ctx)
	ticker := t.clock.NewTicker(interval)
	t.running = true
	t.interval = interval
	t.next = t.clock.Now().Add(interval)
	t.cancel = cancel
	t.doneCh = make(chan struct{})

	go t.loop(runCtx, ticker, t.doneCh)

	t.logger.InfoContext(ctx, "Task scheduled", "interval", interval)
	return nil
}

// Reset tears the schedule down and starts it again with interval.
func (t *Task) Reset(ctx context.Context, interval time.Duration) error {
	return t.Start(ctx, interval)
}

// Stop cancels the schedule and waits for an in-flight run to return.
// Stopping a stopped task does nothing.
func (t *Task) Stop() {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()
	t.stop()
}

func (t *Task) stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	cancel, done := t.cancel, t.doneCh
	t.mu.Unlock()

	cancel()
	<-done
	t.logger.Debug("Task stopped")
}

func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// NextRun is when the next tick is due, zero when stopped.
func (t *Task) NextRun() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return time.Time{}
	}
	return t.next
}

func (t *Task) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

// Runs counts completed runs since construction.
func (t *Task) Runs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runs
}

func (t *Task) loop(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if ctx.Err() != nil {
				return
			}
			t.mu.Lock()
			t.next = t.clock.Now().Add(t.interval)
			t.mu.Unlock()

			if err := t.fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				t.logger.ErrorContext(ctx, "Task run failed", log.FieldError, err)
			}

			t.mu.Lock()
			t.runs++
			t.mu.Unlock()
		}
	}
}
