package services

import (
	"context"
	"sync"
	"time"

	"moneymanager/internal/ledger"
	"moneymanager/internal/log"
	"moneymanager/internal/scheduler"
)

// DefaultSaveInterval is how often auto-save runs.
const DefaultSaveInterval = time.Minute

// Background runs auto-refresh and auto-save for a LedgerService.
type Background struct {
	svc          *LedgerService
	clock        scheduler.Clock
	logger       *log.Logger
	saveInterval time.Duration

	refresh *scheduler.Task
	save    *scheduler.Task

	mu          sync.RWMutex
	ctx         context.Context
	lastRefresh time.Time
	dashboard   ledger.Dashboard
	onRefresh   func(ledger.Dashboard)
}

// BackgroundOption configures Background.
type BackgroundOption func(*Background)

func WithBackgroundClock(c scheduler.Clock) BackgroundOption {
	return func(b *Background) { b.clock = c }
}

func WithSaveInterval(d time.Duration) BackgroundOption {
	return func(b *Background) { b.saveInterval = d }
}

// OnRefresh is called with the recomputed dashboard after every refresh.
func OnRefresh(fn func(ledger.Dashboard)) BackgroundOption {
	return func(b *Background) { b.onRefresh = fn }
}

func NewBackground(svc *LedgerService, logger *log.Logger, opts ...BackgroundOption) *Background {
	b := &Background{svc: svc, clock: svc.clock, saveInterval: DefaultSaveInterval}
	for _, opt := range opts {
		opt(b)
	}
	if logger == nil {
		logger = log.Discard()
	}
	b.logger = logger.WithComponent(log.ComponentScheduler)

	taskOpts := []scheduler.Option{scheduler.WithClock(b.clock), scheduler.WithLogger(logger)}
	b.refresh = scheduler.NewTask("auto-refresh", b.Refresh, taskOpts...)
	b.save = scheduler.NewTask("auto-save", b.AutoSave, taskOpts...)
	return b
}

// Start schedules auto-save and, when enabled in settings, auto-refresh.
func (b *Background) Start(ctx context.Context) error {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	settings := b.svc.Settings()
	if settings.AutoRefresh {
		if err := b.refresh.Start(ctx, settings.RefreshInterval); err != nil {
			return err
		}
	}
	return b.save.Start(ctx, b.saveInterval)
}

// Stop cancels both tasks and waits for in-flight runs.
func (b *Background) Stop() {
	b.refresh.Stop()
	b.save.Stop()
}

// SetAutoRefresh persists the preference and applies it right away:
// disabling stops the timer, enabling or changing the interval reschedules.
func (b *Background) SetAutoRefresh(ctx context.Context, enabled bool, interval time.Duration) error {
	next := b.svc.Settings()
	next.AutoRefresh = enabled
	if interval > 0 {
		next.RefreshInterval = interval
	}
	saved, err := b.svc.UpdateSettings(ctx, next)
	if err != nil {
		return err
	}

	if !saved.AutoRefresh {
		b.refresh.Stop()
		return nil
	}
	return b.refresh.Reset(b.runContext(ctx), saved.RefreshInterval)
}

// runContext is the context tasks were started with, so a request-scoped
// ctx does not end the schedule.
func (b *Background) runContext(fallback context.Context) context.Context {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.ctx != nil {
		return b.ctx
	}
	return context.WithoutCancel(fallback)
}

// Refresh reloads from storage, recomputes the dashboard and writes the
// daily backup when due.
func (b *Background) Refresh(ctx context.Context) error {
	if err := b.svc.Load(ctx); err != nil {
		return err
	}
	d := b.svc.Dashboard()

	b.mu.Lock()
	b.lastRefresh = b.clock.Now()
	b.dashboard = d
	notify := b.onRefresh
	b.mu.Unlock()

	if notify != nil {
		notify(d)
	}
	if written, err := b.svc.BackupIfDue(ctx); err != nil {
		b.logger.ErrorContext(ctx, "Automatic backup failed", log.FieldError, err, log.FieldOperation, log.OpBackup)
	} else if written {
		b.logger.InfoContext(ctx, "Automatic backup written", log.FieldOperation, log.OpBackup)
	}
	return nil
}

// AutoSave saves when auto-save is enabled and the ledger is not empty.
func (b *Background) AutoSave(ctx context.Context) error {
	if !b.svc.Settings().AutoSave || b.svc.Len() == 0 {
		return nil
	}
	return b.svc.Save(ctx)
}

// RefreshRunning reports whether auto-refresh is scheduled.
func (b *Background) RefreshRunning() bool { return b.refresh.Running() }

// NextRefresh is when the next auto-refresh is due, zero when off.
func (b *Background) NextRefresh() time.Time { return b.refresh.NextRun() }

// LastRefresh is when Refresh last completed.
func (b *Background) LastRefresh() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastRefresh
}

// LastDashboard is the dashboard computed by the latest refresh.
func (b *Background) LastDashboard() ledger.Dashboard {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dashboard
}
