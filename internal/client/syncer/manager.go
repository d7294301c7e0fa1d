package syncer

import (
	"context"
	gosync "sync"
	"time"

	"github.com/dmitrijs2005/habitsync/internal/logging"
)

// BackgroundRegistrar registers a named platform background task so sync can
// run while the app is not foregrounded. Registration is best-effort.
type BackgroundRegistrar interface {
	Register(ctx context.Context, taskName string) error
	Unregister(ctx context.Context, taskName string) error
}

// backgroundTaskName is the platform task handle registered on start.
const backgroundTaskName = "habitsync.background-sync"

// ManagerConfig controls scheduling.
type ManagerConfig struct {
	Interval  time.Duration
	Enabled   bool
	AutoStart bool
}

// Manager schedules engine runs: once on start, on a recurring interval, on
// app-foreground transitions and on demand. It owns no sync logic itself.
//
// Automatic triggers (timer, foreground) swallow engine errors so a failed
// background sync never crashes the host; TriggerSync surfaces them so a
// user-initiated "sync now" can show a visible error.
type Manager struct {
	engine    *Engine
	cfg       ManagerConfig
	registrar BackgroundRegistrar // optional
	log       logging.Logger

	// inFlight serializes runs: concurrent drains of the same outbox batch
	// would push duplicate mutations.
	inFlight gosync.Mutex

	foreground chan struct{}
	done       chan struct{}
	closeOnce  gosync.Once
	wg         gosync.WaitGroup
}

func NewManager(engine *Engine, cfg ManagerConfig, registrar BackgroundRegistrar, log logging.Logger) *Manager {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	return &Manager{
		engine:     engine,
		cfg:        cfg,
		registrar:  registrar,
		log:        log,
		foreground: make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Start launches the scheduling loop. When enabled and auto-start is not
// disabled, one sync runs immediately.
func (m *Manager) Start(ctx context.Context) {
	if m.registrar != nil {
		if err := m.registrar.Register(ctx, backgroundTaskName); err != nil {
			m.log.Warn(ctx, "background task registration failed", "task", backgroundTaskName, "error", err)
		}
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		if m.cfg.Enabled && m.cfg.AutoStart {
			m.runAutomatic(ctx)
		}

		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if m.cfg.Enabled {
					m.runAutomatic(ctx)
				}
			case <-m.foreground:
				// foreground transitions sync regardless of timer phase
				if m.cfg.Enabled {
					m.runAutomatic(ctx)
				}
			case <-m.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Foreground signals an app-foreground ("active") transition. Non-blocking;
// coalesces when a signal is already queued.
func (m *Manager) Foreground() {
	select {
	case m.foreground <- struct{}{}:
	default:
	}
}

// TriggerSync runs one cycle immediately and returns its error. Manual
// triggers are never gated on the enabled flag. If a run is already in
// flight the call waits for its turn instead of stacking a concurrent drain.
func (m *Manager) TriggerSync(ctx context.Context) error {
	m.inFlight.Lock()
	defer m.inFlight.Unlock()
	return m.engine.RunSync(ctx)
}

// runAutomatic runs one cycle, skipping when another run is in flight and
// logging instead of propagating failures.
func (m *Manager) runAutomatic(ctx context.Context) {
	if !m.inFlight.TryLock() {
		m.log.Debug(ctx, "sync already in flight, skipping scheduled run")
		return
	}
	defer m.inFlight.Unlock()

	if err := m.engine.RunSync(ctx); err != nil {
		m.log.Error(ctx, "scheduled sync failed", "error", err)
	}
}

// Close stops the scheduler and unregisters the background task.
func (m *Manager) Close(ctx context.Context) {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()

	if m.registrar != nil {
		if err := m.registrar.Unregister(ctx, backgroundTaskName); err != nil {
			m.log.Warn(ctx, "background task unregistration failed", "task", backgroundTaskName, "error", err)
		}
	}
}
