// Package cli wires the sync core together behind a small non-interactive
// command surface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/habitsync/internal/client/api"
	"github.com/dmitrijs2005/habitsync/internal/client/config"
	"github.com/dmitrijs2005/habitsync/internal/client/cursor"
	"github.com/dmitrijs2005/habitsync/internal/client/data"
	"github.com/dmitrijs2005/habitsync/internal/client/models"
	"github.com/dmitrijs2005/habitsync/internal/client/store"
	"github.com/dmitrijs2005/habitsync/internal/client/syncer"
	"github.com/dmitrijs2005/habitsync/internal/logging"
)

// App is the production wiring of the sync core: store, repositories,
// outbox, cursors, engine and manager, built from one Config.
type App struct {
	config  *config.Config
	store   *store.Store
	cursors cursor.Store
	data    *data.Service
	status  *syncer.StatusStore
	manager *syncer.Manager
	log     logging.Logger
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.UserID == "" {
		return nil, fmt.Errorf("user id is required (flag -u or HABITSYNC_USER_ID)")
	}

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	st, err := store.Open(ctx, cfg.DatabasePath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	cursors := cursor.Open(ctx, cfg.CursorPath, cfg.UserID, log)
	dataSvc := data.NewService(st, cursors, cfg.UserID, log)

	apiClient := api.NewClient(cfg.ServerEndpointAddr, cfg.UserID, log)
	status := syncer.NewStatusStore()
	engine := syncer.NewEngine(st, status, apiClient.Push, log,
		syncer.WithBatchSize(cfg.BatchSize),
		syncer.WithPull(data.NewPull(apiClient, cursors, dataSvc, log)),
	)

	manager := syncer.NewManager(engine, syncer.ManagerConfig{
		Interval:  cfg.SyncInterval,
		Enabled:   cfg.SyncEnabled,
		AutoStart: cfg.SyncAutoStart,
	}, nil, log)

	return &App{
		config:  cfg,
		store:   st,
		cursors: cursors,
		data:    dataSvc,
		status:  status,
		manager: manager,
		log:     log,
	}, nil
}

func (a *App) Close(ctx context.Context) {
	a.manager.Close(ctx)
	if err := a.cursors.Close(); err != nil {
		a.log.Warn(ctx, "failed to close cursor store", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn(ctx, "failed to close local store", "error", err)
	}
}

// Run dispatches one command. Usage:
//
//	add-habit <name>
//	list
//	log <habit-id> <date> <value>
//	delete <habit-id>
//	sync
//	status
//	reset
//	watch
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no command given")
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "add-habit":
		if len(rest) < 1 {
			return fmt.Errorf("usage: add-habit <name>")
		}
		h := &models.Habit{Name: rest[0], GoalPerDay: 1}
		if err := a.data.CreateHabit(ctx, h); err != nil {
			return err
		}
		fmt.Println(h.ID)
		return nil

	case "list":
		habits, err := a.data.ListHabits(ctx)
		if err != nil {
			return err
		}
		for _, h := range habits {
			fmt.Printf("%s\t%s\tv%d\n", h.ID, h.Name, h.Version)
		}
		return nil

	case "log":
		if len(rest) < 3 {
			return fmt.Errorf("usage: log <habit-id> <date> <value>")
		}
		e := &models.HabitEntry{HabitID: rest[0], EntryDate: rest[1]}
		if _, err := fmt.Sscanf(rest[2], "%d", &e.Value); err != nil {
			return fmt.Errorf("value must be an integer: %w", err)
		}
		if err := a.data.LogEntry(ctx, e); err != nil {
			return err
		}
		fmt.Println(e.ID)
		return nil

	case "delete":
		if len(rest) < 1 {
			return fmt.Errorf("usage: delete <habit-id>")
		}
		return a.data.DeleteHabit(ctx, rest[0])

	case "sync":
		// manual trigger: errors surface to the caller
		return a.manager.TriggerSync(ctx)

	case "status":
		s := a.status.Snapshot()
		pending, err := a.data.PendingCount(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("status: %s\npending: %d\nlast synced: %s\nlast error: %s\n",
			s.Status, pending, s.LastSyncedAt, s.LastError)
		return nil

	case "reset":
		return a.data.Reset(ctx)

	case "watch":
		return a.watch(ctx)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// watch runs the scheduler until interrupted.
func (a *App) watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a.manager.Start(ctx)
	a.log.Info(ctx, "sync scheduler running", "interval", a.config.SyncInterval)
	<-ctx.Done()
	return nil
}
