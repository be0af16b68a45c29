package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pressly/goose/v3"

	"github.com/vietddude/tracker/internal/core/config"
	"github.com/vietddude/tracker/internal/core/worker"
	"github.com/vietddude/tracker/internal/infra/alertlog"
	"github.com/vietddude/tracker/internal/infra/analytics"
	"github.com/vietddude/tracker/internal/infra/store"
	"github.com/vietddude/tracker/internal/infra/store/memory"
	redisstore "github.com/vietddude/tracker/internal/infra/store/redis"
	"github.com/vietddude/tracker/internal/notify"
	"github.com/vietddude/tracker/internal/tracking/health"
	"github.com/vietddude/tracker/internal/tracking/scheduler"
	"github.com/vietddude/tracker/internal/tracking/wallet"
	"github.com/vietddude/tracker/internal/tracking/whale"
)

// Config holds the application configuration.
type Config struct {
	Port      int
	Redis     redisstore.Config
	Database  alertlog.Config
	Analytics analytics.Config
	Tracking  config.TrackingConfig
}

// Tracker is the main application struct that manages the engine lifecycle.
type Tracker struct {
	cfg          Config
	walletEngine *wallet.Engine
	whaleEngine  *whale.Engine
	sched        *scheduler.Scheduler
	healthServer *health.Server
	store        store.Store
	db           *alertlog.DB
	pruner       *worker.Pruner
	log          *slog.Logger
}

// NewTracker creates a new Tracker instance with all dependencies initialized.
func NewTracker(cfg Config) (*Tracker, error) {
	// 1. Initialize Persistence
	var st store.Store
	if cfg.Redis.URL != "" {
		redisStore, err := redisstore.New(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis store: %w", err)
		}
		st = redisStore
		slog.Info("Using Redis persistence")
	} else {
		st = memory.New()
		slog.Info("Using in-memory persistence")
	}

	// 2. Initialize Analytics Client
	client := analytics.NewHTTPClient(cfg.Analytics)

	// 3. Initialize Dispatcher (+ optional alert history)
	var dispatcher notify.Dispatcher = notify.NewLogDispatcher()
	var db *alertlog.DB
	var pruner *worker.Pruner
	if cfg.Database.URL != "" {
		var err error
		db, err = alertlog.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		repo := alertlog.NewRepo(db)
		dispatcher = notify.NewRecordingDispatcher(dispatcher, repo)
		pruner = worker.NewPruner(cfg.Database.Retention, repo)
		slog.Info("Alert history enabled")
	}

	// 4. Initialize Engines
	walletEngine := wallet.New(wallet.Config{
		Store:                   st,
		Client:                  client,
		Dispatcher:              dispatcher,
		MaxWalletsPerSubscriber: cfg.Tracking.MaxWalletsPerSubscriber,
	})
	whaleEngine := whale.New(whale.Config{
		Store:      st,
		Client:     client,
		Dispatcher: dispatcher,
		PageLimit:  cfg.Tracking.WhalePageLimit,
	})

	// 5. Initialize Scheduler
	sched := scheduler.New()
	sched.Add(scheduler.Job{
		Name:     "wallet-scan",
		Interval: cfg.Tracking.WalletScanInterval,
		Run:      walletEngine.RunScanCycle,
	})
	sched.Add(scheduler.Job{
		Name:     "whale-scan",
		Interval: cfg.Tracking.WhaleScanInterval,
		Run:      whaleEngine.RunScanCycle,
	})

	// 6. Initialize Health Server
	monitor := health.NewMonitor(
		walletEngine,
		whaleEngine,
		cfg.Tracking.WalletScanInterval,
		cfg.Tracking.WhaleScanInterval,
	)
	healthServer := health.NewServer(monitor, cfg.Port)

	return &Tracker{
		cfg:          cfg,
		walletEngine: walletEngine,
		whaleEngine:  whaleEngine,
		sched:        sched,
		healthServer: healthServer,
		store:        st,
		db:           db,
		pruner:       pruner,
		log:          slog.Default(),
	}, nil
}

// WalletEngine exposes the wallet engine to the chat-command layer.
func (t *Tracker) WalletEngine() *wallet.Engine { return t.walletEngine }

// WhaleEngine exposes the whale engine to the chat-command layer.
func (t *Tracker) WhaleEngine() *whale.Engine { return t.whaleEngine }

// Start rehydrates state from the store and starts the scheduler and
// health server.
func (t *Tracker) Start(ctx context.Context) error {
	t.walletEngine.Rehydrate(ctx)
	t.whaleEngine.Rehydrate(ctx)

	go func() {
		if err := t.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.log.Error("Health server failed", "error", err)
		}
	}()

	if t.pruner != nil {
		go t.pruner.Start(ctx)
	}

	return t.sched.Start(ctx)
}

// Stop drains the scheduler first so no cycle starts mid-shutdown, flushes
// in-memory state to the store, then closes connections.
func (t *Tracker) Stop(ctx context.Context) error {
	t.log.Info("Stopping Tracker...")

	if err := t.sched.Stop(ctx); err != nil {
		t.log.Warn("Scheduler drain incomplete", "error", err)
	}

	t.walletEngine.FlushAll(ctx)
	t.whaleEngine.FlushAll(ctx)

	if err := t.store.Close(); err != nil {
		t.log.Warn("Failed to close store", "error", err)
	}
	if t.db != nil {
		if err := t.db.Close(); err != nil {
			t.log.Warn("Failed to close database", "error", err)
		}
	}

	return t.healthServer.Stop(ctx)
}
