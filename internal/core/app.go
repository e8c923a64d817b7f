package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"qotdbot/internal/adapters/telegram"
	"qotdbot/internal/config"
	"qotdbot/internal/kit"
	"qotdbot/internal/qotd"
	"qotdbot/internal/services/logging"
	"qotdbot/internal/services/notify"
	"qotdbot/internal/services/scheduler"
	"qotdbot/internal/storage"
	logx "qotdbot/pkg/logx"
)

// App wires the config manager, the chat adapter, the QOTD engine and the
// trigger scheduler together and owns their lifecycle.
type App struct {
	cfgMgr *config.Manager
	logSvc *logging.Service
	log    *slog.Logger

	adapter *telegram.Adapter
	notify  *notify.Service
	store   storage.Store
	engine  *qotd.Engine
	sched   *scheduler.Service

	keepalive *http.Server

	ownerMu sync.RWMutex
	owners  map[int64]struct{}

	updates chan kit.Update
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewApp builds the application from the config file at cfgPath. token
// overrides the file's telegram token when non-empty (env wins over file).
func NewApp(cfgPath, token string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	mgr.SetLogger(logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "config")))

	if token == "" {
		token = cfg.Telegram.Token
	}
	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}

	bootLog := logging.NewPrettyHandler(logging.Stdout(), logging.ParseLevel(cfg.Logging.Level, slog.LevelInfo))
	adapter, err := telegram.New(telegram.Config{
		Token:       token,
		PollTimeout: pollTimeout,
	}, slog.New(bootLog).With("comp", "telegram"))
	if err != nil {
		return nil, fmt.Errorf("telegram adapter: %w", err)
	}

	logSvc, log := logging.New(loggingConfigOf(cfg), adapter)

	busyTimeout, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "storage")))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	pool, err := qotd.DefaultPool()
	if err != nil {
		return nil, fmt.Errorf("question pool: %w", err)
	}

	notifySvc := notify.New(notifyConfigOf(cfg), adapter, log.With("comp", "notify"))

	loc := qotd.ReferenceLocation(cfg.QOTD.Timezone)
	engine := qotd.NewEngine(pool, store, notifySvc, loc, log.With("comp", "engine"))

	schedCfg, err := schedulerConfigOf(cfg)
	if err != nil {
		return nil, err
	}
	sched := scheduler.New(schedCfg, log.With("comp", "scheduler"))

	app := &App{
		cfgMgr:  mgr,
		logSvc:  logSvc,
		log:     log.With("comp", "app"),
		adapter: adapter,
		notify:  notifySvc,
		store:   store,
		engine:  engine,
		sched:   sched,
		owners:  ownerSet(cfg.Telegram.OwnerUserIDs),
		updates: make(chan kit.Update, 64),
	}
	return app, nil
}

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.engine.Load(runCtx); err != nil {
		cancel()
		return fmt.Errorf("load schedules: %w", err)
	}

	if err := a.adapter.Start(runCtx, a.updates); err != nil {
		cancel()
		return fmt.Errorf("start adapter: %w", err)
	}

	cfg := a.cfgMgr.Get()

	tick, err := config.ParseDurationOrDefault("qotd.tick_interval", cfg.QOTD.TickInterval, 15*time.Second)
	if err != nil {
		return err
	}
	if _, err := a.sched.AddInterval("qotd-tick", tick, 30*time.Second, a.engine.Tick); err != nil {
		return err
	}
	compactAt := cfg.QOTD.CompactAt
	if compactAt == "" {
		compactAt = "04:30"
	}
	if _, err := a.sched.AddDaily("storage-compact", compactAt, time.Minute, a.engine.Persist); err != nil {
		return err
	}
	a.sched.Start(runCtx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.consumeUpdates(runCtx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.watchConfig(runCtx)
	}()

	if cfg.Keepalive.Enabled {
		a.startKeepalive(cfg.Keepalive.Addr)
	}

	mctx, mcancel := context.WithTimeout(runCtx, 10*time.Second)
	if err := a.adapter.UpdateMenuCommands(mctx, menuCommands()); err != nil {
		a.log.Warn("menu command sync failed", slog.Any("err", err))
	}
	mcancel()

	a.log.Info("started",
		slog.Duration("tick", tick),
		slog.String("compact_at", compactAt),
		slog.String("timezone", a.engine.Location().String()))
	return nil
}

func (a *App) Stop(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.keepalive != nil {
		sctx, scancel := context.WithTimeout(ctx, 2*time.Second)
		_ = a.keepalive.Shutdown(sctx)
		scancel()
	}
	a.sched.Stop(ctx)
	_ = a.adapter.Stop(ctx)
	a.wg.Wait()

	if err := a.engine.Persist(ctx); err != nil {
		a.log.Error("final persist failed", slog.Any("err", err))
	}
	if err := a.store.Close(); err != nil {
		a.log.Error("storage close failed", slog.Any("err", err))
	}
	a.log.Info("stopped")
	_ = a.logSvc.Close()
}

func (a *App) consumeUpdates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case up := <-a.updates:
			if up.Kind != kit.UpdateMessage || up.Message == nil {
				continue
			}
			a.handleMessage(ctx, up.Message)
		}
	}
}

// watchConfig runs the file watcher and applies reloaded configs to the
// services that support hot swap. Engine timezone and storage driver are
// boot-time only; changing them needs a restart.
func (a *App) watchConfig(ctx context.Context) {
	sub := a.cfgMgr.Subscribe(4)
	defer a.cfgMgr.Unsubscribe(sub)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgMgr.Watch(ctx); err != nil && ctx.Err() == nil {
			a.log.Error("config watch stopped", slog.Any("err", err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			a.applyConfig(cfg)
		}
	}
}

func (a *App) applyConfig(cfg *config.Config) {
	a.logSvc.Apply(loggingConfigOf(cfg))
	a.notify.Apply(notifyConfigOf(cfg))
	if sc, err := schedulerConfigOf(cfg); err == nil {
		a.sched.Apply(sc)
	} else {
		a.log.Warn("scheduler config rejected", slog.Any("err", err))
	}

	a.ownerMu.Lock()
	a.owners = ownerSet(cfg.Telegram.OwnerUserIDs)
	a.ownerMu.Unlock()

	a.log.Info("config applied")
}

func (a *App) isOwner(userID int64) bool {
	a.ownerMu.RLock()
	defer a.ownerMu.RUnlock()
	if len(a.owners) == 0 {
		return true // no allowlist configured
	}
	_, ok := a.owners[userID]
	return ok
}

// startKeepalive serves tiny GET endpoints so free-tier hosts with HTTP
// health probes keep the process alive.
func (a *App) startKeepalive(addr string) {
	if addr == "" {
		addr = ":8080"
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Bot is alive!"))
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	a.keepalive = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	log := a.log
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		log.Info("keepalive listening", slog.String("addr", addr))
		if err := a.keepalive.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("keepalive server error", slog.Any("err", err))
		}
	}()
}

func loggingConfigOf(cfg *config.Config) logging.Config {
	return logging.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logging.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logging.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ChatID:     cfg.Logging.Telegram.ChatID,
			ThreadID:   cfg.Logging.Telegram.ThreadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func notifyConfigOf(cfg *config.Config) notify.Config {
	return notify.Config{
		RatePerSec: cfg.Notify.RatePerSec,
		ThreadName: cfg.Notify.ThreadName,
	}
}

func schedulerConfigOf(cfg *config.Config) (scheduler.Config, error) {
	timeout, err := config.ParseDurationOrDefault("scheduler.default_timeout", cfg.Scheduler.DefaultTimeout, 30*time.Second)
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{
		Workers:        cfg.Scheduler.Workers,
		DefaultTimeout: timeout,
		HistorySize:    cfg.Scheduler.HistorySize,
		Timezone:       cfg.QOTD.Timezone,
	}, nil
}

func ownerSet(ids []int64) map[int64]struct{} {
	out := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
