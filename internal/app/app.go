package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"grebbot/internal/alerts"
	"grebbot/internal/bot"
	"grebbot/internal/commands"
	"grebbot/internal/config"
	"grebbot/internal/cooldown"
	"grebbot/internal/dashboard"
	"grebbot/internal/dispatch"
	"grebbot/internal/eventbus"
	"grebbot/internal/platform/wsgateway"
	"grebbot/internal/presence"
	"grebbot/internal/runtime/supervisor"
	"grebbot/internal/storage"
	logx "grebbot/pkg/logx"
)

// StopReason labels why the app is shutting down, for the final log line.
type StopReason string

const (
	StopUnknown    StopReason = "unknown"
	StopSignal     StopReason = "signal"
	StopFatalError StopReason = "fatal_error"
	StopAppStop    StopReason = "app_stop"
)

// App owns every service and their lifecycle. NewApp wires, Start runs,
// Stop unwinds in reverse order with per-step deadlines.
type App struct {
	cfgPath string
	version string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log      logx.Logger
	logs     *logx.Service
	bus      eventbus.Bus
	store    storage.Store
	cds      *cooldown.Tracker
	gw       *wsgateway.Gateway
	disp     *dispatch.Dispatcher
	bot      *bot.Service
	dash     *dashboard.Server
	feed     *dashboard.Feed
	maint    *maintenance
	registry *prometheus.Registry

	retention time.Duration
}

func NewApp(cfgPath, version string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return validateMaintenanceSpecs(cfg.Maintenance)
	})
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	// Operator alert sink (optional, send-only).
	var sender logx.AlertSender
	if cfg.Logging.Alerts.Enabled {
		tg, err := alerts.NewTelegram(alerts.Config{
			Enabled: true,
			Token:   cfg.Logging.Alerts.Token,
			ChatID:  cfg.Logging.Alerts.ChatID,
		})
		if err != nil {
			return nil, fmt.Errorf("alerts: %w", err)
		}
		sender = tg
	}

	logSvc, log := logx.New(mapLogConfig(cfg), sender)
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	busyTimeout, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	window, err := config.ParseDurationOrDefault("tracker.cooldown_window", cfg.Tracker.CooldownWindow, cooldown.DefaultWindow)
	if err != nil {
		return nil, err
	}
	cds := cooldown.New(window)
	detector := presence.NewDetector(cfg.Tracker.Game)

	reqTimeout, err := config.ParseDurationOrDefault("gateway.request_timeout", cfg.Gateway.RequestTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	pingInterval, err := config.ParseDurationOrDefault("gateway.ping_interval", cfg.Gateway.PingInterval, 20*time.Second)
	if err != nil {
		return nil, err
	}
	gw, err := wsgateway.New(wsgateway.Config{
		URL:            cfg.Gateway.URL,
		Token:          cfg.Gateway.Token,
		RequestTimeout: reqTimeout,
		PingInterval:   pingInterval,
	}, log.With(logx.String("comp", "gateway")), bus)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := dispatch.NewMetrics(registry)

	retention, err := config.ParseDurationOrDefault("dispatch.log_retention", cfg.Dispatch.LogRetention, 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	disp := dispatch.New(dispatch.Config{
		GameName:     cfg.Tracker.Game,
		RatePerSec:   cfg.Dispatch.RatePerSec,
		LogRetention: retention,
	}, dispatch.Deps{
		Store:     store,
		Gateway:   gw,
		Cooldowns: cds,
		Bus:       bus,
		Metrics:   metrics,
		Log:       log.With(logx.String("comp", "dispatch")),
	})

	cmds := commands.New(commands.Deps{
		Store:     store,
		Cooldowns: cds,
		Gateway:   gw,
		Bus:       bus,
		Log:       log.With(logx.String("comp", "commands")),
	}, version)

	botSvc := bot.New(bot.Config{EventBuffer: cfg.Gateway.EventBuffer}, bot.Deps{
		Gateway:    gw,
		Detector:   detector,
		Dispatcher: disp,
		Commands:   cmds,
		Bus:        bus,
		Log:        log.With(logx.String("comp", "bot")),
	})

	maint, err := newMaintenance(cfg.Maintenance, maintenanceDeps{
		Cooldowns: cds,
		Store:     store,
		Retention: retention,
		Log:       log.With(logx.String("comp", "maintenance")),
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		cfgPath:   cfgPath,
		version:   version,
		cfgm:      cfgm,
		log:       log,
		logs:      logSvc,
		bus:       bus,
		store:     store,
		cds:       cds,
		gw:        gw,
		disp:      disp,
		bot:       botSvc,
		maint:     maint,
		registry:  registry,
		retention: retention,
	}

	a.feed = dashboard.NewFeed(bus, 0)
	router := dashboard.NewRouter(dashboard.RouterDeps{
		Bot:        botSvc,
		Store:      store,
		Cooldowns:  cds,
		Logs:       logSvc,
		Events:     a.feed,
		Registry:   registry,
		Goroutines: a.goroutineCounters,
		Version:    version,
		StartedAt:  time.Now(),
		Log:        log.With(logx.String("comp", "dashboard")),
	})
	dashAddr := cfg.Dashboard.Addr
	if dashAddr == "" {
		dashAddr = "127.0.0.1:8080"
	}
	a.dash = dashboard.NewServer(dashboard.Config{
		Enabled: cfg.Dashboard.Enabled,
		Addr:    dashAddr,
	}, router, log.With(logx.String("comp", "dashboard")))

	return a, nil
}

func (a *App) goroutineCounters() supervisor.Counters {
	if a.sup == nil {
		return supervisor.Counters{}
	}
	return a.sup.Counters()
}

// Done is closed when the app run context is canceled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	if err := a.bot.Start(a.sup.Context()); err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	if err := a.dash.Start(a.sup.Context()); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	a.maint.Start()

	a.sup.Go("bot.run", a.bot.Run)
	a.sup.Go0("dashboard.feed", a.feed.Run)

	// Hot reload: logging applies live, everything else needs a restart.
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(ctx context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		last := a.cfgm.Get()
		for {
			select {
			case <-ctx.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyReload(last, cfg)
				last = cfg
			}
		}
	})
	// The watcher self-heals: an fsnotify failure restarts it with backoff
	// instead of taking the process down.
	a.sup.GoRestart("config.watch", a.cfgm.Watch)

	a.log.Info("app started",
		logx.String("version", a.version),
		logx.String("game", a.cfgm.Get().Tracker.Game),
		logx.Duration("cooldown_window", a.cds.Window()))
	return nil
}

func (a *App) applyReload(old, cfg *config.Config) {
	if old != nil && cfg != nil {
		if old.Gateway != cfg.Gateway {
			a.log.Warn("gateway config changed; restart required for changes to take effect")
		}
		if old.Storage != cfg.Storage {
			a.log.Warn("storage config changed; restart required for changes to take effect")
		}
		if old.Tracker != cfg.Tracker {
			a.log.Warn("tracker config changed; restart required for changes to take effect")
		}
	}
	a.logs.Apply(mapLogConfig(cfg))
	a.bus.Publish(eventbus.Event{Type: eventbus.TypeConfigReload, Time: time.Now()})
	a.log.Info("config reloaded")
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// Cancel the run context first so loops start unwinding immediately.
	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)))
		}
	}

	step("maintenance", 2*time.Second, func(c context.Context) error { return a.maint.Stop(c) })
	step("dashboard", 2*time.Second, func(c context.Context) error { return a.dash.Stop(c) })
	step("gateway", 3*time.Second, func(c context.Context) error { return a.bot.Stop(c) })
	step("storage", 1*time.Second, func(c context.Context) error { return a.store.Close() })
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		a.logs.Close()
	}
	return nil
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Alert: logx.AlertConfig{
			Enabled:    cfg.Logging.Alerts.Enabled,
			MinLevel:   cfg.Logging.Alerts.MinLevel,
			RatePerSec: cfg.Logging.Alerts.RatePerSec,
		},
		Recent: logx.RecentConfig{
			Size: cfg.Logging.Recent.Size,
		},
	}
}
