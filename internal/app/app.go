// Package app assembles the daemon: config, logging, storage, the simulated
// world, the clock driver, seasonal effects, the job scheduler, and the
// operator surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"almanac/internal/calendar"
	"almanac/internal/clock"
	"almanac/internal/config"
	"almanac/internal/display"
	"almanac/internal/effects"
	"almanac/internal/eventbus"
	"almanac/internal/events"
	"almanac/internal/host"
	"almanac/internal/ops"
	rtsup "almanac/internal/runtime/supervisor"
	"almanac/internal/scheduler"
	"almanac/internal/store"
	logx "almanac/pkg/logx"
)

type App struct {
	cfgPath string
	cfgMgr  *config.Manager
	logSvc  *logx.Service
	log     logx.Logger
	bus     eventbus.Bus
	sup     *rtsup.Supervisor
	jobs    *scheduler.Service

	// eff is created once in Start; reloads reconfigure it in place so the
	// running goroutine keeps its bus subscription.
	eff *effects.Engine

	mu     sync.Mutex
	cfg    *config.Config
	world  *host.World
	driver *clock.Driver
	sched  *events.Scheduler
	crops  *effects.CropPolicy
	rend   *display.Renderer
	st     store.Store
}

// New parses the config at path and prepares the app. Nothing runs until
// Start.
func New(path string) (*App, error) {
	mgr := config.NewManager(path)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	mgr.SetLogger(log.With(logx.String("svc", "config")))
	mgr.SetValidator(func(ctx context.Context, cfg *config.Config) error {
		return cfg.Validate()
	})

	return &App{
		cfgPath: path,
		cfgMgr:  mgr,
		logSvc:  logSvc,
		log:     log,
		cfg:     cfg,
		bus:     eventbus.New(),
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	cfg := a.cfg
	a.mu.Unlock()

	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log.With(logx.String("svc", "supervisor"))))

	st, err := store.Open(cfg.Storage, a.log.With(logx.String("svc", "store")))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.st = st

	saved, err := a.loadOrImport(ctx, cfg)
	if err != nil {
		return err
	}

	if err := a.buildCore(cfg, saved); err != nil {
		return err
	}

	// Offline catch-up: days the host clock completed while we were down are
	// replayed before the first tick.
	a.driver.ForceUpdate()

	a.sup.Go0("world.frames", func(ctx context.Context) {
		interval, _ := cfg.FrameInterval()
		a.world.Run(ctx, interval)
	})
	a.eff = effects.NewEngine(
		cfg.Effects,
		a.world,
		a.bus,
		a.driver.Date().Season(),
		a.log.With(logx.String("svc", "effects")),
		nil,
	)
	a.sup.Go0("effects", a.eff.Run)
	a.sup.Go0("daylog", a.dayLogLoop)
	a.sup.Go0("seasons", a.seasonLoop)
	a.sup.GoRestart("config.watch", a.cfgMgr.Watch)
	a.sup.Go0("config.fanout", a.configFanout)

	if err := a.startJobs(ctx, cfg); err != nil {
		return err
	}

	if cfg.Telegram.Enabled {
		timeout, _ := cfg.TelegramPollTimeout()
		bot, err := ops.New(cfg.Telegram, timeout, a, a.log.With(logx.String("svc", "ops")))
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		a.sup.Go0("ops.telegram", bot.Start)
	}

	a.log.Info("almanac started",
		logx.String("date", a.driver.Date().String()),
		logx.Bool("persistent", a.st != nil),
	)
	return nil
}

// loadOrImport returns the persisted snapshot, importing the legacy YAML
// state file on a first boot with an empty database.
func (a *App) loadOrImport(ctx context.Context, cfg *config.Config) (*store.State, error) {
	if a.st == nil {
		return nil, nil
	}
	saved, err := a.st.LoadState(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if saved != nil {
		return saved, nil
	}
	if cfg.Storage == nil || cfg.Storage.LegacyDataPath == "" {
		return nil, nil
	}
	saved, err = store.ImportLegacy(cfg.Storage.LegacyDataPath, a.log)
	if err != nil {
		a.log.Warn("legacy import failed", logx.Err(err))
		return nil, nil
	}
	if saved != nil {
		if err := a.st.SaveState(ctx, *saved); err != nil {
			return nil, fmt.Errorf("persist imported state: %w", err)
		}
	}
	return saved, nil
}

// buildCore constructs catalog, event scheduler, and driver from a snapshot.
// Used on Start and again on Reload; the world survives reloads so the frame
// loop and effects engine keep a stable reference.
func (a *App) buildCore(cfg *config.Config, saved *store.State) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	fresh := a.world == nil
	if fresh {
		a.world = host.New(host.Options{
			RainChance:    cfg.Host.RainChance,
			ThunderChance: cfg.Host.ThunderChance,
			Width:         cfg.Host.TerrainWidth,
			Height:        cfg.Host.TerrainHeight,
		}, a.log.With(logx.String("svc", "host")))
	}

	cat, err := a.loadCatalog(cfg)
	if err != nil {
		return err
	}

	a.sched = events.NewScheduler(cat, a.world, a.bus, a.log.With(logx.String("svc", "events")), nil)

	var (
		date calendar.Date
		acc  float64
		tick int64
	)
	if saved != nil {
		date, acc, tick = saved.Date, saved.TickAccumulator, saved.HostTicks
		if fresh {
			a.world.AdvanceBy(tick)
		}
		a.sched.Restore(saved.Active)
	}
	a.driver = clock.NewDriver(clock.Options{
		Host:            a.world,
		Scheduler:       a.sched,
		Bus:             a.bus,
		Cycles:          cfg.TimeCycle,
		Date:            date,
		HostTicks:       tick,
		TickAccumulator: acc,
	}, a.log.With(logx.String("svc", "clock")))

	a.crops = effects.NewCropPolicy(cfg.Farming, a.driver.Date().Season(), rand.New(rand.NewSource(time.Now().UnixNano())))
	a.world.SetGrowthPolicy(a.crops.Grows)
	a.rend = display.NewRenderer(cfg.StatusBar)
	return nil
}

func (a *App) loadCatalog(cfg *config.Config) (*events.Catalog, error) {
	if cfg.Events.CatalogPath == "" {
		return nil, nil
	}
	cat, err := events.LoadCatalog(cfg.Events.CatalogPath, a.log.With(logx.String("svc", "events")))
	if err != nil {
		return nil, fmt.Errorf("event catalog: %w", err)
	}
	a.log.Info("event catalog loaded", logx.Int("events", cat.Len()))
	return cat, nil
}

func (a *App) startJobs(ctx context.Context, cfg *config.Config) error {
	a.jobs = scheduler.New(scheduler.Config{Workers: 1}, a.log.With(logx.String("svc", "jobs")))
	a.jobs.Start(ctx)

	tickEvery, _ := cfg.TickInterval()
	if err := a.jobs.AddInterval("clock.tick", tickEvery, tickEvery, func(ctx context.Context) error {
		a.tick()
		return nil
	}); err != nil {
		return err
	}

	saveEvery, _ := cfg.AutosaveInterval()
	if a.st != nil {
		if err := a.jobs.AddInterval("autosave", saveEvery, 10*time.Second, a.saveNow); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) tick() {
	a.mu.Lock()
	d := a.driver
	a.mu.Unlock()
	if d != nil {
		d.Tick(time.Now())
	}
}

func (a *App) saveNow(ctx context.Context) error {
	a.mu.Lock()
	d, st := a.driver, a.st
	a.mu.Unlock()
	if d == nil || st == nil {
		return nil
	}
	snap := d.Snapshot()
	return st.SaveState(ctx, store.State{
		Date:            snap.Date,
		HostTicks:       snap.HostTicks,
		TickAccumulator: snap.TickAccumulator,
		Active:          snap.Active,
	})
}

// dayLogLoop appends every day boundary to the audit table.
func (a *App) dayLogLoop(ctx context.Context) {
	if a.st == nil {
		return
	}
	ch, unsub := a.bus.Subscribe(64)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.Topic != eventbus.TopicDayAdvanced {
				continue
			}
			sig, ok := ev.Data.(clock.DaySignal)
			if !ok {
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if err := a.st.AppendDay(wctx, sig.Date); err != nil {
				a.log.Warn("day log append failed", logx.Err(err))
			}
			cancel()
		}
	}
}

// seasonLoop keeps the crop policy pointed at the current season.
func (a *App) seasonLoop(ctx context.Context) {
	ch, unsub := a.bus.Subscribe(16)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.Topic != eventbus.TopicSeasonChanged {
				continue
			}
			if sig, ok := ev.Data.(clock.DaySignal); ok {
				a.mu.Lock()
				crops := a.crops
				a.mu.Unlock()
				crops.SetSeason(sig.Season)
			}
		}
	}
}

// configFanout applies watcher-published configs to running components.
// Structural settings (storage driver, terrain size) need a restart or an
// explicit /reload; cycles, status bar, and logging apply live.
func (a *App) configFanout(ctx context.Context) {
	ch := a.cfgMgr.Subscribe(4)
	defer a.cfgMgr.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-ch:
			if !ok {
				return
			}
			a.applyConfig(cfg)
		}
	}
}

func (a *App) applyConfig(cfg *config.Config) {
	a.logSvc.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	a.mu.Lock()
	a.cfg = cfg
	driver, rend, world := a.driver, a.rend, a.world
	a.crops = effects.NewCropPolicy(cfg.Farming, driver.Date().Season(), rand.New(rand.NewSource(time.Now().UnixNano())))
	world.SetGrowthPolicy(a.crops.Grows)
	a.mu.Unlock()

	driver.SetCycles(cfg.TimeCycle)
	rend.Configure(cfg.StatusBar)
	if a.eff != nil {
		a.eff.SetConfig(cfg.Effects)
	}
	a.log.Info("config applied")
}

// Reload persists the current snapshot, re-reads config and catalog from
// disk, and rebuilds the core from the store. In-memory state survives the
// round trip; an externally edited newer row wins.
func (a *App) Reload(ctx context.Context) error {
	cfg, err := a.cfgMgr.Parse()
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	if err := a.saveNow(ctx); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}

	var saved *store.State
	if a.st != nil {
		if saved, err = a.st.LoadState(ctx); err != nil {
			return fmt.Errorf("load state: %w", err)
		}
	} else {
		snap := a.drv().Snapshot()
		saved = &store.State{
			Date:            snap.Date,
			HostTicks:       snap.HostTicks,
			TickAccumulator: snap.TickAccumulator,
			Active:          snap.Active,
		}
	}

	if err := a.buildCore(cfg, saved); err != nil {
		return err
	}
	a.cfgMgr.Commit(cfg)
	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()

	d := a.drv()
	d.ForceUpdate()
	if a.eff != nil {
		a.eff.SetConfig(cfg.Effects)
		// A restored date may sit in a different season; no transition was
		// published, so point the engine at it directly.
		a.eff.SetSeason(d.Date().Season())
	}
	a.log.Info("reloaded", logx.String("date", d.Date().String()))
	return nil
}

// Stop saves, stops jobs, then winds down goroutines in bounded steps.
func (a *App) Stop(ctx context.Context) error {
	var errs []error

	if a.jobs != nil {
		a.jobs.Stop()
	}

	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := a.saveNow(sctx); err != nil {
		errs = append(errs, fmt.Errorf("final save: %w", err))
	}
	cancel()

	if a.sup != nil {
		wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := a.sup.Stop(wctx); err != nil {
			errs = append(errs, err)
		}
		cancel()
	}

	if a.st != nil {
		if err := a.st.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if a.logSvc != nil {
		_ = a.logSvc.Close()
	}
	return errors.Join(errs...)
}

// ---- ops.Controller ----

// drv re-reads the driver under the lock; Reload may have swapped it.
func (a *App) drv() *clock.Driver {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.driver
}

func (a *App) Date() calendar.Date { return a.drv().Date() }

func (a *App) StatusLine() string {
	a.mu.Lock()
	driver, world, rend, sched := a.driver, a.world, a.rend, a.sched
	a.mu.Unlock()

	var event string
	if act := sched.Active(); act != nil {
		event = act.Name
	}
	return rend.Render(display.Status{
		Date:      driver.Date(),
		Weather:   world.Weather().String(),
		TimeOfDay: world.TimeOfDay(),
		EventName: event,
	})
}

func (a *App) ActiveEvent() *events.Active {
	a.mu.Lock()
	s := a.sched
	a.mu.Unlock()
	return s.Active()
}

func (a *App) SetDay(day int) error     { return a.drv().SetDay(day) }
func (a *App) SetMonth(month int) error { return a.drv().SetMonth(month) }
func (a *App) SetYear(year int) error   { return a.drv().SetYear(year) }

func (a *App) ForceStartEvent(id string) error { return a.drv().ForceStartEvent(id) }
func (a *App) EndActiveEvent() bool            { return a.drv().EndActiveEvent() }

func (a *App) Sleep() int64 {
	d := a.drv()
	skipped := d.Sleep()
	if skipped > 0 {
		d.AcceptTimeSkip()
	}
	return skipped
}
