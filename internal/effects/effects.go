package effects

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"almanac/internal/calendar"
	"almanac/internal/clock"
	"almanac/internal/config"
	"almanac/internal/eventbus"
	"almanac/internal/host"
	logx "almanac/pkg/logx"
)

// Engine listens for day boundaries and reshapes terrain for the current
// season. Sampling runs off the simulation goroutine; every mutation is
// rate-limited and submitted to the world's frame loop.
type Engine struct {
	log   logx.Logger
	world *host.World
	bus   eventbus.Bus
	rng   *rand.Rand

	mu     sync.Mutex
	cfg    config.EffectsConfig
	mild   map[string]bool
	lim    *rate.Limiter
	season calendar.Season
}

func NewEngine(cfg config.EffectsConfig, world *host.World, bus eventbus.Bus, season calendar.Season, log logx.Logger, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e := &Engine{
		log:    log,
		world:  world,
		bus:    bus,
		rng:    rng,
		season: season,
	}
	e.SetConfig(cfg)
	return e
}

// SetConfig applies new tuning on reload. It takes effect on the next daily
// pass; toggling Enabled works both ways.
func (e *Engine) SetConfig(cfg config.EffectsConfig) {
	per := cfg.RatePerSec
	if per <= 0 {
		per = 64
	}
	mild := make(map[string]bool, len(cfg.MildBiomes))
	for _, b := range cfg.MildBiomes {
		mild[b] = true
	}
	e.mu.Lock()
	e.cfg = cfg
	e.mild = mild
	e.lim = rate.NewLimiter(rate.Limit(per), per)
	e.mu.Unlock()
}

// SetSeason retargets which seasonal pass runs. Usually driven by the bus;
// reload calls it directly since restoring state publishes no transition.
func (e *Engine) SetSeason(s calendar.Season) {
	e.mu.Lock()
	e.season = s
	e.mu.Unlock()
}

// Run consumes bus signals until ctx is done. Day boundaries trigger one
// terrain pass; season changes just retarget which pass runs.
func (e *Engine) Run(ctx context.Context) {
	ch, unsub := e.bus.Subscribe(32)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			switch ev.Topic {
			case eventbus.TopicSeasonChanged:
				if sig, ok := ev.Data.(clock.DaySignal); ok {
					e.SetSeason(sig.Season)
					e.log.Info("retargeting seasonal effects", logx.String("season", sig.Season.String()))
				}
			case eventbus.TopicDayAdvanced:
				e.DailyPass(ctx)
			}
		}
	}
}

// DailyPass samples the terrain once and applies this season's effect. Summer
// and autumn have none.
func (e *Engine) DailyPass(ctx context.Context) {
	e.mu.Lock()
	cfg, mild, season := e.cfg, e.mild, e.season
	e.mu.Unlock()
	if !cfg.Enabled {
		return
	}
	switch season {
	case calendar.Winter:
		e.sample(ctx, mild, func(x, y int, c host.Cell) { e.winterCell(cfg, x, y, c) })
	case calendar.Spring:
		e.sample(ctx, mild, func(x, y int, c host.Cell) { e.springCell(cfg, x, y, c) })
	}
}

// sample visits a quarter of the grid at random positions.
func (e *Engine) sample(ctx context.Context, mild map[string]bool, visit func(x, y int, c host.Cell)) {
	w, h := e.world.Size()
	n := w * h / 4
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return
		}
		x, y := e.rng.Intn(w), e.rng.Intn(h)
		c, ok := e.world.Cell(x, y)
		if !ok || mild[c.Biome] {
			continue
		}
		visit(x, y, c)
	}
}

func (e *Engine) winterCell(cfg config.EffectsConfig, x, y int, c host.Cell) {
	switch c.Kind {
	case host.Water:
		if c.Frozen {
			return
		}
		// Ice spreads: each already-frozen neighbor raises the odds.
		chance := cfg.Winter.FreezeChance * float64(1+e.frozenNeighbors(x, y))
		if e.roll(chance) {
			e.apply(x, y, func(c *host.Cell) { c.Frozen = true })
		}
	case host.Ground:
		if !c.Snow && e.roll(cfg.Winter.FreezeChance) {
			e.apply(x, y, func(c *host.Cell) { c.Snow = true })
		}
	}
}

func (e *Engine) springCell(cfg config.EffectsConfig, x, y int, c host.Cell) {
	switch c.Kind {
	case host.Water:
		if c.Frozen && e.roll(cfg.Spring.ThawChance) {
			e.apply(x, y, func(c *host.Cell) { c.Frozen = false })
		}
	case host.Ground:
		if c.Snow && e.roll(cfg.Spring.ThawChance) {
			e.apply(x, y, func(c *host.Cell) { c.Snow = false })
			return
		}
		if c.Flower == "" && len(cfg.Spring.SpawnableFlowers) > 0 && e.roll(cfg.Spring.FlowerSpawnChance) {
			flower := cfg.Spring.SpawnableFlowers[e.rng.Intn(len(cfg.Spring.SpawnableFlowers))]
			e.apply(x, y, func(c *host.Cell) { c.Flower = flower })
		}
	}
}

func (e *Engine) frozenNeighbors(x, y int) int {
	var n int
	for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
		if c, ok := e.world.Cell(x+d[0], y+d[1]); ok && c.Kind == host.Water && c.Frozen {
			n++
		}
	}
	return n
}

func (e *Engine) roll(chance float64) bool {
	if chance <= 0 {
		return false
	}
	return e.rng.Float64() < chance
}

// apply rate-limits and submits one mutation to the frame loop.
func (e *Engine) apply(x, y int, fn func(c *host.Cell)) {
	e.mu.Lock()
	lim := e.lim
	e.mu.Unlock()
	if !lim.Allow() {
		return
	}
	e.world.Submit(func(w *host.World) { w.Apply(x, y, fn) })
}
