// Package host simulates the world the calendar is attached to: a monotonic
// tick counter, day/night weather, and a small terrain grid that seasonal
// effects and farming act on. Mutations from background goroutines go through
// Submit so they land on the frame loop instead of racing the simulation.
package host

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	logx "almanac/pkg/logx"
)

// DayTicks is the length of one in-world day in host ticks.
const DayTicks = 24000

type Weather int

const (
	Clear Weather = iota
	Rain
	Thunder
)

func (w Weather) String() string {
	switch w {
	case Rain:
		return "rain"
	case Thunder:
		return "thunder"
	default:
		return "clear"
	}
}

type CellKind int

const (
	Ground CellKind = iota
	Water
	CropCell
)

// Cell is one terrain tile. Water freezes, ground carries snow and may host a
// flower, crop cells grow toward MaxGrowth.
type Cell struct {
	Kind   CellKind
	Biome  string
	Frozen bool
	Snow   bool
	Flower string
	Crop   string
	Growth int
}

// MaxGrowth is the final crop growth stage.
const MaxGrowth = 7

// GrowthPolicy decides whether a crop of the given kind grows today. A nil
// policy means every crop always grows.
type GrowthPolicy func(crop string) bool

type Options struct {
	RainChance    float64
	ThunderChance float64
	Width         int
	Height        int
	Seed          int64
}

// World is the simulated host. All exported methods are safe for concurrent
// use; submitted tasks run on the frame loop and may call them freely.
type World struct {
	log logx.Logger

	mu       sync.Mutex
	fullTime int64
	weather  Weather
	cells    []Cell
	width    int
	height   int
	growth   GrowthPolicy
	rng      *rand.Rand

	rainChance    float64
	thunderChance float64

	announcements []string

	tasks chan func(w *World)
}

func New(opts Options, log logx.Logger) *World {
	if opts.Width <= 0 {
		opts.Width = 16
	}
	if opts.Height <= 0 {
		opts.Height = 16
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	w := &World{
		log:           log,
		width:         opts.Width,
		height:        opts.Height,
		rng:           rand.New(rand.NewSource(opts.Seed)),
		rainChance:    opts.RainChance,
		thunderChance: opts.ThunderChance,
		tasks:         make(chan func(w *World), 256),
	}
	w.generateTerrain()
	return w
}

// generateTerrain lays out a simple grid: mostly plains ground, a water band,
// and a desert strip so mild-biome exclusions have something to skip.
func (w *World) generateTerrain() {
	w.cells = make([]Cell, w.width*w.height)
	for y := 0; y < w.height; y++ {
		for x := 0; x < w.width; x++ {
			c := Cell{Kind: Ground, Biome: "plains"}
			switch {
			case y >= w.height*3/4:
				c.Biome = "desert"
			case x%5 == 3:
				c.Kind = Water
			}
			w.cells[y*w.width+x] = c
		}
	}
}

func (w *World) SetGrowthPolicy(p GrowthPolicy) {
	w.mu.Lock()
	w.growth = p
	w.mu.Unlock()
}

func (w *World) FullTime() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fullTime
}

// TimeOfDay is the tick within the current day, 0 at dawn.
func (w *World) TimeOfDay() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fullTime % DayTicks
}

// AdvanceBy moves the world clock forward by n ticks.
func (w *World) AdvanceBy(n int64) {
	if n <= 0 {
		return
	}
	w.mu.Lock()
	w.fullTime += n
	w.mu.Unlock()
}

// SkipToDawn jumps the clock to the start of the next day and returns the
// number of ticks skipped. Used when everyone sleeps through the night.
func (w *World) SkipToDawn() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	tod := w.fullTime % DayTicks
	if tod == 0 {
		return 0
	}
	skipped := DayTicks - tod
	w.fullTime += skipped
	return skipped
}

func (w *World) Weather() Weather {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.weather
}

func (w *World) SetWeather(wx Weather) {
	w.mu.Lock()
	w.weather = wx
	w.mu.Unlock()
	w.log.Debug("weather set", logx.String("weather", wx.String()))
}

// NewDay rolls weather for the coming day and grows planted crops once.
func (w *World) NewDay() {
	w.mu.Lock()
	wx := Clear
	if w.rng.Float64() < w.rainChance {
		wx = Rain
		if w.rng.Float64() < w.thunderChance {
			wx = Thunder
		}
	}
	w.weather = wx
	growth := w.growth
	for i := range w.cells {
		c := &w.cells[i]
		if c.Kind != CropCell || c.Crop == "" || c.Growth >= MaxGrowth {
			continue
		}
		if growth == nil || growth(c.Crop) {
			c.Growth++
		}
	}
	w.mu.Unlock()
	w.log.Debug("world day rolled", logx.String("weather", wx.String()))
}

func (w *World) Size() (width, height int) { return w.width, w.height }

// Cell returns a copy of the tile at (x, y).
func (w *World) Cell(x, y int) (Cell, bool) {
	if x < 0 || y < 0 || x >= w.width || y >= w.height {
		return Cell{}, false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cells[y*w.width+x], true
}

// Apply mutates the tile at (x, y) under the world lock.
func (w *World) Apply(x, y int, fn func(c *Cell)) bool {
	if x < 0 || y < 0 || x >= w.width || y >= w.height {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.cells[y*w.width+x])
	return true
}

// PlantCrop turns a ground tile into a crop tile at growth stage zero.
func (w *World) PlantCrop(x, y int, kind string) bool {
	return w.Apply(x, y, func(c *Cell) {
		c.Kind = CropCell
		c.Crop = kind
		c.Growth = 0
	})
}

// Submit enqueues fn to run on the next frame. Returns false when the queue
// is full; callers treat that as a dropped best-effort mutation.
func (w *World) Submit(fn func(w *World)) bool {
	if fn == nil {
		return false
	}
	select {
	case w.tasks <- fn:
		return true
	default:
		w.log.Warn("world task queue full; dropping task")
		return false
	}
}

// Frame drains pending submitted tasks. One call is one simulation frame.
func (w *World) Frame() {
	for {
		select {
		case fn := <-w.tasks:
			fn(w)
		default:
			return
		}
	}
}

// Run drives the frame loop until ctx is done.
func (w *World) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.Frame()
		}
	}
}

// Dispatch executes a console command. Event actions and operator commands
// funnel through here so they share one grammar.
//
// Supported:
//
//	say <message>
//	weather clear|rain|thunder
func (w *World) Dispatch(command string) error {
	fields := strings.Fields(strings.TrimSpace(command))
	if len(fields) == 0 {
		return fmt.Errorf("empty command")
	}
	switch fields[0] {
	case "say":
		if len(fields) < 2 {
			return fmt.Errorf("say: missing message")
		}
		msg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(command), "say"))
		w.mu.Lock()
		w.announcements = append(w.announcements, msg)
		if len(w.announcements) > 32 {
			w.announcements = w.announcements[len(w.announcements)-32:]
		}
		w.mu.Unlock()
		w.log.Info("broadcast", logx.String("message", msg))
		return nil
	case "weather":
		if len(fields) != 2 {
			return fmt.Errorf("weather: want one of clear|rain|thunder")
		}
		switch fields[1] {
		case "clear":
			w.SetWeather(Clear)
		case "rain":
			w.SetWeather(Rain)
		case "thunder":
			w.SetWeather(Thunder)
		default:
			return fmt.Errorf("weather: unknown state %q", fields[1])
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}

// Announcements returns the most recent broadcast messages, oldest first.
func (w *World) Announcements() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.announcements))
	copy(out, w.announcements)
	return out
}
