package clock

import (
	"sync"
	"time"

	"almanac/internal/calendar"
	"almanac/internal/config"
	"almanac/internal/eventbus"
	"almanac/internal/events"
	logx "almanac/pkg/logx"
)

// Host is the world clock the driver advances. *host.World satisfies it.
type Host interface {
	FullTime() int64
	TimeOfDay() int64
	AdvanceBy(n int64)
	SkipToDawn() int64
	NewDay()
}

// DaySignal is the payload on the day-advanced and season-changed topics.
type DaySignal struct {
	Date   calendar.Date
	Season calendar.Season
}

// Snapshot is the persistable driver state. TickAccumulator travels with it
// so sub-tick progress survives restarts and reloads.
type Snapshot struct {
	Date            calendar.Date
	HostTicks       int64
	TickAccumulator float64
	Active          *events.Active
}

// Driver owns the calendar, the tick accumulator, and day-boundary
// detection. One mutex serializes every entry point; the periodic Tick and
// operator overrides never interleave.
type Driver struct {
	log   logx.Logger
	bus   eventbus.Bus
	host  Host
	sched *events.Scheduler

	mu            sync.Mutex
	cal           *calendar.State
	cycles        config.TimeCycleConfig
	acc           float64
	lastTick      time.Time
	lastTotalDays int64
	lastSeason    calendar.Season
}

type Options struct {
	Host      Host
	Scheduler *events.Scheduler
	Bus       eventbus.Bus
	Cycles    config.TimeCycleConfig

	// Restored state; zero values boot a fresh calendar at the epoch.
	Date            calendar.Date
	HostTicks       int64
	TickAccumulator float64
}

func NewDriver(opts Options, log logx.Logger) *Driver {
	cal := calendar.NewState(opts.Date)
	return &Driver{
		log:           log,
		bus:           opts.Bus,
		host:          opts.Host,
		sched:         opts.Scheduler,
		cal:           cal,
		cycles:        opts.Cycles,
		acc:           opts.TickAccumulator,
		lastTotalDays: opts.HostTicks / DayCycleTicks,
		lastSeason:    cal.Season(),
	}
}

// SetCycles swaps day/night lengths on config reload. Takes effect on the
// next tick; the accumulator is kept so no progress is lost.
func (d *Driver) SetCycles(tc config.TimeCycleConfig) {
	d.mu.Lock()
	d.cycles = tc
	d.mu.Unlock()
}

// Tick is the periodic heartbeat. It converts wall time elapsed since the
// previous call into host ticks at the current seasonal rate, carrying the
// fractional remainder, then settles any day boundaries that were crossed.
func (d *Driver) Tick(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.host == nil {
		return
	}
	if d.lastTick.IsZero() {
		d.lastTick = now
		return
	}
	elapsed := now.Sub(d.lastTick).Seconds()
	d.lastTick = now
	if elapsed <= 0 {
		return
	}

	rate := RatesFor(d.cal.Season(), d.cycles).At(d.host.TimeOfDay())
	d.acc += rate * elapsed
	if whole := int64(d.acc); whole > 0 {
		d.acc -= float64(whole)
		d.host.AdvanceBy(whole)
	}
	d.settleDaysLocked()
}

// settleDaysLocked replays one calendar day per completed host day. Running
// per elapsed day (not jumping) keeps event countdowns and announcements
// correct after large skips.
func (d *Driver) settleDaysLocked() {
	total := d.host.FullTime() / DayCycleTicks
	for d.lastTotalDays < total {
		d.lastTotalDays++
		d.advanceDayLocked()
	}
}

func (d *Driver) advanceDayLocked() {
	date := d.cal.Advance()
	d.host.NewDay()
	d.log.Debug("day advanced", logx.String("date", date.String()))
	if d.bus != nil {
		d.bus.Publish(eventbus.Event{
			Topic: eventbus.TopicDayAdvanced,
			Data:  DaySignal{Date: date, Season: date.Season()},
		})
	}
	d.seasonCheckLocked(date)
	if d.sched != nil {
		d.sched.OnNewDay(date)
	}
}

func (d *Driver) seasonCheckLocked(date calendar.Date) {
	s := date.Season()
	if s == d.lastSeason {
		return
	}
	d.lastSeason = s
	d.log.Info("season changed", logx.String("season", s.String()), logx.String("date", date.String()))
	if d.bus != nil {
		d.bus.Publish(eventbus.Event{
			Topic: eventbus.TopicSeasonChanged,
			Data:  DaySignal{Date: date, Season: s},
		})
	}
}

// AcceptTimeSkip discards sub-tick progress after an external time jump.
// Whole-day settling happens on the next tick from the host clock itself, so
// only the fractional remainder needs resetting.
func (d *Driver) AcceptTimeSkip() {
	d.mu.Lock()
	d.acc = 0
	d.mu.Unlock()
}

// Sleep skips the host clock to the next dawn and settles the day boundary
// immediately. Returns the number of ticks skipped.
func (d *Driver) Sleep() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.host == nil {
		return 0
	}
	skipped := d.host.SkipToDawn()
	if skipped == 0 {
		return 0
	}
	d.acc = 0
	d.settleDaysLocked()
	return skipped
}

// ForceUpdate settles any pending day boundaries now. Used on boot after
// restoring state so offline host progress is replayed before the first tick.
func (d *Driver) ForceUpdate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.host == nil {
		return
	}
	d.settleDaysLocked()
}

// SetDay overrides the calendar day. The active event, if any, ends through
// the normal end path and the new date gets one evaluation pass.
func (d *Driver) SetDay(day int) error {
	return d.override(func(s *calendar.State) error { return s.SetDay(day) })
}

func (d *Driver) SetMonth(month int) error {
	return d.override(func(s *calendar.State) error { return s.SetMonth(month) })
}

func (d *Driver) SetYear(year int) error {
	return d.override(func(s *calendar.State) error { return s.SetYear(year) })
}

func (d *Driver) override(mutate func(s *calendar.State) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	before := d.cal.Date()
	if err := mutate(d.cal); err != nil {
		return err
	}
	date := d.cal.Date()
	if date == before {
		return nil
	}
	d.log.Info("date overridden",
		logx.String("from", before.String()),
		logx.String("to", date.String()),
	)
	d.seasonCheckLocked(date)
	if d.sched != nil {
		d.sched.HandleDateChange(date)
	}
	return nil
}

// ForceStartEvent starts a catalog event now, ending any active one first.
func (d *Driver) ForceStartEvent(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sched == nil {
		return nil
	}
	return d.sched.ForceStart(id, d.cal.Date())
}

// EndActiveEvent ends the running event. Returns false when none is active.
func (d *Driver) EndActiveEvent() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sched == nil {
		return false
	}
	return d.sched.EndActive(d.cal.Date())
}

// Date returns the current calendar date.
func (d *Driver) Date() calendar.Date {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cal.Date()
}

// Snapshot captures the state to persist.
func (d *Driver) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	snap := Snapshot{
		Date:            d.cal.Date(),
		TickAccumulator: d.acc,
	}
	if d.host != nil {
		snap.HostTicks = d.host.FullTime()
	}
	if d.sched != nil {
		snap.Active = d.sched.Active()
	}
	return snap
}
