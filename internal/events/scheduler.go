package events

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"almanac/internal/calendar"
	"almanac/internal/eventbus"
	logx "almanac/pkg/logx"
)

// ActionExecutor runs an event's start/end commands. The host world's console
// dispatcher satisfies this.
type ActionExecutor interface {
	Dispatch(command string) error
}

// Active is the snapshot of the one in-progress event. DaysRemaining counts
// down on each new day; -1 means the event runs until forced to end or the
// date is overridden. EndCommands are captured at start time so the event
// ends cleanly even when its definition has since left the catalog.
type Active struct {
	ID            string
	Name          string
	StartedOn     calendar.Date
	DaysRemaining int
	EndCommands   []string
}

// Signal is the payload published on the start/end topics.
type Signal struct {
	ID   string
	Name string
	Date calendar.Date
}

// Scheduler owns the single active-event slot. The clock driver calls it
// while holding its own lock, so all entry points here are serialized per
// driver; the internal mutex only protects direct ops-surface reads.
type Scheduler struct {
	log  logx.Logger
	bus  eventbus.Bus
	exec ActionExecutor
	rng  *rand.Rand

	mu      sync.Mutex
	catalog *Catalog
	active  *Active
}

func NewScheduler(cat *Catalog, exec ActionExecutor, bus eventbus.Bus, log logx.Logger, rng *rand.Rand) *Scheduler {
	if cat == nil {
		cat = &Catalog{byID: map[string]*Definition{}}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Scheduler{log: log, bus: bus, exec: exec, rng: rng, catalog: cat}
}

// SetCatalog swaps definitions on reload. The active event keeps running even
// if its definition disappeared; its end commands were captured at start, so
// the end path never consults the catalog.
func (s *Scheduler) SetCatalog(cat *Catalog) {
	if cat == nil {
		return
	}
	s.mu.Lock()
	s.catalog = cat
	s.mu.Unlock()
}

// Active returns a copy of the current event, or nil.
func (s *Scheduler) Active() *Active {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	cp := *s.active
	return &cp
}

// Restore reinstates a persisted active event on boot without re-running its
// start commands.
func (s *Scheduler) Restore(a *Active) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a == nil {
		s.active = nil
		return
	}
	cp := *a
	// Snapshots from older saves (or the legacy import) carry no end
	// commands; recover them from the catalog while the definition is there.
	if len(cp.EndCommands) == 0 {
		if def, ok := s.catalog.Get(cp.ID); ok {
			cp.EndCommands = def.EndCommands
		}
	}
	s.active = &cp
	s.log.Info("event restored",
		logx.String("id", cp.ID),
		logx.Int("days_remaining", cp.DaysRemaining),
	)
}

// OnNewDay advances the active countdown and, once the slot is free,
// evaluates the catalog in id order and starts the first match.
func (s *Scheduler) OnNewDay(date calendar.Date) {
	s.mu.Lock()
	if a := s.active; a != nil && a.DaysRemaining > 0 {
		a.DaysRemaining--
		if a.DaysRemaining == 0 {
			s.endLocked(date, "duration elapsed")
		}
	}
	if s.active == nil {
		s.evaluateLocked(date)
	}
	s.mu.Unlock()
}

// HandleDateChange reacts to a manual day/month/year override: whatever was
// running ends exactly once, then the new date gets one evaluation pass.
func (s *Scheduler) HandleDateChange(date calendar.Date) {
	s.mu.Lock()
	s.endLocked(date, "date override")
	s.evaluateLocked(date)
	s.mu.Unlock()
}

// ForceStart starts the named event now, ending any running event through
// the normal end path first.
func (s *Scheduler) ForceStart(id string, date calendar.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.catalog.Get(id)
	if !ok {
		return fmt.Errorf("unknown event %q", id)
	}
	s.endLocked(date, "superseded")
	s.startLocked(def, date)
	return nil
}

// EndActive force-ends the running event. Returns false when nothing was
// active.
func (s *Scheduler) EndActive(date calendar.Date) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endLocked(date, "forced")
}

func (s *Scheduler) evaluateLocked(date calendar.Date) {
	for i := range s.catalog.defs {
		def := &s.catalog.defs[i]
		if !def.Matches(date) {
			continue
		}
		if def.Kind == Random && s.rng.Intn(100) >= def.ChancePercent {
			continue
		}
		s.startLocked(def, date)
		return
	}
}

func (s *Scheduler) startLocked(def *Definition, date calendar.Date) {
	s.active = &Active{
		ID:            def.ID,
		Name:          def.Name,
		StartedOn:     date,
		DaysRemaining: def.DurationDays,
		EndCommands:   def.EndCommands,
	}
	s.runCommands(def.StartCommands)
	s.log.Info("event started",
		logx.String("id", def.ID),
		logx.String("date", date.String()),
		logx.Int("duration_days", def.DurationDays),
	)
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{
			Topic: eventbus.TopicEventStarted,
			Data:  Signal{ID: def.ID, Name: def.Name, Date: date},
		})
	}
}

func (s *Scheduler) endLocked(date calendar.Date, reason string) bool {
	a := s.active
	if a == nil {
		return false
	}
	s.active = nil
	s.runCommands(a.EndCommands)
	s.log.Info("event ended",
		logx.String("id", a.ID),
		logx.String("reason", reason),
		logx.String("date", date.String()),
	)
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{
			Topic: eventbus.TopicEventEnded,
			Data:  Signal{ID: a.ID, Name: a.Name, Date: date},
		})
	}
	return true
}

func (s *Scheduler) runCommands(cmds []string) {
	if s.exec == nil {
		return
	}
	for _, cmd := range cmds {
		if err := s.exec.Dispatch(cmd); err != nil {
			s.log.Warn("event command failed", logx.String("command", cmd), logx.Err(err))
		}
	}
}
