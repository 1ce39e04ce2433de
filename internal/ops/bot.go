// Package ops exposes the operator command surface over Telegram: date
// overrides, event control, sleep, reload, and a status readout. Every
// command is owner-only and validated before it touches calendar state.
package ops

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"almanac/internal/calendar"
	"almanac/internal/config"
	"almanac/internal/events"
	logx "almanac/pkg/logx"
)

// Controller is the slice of the app the bot drives.
type Controller interface {
	Date() calendar.Date
	StatusLine() string
	ActiveEvent() *events.Active

	SetDay(day int) error
	SetMonth(month int) error
	SetYear(year int) error

	ForceStartEvent(id string) error
	EndActiveEvent() bool
	Sleep() int64
	Reload(ctx context.Context) error
}

type Bot struct {
	cfg    config.TelegramConfig
	log    logx.Logger
	ctrl   Controller
	bot    *tele.Bot
	owners map[int64]bool
}

func New(cfg config.TelegramConfig, pollTimeout time.Duration, ctrl Controller, log logx.Logger) (*Bot, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if pollTimeout <= 0 {
		pollTimeout = 10 * time.Second
	}
	tb, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: pollTimeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	b := &Bot{cfg: cfg, log: log, ctrl: ctrl, bot: tb, owners: map[int64]bool{}}
	for _, id := range cfg.OwnerUserIDs {
		b.owners[id] = true
	}
	b.registerHandlers()
	return b, nil
}

// Start polls until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		b.bot.Stop()
	}()
	b.log.Info("telegram surface started", logx.Int("owners", len(b.owners)))
	b.bot.Start()
}

func (b *Bot) registerHandlers() {
	b.bot.Handle("/status", b.ownerOnly(b.handleStatus))
	b.bot.Handle("/set", b.ownerOnly(b.handleSet))
	b.bot.Handle("/event", b.ownerOnly(b.handleEvent))
	b.bot.Handle("/sleep", b.ownerOnly(b.handleSleep))
	b.bot.Handle("/reload", b.ownerOnly(b.handleReload))
}

func (b *Bot) ownerOnly(h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		sender := c.Sender()
		if !b.isOwner(sender) {
			var id int64
			if sender != nil {
				id = sender.ID
			}
			b.log.Warn("command from non-owner refused", logx.Int64("user_id", id))
			return c.Send("You are not allowed to operate this calendar.")
		}
		return h(c)
	}
}

func (b *Bot) isOwner(u *tele.User) bool {
	return u != nil && b.owners[u.ID]
}

func (b *Bot) handleStatus(c tele.Context) error {
	lines := []string{b.ctrl.StatusLine()}
	if a := b.ctrl.ActiveEvent(); a != nil {
		dur := "until further notice"
		if a.DaysRemaining >= 0 {
			dur = fmt.Sprintf("%d day(s) left", a.DaysRemaining)
		}
		lines = append(lines, fmt.Sprintf("Event: %s (%s)", a.Name, dur))
	} else {
		lines = append(lines, "Event: none")
	}
	return c.Send(strings.Join(lines, "\n"))
}

func (b *Bot) handleSet(c tele.Context) error {
	field, value, err := parseSetArgs(c.Message().Payload)
	if err != nil {
		return c.Send("Usage: /set day|month|year <value>")
	}
	if err := b.applySet(field, value); err != nil {
		return c.Send("Rejected: " + err.Error())
	}
	b.log.Info("date override applied",
		logx.String("field", field),
		logx.Int("value", value),
		logx.Int64("user_id", c.Sender().ID),
	)
	return c.Send("Calendar set. Now: " + b.ctrl.Date().String())
}

// applySet re-checks ranges here so the operator gets a message instead of a
// silent failure, then delegates to the driver which checks again.
func (b *Bot) applySet(field string, value int) error {
	cur := b.ctrl.Date()
	switch field {
	case "day":
		if max := calendar.DaysInMonth(cur.Month, cur.Year); value < 1 || value > max {
			return fmt.Errorf("day must be 1..%d in %s %d", max, calendar.MonthName(cur.Month), cur.Year)
		}
		return b.ctrl.SetDay(value)
	case "month":
		if value < 1 || value > 12 {
			return errors.New("month must be 1..12")
		}
		return b.ctrl.SetMonth(value)
	case "year":
		if value < 1 {
			return errors.New("year must be >= 1")
		}
		return b.ctrl.SetYear(value)
	default:
		return fmt.Errorf("unknown field %q", field)
	}
}

func (b *Bot) handleEvent(c tele.Context) error {
	sub, arg, err := parseEventArgs(c.Message().Payload)
	if err != nil {
		return c.Send("Usage: /event start <id> | end | status")
	}
	switch sub {
	case "start":
		if err := b.ctrl.ForceStartEvent(arg); err != nil {
			return c.Send("Rejected: " + err.Error())
		}
		return c.Send("Event started: " + arg)
	case "end":
		if !b.ctrl.EndActiveEvent() {
			return c.Send("No event is active.")
		}
		return c.Send("Event ended.")
	case "status":
		a := b.ctrl.ActiveEvent()
		if a == nil {
			return c.Send("No event is active.")
		}
		dur := "until further notice"
		if a.DaysRemaining >= 0 {
			dur = fmt.Sprintf("%d day(s) left", a.DaysRemaining)
		}
		return c.Send(fmt.Sprintf("%s, started %s, %s", a.Name, a.StartedOn.String(), dur))
	}
	return nil
}

func (b *Bot) handleSleep(c tele.Context) error {
	skipped := b.ctrl.Sleep()
	if skipped == 0 {
		return c.Send("It is already dawn.")
	}
	return c.Send(fmt.Sprintf("Slept through the night (%d ticks). Now: %s", skipped, b.ctrl.Date().String()))
}

func (b *Bot) handleReload(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := b.ctrl.Reload(ctx); err != nil {
		return c.Send("Reload failed: " + err.Error())
	}
	return c.Send("Reloaded. Now: " + b.ctrl.Date().String())
}

func parseSetArgs(payload string) (field string, value int, err error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return "", 0, errors.New("want: day|month|year <value>")
	}
	field = strings.ToLower(fields[0])
	switch field {
	case "day", "month", "year":
	default:
		return "", 0, fmt.Errorf("unknown field %q", field)
	}
	value, err = strconv.Atoi(fields[1])
	if err != nil {
		return "", 0, fmt.Errorf("not a number: %q", fields[1])
	}
	return field, value, nil
}

func parseEventArgs(payload string) (sub, arg string, err error) {
	fields := strings.Fields(payload)
	if len(fields) == 0 {
		return "", "", errors.New("missing subcommand")
	}
	sub = strings.ToLower(fields[0])
	switch sub {
	case "start":
		if len(fields) != 2 {
			return "", "", errors.New("want: start <id>")
		}
		return sub, fields[1], nil
	case "end", "status":
		if len(fields) != 1 {
			return "", "", errors.New("unexpected argument")
		}
		return sub, "", nil
	default:
		return "", "", fmt.Errorf("unknown subcommand %q", sub)
	}
}
