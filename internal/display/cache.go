// Package display renders the status line shown to players/operators. The
// parts that only change on a day, weather, or event transition are cached;
// only the clock readout is recomputed per refresh.
package display

import (
	"fmt"
	"strings"
	"sync"

	"almanac/internal/calendar"
	"almanac/internal/config"
)

// Status is everything a render needs.
type Status struct {
	Date      calendar.Date
	Weather   string
	TimeOfDay int64
	EventName string
}

type cacheKey struct {
	day, month, year int
	weather          string
	event            string
}

const defaultFormat = "{date} | {season} | {weather} | {time}"

// Renderer formats the status line. Safe for concurrent use.
type Renderer struct {
	mu           sync.Mutex
	format       string
	showProgress bool

	key    cacheKey
	prefix string
	valid  bool
}

func NewRenderer(cfg config.StatusBarConfig) *Renderer {
	r := &Renderer{}
	r.Configure(cfg)
	return r
}

// Configure applies new settings and invalidates the cached prefix.
func (r *Renderer) Configure(cfg config.StatusBarConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.format = strings.TrimSpace(cfg.Format)
	if r.format == "" {
		r.format = defaultFormat
	}
	r.showProgress = cfg.ShowProgressBar
	r.valid = false
}

// Render produces the status line. The date/season/weather/event substitution
// is reused until one of those inputs changes.
func (r *Renderer) Render(st Status) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cacheKey{
		day:     st.Date.Day,
		month:   st.Date.Month,
		year:    st.Date.Year,
		weather: st.Weather,
		event:   st.EventName,
	}
	if !r.valid || key != r.key {
		rep := strings.NewReplacer(
			"{date}", st.Date.String(),
			"{season}", st.Date.Season().String(),
			"{weather}", st.Weather,
			"{event}", st.EventName,
		)
		r.prefix = rep.Replace(r.format)
		r.key = key
		r.valid = true
	}

	out := strings.ReplaceAll(r.prefix, "{time}", FormatTime(st.TimeOfDay))
	if r.showProgress {
		out += " " + ProgressBar(Progress(st.TimeOfDay), 10)
	}
	return out
}

// FormatTime maps a day tick to a wall-clock readout. Tick zero is 06:00.
func FormatTime(timeOfDay int64) string {
	tod := timeOfDay % 24000
	if tod < 0 {
		tod += 24000
	}
	hour := (tod/1000 + 6) % 24
	minute := tod % 1000 * 60 / 1000
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// Progress is the fraction of the day cycle completed, in [0, 1).
func Progress(timeOfDay int64) float64 {
	tod := timeOfDay % 24000
	if tod < 0 {
		tod += 24000
	}
	return float64(tod) / 24000
}

// ProgressBar renders p as a fixed-width bar like [####------].
func ProgressBar(p float64, width int) string {
	if width <= 0 {
		width = 10
	}
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	filled := int(p * float64(width))
	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < width; i++ {
		if i < filled {
			b.WriteByte('#')
		} else {
			b.WriteByte('-')
		}
	}
	b.WriteByte(']')
	return b.String()
}
