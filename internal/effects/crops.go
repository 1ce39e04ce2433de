// Package effects applies the season to the world: freezing and snow in
// winter, thaw and flowers in spring, and a growth policy that slows crops
// planted out of season.
package effects

import (
	"math/rand"
	"sync"

	"almanac/internal/calendar"
	"almanac/internal/config"
)

// CropPolicy decides whether a crop grows on a given day. In-season crops
// always grow; out-of-season crops grow with the configured chance.
type CropPolicy struct {
	mu                sync.Mutex
	rng               *rand.Rand
	outOfSeasonChance float64
	bySeason          map[calendar.Season]map[string]bool
	season            calendar.Season
}

func NewCropPolicy(cfg config.FarmingConfig, season calendar.Season, rng *rand.Rand) *CropPolicy {
	p := &CropPolicy{
		rng:               rng,
		outOfSeasonChance: cfg.OutOfSeasonGrowthChance,
		bySeason:          map[calendar.Season]map[string]bool{},
		season:            season,
	}
	for key, crops := range cfg.Crops {
		s, ok := calendar.ParseSeason(key)
		if !ok {
			continue
		}
		set := make(map[string]bool, len(crops))
		for _, c := range crops {
			set[c] = true
		}
		p.bySeason[s] = set
	}
	return p
}

// SetSeason tracks the current season; called on season-changed signals.
func (p *CropPolicy) SetSeason(s calendar.Season) {
	p.mu.Lock()
	p.season = s
	p.mu.Unlock()
}

// Grows satisfies host.GrowthPolicy. Crops not listed for any season are
// unrestricted and always grow.
func (p *CropPolicy) Grows(crop string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bySeason[p.season][crop] {
		return true
	}
	listed := false
	for _, set := range p.bySeason {
		if set[crop] {
			listed = true
			break
		}
	}
	if !listed {
		return true
	}
	return p.rng.Float64() < p.outOfSeasonChance
}
