package roulette

import "time"

// CooldownConfig holds the rate-limit settings. Hours are in Location.
type CooldownConfig struct {
	HappyHourStart    int
	HappyHourEnd      int
	Standard          time.Duration
	HappyHourCooldown time.Duration
	Location          *time.Location
}

// DefaultCooldownConfig matches the production settings: one spin per hour,
// every five minutes between 17:00 and 18:00 Paris time.
func DefaultCooldownConfig() CooldownConfig {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		loc = time.UTC
	}
	return CooldownConfig{
		HappyHourStart:    17,
		HappyHourEnd:      18,
		Standard:          time.Hour,
		HappyHourCooldown: 5 * time.Minute,
		Location:          loc,
	}
}

// CooldownPolicy decides when the next spin is allowed. It holds no state.
type CooldownPolicy struct {
	cfg CooldownConfig
}

func NewCooldownPolicy(cfg CooldownConfig) *CooldownPolicy {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &CooldownPolicy{cfg: cfg}
}

func (p *CooldownPolicy) Config() CooldownConfig {
	return p.cfg
}

// IsHappyHour reports whether now falls in the daily happy-hour window.
// Windows may wrap past midnight (22 -> 2); start == end disables it.
func (p *CooldownPolicy) IsHappyHour(now time.Time) bool {
	return inHourWindow(now.In(p.cfg.Location).Hour(), p.cfg.HappyHourStart, p.cfg.HappyHourEnd)
}

func inHourWindow(hour, start, end int) bool {
	span := windowSpan(start, end)
	if span == 0 {
		return false
	}
	return mod24(hour-start) < span
}

func windowSpan(start, end int) int {
	return mod24(end - start)
}

func mod24(h int) int {
	return ((h % 24) + 24) % 24
}

// Remaining returns how long until a spin is allowed. A zero last means no
// spin ever happened.
func (p *CooldownPolicy) Remaining(now, last time.Time) time.Duration {
	if last.IsZero() {
		return 0
	}

	happy := p.IsHappyHour(now)
	cooldown := p.cfg.Standard
	if happy {
		cooldown = p.cfg.HappyHourCooldown
	}

	remaining := cooldown - now.Sub(last)
	if remaining <= 0 {
		return 0
	}

	if !happy {
		if crossed, ok := p.happyHourCrossing(now, last, remaining); ok && crossed < remaining {
			remaining = crossed
		}
	}
	return remaining
}

// happyHourCrossing handles a standard cooldown that would run into the next
// happy hour: the spin opens at the later of the window start and
// last+happy cooldown, as long as that is still inside the window. Only the
// next window after now counts; a window already entered since last does not.
func (p *CooldownPolicy) happyHourCrossing(now, last time.Time, remaining time.Duration) (time.Duration, bool) {
	span := windowSpan(p.cfg.HappyHourStart, p.cfg.HappyHourEnd)
	if span == 0 {
		return 0, false
	}

	start := p.nextHappyHourStart(now)
	if !start.Before(now.Add(remaining)) {
		return 0, false
	}

	opens := start
	if t := last.Add(p.cfg.HappyHourCooldown); t.After(opens) {
		opens = t
	}

	local := start.In(p.cfg.Location)
	end := time.Date(local.Year(), local.Month(), local.Day(), p.cfg.HappyHourStart+span, 0, 0, 0, p.cfg.Location)
	if !opens.Before(end) {
		return 0, false
	}
	return opens.Sub(now), true
}

func (p *CooldownPolicy) nextHappyHourStart(now time.Time) time.Time {
	local := now.In(p.cfg.Location)
	start := time.Date(local.Year(), local.Month(), local.Day(), p.cfg.HappyHourStart, 0, 0, 0, p.cfg.Location)
	if !start.After(now) {
		start = start.AddDate(0, 0, 1)
	}
	return start
}

// SecondsUntilNextSpin rounds Remaining up to whole seconds so that it is
// zero exactly when CanSpin is true.
func (p *CooldownPolicy) SecondsUntilNextSpin(now, last time.Time) int64 {
	return ceilSeconds(p.Remaining(now, last))
}

func ceilSeconds(d time.Duration) int64 {
	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}

func (p *CooldownPolicy) CanSpin(now, last time.Time) bool {
	return p.Remaining(now, last) == 0
}
