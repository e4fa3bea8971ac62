package roulette

import (
	"testing"
	"time"
	_ "time/tzdata"
)

func parisPolicy(t *testing.T, start, end int) *CooldownPolicy {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return NewCooldownPolicy(CooldownConfig{
		HappyHourStart:    start,
		HappyHourEnd:      end,
		Standard:          time.Hour,
		HappyHourCooldown: 5 * time.Minute,
		Location:          loc,
	})
}

func at(p *CooldownPolicy, hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, p.Config().Location)
}

func TestCooldownPolicy_IsHappyHour(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		hour       int
		want       bool
	}{
		{name: "before window", start: 17, end: 18, hour: 16, want: false},
		{name: "window start", start: 17, end: 18, hour: 17, want: true},
		{name: "window end is exclusive", start: 17, end: 18, hour: 18, want: false},
		{name: "wrap late evening", start: 22, end: 2, hour: 23, want: true},
		{name: "wrap after midnight", start: 22, end: 2, hour: 1, want: true},
		{name: "wrap end is exclusive", start: 22, end: 2, hour: 2, want: false},
		{name: "wrap outside", start: 22, end: 2, hour: 21, want: false},
		{name: "empty window", start: 17, end: 17, hour: 17, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := parisPolicy(t, tt.start, tt.end)
			if got := p.IsHappyHour(at(p, tt.hour, 30)); got != tt.want {
				t.Errorf("IsHappyHour() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCooldownPolicy_SecondsUntilNextSpin(t *testing.T) {
	p := parisPolicy(t, 17, 18)

	tests := []struct {
		name string
		last time.Time
		now  time.Time
		want int64
	}{
		{name: "never spun", last: time.Time{}, now: at(p, 10, 0), want: 0},
		{name: "standard cooldown running", last: at(p, 10, 0), now: at(p, 10, 30), want: 1800},
		{name: "standard cooldown elapsed", last: at(p, 10, 0), now: at(p, 11, 0), want: 0},
		{name: "spin just before happy hour", last: at(p, 16, 59), now: at(p, 17, 5), want: 0},
		{name: "happy hour cooldown running", last: at(p, 17, 2), now: at(p, 17, 5), want: 120},
		{name: "crossing opens at window start", last: at(p, 16, 30), now: at(p, 16, 40), want: 1200},
		{name: "crossing waits happy cooldown", last: at(p, 16, 58), now: at(p, 16, 59), want: 240},
		{name: "after happy hour uses standard", last: at(p, 17, 50), now: at(p, 18, 10), want: 2400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.SecondsUntilNextSpin(tt.now, tt.last)
			if got != tt.want {
				t.Errorf("SecondsUntilNextSpin() = %d, want %d", got, tt.want)
			}
			if can := p.CanSpin(tt.now, tt.last); can != (tt.want == 0) {
				t.Errorf("CanSpin() = %v, want %v", can, tt.want == 0)
			}
		})
	}
}

func TestCooldownPolicy_StandardWindowBlocks(t *testing.T) {
	p := parisPolicy(t, 17, 18)
	last := at(p, 8, 0)

	for elapsed := time.Second; elapsed < time.Hour; elapsed += 7 * time.Minute {
		if p.CanSpin(last.Add(elapsed), last) {
			t.Fatalf("CanSpin() = true after %s outside happy hour", elapsed)
		}
	}
}

func TestCooldownPolicy_HappyHourIsShorter(t *testing.T) {
	p := parisPolicy(t, 17, 18)
	last := at(p, 17, 0)
	now := last.Add(10 * time.Minute)

	if !p.CanSpin(now, last) {
		t.Errorf("CanSpin() = false ten minutes into happy hour")
	}
	morning := at(p, 14, 0)
	if p.CanSpin(morning.Add(10*time.Minute), morning) {
		t.Errorf("CanSpin() = true ten minutes after a morning spin")
	}
}

func TestCooldownPolicy_PastWindowDoesNotShortenCooldown(t *testing.T) {
	p := parisPolicy(t, 17, 18)
	p.cfg.Standard = 3 * time.Hour

	got := p.SecondsUntilNextSpin(at(p, 18, 10), at(p, 16, 30))
	if got != 4800 {
		t.Errorf("SecondsUntilNextSpin() = %d, want 4800", got)
	}
}

func TestCooldownPolicy_CrossingIgnoredWhenWindowTooShort(t *testing.T) {
	loc := time.UTC
	p := NewCooldownPolicy(CooldownConfig{
		HappyHourStart:    17,
		HappyHourEnd:      18,
		Standard:          3 * time.Hour,
		HappyHourCooldown: 150 * time.Minute,
		Location:          loc,
	})
	last := time.Date(2025, 3, 10, 15, 30, 0, 0, loc)
	now := time.Date(2025, 3, 10, 16, 0, 0, 0, loc)

	if got := p.Remaining(now, last); got != 150*time.Minute {
		t.Errorf("Remaining() = %s, want 2h30m", got)
	}
}
