package roulette

import (
	"math"
	"sort"
	"time"
)

// EntryView is a history entry as reported to clients.
type EntryView struct {
	Member   string  `json:"member"`
	MemberID *string `json:"member_id"`
	Time     string  `json:"time"`
	EndsAt   string  `json:"ends_at"`
	Active   bool    `json:"active"`
}

// LeaderboardRow is the cumulative restricted time of one member.
type LeaderboardRow struct {
	Member       string  `json:"member"`
	MemberKey    string  `json:"member_key"`
	TotalSeconds int64   `json:"total_seconds"`
	TotalMinutes float64 `json:"total_minutes"`
}

// View derives read-only reports from history entries.
type View struct {
	loc *time.Location
}

func NewView(loc *time.Location) *View {
	if loc == nil {
		loc = time.UTC
	}
	return &View{loc: loc}
}

func (v *View) Entry(e HistoryEntry, now time.Time) EntryView {
	view := EntryView{
		Member: e.Member.Name(),
		Time:   v.format(e.StartedAt),
		EndsAt: v.format(e.EndsAt),
		Active: e.Active(now),
	}
	if id, ok := IdentityOf(e.Member); ok {
		s := id.String()
		view.MemberID = &s
	}
	return view
}

func (v *View) format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(v.loc).Format(time.RFC3339)
}

// Recent returns the last n entries, oldest first.
func (v *View) Recent(entries []HistoryEntry, n int, now time.Time) []EntryView {
	if n >= 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return v.All(entries, now)
}

func (v *View) All(entries []HistoryEntry, now time.Time) []EntryView {
	out := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, v.Entry(e, now))
	}
	return out
}

type leaderboardGroup struct {
	key      string
	byID     bool
	name     string
	identity Identity
	total    time.Duration
}

// Leaderboard sums restricted time per member, grouped by id when known and
// by stored display name otherwise. Names are refreshed from snapshot. A
// limit <= 0 returns every group.
func (v *View) Leaderboard(entries []HistoryEntry, limit int, snapshot Snapshot) []LeaderboardRow {
	// Ids and legacy names are separate namespaces: a legacy member named
	// "123" never merges with the member whose id is 123.
	type groupKey struct {
		byID bool
		key  string
	}
	groups := make(map[groupKey]*leaderboardGroup)
	for _, e := range entries {
		d, ok := e.Duration()
		if !ok {
			continue
		}

		gk := groupKey{key: e.Member.Name()}
		if id, ok := IdentityOf(e.Member); ok {
			gk = groupKey{byID: true, key: id.String()}
		}

		g, ok := groups[gk]
		if !ok {
			g = &leaderboardGroup{key: gk.key, byID: gk.byID}
			groups[gk] = g
		}
		g.total += d
		g.name = e.Member.Name()
		g.identity = e.Member
	}

	sorted := make([]*leaderboardGroup, 0, len(groups))
	for _, g := range groups {
		sorted = append(sorted, g)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].total != sorted[j].total {
			return sorted[i].total > sorted[j].total
		}
		if sorted[i].key != sorted[j].key {
			return sorted[i].key < sorted[j].key
		}
		return sorted[i].byID
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	rows := make([]LeaderboardRow, 0, len(sorted))
	for _, g := range sorted {
		name := g.name
		if id, ok := IdentityOf(g.identity); ok {
			if m, found := snapshot.Lookup(id); found && m.DisplayName != "" {
				name = m.DisplayName
			}
		}
		seconds := int64(g.total / time.Second)
		rows = append(rows, LeaderboardRow{
			Member:       name,
			MemberKey:    g.key,
			TotalSeconds: seconds,
			TotalMinutes: math.Round(float64(seconds)/60*10) / 10,
		})
	}
	return rows
}
