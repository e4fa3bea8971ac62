package history

import (
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/ThomasByr/skyroulette/internal/domain/roulette"
)

// record is the on-disk shape of one spin. Older logs carry no member_id and
// naive timestamps written in UTC.
type record struct {
	Member   string  `json:"member"`
	MemberID *string `json:"member_id,omitempty"`
	Time     string  `json:"time"`
	EndsAt   string  `json:"ends_at"`
}

// naiveLayouts are accepted for timestamps without a zone offset.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func parseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}

func formatTimestamp(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(time.RFC3339Nano)
}

func (r record) toEntry(seq int64) roulette.HistoryEntry {
	entry := roulette.HistoryEntry{
		Seq:       seq,
		Member:    roulette.LegacyNamedOnly{DisplayName: r.Member},
		StartedAt: parseTimestamp(r.Time),
		EndsAt:    parseTimestamp(r.EndsAt),
	}
	if r.MemberID != nil {
		if id, err := snowflake.Parse(*r.MemberID); err == nil && id != 0 {
			entry.Member = roulette.Identified{ID: id, DisplayName: r.Member}
		}
	}
	return entry
}

func recordOf(entry roulette.HistoryEntry, loc *time.Location) record {
	r := record{
		Time:   formatTimestamp(entry.StartedAt, loc),
		EndsAt: formatTimestamp(entry.EndsAt, loc),
	}
	if entry.Member != nil {
		r.Member = entry.Member.Name()
	}
	if id, ok := roulette.IdentityOf(entry.Member); ok {
		s := id.String()
		r.MemberID = &s
	}
	return r
}
