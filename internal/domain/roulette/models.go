package roulette

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Member is a read-only snapshot of one guild member.
type Member struct {
	ID            snowflake.ID
	Username      string
	DisplayName   string
	Online        bool
	Bot           bool
	Owner         bool
	Administrator bool
}

// Mention returns the Discord mention markup for the member.
func (m Member) Mention() string {
	return "<@" + m.ID.String() + ">"
}

// Snapshot is the roster state taken for a single operation.
type Snapshot struct {
	OwnerID snowflake.ID
	Members []Member
}

// Lookup returns the member with the given id.
func (s Snapshot) Lookup(id snowflake.ID) (Member, bool) {
	for _, m := range s.Members {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}

// Identity is who a history entry refers to. It is either Identified or
// LegacyNamedOnly.
type Identity interface {
	Name() string
	isIdentity()
}

// Identified is an identity recorded with its stable Discord id.
type Identified struct {
	ID          snowflake.ID
	DisplayName string
}

func (i Identified) Name() string { return i.DisplayName }
func (Identified) isIdentity() {}

// LegacyNamedOnly is an identity from before ids were tracked.
type LegacyNamedOnly struct {
	DisplayName string
}

func (l LegacyNamedOnly) Name() string { return l.DisplayName }
func (LegacyNamedOnly) isIdentity() {}

// IdentityOf returns the id carried by identity, if any.
func IdentityOf(identity Identity) (snowflake.ID, bool) {
	if i, ok := identity.(Identified); ok {
		return i.ID, true
	}
	return 0, false
}

// HistoryEntry is one committed spin. A zero StartedAt or EndsAt means the
// stored timestamp could not be parsed.
type HistoryEntry struct {
	Seq       int64
	Member    Identity
	StartedAt time.Time
	EndsAt    time.Time
}

// Duration returns the restriction length, or false when unknown or not
// positive.
func (e HistoryEntry) Duration() (time.Duration, bool) {
	if e.StartedAt.IsZero() || e.EndsAt.IsZero() {
		return 0, false
	}
	d := e.EndsAt.Sub(e.StartedAt)
	if d <= 0 {
		return 0, false
	}
	return d, true
}

// Active reports whether the restriction is still running at now.
func (e HistoryEntry) Active(now time.Time) bool {
	if e.EndsAt.IsZero() {
		return false
	}
	return now.Before(e.EndsAt)
}
