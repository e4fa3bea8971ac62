package roulette

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

//go:generate mockgen -destination=mock/collaborators.go -package=mock . HistoryStore,Roster,Restrictor,Announcer

// HistoryStore is the durable, append-only spin log. Only the Scheduler
// writes to it.
type HistoryStore interface {
	// Load returns every entry in chronological order.
	Load(ctx context.Context) ([]HistoryEntry, error)
	// Append persists entry and returns it with its sequence number set.
	Append(ctx context.Context, entry HistoryEntry) (HistoryEntry, error)
	// AssignIdentities records member ids for legacy entries, keyed by Seq.
	// An entry whose stored name differs from the assignment's DisplayName
	// is left alone.
	AssignIdentities(ctx context.Context, ids map[int64]Identified) error
}

// Roster provides live guild membership.
type Roster interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Restrictor applies the timeout to the picked member.
type Restrictor interface {
	Restrict(ctx context.Context, memberID snowflake.ID, until time.Time, reason string) error
}

// Announcer posts the spin result to the community.
type Announcer interface {
	Announce(ctx context.Context, content string) error
}
