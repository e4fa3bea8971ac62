package roulette

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

type SchedulerConfig struct {
	Restriction   time.Duration
	Reason        string
	Announcements []string
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Restriction:   2 * time.Minute,
		Reason:        "🎰 Skyroulette Discord",
		Announcements: DefaultAnnouncements,
	}
}

// Scheduler owns the spin history and serializes every spin through one
// lock: the cooldown check, the pick and the durable append happen under it,
// side effects are dispatched after it is released.
type Scheduler struct {
	mu       sync.RWMutex
	history  []HistoryEntry
	lastSpin time.Time

	policy     *CooldownPolicy
	store      HistoryStore
	roster     Roster
	restrictor Restrictor
	announcer  Announcer
	dispatcher *Dispatcher
	pick       Picker
	cfg        SchedulerConfig
}

func NewScheduler(policy *CooldownPolicy, store HistoryStore, roster Roster, cfg SchedulerConfig) *Scheduler {
	if cfg.Restriction <= 0 {
		cfg.Restriction = DefaultSchedulerConfig().Restriction
	}
	return &Scheduler{
		policy:     policy,
		store:      store,
		roster:     roster,
		dispatcher: NewDispatcher(DefaultDispatcherConfig()),
		pick:       CryptoPicker,
		cfg:        cfg,
	}
}

func (s *Scheduler) SetRestrictor(r Restrictor) { s.restrictor = r }
func (s *Scheduler) SetAnnouncer(a Announcer) { s.announcer = a }
func (s *Scheduler) SetDispatcher(d *Dispatcher) { s.dispatcher = d }
func (s *Scheduler) SetPicker(p Picker) { s.pick = p }
func (s *Scheduler) Policy() *CooldownPolicy { return s.policy }
func (s *Scheduler) Dispatcher() *Dispatcher { return s.dispatcher }
func (s *Scheduler) Restriction() time.Duration { return s.cfg.Restriction }

// Load replaces the in-memory history with the store contents. A store that
// cannot be read leaves the scheduler with an empty history.
func (s *Scheduler) Load(ctx context.Context) error {
	entries, err := s.store.Load(ctx)
	if err != nil {
		slog.Error("History could not be loaded, starting empty",
			slog.String("type", "error"),
			slog.Any("error", err))
		entries = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = entries
	s.lastSpin = latestStart(entries)

	slog.Info("History loaded",
		slog.String("type", "sys"),
		slog.Int("entries", len(entries)),
		slog.Time("last_spin", s.lastSpin))
	return err
}

func latestStart(entries []HistoryEntry) time.Time {
	var last time.Time
	for _, e := range entries {
		if e.StartedAt.After(last) {
			last = e.StartedAt
		}
	}
	return last
}

// AttemptSpin picks and restricts one eligible member. It returns a
// *CooldownError, ErrNoEligibleCandidates, a wrapped ErrRosterUnavailable or
// a *PersistenceError when nothing was committed.
func (s *Scheduler) AttemptSpin(ctx context.Context, now time.Time) (HistoryEntry, error) {
	entry, winner, err := s.commit(ctx, now.In(s.policy.Config().Location))
	if err != nil {
		return HistoryEntry{}, err
	}

	slog.Info("Spin committed",
		slog.String("type", "spin"),
		slog.String("member", winner.DisplayName),
		slog.String("member_id", winner.ID.String()),
		slog.Time("ends_at", entry.EndsAt))

	s.dispatchSideEffects(winner, entry)
	return entry, nil
}

func (s *Scheduler) commit(ctx context.Context, now time.Time) (HistoryEntry, Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if remaining := s.policy.Remaining(now, s.lastSpin); remaining > 0 {
		return HistoryEntry{}, Member{}, &CooldownError{RetryAfter: remaining}
	}

	snapshot, err := s.roster.Snapshot(ctx)
	if err != nil {
		return HistoryEntry{}, Member{}, fmt.Errorf("%w: %v", ErrRosterUnavailable, err)
	}

	candidates := Candidates(snapshot.Members, snapshot.OwnerID)
	if len(candidates) == 0 {
		return HistoryEntry{}, Member{}, ErrNoEligibleCandidates
	}

	idx, err := s.pick(len(candidates))
	if err != nil {
		return HistoryEntry{}, Member{}, fmt.Errorf("failed to pick winner: %w", err)
	}
	winner := candidates[idx]

	entry, err := s.store.Append(ctx, HistoryEntry{
		Member:    Identified{ID: winner.ID, DisplayName: winner.DisplayName},
		StartedAt: now,
		EndsAt:    now.Add(s.cfg.Restriction),
	})
	if err != nil {
		return HistoryEntry{}, Member{}, &PersistenceError{Op: "append", Err: err}
	}

	s.history = append(s.history, entry)
	s.lastSpin = now
	return entry, winner, nil
}

func (s *Scheduler) dispatchSideEffects(winner Member, entry HistoryEntry) {
	if s.dispatcher == nil {
		return
	}
	duration, _ := entry.Duration()

	if s.restrictor != nil {
		reason := s.cfg.Reason
		s.dispatcher.Go("restrict", func(ctx context.Context) error {
			return s.restrictor.Restrict(ctx, winner.ID, entry.EndsAt, reason)
		})
	}

	if s.announcer != nil && len(s.cfg.Announcements) > 0 {
		idx, err := s.pick(len(s.cfg.Announcements))
		if err != nil {
			slog.Warn("Announcement skipped", slog.Any("error", err))
			return
		}
		content := RenderAnnouncement(s.cfg.Announcements[idx], winner, duration)
		s.dispatcher.Go("announce", func(ctx context.Context) error {
			return s.announcer.Announce(ctx, content)
		})
	}
}

// Entries returns a copy of the history in chronological order.
func (s *Scheduler) Entries() []HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Scheduler) LastSpin() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSpin
}

func (s *Scheduler) CanSpin(now time.Time) bool {
	return s.policy.CanSpin(now, s.LastSpin())
}

func (s *Scheduler) SecondsUntilNextSpin(now time.Time) int64 {
	return s.policy.SecondsUntilNextSpin(now, s.LastSpin())
}

// ResolveLegacyIdentities assigns member ids to entries recorded by name only
// when exactly one live member carries that name. It returns how many entries
// were resolved.
func (s *Scheduler) ResolveLegacyIdentities(ctx context.Context) (int, error) {
	snapshot, err := s.roster.Snapshot(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRosterUnavailable, err)
	}
	byName := indexMembersByName(snapshot.Members)

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[int64]Identified)
	for _, e := range s.history {
		legacy, ok := e.Member.(LegacyNamedOnly)
		if !ok {
			continue
		}
		if matches := byName[strings.ToLower(legacy.DisplayName)]; len(matches) == 1 {
			ids[e.Seq] = Identified{ID: matches[0], DisplayName: legacy.DisplayName}
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := s.store.AssignIdentities(ctx, ids); err != nil {
		return 0, &PersistenceError{Op: "assign identities", Err: err}
	}

	updated := make([]HistoryEntry, len(s.history))
	for i, e := range s.history {
		if ident, ok := ids[e.Seq]; ok {
			e.Member = ident
		}
		updated[i] = e
	}
	s.history = updated
	return len(ids), nil
}

func indexMembersByName(members []Member) map[string][]snowflake.ID {
	byName := make(map[string][]snowflake.ID)
	for _, m := range members {
		seen := make(map[string]bool, 2)
		for _, name := range []string{m.DisplayName, m.Username} {
			key := strings.ToLower(name)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			byName[key] = append(byName[key], m.ID)
		}
	}
	return byName
}
