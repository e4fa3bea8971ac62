package roulette

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	SpinStatusOK       = "ok"
	SpinStatusCooldown = "cooldown"
	SpinStatusEmpty    = "empty"
	SpinStatusError    = "error"

	RecentHistorySize = 5
)

type SpinResponse struct {
	Status     string `json:"status"`
	Member     string `json:"member,omitempty"`
	MemberID   string `json:"member_id,omitempty"`
	RetryAfter int64  `json:"retry_after,omitempty"`
}

type StatusResponse struct {
	OnlineCount          int         `json:"online_count"`
	CanSpin              bool        `json:"can_spin"`
	SecondsUntilNextSpin int64       `json:"seconds_until_next_spin"`
	HappyHour            bool        `json:"happy_hour"`
	RecentHistory        []EntryView `json:"recent_history"`
}

type HistoryResponse struct {
	History []EntryView `json:"history"`
}

// Service exposes the roulette operations to the HTTP API and the slash
// commands.
type Service struct {
	scheduler *Scheduler
	roster    Roster
	view      *View
	now       func() time.Time
}

func NewService(scheduler *Scheduler, roster Roster) *Service {
	return &Service{
		scheduler: scheduler,
		roster:    roster,
		view:      NewView(scheduler.Policy().Config().Location),
		now:       time.Now,
	}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Scheduler() *Scheduler {
	return s.scheduler
}

// Spin attempts a spin. Expected denials are reported in the response; the
// error is only set when the attempt failed.
func (s *Service) Spin(ctx context.Context) (SpinResponse, error) {
	entry, err := s.scheduler.AttemptSpin(ctx, s.now())

	var cooldown *CooldownError
	switch {
	case err == nil:
		resp := SpinResponse{Status: SpinStatusOK, Member: entry.Member.Name()}
		if id, ok := IdentityOf(entry.Member); ok {
			resp.MemberID = id.String()
		}
		return resp, nil
	case errors.As(err, &cooldown):
		return SpinResponse{
			Status:     SpinStatusCooldown,
			RetryAfter: ceilSeconds(cooldown.RetryAfter),
		}, nil
	case errors.Is(err, ErrNoEligibleCandidates):
		return SpinResponse{Status: SpinStatusEmpty}, nil
	default:
		return SpinResponse{Status: SpinStatusError}, err
	}
}

func (s *Service) Status(ctx context.Context) StatusResponse {
	now := s.now()
	return StatusResponse{
		OnlineCount:          OnlineCount(s.snapshot(ctx).Members),
		CanSpin:              s.scheduler.CanSpin(now),
		SecondsUntilNextSpin: s.scheduler.SecondsUntilNextSpin(now),
		HappyHour:            s.scheduler.Policy().IsHappyHour(now),
		RecentHistory:        s.view.Recent(s.scheduler.Entries(), RecentHistorySize, now),
	}
}

func (s *Service) History() HistoryResponse {
	return HistoryResponse{History: s.view.All(s.scheduler.Entries(), s.now())}
}

func (s *Service) TopRestricted(ctx context.Context, limit int) []LeaderboardRow {
	return s.view.Leaderboard(s.scheduler.Entries(), limit, s.snapshot(ctx))
}

// snapshot degrades to an empty roster so read-only reports keep working
// while the gateway is down.
func (s *Service) snapshot(ctx context.Context) Snapshot {
	snapshot, err := s.roster.Snapshot(ctx)
	if err != nil {
		slog.Warn("Roster snapshot unavailable",
			slog.String("type", "sys"),
			slog.Any("error", err))
		return Snapshot{}
	}
	return snapshot
}
