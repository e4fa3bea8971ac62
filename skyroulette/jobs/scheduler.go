package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ThomasByr/skyroulette/internal/domain/roulette"
	"github.com/ThomasByr/skyroulette/internal/gateways/history"
)

type IdentityResolver interface {
	ResolveLegacyIdentities(ctx context.Context) (int, error)
}

type EntrySource interface {
	Entries() []roulette.HistoryEntry
}

type SnapshotUploader interface {
	Upload(ctx context.Context, body []byte, at time.Time) (string, error)
}

type Config struct {
	IdentityBackfill string
	Backup           string
	Location         *time.Location
	Timeout          time.Duration
}

// Scheduler runs the periodic maintenance jobs.
type Scheduler struct {
	cron     *cron.Cron
	cfg      Config
	resolver IdentityResolver
	entries  EntrySource
	uploader SnapshotUploader
	now      func() time.Time
}

// NewScheduler builds the job runner. uploader may be nil, in which case
// the backup job is not registered.
func NewScheduler(cfg Config, resolver IdentityResolver, entries EntrySource, uploader SnapshotUploader) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}

	logger := slogCronLogger{}
	c := cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	return &Scheduler{
		cron:     c,
		cfg:      cfg,
		resolver: resolver,
		entries:  entries,
		uploader: uploader,
		now:      time.Now,
	}
}

// Start registers the jobs and starts the cron loop. Jobs run with ctx as
// parent so they stop with the process.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.IdentityBackfill != "" && s.resolver != nil {
		if _, err := s.cron.AddFunc(s.cfg.IdentityBackfill, func() { s.RunIdentityBackfill(ctx) }); err != nil {
			return fmt.Errorf("invalid identity backfill schedule %q: %w", s.cfg.IdentityBackfill, err)
		}
	}
	if s.cfg.Backup != "" && s.uploader != nil {
		if _, err := s.cron.AddFunc(s.cfg.Backup, func() { s.RunBackup(ctx) }); err != nil {
			return fmt.Errorf("invalid backup schedule %q: %w", s.cfg.Backup, err)
		}
	}

	s.cron.Start()
	slog.Info("Job scheduler started",
		slog.String("type", "sys"),
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("location", s.cfg.Location.String()))
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("Job scheduler stopped", slog.String("type", "sys"))
}

func (s *Scheduler) RunIdentityBackfill(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resolved, err := s.resolver.ResolveLegacyIdentities(ctx)
	if err != nil {
		slog.Error("Identity backfill failed",
			slog.String("type", "db"),
			slog.String("name", "identity-backfill"),
			slog.Any("error", err))
		return 0
	}
	if resolved > 0 {
		slog.Info("Legacy history entries identified",
			slog.String("type", "db"),
			slog.String("name", "identity-backfill"),
			slog.Int("resolved", resolved),
			slog.Duration("took", time.Since(start)))
	}
	return resolved
}

func (s *Scheduler) RunBackup(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	body, err := history.Encode(s.entries.Entries(), s.cfg.Location)
	if err != nil {
		return "", err
	}

	key, err := s.uploader.Upload(ctx, body, s.now())
	if err != nil {
		slog.Error("History backup failed",
			slog.String("type", "error"),
			slog.String("name", "backup"),
			slog.Any("error", err))
		return "", err
	}

	slog.Info("History backed up",
		slog.String("type", "sys"),
		slog.String("name", "backup"),
		slog.String("key", key),
		slog.Int("bytes", len(body)))
	return key, nil
}

// slogCronLogger routes cron's own logging to slog.
type slogCronLogger struct{}

func (slogCronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, append([]any{slog.String("type", "sys")}, keysAndValues...)...)
}

func (slogCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append([]any{slog.String("type", "error"), slog.Any("error", err)}, keysAndValues...)...)
}
