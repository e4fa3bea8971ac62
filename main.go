package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"
	"golang.org/x/sync/errgroup"

	"github.com/ThomasByr/skyroulette/backend"
	webhandlers "github.com/ThomasByr/skyroulette/backend/handlers"
	"github.com/ThomasByr/skyroulette/internal/domain/roulette"
	discordgw "github.com/ThomasByr/skyroulette/internal/gateways/discord"
	"github.com/ThomasByr/skyroulette/internal/gateways/database"
	"github.com/ThomasByr/skyroulette/internal/gateways/history"
	"github.com/ThomasByr/skyroulette/internal/gateways/spaces"
	"github.com/ThomasByr/skyroulette/skyroulette"
	"github.com/ThomasByr/skyroulette/skyroulette/commands"
	"github.com/ThomasByr/skyroulette/skyroulette/handlers"
	"github.com/ThomasByr/skyroulette/skyroulette/jobs"
	"github.com/ThomasByr/skyroulette/skyroulette/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	path := flag.String("config", "config.toml", "path to config")
	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	flag.Parse()

	slog.SetDefault(slog.New(logger.NewHandler(logger.Options{Color: true})))

	cfg, err := skyroulette.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.SetDefault(slog.New(logger.NewHandler(logger.Options{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Prefix: cfg.Log.Prefix,
		Color:  cfg.Log.Color,
	})))

	slog.Info("Starting Skyroulette",
		slog.String("type", "sys"),
		slog.String("version", version),
		slog.String("commit", commit))

	if err := run(cfg, *shouldSyncCommands); err != nil {
		slog.Error("Skyroulette stopped with an error", slog.String("type", "sys"), slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Skyroulette stopped", slog.String("type", "sys"))
}

func run(cfg *skyroulette.Config, syncCommands bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, db, err := openHistoryStore(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	b := skyroulette.New(*cfg, version, commit)

	h := handler.New()
	h.Command("/spin", handlers.WrapWithLogging("spin", commands.SpinHandler(b)))
	h.Command("/status", handlers.WrapWithLogging("status", commands.StatusHandler(b)))
	h.Command("/history", handlers.WrapWithLogging("history", commands.HistoryHandler(b)))
	h.Autocomplete("/history", handlers.WrapAutocomplete("history", commands.HistoryAutocomplete(b)))
	h.Command("/top", handlers.WrapWithLogging("top", commands.TopHandler(b)))
	h.Command("/version", handlers.WrapWithLogging("version", commands.VersionHandler(b)))

	if err := b.SetupBot(h, bot.NewListenerFunc(b.OnReady), bot.NewListenerFunc(b.OnGuildReady)); err != nil {
		return fmt.Errorf("failed to setup bot: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	scheduler := roulette.NewScheduler(
		roulette.NewCooldownPolicy(cfg.CooldownConfig()),
		store,
		b.Roster,
		cfg.SchedulerConfig(),
	)
	dispatcher := roulette.NewDispatcher(cfg.DispatcherConfig())
	scheduler.SetDispatcher(dispatcher)
	scheduler.SetRestrictor(discordgw.NewRestrictor(b.Client.Rest(), cfg.Bot.GuildID))
	if cfg.Bot.AnnounceChannelID != 0 {
		scheduler.SetAnnouncer(discordgw.NewAnnouncer(b.Client.Rest(), cfg.Bot.AnnounceChannelID))
	}
	defer func() {
		if err := dispatcher.Shutdown(10 * time.Second); err != nil {
			slog.Warn("Side effects did not finish", slog.String("type", "sys"), slog.Any("error", err))
		}
	}()

	// a history that cannot be read degrades to an empty one
	_ = scheduler.Load(ctx)
	b.Service = roulette.NewService(scheduler, b.Roster)

	if syncCommands || cfg.Bot.SyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds))
		if err := handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err))
		}
	}

	jobRunner, err := newJobs(ctx, cfg, scheduler)
	if err != nil {
		return err
	}
	if err := jobRunner.Start(ctx); err != nil {
		return err
	}
	defer jobRunner.Stop()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := b.Client.OpenGateway(openCtx); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Web.Enabled {
		webApp := &webhandlers.WebApp{
			Service: b.Service,
			Version: version,
			Commit:  commit,
		}
		if db != nil {
			webApp.DB = db
		}
		app := backend.NewApp(webApp, backend.Config{
			AllowedOrigin:  cfg.Web.AllowedOrigin,
			StaticDir:      cfg.Web.StaticDir,
			SpinsPerMinute: cfg.Web.SpinsPerMinute,
		})

		g.Go(func() error {
			slog.Info("Starting web server", slog.String("type", "http"), slog.String("address", cfg.Web.Addr))
			if err := app.Listen(cfg.Web.Addr); err != nil {
				return fmt.Errorf("web server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return app.ShutdownWithContext(ctx)
		})
	}

	slog.Info("Bot is running. Press CTRL-C to exit.", slog.String("type", "sys"))
	<-gctx.Done()
	slog.Info("Shutting down...", slog.String("type", "sys"))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openHistoryStore returns the configured history backend. The database is
// nil unless history lives in Postgres; the caller closes it.
func openHistoryStore(ctx context.Context, cfg *skyroulette.Config) (roulette.HistoryStore, *database.DB, error) {
	switch cfg.History.Backend {
	case skyroulette.HistoryBackendPostgres:
		dbStartTime := time.Now()
		connectCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		db, err := database.New(connectCtx, cfg.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		if err := db.InitializeSchema(connectCtx, history.SchemaModels, history.SchemaIndexes); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to initialize database schema: %w", err)
		}
		slog.Info("Database connected successfully",
			slog.String("type", "db"),
			slog.String("database", cfg.DB.Database),
			slog.Duration("took", time.Since(dbStartTime)))
		return history.NewPostgresStore(db.BunDB()), db, nil
	default:
		slog.Info("Using file history",
			slog.String("type", "db"),
			slog.String("path", cfg.History.Path))
		return history.NewFileStore(cfg.History.Path, cfg.Location()), nil, nil
	}
}

func newJobs(ctx context.Context, cfg *skyroulette.Config, scheduler *roulette.Scheduler) (*jobs.Scheduler, error) {
	var uploader jobs.SnapshotUploader
	if cfg.Spaces.Enabled() {
		backup, err := spaces.NewBackup(ctx, cfg.Spaces)
		if err != nil {
			return nil, err
		}
		uploader = backup
	}
	return jobs.NewScheduler(jobs.Config{
		IdentityBackfill: cfg.Jobs.IdentityBackfill,
		Backup:           cfg.Jobs.Backup,
		Location:         cfg.Location(),
	}, scheduler, scheduler, uploader), nil
}
