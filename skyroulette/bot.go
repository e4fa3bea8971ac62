package skyroulette

import (
	"context"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/paginator"

	"github.com/ThomasByr/skyroulette/internal/domain/roulette"
	discordgw "github.com/ThomasByr/skyroulette/internal/gateways/discord"
)

func New(cfg Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:       cfg,
		Paginator: paginator.New(),
		Version:   version,
		Commit:    commit,
	}
}

type Bot struct {
	Cfg       Config
	Client    bot.Client
	Paginator *paginator.Manager
	Version   string
	Commit    string
	Roster    *discordgw.Roster
	Service   *roulette.Service
}

// SetupBot creates the gateway client. Member and presence intents are
// required: the roster is read from the cache at every spin.
func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(
			gateway.IntentGuilds,
			gateway.IntentGuildMembers,
			gateway.IntentGuildPresences,
		)),
		bot.WithCacheConfigOpts(cache.WithCaches(
			cache.FlagGuilds,
			cache.FlagMembers,
			cache.FlagPresences,
			cache.FlagRoles,
			cache.FlagChannels,
		)),
		bot.WithMemberChunkingFilter(bot.MemberChunkingFilterAll),
		bot.WithEventListeners(b.Paginator),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	b.Roster = discordgw.NewRoster(client.Caches(), b.Cfg.Bot.GuildID, 0)
	return nil
}

func (b *Bot) OnReady(_ *events.Ready) {
	slog.Info("Skyroulette bot is now ready",
		slog.String("type", "sys"),
		slog.String("version", b.Version),
		slog.String("commit", b.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithWatchingActivity("the wheel spin"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		slog.Error("Failed to set presence", slog.String("type", "error"), slog.Any("error", err))
	}
}

func (b *Bot) OnGuildReady(e *events.GuildReady) {
	if e.Guild.ID != b.Cfg.Bot.GuildID {
		return
	}
	slog.Info("Guild available, roster is live",
		slog.String("type", "sys"),
		slog.String("guild", e.Guild.Name))
}
