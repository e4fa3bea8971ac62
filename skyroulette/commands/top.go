package commands

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/json"

	"github.com/ThomasByr/skyroulette/internal/domain/roulette"
	"github.com/ThomasByr/skyroulette/skyroulette"
)

const defaultTopLimit = 10

var Top = discord.SlashCommandCreate{
	Name:        "top",
	Description: "🏆 Members who spent the most time timed out",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        "limit",
			Description: "How many members to show",
			Required:    false,
			MinValue:    json.Ptr(1),
			MaxValue:    json.Ptr(maxAutocompleteChoices),
		},
	},
}

func TopHandler(b *skyroulette.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandContext()
		defer cancel()

		limit, ok := e.SlashCommandInteractionData().OptInt("limit")
		if !ok || limit <= 0 {
			limit = defaultTopLimit
		}

		rows := b.Service.TopRestricted(ctx, limit)
		return e.CreateMessage(embedMessage(topEmbed(rows), false))
	}
}

var medals = []string{"🥇", "🥈", "🥉"}

func topEmbed(rows []roulette.LeaderboardRow) discord.Embed {
	var description strings.Builder
	if len(rows) == 0 {
		description.WriteString("Nobody has been timed out yet.")
	}
	for i, row := range rows {
		rank := fmt.Sprintf("`%d.`", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		description.WriteString(fmt.Sprintf("%s **%s** · %.1f min\n", rank, row.Member, row.TotalMinutes))
	}

	return discord.NewEmbedBuilder().
		SetTitle("🏆 Skyroulette leaderboard").
		SetDescription(description.String()).
		SetColor(embedColor).
		Build()
}
