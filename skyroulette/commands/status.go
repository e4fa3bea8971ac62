package commands

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/ThomasByr/skyroulette/internal/domain/roulette"
	"github.com/ThomasByr/skyroulette/skyroulette"
)

var Status = discord.SlashCommandCreate{
	Name:        "status",
	Description: "Show whether the wheel can spin and the latest victims",
}

func StatusHandler(b *skyroulette.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandContext()
		defer cancel()

		return e.CreateMessage(embedMessage(statusEmbed(b.Service.Status(ctx)), false))
	}
}

func statusEmbed(status roulette.StatusResponse) discord.Embed {
	wheel := "✅ Ready to spin"
	color := successColor
	if !status.CanSpin {
		wheel = "⏳ Next spin in " + formatWait(status.SecondsUntilNextSpin)
		color = warnColor
	}
	if status.HappyHour {
		wheel += " · 🍻 happy hour"
	}

	var recent strings.Builder
	if len(status.RecentHistory) == 0 {
		recent.WriteString("No spin yet.")
	}
	// newest first
	for i := len(status.RecentHistory) - 1; i >= 0; i-- {
		recent.WriteString(formatEntry(status.RecentHistory[i]))
		recent.WriteString("\n")
	}

	return discord.NewEmbedBuilder().
		SetTitle("🎰 Skyroulette status").
		SetColor(color).
		AddField("Wheel", wheel, false).
		AddField("Online", fmt.Sprintf("%d members", status.OnlineCount), true).
		AddField("Recent spins", recent.String(), false).
		Build()
}

func formatEntry(entry roulette.EntryView) string {
	name := entry.Member
	if entry.MemberID != nil {
		name = fmt.Sprintf("<@%s>", *entry.MemberID)
	}
	line := fmt.Sprintf("%s · %s", name, formatTime(entry.Time))
	if entry.Active {
		line += " · 🔇 active"
	}
	return line
}
