package commands

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/ThomasByr/skyroulette/internal/domain/roulette"
	"github.com/ThomasByr/skyroulette/skyroulette"
	"github.com/ThomasByr/skyroulette/skyroulette/logger"
)

var Spin = discord.SlashCommandCreate{
	Name:        "spin",
	Description: "🎰 Spin the wheel and time out a random online member",
}

func SpinHandler(b *skyroulette.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandContext()
		defer cancel()

		resp, err := b.Service.Spin(ctx)
		logger.LogSpin("discord", resp.Status, resp.Member, err)

		return e.CreateMessage(embedMessage(spinEmbed(resp, b.Service.Scheduler().Restriction().Minutes()), resp.Status != roulette.SpinStatusOK))
	}
}

func spinEmbed(resp roulette.SpinResponse, minutes float64) discord.Embed {
	embed := discord.NewEmbedBuilder().SetTitle("🎰 Skyroulette")

	switch resp.Status {
	case roulette.SpinStatusOK:
		target := resp.Member
		if resp.MemberID != "" {
			target = fmt.Sprintf("<@%s>", resp.MemberID)
		}
		embed.SetDescription(fmt.Sprintf("The wheel stopped on %s: timed out for %.0f minutes.", target, minutes)).
			SetColor(successColor)
	case roulette.SpinStatusCooldown:
		embed.SetDescription(fmt.Sprintf("The wheel is cooling down. Next spin in %s.", formatWait(resp.RetryAfter))).
			SetColor(warnColor)
	case roulette.SpinStatusEmpty:
		embed.SetDescription("Nobody is eligible right now.").
			SetColor(warnColor)
	default:
		embed.SetDescription("The spin could not be recorded, try again in a moment.").
			SetColor(errorColor)
	}
	return embed.Build()
}

func formatWait(seconds int64) string {
	if seconds <= 0 {
		return "now"
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
