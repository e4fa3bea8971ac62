package commands

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/discord"
)

const (
	embedColor   = 0x2B2D31
	successColor = 0x57F287
	warnColor    = 0xFEE75C
	errorColor   = 0xED4245

	entriesPerPage = 10
	commandTimeout = 5 * time.Second
)

var Commands = []discord.ApplicationCommandCreate{
	Spin,
	Status,
	History,
	Top,
	Version,
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

func embedMessage(embed discord.Embed, ephemeral bool) discord.MessageCreate {
	return discord.NewMessageCreateBuilder().
		SetEmbeds(embed).
		SetEphemeral(ephemeral).
		SetAllowedMentions(&discord.AllowedMentions{}).
		Build()
}
