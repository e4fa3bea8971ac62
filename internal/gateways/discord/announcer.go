package discord

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

// MessageCreator is satisfied by rest.Rest.
type MessageCreator interface {
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
}

// Announcer posts spin results to a fixed channel. Only user mentions are
// allowed to ping.
type Announcer struct {
	rest      MessageCreator
	channelID snowflake.ID
}

func NewAnnouncer(client MessageCreator, channelID snowflake.ID) *Announcer {
	return &Announcer{rest: client, channelID: channelID}
}

func (a *Announcer) Announce(ctx context.Context, content string) error {
	message := discord.NewMessageCreateBuilder().
		SetContent(content).
		SetAllowedMentions(&discord.AllowedMentions{
			Parse: []discord.AllowedMentionType{discord.AllowedMentionTypeUsers},
		}).
		Build()

	if _, err := a.rest.CreateMessage(a.channelID, message, rest.WithCtx(ctx)); err != nil {
		return fmt.Errorf("failed to post announcement in %s: %w", a.channelID, err)
	}
	return nil
}
