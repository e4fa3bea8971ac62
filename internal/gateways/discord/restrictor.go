package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/json"
	"github.com/disgoorg/snowflake/v2"
)

// MemberUpdater is satisfied by rest.Rest.
type MemberUpdater interface {
	UpdateMember(guildID snowflake.ID, userID snowflake.ID, memberUpdate discord.MemberUpdate, opts ...rest.RequestOpt) (*discord.Member, error)
}

// Restrictor times members out through the Discord API.
type Restrictor struct {
	rest    MemberUpdater
	guildID snowflake.ID
}

func NewRestrictor(client MemberUpdater, guildID snowflake.ID) *Restrictor {
	return &Restrictor{rest: client, guildID: guildID}
}

// Restrict times the member out until the given instant. Retries pass the
// same instant, so a late retry never extends the timeout.
func (r *Restrictor) Restrict(ctx context.Context, memberID snowflake.ID, until time.Time, reason string) error {
	if _, err := r.rest.UpdateMember(r.guildID, memberID, discord.MemberUpdate{
		CommunicationDisabledUntil: json.NewNullablePtr(until),
	}, rest.WithCtx(ctx), rest.WithReason(reason)); err != nil {
		return fmt.Errorf("failed to time out member %s: %w", memberID, err)
	}
	return nil
}
