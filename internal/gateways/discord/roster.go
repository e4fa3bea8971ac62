package discord

import (
	"cmp"
	"context"
	"slices"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	lru "github.com/hashicorp/golang-lru"

	"github.com/ThomasByr/skyroulette/internal/domain/roulette"
)

const defaultNameCacheSize = 1024

// GuildCache is the part of the gateway cache the roster reads. bot.Client's
// Caches() satisfies it.
type GuildCache interface {
	Guild(guildID snowflake.ID) (discord.Guild, bool)
	MembersForEach(guildID snowflake.ID, fn func(member discord.Member))
	Presence(guildID snowflake.ID, userID snowflake.ID) (discord.Presence, bool)
	MemberPermissions(member discord.Member) discord.Permissions
}

// Roster builds member snapshots of one guild from the gateway cache.
type Roster struct {
	cache   GuildCache
	guildID snowflake.ID
	// names remembers display names of members seen in past snapshots, so
	// autocomplete still offers people who went offline or left.
	names *lru.Cache
}

func NewRoster(cache GuildCache, guildID snowflake.ID, nameCacheSize int) *Roster {
	if nameCacheSize <= 0 {
		nameCacheSize = defaultNameCacheSize
	}
	names, _ := lru.New(nameCacheSize)
	return &Roster{
		cache:   cache,
		guildID: guildID,
		names:   names,
	}
}

// Snapshot returns the members currently cached for the guild, sorted by id.
// It fails with roulette.ErrRosterUnavailable until the guild is ready.
func (r *Roster) Snapshot(ctx context.Context) (roulette.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return roulette.Snapshot{}, err
	}

	guild, ok := r.cache.Guild(r.guildID)
	if !ok {
		return roulette.Snapshot{}, roulette.ErrRosterUnavailable
	}

	snapshot := roulette.Snapshot{OwnerID: guild.OwnerID}
	r.cache.MembersForEach(r.guildID, func(m discord.Member) {
		member := roulette.Member{
			ID:            m.User.ID,
			Username:      m.User.Username,
			DisplayName:   m.EffectiveName(),
			Online:        r.online(m.User.ID),
			Bot:           m.User.Bot,
			Owner:         m.User.ID == guild.OwnerID,
			Administrator: r.cache.MemberPermissions(m).Has(discord.PermissionAdministrator),
		}
		r.names.Add(member.ID, member.DisplayName)
		snapshot.Members = append(snapshot.Members, member)
	})

	slices.SortFunc(snapshot.Members, func(a, b roulette.Member) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return snapshot, nil
}

func (r *Roster) online(userID snowflake.ID) bool {
	presence, ok := r.cache.Presence(r.guildID, userID)
	if !ok {
		return false
	}
	switch presence.Status {
	case discord.OnlineStatusOffline, discord.OnlineStatusInvisible, "":
		return false
	default:
		return true
	}
}

// KnownNames returns every display name still held by the name cache.
func (r *Roster) KnownNames() []string {
	keys := r.names.Keys()
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		if v, ok := r.names.Peek(key); ok {
			names = append(names, v.(string))
		}
	}
	return names
}
