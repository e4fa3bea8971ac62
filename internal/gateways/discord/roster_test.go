package discord

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/json"
	"github.com/disgoorg/snowflake/v2"

	"github.com/ThomasByr/skyroulette/internal/domain/roulette"
)

type fakeCache struct {
	guild     *discord.Guild
	members   []discord.Member
	presences map[snowflake.ID]discord.OnlineStatus
	admins    map[snowflake.ID]bool
}

func (f *fakeCache) Guild(guildID snowflake.ID) (discord.Guild, bool) {
	if f.guild == nil || f.guild.ID != guildID {
		return discord.Guild{}, false
	}
	return *f.guild, true
}

func (f *fakeCache) MembersForEach(_ snowflake.ID, fn func(member discord.Member)) {
	for _, m := range f.members {
		fn(m)
	}
}

func (f *fakeCache) Presence(_ snowflake.ID, userID snowflake.ID) (discord.Presence, bool) {
	status, ok := f.presences[userID]
	if !ok {
		return discord.Presence{}, false
	}
	return discord.Presence{Status: status}, true
}

func (f *fakeCache) MemberPermissions(member discord.Member) discord.Permissions {
	if f.admins[member.User.ID] {
		return discord.PermissionAdministrator
	}
	return discord.PermissionSendMessages
}

func member(id snowflake.ID, username string, nick string, bot bool) discord.Member {
	m := discord.Member{User: discord.User{ID: id, Username: username, Bot: bot}}
	if nick != "" {
		m.Nick = &nick
	}
	return m
}

func TestRoster_Snapshot(t *testing.T) {
	const guildID = snowflake.ID(500)
	cache := &fakeCache{
		guild: &discord.Guild{ID: guildID, OwnerID: 1},
		members: []discord.Member{
			member(12, "carol", "", false),
			member(1, "owner", "", false),
			member(10, "alice", "Alice ✨", false),
			member(99, "robot", "", true),
			member(11, "bob", "", false),
		},
		presences: map[snowflake.ID]discord.OnlineStatus{
			1:  discord.OnlineStatusOnline,
			10: discord.OnlineStatusIdle,
			11: discord.OnlineStatusInvisible,
			12: discord.OnlineStatusDND,
			99: discord.OnlineStatusOnline,
		},
		admins: map[snowflake.ID]bool{12: true},
	}

	roster := NewRoster(cache, guildID, 16)
	snapshot, err := roster.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	if snapshot.OwnerID != 1 {
		t.Errorf("OwnerID = %d, want 1", snapshot.OwnerID)
	}
	if len(snapshot.Members) != 5 {
		t.Fatalf("got %d members, want 5", len(snapshot.Members))
	}
	for i := 1; i < len(snapshot.Members); i++ {
		if snapshot.Members[i-1].ID >= snapshot.Members[i].ID {
			t.Fatalf("members not sorted by id: %v", snapshot.Members)
		}
	}

	tests := []struct {
		id          snowflake.ID
		displayName string
		online      bool
		owner       bool
		admin       bool
		bot         bool
	}{
		{id: 1, displayName: "owner", online: true, owner: true},
		{id: 10, displayName: "Alice ✨", online: true},
		{id: 11, displayName: "bob", online: false},
		{id: 12, displayName: "carol", online: true, admin: true},
		{id: 99, displayName: "robot", online: true, bot: true},
	}
	for _, tt := range tests {
		got, ok := snapshot.Lookup(tt.id)
		if !ok {
			t.Errorf("member %d missing from snapshot", tt.id)
			continue
		}
		if got.DisplayName != tt.displayName || got.Online != tt.online || got.Owner != tt.owner ||
			got.Administrator != tt.admin || got.Bot != tt.bot {
			t.Errorf("member %d = %+v", tt.id, got)
		}
	}

	candidates := roulette.Candidates(snapshot.Members, snapshot.OwnerID)
	if len(candidates) != 1 || candidates[0].ID != 10 {
		t.Errorf("Candidates() = %+v, want only alice", candidates)
	}

	if names := roster.KnownNames(); len(names) != 5 {
		t.Errorf("KnownNames() = %v, want 5 names", names)
	}
}

func TestRoster_GuildNotReady(t *testing.T) {
	roster := NewRoster(&fakeCache{}, 500, 0)

	_, err := roster.Snapshot(context.Background())
	if !errors.Is(err, roulette.ErrRosterUnavailable) {
		t.Fatalf("Snapshot() error = %v, want ErrRosterUnavailable", err)
	}
}

type fakeMemberUpdater struct {
	guildID snowflake.ID
	userID  snowflake.ID
	update  discord.MemberUpdate
	err     error
}

func (f *fakeMemberUpdater) UpdateMember(guildID snowflake.ID, userID snowflake.ID, update discord.MemberUpdate, _ ...rest.RequestOpt) (*discord.Member, error) {
	f.guildID, f.userID, f.update = guildID, userID, update
	if f.err != nil {
		return nil, f.err
	}
	return &discord.Member{}, nil
}

func TestRestrictor_Restrict(t *testing.T) {
	updater := &fakeMemberUpdater{}
	restrictor := NewRestrictor(updater, 500)
	until := time.Date(2025, 3, 10, 9, 2, 0, 0, time.UTC)

	if err := restrictor.Restrict(context.Background(), 42, until, "roulette"); err != nil {
		t.Fatalf("Restrict() error = %v", err)
	}
	if updater.guildID != 500 || updater.userID != 42 {
		t.Errorf("UpdateMember called with guild %d user %d", updater.guildID, updater.userID)
	}
	want := discord.MemberUpdate{CommunicationDisabledUntil: json.NewNullablePtr(until)}
	if !reflect.DeepEqual(updater.update, want) {
		t.Errorf("UpdateMember() update = %+v, want %+v", updater.update, want)
	}

	// A later retry for the same spin keeps the original deadline.
	if err := restrictor.Restrict(context.Background(), 42, until, "roulette"); err != nil {
		t.Fatalf("Restrict() retry error = %v", err)
	}
	if !reflect.DeepEqual(updater.update, want) {
		t.Errorf("retry update = %+v, want %+v", updater.update, want)
	}

	updater.err = errors.New("missing permissions")
	if err := restrictor.Restrict(context.Background(), 42, until, "roulette"); err == nil {
		t.Error("Restrict() should surface the REST error")
	}
}
