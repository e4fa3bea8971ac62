package roulette

import (
	"reflect"
	"testing"
	"time"
)

func spin(member Identity, start time.Time, d time.Duration) HistoryEntry {
	return HistoryEntry{Member: member, StartedAt: start, EndsAt: start.Add(d)}
}

func TestView_Leaderboard(t *testing.T) {
	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	entries := []HistoryEntry{
		spin(Identified{ID: 1, DisplayName: "one"}, base, 120*time.Second),
		spin(Identified{ID: 2, DisplayName: "two"}, base.Add(time.Hour), 300*time.Second),
		spin(Identified{ID: 1, DisplayName: "one renamed"}, base.Add(2*time.Hour), 60*time.Second),
		spin(LegacyNamedOnly{DisplayName: "old"}, base.Add(3*time.Hour), 90*time.Second),
		spin(LegacyNamedOnly{DisplayName: "old"}, base.Add(4*time.Hour), 30*time.Second),
		{Member: LegacyNamedOnly{DisplayName: "broken"}, StartedAt: base},
		spin(LegacyNamedOnly{DisplayName: "negative"}, base, -time.Minute),
	}
	snapshot := Snapshot{Members: []Member{{ID: 2, DisplayName: "Two Now"}}}

	tests := []struct {
		name  string
		limit int
		want  []LeaderboardRow
	}{
		{
			name:  "top one",
			limit: 1,
			want: []LeaderboardRow{
				{Member: "Two Now", MemberKey: "2", TotalSeconds: 300, TotalMinutes: 5},
			},
		},
		{
			name:  "all groups",
			limit: 0,
			want: []LeaderboardRow{
				{Member: "Two Now", MemberKey: "2", TotalSeconds: 300, TotalMinutes: 5},
				{Member: "one renamed", MemberKey: "1", TotalSeconds: 180, TotalMinutes: 3},
				{Member: "old", MemberKey: "old", TotalSeconds: 120, TotalMinutes: 2},
			},
		},
	}

	v := NewView(time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Leaderboard(entries, tt.limit, snapshot)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Leaderboard() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestView_LeaderboardKeepsIdsAndNamesApart(t *testing.T) {
	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	entries := []HistoryEntry{
		spin(Identified{ID: 123, DisplayName: "numbers"}, base, 120*time.Second),
		spin(LegacyNamedOnly{DisplayName: "123"}, base.Add(time.Hour), 120*time.Second),
	}

	got := NewView(time.UTC).Leaderboard(entries, 0, Snapshot{})
	want := []LeaderboardRow{
		{Member: "numbers", MemberKey: "123", TotalSeconds: 120, TotalMinutes: 2},
		{Member: "123", MemberKey: "123", TotalSeconds: 120, TotalMinutes: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Leaderboard() = %+v, want %+v", got, want)
	}
}

func TestView_ActiveFlag(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	v := NewView(time.UTC)

	tests := []struct {
		name  string
		entry HistoryEntry
		want  bool
	}{
		{name: "ended", entry: spin(Identified{ID: 1, DisplayName: "a"}, now.Add(-3*time.Minute), 2*time.Minute), want: false},
		{name: "running", entry: spin(Identified{ID: 1, DisplayName: "a"}, now.Add(-time.Minute), 2*time.Minute), want: true},
		{name: "unknown end", entry: HistoryEntry{Member: LegacyNamedOnly{DisplayName: "a"}, StartedAt: now}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.Entry(tt.entry, now).Active; got != tt.want {
				t.Errorf("Entry().Active = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestView_Recent(t *testing.T) {
	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	var entries []HistoryEntry
	for i := 0; i < 8; i++ {
		entries = append(entries, spin(Identified{ID: 1, DisplayName: "a"}, base.Add(time.Duration(i)*time.Hour), 2*time.Minute))
	}

	got := NewView(time.UTC).Recent(entries, 5, base)
	if len(got) != 5 {
		t.Fatalf("Recent() returned %d entries, want 5", len(got))
	}
	if got[0].Time != "2025-03-10T13:00:00Z" || got[4].Time != "2025-03-10T17:00:00Z" {
		t.Errorf("Recent() = %s .. %s", got[0].Time, got[4].Time)
	}
	if got[0].MemberID == nil || *got[0].MemberID != "1" {
		t.Errorf("Recent()[0].MemberID = %v, want 1", got[0].MemberID)
	}
}
