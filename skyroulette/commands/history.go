package commands

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"
	"github.com/sahilm/fuzzy"

	"github.com/ThomasByr/skyroulette/internal/domain/roulette"
	"github.com/ThomasByr/skyroulette/skyroulette"
)

const maxAutocompleteChoices = 25

var History = discord.SlashCommandCreate{
	Name:        "history",
	Description: "📜 Browse every spin of the wheel",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:         "member",
			Description:  "Only show the spins that landed on this member",
			Required:     false,
			Autocomplete: true,
		},
	},
}

func HistoryHandler(b *skyroulette.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		entries := b.Service.History().History
		member := strings.TrimSpace(e.SlashCommandInteractionData().String("member"))
		if member != "" {
			entries = filterEntries(entries, member)
		}

		if len(entries) == 0 {
			embed := discord.NewEmbedBuilder().
				SetTitle("📜 Spin history").
				SetDescription("No spin recorded yet.").
				SetColor(embedColor).
				Build()
			return e.CreateMessage(embedMessage(embed, true))
		}

		slices.Reverse(entries)
		totalPages := (len(entries) + entriesPerPage - 1) / entriesPerPage

		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				start := page * entriesPerPage
				end := min(start+entriesPerPage, len(entries))

				var description strings.Builder
				for i, entry := range entries[start:end] {
					description.WriteString(fmt.Sprintf("`#%d` %s\n", len(entries)-start-i, formatEntry(entry)))
				}

				embed.
					SetTitle("📜 Spin history").
					SetDescription(description.String()).
					SetColor(embedColor).
					SetFooter(fmt.Sprintf("Page %d/%d • %d spins", page+1, totalPages, len(entries)), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}

// HistoryAutocomplete suggests members that appear in the history or were
// seen by the roster, ranked by fuzzy match on the typed text.
func HistoryAutocomplete(b *skyroulette.Bot) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) error {
		focused := e.Data.Focused()
		if focused.Name != "member" {
			return e.AutocompleteResult(nil)
		}

		var query string
		if focused.Value != nil {
			if err := json.Unmarshal(focused.Value, &query); err != nil {
				return e.AutocompleteResult(nil)
			}
		}

		var known []string
		if b.Roster != nil {
			known = b.Roster.KnownNames()
		}
		options := rankMembers(memberOptions(b.Service.History().History, known), strings.TrimSpace(query))

		choices := make([]discord.AutocompleteChoice, 0, len(options))
		for _, option := range options {
			choices = append(choices, discord.AutocompleteChoiceString{
				Name:  option.Name,
				Value: option.Value,
			})
		}
		return e.AutocompleteResult(choices)
	}
}

func filterEntries(entries []roulette.EntryView, member string) []roulette.EntryView {
	var filtered []roulette.EntryView
	for _, entry := range entries {
		if (entry.MemberID != nil && *entry.MemberID == member) || strings.EqualFold(entry.Member, member) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

type memberOption struct {
	Name  string
	Value string
}

// memberOptionList implements fuzzy.Source
type memberOptionList []memberOption

func (l memberOptionList) String(i int) string { return l[i].Name }
func (l memberOptionList) Len() int            { return len(l) }

// memberOptions lists each distinct member once. Identified members are
// keyed by id and shown under their latest name.
func memberOptions(entries []roulette.EntryView, known []string) memberOptionList {
	byValue := make(map[string]int)
	names := make(map[string]bool)
	var options memberOptionList

	add := func(name, value string) {
		if i, ok := byValue[value]; ok {
			options[i].Name = name
			return
		}
		byValue[value] = len(options)
		options = append(options, memberOption{Name: name, Value: value})
	}

	for _, entry := range entries {
		if entry.Member == "" {
			continue
		}
		value := entry.Member
		if entry.MemberID != nil {
			value = *entry.MemberID
		}
		add(entry.Member, value)
		names[strings.ToLower(entry.Member)] = true
	}
	for _, name := range known {
		if name == "" || names[strings.ToLower(name)] {
			continue
		}
		add(name, name)
		names[strings.ToLower(name)] = true
	}
	return options
}

func rankMembers(options memberOptionList, query string) []memberOption {
	if query == "" {
		sorted := slices.Clone(options)
		slices.SortFunc(sorted, func(a, b memberOption) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})
		return sorted[:min(len(sorted), maxAutocompleteChoices)]
	}

	matches := fuzzy.FindFrom(query, options)
	ranked := make([]memberOption, 0, min(len(matches), maxAutocompleteChoices))
	for _, match := range matches {
		if len(ranked) == maxAutocompleteChoices {
			break
		}
		ranked = append(ranked, options[match.Index])
	}
	return ranked
}

// formatTime renders a stored timestamp as a Discord relative timestamp.
func formatTime(value string) string {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return "unknown time"
	}
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}
