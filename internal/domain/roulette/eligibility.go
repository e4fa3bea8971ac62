package roulette

import "github.com/disgoorg/snowflake/v2"

// Candidates returns the members that may be picked by a spin: online humans
// that are neither the guild owner nor administrators. An empty result is a
// normal outcome.
func Candidates(members []Member, ownerID snowflake.ID) []Member {
	candidates := make([]Member, 0, len(members))
	for _, m := range members {
		if m.Bot || !m.Online || m.Owner || m.Administrator {
			continue
		}
		if ownerID != 0 && m.ID == ownerID {
			continue
		}
		candidates = append(candidates, m)
	}
	return candidates
}

// OnlineCount counts online humans, staff included.
func OnlineCount(members []Member) int {
	count := 0
	for _, m := range members {
		if !m.Bot && m.Online {
			count++
		}
	}
	return count
}
