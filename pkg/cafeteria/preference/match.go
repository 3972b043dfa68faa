// Package preference reorders a day's menu for one employee's profile.
// Ordering is advisory and never feeds back into votes or finals.
package preference

import (
	"sort"
	"strings"

	"github.com/cognicore/cafeteria/pkg/cafeteria/store"
)

// MaxScore is the best possible match.
const MaxScore = 4

// Candidate pairs a rolled-out row with its catalog item.
type Candidate struct {
	Rolled store.RolledOutItem
	Item   store.FoodItem
}

// Ranked is a candidate with its match score.
type Ranked struct {
	Candidate
	Score int
}

// Score counts matching dietary type, spice level and cuisine (case
// insensitive) plus an exact sweet-tooth match. Items without a profile
// score 0.
func Score(item store.FoodItem, p store.PreferenceProfile) int {
	if item.Profile == nil {
		return 0
	}
	score := 0
	if sameFold(item.Profile.DietaryType, p.DietaryPreference) {
		score++
	}
	if sameFold(item.Profile.SpiceLevel, p.SpiceLevel) {
		score++
	}
	if sameFold(item.Profile.CuisineType, p.CuisineType) {
		score++
	}
	if item.Profile.IsSweet == p.SweetTooth {
		score++
	}
	return score
}

// sameFold treats two unset fields as a match.
func sameFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Match returns candidates sorted by descending score. Equal scores keep
// their input order.
func Match(candidates []Candidate, p store.PreferenceProfile) []Ranked {
	out := make([]Ranked, len(candidates))
	for i, c := range candidates {
		out[i] = Ranked{Candidate: c, Score: Score(c.Item, p)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
