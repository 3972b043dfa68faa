package rank

import (
	"sort"

	"github.com/cognicore/cafeteria/pkg/cafeteria/feedback"
	"github.com/cognicore/cafeteria/pkg/cafeteria/store"
)

// Weights defines the linear blend of rating and sentiment.
type Weights struct {
	Rating    float64
	Sentiment float64
}

// DefaultWeights weighs rating and sentiment equally.
func DefaultWeights() Weights {
	return Weights{Rating: 0.5, Sentiment: 0.5}
}

// Ranker orders catalog items for a meal slot.
type Ranker struct {
	weights Weights
}

// NewRanker creates a ranker with the given weights
func NewRanker(w Weights) *Ranker {
	return &Ranker{weights: w}
}

// ScoreBreakdown provides detailed scoring information
type ScoreBreakdown struct {
	Rating    float64
	Sentiment float64
	Total     float64
}

// Recommendation is one ranked item.
type Recommendation struct {
	Item      store.FoodItem
	Stat      feedback.Stat
	Breakdown ScoreBreakdown
}

// Score computes the weighted blend for one aggregate.
func (r *Ranker) Score(st feedback.Stat) ScoreBreakdown {
	b := ScoreBreakdown{
		Rating:    r.weights.Rating * st.AvgRating(),
		Sentiment: r.weights.Sentiment * st.AvgSentiment(),
	}
	b.Total = b.Rating + b.Sentiment
	return b
}

// Rank returns at most n available items valid for slot, best first.
// Equal scores are ordered by item ID ascending. Items missing from
// aggregates score as if they had no feedback.
func (r *Ranker) Rank(catalog []store.FoodItem, aggregates map[int64]feedback.Stat, slot store.MealSlot, n int) []Recommendation {
	if n <= 0 {
		return nil
	}

	var recs []Recommendation
	for _, item := range catalog {
		if !item.Available || !item.ServesSlot(slot) {
			continue
		}
		st, ok := aggregates[item.ID]
		if !ok {
			st = feedback.Stat{FoodItemID: item.ID}
		}
		recs = append(recs, Recommendation{
			Item:      item,
			Stat:      st,
			Breakdown: r.Score(st),
		})
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Breakdown.Total != recs[j].Breakdown.Total {
			return recs[i].Breakdown.Total > recs[j].Breakdown.Total
		}
		return recs[i].Item.ID < recs[j].Item.ID
	})

	if len(recs) > n {
		recs = recs[:n]
	}
	return recs
}

// IDs returns the item IDs of recs in order.
func IDs(recs []Recommendation) []int64 {
	ids := make([]int64, len(recs))
	for i, rec := range recs {
		ids[i] = rec.Item.ID
	}
	return ids
}
