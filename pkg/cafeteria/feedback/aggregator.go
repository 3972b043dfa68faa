package feedback

import (
	"strings"

	"github.com/cognicore/cafeteria/pkg/cafeteria/sentiment"
	"github.com/cognicore/cafeteria/pkg/cafeteria/store"
)

// NoComments is the summary reported for items without any comment text.
const NoComments = "No comments"

// Summary limits defaults.
const (
	DefaultMaxPositive = 3
	DefaultMaxNegative = 3
	DefaultSeparator   = " | "
)

// Stat is the aggregate of every feedback row for one food item.
// Count always equals the number of rows folded in.
type Stat struct {
	FoodItemID     int64
	TotalRating    float64
	TotalSentiment float64
	Count          int
	Comments       []string // non-blank comments in arrival order
	Summary        string
}

// AvgRating returns TotalRating/Count, or 0 without feedback.
func (s Stat) AvgRating() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.TotalRating / float64(s.Count)
}

// AvgSentiment returns TotalSentiment/Count, or 0 without feedback.
func (s Stat) AvgSentiment() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.TotalSentiment / float64(s.Count)
}

// SummaryOptions controls how comment summaries are assembled.
type SummaryOptions struct {
	MaxPositive int
	MaxNegative int
	Separator   string
}

// DefaultSummaryOptions returns three positive, three negative, " | ".
func DefaultSummaryOptions() SummaryOptions {
	return SummaryOptions{
		MaxPositive: DefaultMaxPositive,
		MaxNegative: DefaultMaxNegative,
		Separator:   DefaultSeparator,
	}
}

// Aggregator folds feedback snapshots into per-item statistics.
type Aggregator struct {
	scorer *sentiment.Scorer
	opts   SummaryOptions
}

// NewAggregator creates an aggregator. Zero-valued options fall back to the
// defaults.
func NewAggregator(scorer *sentiment.Scorer, opts SummaryOptions) *Aggregator {
	def := DefaultSummaryOptions()
	if opts.MaxPositive <= 0 {
		opts.MaxPositive = def.MaxPositive
	}
	if opts.MaxNegative <= 0 {
		opts.MaxNegative = def.MaxNegative
	}
	if opts.Separator == "" {
		opts.Separator = def.Separator
	}
	return &Aggregator{scorer: scorer, opts: opts}
}

type accum struct {
	stat   Stat
	scores []float64 // parallel to stat.Comments
}

// Aggregate computes statistics for every catalog item. Items without
// feedback get a zero Stat; feedback for items outside the catalog is
// ignored. A nil catalog aggregates every item that has feedback.
func (a *Aggregator) Aggregate(catalog []store.FoodItem, feedback []store.Feedback) map[int64]Stat {
	acc := make(map[int64]*accum, len(catalog))
	for _, item := range catalog {
		acc[item.ID] = &accum{stat: Stat{FoodItemID: item.ID}}
	}

	for _, fb := range feedback {
		entry, ok := acc[fb.FoodItemID]
		if !ok {
			if catalog != nil {
				continue
			}
			entry = &accum{stat: Stat{FoodItemID: fb.FoodItemID}}
			acc[fb.FoodItemID] = entry
		}

		score := a.scorer.Score(fb.Comment)

		entry.stat.Count++
		entry.stat.TotalRating += float64(fb.Rating)
		entry.stat.TotalSentiment += score
		if strings.TrimSpace(fb.Comment) != "" {
			entry.stat.Comments = append(entry.stat.Comments, fb.Comment)
			entry.scores = append(entry.scores, score)
		}
	}

	out := make(map[int64]Stat, len(acc))
	for id, entry := range acc {
		entry.stat.Summary = a.summarize(entry.stat.Comments, entry.scores)
		out[id] = entry.stat
	}
	return out
}

// summarize prefers up to MaxPositive positive comments followed by up to
// MaxNegative negative ones. Without either it falls back to the first
// MaxPositive comments.
func (a *Aggregator) summarize(comments []string, scores []float64) string {
	if len(comments) == 0 {
		return NoComments
	}

	var positive, negative []string
	for i, c := range comments {
		switch {
		case scores[i] > 0:
			positive = append(positive, c)
		case scores[i] < 0:
			negative = append(negative, c)
		}
	}

	picked := append(limit(positive, a.opts.MaxPositive), limit(negative, a.opts.MaxNegative)...)
	if len(picked) == 0 {
		picked = limit(comments, a.opts.MaxPositive)
	}
	return strings.Join(picked, a.opts.Separator)
}

func limit(in []string, n int) []string {
	if len(in) > n {
		return in[:n]
	}
	return in
}
