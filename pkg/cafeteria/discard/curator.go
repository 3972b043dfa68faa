// Package discard flags chronically low-rated items for retirement once per
// calendar month.
package discard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/cognicore/cafeteria/internal/metrics"
	"github.com/cognicore/cafeteria/pkg/cafeteria/feedback"
	"github.com/cognicore/cafeteria/pkg/cafeteria/ids"
	"github.com/cognicore/cafeteria/pkg/cafeteria/internalerr"
	"github.com/cognicore/cafeteria/pkg/cafeteria/store"
)

// DefaultThreshold is the average rating below which an item is flagged.
const DefaultThreshold = 2.0

// Candidates returns a candidate for every available item whose average
// rating is above zero and below threshold. Items without feedback average
// zero and are never flagged. Averages are rounded to two decimals and the
// result is ordered by food item ID.
func Candidates(catalog []store.FoodItem, aggregates map[int64]feedback.Stat, threshold float64) []store.DiscardCandidate {
	var out []store.DiscardCandidate
	for _, item := range catalog {
		if !item.Available {
			continue
		}
		st, ok := aggregates[item.ID]
		if !ok {
			continue
		}
		avg := st.AvgRating()
		if avg <= 0 || avg >= threshold {
			continue
		}
		out = append(out, store.DiscardCandidate{
			FoodItemID:       item.ID,
			AverageRating:    round2(avg),
			AverageSentiment: round2(st.AvgSentiment()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FoodItemID < out[j].FoodItemID })
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Curator runs the monthly discard scan.
type Curator struct {
	Store      store.Store
	Aggregator *feedback.Aggregator
	Threshold  float64
	Clock      clockwork.Clock
	IDs        *ids.Generator
	Log        zerolog.Logger
	Metrics    *metrics.Metrics
}

// Result summarizes one curation call.
type Result struct {
	Period           string
	Candidates       []store.DiscardCandidate
	AlreadyGenerated bool
}

// Curate flags candidates for the current month. When the month already has
// a run it returns an empty Result with AlreadyGenerated set and a nil error.
func (c *Curator) Curate(ctx context.Context) (Result, error) {
	if c.Store == nil || c.Aggregator == nil {
		return Result{}, fmt.Errorf("curator: %w", internalerr.ErrInvalidConfig)
	}
	clock := c.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	gen := c.IDs
	if gen == nil {
		gen = ids.NewGenerator()
	}
	threshold := c.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	now := clock.Now()
	res := Result{Period: store.PeriodKey(now)}

	done, err := c.Store.HasDiscardRun(ctx, res.Period)
	if err != nil {
		return res, fmt.Errorf("check discard run: %w", err)
	}
	if done {
		return c.already(res), nil
	}

	items, err := c.Store.ListItems(ctx)
	if err != nil {
		return res, fmt.Errorf("load catalog: %w", err)
	}
	rows, err := c.Store.ListFeedback(ctx)
	if err != nil {
		return res, fmt.Errorf("load feedback: %w", err)
	}

	candidates := Candidates(items, c.Aggregator.Aggregate(items, rows), threshold)
	day := store.DayKey(now)
	for i := range candidates {
		candidates[i].ID = gen.New(now)
		candidates[i].GeneratedOn = day
		candidates[i].Period = res.Period
	}

	err = c.Store.CreateDiscards(ctx, res.Period, candidates)
	if errors.Is(err, internalerr.ErrAlreadyGeneratedThisPeriod) {
		return c.already(res), nil
	}
	if err != nil {
		return res, fmt.Errorf("store discards: %w", err)
	}

	res.Candidates = candidates
	c.Metrics.DiscardRun("created", len(candidates))
	c.Log.Info().Str("period", res.Period).Int("candidates", len(candidates)).Msg("discard candidates generated")
	return res, nil
}

func (c *Curator) already(res Result) Result {
	res.AlreadyGenerated = true
	c.Metrics.DiscardRun("already_generated", 0)
	c.Log.Info().Str("period", res.Period).Msg("discard candidates already generated this period")
	return res
}
