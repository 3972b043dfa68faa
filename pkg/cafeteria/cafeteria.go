// Package cafeteria ties the menu lifecycle together: feedback intake,
// recommendations, the daily rollout and vote, finalization, monthly
// discard curation and per-employee menu ordering.
package cafeteria

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/cognicore/cafeteria/internal/logging"
	"github.com/cognicore/cafeteria/internal/metrics"
	"github.com/cognicore/cafeteria/pkg/cafeteria/discard"
	"github.com/cognicore/cafeteria/pkg/cafeteria/feedback"
	"github.com/cognicore/cafeteria/pkg/cafeteria/finalize"
	"github.com/cognicore/cafeteria/pkg/cafeteria/ids"
	"github.com/cognicore/cafeteria/pkg/cafeteria/internalerr"
	"github.com/cognicore/cafeteria/pkg/cafeteria/preference"
	"github.com/cognicore/cafeteria/pkg/cafeteria/rank"
	"github.com/cognicore/cafeteria/pkg/cafeteria/rollout"
	"github.com/cognicore/cafeteria/pkg/cafeteria/sentiment"
	"github.com/cognicore/cafeteria/pkg/cafeteria/store"
)

// DefaultCount is the recommendation list length when none is requested.
const DefaultCount = 5

// Engine is the main cafeteria facade
type Engine struct {
	store        store.Store
	clock        clockwork.Clock
	aggregator   *feedback.Aggregator
	ranker       *rank.Ranker
	rollout      *rollout.Machine
	finalizer    *finalize.Finalizer
	curator      *discard.Curator
	notifier     Notifier
	log          zerolog.Logger
	metrics      *metrics.Metrics
	defaultCount int
}

// Options configures an Engine. Only Store is required.
type Options struct {
	Store            store.Store
	Scorer           *sentiment.Scorer // nil uses the default lexicon
	Clock            clockwork.Clock   // nil uses the wall clock
	Weights          rank.Weights      // zero uses rank.DefaultWeights
	SummaryOptions   feedback.SummaryOptions
	DiscardThreshold float64 // zero uses discard.DefaultThreshold
	DefaultCount     int
	Notifier         Notifier
	Logger           *zerolog.Logger // nil uses the global logger
	Metrics          *metrics.Metrics
}

// New creates an Engine with the given dependencies
func New(opts Options) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	scorer := opts.Scorer
	if scorer == nil {
		scorer = sentiment.NewScorer(sentiment.DefaultLexicon())
	}
	weights := opts.Weights
	if weights == (rank.Weights{}) {
		weights = rank.DefaultWeights()
	}
	count := opts.DefaultCount
	if count <= 0 {
		count = DefaultCount
	}
	base := logging.Logger()
	if opts.Logger != nil {
		base = *opts.Logger
	}
	log := base.With().Str("component", "engine").Logger()
	notifier := opts.Notifier
	if notifier == nil {
		notifier = LogNotifier{Log: log}
	}

	agg := feedback.NewAggregator(scorer, opts.SummaryOptions)
	machine := rollout.New(opts.Store,
		rollout.WithLogger(base.With().Str("component", "rollout").Logger()),
		rollout.WithMetrics(opts.Metrics))
	finalizer := finalize.New(opts.Store,
		finalize.WithClock(clock),
		finalize.WithLogger(base.With().Str("component", "finalize").Logger()),
		finalize.WithMetrics(opts.Metrics))
	curator := &discard.Curator{
		Store:      opts.Store,
		Aggregator: agg,
		Threshold:  opts.DiscardThreshold,
		Clock:      clock,
		IDs:        ids.NewGenerator(),
		Log:        base.With().Str("component", "discard").Logger(),
		Metrics:    opts.Metrics,
	}

	return &Engine{
		store:        opts.Store,
		clock:        clock,
		aggregator:   agg,
		ranker:       rank.NewRanker(weights),
		rollout:      machine,
		finalizer:    finalizer,
		curator:      curator,
		notifier:     notifier,
		log:          log,
		metrics:      opts.Metrics,
		defaultCount: count,
	}
}

// Close cleanly shuts down the engine
func (e *Engine) Close() error {
	return e.store.Close()
}

// Today returns the current day key.
func (e *Engine) Today() string {
	return store.DayKey(e.clock.Now())
}

// Period returns the current month key.
func (e *Engine) Period() string {
	return store.PeriodKey(e.clock.Now())
}

// AddItem validates and stores a catalog item.
func (e *Engine) AddItem(ctx context.Context, item store.FoodItem) (store.FoodItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	if err := internalerr.ValidateStruct(item); err != nil {
		return store.FoodItem{}, err
	}
	return e.store.UpsertItem(ctx, item)
}

// Items returns the catalog.
func (e *Engine) Items(ctx context.Context) ([]store.FoodItem, error) {
	return e.store.ListItems(ctx)
}

// SubmitFeedback validates and appends one feedback entry. The rating must
// be 1-5 and the food item must exist. A zero Date is set to now.
func (e *Engine) SubmitFeedback(ctx context.Context, f store.Feedback) error {
	f.EmployeeID = strings.TrimSpace(f.EmployeeID)
	f.Comment = strings.TrimSpace(f.Comment)
	if err := internalerr.ValidateStruct(f); err != nil {
		return err
	}
	if _, ok, err := e.store.GetItem(ctx, f.FoodItemID); err != nil {
		return fmt.Errorf("load item %d: %w", f.FoodItemID, err)
	} else if !ok {
		return fmt.Errorf("food item %d: %w", f.FoodItemID, internalerr.ErrNotFound)
	}
	if f.Date.IsZero() {
		f.Date = e.clock.Now()
	}
	if err := e.store.AddFeedback(ctx, f); err != nil {
		return fmt.Errorf("add feedback: %w", err)
	}
	e.metrics.FeedbackRecorded()
	return nil
}

// Aggregates computes per-item statistics from the current snapshots.
func (e *Engine) Aggregates(ctx context.Context) (map[int64]feedback.Stat, error) {
	items, rows, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return e.aggregator.Aggregate(items, rows), nil
}

func (e *Engine) snapshot(ctx context.Context) ([]store.FoodItem, []store.Feedback, error) {
	items, err := e.store.ListItems(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}
	rows, err := e.store.ListFeedback(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load feedback: %w", err)
	}
	return items, rows, nil
}

// Recommend ranks available items for slot. n <= 0 uses the configured
// default count.
func (e *Engine) Recommend(ctx context.Context, slot store.MealSlot, n int) ([]rank.Recommendation, error) {
	if _, err := store.ParseMealSlot(string(slot)); err != nil {
		return nil, internalerr.Invalid("%v", err)
	}
	if n <= 0 {
		n = e.defaultCount
	}
	items, rows, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	e.metrics.Recommended(string(slot))
	return e.ranker.Rank(items, e.aggregator.Aggregate(items, rows), slot, n), nil
}

// IsRolledOut reports whether today's menu has been rolled out.
func (e *Engine) IsRolledOut(ctx context.Context) (bool, error) {
	return e.rollout.IsRolledOut(ctx, e.Today())
}

// RollOut puts the selected items on today's voting menu.
func (e *Engine) RollOut(ctx context.Context, foodItemIDs []int64) ([]store.RolledOutItem, error) {
	day := e.Today()
	rows, err := e.rollout.RollOut(ctx, day, foodItemIDs)
	if err != nil {
		return nil, err
	}

	names, err := e.itemNames(ctx)
	if err == nil {
		list := make([]string, len(rows))
		for i, r := range rows {
			list[i] = names[r.FoodItemID]
		}
		e.notify(ctx, Event{
			Kind: EventRolledOut,
			Key:  day,
			Text: fmt.Sprintf("Menu for %s is open for voting: %s", day, strings.Join(list, ", ")),
		})
	}
	return rows, nil
}

// Vote records one employee's votes on today's menu. An empty employeeID
// votes anonymously with no per-employee dedup.
func (e *Engine) Vote(ctx context.Context, employeeID string, foodItemIDs []int64) ([]rollout.Outcome, error) {
	return e.rollout.Vote(ctx, e.Today(), strings.TrimSpace(employeeID), foodItemIDs)
}

// MenuEntry is a rolled-out row joined with its catalog item and feedback.
type MenuEntry struct {
	Rolled store.RolledOutItem
	Item   store.FoodItem
	Stat   feedback.Stat
}

// RolledOut returns today's voting menu with current vote counts.
func (e *Engine) RolledOut(ctx context.Context) ([]MenuEntry, error) {
	rows, err := e.rollout.Menu(ctx, e.Today())
	if err != nil {
		return nil, err
	}
	items, fbRows, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	byID := indexItems(items)
	stats := e.aggregator.Aggregate(items, fbRows)

	out := make([]MenuEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, MenuEntry{Rolled: r, Item: byID[r.FoodItemID], Stat: stats[r.FoodItemID]})
	}
	return out, nil
}

// Finalize picks today's winners. A second call fails with
// internalerr.ErrAlreadyFinalized. Without a rollout it returns no items.
func (e *Engine) Finalize(ctx context.Context) ([]store.FinalItem, error) {
	day := e.Today()
	finals, err := e.finalizer.Finalize(ctx, day)
	if err != nil || len(finals) == 0 {
		return finals, err
	}

	names, err := e.itemNames(ctx)
	if err == nil {
		parts := make([]string, len(finals))
		for i, f := range finals {
			parts[i] = fmt.Sprintf("%s: %s", f.Slot, names[f.FoodItemID])
		}
		e.notify(ctx, Event{
			Kind: EventFinalized,
			Key:  day,
			Text: fmt.Sprintf("Final menu for %s: %s", day, strings.Join(parts, ", ")),
		})
	}
	return finals, nil
}

// FinalMenu returns the stored final menu for day. An empty day means today.
func (e *Engine) FinalMenu(ctx context.Context, day string) ([]store.FinalItem, error) {
	if day == "" {
		day = e.Today()
	}
	if _, err := store.ParseDay(day); err != nil {
		return nil, internalerr.Invalid("day %q: %v", day, err)
	}
	return e.finalizer.Menu(ctx, day)
}

// CurateDiscards runs the monthly discard scan. Repeated calls in the same
// month return an empty result with AlreadyGenerated set.
func (e *Engine) CurateDiscards(ctx context.Context) (discard.Result, error) {
	res, err := e.curator.Curate(ctx)
	if err != nil || res.AlreadyGenerated {
		return res, err
	}
	if len(res.Candidates) > 0 {
		e.notify(ctx, Event{
			Kind: EventDiscards,
			Key:  res.Period,
			Text: fmt.Sprintf("%d item(s) flagged for discard in %s", len(res.Candidates), res.Period),
		})
	}
	return res, nil
}

// Discards returns the candidates stored for period. An empty period means
// the current month.
func (e *Engine) Discards(ctx context.Context, period string) ([]store.DiscardCandidate, error) {
	if period == "" {
		period = e.Period()
	}
	return e.store.DiscardsByPeriod(ctx, period)
}

// SetPreference validates and upserts an employee's profile.
func (e *Engine) SetPreference(ctx context.Context, p store.PreferenceProfile) error {
	p.EmployeeID = strings.TrimSpace(p.EmployeeID)
	if err := internalerr.ValidateStruct(p); err != nil {
		return err
	}
	return e.store.UpsertPreference(ctx, p)
}

// Preference returns an employee's profile.
func (e *Engine) Preference(ctx context.Context, employeeID string) (store.PreferenceProfile, bool, error) {
	return e.store.GetPreference(ctx, employeeID)
}

// PersonalizedMenu orders today's voting menu by how well each item fits
// the employee's profile. Without a profile every item scores 0 and the
// rollout order is kept. Nothing is stored.
func (e *Engine) PersonalizedMenu(ctx context.Context, employeeID string) ([]preference.Ranked, error) {
	rows, err := e.rollout.Menu(ctx, e.Today())
	if err != nil {
		return nil, err
	}
	items, err := e.store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	byID := indexItems(items)

	candidates := make([]preference.Candidate, 0, len(rows))
	for _, r := range rows {
		candidates = append(candidates, preference.Candidate{Rolled: r, Item: byID[r.FoodItemID]})
	}

	profile, ok, err := e.store.GetPreference(ctx, strings.TrimSpace(employeeID))
	if err != nil {
		return nil, fmt.Errorf("load preference: %w", err)
	}
	if !ok {
		out := make([]preference.Ranked, len(candidates))
		for i, c := range candidates {
			out[i] = preference.Ranked{Candidate: c}
		}
		return out, nil
	}
	return preference.Match(candidates, profile), nil
}

func (e *Engine) itemNames(ctx context.Context) (map[int64]string, error) {
	items, err := e.store.ListItems(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("load item names for notification")
		return nil, err
	}
	names := make(map[int64]string, len(items))
	for _, it := range items {
		names[it.ID] = it.Name
	}
	return names, nil
}

func (e *Engine) notify(ctx context.Context, ev Event) {
	if err := e.notifier.Notify(ctx, ev); err != nil {
		e.log.Warn().Err(err).Str("event", string(ev.Kind)).Str("key", ev.Key).Msg("notification failed")
	}
}

func indexItems(items []store.FoodItem) map[int64]store.FoodItem {
	m := make(map[int64]store.FoodItem, len(items))
	for _, it := range items {
		m[it.ID] = it
	}
	return m
}
