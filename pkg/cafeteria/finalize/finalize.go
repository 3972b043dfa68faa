// Package finalize reduces a day's voted menu to one winner per meal slot.
package finalize

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/cognicore/cafeteria/internal/metrics"
	"github.com/cognicore/cafeteria/pkg/cafeteria/ids"
	"github.com/cognicore/cafeteria/pkg/cafeteria/internalerr"
	"github.com/cognicore/cafeteria/pkg/cafeteria/store"
)

// Select picks, for every meal slot, the rolled-out item with the most votes.
// Ties go to the lowest food item ID. Slots without candidates are omitted.
// Rows whose food item is missing from catalog are ignored. The result is
// ordered breakfast, lunch, dinner and carries no IDs.
func Select(rolled []store.RolledOutItem, catalog map[int64]store.FoodItem) []store.FinalItem {
	var finals []store.FinalItem
	for _, slot := range store.MealSlots {
		var (
			best  store.RolledOutItem
			found bool
		)
		for _, r := range rolled {
			item, ok := catalog[r.FoodItemID]
			if !ok || !item.ServesSlot(slot) {
				continue
			}
			if !found || beats(r, best) {
				best, found = r, true
			}
		}
		if !found {
			continue
		}
		finals = append(finals, store.FinalItem{
			RolledOutItemID: best.ID,
			FoodItemID:      best.FoodItemID,
			Slot:            slot,
			Votes:           best.Votes,
			Date:            best.Date,
		})
	}
	return finals
}

func beats(a, b store.RolledOutItem) bool {
	if a.Votes != b.Votes {
		return a.Votes > b.Votes
	}
	return a.FoodItemID < b.FoodItemID
}

// Finalizer persists the winners for a day exactly once.
type Finalizer struct {
	store   store.Store
	clock   clockwork.Clock
	ids     *ids.Generator
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// Option configures a Finalizer.
type Option func(*Finalizer)

func WithLogger(l zerolog.Logger) Option {
	return func(f *Finalizer) { f.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Finalizer) { f.metrics = m }
}

// WithClock sets the clock used to stamp final item IDs.
func WithClock(c clockwork.Clock) Option {
	return func(f *Finalizer) { f.clock = c }
}

// New creates a Finalizer backed by st.
func New(st store.Store, opts ...Option) *Finalizer {
	f := &Finalizer{
		store: st,
		clock: clockwork.NewRealClock(),
		ids:   ids.NewGenerator(),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Finalize selects and stores the final menu for day. It fails with
// internalerr.ErrAlreadyFinalized when day already has one. A day with
// nothing rolled out yields an empty menu and stays open for finalization.
func (f *Finalizer) Finalize(ctx context.Context, day string) ([]store.FinalItem, error) {
	if _, err := store.ParseDay(day); err != nil {
		return nil, internalerr.Invalid("day %q: %v", day, err)
	}

	done, err := f.store.HasFinal(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("check final: %w", err)
	}
	if done {
		f.alreadyFinalized(day)
		return nil, internalerr.ErrAlreadyFinalized
	}

	rolled, err := f.store.RolledOutItems(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("load rollout: %w", err)
	}
	if len(rolled) == 0 {
		f.metrics.FinalizeAttempt("no_rollout", 0)
		f.log.Info().Str("day", day).Msg("nothing rolled out to finalize")
		return nil, nil
	}

	items, err := f.store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	catalog := make(map[int64]store.FoodItem, len(items))
	for _, it := range items {
		catalog[it.ID] = it
	}

	finals := Select(rolled, catalog)
	now := f.clock.Now()
	for i := range finals {
		finals[i].ID = f.ids.New(now)
	}

	err = f.store.CreateFinals(ctx, day, finals)
	if errors.Is(err, internalerr.ErrAlreadyFinalized) {
		f.alreadyFinalized(day)
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("store finals: %w", err)
	}

	f.metrics.FinalizeAttempt("created", len(finals))
	f.log.Info().Str("day", day).Int("slots", len(finals)).Msg("menu finalized")
	return finals, nil
}

func (f *Finalizer) alreadyFinalized(day string) {
	f.metrics.FinalizeAttempt("already_finalized", 0)
	f.log.Info().Str("day", day).Msg("menu already finalized")
}

// Menu returns the stored final menu for day in slot order.
func (f *Finalizer) Menu(ctx context.Context, day string) ([]store.FinalItem, error) {
	finals, err := f.store.FinalItems(ctx, day)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(finals, func(i, j int) bool {
		return slotIndex(finals[i].Slot) < slotIndex(finals[j].Slot)
	})
	return finals, nil
}

func slotIndex(s store.MealSlot) int {
	for i, slot := range store.MealSlots {
		if slot == s {
			return i
		}
	}
	return len(store.MealSlots)
}
