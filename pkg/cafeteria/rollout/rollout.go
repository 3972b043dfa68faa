// Package rollout governs the once-per-day transition from candidate items
// to a voting menu and records votes against that menu.
package rollout

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cognicore/cafeteria/internal/metrics"
	"github.com/cognicore/cafeteria/pkg/cafeteria/internalerr"
	"github.com/cognicore/cafeteria/pkg/cafeteria/store"
)

// Machine drives the NotRolledOut -> RolledOut transition for a day.
type Machine struct {
	store   store.Store
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger. The default discards output.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Machine) { m.log = l }
}

// WithMetrics enables counters.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Machine) { m.metrics = mt }
}

// New creates a Machine backed by st.
func New(st store.Store, opts ...Option) *Machine {
	m := &Machine{store: st, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsRolledOut reports whether day already has a voting menu.
func (m *Machine) IsRolledOut(ctx context.Context, day string) (bool, error) {
	if _, err := store.ParseDay(day); err != nil {
		return false, internalerr.Invalid("day %q: %v", day, err)
	}
	return m.store.HasRollout(ctx, day)
}

// RollOut creates one zero-vote row per selected item for day. Every id must
// name an available catalog item. A second call for the same day fails with
// internalerr.ErrAlreadyRolledOut and leaves the existing menu untouched.
func (m *Machine) RollOut(ctx context.Context, day string, foodItemIDs []int64) ([]store.RolledOutItem, error) {
	rolled, err := m.IsRolledOut(ctx, day)
	if err != nil {
		return nil, err
	}
	if rolled {
		m.rejected(day)
		return nil, internalerr.ErrAlreadyRolledOut
	}

	if len(foodItemIDs) == 0 {
		return nil, internalerr.Invalid("no items selected for rollout")
	}
	for _, id := range foodItemIDs {
		item, ok, err := m.store.GetItem(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load item %d: %w", id, err)
		}
		if !ok {
			return nil, fmt.Errorf("food item %d: %w", id, internalerr.ErrNotFound)
		}
		if !item.Available {
			return nil, internalerr.Invalid("food item %d (%s) is not available", id, item.Name)
		}
	}

	items, err := m.store.CreateRollout(ctx, day, foodItemIDs)
	if errors.Is(err, internalerr.ErrAlreadyRolledOut) {
		// lost the race to a concurrent caller
		m.rejected(day)
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("create rollout: %w", err)
	}

	m.metrics.RolloutAttempt("created", len(items))
	m.log.Info().Str("day", day).Int("items", len(items)).Msg("menu rolled out")
	return items, nil
}

func (m *Machine) rejected(day string) {
	m.metrics.RolloutAttempt("already_rolled_out", 0)
	m.log.Info().Str("day", day).Msg("menu already rolled out")
}

// Menu returns the rolled-out items for day with their current votes.
func (m *Machine) Menu(ctx context.Context, day string) ([]store.RolledOutItem, error) {
	if _, err := store.ParseDay(day); err != nil {
		return nil, internalerr.Invalid("day %q: %v", day, err)
	}
	return m.store.RolledOutItems(ctx, day)
}

// Outcome is the result of one vote for one food item.
type Outcome struct {
	FoodItemID int64
	Result     store.VoteResult
}

// Vote casts one vote per id against day's menu. Ids without a matching
// row for day are skipped silently, so stale ids from an earlier menu never
// touch any count. Repeated ids are counted once per occurrence unless
// employeeID is set, in which case each employee counts once per item.
func (m *Machine) Vote(ctx context.Context, day, employeeID string, foodItemIDs []int64) ([]Outcome, error) {
	if _, err := store.ParseDay(day); err != nil {
		return nil, internalerr.Invalid("day %q: %v", day, err)
	}

	outcomes := make([]Outcome, 0, len(foodItemIDs))
	for _, id := range foodItemIDs {
		res, err := m.store.IncrementVote(ctx, day, employeeID, id)
		if err != nil {
			return outcomes, fmt.Errorf("vote for item %d: %w", id, err)
		}
		m.metrics.VoteProcessed(res.String())
		if res != store.VoteCounted {
			m.log.Debug().Str("day", day).Int64("item", id).Stringer("result", res).Msg("vote not counted")
		}
		outcomes = append(outcomes, Outcome{FoodItemID: id, Result: res})
	}
	return outcomes, nil
}

// Counted returns how many outcomes incremented a vote.
func Counted(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Result == store.VoteCounted {
			n++
		}
	}
	return n
}
