package rollout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/cognicore/cafeteria/internal/metrics"
	"github.com/cognicore/cafeteria/pkg/cafeteria/internalerr"
	"github.com/cognicore/cafeteria/pkg/cafeteria/store"
	"github.com/cognicore/cafeteria/pkg/cafeteria/store/memstore"
)

const (
	day1 = "2026-10-16"
	day2 = "2026-10-17"
)

func seed(t *testing.T) *memstore.Store {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	items := []store.FoodItem{
		{ID: 7, Name: "Biryani", Available: true, Slots: []store.MealSlot{store.Lunch}},
		{ID: 9, Name: "Pulao", Available: true, Slots: []store.MealSlot{store.Lunch}},
		{ID: 11, Name: "Poha", Available: false, Slots: []store.MealSlot{store.Breakfast}},
	}
	for _, it := range items {
		if _, err := st.UpsertItem(ctx, it); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return st
}

func votesByItem(t *testing.T, m *Machine, day string) map[int64]int {
	t.Helper()
	rows, err := m.Menu(context.Background(), day)
	if err != nil {
		t.Fatalf("menu: %v", err)
	}
	out := map[int64]int{}
	for _, r := range rows {
		out[r.FoodItemID] = r.Votes
	}
	return out
}

func TestRollOutOncePerDay(t *testing.T) {
	ctx := context.Background()
	mt := metrics.New()
	m := New(seed(t), WithMetrics(mt))

	rolled, err := m.IsRolledOut(ctx, day1)
	if err != nil || rolled {
		t.Fatalf("fresh day should not be rolled out (rolled=%v err=%v)", rolled, err)
	}

	items, err := m.RollOut(ctx, day1, []int64{7, 9})
	if err != nil {
		t.Fatalf("RollOut: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(items))
	}
	for _, it := range items {
		if it.Votes != 0 || it.Date != day1 {
			t.Errorf("unexpected row %+v", it)
		}
	}

	_, err = m.RollOut(ctx, day1, []int64{7})
	if !errors.Is(err, internalerr.ErrAlreadyRolledOut) {
		t.Fatalf("second rollout err = %v, want ErrAlreadyRolledOut", err)
	}
	if !internalerr.IsIdempotent(err) {
		t.Error("already rolled out should be an idempotency signal")
	}
	if got := votesByItem(t, m, day1); len(got) != 2 {
		t.Errorf("menu changed after rejected rollout: %v", got)
	}

	if got := testutil.ToFloat64(mt.Rollouts.WithLabelValues("already_rolled_out")); got != 1 {
		t.Errorf("rejected rollouts = %v", got)
	}

	// a new day starts fresh
	if _, err := m.RollOut(ctx, day2, []int64{9}); err != nil {
		t.Errorf("next day rollout: %v", err)
	}
}

func TestRollOutValidation(t *testing.T) {
	ctx := context.Background()
	m := New(seed(t))

	tests := []struct {
		name string
		day  string
		ids  []int64
		want error
	}{
		{"empty selection", day1, nil, internalerr.ErrInvalidInput},
		{"unknown item", day1, []int64{7, 404}, internalerr.ErrNotFound},
		{"unavailable item", day1, []int64{11}, internalerr.ErrInvalidInput},
		{"bad day", "17/10/2026", []int64{7}, internalerr.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.RollOut(ctx, tt.day, tt.ids); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	rolled, _ := m.IsRolledOut(ctx, day1)
	if rolled {
		t.Error("failed rollouts must not mark the day")
	}
}

func TestVoteScopedToDay(t *testing.T) {
	ctx := context.Background()
	m := New(seed(t))

	if _, err := m.RollOut(ctx, day1, []int64{7, 9}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.RollOut(ctx, day2, []int64{9}); err != nil {
		t.Fatal(err)
	}

	// 7 was only on yesterday's menu
	out, err := m.Vote(ctx, day2, "", []int64{7, 9})
	if err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if out[0].Result != store.VoteUnmatched || out[1].Result != store.VoteCounted {
		t.Errorf("unexpected outcomes %+v", out)
	}
	if Counted(out) != 1 {
		t.Errorf("Counted = %d", Counted(out))
	}

	if got := votesByItem(t, m, day1); got[7] != 0 || got[9] != 0 {
		t.Errorf("stale vote touched yesterday's menu: %v", got)
	}
	if got := votesByItem(t, m, day2); got[9] != 1 {
		t.Errorf("today's votes = %v", got)
	}
}

func TestVoteAnonymousCountsRepeats(t *testing.T) {
	ctx := context.Background()
	m := New(seed(t))
	if _, err := m.RollOut(ctx, day1, []int64{7, 9}); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Vote(ctx, day1, "", []int64{7, 7, 9}); err != nil {
		t.Fatal(err)
	}
	got := votesByItem(t, m, day1)
	if got[7] != 2 || got[9] != 1 {
		t.Errorf("votes = %v, want 7:2 9:1", got)
	}
}

func TestVoteDedupPerEmployee(t *testing.T) {
	ctx := context.Background()
	mt := metrics.New()
	m := New(seed(t), WithMetrics(mt))
	if _, err := m.RollOut(ctx, day1, []int64{7, 9}); err != nil {
		t.Fatal(err)
	}

	out, err := m.Vote(ctx, day1, "emp-1", []int64{7, 7})
	if err != nil {
		t.Fatal(err)
	}
	if out[1].Result != store.VoteDuplicate {
		t.Errorf("second ballot result = %v", out[1].Result)
	}
	if _, err := m.Vote(ctx, day1, "emp-2", []int64{7}); err != nil {
		t.Fatal(err)
	}

	if got := votesByItem(t, m, day1); got[7] != 2 {
		t.Errorf("votes for 7 = %d, want 2", got[7])
	}
	if got := testutil.ToFloat64(mt.Votes.WithLabelValues("duplicate")); got != 1 {
		t.Errorf("duplicate counter = %v", got)
	}
}

func TestConcurrentVotesAreNotLost(t *testing.T) {
	ctx := context.Background()
	m := New(seed(t))
	if _, err := m.RollOut(ctx, day1, []int64{7}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Vote(ctx, day1, "", []int64{7}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if got := votesByItem(t, m, day1); got[7] != 40 {
		t.Errorf("votes = %d, want 40", got[7])
	}
}
