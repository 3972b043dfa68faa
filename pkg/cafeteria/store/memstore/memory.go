package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/cognicore/cafeteria/pkg/cafeteria/internalerr"
	"github.com/cognicore/cafeteria/pkg/cafeteria/store"
)

// Store is an in-memory implementation of store.Store for tests and dry runs.
// Every check-then-write transition runs under a single lock.
type Store struct {
	mu          sync.RWMutex
	nextItemID  int64
	nextFbID    int64
	nextRollID  int64
	items       map[int64]store.FoodItem
	feedback    []store.Feedback
	rollouts    map[string][]store.RolledOutItem // day -> rows
	ballots     map[ballotKey]struct{}
	finals      map[string][]store.FinalItem // day -> rows
	discardRuns map[string][]store.DiscardCandidate
	prefs       map[string]store.PreferenceProfile
}

type ballotKey struct {
	employee string
	item     int64
	day      string
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		nextItemID:  1,
		nextFbID:    1,
		nextRollID:  1,
		items:       make(map[int64]store.FoodItem),
		rollouts:    make(map[string][]store.RolledOutItem),
		ballots:     make(map[ballotKey]struct{}),
		finals:      make(map[string][]store.FinalItem),
		discardRuns: make(map[string][]store.DiscardCandidate),
		prefs:       make(map[string]store.PreferenceProfile),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertItem inserts an item when ID is zero, otherwise replaces it.
func (s *Store) UpsertItem(ctx context.Context, item store.FoodItem) (store.FoodItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == 0 {
		item.ID = s.nextItemID
	}
	if item.ID >= s.nextItemID {
		s.nextItemID = item.ID + 1
	}
	s.items[item.ID] = copyItem(item)
	return copyItem(item), nil
}

// GetItem returns an item by ID.
func (s *Store) GetItem(ctx context.Context, id int64) (store.FoodItem, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return store.FoodItem{}, false, nil
	}
	return copyItem(item), true, nil
}

// ListItems returns the catalog ordered by ID.
func (s *Store) ListItems(ctx context.Context) ([]store.FoodItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.FoodItem, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, copyItem(item))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AddFeedback appends a feedback row.
func (s *Store) AddFeedback(ctx context.Context, f store.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f.ID = s.nextFbID
	s.nextFbID++
	s.feedback = append(s.feedback, f)
	return nil
}

// ListFeedback returns feedback in insertion order.
func (s *Store) ListFeedback(ctx context.Context) ([]store.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Feedback, len(s.feedback))
	copy(out, s.feedback)
	return out, nil
}

// HasRollout reports whether day already has rolled-out rows.
func (s *Store) HasRollout(ctx context.Context, day string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rollouts[day]
	return ok, nil
}

// CreateRollout inserts one row per unique food item for day.
func (s *Store) CreateRollout(ctx context.Context, day string, foodItemIDs []int64) ([]store.RolledOutItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rollouts[day]; ok {
		return nil, internalerr.ErrAlreadyRolledOut
	}

	seen := make(map[int64]struct{}, len(foodItemIDs))
	rows := make([]store.RolledOutItem, 0, len(foodItemIDs))
	for _, id := range foodItemIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, store.RolledOutItem{
			ID:         s.nextRollID,
			FoodItemID: id,
			Date:       day,
		})
		s.nextRollID++
	}
	s.rollouts[day] = rows

	out := make([]store.RolledOutItem, len(rows))
	copy(out, rows)
	return out, nil
}

// RolledOutItems returns the rows for day ordered by ID.
func (s *Store) RolledOutItems(ctx context.Context, day string) ([]store.RolledOutItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.rollouts[day]
	out := make([]store.RolledOutItem, len(rows))
	copy(out, rows)
	return out, nil
}

// IncrementVote adds one vote to the (foodItemID, day) row.
func (s *Store) IncrementVote(ctx context.Context, day, employeeID string, foodItemID int64) (store.VoteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.rollouts[day]
	idx := -1
	for i := range rows {
		if rows[i].FoodItemID == foodItemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return store.VoteUnmatched, nil
	}

	if employeeID != "" {
		key := ballotKey{employee: employeeID, item: foodItemID, day: day}
		if _, voted := s.ballots[key]; voted {
			return store.VoteDuplicate, nil
		}
		s.ballots[key] = struct{}{}
	}
	rows[idx].Votes++
	return store.VoteCounted, nil
}

// HasFinal reports whether day has been finalized.
func (s *Store) HasFinal(ctx context.Context, day string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.finals[day]
	return ok, nil
}

// CreateFinals stores the final menu for day.
func (s *Store) CreateFinals(ctx context.Context, day string, finals []store.FinalItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.finals[day]; ok {
		return internalerr.ErrAlreadyFinalized
	}
	slots := make(map[store.MealSlot]struct{}, len(finals))
	for _, f := range finals {
		if _, dup := slots[f.Slot]; dup {
			return internalerr.ErrDuplicate
		}
		slots[f.Slot] = struct{}{}
	}
	rows := make([]store.FinalItem, len(finals))
	copy(rows, finals)
	s.finals[day] = rows
	return nil
}

// FinalItems returns the final menu for day.
func (s *Store) FinalItems(ctx context.Context, day string) ([]store.FinalItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.finals[day]
	out := make([]store.FinalItem, len(rows))
	copy(out, rows)
	return out, nil
}

// HasDiscardRun reports whether period already has a curation run.
func (s *Store) HasDiscardRun(ctx context.Context, period string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.discardRuns[period]
	return ok, nil
}

// CreateDiscards records a curation run for period.
func (s *Store) CreateDiscards(ctx context.Context, period string, candidates []store.DiscardCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.discardRuns[period]; ok {
		return internalerr.ErrAlreadyGeneratedThisPeriod
	}
	rows := make([]store.DiscardCandidate, len(candidates))
	copy(rows, candidates)
	s.discardRuns[period] = rows
	return nil
}

// DiscardsByPeriod returns the candidates generated in period.
func (s *Store) DiscardsByPeriod(ctx context.Context, period string) ([]store.DiscardCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.discardRuns[period]
	out := make([]store.DiscardCandidate, len(rows))
	copy(out, rows)
	return out, nil
}

// UpsertPreference stores an employee's profile.
func (s *Store) UpsertPreference(ctx context.Context, p store.PreferenceProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[p.EmployeeID] = p
	return nil
}

// GetPreference returns an employee's profile.
func (s *Store) GetPreference(ctx context.Context, employeeID string) (store.PreferenceProfile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prefs[employeeID]
	return p, ok, nil
}

func copyItem(item store.FoodItem) store.FoodItem {
	out := item
	out.Slots = make([]store.MealSlot, len(item.Slots))
	copy(out.Slots, item.Slots)
	if item.Profile != nil {
		p := *item.Profile
		out.Profile = &p
	}
	return out
}
