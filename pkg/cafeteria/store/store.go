package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Store is the main interface for persisting and querying cafeteria data.
// Date-scoped methods take a day key (see DayKey) and month-scoped methods a
// period key (see PeriodKey).
type Store interface {
	Close() error

	// Catalog
	UpsertItem(ctx context.Context, item FoodItem) (FoodItem, error)
	GetItem(ctx context.Context, id int64) (FoodItem, bool, error)
	ListItems(ctx context.Context) ([]FoodItem, error)

	// Feedback (append-only)
	AddFeedback(ctx context.Context, f Feedback) error
	ListFeedback(ctx context.Context) ([]Feedback, error)

	// Rollouts
	HasRollout(ctx context.Context, day string) (bool, error)
	// CreateRollout inserts one row per food item for day. It fails with
	// internalerr.ErrAlreadyRolledOut, without writing anything, when day
	// already has a rollout.
	CreateRollout(ctx context.Context, day string, foodItemIDs []int64) ([]RolledOutItem, error)
	RolledOutItems(ctx context.Context, day string) ([]RolledOutItem, error)
	// IncrementVote adds one vote to the row matching (foodItemID, day).
	// With a non-empty employeeID the ballot (employeeID, foodItemID, day)
	// is recorded in the same write and repeated ballots are not counted.
	IncrementVote(ctx context.Context, day, employeeID string, foodItemID int64) (VoteResult, error)

	// Finals
	HasFinal(ctx context.Context, day string) (bool, error)
	// CreateFinals fails with internalerr.ErrAlreadyFinalized when day is
	// already finalized.
	CreateFinals(ctx context.Context, day string, finals []FinalItem) error
	FinalItems(ctx context.Context, day string) ([]FinalItem, error)

	// Discards
	HasDiscardRun(ctx context.Context, period string) (bool, error)
	// CreateDiscards fails with internalerr.ErrAlreadyGeneratedThisPeriod
	// when period already has a run, even if that run produced no candidates.
	CreateDiscards(ctx context.Context, period string, candidates []DiscardCandidate) error
	DiscardsByPeriod(ctx context.Context, period string) ([]DiscardCandidate, error)

	// Preferences
	UpsertPreference(ctx context.Context, p PreferenceProfile) error
	GetPreference(ctx context.Context, employeeID string) (PreferenceProfile, bool, error)
}

// MealSlot is one of the three daily meal slots.
type MealSlot string

const (
	Breakfast MealSlot = "breakfast"
	Lunch     MealSlot = "lunch"
	Dinner    MealSlot = "dinner"
)

// MealSlots lists every slot in serving order.
var MealSlots = []MealSlot{Breakfast, Lunch, Dinner}

// ParseMealSlot accepts a slot name in any case.
func ParseMealSlot(s string) (MealSlot, error) {
	switch MealSlot(strings.ToLower(strings.TrimSpace(s))) {
	case Breakfast:
		return Breakfast, nil
	case Lunch:
		return Lunch, nil
	case Dinner:
		return Dinner, nil
	}
	return "", fmt.Errorf("unknown meal slot %q", s)
}

// FoodItem is a catalog entry. Catalog management lives outside the engine.
type FoodItem struct {
	ID        int64
	Name      string     `validate:"required"`
	Price     float64    `validate:"gte=0"`
	Available bool
	Category  string
	Slots     []MealSlot `validate:"min=1,dive,oneof=breakfast lunch dinner"`
	Profile   *ItemProfile
}

// ServesSlot reports whether the item is valid for slot.
func (f FoodItem) ServesSlot(slot MealSlot) bool {
	for _, s := range f.Slots {
		if s == slot {
			return true
		}
	}
	return false
}

// ItemProfile is the preference metadata attached to a food item.
type ItemProfile struct {
	DietaryType string // vegetarian, non-vegetarian, eggetarian, ...
	SpiceLevel  string // low, medium, high
	CuisineType string // north indian, south indian, continental, ...
	IsSweet     bool
}

// Feedback is one employee's rating of a food item. Immutable once written.
type Feedback struct {
	ID         int64
	EmployeeID string `validate:"required"`
	FoodItemID int64  `validate:"gt=0"`
	Rating     int    `validate:"min=1,max=5"`
	Comment    string
	Date       time.Time
}

// RolledOutItem is a food item offered for voting on a given day.
type RolledOutItem struct {
	ID         int64
	FoodItemID int64
	Votes      int
	Date       string // day key
}

// VoteResult describes what a single IncrementVote did.
type VoteResult int

const (
	VoteCounted   VoteResult = iota // votes incremented
	VoteDuplicate                   // employee already voted for this item today
	VoteUnmatched                   // no rolled-out row for (item, day)
)

func (r VoteResult) String() string {
	switch r {
	case VoteCounted:
		return "counted"
	case VoteDuplicate:
		return "duplicate"
	case VoteUnmatched:
		return "unmatched"
	}
	return "unknown"
}

// FinalItem is the winning rolled-out item for one meal slot on a day.
type FinalItem struct {
	ID              string
	RolledOutItemID int64
	FoodItemID      int64
	Slot            MealSlot
	Votes           int
	Date            string // day key
}

// DiscardCandidate flags an item with sustained low ratings.
type DiscardCandidate struct {
	ID               string
	FoodItemID       int64
	AverageRating    float64
	AverageSentiment float64
	GeneratedOn      string // day key
	Period           string // period key
}

// PreferenceProfile is an employee's stated food preferences.
type PreferenceProfile struct {
	EmployeeID        string `validate:"required"`
	DietaryPreference string
	SpiceLevel        string
	CuisineType       string
	SweetTooth        bool
}

const (
	dayLayout    = "2006-01-02"
	periodLayout = "2006-01"
)

// DayKey returns the calendar-day key for t in t's location.
func DayKey(t time.Time) string {
	return t.Format(dayLayout)
}

// PeriodKey returns the calendar-month key for t in t's location.
func PeriodKey(t time.Time) string {
	return t.Format(periodLayout)
}

// ParseDay parses a day key.
func ParseDay(day string) (time.Time, error) {
	return time.Parse(dayLayout, day)
}
