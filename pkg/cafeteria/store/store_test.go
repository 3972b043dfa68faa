package store

import (
	"testing"
	"time"
)

func TestParseMealSlot(t *testing.T) {
	cases := map[string]MealSlot{
		"breakfast": Breakfast,
		" Lunch ":   Lunch,
		"DINNER":    Dinner,
	}
	for in, want := range cases {
		got, err := ParseMealSlot(in)
		if err != nil {
			t.Fatalf("ParseMealSlot(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseMealSlot(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseMealSlotRejectsSubstrings(t *testing.T) {
	for _, in := range []string{"", "brunch", "lunchbox", "break"} {
		if _, err := ParseMealSlot(in); err == nil {
			t.Errorf("ParseMealSlot(%q) should fail", in)
		}
	}
}

func TestServesSlot(t *testing.T) {
	item := FoodItem{Slots: []MealSlot{Breakfast, Dinner}}
	if !item.ServesSlot(Breakfast) || !item.ServesSlot(Dinner) {
		t.Error("item should serve breakfast and dinner")
	}
	if item.ServesSlot(Lunch) {
		t.Error("item should not serve lunch")
	}
}

func TestDayAndPeriodKeys(t *testing.T) {
	ts := time.Date(2026, time.March, 9, 23, 59, 0, 0, time.UTC)
	if got := DayKey(ts); got != "2026-03-09" {
		t.Errorf("DayKey = %q", got)
	}
	if got := PeriodKey(ts); got != "2026-03" {
		t.Errorf("PeriodKey = %q", got)
	}
	parsed, err := ParseDay("2026-03-09")
	if err != nil {
		t.Fatalf("ParseDay: %v", err)
	}
	if DayKey(parsed) != "2026-03-09" {
		t.Errorf("round trip mismatch: %v", parsed)
	}
}

func TestVoteResultString(t *testing.T) {
	if VoteCounted.String() != "counted" || VoteDuplicate.String() != "duplicate" || VoteUnmatched.String() != "unmatched" {
		t.Error("unexpected VoteResult names")
	}
}
