package importer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/cafeteria/pkg/cafeteria/store"
)

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.jsonl")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadItems(t *testing.T) {
	path := write(t, `{"id":7,"name":"Biryani","price":120,"slots":["Lunch","dinner"],"dietary_type":"non-vegetarian","spice_level":"high"}
# retired
{"id":20,"name":"Old Sandwich","available":false,"slots":["breakfast"]}

{not json}
`)
	recs, err := LoadItems(path)
	if err != nil {
		t.Fatalf("LoadItems: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}

	item, err := recs[0].FoodItem()
	if err != nil {
		t.Fatal(err)
	}
	if !item.Available || item.ID != 7 || len(item.Slots) != 2 || item.Slots[0] != store.Lunch {
		t.Errorf("item = %+v", item)
	}
	if item.Profile == nil || item.Profile.SpiceLevel != "high" {
		t.Errorf("profile = %+v", item.Profile)
	}

	retired, err := recs[1].FoodItem()
	if err != nil {
		t.Fatal(err)
	}
	if retired.Available || retired.Profile != nil {
		t.Errorf("retired = %+v", retired)
	}
}

func TestItemRecordRejectsUnknownSlot(t *testing.T) {
	if _, err := (ItemRecord{Name: "x", Slots: []string{"brunch"}}).FoodItem(); err == nil {
		t.Error("expected error for unknown slot")
	}
}

func TestLoadFeedbackDates(t *testing.T) {
	path := write(t, `{"employee_id":"a","food_item_id":7,"rating":5,"comment":"great","date":"2026-10-01"}
{"employee_id":"b","food_item_id":7,"rating":2,"date":"2026-10-02T13:30:00Z"}
{"employee_id":"c","food_item_id":9,"rating":4}
`)
	recs, err := LoadFeedback(path)
	if err != nil {
		t.Fatal(err)
	}
	first, err := recs[0].Feedback()
	if err != nil || store.DayKey(first.Date) != "2026-10-01" {
		t.Errorf("first = %+v, %v", first, err)
	}
	second, err := recs[1].Feedback()
	if err != nil || !second.Date.Equal(time.Date(2026, 10, 2, 13, 30, 0, 0, time.UTC)) {
		t.Errorf("second = %+v, %v", second, err)
	}
	third, err := recs[2].Feedback()
	if err != nil || !third.Date.IsZero() {
		t.Errorf("third = %+v, %v", third, err)
	}

	if _, err := (FeedbackRecord{Date: "yesterday"}).Feedback(); err == nil {
		t.Error("expected bad date error")
	}
}

func TestFeedbackCommentMarkup(t *testing.T) {
	tests := []struct {
		name string
		rec  FeedbackRecord
		want string
	}{
		{"plain keeps angle bracket", FeedbackRecord{Comment: "portion was tiny<and the rice was bad"}, "portion was tiny<and the rice was bad"},
		{"plain keeps tags", FeedbackRecord{Comment: "<b>great</b>"}, "<b>great</b>"},
		{"html stripped", FeedbackRecord{Comment: "<b>great</b> &amp; fresh", HTML: true}, "great & fresh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb, err := tt.rec.Feedback()
			if err != nil {
				t.Fatal(err)
			}
			if fb.Comment != tt.want {
				t.Errorf("comment = %q, want %q", fb.Comment, tt.want)
			}
		})
	}
}

func TestLoadEmptyOrMissing(t *testing.T) {
	if _, err := LoadItems(write(t, "\n{bad}\n")); err == nil {
		t.Error("expected error when no valid records")
	}
	if _, err := LoadFeedback(filepath.Join(t.TempDir(), "missing.jsonl")); err == nil {
		t.Error("expected error for missing file")
	}
}
