// Package importer reads catalog and feedback records from JSONL files.
package importer

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/cognicore/cafeteria/internal/logging"
	"github.com/cognicore/cafeteria/pkg/cafeteria/sentiment"
	"github.com/cognicore/cafeteria/pkg/cafeteria/store"
)

// ItemRecord is one catalog line.
type ItemRecord struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Available   *bool    `json:"available"`
	Category    string   `json:"category"`
	Slots       []string `json:"slots"`
	DietaryType string   `json:"dietary_type"`
	SpiceLevel  string   `json:"spice_level"`
	CuisineType string   `json:"cuisine_type"`
	IsSweet     bool     `json:"is_sweet"`
}

// FoodItem converts the record. Missing availability means available.
func (r ItemRecord) FoodItem() (store.FoodItem, error) {
	item := store.FoodItem{
		ID:        r.ID,
		Name:      strings.TrimSpace(r.Name),
		Price:     r.Price,
		Available: r.Available == nil || *r.Available,
		Category:  r.Category,
	}
	for _, s := range r.Slots {
		slot, err := store.ParseMealSlot(s)
		if err != nil {
			return store.FoodItem{}, err
		}
		item.Slots = append(item.Slots, slot)
	}
	if r.DietaryType != "" || r.SpiceLevel != "" || r.CuisineType != "" || r.IsSweet {
		item.Profile = &store.ItemProfile{
			DietaryType: r.DietaryType,
			SpiceLevel:  r.SpiceLevel,
			CuisineType: r.CuisineType,
			IsSweet:     r.IsSweet,
		}
	}
	return item, nil
}

// FeedbackRecord is one feedback line. Date accepts a day key or RFC 3339.
// HTML marks a comment captured from a rich text field.
type FeedbackRecord struct {
	EmployeeID string `json:"employee_id"`
	FoodItemID int64  `json:"food_item_id"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
	HTML       bool   `json:"html"`
	Date       string `json:"date"`
}

// Feedback converts the record. An empty date leaves Date zero. HTML
// comments are reduced to their visible text; plain ones are kept as is.
func (r FeedbackRecord) Feedback() (store.Feedback, error) {
	fb := store.Feedback{
		EmployeeID: r.EmployeeID,
		FoodItemID: r.FoodItemID,
		Rating:     r.Rating,
		Comment:    r.Comment,
	}
	if r.HTML {
		fb.Comment = sentiment.StripMarkup(r.Comment)
	}
	if r.Date == "" {
		return fb, nil
	}
	if t, err := store.ParseDay(r.Date); err == nil {
		fb.Date = t
		return fb, nil
	}
	t, err := time.Parse(time.RFC3339, r.Date)
	if err != nil {
		return store.Feedback{}, fmt.Errorf("date %q: want YYYY-MM-DD or RFC 3339", r.Date)
	}
	fb.Date = t
	return fb, nil
}

// LoadItems reads catalog records from a JSONL file.
func LoadItems(path string) ([]ItemRecord, error) {
	return loadJSONL[ItemRecord](path)
}

// LoadFeedback reads feedback records from a JSONL file.
func LoadFeedback(path string) ([]FeedbackRecord, error) {
	return loadJSONL[FeedbackRecord](path)
}

// loadJSONL skips blank and malformed lines, logging the latter. It fails
// when the file holds no valid record.
func loadJSONL[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	defer f.Close()

	log := logging.Component("importer")
	var out []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var rec T
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			log.Warn().Str("file", path).Int("line", lineNo).Err(err).Msg("skipping malformed record")
			continue
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no valid records found in %s", path)
	}
	return out, nil
}
