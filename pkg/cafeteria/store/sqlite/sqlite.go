package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/cafeteria/pkg/cafeteria/internalerr"
	"github.com/cognicore/cafeteria/pkg/cafeteria/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode and foreign keys enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite has a single writer; one connection keeps pragmas and
	// transactions on the same handle.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist. The *_days and discard_runs
// tables are the per-period markers that make each transition a single
// conditional insert.
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS food_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	price REAL NOT NULL DEFAULT 0,
	available INTEGER NOT NULL DEFAULT 1,
	category TEXT,
	has_profile INTEGER NOT NULL DEFAULT 0,
	dietary_type TEXT,
	spice_level TEXT,
	cuisine_type TEXT,
	is_sweet INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS food_item_slots (
	food_item_id INTEGER NOT NULL,
	slot TEXT NOT NULL CHECK (slot IN ('breakfast', 'lunch', 'dinner')),
	UNIQUE(food_item_id, slot),
	FOREIGN KEY(food_item_id) REFERENCES food_items(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS feedback (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	employee_id TEXT NOT NULL,
	food_item_id INTEGER NOT NULL,
	rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
	comment TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	FOREIGN KEY(food_item_id) REFERENCES food_items(id)
);

CREATE TABLE IF NOT EXISTS rollout_days (
	day TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS rolled_out_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	food_item_id INTEGER NOT NULL,
	votes INTEGER NOT NULL DEFAULT 0 CHECK (votes >= 0),
	rollout_date TEXT NOT NULL,
	UNIQUE(food_item_id, rollout_date),
	FOREIGN KEY(food_item_id) REFERENCES food_items(id),
	FOREIGN KEY(rollout_date) REFERENCES rollout_days(day)
);

CREATE TABLE IF NOT EXISTS vote_ballots (
	employee_id TEXT NOT NULL,
	food_item_id INTEGER NOT NULL,
	vote_date TEXT NOT NULL,
	PRIMARY KEY(employee_id, food_item_id, vote_date)
);

CREATE TABLE IF NOT EXISTS final_days (
	day TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS final_items (
	id TEXT PRIMARY KEY,
	rolled_out_item_id INTEGER NOT NULL,
	food_item_id INTEGER NOT NULL,
	meal_slot TEXT NOT NULL,
	votes INTEGER NOT NULL DEFAULT 0,
	final_date TEXT NOT NULL,
	UNIQUE(meal_slot, final_date),
	FOREIGN KEY(rolled_out_item_id) REFERENCES rolled_out_items(id),
	FOREIGN KEY(final_date) REFERENCES final_days(day)
);

CREATE TABLE IF NOT EXISTS discard_runs (
	period TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS discard_items (
	id TEXT PRIMARY KEY,
	food_item_id INTEGER NOT NULL,
	average_rating REAL NOT NULL,
	average_sentiment REAL NOT NULL,
	generated_on TEXT NOT NULL,
	period TEXT NOT NULL,
	UNIQUE(food_item_id, period),
	FOREIGN KEY(period) REFERENCES discard_runs(period)
);

CREATE TABLE IF NOT EXISTS user_preferences (
	employee_id TEXT PRIMARY KEY,
	dietary_preference TEXT,
	spice_level TEXT,
	cuisine_type TEXT,
	sweet_tooth INTEGER NOT NULL DEFAULT 0
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertItem inserts an item (ID zero) or replaces an existing one.
func (s *sqliteStore) UpsertItem(ctx context.Context, item store.FoodItem) (store.FoodItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.FoodItem{}, err
	}
	defer tx.Rollback()

	var p store.ItemProfile
	hasProfile := item.Profile != nil
	if hasProfile {
		p = *item.Profile
	}

	args := []interface{}{
		item.Name, item.Price, boolInt(item.Available), item.Category,
		boolInt(hasProfile), p.DietaryType, p.SpiceLevel, p.CuisineType, boolInt(p.IsSweet),
	}

	if item.ID == 0 {
		err = tx.QueryRowContext(ctx, `
INSERT INTO food_items (name, price, available, category, has_profile, dietary_type, spice_level, cuisine_type, is_sweet)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id;
`, args...).Scan(&item.ID)
	} else {
		_, err = tx.ExecContext(ctx, `
INSERT INTO food_items (id, name, price, available, category, has_profile, dietary_type, spice_level, cuisine_type, is_sweet)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name=excluded.name,
	price=excluded.price,
	available=excluded.available,
	category=excluded.category,
	has_profile=excluded.has_profile,
	dietary_type=excluded.dietary_type,
	spice_level=excluded.spice_level,
	cuisine_type=excluded.cuisine_type,
	is_sweet=excluded.is_sweet;
`, append([]interface{}{item.ID}, args...)...)
	}
	if err != nil {
		return store.FoodItem{}, err
	}

	if err := replaceItemSlots(ctx, tx, item.ID, item.Slots); err != nil {
		return store.FoodItem{}, err
	}

	if err := tx.Commit(); err != nil {
		return store.FoodItem{}, err
	}
	return item, nil
}

func replaceItemSlots(ctx context.Context, tx *sql.Tx, itemID int64, slots []store.MealSlot) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM food_item_slots WHERE food_item_id=?`, itemID); err != nil {
		return err
	}
	if len(slots) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO food_item_slots (food_item_id, slot) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, slot := range slots {
		if _, err := stmt.ExecContext(ctx, itemID, string(slot)); err != nil {
			return err
		}
	}
	return nil
}

// GetItem retrieves an item by ID
func (s *sqliteStore) GetItem(ctx context.Context, id int64) (store.FoodItem, bool, error) {
	items, err := s.queryItems(ctx, `WHERE id = ?`, id)
	if err != nil {
		return store.FoodItem{}, false, err
	}
	if len(items) == 0 {
		return store.FoodItem{}, false, nil
	}
	return items[0], true, nil
}

// ListItems returns the whole catalog ordered by ID
func (s *sqliteStore) ListItems(ctx context.Context) ([]store.FoodItem, error) {
	return s.queryItems(ctx, ``)
}

func (s *sqliteStore) queryItems(ctx context.Context, where string, args ...interface{}) ([]store.FoodItem, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, price, available, category, has_profile, dietary_type, spice_level, cuisine_type, is_sweet
FROM food_items `+where+`
ORDER BY id;
`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []store.FoodItem
	for rows.Next() {
		var item store.FoodItem
		var available, hasProf, isSweet int
		var category, diet, spice, cuis sql.NullString
		if err := rows.Scan(&item.ID, &item.Name, &item.Price, &available, &category,
			&hasProf, &diet, &spice, &cuis, &isSweet); err != nil {
			return nil, err
		}
		item.Available = available != 0
		item.Category = category.String
		if hasProf != 0 {
			item.Profile = &store.ItemProfile{
				DietaryType: diet.String,
				SpiceLevel:  spice.String,
				CuisineType: cuis.String,
				IsSweet:     isSweet != 0,
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range items {
		slots, err := s.loadSlots(ctx, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Slots = slots
	}
	return items, nil
}

func (s *sqliteStore) loadSlots(ctx context.Context, itemID int64) ([]store.MealSlot, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT slot FROM food_item_slots WHERE food_item_id=?
ORDER BY CASE slot WHEN 'breakfast' THEN 0 WHEN 'lunch' THEN 1 ELSE 2 END;
`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []store.MealSlot
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, err
		}
		slots = append(slots, store.MealSlot(slot))
	}
	return slots, rows.Err()
}

// AddFeedback appends a feedback row
func (s *sqliteStore) AddFeedback(ctx context.Context, f store.Feedback) error {
	created := f.Date
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO feedback (employee_id, food_item_id, rating, comment, created_at)
VALUES (?, ?, ?, ?, ?);
`, f.EmployeeID, f.FoodItemID, f.Rating, f.Comment, created.UTC().Format(time.RFC3339))
	return err
}

// ListFeedback returns all feedback in insertion order
func (s *sqliteStore) ListFeedback(ctx context.Context) ([]store.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, employee_id, food_item_id, rating, comment, created_at
FROM feedback
ORDER BY id;
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Feedback
	for rows.Next() {
		var (
			f       store.Feedback
			created string
		)
		if err := rows.Scan(&f.ID, &f.EmployeeID, &f.FoodItemID, &f.Rating, &f.Comment, &created); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339, created)
		if err != nil {
			return nil, fmt.Errorf("feedback %d created_at %q: %w", f.ID, created, err)
		}
		f.Date = parsed
		out = append(out, f)
	}
	return out, rows.Err()
}

// HasRollout reports whether day already has a rollout
func (s *sqliteStore) HasRollout(ctx context.Context, day string) (bool, error) {
	return s.exists(ctx, `SELECT COUNT(*) FROM rollout_days WHERE day=?`, day)
}

// CreateRollout claims day and inserts the rolled-out rows in one transaction
func (s *sqliteStore) CreateRollout(ctx context.Context, day string, foodItemIDs []int64) ([]store.RolledOutItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := claim(ctx, tx, `INSERT INTO rollout_days (day) VALUES (?) ON CONFLICT(day) DO NOTHING`, day); err != nil {
		if err == errClaimed {
			return nil, internalerr.ErrAlreadyRolledOut
		}
		return nil, err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO rolled_out_items (food_item_id, votes, rollout_date)
VALUES (?, 0, ?)
RETURNING id;
`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var rows []store.RolledOutItem
	for _, id := range uniqueIDs(foodItemIDs) {
		row := store.RolledOutItem{FoodItemID: id, Date: day}
		if err := stmt.QueryRowContext(ctx, id, day).Scan(&row.ID); err != nil {
			return nil, fmt.Errorf("insert rolled out item %d: %w", id, err)
		}
		rows = append(rows, row)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rows, nil
}

// RolledOutItems returns the rows for day ordered by ID
func (s *sqliteStore) RolledOutItems(ctx context.Context, day string) ([]store.RolledOutItem, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, food_item_id, votes, rollout_date
FROM rolled_out_items
WHERE rollout_date = ?
ORDER BY id;
`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.RolledOutItem
	for rows.Next() {
		var r store.RolledOutItem
		if err := rows.Scan(&r.ID, &r.FoodItemID, &r.Votes, &r.Date); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// IncrementVote adds one vote to (foodItemID, day), recording the ballot in
// the same transaction when employeeID is set.
func (s *sqliteStore) IncrementVote(ctx context.Context, day, employeeID string, foodItemID int64) (store.VoteResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.VoteUnmatched, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
UPDATE rolled_out_items SET votes = votes + 1
WHERE food_item_id = ? AND rollout_date = ?;
`, foodItemID, day)
	if err != nil {
		return store.VoteUnmatched, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.VoteUnmatched, err
	}
	if n == 0 {
		return store.VoteUnmatched, nil
	}

	if employeeID != "" {
		err := claim(ctx, tx, `
INSERT INTO vote_ballots (employee_id, food_item_id, vote_date) VALUES (?, ?, ?)
ON CONFLICT DO NOTHING;
`, employeeID, foodItemID, day)
		if err == errClaimed {
			return store.VoteDuplicate, nil
		}
		if err != nil {
			return store.VoteUnmatched, err
		}
	}

	if err := tx.Commit(); err != nil {
		return store.VoteUnmatched, err
	}
	return store.VoteCounted, nil
}

// HasFinal reports whether day has been finalized
func (s *sqliteStore) HasFinal(ctx context.Context, day string) (bool, error) {
	return s.exists(ctx, `SELECT COUNT(*) FROM final_days WHERE day=?`, day)
}

// CreateFinals claims day and stores the final menu in one transaction
func (s *sqliteStore) CreateFinals(ctx context.Context, day string, finals []store.FinalItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := claim(ctx, tx, `INSERT INTO final_days (day) VALUES (?) ON CONFLICT(day) DO NOTHING`, day); err != nil {
		if err == errClaimed {
			return internalerr.ErrAlreadyFinalized
		}
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO final_items (id, rolled_out_item_id, food_item_id, meal_slot, votes, final_date)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(meal_slot, final_date) DO NOTHING;
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range finals {
		res, err := stmt.ExecContext(ctx, f.ID, f.RolledOutItemID, f.FoodItemID, string(f.Slot), f.Votes, day)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("final for %s on %s: %w", f.Slot, day, internalerr.ErrDuplicate)
		}
	}

	return tx.Commit()
}

// FinalItems returns the final menu for day in slot order
func (s *sqliteStore) FinalItems(ctx context.Context, day string) ([]store.FinalItem, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, rolled_out_item_id, food_item_id, meal_slot, votes, final_date
FROM final_items
WHERE final_date = ?
ORDER BY CASE meal_slot WHEN 'breakfast' THEN 0 WHEN 'lunch' THEN 1 ELSE 2 END;
`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.FinalItem
	for rows.Next() {
		var (
			f    store.FinalItem
			slot string
		)
		if err := rows.Scan(&f.ID, &f.RolledOutItemID, &f.FoodItemID, &slot, &f.Votes, &f.Date); err != nil {
			return nil, err
		}
		f.Slot = store.MealSlot(slot)
		out = append(out, f)
	}
	return out, rows.Err()
}

// HasDiscardRun reports whether period already has a curation run
func (s *sqliteStore) HasDiscardRun(ctx context.Context, period string) (bool, error) {
	return s.exists(ctx, `SELECT COUNT(*) FROM discard_runs WHERE period=?`, period)
}

// CreateDiscards claims period and stores its candidates in one transaction
func (s *sqliteStore) CreateDiscards(ctx context.Context, period string, candidates []store.DiscardCandidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := claim(ctx, tx, `INSERT INTO discard_runs (period) VALUES (?) ON CONFLICT(period) DO NOTHING`, period); err != nil {
		if err == errClaimed {
			return internalerr.ErrAlreadyGeneratedThisPeriod
		}
		return err
	}

	if len(candidates) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO discard_items (id, food_item_id, average_rating, average_sentiment, generated_on, period)
VALUES (?, ?, ?, ?, ?, ?);
`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, c := range candidates {
			if _, err := stmt.ExecContext(ctx, c.ID, c.FoodItemID, c.AverageRating, c.AverageSentiment, c.GeneratedOn, period); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// DiscardsByPeriod returns the candidates generated in period
func (s *sqliteStore) DiscardsByPeriod(ctx context.Context, period string) ([]store.DiscardCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, food_item_id, average_rating, average_sentiment, generated_on, period
FROM discard_items
WHERE period = ?
ORDER BY average_rating, food_item_id;
`, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.DiscardCandidate
	for rows.Next() {
		var c store.DiscardCandidate
		if err := rows.Scan(&c.ID, &c.FoodItemID, &c.AverageRating, &c.AverageSentiment, &c.GeneratedOn, &c.Period); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertPreference inserts or replaces an employee's profile
func (s *sqliteStore) UpsertPreference(ctx context.Context, p store.PreferenceProfile) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO user_preferences (employee_id, dietary_preference, spice_level, cuisine_type, sweet_tooth)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(employee_id) DO UPDATE SET
	dietary_preference=excluded.dietary_preference,
	spice_level=excluded.spice_level,
	cuisine_type=excluded.cuisine_type,
	sweet_tooth=excluded.sweet_tooth;
`, p.EmployeeID, p.DietaryPreference, p.SpiceLevel, p.CuisineType, boolInt(p.SweetTooth))
	return err
}

// GetPreference retrieves an employee's profile
func (s *sqliteStore) GetPreference(ctx context.Context, employeeID string) (store.PreferenceProfile, bool, error) {
	var p store.PreferenceProfile
	var diet, spice, cuis sql.NullString
	var sweet int
	err := s.db.QueryRowContext(ctx, `
SELECT employee_id, dietary_preference, spice_level, cuisine_type, sweet_tooth
FROM user_preferences
WHERE employee_id = ?;
`, employeeID).Scan(&p.EmployeeID, &diet, &spice, &cuis, &sweet)
	if err == sql.ErrNoRows {
		return store.PreferenceProfile{}, false, nil
	}
	if err != nil {
		return store.PreferenceProfile{}, false, err
	}
	p.DietaryPreference = diet.String
	p.SpiceLevel = spice.String
	p.CuisineType = cuis.String
	p.SweetTooth = sweet != 0
	return p, true, nil
}

// errClaimed means a conditional insert found its key already present.
var errClaimed = errors.New("key already claimed")

// claim runs an INSERT ... ON CONFLICT DO NOTHING and reports errClaimed
// when no row was written.
func claim(ctx context.Context, tx *sql.Tx, stmt string, args ...interface{}) error {
	res, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errClaimed
	}
	return nil
}

func (s *sqliteStore) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func uniqueIDs(in []int64) []int64 {
	set := make(map[int64]struct{}, len(in))
	var out []int64
	for _, v := range in {
		if _, ok := set[v]; ok {
			continue
		}
		set[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
