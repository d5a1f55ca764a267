// Package store persists parsed health log entries in SQLite.
//
// Each entry lives in raw_entries (keyed by a UUID, addressed by users via a
// short hash) plus one row in a per-kind table for typed queries. Deletes are
// soft: deleted_at is set and the row drops out of every listing.
package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pbaille/healthlog/internal/parse"
)

//go:embed schema.sql
var schema string

const hashChars = "abcdefghijklmnopqrstuvwxyz0123456789"

// Fixed-width fraction so lexicographic ORDER BY created_at matches time
// order (RFC3339Nano trims trailing zeros and breaks that).
const timePrecise = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is a stored log entry.
type Entry struct {
	ID        string     `json:"id"`
	Hash      string     `json:"hash"`
	Timestamp time.Time  `json:"timestamp"`
	RawText   string     `json:"raw_text"`
	Parsed    string     `json:"parsed_json"`
	Display   string     `json:"display"`
	EntryType string     `json:"entry_type"`
	Tags      []string   `json:"tags,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// TagInfo is one user tag with its lifetime use count.
type TagInfo struct {
	Tag      string `json:"tag"`
	UseCount int    `json:"use_count"`
}

// Store handles database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateEntry stores a parsed entry and returns the stored record, including
// its freshly assigned hash.
func (s *Store) CreateEntry(rawText string, parsed parse.Entry) (*Entry, error) {
	exported, err := json.Marshal(parsed.Export())
	if err != nil {
		return nil, fmt.Errorf("marshal entry: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	hash, err := generateHash(tx)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	now := time.Now()
	display := parsed.Display()

	_, err = tx.Exec(`
		INSERT INTO raw_entries
		(id, hash, timestamp, raw_text, original_text, parsed_json, display, entry_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, hash, parsed.When().Format(time.RFC3339), rawText, rawText,
		string(exported), display, string(parsed.Kind()), now.Format(timePrecise),
	)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	if err := insertTyped(tx, id, parsed); err != nil {
		return nil, err
	}
	if err := insertTags(tx, id, parsed.TagList(), now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &Entry{
		ID:        id,
		Hash:      hash,
		Timestamp: parsed.When(),
		RawText:   rawText,
		Parsed:    string(exported),
		Display:   display,
		EntryType: string(parsed.Kind()),
		Tags:      parsed.TagList(),
		CreatedAt: now,
	}, nil
}

// UpdateEntry replaces a live entry's interpretation with a re-parse of new
// text. The entry keeps its hash. Old entry tags are replaced; lifetime tag
// use counts are never decremented.
func (s *Store) UpdateEntry(hash, rawText string, parsed parse.Entry) (*Entry, error) {
	exported, err := json.Marshal(parsed.Export())
	if err != nil {
		return nil, fmt.Errorf("marshal entry: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var id, oldType string
	err = tx.QueryRow(
		"SELECT id, entry_type FROM raw_entries WHERE hash = ? AND deleted_at IS NULL",
		hash,
	).Scan(&id, &oldType)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find entry: %w", err)
	}

	display := parsed.Display()
	_, err = tx.Exec(`
		UPDATE raw_entries
		SET raw_text = ?, parsed_json = ?, display = ?, entry_type = ?, timestamp = ?
		WHERE id = ?`,
		rawText, string(exported), display, string(parsed.Kind()),
		parsed.When().Format(time.RFC3339), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}

	if err := deleteTyped(tx, id, parse.Kind(oldType)); err != nil {
		return nil, err
	}
	if err := insertTyped(tx, id, parsed); err != nil {
		return nil, err
	}

	if _, err := tx.Exec("DELETE FROM entry_tags WHERE entry_id = ?", id); err != nil {
		return nil, fmt.Errorf("clear entry tags: %w", err)
	}
	if err := insertTags(tx, id, parsed.TagList(), time.Now()); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &Entry{
		ID:        id,
		Hash:      hash,
		Timestamp: parsed.When(),
		RawText:   rawText,
		Parsed:    string(exported),
		Display:   display,
		EntryType: string(parsed.Kind()),
		Tags:      parsed.TagList(),
	}, nil
}

// DeleteEntry soft-deletes a live entry by hash and returns it.
func (s *Store) DeleteEntry(hash string) (*Entry, error) {
	return s.softDelete(
		"SELECT id FROM raw_entries WHERE hash = ? AND deleted_at IS NULL", hash)
}

// DeleteLast soft-deletes the most recently created live entry and returns it.
func (s *Store) DeleteLast() (*Entry, error) {
	return s.softDelete(`
		SELECT id FROM raw_entries
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`)
}

func (s *Store) softDelete(query string, args ...any) (*Entry, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRow(query, args...).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find entry: %w", err)
	}

	now := time.Now()
	if _, err := tx.Exec(
		"UPDATE raw_entries SET deleted_at = ? WHERE id = ?",
		now.Format(timePrecise), id,
	); err != nil {
		return nil, fmt.Errorf("delete entry: %w", err)
	}

	entry, err := scanEntry(tx.QueryRow(selectEntry+" WHERE id = ?", id))
	if err != nil {
		return nil, err
	}
	entry.Tags, err = entryTagsTx(tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return entry, nil
}

const selectEntry = `
	SELECT id, hash, timestamp, raw_text, parsed_json, display, entry_type, created_at, deleted_at
	FROM raw_entries`

// GetEntry retrieves a live entry by hash with its tags. The stored condition
// string is re-validated so corruption surfaces at read time, not in later
// analytics.
func (s *Store) GetEntry(hash string) (*Entry, error) {
	entry, err := scanEntry(s.db.QueryRow(
		selectEntry+" WHERE hash = ? AND deleted_at IS NULL", hash))
	if err != nil {
		return nil, err
	}
	if err := validateStoredConditions(entry); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		"SELECT tag FROM entry_tags WHERE entry_id = ? ORDER BY tag", entry.ID)
	if err != nil {
		return nil, fmt.Errorf("get entry tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		entry.Tags = append(entry.Tags, tag)
	}
	return entry, rows.Err()
}

// ListEntries returns recent live entries, newest first. An empty entryType
// matches every kind.
func (s *Store) ListEntries(entryType string, limit, offset int) ([]Entry, error) {
	query := selectEntry + " WHERE deleted_at IS NULL"
	args := []any{}
	if entryType != "" {
		query += " AND entry_type = ?"
		args = append(args, entryType)
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// AllTags returns every tag ever used, highest use count first.
func (s *Store) AllTags() ([]TagInfo, error) {
	rows, err := s.db.Query(
		"SELECT tag, use_count FROM user_tags ORDER BY use_count DESC, tag")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []TagInfo
	for rows.Next() {
		var t TagInfo
		if err := rows.Scan(&t.Tag, &t.UseCount); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// TagCount returns how many live entries of a kind carry a tag.
func (s *Store) TagCount(tag, entryType string) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*)
		FROM entry_tags et
		JOIN raw_entries r ON r.id = et.entry_id
		WHERE et.tag = ? AND r.entry_type = ? AND r.deleted_at IS NULL`,
		tag, entryType,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tag: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var e Entry
	var ts, created string
	var deleted sql.NullString
	err := row.Scan(&e.ID, &e.Hash, &ts, &e.RawText, &e.Parsed, &e.Display,
		&e.EntryType, &created, &deleted)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan entry: %w", err)
	}

	if e.Timestamp, err = time.Parse(time.RFC3339, ts); err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if deleted.Valid {
		t, err := time.Parse(time.RFC3339Nano, deleted.String)
		if err != nil {
			return nil, fmt.Errorf("parse deleted_at: %w", err)
		}
		e.DeletedAt = &t
	}
	return &e, nil
}

func entryTagsTx(tx *sql.Tx, entryID string) ([]string, error) {
	rows, err := tx.Query(
		"SELECT tag FROM entry_tags WHERE entry_id = ? ORDER BY tag", entryID)
	if err != nil {
		return nil, fmt.Errorf("get entry tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func generateHash(tx *sql.Tx) (string, error) {
	buf := make([]byte, 4)
	for attempt := 0; attempt < 100; attempt++ {
		for i := range buf {
			buf[i] = hashChars[rand.Intn(len(hashChars))]
		}
		hash := string(buf)

		var exists int
		err := tx.QueryRow("SELECT 1 FROM raw_entries WHERE hash = ?", hash).Scan(&exists)
		if err == sql.ErrNoRows {
			return hash, nil
		}
		if err != nil {
			return "", fmt.Errorf("check hash: %w", err)
		}
	}
	return "", fmt.Errorf("could not generate unique hash")
}

func insertTyped(tx *sql.Tx, entryID string, parsed parse.Entry) error {
	ts := parsed.When().Format(time.RFC3339)
	var err error

	switch e := parsed.(type) {
	case *parse.Exercise:
		reps, merr := json.Marshal(e.Reps)
		if merr != nil {
			return fmt.Errorf("marshal reps: %w", merr)
		}
		_, err = tx.Exec(`
			INSERT INTO exercises (entry_id, name, weight_kg, reps, rpe, timestamp)
			VALUES (?, ?, ?, ?, ?, ?)`,
			entryID, e.Name, e.WeightKg, string(reps), e.RPE, ts)
	case *parse.HeartRate:
		_, err = tx.Exec(`
			INSERT INTO heart_rate (entry_id, bpm, conditions, timestamp)
			VALUES (?, ?, ?, ?)`,
			entryID, e.BPM, nullable(e.Conditions), ts)
	case *parse.HRV:
		_, err = tx.Exec(`
			INSERT INTO hrv (entry_id, ms, metric, conditions, timestamp)
			VALUES (?, ?, ?, ?, ?)`,
			entryID, e.Ms, e.Metric, nullable(e.Conditions), ts)
	case *parse.Temperature:
		_, err = tx.Exec(`
			INSERT INTO temperature (entry_id, celsius, conditions, timestamp)
			VALUES (?, ?, ?, ?)`,
			entryID, e.Celsius, nullable(e.Conditions), ts)
	case *parse.Bodyweight:
		_, err = tx.Exec(`
			INSERT INTO bodyweight (entry_id, kg, bodyfat_pct, timestamp)
			VALUES (?, ?, ?, ?)`,
			entryID, e.Kg, e.BodyfatPct, ts)
	case *parse.ControlPause:
		_, err = tx.Exec(`
			INSERT INTO control_pause (entry_id, seconds, conditions, timestamp)
			VALUES (?, ?, ?, ?)`,
			entryID, e.Seconds, nullable(e.Conditions), ts)
	default:
		return fmt.Errorf("unknown entry kind %q", parsed.Kind())
	}

	if err != nil {
		return fmt.Errorf("insert typed entry: %w", err)
	}
	return nil
}

func deleteTyped(tx *sql.Tx, entryID string, kind parse.Kind) error {
	tables := map[parse.Kind]string{
		parse.KindExercise:     "exercises",
		parse.KindHeartRate:    "heart_rate",
		parse.KindHRV:          "hrv",
		parse.KindTemperature:  "temperature",
		parse.KindBodyweight:   "bodyweight",
		parse.KindControlPause: "control_pause",
	}
	table, ok := tables[kind]
	if !ok {
		return fmt.Errorf("unknown entry kind %q", kind)
	}
	if _, err := tx.Exec("DELETE FROM "+table+" WHERE entry_id = ?", entryID); err != nil {
		return fmt.Errorf("delete typed entry: %w", err)
	}
	return nil
}

func insertTags(tx *sql.Tx, entryID string, tags []string, now time.Time) error {
	for _, tag := range tags {
		if _, err := tx.Exec(
			"INSERT INTO entry_tags (entry_id, tag) VALUES (?, ?)", entryID, tag,
		); err != nil {
			return fmt.Errorf("insert entry tag: %w", err)
		}
		if _, err := tx.Exec(`
			INSERT INTO user_tags (tag, use_count, first_used_at) VALUES (?, 1, ?)
			ON CONFLICT(tag) DO UPDATE SET use_count = use_count + 1`,
			tag, now.Format(timePrecise),
		); err != nil {
			return fmt.Errorf("upsert user tag: %w", err)
		}
	}
	return nil
}

func validateStoredConditions(e *Entry) error {
	var export struct {
		Conditions *string `json:"conditions"`
	}
	if err := json.Unmarshal([]byte(e.Parsed), &export); err != nil {
		return fmt.Errorf("decode stored entry %s: %w", e.Hash, err)
	}
	if export.Conditions == nil {
		return nil
	}
	if err := parse.ValidateConditions(*export.Conditions, parse.Kind(e.EntryType)); err != nil {
		return fmt.Errorf("stored entry %s: %w", e.Hash, err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
