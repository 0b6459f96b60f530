// Package history persists searches made by identified callers in SQLite.
package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"eidrag/internal/domain"
	"eidrag/internal/history/migrations"
)

const (
	// UserLimit is how many records History returns per user.
	UserLimit = 20
	// RecentLimit is how many records Stats lists.
	RecentLimit = 10
)

// Stats aggregates every stored search.
type Stats struct {
	TotalSearches   int                    `json:"totalSearches"`
	UniqueUsers     int                    `json:"uniqueUsers"`
	AvgResponseTime float64                `json:"avgResponseTime"`
	RecentSearches  []domain.HistoryRecord `json:"recentSearches"`
}

// Store is a SQLite-backed domain.HistoryStore.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ domain.HistoryStore = (*Store)(nil)

// Open opens (creating if needed) history.db under dir and applies pending
// migrations.
func Open(dir string) (*Store, error) {
	if dir == "" {
		dir = ".data"
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	path := filepath.Join(dir, "history.db")
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	s := &Store{db: db, path: path, now: time.Now}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(fsys embed.FS) error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}
	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}
	var ups []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			ups = append(ups, e.Name())
		}
	}
	sort.Strings(ups)
	for _, name := range ups {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= current {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// Save stores a completed search. Missing IDs and timestamps are filled in.
func (s *Store) Save(ctx context.Context, rec domain.HistoryRecord) error {
	if rec.UserID == "" {
		return fmt.Errorf("%w: history record without user", domain.ErrInvalidInput)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	sources := rec.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	raw, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("marshalling sources: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO searches (id, user_id, query, answer, sources, confidence, response_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Query, rec.Answer, string(raw), rec.Confidence, rec.ResponseTime, rec.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("saving search: %w", err)
	}
	return nil
}

// ListByUser returns a user's most recent searches, newest first, without
// answers or sources.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]domain.HistoryRecord, error) {
	if limit <= 0 {
		limit = UserLimit
	}
	return s.list(ctx, `
		SELECT id, user_id, query, confidence, response_time, created_at
		FROM searches WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, userID, limit)
}

// Stats summarizes all stored searches.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT user_id), AVG(response_time) FROM searches`).
		Scan(&st.TotalSearches, &st.UniqueUsers, &avg)
	if err != nil {
		return Stats{}, fmt.Errorf("aggregating searches: %w", err)
	}
	st.AvgResponseTime = avg.Float64
	st.RecentSearches, err = s.list(ctx, `
		SELECT id, user_id, query, confidence, response_time, created_at
		FROM searches ORDER BY created_at DESC, rowid DESC LIMIT ?`, RecentLimit)
	if err != nil {
		return Stats{}, err
	}
	return st, nil
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]domain.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying searches: %w", err)
	}
	defer rows.Close()

	out := []domain.HistoryRecord{}
	for rows.Next() {
		var rec domain.HistoryRecord
		var created int64
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Query, &rec.Confidence, &rec.ResponseTime, &created); err != nil {
			return nil, fmt.Errorf("scanning search: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get returns one full record, including answer and sources.
func (s *Store) Get(ctx context.Context, id string) (domain.HistoryRecord, error) {
	var rec domain.HistoryRecord
	var raw string
	var created int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, query, answer, sources, confidence, response_time, created_at
		FROM searches WHERE id = ?`, id).
		Scan(&rec.ID, &rec.UserID, &rec.Query, &rec.Answer, &raw, &rec.Confidence, &rec.ResponseTime, &created)
	if err != nil {
		return domain.HistoryRecord{}, fmt.Errorf("loading search %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(raw), &rec.Sources); err != nil {
		return domain.HistoryRecord{}, fmt.Errorf("decoding sources: %w", err)
	}
	rec.CreatedAt = time.UnixMilli(created).UTC()
	return rec, nil
}
