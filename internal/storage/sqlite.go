package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for key-value records, the
// identity profile, candidate history and the generation log.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "forlove.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Records ---

// maxHistory is the number of committed candidates kept.
const maxHistory = 20

func (s *Store) SetRecord(key string, value []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetRecord(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow("SELECT value FROM kv_store WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return value, err
}

func (s *Store) DeleteRecord(key string) error {
	_, err := s.db.Exec("DELETE FROM kv_store WHERE key = ?", key)
	return err
}

// --- User Profile ---

func (s *Store) SetProfileKey(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO user_profile (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetProfileKey(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM user_profile WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

func (s *Store) GetAllProfileKeys() (map[string]string, error) {
	rows, err := s.db.Query("SELECT key, value FROM user_profile")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		result[k] = v
	}
	return result, rows.Err()
}

func (s *Store) DeleteProfileKey(key string) error {
	_, err := s.db.Exec("DELETE FROM user_profile WHERE key = ?", key)
	return err
}

// --- Candidate History ---

// AddHistory records a committed candidate and trims the history to the
// newest maxHistory entries.
func (s *Store) AddHistory(e HistoryEntry) error {
	tags := e.Tags
	if tags == "" {
		tags = "[]"
	}
	committed := e.CommittedAt
	if committed.IsZero() {
		committed = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning history transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO candidate_history (candidate_id, text, score, tags, created_at, is_offline, risk_flagged, committed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.CandidateID, e.Text, e.Score, tags,
		e.CreatedAt.UTC().Format(time.RFC3339), boolToInt(e.IsOffline), boolToInt(e.RiskFlagged),
		committed.UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("inserting history entry: %w", err)
	}

	if _, err := tx.Exec(`
		DELETE FROM candidate_history WHERE seq NOT IN (
			SELECT seq FROM candidate_history ORDER BY seq DESC LIMIT ?
		)`, maxHistory,
	); err != nil {
		return fmt.Errorf("trimming history: %w", err)
	}

	return tx.Commit()
}

// RecentHistory returns up to limit entries, newest first.
func (s *Store) RecentHistory(limit int) ([]HistoryEntry, error) {
	if limit <= 0 || limit > maxHistory {
		limit = maxHistory
	}
	rows, err := s.db.Query(`
		SELECT candidate_id, text, score, tags, created_at, is_offline, risk_flagged, committed_at
		FROM candidate_history ORDER BY seq DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var createdAt, committedAt string
		var offline, risk int
		if err := rows.Scan(&e.CandidateID, &e.Text, &e.Score, &e.Tags, &createdAt, &offline, &risk, &committedAt); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		if e.CommittedAt, err = time.Parse(time.RFC3339, committedAt); err != nil {
			return nil, fmt.Errorf("parsing committed_at: %w", err)
		}
		e.IsOffline = offline != 0
		e.RiskFlagged = risk != 0
		results = append(results, e)
	}
	return results, rows.Err()
}

func (s *Store) ClearHistory() error {
	_, err := s.db.Exec("DELETE FROM candidate_history")
	return err
}

// --- Generations ---

func (s *Store) SaveGeneration(g Generation) error {
	_, err := s.db.Exec(`
		INSERT INTO generations (id, created_at, slot_id, main_category, sub_category, outcome, reason, latency_ms, candidate_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.CreatedAt.UTC().Format(time.RFC3339), g.SlotID, g.MainCategory, g.SubCategory,
		g.Outcome, g.Reason, g.LatencyMs, g.CandidateCount,
	)
	return err
}

func (s *Store) RecentGenerations(limit int) ([]Generation, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, slot_id, main_category, sub_category, outcome, reason, latency_ms, candidate_count
		FROM generations ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Generation
	for rows.Next() {
		var g Generation
		var createdAt string
		if err := rows.Scan(&g.ID, &createdAt, &g.SlotID, &g.MainCategory, &g.SubCategory, &g.Outcome, &g.Reason, &g.LatencyMs, &g.CandidateCount); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		g.CreatedAt = t
		results = append(results, g)
	}
	return results, rows.Err()
}

// CountGenerationsByOutcome returns how many generations ended with each
// outcome.
func (s *Store) CountGenerationsByOutcome() (map[string]int, error) {
	rows, err := s.db.Query("SELECT outcome, COUNT(*) FROM generations GROUP BY outcome")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		result[outcome] = n
	}
	return result, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
