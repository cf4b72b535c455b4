package storage

import (
	"database/sql"
	"embed"
	"errors"
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

// timeLayout is fixed-width so stored timestamps sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store wraps a SQLite database holding dev-server accounts and their records.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database.
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "smartlearn-dev.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// One connection: ":memory:" databases are per-connection, and it avoids
	// "database is locked" errors for files.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies embedded SQL migrations that haven't been run yet.
func (s *Store) migrate() error {
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

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	return time.Parse(timeLayout, raw)
}

// --- Users ---

func (s *Store) CreateUser(u User) error {
	provider := u.AuthProvider
	if provider == "" {
		provider = "password"
	}
	_, err := s.db.Exec(`
		INSERT INTO users (id, username, email, password_hash, profile_picture, auth_provider, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.ProfilePicture, provider, formatTime(u.CreatedAt),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicate
	}
	return err
}

const userColumns = `id, username, email, password_hash, profile_picture, auth_provider, created_at, last_login`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	var createdAt string
	var lastLogin sql.NullString
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.ProfilePicture, &u.AuthProvider, &createdAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return User{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if lastLogin.Valid {
		if u.LastLogin, err = parseTime(lastLogin.String); err != nil {
			return User{}, fmt.Errorf("parsing last_login: %w", err)
		}
	}
	return u, nil
}

// GetUserByEmail looks a user up case-insensitively.
func (s *Store) GetUserByEmail(email string) (User, error) {
	return scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (s *Store) GetUser(id string) (User, error) {
	return scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (s *Store) SetPasswordHash(email, hash string) error {
	return s.execOne(`UPDATE users SET password_hash = ? WHERE email = ?`, hash, email)
}

func (s *Store) TouchLogin(id string, at time.Time) error {
	return s.execOne(`UPDATE users SET last_login = ? WHERE id = ?`, formatTime(at), id)
}

// --- Records ---

// SaveRecord inserts r, or replaces the payload of an existing record with
// the same user, kind and id.
func (s *Store) SaveRecord(r Record) error {
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	updated := r.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	_, err := s.db.Exec(`
		INSERT INTO records (id, user_id, kind, payload_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, kind, id) DO UPDATE SET payload_json = excluded.payload_json, updated_at = excluded.updated_at`,
		r.ID, r.UserID, string(r.Kind), r.PayloadJSON, formatTime(created), formatTime(updated),
	)
	return err
}

const recordColumns = `id, user_id, kind, payload_json, created_at, updated_at`

func scanRecord(row interface{ Scan(...any) error }) (Record, error) {
	var r Record
	var kind, createdAt, updatedAt string
	err := row.Scan(&r.ID, &r.UserID, &kind, &r.PayloadJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	r.Kind = Kind(kind)
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return Record{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Record{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return r, nil
}

func (s *Store) GetRecord(userID string, kind Kind, id string) (Record, error) {
	return scanRecord(s.db.QueryRow(`SELECT `+recordColumns+` FROM records WHERE user_id = ? AND kind = ? AND id = ?`,
		userID, string(kind), id))
}

// ListRecords returns up to limit records of a kind, newest first unless
// oldestFirst is set.
func (s *Store) ListRecords(userID string, kind Kind, limit int, oldestFirst bool) ([]Record, error) {
	order := "DESC"
	if oldestFirst {
		order = "ASC"
	}
	rows, err := s.db.Query(`SELECT `+recordColumns+` FROM records
		WHERE user_id = ? AND kind = ?
		ORDER BY created_at `+order+`, rowid `+order+` LIMIT ?`,
		userID, string(kind), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *Store) CountRecords(userID string, kind Kind) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM records WHERE user_id = ? AND kind = ?`, userID, string(kind)).Scan(&n)
	return n, err
}

func (s *Store) DeleteRecord(userID string, kind Kind, id string) error {
	return s.execOne(`DELETE FROM records WHERE user_id = ? AND kind = ? AND id = ?`, userID, string(kind), id)
}

// DeleteRecords removes every record of a kind and returns how many were removed.
func (s *Store) DeleteRecords(userID string, kind Kind) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM records WHERE user_id = ? AND kind = ?`, userID, string(kind))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// execOne runs a statement that must touch exactly one row.
func (s *Store) execOne(query string, args ...any) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
