package procurement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// ErrInvalidInput marks a record that is missing required fields.
var ErrInvalidInput = errors.New("invalid input")

// Request is a part the agent was asked to procure.
type Request struct {
	ID        string    `json:"id"`
	Part      string    `json:"part_to_acquire"`
	Postcode  string    `json:"location_postcode"`
	CreatedAt time.Time `json:"timestamp"`
}

// Reservation is the outcome the agent records at the end of a shop call.
type Reservation struct {
	ID            string    `json:"id"`
	ItemAvailable bool      `json:"item_available"`
	Price         float64   `json:"price"`
	PickupTime    string    `json:"reserved_pickup_time"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store persists requests and reservations in SQLite.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// Open opens (and creates if needed) the database at path.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for concurrent readers
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger.With().Str("component", "procurement-store").Logger(),
		now:    time.Now,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS requests (
			id TEXT PRIMARY KEY,
			part TEXT NOT NULL,
			postcode TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_requests_created ON requests(created_at);

		CREATE TABLE IF NOT EXISTS reservations (
			id TEXT PRIMARY KEY,
			item_available INTEGER NOT NULL,
			price REAL NOT NULL,
			pickup_time TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_reservations_created ON reservations(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRequest records a procurement request.
func (s *Store) SaveRequest(ctx context.Context, part, postcode string) (*Request, error) {
	part = strings.TrimSpace(part)
	postcode = strings.TrimSpace(postcode)
	if part == "" || postcode == "" {
		return nil, fmt.Errorf("%w: part_to_acquire and location_postcode are required", ErrInvalidInput)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate request ID: %w", err)
	}

	r := &Request{ID: id, Part: part, Postcode: postcode, CreatedAt: s.now().UTC()}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO requests (id, part, postcode, created_at) VALUES (?, ?, ?, ?)`,
		r.ID, r.Part, r.Postcode, r.CreatedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to save request: %w", err)
	}

	s.logger.Info().Str("id", r.ID).Str("part", r.Part).Str("postcode", r.Postcode).Msg("Procurement request saved")
	return r, nil
}

// ListRequests returns up to limit requests, newest first. limit <= 0 means all.
func (s *Store) ListRequests(ctx context.Context, limit int) ([]Request, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, part, postcode, created_at FROM requests
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	requests := []Request{}
	for rows.Next() {
		var r Request
		var created int64
		if err := rows.Scan(&r.ID, &r.Part, &r.Postcode, &created); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		r.CreatedAt = time.UnixMilli(created).UTC()
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// SaveReservation records a call outcome. ID and CreatedAt are assigned.
func (s *Store) SaveReservation(ctx context.Context, res Reservation) (*Reservation, error) {
	res.PickupTime = strings.TrimSpace(res.PickupTime)
	if res.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if res.ItemAvailable && res.PickupTime == "" {
		return nil, fmt.Errorf("%w: reserved_pickup_time is required when the item is available", ErrInvalidInput)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate reservation ID: %w", err)
	}
	res.ID = id
	res.CreatedAt = s.now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reservations (id, item_available, price, pickup_time, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		res.ID, res.ItemAvailable, res.Price, res.PickupTime, res.Notes, res.CreatedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to save reservation: %w", err)
	}

	s.logger.Info().
		Str("id", res.ID).
		Bool("available", res.ItemAvailable).
		Float64("price", res.Price).
		Str("pickup_time", res.PickupTime).
		Msg("Reservation saved")
	return &res, nil
}

// ListReservations returns up to limit reservations, newest first.
func (s *Store) ListReservations(ctx context.Context, limit int) ([]Reservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, item_available, price, pickup_time, notes, created_at FROM reservations
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	reservations := []Reservation{}
	for rows.Next() {
		var r Reservation
		var created int64
		if err := rows.Scan(&r.ID, &r.ItemAvailable, &r.Price, &r.PickupTime, &r.Notes, &created); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		r.CreatedAt = time.UnixMilli(created).UTC()
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}

// Purge deletes records created before olderThan and returns how many went.
func (s *Store) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	cutoff := olderThan.UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin purge: %w", err)
	}
	defer tx.Rollback()

	var total int64
	for _, table := range []string{"requests", "reservations"} {
		res, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE created_at < ?", cutoff)
		if err != nil {
			return 0, fmt.Errorf("failed to purge %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit purge: %w", err)
	}
	return total, nil
}

// sqlLimit maps "no limit" to SQLite's -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
