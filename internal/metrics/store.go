package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Endpoint identifies the API surface a usage count belongs to.
type Endpoint string

const (
	EndpointSearch   Endpoint = "search"
	EndpointStats    Endpoint = "stats"
	EndpointDocument Endpoint = "document"
	EndpointMCP      Endpoint = "mcp"
)

// Endpoints lists every tracked endpoint in reporting order.
var Endpoints = []Endpoint{EndpointSearch, EndpointStats, EndpointDocument, EndpointMCP}

const dateLayout = "2006-01-02"

// DailyCount is one (endpoint, date) row of the usage table.
type DailyCount struct {
	Endpoint Endpoint `json:"endpoint" yaml:"endpoint"`
	Date     string   `json:"date" yaml:"date"`
	Count    int64    `json:"count" yaml:"count"`
}

// Store manages SQLite persistence for per-day usage counts.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// DefaultStorePath returns ~/.mailscope/usage.db, creating the directory.
func DefaultStorePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".mailscope")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create .mailscope directory: %w", err)
	}

	return filepath.Join(dir, "usage.db"), nil
}

// NewStore opens (or creates) the usage database at path. An empty path
// selects DefaultStorePath.
func NewStore(path string) (*Store, error) {
	if path == "" {
		var err error
		path, err = DefaultStorePath()
		if err != nil {
			return nil, err
		}
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create usage database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS usage_counts (
			endpoint TEXT NOT NULL,
			date TEXT NOT NULL,
			count INTEGER DEFAULT 0,
			PRIMARY KEY (endpoint, date)
		);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Increment adds one to today's count for endpoint.
func (s *Store) Increment(ctx context.Context, endpoint Endpoint) error {
	today := s.now().UTC().Format(dateLayout)

	upsertSQL := `
		INSERT INTO usage_counts (endpoint, date, count)
		VALUES (?, ?, 1)
		ON CONFLICT(endpoint, date) DO UPDATE SET count = count + 1;
	`
	if _, err := s.db.ExecContext(ctx, upsertSQL, string(endpoint), today); err != nil {
		return fmt.Errorf("failed to increment count: %w", err)
	}

	return nil
}

// GetAllTotals returns cumulative counts for every endpoint. Endpoints
// never recorded report zero.
func (s *Store) GetAllTotals(ctx context.Context) (map[Endpoint]int64, error) {
	result := make(map[Endpoint]int64, len(Endpoints))
	for _, endpoint := range Endpoints {
		result[endpoint] = 0
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT endpoint, COALESCE(SUM(count), 0) FROM usage_counts GROUP BY endpoint",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var total int64
		if err := rows.Scan(&name, &total); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result[Endpoint(name)] = total
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

// GetCountByDate returns the count for an endpoint on a YYYY-MM-DD date.
func (s *Store) GetCountByDate(ctx context.Context, endpoint Endpoint, date string) (int64, error) {
	var count int64
	row := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(count, 0) FROM usage_counts WHERE endpoint = ? AND date = ?",
		string(endpoint), date,
	)
	if err := row.Scan(&count); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get count: %w", err)
	}
	return count, nil
}

// GetDailyCounts returns the rows of the last days days (today included),
// newest first.
func (s *Store) GetDailyCounts(ctx context.Context, days int) ([]DailyCount, error) {
	if days < 1 {
		days = 1
	}
	since := s.now().UTC().AddDate(0, 0, -(days - 1)).Format(dateLayout)

	rows, err := s.db.QueryContext(ctx,
		"SELECT endpoint, date, count FROM usage_counts WHERE date >= ? ORDER BY date DESC, endpoint ASC",
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily counts: %w", err)
	}
	defer rows.Close()

	var out []DailyCount
	for rows.Next() {
		var row DailyCount
		var name string
		if err := rows.Scan(&name, &row.Date, &row.Count); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row.Endpoint = Endpoint(name)
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return out, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
