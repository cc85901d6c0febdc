// Package cache stores reporting query responses in an embedded DuckDB
// database so repeat same-day deliveries do not re-query the provider.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb"
)

// Client is a DuckDB-backed query cache keyed by content hash.
type Client struct {
	db   *sql.DB
	path string
}

// Open creates or opens the cache database under dir.
func Open(dir string) (*Client, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	path := filepath.Join(dir, "gazette.db")
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB connection: %w", err)
	}

	client := &Client{db: db, path: path}
	if err := client.initializeTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache tables: %w", err)
	}
	return client, nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *Client) initializeTables() error {
	_, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS query_cache (
		query_hash VARCHAR PRIMARY KEY,
		query_params TEXT NOT NULL,   -- JSON-encoded query descriptor
		result_data TEXT NOT NULL,    -- JSON-encoded response
		created_at TIMESTAMP DEFAULT NOW(),
		expires_at TIMESTAMP NOT NULL,
		last_accessed TIMESTAMP DEFAULT NOW()
	)`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Get retrieves a cached response if present and unexpired.
func (c *Client) Get(ctx context.Context, queryHash string, result interface{}) (bool, error) {
	var data string
	var expiresAt time.Time

	err := c.db.QueryRowContext(ctx, `
		SELECT result_data, expires_at
		FROM query_cache
		WHERE query_hash = ?
	`, queryHash).Scan(&data, &expiresAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to query cache: %w", err)
	}

	if time.Now().After(expiresAt) {
		c.db.ExecContext(ctx, `DELETE FROM query_cache WHERE query_hash = ?`, queryHash)
		return false, nil
	}

	c.db.ExecContext(ctx, `
		UPDATE query_cache
		SET last_accessed = NOW()
		WHERE query_hash = ?
	`, queryHash)

	if err := json.Unmarshal([]byte(data), result); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached data: %w", err)
	}
	return true, nil
}

// Put stores a response with a TTL.
func (c *Client) Put(ctx context.Context, queryHash string, params, result interface{}, ttl time.Duration) error {
	jsonParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal query params: %w", err)
	}
	jsonData, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result data: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO query_cache
		(query_hash, query_params, result_data, expires_at)
		VALUES (?, ?, ?, ?)
	`, queryHash, string(jsonParams), string(jsonData), time.Now().Add(ttl))
	return err
}

// Cleanup removes expired entries and reports how many were deleted.
func (c *Client) Cleanup(ctx context.Context) (int, error) {
	result, err := c.db.ExecContext(ctx, `DELETE FROM query_cache WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	deleted, _ := result.RowsAffected()
	return int(deleted), nil
}
