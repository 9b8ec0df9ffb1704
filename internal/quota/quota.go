// Package quota implements the daily usage counter described in spec §6:
// "a document keyed by date storing an atomic counter count with warnings
// at 80% and 95% of 1000/day", used by the Turkish-market proxy collector
// to track its own call volume against an upstream quota. Grounded on the
// teacher's internal/database package (a thin *sql.DB wrapper) for storage.
package quota

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketcore/internal/database"
)

// DefaultDailyLimit is the upstream quota the counter warns against.
const DefaultDailyLimit = 1000

// WarnThreshold and CriticalThreshold are the fractions of DefaultDailyLimit
// at which Increment logs a warning (spec §6: 80% and 95%).
const (
	WarnThreshold     = 0.80
	CriticalThreshold = 0.95
)

// Counter tracks a per-day atomic call counter for one named proxy source.
type Counter struct {
	db    *database.DB
	name  string
	limit int
	log   zerolog.Logger
}

// NewCounter wires a Counter to an already-open database and ensures its
// table exists.
func NewCounter(db *database.DB, name string, limit int, log zerolog.Logger) (*Counter, error) {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	c := &Counter{db: db, name: name, limit: limit, log: log.With().Str("component", "quota").Str("source", name).Logger()}
	if err := c.migrate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Counter) migrate() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS quota_counters (
			source TEXT NOT NULL,
			day TEXT NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (source, day)
		)`)
	return err
}

// Increment atomically bumps today's counter by one and returns the new
// count, logging a warning at the configured thresholds.
func (c *Counter) Increment(ctx context.Context, now time.Time) (int, error) {
	day := now.UTC().Format("2006-01-02")
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("quota: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO quota_counters (source, day, count) VALUES (?, ?, 1)
		ON CONFLICT(source, day) DO UPDATE SET count = count + 1`, c.name, day)
	if err != nil {
		return 0, fmt.Errorf("quota: upsert: %w", err)
	}

	var count int
	err = tx.QueryRowContext(ctx, `SELECT count FROM quota_counters WHERE source = ? AND day = ?`, c.name, day).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("quota: read back: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("quota: commit: %w", err)
	}

	fraction := float64(count) / float64(c.limit)
	switch {
	case fraction >= CriticalThreshold:
		c.log.Warn().Int("count", count).Int("limit", c.limit).Msg("quota at or above 95% of daily limit")
	case fraction >= WarnThreshold:
		c.log.Warn().Int("count", count).Int("limit", c.limit).Msg("quota at or above 80% of daily limit")
	}
	return count, nil
}

// Count returns today's counter value without incrementing it.
func (c *Counter) Count(ctx context.Context, now time.Time) (int, error) {
	day := now.UTC().Format("2006-01-02")
	var count int
	err := c.db.QueryRowContext(ctx, `SELECT count FROM quota_counters WHERE source = ? AND day = ?`, c.name, day).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("quota: read: %w", err)
	}
	return count, nil
}
