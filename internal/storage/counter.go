package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

const usageKey = "usage_count"

// UsageCount returns the current usage counter, or 0 when absent.
func (d *DB) UsageCount() (int64, error) {
	var value int64
	err := d.db.QueryRow(`SELECT value FROM stats WHERE key = ?`, usageKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read usage count: %v", err)
	}
	return value, nil
}

// IncrementUsage performs a read-increment-write and returns the new value.
// Not compare-and-swap: concurrent increments may lose an update, which is
// acceptable for a vanity counter.
func (d *DB) IncrementUsage() (int64, error) {
	count, err := d.UsageCount()
	if err != nil {
		return 0, err
	}

	count++
	_, err = d.db.Exec(
		`INSERT OR REPLACE INTO stats (key, value) VALUES (?, ?)`, usageKey, count)
	if err != nil {
		return 0, fmt.Errorf("failed to write usage count: %v", err)
	}
	return count, nil
}
