package alertlog

import (
	"context"
	"fmt"
	"time"
)

// Entry is one dispatched alert recorded for history.
type Entry struct {
	ID           string    `db:"id"`
	SubscriberID int64     `db:"subscriber_id"`
	Kind         string    `db:"kind"`
	Entity       string    `db:"entity"`
	Payload      []byte    `db:"payload"`
	CreatedAt    time.Time `db:"created_at"`
}

// Repo persists dispatched alerts to PostgreSQL.
type Repo struct {
	db *DB
}

// NewRepo creates an alert history repository.
func NewRepo(db *DB) *Repo {
	return &Repo{db: db}
}

// Insert records one dispatched alert.
func (r *Repo) Insert(ctx context.Context, e *Entry) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO alert_history (id, subscriber_id, kind, entity, payload, created_at)
		VALUES (:id, :subscriber_id, :kind, :entity, :payload, :created_at)`, e)
	if err != nil {
		return fmt.Errorf("failed to insert alert history entry: %w", err)
	}
	return nil
}

// DeleteOlderThan removes entries created before the threshold and reports
// how many rows were deleted.
func (r *Repo) DeleteOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM alert_history WHERE created_at < $1`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to prune alert history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned alert history rows: %w", err)
	}
	return n, nil
}

// Recent returns the newest entries for a subscriber, newest first.
func (r *Repo) Recent(ctx context.Context, subscriberID int64, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []*Entry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, subscriber_id, kind, entity, payload, created_at
		FROM alert_history
		WHERE subscriber_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, subscriberID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert history: %w", err)
	}
	return entries, nil
}
