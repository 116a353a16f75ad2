package alerting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/meimefarm/greenhouse-core/internal/infrastructure/database"
)

// Record is one dispatched alert digest, persisted for the audit trail.
type Record struct {
	ID         int64
	SentAt     time.Time
	Codes      []string // alert codes in rule order
	Message    string   // full digest body as sent
	SnapshotTs int64    // TimestampMs of the evaluated snapshot
}

// HistoryRepository stores dispatched digests in the gateway's SQLite
// database.
type HistoryRepository struct {
	db *database.DB
}

// NewHistoryRepository creates a repository backed by db. The
// alert_history table is created by the embedded migrations.
func NewHistoryRepository(db *database.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// RecordDispatch inserts one dispatched digest.
func (r *HistoryRepository) RecordDispatch(ctx context.Context, rec Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alert_history (sent_at, codes, message, snapshot_ts)
		VALUES (?, ?, ?, ?)
	`,
		rec.SentAt.UTC().Format(time.RFC3339),
		strings.Join(rec.Codes, ","),
		rec.Message,
		rec.SnapshotTs,
	)
	if err != nil {
		return fmt.Errorf("inserting alert record: %w", err)
	}
	return nil
}

// Recent returns the most recently dispatched digests, newest first.
func (r *HistoryRepository) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sent_at, codes, message, snapshot_ts
		FROM alert_history
		ORDER BY sent_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying alert history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var sentAt, codes string
		if err := rows.Scan(&rec.ID, &sentAt, &codes, &rec.Message, &rec.SnapshotTs); err != nil {
			return nil, fmt.Errorf("scanning alert record: %w", err)
		}
		rec.SentAt, _ = time.Parse(time.RFC3339, sentAt)
		if codes != "" {
			rec.Codes = strings.Split(codes, ",")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alert history: %w", err)
	}
	return records, nil
}

// Prune deletes records dispatched before cutoff and returns the number
// of rows removed. Run periodically to bound the history table.
func (r *HistoryRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM alert_history WHERE sent_at < ?",
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning alert history: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned rows: %w", err)
	}
	return deleted, nil
}
