// internal/store/retention.go
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// RetentionStore removes applications that reached a terminal state longer
// ago than the retention window, together with their dependent rows. Runs
// from the daily scheduler job.
type RetentionStore struct {
	db *sql.DB
}

func NewRetentionStore(db *sql.DB) *RetentionStore {
	return &RetentionStore{db: db}
}

// terminalAppStatuses are the application states retention applies to. Only
// fully settled applications age out; anything still in flight is kept.
var terminalAppStatuses = []string{"cancelled", "accepted", "rejected"}

// PurgeAged deletes applications whose last update predates the retention
// window. Dependent tables go first so the deletes stay self-contained, all
// inside one transaction. Returns the number of applications removed.
func (s *RetentionStore) PurgeAged(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin retention tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM applications
		WHERE status = ANY($1)
		  AND updated_at < NOW() - ($2 * INTERVAL '1 day')`,
		pq.Array(terminalAppStatuses), retentionDays)
	if err != nil {
		return 0, fmt.Errorf("select aged applications: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan aged application: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("select aged applications: %w", err)
	}
	if len(ids) == 0 {
		return 0, tx.Commit()
	}

	dependents := []string{
		`DELETE FROM integration_statuses WHERE application_id = ANY($1)`,
		`DELETE FROM decision_proposal_drafts WHERE application_id = ANY($1)`,
		`DELETE FROM decision_texts WHERE application_id = ANY($1)`,
		`DELETE FROM payment_instalments WHERE application_id = ANY($1)`,
		`DELETE FROM read_events WHERE application_id = ANY($1)`,
	}
	for _, q := range dependents {
		if _, err := tx.ExecContext(ctx, q, pq.Array(ids)); err != nil {
			return 0, fmt.Errorf("purge dependents: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM applications WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("purge applications: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge applications: %w", err)
	}

	// Batches with no remaining applications have nothing left to settle.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM application_batches b
		WHERE NOT EXISTS (SELECT 1 FROM applications a WHERE a.batch_id = b.id)`); err != nil {
		return 0, fmt.Errorf("purge empty batches: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit retention tx: %w", err)
	}
	return n, nil
}
