// internal/store/audit.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AuditStore records read events. The payment system acknowledging an
// application is an audit fact, not a state change, so successes land here
// instead of the status log.
type AuditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

// RecordRead notes that an external party processed the application.
func (s *AuditStore) RecordRead(ctx context.Context, applicationID, actor string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO read_events (application_id, actor, created_at)
		VALUES ($1, $2, $3)`,
		applicationID, actor, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record read event: %w", err)
	}
	return nil
}

// CountReads returns how many read events the application has, used by
// tests and the admin surface.
func (s *AuditStore) CountReads(ctx context.Context, applicationID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM read_events WHERE application_id = $1`, applicationID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count read events: %w", err)
	}
	return n, nil
}
