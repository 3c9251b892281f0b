// internal/store/integrationlog.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/models"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/status"
)

// IntegrationLog is the append-only record of an application's progress
// through case system interactions. The highest-id row per application is
// the authoritative "latest" status. Rows are never rewritten; the only
// in-place mutation is attaching an error to the latest row, because an
// error annotates an attempt rather than representing a new state.
type IntegrationLog struct {
	db *sql.DB
}

func NewIntegrationLog(db *sql.DB) *IntegrationLog {
	return &IntegrationLog{db: db}
}

// Append adds a new latest row for the application.
func (l *IntegrationLog) Append(ctx context.Context, applicationID string, st status.AhjoStatus) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO integration_statuses (application_id, status, created_at) VALUES ($1, $2, $3)`,
		applicationID, string(st), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("append integration status: %w", err)
	}
	return nil
}

// Latest returns the authoritative current integration status row.
func (l *IntegrationLog) Latest(ctx context.Context, applicationID string) (*models.IntegrationStatus, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, application_id, status, error_id, error_context, error_message,
		       validation_error_id, validation_error_context, validation_error_message, created_at
		FROM integration_statuses
		WHERE application_id = $1
		ORDER BY id DESC
		LIMIT 1`, applicationID)

	var rec models.IntegrationStatus
	var errID, errCtx, errMsg sql.NullString
	var valID, valCtx, valMsg sql.NullString
	err := row.Scan(&rec.ID, &rec.ApplicationID, &rec.Status,
		&errID, &errCtx, &errMsg, &valID, &valCtx, &valMsg, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no integration status for application %s", ErrNotFound, applicationID)
	}
	if err != nil {
		return nil, fmt.Errorf("latest integration status: %w", err)
	}
	if errID.Valid {
		rec.Error = &models.IntegrationError{ID: errID.String, Context: errCtx.String, Message: errMsg.String}
	}
	if valID.Valid {
		rec.ValidationError = &models.IntegrationError{ID: valID.String, Context: valCtx.String, Message: valMsg.String}
	}
	return &rec, nil
}

// WriteError attaches an operational error to the application's latest row.
func (l *IntegrationLog) WriteError(ctx context.Context, applicationID string, e models.IntegrationError) error {
	return l.writeError(ctx, applicationID, "error", e)
}

// WriteValidationError attaches a case system validation error to the
// latest row. Validation failures use a separate column because they are
// surfaced differently to handlers than operational failures.
func (l *IntegrationLog) WriteValidationError(ctx context.Context, applicationID string, e models.IntegrationError) error {
	return l.writeError(ctx, applicationID, "validation_error", e)
}

func (l *IntegrationLog) writeError(ctx context.Context, applicationID, column string, e models.IntegrationError) error {
	query := fmt.Sprintf(`
		UPDATE integration_statuses
		SET %[1]s_id = $1, %[1]s_context = $2, %[1]s_message = $3
		WHERE id = (SELECT MAX(id) FROM integration_statuses WHERE application_id = $4)`, column)

	res, err := l.db.ExecContext(ctx, query, e.ID, e.Context, e.Message, applicationID)
	if err != nil {
		return fmt.Errorf("write integration %s: %w", column, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: no integration status for application %s", ErrNotFound, applicationID)
	}
	return nil
}
