// internal/store/instalments.go
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/models"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/status"
)

// InstalmentStore reads and updates payment instalments. Status changes go
// through the transition validator like every other tracked entity.
type InstalmentStore struct {
	db *sql.DB
}

func NewInstalmentStore(db *sql.DB) *InstalmentStore {
	return &InstalmentStore{db: db}
}

func (s *InstalmentStore) GetByID(ctx context.Context, id string) (*models.PaymentInstalment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, application_id, status, amount, due_date, created_at
		FROM payment_instalments WHERE id = $1`, id)

	var inst models.PaymentInstalment
	err := row.Scan(&inst.ID, &inst.ApplicationID, &inst.Status, &inst.Amount, &inst.DueDate, &inst.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: instalment %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get instalment: %w", err)
	}
	return &inst, nil
}

func (s *InstalmentStore) ListByApplication(ctx context.Context, applicationID string) ([]*models.PaymentInstalment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, application_id, status, amount, due_date, created_at
		FROM payment_instalments WHERE application_id = $1 ORDER BY due_date`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("list instalments: %w", err)
	}
	defer rows.Close()

	var out []*models.PaymentInstalment
	for rows.Next() {
		var inst models.PaymentInstalment
		if err := rows.Scan(&inst.ID, &inst.ApplicationID, &inst.Status, &inst.Amount, &inst.DueDate, &inst.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan instalment: %w", err)
		}
		out = append(out, &inst)
	}
	return out, rows.Err()
}

// SetStatus validates the transition before touching the row.
func (s *InstalmentStore) SetStatus(ctx context.Context, inst *models.PaymentInstalment, proposed status.InstalmentStatus) error {
	if err := status.Validate(status.EntityInstalment, string(inst.Status), string(proposed), false); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE payment_instalments SET status = $1 WHERE id = $2`, proposed, inst.ID)
	if err != nil {
		return fmt.Errorf("update instalment status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update instalment status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: instalment %s", ErrNotFound, inst.ID)
	}
	inst.Status = proposed
	return nil
}
