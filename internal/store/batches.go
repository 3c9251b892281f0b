// internal/store/batches.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/models"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/status"
)

// BatchStore persists application batches.
type BatchStore struct {
	db *sql.DB
}

func NewBatchStore(db *sql.DB) *BatchStore {
	return &BatchStore{db: db}
}

const batchColumns = `id, status, proposal_for_decision, decision_date,
	decision_maker_name, decision_maker_title, section_of_the_law, created_at`

func scanBatch(row interface{ Scan(...interface{}) error }) (*models.ApplicationBatch, error) {
	var b models.ApplicationBatch
	var decisionDate sql.NullTime
	var makerName, makerTitle, section sql.NullString
	err := row.Scan(&b.ID, &b.Status, &b.ProposalForDecision, &decisionDate,
		&makerName, &makerTitle, &section, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	if decisionDate.Valid {
		b.DecisionDate = &decisionDate.Time
	}
	b.DecisionMakerName = makerName.String
	b.DecisionMakerTitle = makerTitle.String
	b.SectionOfTheLaw = section.String
	return &b, nil
}

// GetByID fetches one batch.
func (s *BatchStore) GetByID(ctx context.Context, id string) (*models.ApplicationBatch, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM application_batches WHERE id = $1`, id)
	b, err := scanBatch(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: batch %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return b, nil
}

// SetStatus transitions the batch's status after validation.
func (s *BatchStore) SetStatus(ctx context.Context, batch *models.ApplicationBatch, proposed status.BatchStatus) error {
	if err := status.Validate(status.EntityBatch, string(batch.Status), string(proposed), false); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE application_batches SET status = $1 WHERE id = $2`, string(proposed), batch.ID)
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	batch.Status = proposed
	return nil
}

// RejectByTalpa moves the batch and every listed application to the
// payment-system rejection status in one transaction. A crash mid-update
// must never leave the batch rejected while its applications stay accepted,
// or the other way round.
func (s *BatchStore) RejectByTalpa(ctx context.Context, batch *models.ApplicationBatch, apps []*models.Application) error {
	if err := status.Validate(status.EntityBatch, string(batch.Status), string(status.BatchRejectedByTalpa), false); err != nil {
		return err
	}
	appIDs := make([]string, len(apps))
	for i, app := range apps {
		if err := status.Validate(status.EntityApplication, string(app.Status), string(status.AppRejectedByTalpa), false); err != nil {
			return err
		}
		appIDs[i] = app.ID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin payment rejection tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE application_batches SET status = $1 WHERE id = $2`,
		string(status.BatchRejectedByTalpa), batch.ID); err != nil {
		return fmt.Errorf("reject batch: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE applications SET status = $1, updated_at = $2 WHERE id = ANY($3)`,
		string(status.AppRejectedByTalpa), time.Now().UTC(), pq.Array(appIDs)); err != nil {
		return fmt.Errorf("reject applications: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit payment rejection tx: %w", err)
	}

	batch.Status = status.BatchRejectedByTalpa
	for _, app := range apps {
		app.Status = status.AppRejectedByTalpa
	}
	return nil
}
