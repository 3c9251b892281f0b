// internal/store/drafts.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/models"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/status"
)

// DraftStore persists decision proposal drafts, one per application,
// created lazily on first access.
type DraftStore struct {
	db *sql.DB
}

func NewDraftStore(db *sql.DB) *DraftStore {
	return &DraftStore{db: db}
}

const draftColumns = `application_id, review_step, status, granted_as_de_minimis,
	log_entry_comment, decision_text, justification_text,
	decision_maker_id, decision_maker_name, signer_id, signer_name, updated_at`

// GetOrCreate returns the application's draft, inserting a fresh step-1
// draft if none exists yet.
func (s *DraftStore) GetOrCreate(ctx context.Context, applicationID string) (*models.DecisionProposalDraft, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+draftColumns+` FROM decision_proposal_drafts WHERE application_id = $1`, applicationID)

	draft, err := scanDraft(row)
	if err == nil {
		return draft, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("get draft: %w", err)
	}

	fresh := &models.DecisionProposalDraft{
		ApplicationID: applicationID,
		ReviewStep:    status.ReviewStepDecision,
		UpdatedAt:     time.Now().UTC(),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO decision_proposal_drafts (application_id, review_step, updated_at) VALUES ($1, $2, $3)`,
		fresh.ApplicationID, fresh.ReviewStep, fresh.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}
	return fresh, nil
}

// Save writes the draft back, validating the review step transition.
func (s *DraftStore) Save(ctx context.Context, current *models.DecisionProposalDraft, updated *models.DecisionProposalDraft) error {
	if err := status.Validate(status.EntityDecisionDraft, current.ReviewStep, updated.ReviewStep, false); err != nil {
		return err
	}

	var deMinimis sql.NullBool
	if updated.GrantedAsDeMinimis != nil {
		deMinimis = sql.NullBool{Bool: *updated.GrantedAsDeMinimis, Valid: true}
	}

	updated.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		UPDATE decision_proposal_drafts
		SET review_step = $1, status = $2, granted_as_de_minimis = $3, log_entry_comment = $4,
		    decision_text = $5, justification_text = $6,
		    decision_maker_id = $7, decision_maker_name = $8, signer_id = $9, signer_name = $10,
		    updated_at = $11
		WHERE application_id = $12`,
		updated.ReviewStep, updated.Status, deMinimis, updated.LogEntryComment,
		updated.DecisionText, updated.JustificationText,
		updated.DecisionMakerID, updated.DecisionMakerName, updated.SignerID, updated.SignerName,
		updated.UpdatedAt, updated.ApplicationID)
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// FreezeDecisionText stores the immutable decision text record produced at
// review submission.
func (s *DraftStore) FreezeDecisionText(ctx context.Context, text *models.DecisionText) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decision_texts (application_id, decision_text, justification_text,
		                            decision_maker_id, signer_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		text.ApplicationID, text.DecisionText, text.JustificationText,
		text.DecisionMakerID, text.SignerID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("freeze decision text: %w", err)
	}
	return nil
}

// GetCalculation fetches the application's calculation, required for
// accepted decisions before submission or dispatch.
func (s *DraftStore) GetCalculation(ctx context.Context, applicationID string) (*models.Calculation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT application_id, total_amount, granted_as_de_minimis, start_date, end_date
		FROM calculations WHERE application_id = $1`, applicationID)

	var c models.Calculation
	err := row.Scan(&c.ApplicationID, &c.TotalAmount, &c.GrantedAsDeMinimis, &c.StartDate, &c.EndDate)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no calculation for application %s", ErrNotFound, applicationID)
	}
	if err != nil {
		return nil, fmt.Errorf("get calculation: %w", err)
	}
	return &c, nil
}

func scanDraft(row interface{ Scan(...interface{}) error }) (*models.DecisionProposalDraft, error) {
	var d models.DecisionProposalDraft
	var st, comment, decisionText, justification sql.NullString
	var makerID, makerName, signerID, signerName sql.NullString
	var deMinimis sql.NullBool
	err := row.Scan(&d.ApplicationID, &d.ReviewStep, &st, &deMinimis,
		&comment, &decisionText, &justification,
		&makerID, &makerName, &signerID, &signerName, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.Status = st.String
	d.LogEntryComment = comment.String
	d.DecisionText = decisionText.String
	d.JustificationText = justification.String
	d.DecisionMakerID = makerID.String
	d.DecisionMakerName = makerName.String
	d.SignerID = signerID.String
	d.SignerName = signerName.String
	if deMinimis.Valid {
		d.GrantedAsDeMinimis = &deMinimis.Bool
	}
	return &d, nil
}
