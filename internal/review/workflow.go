// Package review implements the four step decision proposal wizard the
// handlers walk through before a proposal can be dispatched. Steps are
// re-entrant until submission; validation reports every violation at once
// so the UI can mark all offending fields in one round trip.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/logger"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/dispatch"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/models"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/status"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/store"
)

const minDecisionTextLength = 8

// FieldError names one offending draft field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationErrors aggregates every violation found in one pass.
type ValidationErrors struct {
	Errors []FieldError
}

func (v *ValidationErrors) Error() string {
	var parts []string
	for _, fe := range v.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "draft validation failed: " + strings.Join(parts, "; ")
}

// HasField reports whether the aggregate names the given field.
func (v *ValidationErrors) HasField(field string) bool {
	for _, fe := range v.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// DraftRepository is the persistence surface the workflow needs.
type DraftRepository interface {
	GetOrCreate(ctx context.Context, applicationID string) (*models.DecisionProposalDraft, error)
	Save(ctx context.Context, current, updated *models.DecisionProposalDraft) error
	FreezeDecisionText(ctx context.Context, text *models.DecisionText) error
	GetCalculation(ctx context.Context, applicationID string) (*models.Calculation, error)
}

// Workflow advances a draft through the wizard.
type Workflow struct {
	drafts DraftRepository
	log    logger.Logger
}

func NewWorkflow(drafts DraftRepository, log logger.Logger) *Workflow {
	return &Workflow{drafts: drafts, log: log}
}

// Get returns the application's draft, creating a step-1 draft on first
// access.
func (w *Workflow) Get(ctx context.Context, applicationID string) (*models.DecisionProposalDraft, error) {
	return w.drafts.GetOrCreate(ctx, applicationID)
}

// Advance validates the updated draft against its target step and saves
// it. Moving to step 4 submits the draft: it requires a calculation for
// accepted decisions and freezes the rendered decision text before the
// submitted step is recorded.
func (w *Workflow) Advance(ctx context.Context, app *models.Application, updated *models.DecisionProposalDraft) error {
	current, err := w.drafts.GetOrCreate(ctx, app.ID)
	if err != nil {
		return err
	}

	if verr := validateForStep(updated); verr != nil {
		return verr
	}

	if updated.ReviewStep == status.ReviewStepSubmitted {
		if err := w.submit(ctx, app, updated); err != nil {
			return err
		}
	}

	if err := w.drafts.Save(ctx, current, updated); err != nil {
		return err
	}
	w.log.Info("decision draft advanced", map[string]interface{}{
		"application_id": app.ID,
		"review_step":    updated.ReviewStep,
	})
	return nil
}

// submit performs the step-4-only work. Validation failures here must
// happen before any DecisionText row exists.
func (w *Workflow) submit(ctx context.Context, app *models.Application, draft *models.DecisionProposalDraft) error {
	rc := dispatch.RenderContext{Application: app}
	if draft.Status == models.DraftStatusAccepted {
		calc, err := w.drafts.GetCalculation(ctx, app.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return &ValidationErrors{Errors: []FieldError{
					{Field: "calculation", Message: "accepted decision requires a calculation"},
				}}
			}
			return err
		}
		rc.Calculation = calc
	}

	decisionText, err := dispatch.Render(draft.DecisionText, rc)
	if err != nil {
		return err
	}
	justification, err := dispatch.Render(draft.JustificationText, rc)
	if err != nil {
		return err
	}

	return w.drafts.FreezeDecisionText(ctx, &models.DecisionText{
		ApplicationID:     app.ID,
		DecisionText:      decisionText,
		JustificationText: justification,
		DecisionMakerID:   draft.DecisionMakerID,
		SignerID:          draft.SignerID,
	})
}

// validateForStep applies the cumulative step preconditions. Step 1 has
// none; each later step includes everything before it.
func validateForStep(draft *models.DecisionProposalDraft) *ValidationErrors {
	step := draft.ReviewStep
	var errs []FieldError

	if step >= status.ReviewStepOutcome {
		switch draft.Status {
		case models.DraftStatusAccepted:
			if draft.GrantedAsDeMinimis == nil {
				errs = append(errs, FieldError{Field: "granted_as_de_minimis", Message: "must be set for accepted decisions"})
			}
		case models.DraftStatusRejected:
			if strings.TrimSpace(draft.LogEntryComment) == "" {
				errs = append(errs, FieldError{Field: "log_entry_comment", Message: "required for rejected decisions"})
			}
		default:
			errs = append(errs, FieldError{Field: "status", Message: "a decision outcome must be selected"})
		}
	}

	if step >= status.ReviewStepText {
		if len(strings.TrimSpace(draft.DecisionText)) < minDecisionTextLength {
			errs = append(errs, FieldError{Field: "decision_text", Message: "must be at least 8 characters"})
		}
		if len(strings.TrimSpace(draft.JustificationText)) < minDecisionTextLength {
			errs = append(errs, FieldError{Field: "justification_text", Message: "must be at least 8 characters"})
		}
		if draft.DecisionMakerID == "" {
			errs = append(errs, FieldError{Field: "decision_maker_id", Message: "a decision maker must be chosen"})
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return &ValidationErrors{Errors: errs}
}
