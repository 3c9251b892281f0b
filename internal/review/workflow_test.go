package review

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/logger"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/models"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/status"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/store"
)

// ==========================
// Test Doubles
// ==========================

type fakeDraftRepo struct {
	draft  *models.DecisionProposalDraft
	calc   *models.Calculation
	frozen []*models.DecisionText
	saved  *models.DecisionProposalDraft
}

func (f *fakeDraftRepo) GetOrCreate(_ context.Context, applicationID string) (*models.DecisionProposalDraft, error) {
	if f.draft == nil {
		f.draft = &models.DecisionProposalDraft{
			ApplicationID: applicationID,
			ReviewStep:    status.ReviewStepDecision,
		}
	}
	return f.draft, nil
}

func (f *fakeDraftRepo) Save(_ context.Context, current, updated *models.DecisionProposalDraft) error {
	if err := status.Validate(status.EntityDecisionDraft, current.ReviewStep, updated.ReviewStep, false); err != nil {
		return err
	}
	f.saved = updated
	f.draft = updated
	return nil
}

func (f *fakeDraftRepo) FreezeDecisionText(_ context.Context, text *models.DecisionText) error {
	f.frozen = append(f.frozen, text)
	return nil
}

func (f *fakeDraftRepo) GetCalculation(_ context.Context, applicationID string) (*models.Calculation, error) {
	if f.calc == nil {
		return nil, fmt.Errorf("%w: no calculation for application %s", store.ErrNotFound, applicationID)
	}
	return f.calc, nil
}

func boolPtr(b bool) *bool { return &b }

func reviewApp() *models.Application {
	return &models.Application{
		ID:                "app-1",
		ApplicationNumber: 125010,
		CompanyName:       "Acme Oy",
		Status:            status.AppHandling,
	}
}

func validTextDraft(st string, step string) *models.DecisionProposalDraft {
	d := &models.DecisionProposalDraft{
		ApplicationID:     "app-1",
		ReviewStep:        step,
		Status:            st,
		DecisionText:      "Myönnetään tuki yritykselle {company}.",
		JustificationText: "Perustelut päätökselle tähän.",
		DecisionMakerID:   "dm-1",
	}
	if st == models.DraftStatusAccepted {
		d.GrantedAsDeMinimis = boolPtr(true)
	} else {
		d.LogEntryComment = "puutteelliset edellytykset"
	}
	return d
}

func newWorkflow(repo *fakeDraftRepo) *Workflow {
	return NewWorkflow(repo, logger.NewNoOpLogger())
}

// ==========================
// Tests
// ==========================

func TestWorkflow_Step2RejectedNeedsLogComment(t *testing.T) {
	repo := &fakeDraftRepo{draft: &models.DecisionProposalDraft{
		ApplicationID: "app-1", ReviewStep: status.ReviewStepDecision,
	}}
	w := newWorkflow(repo)

	updated := &models.DecisionProposalDraft{
		ApplicationID: "app-1",
		ReviewStep:    status.ReviewStepOutcome,
		Status:        models.DraftStatusRejected,
	}
	err := w.Advance(context.Background(), reviewApp(), updated)
	require.Error(t, err)

	verr, ok := err.(*ValidationErrors)
	require.True(t, ok)
	assert.True(t, verr.HasField("log_entry_comment"))
	assert.Nil(t, repo.saved)
}

func TestWorkflow_Step2AcceptedNeedsDeMinimis(t *testing.T) {
	repo := &fakeDraftRepo{draft: &models.DecisionProposalDraft{
		ApplicationID: "app-1", ReviewStep: status.ReviewStepDecision,
	}}
	w := newWorkflow(repo)

	updated := &models.DecisionProposalDraft{
		ApplicationID: "app-1",
		ReviewStep:    status.ReviewStepOutcome,
		Status:        models.DraftStatusAccepted,
	}
	err := w.Advance(context.Background(), reviewApp(), updated)
	require.Error(t, err)

	verr, ok := err.(*ValidationErrors)
	require.True(t, ok)
	assert.True(t, verr.HasField("granted_as_de_minimis"))
}

func TestWorkflow_Step3AggregatesAllViolations(t *testing.T) {
	repo := &fakeDraftRepo{draft: &models.DecisionProposalDraft{
		ApplicationID: "app-1", ReviewStep: status.ReviewStepOutcome,
		Status: models.DraftStatusAccepted, GrantedAsDeMinimis: boolPtr(false),
	}}
	w := newWorkflow(repo)

	updated := &models.DecisionProposalDraft{
		ApplicationID:      "app-1",
		ReviewStep:         status.ReviewStepText,
		Status:             models.DraftStatusAccepted,
		GrantedAsDeMinimis: boolPtr(false),
		DecisionText:       "lyhyt",
		JustificationText:  "",
	}
	err := w.Advance(context.Background(), reviewApp(), updated)
	require.Error(t, err)

	verr, ok := err.(*ValidationErrors)
	require.True(t, ok)
	// All three violations surface in one pass.
	assert.True(t, verr.HasField("decision_text"))
	assert.True(t, verr.HasField("justification_text"))
	assert.True(t, verr.HasField("decision_maker_id"))
	assert.Len(t, verr.Errors, 3)
}

func TestWorkflow_Step4AcceptedWithoutCalculationFailsBeforeFreezing(t *testing.T) {
	repo := &fakeDraftRepo{draft: validTextDraft(models.DraftStatusAccepted, status.ReviewStepText)}
	w := newWorkflow(repo)

	updated := validTextDraft(models.DraftStatusAccepted, status.ReviewStepSubmitted)
	err := w.Advance(context.Background(), reviewApp(), updated)
	require.Error(t, err)

	verr, ok := err.(*ValidationErrors)
	require.True(t, ok)
	assert.True(t, verr.HasField("calculation"))
	// No DecisionText record may exist after the failure.
	assert.Empty(t, repo.frozen)
	assert.Nil(t, repo.saved)
}

func TestWorkflow_SubmitFreezesRenderedText(t *testing.T) {
	repo := &fakeDraftRepo{
		draft: validTextDraft(models.DraftStatusAccepted, status.ReviewStepText),
		calc:  &models.Calculation{ApplicationID: "app-1", TotalAmount: 4600.50},
	}
	w := newWorkflow(repo)

	updated := validTextDraft(models.DraftStatusAccepted, status.ReviewStepSubmitted)
	require.NoError(t, w.Advance(context.Background(), reviewApp(), updated))

	require.Len(t, repo.frozen, 1)
	assert.Equal(t, "Myönnetään tuki yritykselle Acme Oy.", repo.frozen[0].DecisionText)
	assert.Equal(t, "dm-1", repo.frozen[0].DecisionMakerID)
	require.NotNil(t, repo.saved)
	assert.Equal(t, status.ReviewStepSubmitted, repo.saved.ReviewStep)
}

func TestWorkflow_RejectedSubmissionNeedsNoCalculation(t *testing.T) {
	repo := &fakeDraftRepo{draft: validTextDraft(models.DraftStatusRejected, status.ReviewStepText)}
	w := newWorkflow(repo)

	updated := validTextDraft(models.DraftStatusRejected, status.ReviewStepSubmitted)
	require.NoError(t, w.Advance(context.Background(), reviewApp(), updated))
	assert.Len(t, repo.frozen, 1)
}

func TestWorkflow_RevisitingEarlierStepAllowed(t *testing.T) {
	repo := &fakeDraftRepo{draft: validTextDraft(models.DraftStatusAccepted, status.ReviewStepText)}
	w := newWorkflow(repo)

	// Going back to step 1 drops the later-step requirements.
	updated := &models.DecisionProposalDraft{
		ApplicationID: "app-1",
		ReviewStep:    status.ReviewStepDecision,
	}
	require.NoError(t, w.Advance(context.Background(), reviewApp(), updated))
	assert.Equal(t, status.ReviewStepDecision, repo.saved.ReviewStep)
}

func TestWorkflow_SubmittedStepIsTerminal(t *testing.T) {
	repo := &fakeDraftRepo{
		draft: validTextDraft(models.DraftStatusRejected, status.ReviewStepSubmitted),
	}
	w := newWorkflow(repo)

	updated := validTextDraft(models.DraftStatusRejected, status.ReviewStepText)
	err := w.Advance(context.Background(), reviewApp(), updated)
	require.Error(t, err)
	assert.Nil(t, repo.saved)
}
