package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/models"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/status"
)

func newMockDraftStore(t *testing.T) (*DraftStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewDraftStore(db), mock
}

func draftRow(step string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"application_id", "review_step", "status", "granted_as_de_minimis",
		"log_entry_comment", "decision_text", "justification_text",
		"decision_maker_id", "decision_maker_name", "signer_id", "signer_name", "updated_at",
	}).AddRow("app-1", step, nil, nil, nil, nil, nil, nil, nil, nil, nil, time.Now())
}

func TestDraftStore_GetOrCreate_Existing(t *testing.T) {
	store, mock := newMockDraftStore(t)

	mock.ExpectQuery(`FROM decision_proposal_drafts WHERE application_id = \$1`).
		WithArgs("app-1").
		WillReturnRows(draftRow(status.ReviewStepOutcome))

	draft, err := store.GetOrCreate(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, status.ReviewStepOutcome, draft.ReviewStep)
	assert.Nil(t, draft.GrantedAsDeMinimis)
}

func TestDraftStore_GetOrCreate_CreatesLazily(t *testing.T) {
	store, mock := newMockDraftStore(t)

	mock.ExpectQuery(`FROM decision_proposal_drafts WHERE application_id = \$1`).
		WithArgs("app-new").
		WillReturnRows(sqlmock.NewRows([]string{"application_id"}))
	mock.ExpectExec(`INSERT INTO decision_proposal_drafts \(application_id, review_step, updated_at\)`).
		WithArgs("app-new", status.ReviewStepDecision, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	draft, err := store.GetOrCreate(context.Background(), "app-new")
	require.NoError(t, err)
	assert.Equal(t, status.ReviewStepDecision, draft.ReviewStep)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDraftStore_Save_ValidatesStepTransition(t *testing.T) {
	store, mock := newMockDraftStore(t)

	current := &models.DecisionProposalDraft{ApplicationID: "app-1", ReviewStep: status.ReviewStepDecision}
	// Step 1 cannot jump straight to step 3.
	updated := &models.DecisionProposalDraft{ApplicationID: "app-1", ReviewStep: status.ReviewStepText}

	err := store.Save(context.Background(), current, updated)
	require.Error(t, err)
	var terr *status.TransitionError
	assert.True(t, errors.As(err, &terr))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDraftStore_Save(t *testing.T) {
	store, mock := newMockDraftStore(t)

	current := &models.DecisionProposalDraft{ApplicationID: "app-1", ReviewStep: status.ReviewStepDecision}
	deMinimis := true
	updated := &models.DecisionProposalDraft{
		ApplicationID:      "app-1",
		ReviewStep:         status.ReviewStepOutcome,
		Status:             models.DraftStatusAccepted,
		GrantedAsDeMinimis: &deMinimis,
	}

	mock.ExpectExec(`UPDATE decision_proposal_drafts`).
		WithArgs(status.ReviewStepOutcome, models.DraftStatusAccepted, sqlmock.AnyArg(), "",
			"", "", "", "", "", "", sqlmock.AnyArg(), "app-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Save(context.Background(), current, updated))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDraftStore_GetCalculation_NotFound(t *testing.T) {
	store, mock := newMockDraftStore(t)

	mock.ExpectQuery(`FROM calculations WHERE application_id = \$1`).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"application_id"}))

	_, err := store.GetCalculation(context.Background(), "app-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
