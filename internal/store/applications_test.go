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

// ==========================
// Test Helper Functions
// ==========================

func newMockDB(t *testing.T) (*ApplicationStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewApplicationStore(db), mock
}

func testApplication(id string, st status.ApplicationStatus) *models.Application {
	return &models.Application{
		ID:                  id,
		ApplicationNumber:   125010,
		CompanyName:         "Acme Oy",
		Status:              st,
		HandledByAutomation: true,
	}
}

func applicationRow(id string, number int, st status.ApplicationStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "application_number", "company_name", "status", "case_id", "case_guid",
		"batch_id", "handled_by_automation", "benefit_start_date", "benefit_end_date",
		"created_at", "updated_at",
	}).AddRow(id, number, "Acme Oy", string(st), nil, nil, nil, true, now, now.AddDate(0, 6, 0), now, now)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestApplicationStore_GetByID(t *testing.T) {
	store, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT .+ FROM applications WHERE id = \$1`).
		WithArgs("app-1").
		WillReturnRows(applicationRow("app-1", 125010, status.AppReceived))

	app, err := store.GetByID(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, "app-1", app.ID)
	assert.Equal(t, 125010, app.ApplicationNumber)
	assert.Equal(t, status.AppReceived, app.Status)
	assert.Empty(t, app.CaseID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationStore_GetByID_NotFound(t *testing.T) {
	store, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT .+ FROM applications WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplicationStore_SetStatus(t *testing.T) {
	tests := []struct {
		name     string
		from     status.ApplicationStatus
		to       status.ApplicationStatus
		expectDB bool
		wantErr  bool
	}{
		{
			name:     "legal transition hits the database",
			from:     status.AppReceived,
			to:       status.AppHandling,
			expectDB: true,
		},
		{
			name:    "illegal transition never reaches the database",
			from:    status.AppDraft,
			to:      status.AppAccepted,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockDB(t)
			app := testApplication("app-1", tt.from)

			if tt.expectDB {
				mock.ExpectExec(`UPDATE applications SET status = \$1, updated_at = \$2 WHERE id = \$3`).
					WithArgs(string(tt.to), sqlmock.AnyArg(), "app-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			}

			err := store.SetStatus(context.Background(), app, tt.to)
			if tt.wantErr {
				require.Error(t, err)
				var terr *status.TransitionError
				assert.True(t, errors.As(err, &terr))
				assert.Equal(t, tt.from, status.ApplicationStatus(app.Status))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.to, app.Status)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestApplicationStore_AssignCase(t *testing.T) {
	store, mock := newMockDB(t)

	mock.ExpectExec(`UPDATE applications SET case_id = \$1, case_guid = \$2, updated_at = \$3\s+WHERE id = \$4 AND case_id IS NULL`).
		WithArgs("HEL 2026-004123", "guid-1", sqlmock.AnyArg(), "app-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.AssignCase(context.Background(), "app-1", "HEL 2026-004123", "guid-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationStore_AssignCase_AlreadyAssigned(t *testing.T) {
	store, mock := newMockDB(t)

	// Zero rows affected means the WHERE case_id IS NULL guard tripped.
	mock.ExpectExec(`UPDATE applications SET case_id = \$1`).
		WithArgs("HEL 2026-004123", "guid-1", sqlmock.AnyArg(), "app-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.AssignCase(context.Background(), "app-1", "HEL 2026-004123", "guid-1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already has a case id")
}

func TestApplicationStore_ListEligible(t *testing.T) {
	store, mock := newMockDB(t)

	rows := applicationRow("app-1", 125010, status.AppReceived)
	now := time.Now()
	rows.AddRow("app-2", 125011, "Umbrella Oy", string(status.AppHandling),
		nil, nil, nil, true, now, now.AddDate(0, 6, 0), now, now)

	mock.ExpectQuery(`SELECT .+ FROM applications a\s+JOIN integration_statuses i ON .+MAX\(id\).+AND a\.case_id IS NULL.+ORDER BY a\.application_number`).
		WillReturnRows(rows)

	apps, err := store.ListEligible(context.Background(), EligibilityFilter{
		AppStatuses:     []status.ApplicationStatus{status.AppReceived, status.AppHandling},
		AhjoStatuses:    []status.AhjoStatus{status.AhjoSubmittedNotSent},
		RequireNoCaseID: true,
	})
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "app-1", apps[0].ID)
	assert.Equal(t, "app-2", apps[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationStore_ListEligible_BatchDecisionClause(t *testing.T) {
	store, mock := newMockDB(t)

	mock.ExpectQuery(`EXISTS \(\s+SELECT 1 FROM application_batches b\s+WHERE b\.id = a\.batch_id\s+AND b\.decision_date IS NOT NULL`).
		WillReturnRows(applicationRow("app-3", 125012, status.AppAccepted))

	apps, err := store.ListEligible(context.Background(), EligibilityFilter{
		AppStatuses:          []status.ApplicationStatus{status.AppAccepted, status.AppRejected},
		AhjoStatuses:         []status.AhjoStatus{status.AhjoCaseOpened},
		RequireBatchDecision: true,
	})
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "app-3", apps[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
