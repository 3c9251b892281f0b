package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/models"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/status"
)

func newMockIntegrationLog(t *testing.T) (*IntegrationLog, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewIntegrationLog(db), mock
}

func TestIntegrationLog_Append(t *testing.T) {
	log, mock := newMockIntegrationLog(t)

	mock.ExpectExec(`INSERT INTO integration_statuses \(application_id, status, created_at\)`).
		WithArgs("app-1", string(status.AhjoOpenCaseRequestSent), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, log.Append(context.Background(), "app-1", status.AhjoOpenCaseRequestSent))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIntegrationLog_Latest(t *testing.T) {
	log, mock := newMockIntegrationLog(t)

	rows := sqlmock.NewRows([]string{
		"id", "application_id", "status", "error_id", "error_context", "error_message",
		"validation_error_id", "validation_error_context", "validation_error_message", "created_at",
	}).AddRow(int64(42), "app-1", string(status.AhjoCaseOpened),
		nil, nil, nil, nil, nil, nil, time.Now())

	mock.ExpectQuery(`FROM integration_statuses\s+WHERE application_id = \$1\s+ORDER BY id DESC\s+LIMIT 1`).
		WithArgs("app-1").
		WillReturnRows(rows)

	rec, err := log.Latest(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), rec.ID)
	assert.Equal(t, status.AhjoCaseOpened, rec.Status)
	assert.Nil(t, rec.Error)
	assert.Nil(t, rec.ValidationError)
}

func TestIntegrationLog_Latest_WithAttachedError(t *testing.T) {
	log, mock := newMockIntegrationLog(t)

	rows := sqlmock.NewRows([]string{
		"id", "application_id", "status", "error_id", "error_context", "error_message",
		"validation_error_id", "validation_error_context", "validation_error_message", "created_at",
	}).AddRow(int64(43), "app-1", string(status.AhjoOpenCaseRequestSent),
		"err-1", "openCase", "upstream returned 500", nil, nil, nil, time.Now())

	mock.ExpectQuery(`ORDER BY id DESC`).WithArgs("app-1").WillReturnRows(rows)

	rec, err := log.Latest(context.Background(), "app-1")
	require.NoError(t, err)
	require.NotNil(t, rec.Error)
	assert.Equal(t, "err-1", rec.Error.ID)
	assert.Equal(t, "openCase", rec.Error.Context)
	assert.Nil(t, rec.ValidationError)
}

func TestIntegrationLog_WriteError_TargetsLatestRowOnly(t *testing.T) {
	log, mock := newMockIntegrationLog(t)

	mock.ExpectExec(`UPDATE integration_statuses\s+SET error_id = \$1, error_context = \$2, error_message = \$3\s+WHERE id = \(SELECT MAX\(id\) FROM integration_statuses WHERE application_id = \$4\)`).
		WithArgs("err-1", "openCase", "boom", "app-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := log.WriteError(context.Background(), "app-1",
		models.IntegrationError{ID: "err-1", Context: "openCase", Message: "boom"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIntegrationLog_WriteValidationError_SeparateColumns(t *testing.T) {
	log, mock := newMockIntegrationLog(t)

	mock.ExpectExec(`SET validation_error_id = \$1, validation_error_context = \$2, validation_error_message = \$3`).
		WithArgs("err-2", "validateCase", "missing handler", "app-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := log.WriteValidationError(context.Background(), "app-1",
		models.IntegrationError{ID: "err-2", Context: "validateCase", Message: "missing handler"})
	require.NoError(t, err)
}

func TestIntegrationLog_WriteError_NoRows(t *testing.T) {
	log, mock := newMockIntegrationLog(t)

	mock.ExpectExec(`UPDATE integration_statuses`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := log.WriteError(context.Background(), "app-missing",
		models.IntegrationError{ID: "err-1"})
	assert.ErrorIs(t, err, ErrNotFound)
}
