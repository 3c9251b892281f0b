// Package store contains the Postgres and Redis persistence layer. All
// status writes go through the transition validator; repositories never
// bypass it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/models"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/status"
)

var ErrNotFound = errors.New("NOT_FOUND")

// EligibilityFilter is the persisted-state half of a dispatch predicate:
// acceptable application statuses, acceptable latest integration statuses,
// and whether the application must still lack a case id.
type EligibilityFilter struct {
	AppStatuses          []status.ApplicationStatus
	AhjoStatuses         []status.AhjoStatus
	RequireNoCaseID      bool
	RequireBatchDecision bool
}

// ApplicationStore persists applications.
type ApplicationStore struct {
	db *sql.DB
}

func NewApplicationStore(db *sql.DB) *ApplicationStore {
	return &ApplicationStore{db: db}
}

const applicationColumns = `id, application_number, company_name, status, case_id, case_guid,
	batch_id, handled_by_automation, benefit_start_date, benefit_end_date, created_at, updated_at`

func scanApplication(row interface{ Scan(...interface{}) error }) (*models.Application, error) {
	var app models.Application
	var caseID, caseGUID, batchID sql.NullString
	err := row.Scan(
		&app.ID, &app.ApplicationNumber, &app.CompanyName, &app.Status,
		&caseID, &caseGUID, &batchID, &app.HandledByAutomation,
		&app.BenefitStartDate, &app.BenefitEndDate, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	app.CaseID = caseID.String
	app.CaseGUID = caseGUID.String
	app.BatchID = batchID.String
	return &app, nil
}

// GetByID fetches one application by uuid.
func (s *ApplicationStore) GetByID(ctx context.Context, id string) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	app, err := scanApplication(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: application %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	return app, nil
}

// GetByNumber fetches one application by its human-facing number, used by
// the payment system callback which identifies applications numerically.
func (s *ApplicationStore) GetByNumber(ctx context.Context, number int) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE application_number = $1`, number)
	app, err := scanApplication(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: application number %d", ErrNotFound, number)
	}
	if err != nil {
		return nil, fmt.Errorf("get application by number: %w", err)
	}
	return app, nil
}

// SetStatus transitions the application's status after validation.
func (s *ApplicationStore) SetStatus(ctx context.Context, app *models.Application, proposed status.ApplicationStatus) error {
	if err := status.Validate(status.EntityApplication, string(app.Status), string(proposed), false); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE applications SET status = $1, updated_at = $2 WHERE id = $3`,
		string(proposed), time.Now().UTC(), app.ID)
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	app.Status = proposed
	return nil
}

// AssignCase records the case identifiers handed back by the case system.
// The case id is assigned exactly once.
func (s *ApplicationStore) AssignCase(ctx context.Context, appID, caseID, caseGUID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE applications SET case_id = $1, case_guid = $2, updated_at = $3
		 WHERE id = $4 AND case_id IS NULL`,
		caseID, caseGUID, time.Now().UTC(), appID)
	if err != nil {
		return fmt.Errorf("assign case: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("assign case: application %s already has a case id", appID)
	}
	return nil
}

// ListEligible returns the applications matching a dispatch predicate,
// joining each application against its latest integration status row.
// Only applications opted into automated handling are considered.
func (s *ApplicationStore) ListEligible(ctx context.Context, filter EligibilityFilter) ([]*models.Application, error) {
	appStatuses := make([]string, len(filter.AppStatuses))
	for i, st := range filter.AppStatuses {
		appStatuses[i] = string(st)
	}
	ahjoStatuses := make([]string, len(filter.AhjoStatuses))
	for i, st := range filter.AhjoStatuses {
		ahjoStatuses[i] = string(st)
	}

	query := `
		SELECT ` + prefixColumns("a", applicationColumns) + `
		FROM applications a
		JOIN integration_statuses i ON i.application_id = a.id
			AND i.id = (SELECT MAX(id) FROM integration_statuses WHERE application_id = a.id)
		WHERE a.handled_by_automation = TRUE
			AND a.status = ANY($1)
			AND i.status = ANY($2)`
	if filter.RequireNoCaseID {
		query += ` AND a.case_id IS NULL`
	}
	if filter.RequireBatchDecision {
		query += `
			AND a.batch_id IS NOT NULL
			AND EXISTS (
				SELECT 1 FROM application_batches b
				WHERE b.id = a.batch_id
					AND b.decision_date IS NOT NULL
					AND b.decision_maker_name <> ''
			)`
	}
	query += ` ORDER BY a.application_number`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(appStatuses), pq.Array(ahjoStatuses))
	if err != nil {
		return nil, fmt.Errorf("list eligible applications: %w", err)
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan eligible application: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func prefixColumns(alias, columns string) string {
	out := ""
	for i, col := range splitColumns(columns) {
		if i > 0 {
			out += ", "
		}
		out += alias + "." + col
	}
	return out
}

func splitColumns(columns string) []string {
	var out []string
	field := ""
	for _, r := range columns {
		switch r {
		case ',':
			out = append(out, field)
			field = ""
		case ' ', '\n', '\t':
			// skip whitespace between column names
		default:
			field += string(r)
		}
	}
	if field != "" {
		out = append(out, field)
	}
	return out
}
