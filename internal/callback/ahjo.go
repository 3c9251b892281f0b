// internal/callback/ahjo.go
package callback

import (
	"context"
	"fmt"

	stderrors "github.com/City-of-Helsinki/yjdh-sub002/internal/common/errors"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/logger"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/metrics"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/models"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/status"
)

// ApplicationWriter is what the reconciler needs from the application store.
type ApplicationWriter interface {
	GetByID(ctx context.Context, id string) (*models.Application, error)
	SetStatus(ctx context.Context, app *models.Application, proposed status.ApplicationStatus) error
	AssignCase(ctx context.Context, appID, caseID, caseGUID string) error
}

// StatusLog is what the reconciler needs from the integration log.
type StatusLog interface {
	Latest(ctx context.Context, applicationID string) (*models.IntegrationStatus, error)
	Append(ctx context.Context, applicationID string, st status.AhjoStatus) error
	WriteError(ctx context.Context, applicationID string, e models.IntegrationError) error
	WriteValidationError(ctx context.Context, applicationID string, e models.IntegrationError) error
}

const recordStatusRejected = "rejected"

// AhjoReconciler applies case system callbacks to local state. A callback
// that does not line up with the application's latest integration status is
// logged and discarded: the external system may redeliver, and a stale
// delivery must not corrupt state that has already moved on.
type AhjoReconciler struct {
	apps   ApplicationWriter
	log    StatusLog
	events Publisher
	logger logger.Logger
}

func NewAhjoReconciler(apps ApplicationWriter, log StatusLog, events Publisher, l logger.Logger) *AhjoReconciler {
	if events == nil {
		events = NopPublisher{}
	}
	return &AhjoReconciler{apps: apps, log: log, events: events, logger: l}
}

// Handle reconciles one callback for the identified application.
// A nil return covers both a successful advance and a logged discard.
func (r *AhjoReconciler) Handle(ctx context.Context, applicationID string, cb *AhjoCallback) error {
	app, err := r.apps.GetByID(ctx, applicationID)
	if err != nil {
		metrics.CallbacksTotal.WithLabelValues("ahjo", "unknown_application").Inc()
		return stderrors.NewApplicationNotFoundError(applicationID)
	}
	latest, err := r.log.Latest(ctx, applicationID)
	if err != nil {
		metrics.CallbacksTotal.WithLabelValues("ahjo", "error").Inc()
		return fmt.Errorf("load latest integration status: %w", err)
	}

	if cb.Message == MessageFailure {
		return r.handleFailure(ctx, app, cb)
	}
	return r.handleSuccess(ctx, app, latest, cb)
}

// handleFailure writes the reported details onto the latest row. Details
// typed "validation" go to the validation column handlers see in the UI;
// everything else is an operational error. State never advances here.
func (r *AhjoReconciler) handleFailure(ctx context.Context, app *models.Application, cb *AhjoCallback) error {
	for _, detail := range cb.FailureDetails {
		e := models.IntegrationError{ID: detail.ID, Context: detail.Context, Message: detail.Message}
		var err error
		if detail.Type == "validation" {
			err = r.log.WriteValidationError(ctx, app.ID, e)
		} else {
			err = r.log.WriteError(ctx, app.ID, e)
		}
		if err != nil {
			metrics.CallbacksTotal.WithLabelValues("ahjo", "error").Inc()
			return fmt.Errorf("write failure detail: %w", err)
		}
	}
	metrics.CallbacksTotal.WithLabelValues("ahjo", "failure_recorded").Inc()
	r.logger.Warn("case system reported failure", map[string]interface{}{
		"application_id": app.ID,
		"request_id":     cb.RequestID,
		"detail_count":   len(cb.FailureDetails),
	})
	return nil
}

func (r *AhjoReconciler) handleSuccess(ctx context.Context, app *models.Application, latest *models.IntegrationStatus, cb *AhjoCallback) error {
	switch latest.Status {
	case status.AhjoOpenCaseRequestSent:
		return r.caseOpened(ctx, app, cb)
	case status.AhjoUpdateRequestSent, status.AhjoNewRecordRequestSent:
		// Acknowledged content change; the case simply stays open.
		return r.advance(ctx, app, status.AhjoCaseOpened)
	case status.AhjoDecisionProposalSent:
		return r.proposalDecided(ctx, app, cb)
	case status.AhjoDeleteRequestSent:
		if err := r.advance(ctx, app, status.AhjoCaseDeleted); err != nil {
			return err
		}
		r.events.Publish(ctx, CaseDeleted{ApplicationID: app.ID, CaseID: app.CaseID})
		return nil
	default:
		return r.discard(app, latest, cb)
	}
}

func (r *AhjoReconciler) caseOpened(ctx context.Context, app *models.Application, cb *AhjoCallback) error {
	if cb.CaseID == "" {
		return r.discard(app, nil, cb)
	}
	if err := r.apps.AssignCase(ctx, app.ID, cb.CaseID, cb.CaseGUID); err != nil {
		metrics.CallbacksTotal.WithLabelValues("ahjo", "error").Inc()
		return err
	}
	if err := r.advance(ctx, app, status.AhjoCaseOpened); err != nil {
		return err
	}
	r.events.Publish(ctx, CaseOpened{
		ApplicationID:     app.ID,
		ApplicationNumber: app.ApplicationNumber,
		CaseID:            cb.CaseID,
	})
	return nil
}

// proposalDecided applies the decision maker's verdict. A rejected proposal
// also moves the application back to handling so the handler can revise it.
func (r *AhjoReconciler) proposalDecided(ctx context.Context, app *models.Application, cb *AhjoCallback) error {
	rejected := false
	for _, rec := range cb.Records {
		if rec.Status == recordStatusRejected {
			rejected = true
			break
		}
	}

	if rejected {
		if err := r.advance(ctx, app, status.AhjoDecisionProposalRejected); err != nil {
			return err
		}
		if err := r.apps.SetStatus(ctx, app, status.AppHandling); err != nil {
			metrics.CallbacksTotal.WithLabelValues("ahjo", "error").Inc()
			return err
		}
		r.events.Publish(ctx, DecisionProposalRejected{
			ApplicationID:     app.ID,
			ApplicationNumber: app.ApplicationNumber,
			CaseID:            app.CaseID,
		})
		return nil
	}

	if err := r.advance(ctx, app, status.AhjoDecisionProposalAccepted); err != nil {
		return err
	}
	r.events.Publish(ctx, DecisionProposalAccepted{
		ApplicationID:     app.ID,
		ApplicationNumber: app.ApplicationNumber,
		CaseID:            app.CaseID,
	})
	return nil
}

func (r *AhjoReconciler) advance(ctx context.Context, app *models.Application, st status.AhjoStatus) error {
	if err := r.log.Append(ctx, app.ID, st); err != nil {
		metrics.CallbacksTotal.WithLabelValues("ahjo", "error").Inc()
		return fmt.Errorf("append integration status: %w", err)
	}
	metrics.CallbacksTotal.WithLabelValues("ahjo", "success").Inc()
	return nil
}

// discard logs the mismatch and drops the callback. Returning nil makes the
// handler answer 200, which stops the external system from redelivering a
// callback that can never apply.
func (r *AhjoReconciler) discard(app *models.Application, latest *models.IntegrationStatus, cb *AhjoCallback) error {
	fields := map[string]interface{}{
		"application_id": app.ID,
		"request_id":     cb.RequestID,
	}
	detail := fmt.Sprintf("request %s does not apply to application %s", cb.RequestID, app.ID)
	if latest != nil {
		fields["latest_status"] = string(latest.Status)
		detail = fmt.Sprintf("%s in status %s", detail, latest.Status)
	}
	r.logger.WithError(stderrors.NewReconciliationError(detail)).
		Warn("callback does not match local state, discarding", fields)
	metrics.CallbacksTotal.WithLabelValues("ahjo", "discarded").Inc()
	return nil
}
