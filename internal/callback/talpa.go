// internal/callback/talpa.go
package callback

import (
	"context"
	"fmt"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/logger"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/metrics"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/models"
)

// ApplicationReader resolves the payment system's numeric application ids.
type ApplicationReader interface {
	GetByNumber(ctx context.Context, number int) (*models.Application, error)
}

// BatchRejecter performs the transactional batch rejection.
type BatchRejecter interface {
	GetByID(ctx context.Context, id string) (*models.ApplicationBatch, error)
	RejectByTalpa(ctx context.Context, batch *models.ApplicationBatch, apps []*models.Application) error
}

// ReadAuditor records that the payment system processed an application.
type ReadAuditor interface {
	RecordRead(ctx context.Context, applicationID, actor string) error
}

const talpaActor = "talpa"

// TalpaReconciler applies the payment system's batch result. Successes are
// audit facts only; failures reject the owning batch and every failed
// application in one transaction, or not at all.
type TalpaReconciler struct {
	apps    ApplicationReader
	batches BatchRejecter
	audit   ReadAuditor
	events  Publisher
	logger  logger.Logger
}

func NewTalpaReconciler(apps ApplicationReader, batches BatchRejecter, audit ReadAuditor,
	events Publisher, l logger.Logger) *TalpaReconciler {
	if events == nil {
		events = NopPublisher{}
	}
	return &TalpaReconciler{apps: apps, batches: batches, audit: audit, events: events, logger: l}
}

// Handle reconciles one payment system callback.
func (r *TalpaReconciler) Handle(ctx context.Context, cb *TalpaCallback) error {
	for _, number := range cb.SuccessfulApplications {
		app, err := r.apps.GetByNumber(ctx, number)
		if err != nil {
			// An unknown success is an inconsistency worth logging but no
			// reason to reject the rest of the callback.
			r.logger.Warn("payment success for unknown application", map[string]interface{}{
				"application_number": number,
			})
			continue
		}
		if err := r.audit.RecordRead(ctx, app.ID, talpaActor); err != nil {
			metrics.CallbacksTotal.WithLabelValues("talpa", "error").Inc()
			return fmt.Errorf("record payment read event: %w", err)
		}
	}

	if len(cb.FailedApplications) > 0 {
		if err := r.rejectFailed(ctx, cb.FailedApplications); err != nil {
			return err
		}
	}

	metrics.CallbacksTotal.WithLabelValues("talpa", "success").Inc()
	return nil
}

// rejectFailed resolves the failed numbers to applications and their owning
// batch. When the batch cannot be determined the whole group is skipped and
// logged; a partial rejection is worse than a late one.
func (r *TalpaReconciler) rejectFailed(ctx context.Context, numbers []int) error {
	var apps []*models.Application
	batchID := ""
	for _, number := range numbers {
		app, err := r.apps.GetByNumber(ctx, number)
		if err != nil {
			r.logger.Error("payment failure references unknown application, skipping group", map[string]interface{}{
				"application_number": number,
			})
			metrics.CallbacksTotal.WithLabelValues("talpa", "inconsistent").Inc()
			return nil
		}
		if app.BatchID == "" {
			r.logger.Error("failed application has no batch, skipping group", map[string]interface{}{
				"application_id":     app.ID,
				"application_number": number,
			})
			metrics.CallbacksTotal.WithLabelValues("talpa", "inconsistent").Inc()
			return nil
		}
		if batchID == "" {
			batchID = app.BatchID
		} else if batchID != app.BatchID {
			r.logger.Error("failed applications span multiple batches, skipping group", map[string]interface{}{
				"batch_id":       batchID,
				"other_batch_id": app.BatchID,
			})
			metrics.CallbacksTotal.WithLabelValues("talpa", "inconsistent").Inc()
			return nil
		}
		apps = append(apps, app)
	}

	batch, err := r.batches.GetByID(ctx, batchID)
	if err != nil {
		r.logger.Error("failed applications reference unknown batch, skipping group", map[string]interface{}{
			"batch_id": batchID,
		})
		metrics.CallbacksTotal.WithLabelValues("talpa", "inconsistent").Inc()
		return nil
	}

	if err := r.batches.RejectByTalpa(ctx, batch, apps); err != nil {
		metrics.CallbacksTotal.WithLabelValues("talpa", "error").Inc()
		return fmt.Errorf("reject batch %s: %w", batchID, err)
	}

	r.events.Publish(ctx, PaymentRejected{BatchID: batchID, ApplicationNumbers: numbers})
	r.logger.Info("batch rejected by payment system", map[string]interface{}{
		"batch_id":          batchID,
		"application_count": len(apps),
	})
	return nil
}
