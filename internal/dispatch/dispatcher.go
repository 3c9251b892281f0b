// internal/dispatch/dispatcher.go
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	stderrors "github.com/City-of-Helsinki/yjdh-sub002/internal/common/errors"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/logger"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/metrics"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/ahjo"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/models"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/status"
)

// CaseClient is the outbound surface the dispatcher needs from the case
// system client.
type CaseClient interface {
	OpenCase(ctx context.Context, payload *ahjo.OpenCasePayload) (*ahjo.RequestReceipt, error)
	SendDecisionProposal(ctx context.Context, caseID string, payload *ahjo.DecisionProposalPayload) (*ahjo.RequestReceipt, error)
	UpdateApplication(ctx context.Context, caseID string, payload *ahjo.UpdateRecordsPayload) (*ahjo.RequestReceipt, error)
	AddRecords(ctx context.Context, caseID string, payload *ahjo.UpdateRecordsPayload) (*ahjo.RequestReceipt, error)
	DeleteApplication(ctx context.Context, caseID string) (*ahjo.RequestReceipt, error)
	GetDecisionDetails(ctx context.Context, caseID string) (*ahjo.DecisionDetails, error)
}

// TokenSource gates the cycle: when no token can be acquired the whole
// cycle is skipped rather than producing one auth failure per application.
type TokenSource interface {
	Acquire(ctx context.Context) (string, error)
}

// ApplicationSelector yields the applications eligible for a request type.
type ApplicationSelector interface {
	Select(ctx context.Context, rt RequestType) ([]*models.Application, error)
}

// StatusAppender records the advancing integration status after a send.
type StatusAppender interface {
	Append(ctx context.Context, applicationID string, st status.AhjoStatus) error
}

// DecisionSource supplies the review outcome and calculation a decision
// proposal send needs.
type DecisionSource interface {
	GetOrCreate(ctx context.Context, applicationID string) (*models.DecisionProposalDraft, error)
	GetCalculation(ctx context.Context, applicationID string) (*models.Calculation, error)
}

// Dispatcher runs one send pass per request type. Failures are isolated
// per application: the state not advancing means the same application is
// selected again next cycle, which is the entire retry mechanism.
type Dispatcher struct {
	selector ApplicationSelector
	client   CaseClient
	tokens   TokenSource
	statuses StatusAppender
	drafts   DecisionSource
	log      logger.Logger
	workers  int
}

func NewDispatcher(selector ApplicationSelector, client CaseClient, tokens TokenSource,
	statuses StatusAppender, drafts DecisionSource, log logger.Logger, workers int) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	return &Dispatcher{
		selector: selector,
		client:   client,
		tokens:   tokens,
		statuses: statuses,
		drafts:   drafts,
		log:      log,
		workers:  workers,
	}
}

// RunCycle executes one pass over every request type.
func (d *Dispatcher) RunCycle(ctx context.Context) {
	if _, err := d.tokens.Acquire(ctx); err != nil {
		d.log.Warn("skipping dispatch cycle, no access token", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	for _, rt := range AllRequestTypes {
		if ctx.Err() != nil {
			return
		}
		d.runPass(ctx, rt)
	}
}

func (d *Dispatcher) runPass(ctx context.Context, rt RequestType) {
	started := time.Now()
	defer func() {
		metrics.DispatchCycleDuration.WithLabelValues(string(rt)).Observe(time.Since(started).Seconds())
	}()

	apps, err := d.selector.Select(ctx, rt)
	if err != nil {
		d.log.Error("eligibility selection failed", map[string]interface{}{
			"request_type": string(rt),
			"error":        err.Error(),
		})
		return
	}
	metrics.EligibleApplications.WithLabelValues(string(rt)).Set(float64(len(apps)))
	if len(apps) == 0 {
		return
	}

	d.log.Info("dispatching requests", map[string]interface{}{
		"request_type": string(rt),
		"count":        len(apps),
	})

	queue := make(chan *models.Application)
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for app := range queue {
				d.dispatchOne(ctx, rt, app)
			}
		}()
	}
	for _, app := range apps {
		if ctx.Err() != nil {
			break
		}
		queue <- app
	}
	close(queue)
	wg.Wait()
}

// dispatchOne sends a single request and, on success, appends the request
// type's advancing status row. On failure it logs and leaves the
// application untouched so the next cycle picks it up again.
func (d *Dispatcher) dispatchOne(ctx context.Context, rt RequestType, app *models.Application) {
	err := d.send(ctx, rt, app)
	if err != nil {
		outcome := "failure"
		if stdErr, ok := err.(*stderrors.StandardError); ok && !stdErr.Retryable {
			outcome = "permanent_failure"
		}
		metrics.DispatchRequestsTotal.WithLabelValues(string(rt), outcome).Inc()
		d.log.Error("request dispatch failed", map[string]interface{}{
			"request_type":       string(rt),
			"application_id":     app.ID,
			"application_number": app.ApplicationNumber,
			"error":              err.Error(),
		})
		return
	}

	if err := d.statuses.Append(ctx, app.ID, SentStatus(rt)); err != nil {
		// The request went out but the advancing row did not land. The next
		// cycle re-selects and re-sends; the upstream tolerates duplicates
		// keyed by application id.
		metrics.DispatchRequestsTotal.WithLabelValues(string(rt), "failure").Inc()
		d.log.Error("failed to record sent status", map[string]interface{}{
			"request_type":   string(rt),
			"application_id": app.ID,
			"error":          err.Error(),
		})
		return
	}
	metrics.DispatchRequestsTotal.WithLabelValues(string(rt), "success").Inc()
}

func (d *Dispatcher) send(ctx context.Context, rt RequestType, app *models.Application) error {
	switch rt {
	case RequestOpenCase:
		_, err := d.client.OpenCase(ctx, ahjo.BuildOpenCasePayload(app))
		return err
	case RequestSendDecisionProposal:
		payload, err := d.buildProposal(ctx, app)
		if err != nil {
			return err
		}
		_, err = d.client.SendDecisionProposal(ctx, app.CaseID, payload)
		return err
	case RequestUpdateApplication:
		_, err := d.client.UpdateApplication(ctx, app.CaseID, ahjo.BuildUpdatePayload(app, app.UpdatedAt))
		return err
	case RequestAddRecords:
		_, err := d.client.AddRecords(ctx, app.CaseID, ahjo.BuildAddRecordsPayload(app, app.UpdatedAt))
		return err
	case RequestGetDecisionDetails:
		_, err := d.client.GetDecisionDetails(ctx, app.CaseID)
		return err
	case RequestDeleteApplication:
		_, err := d.client.DeleteApplication(ctx, app.CaseID)
		return err
	default:
		return fmt.Errorf("unknown request type %q", rt)
	}
}

// buildProposal renders the reviewed decision texts for the application.
// Accepted decisions must carry a calculation; the total amount placeholder
// has nothing to resolve to without one.
func (d *Dispatcher) buildProposal(ctx context.Context, app *models.Application) (*ahjo.DecisionProposalPayload, error) {
	draft, err := d.drafts.GetOrCreate(ctx, app.ID)
	if err != nil {
		return nil, err
	}

	rc := RenderContext{Application: app}
	if draft.Status == models.DraftStatusAccepted {
		calc, err := d.drafts.GetCalculation(ctx, app.ID)
		if err != nil {
			return nil, err
		}
		rc.Calculation = calc
	}

	decisionText, err := Render(draft.DecisionText, rc)
	if err != nil {
		return nil, err
	}
	justification, err := Render(draft.JustificationText, rc)
	if err != nil {
		return nil, err
	}
	return ahjo.BuildDecisionProposalPayload(draft, decisionText, justification), nil
}
