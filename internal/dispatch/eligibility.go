// Package dispatch selects eligible applications and sends the pending
// case system request for each. Nothing here locks or marks rows: an
// application stops being selected the moment its state advances, so
// sending at most once per state is a property of the data, not of
// coordination.
package dispatch

import (
	"context"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/models"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/status"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/store"
)

// RequestType identifies one kind of outbound case system request.
type RequestType string

const (
	RequestOpenCase             RequestType = "open_case"
	RequestSendDecisionProposal RequestType = "send_decision_proposal"
	RequestUpdateApplication    RequestType = "update_application"
	RequestAddRecords           RequestType = "add_records"
	RequestGetDecisionDetails   RequestType = "get_decision_details"
	RequestDeleteApplication    RequestType = "delete_application"
)

// AllRequestTypes lists the dispatch order within one cycle.
var AllRequestTypes = []RequestType{
	RequestOpenCase,
	RequestSendDecisionProposal,
	RequestUpdateApplication,
	RequestAddRecords,
	RequestGetDecisionDetails,
	RequestDeleteApplication,
}

// nonDraftAppStatuses is every application status except draft, used by
// deletion which applies to anything that ever entered the system.
var nonDraftAppStatuses = []status.ApplicationStatus{
	status.AppReceived, status.AppHandling, status.AppAdditionalInfoNeeded,
	status.AppCancelled, status.AppAccepted, status.AppRejected,
	status.AppRejectedByTalpa,
}

// predicates is the static eligibility table. An application qualifies for
// a request type when its own status and its latest integration status both
// match, plus the request type's extra conditions.
var predicates = map[RequestType]store.EligibilityFilter{
	RequestOpenCase: {
		AppStatuses:     []status.ApplicationStatus{status.AppReceived, status.AppHandling},
		AhjoStatuses:    []status.AhjoStatus{status.AhjoSubmittedNotSent},
		RequireNoCaseID: true,
	},
	RequestSendDecisionProposal: {
		AppStatuses:          []status.ApplicationStatus{status.AppAccepted, status.AppRejected},
		AhjoStatuses:         []status.AhjoStatus{status.AhjoCaseOpened},
		RequireBatchDecision: true,
	},
	RequestUpdateApplication: {
		AppStatuses:  []status.ApplicationStatus{status.AppHandling, status.AppAdditionalInfoNeeded},
		AhjoStatuses: []status.AhjoStatus{status.AhjoCaseOpened, status.AhjoUpdateRequestReceived},
	},
	RequestAddRecords: {
		AppStatuses:  []status.ApplicationStatus{status.AppHandling, status.AppAdditionalInfoNeeded},
		AhjoStatuses: []status.AhjoStatus{status.AhjoCaseOpened, status.AhjoNewRecordReceived},
	},
	RequestGetDecisionDetails: {
		AppStatuses:  []status.ApplicationStatus{status.AppAccepted, status.AppRejected},
		AhjoStatuses: []status.AhjoStatus{status.AhjoDecisionProposalAccepted},
	},
	RequestDeleteApplication: {
		AppStatuses:  nonDraftAppStatuses,
		AhjoStatuses: []status.AhjoStatus{status.AhjoScheduledForDeletion},
	},
}

// sentStatus maps each request type to the integration status row appended
// after a successful send.
var sentStatus = map[RequestType]status.AhjoStatus{
	RequestOpenCase:             status.AhjoOpenCaseRequestSent,
	RequestSendDecisionProposal: status.AhjoDecisionProposalSent,
	RequestUpdateApplication:    status.AhjoUpdateRequestSent,
	RequestAddRecords:           status.AhjoNewRecordRequestSent,
	RequestGetDecisionDetails:   status.AhjoDecisionDetailsReceived,
	RequestDeleteApplication:    status.AhjoDeleteRequestSent,
}

// Filter returns the request type's eligibility predicate.
func Filter(rt RequestType) (store.EligibilityFilter, bool) {
	f, ok := predicates[rt]
	return f, ok
}

// SentStatus returns the integration status appended when a send of the
// given type succeeds.
func SentStatus(rt RequestType) status.AhjoStatus {
	return sentStatus[rt]
}

// Matches reports whether one application with the given latest integration
// status would qualify for the request type. The store applies the same
// conditions in SQL; this form exists for in-process checks and tests.
func Matches(rt RequestType, app *models.Application, latest *models.IntegrationStatus, batch *models.ApplicationBatch) bool {
	filter, ok := predicates[rt]
	if !ok || app == nil || latest == nil {
		return false
	}
	if !app.HandledByAutomation {
		return false
	}
	if !containsApp(filter.AppStatuses, app.Status) {
		return false
	}
	if !containsAhjo(filter.AhjoStatuses, latest.Status) {
		return false
	}
	if filter.RequireNoCaseID && app.CaseID != "" {
		return false
	}
	if filter.RequireBatchDecision {
		if app.BatchID == "" || batch == nil || !batch.DecisionRecorded() {
			return false
		}
	}
	return true
}

// Selector resolves a request type's predicate against the database.
type Selector struct {
	apps *store.ApplicationStore
}

func NewSelector(apps *store.ApplicationStore) *Selector {
	return &Selector{apps: apps}
}

// Select returns the applications currently eligible for the request type.
// An empty result is a normal outcome, not an error.
func (s *Selector) Select(ctx context.Context, rt RequestType) ([]*models.Application, error) {
	filter, ok := predicates[rt]
	if !ok {
		return nil, nil
	}
	return s.apps.ListEligible(ctx, filter)
}

func containsApp(list []status.ApplicationStatus, st status.ApplicationStatus) bool {
	for _, s := range list {
		if s == st {
			return true
		}
	}
	return false
}

func containsAhjo(list []status.AhjoStatus, st status.AhjoStatus) bool {
	for _, s := range list {
		if s == st {
			return true
		}
	}
	return false
}
