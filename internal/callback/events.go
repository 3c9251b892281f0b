// Package callback receives the asynchronous results both external
// systems deliver over HTTP and reconciles them into local status.
package callback

import "context"

// Event is a fact the reconciler established that other components may
// react to. The notifier consumes these; the reconciler itself never
// sends mail or knows who listens.
type Event interface {
	EventName() string
}

// CaseOpened fires when the case system confirms a case for an application.
type CaseOpened struct {
	ApplicationID     string
	ApplicationNumber int
	CaseID            string
}

func (CaseOpened) EventName() string { return "case_opened" }

// DecisionProposalAccepted fires when the decision maker accepts a proposal.
type DecisionProposalAccepted struct {
	ApplicationID     string
	ApplicationNumber int
	CaseID            string
}

func (DecisionProposalAccepted) EventName() string { return "decision_proposal_accepted" }

// DecisionProposalRejected fires when the decision maker sends a proposal back.
type DecisionProposalRejected struct {
	ApplicationID     string
	ApplicationNumber int
	CaseID            string
}

func (DecisionProposalRejected) EventName() string { return "decision_proposal_rejected" }

// CaseDeleted fires when the case system confirms removal of a case.
type CaseDeleted struct {
	ApplicationID string
	CaseID        string
}

func (CaseDeleted) EventName() string { return "case_deleted" }

// PaymentRejected fires when the payment system rejects a batch.
type PaymentRejected struct {
	BatchID            string
	ApplicationNumbers []int
}

func (PaymentRejected) EventName() string { return "payment_rejected" }

// Publisher receives reconciler events. Implementations must not block the
// callback handler for long and must never return the external system an
// error for a notification problem.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
