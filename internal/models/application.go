// internal/models/application.go
package models

import (
	"time"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/status"
)

// Application is a benefit application owned by one company. Its status is
// mutated by handlers and by the callback reconciler, always through the
// transition validator.
type Application struct {
	ID                string                   `json:"id"` // uuid
	ApplicationNumber int                      `json:"applicationNumber"`
	CompanyName       string                   `json:"companyName"`
	Status            status.ApplicationStatus `json:"status"`
	CaseID            string                   `json:"caseId,omitempty"`   // assigned when Ahjo opens a case
	CaseGUID          string                   `json:"caseGuid,omitempty"`
	BatchID           string                   `json:"batchId,omitempty"`
	HandledByAutomation bool                   `json:"handledByAutomation"` // opt-in flag for scheduled dispatch
	BenefitStartDate  time.Time                `json:"benefitStartDate"`
	BenefitEndDate    time.Time                `json:"benefitEndDate"`
	CreatedAt         time.Time                `json:"createdAt"`
	UpdatedAt         time.Time                `json:"updatedAt"`
}

// ApplicationBatch groups applications submitted together for a single
// case system decision.
type ApplicationBatch struct {
	ID                  string             `json:"id"`
	Status              status.BatchStatus `json:"status"`
	ProposalForDecision string             `json:"proposalForDecision"` // accepted | rejected
	DecisionDate        *time.Time         `json:"decisionDate,omitempty"`
	DecisionMakerName   string             `json:"decisionMakerName,omitempty"`
	DecisionMakerTitle  string             `json:"decisionMakerTitle,omitempty"`
	SectionOfTheLaw     string             `json:"sectionOfTheLaw,omitempty"`
	CreatedAt           time.Time          `json:"createdAt"`
}

// DecisionRecorded reports whether the batch's decision has actually been
// made, a precondition for sending decision proposals.
func (b *ApplicationBatch) DecisionRecorded() bool {
	return b.DecisionDate != nil && b.DecisionMakerName != ""
}

// Calculation carries the granted amounts for an accepted application.
type Calculation struct {
	ApplicationID     string    `json:"applicationId"`
	TotalAmount       float64   `json:"totalAmount"` // euros
	GrantedAsDeMinimis bool     `json:"grantedAsDeMinimis"`
	StartDate         time.Time `json:"startDate"`
	EndDate           time.Time `json:"endDate"`
}
