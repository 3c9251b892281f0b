// internal/models/decision.go
package models

import "time"

// DecisionProposalDraft is the handler-authored accept/reject recommendation
// for one application. It is created lazily on first access and mutated only
// through the review workflow.
type DecisionProposalDraft struct {
	ApplicationID     string    `json:"applicationId"`
	ReviewStep        string    `json:"reviewStep"` // "1".."4", "4" is submitted
	Status            string    `json:"status"`     // accepted | rejected, meaningful from step 2
	GrantedAsDeMinimis *bool    `json:"grantedAsDeMinimis,omitempty"`
	LogEntryComment   string    `json:"logEntryComment,omitempty"`
	DecisionText      string    `json:"decisionText"`
	JustificationText string    `json:"justificationText"`
	DecisionMakerID   string    `json:"decisionMakerId"`
	DecisionMakerName string    `json:"decisionMakerName"`
	SignerID          string    `json:"signerId,omitempty"`
	SignerName        string    `json:"signerName,omitempty"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

const (
	DraftStatusAccepted = "accepted"
	DraftStatusRejected = "rejected"
)

// DecisionText is the immutable record frozen out of a draft at submission,
// with all template placeholders already substituted.
type DecisionText struct {
	ApplicationID     string    `json:"applicationId"`
	DecisionText      string    `json:"decisionText"`
	JustificationText string    `json:"justificationText"`
	DecisionMakerID   string    `json:"decisionMakerId"`
	SignerID          string    `json:"signerId,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}
