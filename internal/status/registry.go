// Package status holds the finite status vocabularies of every stateful
// entity and the generic transition validator gating all status writes.
package status

// EntityType identifies which transition table applies.
type EntityType string

const (
	EntityApplication   EntityType = "application"
	EntityBatch         EntityType = "application_batch"
	EntityDecisionDraft EntityType = "decision_proposal_draft"
	EntityInstalment    EntityType = "payment_instalment"
)

// ApplicationStatus values.
type ApplicationStatus string

const (
	AppDraft                ApplicationStatus = "draft"
	AppReceived             ApplicationStatus = "received"
	AppHandling             ApplicationStatus = "handling"
	AppAdditionalInfoNeeded ApplicationStatus = "additional_information_needed"
	AppCancelled            ApplicationStatus = "cancelled"
	AppAccepted             ApplicationStatus = "accepted"
	AppRejected             ApplicationStatus = "rejected"
	AppRejectedByTalpa      ApplicationStatus = "rejected_by_talpa"
)

// BatchStatus values.
type BatchStatus string

const (
	BatchDraft           BatchStatus = "draft"
	BatchReportCreated   BatchStatus = "exported_ahjo_report"
	BatchAwaitingDecision BatchStatus = "awaiting_ahjo_decision"
	BatchDecidedAccepted BatchStatus = "accepted"
	BatchDecidedRejected BatchStatus = "rejected"
	BatchReturned        BatchStatus = "returned"
	BatchSentToTalpa     BatchStatus = "sent_to_talpa"
	BatchCompleted       BatchStatus = "completed"
	BatchRejectedByTalpa BatchStatus = "rejected_by_talpa"
)

// AhjoStatus tags the rows of an application's integration log. The latest
// row is authoritative for dispatch eligibility.
type AhjoStatus string

const (
	AhjoSubmittedNotSent         AhjoStatus = "submitted_but_not_sent_to_ahjo"
	AhjoOpenCaseRequestSent      AhjoStatus = "request_to_open_case_sent"
	AhjoCaseOpened               AhjoStatus = "case_opened"
	AhjoUpdateRequestSent        AhjoStatus = "update_request_sent"
	AhjoUpdateRequestReceived    AhjoStatus = "update_request_received"
	AhjoNewRecordRequestSent     AhjoStatus = "new_record_request_sent"
	AhjoNewRecordReceived        AhjoStatus = "new_record_received"
	AhjoDecisionProposalSent     AhjoStatus = "decision_proposal_sent"
	AhjoDecisionProposalAccepted AhjoStatus = "decision_proposal_accepted"
	AhjoDecisionProposalRejected AhjoStatus = "decision_proposal_rejected"
	AhjoDecisionDetailsReceived  AhjoStatus = "decision_details_received"
	AhjoSigned                   AhjoStatus = "signed"
	AhjoScheduledForDeletion     AhjoStatus = "scheduled_for_deletion"
	AhjoDeleteRequestSent        AhjoStatus = "delete_request_sent"
	AhjoCaseDeleted              AhjoStatus = "case_deleted"
)

// InstalmentStatus values.
type InstalmentStatus string

const (
	InstalmentWaiting   InstalmentStatus = "waiting"
	InstalmentAccepted  InstalmentStatus = "accepted"
	InstalmentCancelled InstalmentStatus = "cancelled"
	InstalmentPaid      InstalmentStatus = "paid"
	InstalmentCompleted InstalmentStatus = "completed"
	InstalmentErrorInTalpa InstalmentStatus = "error_in_talpa"
)

// Review steps of a decision proposal draft. Step 4 is "submitted" and
// pseudo-terminal: the draft freezes into a DecisionText record.
const (
	ReviewStepDecision      = "1"
	ReviewStepOutcome       = "2"
	ReviewStepText          = "3"
	ReviewStepSubmitted     = "4"
)

// initialStatuses declares the only legal status for a brand new entity.
var initialStatuses = map[EntityType]string{
	EntityApplication:   string(AppDraft),
	EntityBatch:         string(BatchDraft),
	EntityDecisionDraft: ReviewStepDecision,
	EntityInstalment:    string(InstalmentWaiting),
}

// transitions holds the directed adjacency set per entity type. A status
// missing from its entity's map is terminal.
var transitions = map[EntityType]map[string][]string{
	EntityApplication: {
		string(AppDraft):                {string(AppReceived)},
		string(AppReceived):             {string(AppHandling), string(AppCancelled)},
		string(AppHandling):             {string(AppAdditionalInfoNeeded), string(AppCancelled), string(AppAccepted), string(AppRejected)},
		string(AppAdditionalInfoNeeded): {string(AppHandling), string(AppCancelled)},
		string(AppAccepted):             {string(AppHandling), string(AppRejectedByTalpa)},
		string(AppRejected):             {string(AppHandling)},
		string(AppRejectedByTalpa):      {string(AppHandling)},
		// cancelled is terminal
	},
	EntityBatch: {
		string(BatchDraft):            {string(BatchReportCreated)},
		string(BatchReportCreated):    {string(BatchAwaitingDecision)},
		string(BatchAwaitingDecision): {string(BatchDecidedAccepted), string(BatchDecidedRejected), string(BatchReturned)},
		string(BatchDecidedAccepted):  {string(BatchSentToTalpa)},
		string(BatchReturned):         {string(BatchDraft)},
		string(BatchSentToTalpa):      {string(BatchCompleted), string(BatchRejectedByTalpa)},
		string(BatchRejectedByTalpa):  {string(BatchDraft)},
		// rejected and completed are terminal
	},
	EntityDecisionDraft: {
		ReviewStepDecision: {ReviewStepOutcome},
		ReviewStepOutcome:  {ReviewStepDecision, ReviewStepText},
		ReviewStepText:     {ReviewStepDecision, ReviewStepOutcome, ReviewStepSubmitted},
		// submitted is terminal
	},
	EntityInstalment: {
		string(InstalmentWaiting):      {string(InstalmentAccepted), string(InstalmentCancelled), string(InstalmentErrorInTalpa)},
		string(InstalmentAccepted):     {string(InstalmentWaiting), string(InstalmentPaid), string(InstalmentErrorInTalpa)},
		string(InstalmentErrorInTalpa): {string(InstalmentWaiting), string(InstalmentAccepted), string(InstalmentPaid)},
		string(InstalmentPaid):         {string(InstalmentCompleted), string(InstalmentErrorInTalpa)},
		string(InstalmentCancelled):    {string(InstalmentWaiting), string(InstalmentCompleted)},
		// completed is terminal
	},
}

// InitialStatus returns the declared initial status for an entity type.
func InitialStatus(entity EntityType) (string, bool) {
	s, ok := initialStatuses[entity]
	return s, ok
}

// IsTerminal reports whether the status has no outgoing edges.
func IsTerminal(entity EntityType, current string) bool {
	table, ok := transitions[entity]
	if !ok {
		return false
	}
	next, exists := table[current]
	return !exists || len(next) == 0
}

// AllowedTransitions returns the legal next statuses for a given status.
func AllowedTransitions(entity EntityType, current string) []string {
	table, ok := transitions[entity]
	if !ok {
		return nil
	}
	return table[current]
}
