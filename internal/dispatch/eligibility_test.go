package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/models"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/status"
)

func eligibleApp(st status.ApplicationStatus) *models.Application {
	return &models.Application{
		ID:                  "app-1",
		ApplicationNumber:   125010,
		Status:              st,
		HandledByAutomation: true,
	}
}

func latestStatus(st status.AhjoStatus) *models.IntegrationStatus {
	return &models.IntegrationStatus{ID: 1, ApplicationID: "app-1", Status: st}
}

func decidedBatch() *models.ApplicationBatch {
	decided := time.Now().AddDate(0, 0, -1)
	return &models.ApplicationBatch{
		ID:                "batch-1",
		Status:            status.BatchDecidedAccepted,
		DecisionDate:      &decided,
		DecisionMakerName: "Decision Maker",
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name   string
		rt     RequestType
		modify func(app *models.Application, latest *models.IntegrationStatus)
		batch  *models.ApplicationBatch
		want   bool
	}{
		{
			name: "received application without case qualifies for open case",
			rt:   RequestOpenCase,
			modify: func(app *models.Application, latest *models.IntegrationStatus) {
				app.Status = status.AppReceived
				latest.Status = status.AhjoSubmittedNotSent
			},
			want: true,
		},
		{
			name: "existing case id blocks open case",
			rt:   RequestOpenCase,
			modify: func(app *models.Application, latest *models.IntegrationStatus) {
				app.Status = status.AppReceived
				latest.Status = status.AhjoSubmittedNotSent
				app.CaseID = "HEL 2026-004123"
			},
			want: false,
		},
		{
			name: "automation opt-out blocks everything",
			rt:   RequestOpenCase,
			modify: func(app *models.Application, latest *models.IntegrationStatus) {
				app.Status = status.AppReceived
				latest.Status = status.AhjoSubmittedNotSent
				app.HandledByAutomation = false
			},
			want: false,
		},
		{
			name: "sent status no longer matches open case",
			rt:   RequestOpenCase,
			modify: func(app *models.Application, latest *models.IntegrationStatus) {
				app.Status = status.AppReceived
				latest.Status = status.AhjoOpenCaseRequestSent
			},
			want: false,
		},
		{
			name: "accepted application with decided batch qualifies for proposal",
			rt:   RequestSendDecisionProposal,
			modify: func(app *models.Application, latest *models.IntegrationStatus) {
				app.Status = status.AppAccepted
				app.BatchID = "batch-1"
				latest.Status = status.AhjoCaseOpened
			},
			batch: decidedBatch(),
			want:  true,
		},
		{
			name: "undecided batch blocks proposal",
			rt:   RequestSendDecisionProposal,
			modify: func(app *models.Application, latest *models.IntegrationStatus) {
				app.Status = status.AppAccepted
				app.BatchID = "batch-1"
				latest.Status = status.AhjoCaseOpened
			},
			batch: &models.ApplicationBatch{ID: "batch-1", Status: status.BatchAwaitingDecision},
			want:  false,
		},
		{
			name: "update request received qualifies for update",
			rt:   RequestUpdateApplication,
			modify: func(app *models.Application, latest *models.IntegrationStatus) {
				app.Status = status.AppAdditionalInfoNeeded
				latest.Status = status.AhjoUpdateRequestReceived
			},
			want: true,
		},
		{
			name: "new record received qualifies for add records",
			rt:   RequestAddRecords,
			modify: func(app *models.Application, latest *models.IntegrationStatus) {
				app.Status = status.AppHandling
				latest.Status = status.AhjoNewRecordReceived
			},
			want: true,
		},
		{
			name: "accepted proposal qualifies for decision details",
			rt:   RequestGetDecisionDetails,
			modify: func(app *models.Application, latest *models.IntegrationStatus) {
				app.Status = status.AppAccepted
				latest.Status = status.AhjoDecisionProposalAccepted
			},
			want: true,
		},
		{
			name: "scheduled deletion qualifies for delete",
			rt:   RequestDeleteApplication,
			modify: func(app *models.Application, latest *models.IntegrationStatus) {
				app.Status = status.AppCancelled
				latest.Status = status.AhjoScheduledForDeletion
			},
			want: true,
		},
		{
			name: "draft never qualifies for delete",
			rt:   RequestDeleteApplication,
			modify: func(app *models.Application, latest *models.IntegrationStatus) {
				app.Status = status.AppDraft
				latest.Status = status.AhjoScheduledForDeletion
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := eligibleApp(status.AppReceived)
			latest := latestStatus(status.AhjoSubmittedNotSent)
			tt.modify(app, latest)
			assert.Equal(t, tt.want, Matches(tt.rt, app, latest, tt.batch))
		})
	}
}

func TestMatches_NilInputs(t *testing.T) {
	assert.False(t, Matches(RequestOpenCase, nil, latestStatus(status.AhjoSubmittedNotSent), nil))
	assert.False(t, Matches(RequestOpenCase, eligibleApp(status.AppReceived), nil, nil))
	assert.False(t, Matches(RequestType("bogus"), eligibleApp(status.AppReceived), latestStatus(status.AhjoSubmittedNotSent), nil))
}

func TestSentStatus_CoversEveryRequestType(t *testing.T) {
	for _, rt := range AllRequestTypes {
		assert.NotEmpty(t, SentStatus(rt), "request type %s", rt)
		_, ok := Filter(rt)
		assert.True(t, ok, "request type %s", rt)
	}
}
