// internal/ahjo/payloads.go
package ahjo

import (
	"fmt"
	"time"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/models"
)

const dateLayout = "2006-01-02"

// Record is one document attached to a case.
type Record struct {
	Title   string `json:"title"`
	Type    string `json:"type"`
	Created string `json:"created"`
	Content string `json:"content,omitempty"`
}

// OpenCasePayload opens a case for a newly received application.
type OpenCasePayload struct {
	Title             string   `json:"title"`
	ApplicationNumber int      `json:"applicationNumber"`
	CompanyName       string   `json:"companyName"`
	InternalID        string   `json:"internalId"`
	Records           []Record `json:"records"`
}

// DecisionProposalPayload carries the rendered proposal for a decided batch.
type DecisionProposalPayload struct {
	DecisionText      string `json:"decisionText"`
	JustificationText string `json:"justificationText"`
	DecisionMakerID   string `json:"decisionMakerId"`
	SignerID          string `json:"signerId"`
	Accepted          bool   `json:"accepted"`
}

// UpdateRecordsPayload carries changed or newly attached documents.
type UpdateRecordsPayload struct {
	Records []Record `json:"records"`
}

// BuildOpenCasePayload assembles the case opening request from the
// application's current content.
func BuildOpenCasePayload(app *models.Application) *OpenCasePayload {
	return &OpenCasePayload{
		Title:             fmt.Sprintf("Helsinki-lisä, hakemus %d", app.ApplicationNumber),
		ApplicationNumber: app.ApplicationNumber,
		CompanyName:       app.CompanyName,
		InternalID:        app.ID,
		Records: []Record{
			{
				Title:   fmt.Sprintf("Hakemus %d", app.ApplicationNumber),
				Type:    "hakemus",
				Created: app.CreatedAt.Format(dateLayout),
			},
		},
	}
}

// BuildDecisionProposalPayload assembles the proposal from the frozen
// decision text and the reviewing draft's selections.
func BuildDecisionProposalPayload(draft *models.DecisionProposalDraft, decisionText, justificationText string) *DecisionProposalPayload {
	return &DecisionProposalPayload{
		DecisionText:      decisionText,
		JustificationText: justificationText,
		DecisionMakerID:   draft.DecisionMakerID,
		SignerID:          draft.SignerID,
		Accepted:          draft.Status == models.DraftStatusAccepted,
	}
}

// BuildUpdatePayload assembles an update for an already open case.
func BuildUpdatePayload(app *models.Application, updatedAt time.Time) *UpdateRecordsPayload {
	return &UpdateRecordsPayload{
		Records: []Record{
			{
				Title:   fmt.Sprintf("Hakemus %d, muutos", app.ApplicationNumber),
				Type:    "hakemus",
				Created: updatedAt.Format(dateLayout),
			},
		},
	}
}

// BuildAddRecordsPayload assembles newly received attachments for a case.
func BuildAddRecordsPayload(app *models.Application, receivedAt time.Time) *UpdateRecordsPayload {
	return &UpdateRecordsPayload{
		Records: []Record{
			{
				Title:   fmt.Sprintf("Hakemuksen %d liite", app.ApplicationNumber),
				Type:    "liite",
				Created: receivedAt.Format(dateLayout),
			},
		},
	}
}
