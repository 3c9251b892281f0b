// internal/callback/schema.go
package callback

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	stderrors "github.com/City-of-Helsinki/yjdh-sub002/internal/common/errors"
)

// AhjoCallback is the case system's asynchronous result for one request.
// Message is constrained to Success or Failure; the record statuses carry
// the decision outcome for proposal callbacks.
type AhjoCallback struct {
	Message        string          `json:"message"`
	RequestID      string          `json:"requestId"`
	CaseID         string          `json:"caseId"`
	CaseGUID       string          `json:"caseGuid"`
	Records        []CallbackRecord `json:"records"`
	FailureDetails []FailureDetail `json:"failureDetails"`
}

const (
	MessageSuccess = "Success"
	MessageFailure = "Failure"
)

// CallbackRecord describes one document or decision the callback concerns.
type CallbackRecord struct {
	RecordID string `json:"recordId"`
	Status   string `json:"status"`
}

// FailureDetail is one error the case system reports for a failed request.
type FailureDetail struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Context string `json:"context"`
	Message string `json:"message"`
}

// TalpaCallback is the payment system's batch result. At least one of the
// two application number lists must be non-empty.
type TalpaCallback struct {
	Status                 string `json:"status"`
	SuccessfulApplications []int  `json:"successful_applications"`
	FailedApplications     []int  `json:"failed_applications"`
}

const ahjoCallbackSchema = `{
	"type": "object",
	"required": ["message"],
	"properties": {
		"message": {"type": "string", "enum": ["Success", "Failure"]},
		"requestId": {"type": "string"},
		"caseId": {"type": "string"},
		"caseGuid": {"type": "string"},
		"records": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"recordId": {"type": "string"},
					"status": {"type": "string"}
				}
			}
		},
		"failureDetails": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["message"],
				"properties": {
					"id": {"type": "string"},
					"type": {"type": "string"},
					"context": {"type": "string"},
					"message": {"type": "string"}
				}
			}
		}
	}
}`

const talpaCallbackSchema = `{
	"type": "object",
	"required": ["status"],
	"properties": {
		"status": {"type": "string", "enum": ["Success", "Failure"]},
		"successful_applications": {"type": "array", "items": {"type": "integer"}},
		"failed_applications": {"type": "array", "items": {"type": "integer"}}
	},
	"anyOf": [
		{"properties": {"successful_applications": {"minItems": 1}}, "required": ["successful_applications"]},
		{"properties": {"failed_applications": {"minItems": 1}}, "required": ["failed_applications"]}
	]
}`

var (
	ahjoSchema  = gojsonschema.NewStringLoader(ahjoCallbackSchema)
	talpaSchema = gojsonschema.NewStringLoader(talpaCallbackSchema)
)

// ValidateAhjoPayload checks the raw body against the callback schema.
func ValidateAhjoPayload(body []byte) error {
	return validate(ahjoSchema, body)
}

// ValidateTalpaPayload checks the raw body against the payment callback schema.
func ValidateTalpaPayload(body []byte) error {
	return validate(talpaSchema, body)
}

func validate(schema gojsonschema.JSONLoader, body []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return stderrors.NewCallbackPayloadError(fmt.Sprintf("unparseable payload: %v", err))
	}
	if result.Valid() {
		return nil
	}
	var details []string
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return stderrors.NewCallbackPayloadError(strings.Join(details, "; "))
}
