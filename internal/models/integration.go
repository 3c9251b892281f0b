// internal/models/integration.go
package models

import (
	"time"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/status"
)

// IntegrationStatus is one row of an application's append-only case system
// interaction log. Rows are created solely by the dispatcher and the
// reconciler; the only in-place mutation permitted is attaching an error to
// the latest row.
type IntegrationStatus struct {
	ID            int64             `json:"id"`
	ApplicationID string            `json:"applicationId"`
	Status        status.AhjoStatus `json:"status"`
	Error         *IntegrationError `json:"error,omitempty"`
	ValidationError *IntegrationError `json:"validationError,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// IntegrationError is the structured error attached to an integration log
// row. Operational and validation failures use separate columns because
// they are surfaced differently to handlers.
type IntegrationError struct {
	ID      string `json:"id"`
	Context string `json:"context"`
	Message string `json:"message"`
}
