// internal/models/instalment.go
package models

import (
	"time"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/status"
)

// PaymentInstalment is one disbursement of a calculation's granted amount.
type PaymentInstalment struct {
	ID            string                  `json:"id"`
	ApplicationID string                  `json:"applicationId"`
	Status        status.InstalmentStatus `json:"status"`
	Amount        string                  `json:"amount"` // decimal string
	DueDate       time.Time               `json:"dueDate"`
	CreatedAt     time.Time               `json:"createdAt"`
}
