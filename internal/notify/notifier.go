// Package notify turns reconciler events into handler-facing emails. The
// reconciler publishes and keeps going; delivery problems are logged here
// and never travel back to the callback path.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/callback"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/config"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/logger"
)

// EmailSender matches the SES client's SendEmail, mockable in tests.
type EmailSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Notifier implements callback.Publisher over email.
type Notifier struct {
	sender EmailSender
	cfg    config.NotificationConfig
	log    logger.Logger
}

func NewNotifier(sender EmailSender, cfg config.NotificationConfig, log logger.Logger) *Notifier {
	return &Notifier{sender: sender, cfg: cfg, log: log}
}

// Publish renders and sends one event. Disabled notifications and unknown
// event types are silently skipped.
func (n *Notifier) Publish(ctx context.Context, event callback.Event) {
	if !n.cfg.Email.Enabled {
		return
	}
	subject, body := render(event)
	if subject == "" {
		return
	}

	_, err := n.sender.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.cfg.Email.FromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{n.cfg.Email.ToEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		n.log.Error("notification email failed", map[string]interface{}{
			"event": event.EventName(),
			"error": err.Error(),
		})
		return
	}
	n.log.Debug("notification email sent", map[string]interface{}{
		"event": event.EventName(),
	})
}

func render(event callback.Event) (subject, body string) {
	switch e := event.(type) {
	case callback.CaseOpened:
		return fmt.Sprintf("Hakemuksen %d asia avattu", e.ApplicationNumber),
			fmt.Sprintf("Hakemukselle %d avattiin asia %s.", e.ApplicationNumber, e.CaseID)
	case callback.DecisionProposalAccepted:
		return fmt.Sprintf("Hakemuksen %d päätösesitys hyväksytty", e.ApplicationNumber),
			fmt.Sprintf("Päätösesitys hakemukselle %d (asia %s) on hyväksytty.", e.ApplicationNumber, e.CaseID)
	case callback.DecisionProposalRejected:
		return fmt.Sprintf("Hakemuksen %d päätösesitys palautettu", e.ApplicationNumber),
			fmt.Sprintf("Päätösesitys hakemukselle %d (asia %s) palautettiin käsittelyyn.", e.ApplicationNumber, e.CaseID)
	case callback.PaymentRejected:
		numbers := make([]string, len(e.ApplicationNumbers))
		for i, num := range e.ApplicationNumbers {
			numbers[i] = fmt.Sprintf("%d", num)
		}
		return fmt.Sprintf("Maksatus hylätty, koonti %s", e.BatchID),
			fmt.Sprintf("Maksujärjestelmä hylkäsi koonnin %s hakemukset: %s.", e.BatchID, strings.Join(numbers, ", "))
	case callback.CaseDeleted:
		return "", ""
	default:
		return "", ""
	}
}
