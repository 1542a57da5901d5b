package utils

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type sesAPI interface {
	SendEmail(ctx context.Context, in *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Mailer sends plain-text mail through SES.
type Mailer struct {
	client sesAPI
	from   string
}

func NewMailer(cfg aws.Config, from string) *Mailer {
	return &Mailer{client: ses.NewFromConfig(cfg), from: from}
}

func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	input := &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(body),
				},
			},
		},
		Source: aws.String(m.from),
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("email send failed: %w", err)
	}
	return nil
}

// SendPostReminder tells the owner a scheduled post is due.
func (m *Mailer) SendPostReminder(ctx context.Context, to, topic, content string) error {
	subject := fmt.Sprintf("Time to publish: %s", topic)
	body := fmt.Sprintf("Your LinkedIn post about %q is scheduled for now.\n\n%s", topic, content)
	return m.Send(ctx, to, subject, body)
}
