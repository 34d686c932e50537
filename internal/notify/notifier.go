// internal/notify/notifier.go

// Package notify delivers the pipeline's outbound messages: email to
// subjects and candidates through SES, and operator alerts through SNS.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"

	"hireflow/internal/common/logger"
	"hireflow/internal/statestore"
)

var (
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
	ErrNoRecipientEmail       = errors.New("NO_RECIPIENT_EMAIL")
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Config struct {
	EmailEnabled    bool
	FromEmail       string
	EmailSubject    string
	OperatorEnabled bool
	TopicARN        string
}

type Notifier struct {
	config   *Config
	subjects *statestore.Subjects
	ses      SESService
	sns      SNSService
	logger   logger.Logger
}

func New(config *Config, subjects *statestore.Subjects, sesClient SESService, snsClient SNSService, log logger.Logger) *Notifier {
	return &Notifier{
		config:   config,
		subjects: subjects,
		ses:      sesClient,
		sns:      snsClient,
		logger:   log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

// NotifySubject emails the subject whose address is taken from their stored
// HR profile.
func (n *Notifier) NotifySubject(ctx context.Context, subjectID, message string) error {
	if !n.config.EmailEnabled {
		n.logger.Debug("subject email disabled, skipping", map[string]interface{}{"subjectId": subjectID})
		return nil
	}

	rec, err := n.subjects.Get(ctx, subjectID)
	if err != nil {
		return err
	}
	email := profileEmail(rec.ProfileData)
	if email == "" {
		return fmt.Errorf("%w: subject %s", ErrNoRecipientEmail, subjectID)
	}

	return n.sendEmail(ctx, email, n.config.EmailSubject, message)
}

// NotifyCandidate emails a candidate directly, using the contact details
// captured from their application.
func (n *Notifier) NotifyCandidate(ctx context.Context, email, phone, message string) error {
	if !n.config.EmailEnabled {
		n.logger.Debug("candidate email disabled, skipping", nil)
		return nil
	}
	if email == "" {
		return ErrNoRecipientEmail
	}
	return n.sendEmail(ctx, email, n.config.EmailSubject, message)
}

// NotifyOperator publishes an alert on the operator topic.
func (n *Notifier) NotifyOperator(ctx context.Context, message string) error {
	if !n.config.OperatorEnabled {
		n.logger.Debug("operator alerts disabled, skipping", nil)
		return nil
	}

	notificationID := uuid.New().String()
	_, err := n.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.config.TopicARN),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationSendFailed, err)
	}

	n.logger.Info("operator alert published", map[string]interface{}{
		"notificationId": notificationID,
		"sentAt":         time.Now().UTC().Format(time.RFC3339),
	})
	return nil
}

func (n *Notifier) sendEmail(ctx context.Context, to, subject, body string) error {
	notificationID := uuid.New().String()

	_, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.config.FromEmail),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationSendFailed, err)
	}

	n.logger.Info("email sent", map[string]interface{}{
		"notificationId": notificationID,
		"to":             to,
	})
	return nil
}

func profileEmail(profile map[string]interface{}) string {
	if profile == nil {
		return ""
	}
	if v, ok := profile["email"].(string); ok {
		return v
	}
	return ""
}
