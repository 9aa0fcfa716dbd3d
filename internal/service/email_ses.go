package service

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"review-portal-backend/internal/domain"
	"review-portal-backend/internal/logger"
)

// sesAPI is satisfied by *ses.Client.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type sesEmailService struct {
	client sesAPI
	source string
}

// NewSESEmailService sends through Amazon SES using the default AWS
// credential chain.
func NewSESEmailService(ctx context.Context, region, fromEmail, fromName string) (EmailService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newSESEmailService(ses.NewFromConfig(cfg), fromEmail, fromName), nil
}

func newSESEmailService(client sesAPI, fromEmail, fromName string) *mailer {
	source := fromEmail
	if fromName != "" {
		source = fmt.Sprintf("%s <%s>", fromName, fromEmail)
	}
	return &mailer{transport: &sesEmailService{client: client, source: source}}
}

func (s *sesEmailService) send(ctx context.Context, to *domain.Profile, subject, plainText string) error {
	if to == nil || to.Email == "" {
		return fmt.Errorf("recipient has no email address")
	}
	logger.ExternalServiceCall("ses", "SendEmail", "to", to.Email, "subject", subject)

	input := &ses.SendEmailInput{
		Source:      aws.String(s.source),
		Destination: &types.Destination{ToAddresses: []string{to.Email}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(plainText), Charset: aws.String("UTF-8")},
				Html: &types.Content{Data: aws.String(htmlBody(plainText)), Charset: aws.String("UTF-8")},
			},
		},
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		err = fmt.Errorf("failed to send email: %w", err)
		logger.ExternalServiceResult("ses", "SendEmail", err, "to", to.Email)
		return err
	}

	logger.ExternalServiceResult("ses", "SendEmail", nil, "to", to.Email, "messageID", aws.ToString(out.MessageId))
	return nil
}
