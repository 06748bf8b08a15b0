package mail

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	sc "github.com/rendlabs/rend/internal/server/config"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newSESClientFromConfig = func(cfg aws.Config, optFns ...func(*sesv2.Options)) *sesv2.Client {
		return sesv2.NewFromConfig(cfg, optFns...)
	}

	sendEmail = func(c *sesv2.Client, ctx context.Context, in *sesv2.SendEmailInput) (*sesv2.SendEmailOutput, error) {
		return c.SendEmail(ctx, in)
	}
)

// SESMailer sends mail through Amazon SES.
type SESMailer struct {
	config *sc.Config
}

func NewSESMailer(config *sc.Config) *SESMailer {
	return &SESMailer{config: config}
}

func (m *SESMailer) getClient(ctx context.Context) (*sesv2.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(m.config.SESRegion),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			m.config.SESAccessKey,
			m.config.SESSecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newSESClientFromConfig(cfg, func(o *sesv2.Options) {
		if m.config.SESBaseEndpoint != "" {
			o.BaseEndpoint = aws.String(m.config.SESBaseEndpoint)
		}
	})

	return client, nil
}

func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	client, err := m.getClient(ctx)
	if err != nil {
		return fmt.Errorf("building ses client: %w", err)
	}

	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.config.EmailFrom),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Body)},
				},
			},
		},
	}

	if _, err := sendEmail(client, ctx, in); err != nil {
		return fmt.Errorf("sending email to %s: %w", msg.To, err)
	}
	return nil
}

var _ Mailer = (*SESMailer)(nil)
