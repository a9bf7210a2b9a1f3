package utils

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// SendGridMailer sends transactional email through SendGrid.
type SendGridMailer struct {
	APIKey   string
	FromName string
	FromAddr string
}

// NewSendGridMailer returns a mailer using the Fitly sender identity.
func NewSendGridMailer(apiKey string) *SendGridMailer {
	return &SendGridMailer{APIKey: apiKey, FromName: "Fitly App", FromAddr: "no-reply@tryonfusion.com"}
}

// SendEmail sends an email using SendGrid
func (m *SendGridMailer) SendEmail(toName, toEmail, subject, textContent, htmlContent string) error {
	if m.APIKey == "" {
		return fmt.Errorf("SENDGRID_API_KEY is not set in environment variables")
	}

	from := mail.NewEmail(m.FromName, m.FromAddr)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, textContent, htmlContent)
	client := sendgrid.NewSendClient(m.APIKey)

	response, err := client.Send(message)
	if err != nil {
		Log.Error("send email", zap.String("to", toEmail), zap.Error(err))
		return err
	}

	if response.StatusCode >= 400 {
		Log.Error("sendgrid rejected email", zap.Int("status", response.StatusCode), zap.String("body", response.Body))
		return fmt.Errorf("failed to send email, status code: %d", response.StatusCode)
	}

	Log.Info("email sent", zap.String("to", toEmail), zap.Int("status", response.StatusCode))
	return nil
}
