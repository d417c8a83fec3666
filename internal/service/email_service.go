package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// EmailService sends transactional emails.
type EmailService interface {
	SendOTP(ctx context.Context, toEmail, code, idempotencyKey string) error
	SendAnnouncement(ctx context.Context, toEmails []string, subject, message string) error
}

// NoopEmailService is used when email sending is disabled.
type NoopEmailService struct{}

func (s *NoopEmailService) SendOTP(ctx context.Context, toEmail, code, idempotencyKey string) error {
	log.Printf("[EmailService] noop send otp to=%s code=%s", toEmail, code)
	return nil
}

func (s *NoopEmailService) SendAnnouncement(ctx context.Context, toEmails []string, subject, message string) error {
	log.Printf("[EmailService] noop send announcement to %d recipients", len(toEmails))
	return nil
}

// ResendEmailService sends emails via Resend REST API.
type ResendEmailService struct {
	from   string
	client *resend.Client
}

func NewResendEmailService(apiKey, from string) (*ResendEmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendEmailService{
		from:   from,
		client: resend.NewClient(apiKey),
	}, nil
}

func (s *ResendEmailService) SendOTP(ctx context.Context, toEmail, code, idempotencyKey string) error {
	if toEmail == "" || code == "" {
		return fmt.Errorf("toEmail and code are required")
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: "Your Max Battle verification code",
		Text:    fmt.Sprintf("Your verification code is %s. It expires in 15 minutes.", code),
		Html:    fmt.Sprintf("<p>Your verification code is <strong>%s</strong>.</p><p>It expires in 15 minutes.</p>", code),
	}

	options := &resend.SendEmailOptions{}
	if strings.TrimSpace(idempotencyKey) != "" {
		options.IdempotencyKey = strings.TrimSpace(idempotencyKey)
	}

	return s.sendWithRetries(ctx, params, options)
}

// SendAnnouncement delivers an admin broadcast. Recipients go in Bcc so
// user emails are not exposed to each other.
func (s *ResendEmailService) SendAnnouncement(ctx context.Context, toEmails []string, subject, message string) error {
	if len(toEmails) == 0 {
		return fmt.Errorf("recipient list is empty")
	}
	if subject == "" || message == "" {
		return fmt.Errorf("subject and message are required")
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{s.from},
		Bcc:     toEmails,
		Subject: subject,
		Text:    message,
	}

	return s.sendWithRetries(ctx, params, &resend.SendEmailOptions{})
}

func (s *ResendEmailService) sendWithRetries(ctx context.Context, params *resend.SendEmailRequest, options *resend.SendEmailOptions) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		_, err := s.client.Emails.SendWithOptions(ctx, params, options)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("resend send failed: %w", err)
	}

	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}
	return 0, false
}
