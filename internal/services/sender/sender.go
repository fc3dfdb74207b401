// Package sender turns registration-change events into e-mail
// notifications.
package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mkalvoda/seminar-registration/internal/lib/sl"
	"github.com/mkalvoda/seminar-registration/internal/lib/smtp"
	"github.com/mkalvoda/seminar-registration/internal/models"
)

// Repository resolves the recipient address of an event.
type Repository interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// SenderService consumes registration events and mails the user.
type SenderService struct {
	repo      Repository
	transport smtp.TransportInterface
	log       *slog.Logger
}

// NewSenderService creates a new SenderService.
func NewSenderService(repo Repository, transport smtp.TransportInterface, log *slog.Logger) *SenderService {
	return &SenderService{
		repo:      repo,
		transport: transport,
		log:       log,
	}
}

// SendRegistrationChanged handles one registration.changed delivery.
func (s *SenderService) SendRegistrationChanged(body []byte) error {
	var event models.RegistrationEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	user, err := s.repo.GetUserByUsername(context.Background(), event.Username)
	if err != nil {
		s.log.Error("failed to resolve recipient", sl.Err(err))
		return err
	}

	subject := "Your seminar registration has changed"
	var bodyText string
	switch event.State {
	case models.ApplicationStatePaid:
		bodyText = fmt.Sprintf("Hello %s,\n\nyour application #%d has been updated. No payment is due.",
			user.Username, event.ApplicationID)
	default:
		bodyText = fmt.Sprintf("Hello %s,\n\nyour application #%d has been updated. The fee to pay is %d.",
			user.Username, event.ApplicationID, event.Fee)
	}

	return s.sendEmail([]string{user.Email}, subject, bodyText)
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", sl.Err(err))
		return err
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get data writer", sl.Err(err))
		return err
	}
	if _, err := wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write message", sl.Err(err))
		return err
	}
	if err := wc.Close(); err != nil {
		s.log.Error("failed to close data writer", sl.Err(err))
		return err
	}
	return client.Quit()
}
