package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/practice-booking/internal/booking"
	"github.com/wolfman30/practice-booking/internal/practice"
	"github.com/wolfman30/practice-booking/pkg/logging"
)

// Service notifies practice staff about callback tickets.
type Service struct {
	email     EmailSender
	directory practice.Directory
	logger    *logging.Logger
}

// NewService creates a notification service.
func NewService(email EmailSender, directory practice.Directory, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if directory == nil {
		directory = practice.NewStaticDirectory()
	}
	if email == nil {
		email = NewStubEmailSender(logger)
	}
	return &Service{email: email, directory: directory, logger: logger}
}

// NotifyCallback emails every callback recipient of the ticket's practice.
// It fails only when no recipient could be reached.
func (s *Service) NotifyCallback(ctx context.Context, c *booking.CallbackTicket) error {
	if c == nil {
		return fmt.Errorf("notify: nil callback ticket")
	}
	profile, err := s.directory.Profile(ctx, c.PracticeID)
	if err != nil {
		return fmt.Errorf("notify: load practice profile: %w", err)
	}

	recipients := profile.CallbackEmails
	if len(recipients) == 0 && profile.Email != "" {
		recipients = []string{profile.Email}
	}
	if len(recipients) == 0 {
		s.logger.Warn("notify: no callback recipients configured", "practice_id", c.PracticeID, "ticket_id", c.ID)
		return nil
	}

	msg := callbackEmail(profile, c)
	var errs []error
	for _, to := range recipients {
		msg.To = to
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: failed to send callback email", "error", err, "to", to, "ticket_id", c.ID)
			errs = append(errs, err)
			continue
		}
		s.logger.Info("notify: callback email sent", "to", to, "ticket_id", c.ID, "practice_id", c.PracticeID)
	}
	if len(errs) == len(recipients) {
		return fmt.Errorf("notify: callback %s: %w", c.ID, errors.Join(errs...))
	}
	return nil
}

func callbackEmail(profile *practice.Profile, c *booking.CallbackTicket) EmailMessage {
	name := c.PatientName
	if name == "" {
		name = "Unbekannt"
	}
	phone := c.PatientPhone
	if phone == "" {
		phone = "keine Nummer hinterlegt"
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Rückruf erbeten für %s.\n\n", profile.Name)
	fmt.Fprintf(&body, "Patient: %s\n", name)
	fmt.Fprintf(&body, "Telefon: %s\n", phone)
	fmt.Fprintf(&body, "Grund: %s\n", c.Reason)
	fmt.Fprintf(&body, "Ticket: %s\n", c.ID)
	if !c.CreatedAt.IsZero() {
		fmt.Fprintf(&body, "Eingegangen: %s UTC\n", c.CreatedAt.UTC().Format("02.01.2006 15:04"))
	}

	return EmailMessage{
		ToName:     profile.Name,
		Subject:    "Rückruf erbeten: " + name,
		Body:       body.String(),
		ReplyTo:    profile.Email,
		PracticeID: c.PracticeID,
		Category:   "callback",
	}
}
