package notify

import (
	"fmt"

	"github.com/wolfman30/practice-booking/pkg/logging"
)

// ProviderConfig selects and configures the email backend.
type ProviderConfig struct {
	// Provider is one of auto, sendgrid, ses, stub.
	Provider string
	SendGrid SendGridConfig
	SES      SESConfig
}

// NewEmailSender picks a sender. "auto" prefers SendGrid, then SES, then the
// stub. ses may be nil when no AWS client is available.
func NewEmailSender(cfg ProviderConfig, ses sesAPI, logger *logging.Logger) (EmailSender, error) {
	if logger == nil {
		logger = logging.Default()
	}
	sendGridReady := cfg.SendGrid.APIKey != "" && cfg.SendGrid.FromEmail != ""
	sesReady := ses != nil && cfg.SES.FromEmail != ""

	switch cfg.Provider {
	case "", "auto":
		switch {
		case sendGridReady:
			return NewSendGridSender(cfg.SendGrid, logger), nil
		case sesReady:
			return NewSESSender(ses, cfg.SES, logger), nil
		}
		logger.Warn("email notifications disabled (no SendGrid key or SES sender configured)")
		return NewStubEmailSender(logger), nil
	case "sendgrid":
		if !sendGridReady {
			return nil, fmt.Errorf("notify: sendgrid selected but SENDGRID_API_KEY or SENDGRID_FROM_EMAIL is missing")
		}
		return NewSendGridSender(cfg.SendGrid, logger), nil
	case "ses":
		if !sesReady {
			return nil, fmt.Errorf("notify: ses selected but SES_FROM_EMAIL or AWS client is missing")
		}
		return NewSESSender(ses, cfg.SES, logger), nil
	case "stub", "none":
		return NewStubEmailSender(logger), nil
	}
	return nil, fmt.Errorf("notify: unknown email provider %q", cfg.Provider)
}
