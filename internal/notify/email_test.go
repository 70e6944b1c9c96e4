package notify

import (
	"context"
	"testing"

	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "",
		FromEmail: "test@example.com",
	}, nil)

	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "test@example.com",
		FromName:  "",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != DefaultFromName {
		t.Errorf("expected default from name %q, got %q", DefaultFromName, sender.fromName)
	}
}

func TestNewSendGridSender_CustomFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "test@example.com",
		FromName:  "Praxis Mitte",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "Praxis Mitte" {
		t.Errorf("expected from name 'Praxis Mitte', got %q", sender.fromName)
	}
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	sender := &SendGridSender{
		client: nil,
	}

	err := sender.Send(context.Background(), EmailMessage{
		To:      "recipient@example.com",
		Subject: "Test",
		Body:    "Test body",
	})

	if err == nil {
		t.Error("expected error when client is nil")
	}
}

func TestStubEmailSender_Send(t *testing.T) {
	sender := NewStubEmailSender(nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "recipient@example.com",
		Subject: "Test Subject",
		Body:    "Test body",
	})

	if err != nil {
		t.Errorf("stub sender should not return error, got: %v", err)
	}
}

func TestSendGridMail_TagsPractice(t *testing.T) {
	from := mail.NewEmail("Praxis Terminservice", "noreply@praxis.example")
	message := sendGridMail(from, EmailMessage{
		To:         "front@krebs.example",
		Subject:    "Rückruf",
		Body:       "Bitte zurückrufen",
		ReplyTo:    "info@krebs.example",
		PracticeID: "physio_krebs_nottuln",
		Category:   "callback",
	})

	if message.ReplyTo == nil || message.ReplyTo.Address != "info@krebs.example" {
		t.Errorf("reply-to = %+v", message.ReplyTo)
	}
	if message.CustomArgs["practice_id"] != "physio_krebs_nottuln" {
		t.Errorf("custom args = %v", message.CustomArgs)
	}
	if len(message.Categories) != 1 || message.Categories[0] != "callback" {
		t.Errorf("categories = %v", message.Categories)
	}

	plain := sendGridMail(from, EmailMessage{To: "x@example.com", Subject: "s", Body: "b"})
	if plain.ReplyTo != nil || len(plain.CustomArgs) != 0 || len(plain.Categories) != 0 {
		t.Errorf("untagged message should carry no tags: %+v", plain)
	}
}
