package email

import (
	"context"
	"strings"
	"testing"

	"bookkeeping-notifier/internal/domain/delivery"
	"bookkeeping-notifier/internal/infra/config"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Theme: config.EmailTheme{
			Primary:    "#11083a",
			Secondary:  "#9b81f9",
			Background: "#f3ecff",
			Text:       "#6b7280",
		},
		Signature: config.CompanySignature{
			CompanyName: "Acme Books",
			Name:        "Acme Team",
			Title:       "Support",
			Email:       "support@acme.test",
		},
		LogoURL: "https://cdn.acme.test/logo.png",
		LinkURL: "https://acme.test",
	}
}

func TestComposer_Compose(t *testing.T) {
	composer, err := NewComposer(testConfig())
	if err != nil {
		t.Fatalf("NewComposer() error: %v", err)
	}

	composed, err := composer.Compose(delivery.ComposeRequest{
		RecipientName: "Ada",
		MessageBody:   "You have 3 receipts to upload.",
	})
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}

	for _, want := range []string{
		"Hi Ada,",
		"You have 3 receipts to upload.",
		"https://cdn.acme.test/logo.png",
		"https://acme.test",
		"support@acme.test",
		"#11083a",
	} {
		if !strings.Contains(composed.HTML, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
	if !strings.Contains(composed.Text, "You have 3 receipts to upload.") {
		t.Errorf("Text missing message body: %q", composed.Text)
	}
	if composed.Subject == "" {
		t.Error("Subject is empty")
	}
}

func TestComposer_EscapesHTMLInMessage(t *testing.T) {
	composer, err := NewComposer(testConfig())
	if err != nil {
		t.Fatalf("NewComposer() error: %v", err)
	}

	composed, err := composer.Compose(delivery.ComposeRequest{
		RecipientName: "Ada",
		MessageBody:   `<script>alert("x")</script>`,
	})
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	if strings.Contains(composed.HTML, "<script>") {
		t.Error("message body was not escaped")
	}
}

func TestFileSender_WriteAndLatest(t *testing.T) {
	dir := t.TempDir()
	sender, err := NewFileSender(dir)
	if err != nil {
		t.Fatalf("NewFileSender() error: %v", err)
	}

	if _, err := sender.Latest(); err != ErrNoSentEmails {
		t.Errorf("Latest() on empty dir = %v, want ErrNoSentEmails", err)
	}

	for _, html := range []string{"<p>first</p>", "<p>second</p>"} {
		if err := sender.SendEmail(context.Background(), delivery.EmailMessage{
			To: "u@example.com", Subject: "s", HTML: html,
		}); err != nil {
			t.Fatalf("SendEmail() error: %v", err)
		}
	}

	latest, err := sender.Latest()
	if err != nil {
		t.Fatalf("Latest() error: %v", err)
	}
	if latest != "<p>second</p>" {
		t.Errorf("Latest() = %q, want the most recent email", latest)
	}
}
