// Package delivery defines the narrow interfaces the dispatcher uses to talk
// to outbound channels. Implementations live under internal/infra; the
// dispatcher never sees provider SDKs directly.
package delivery

import "context"

// EmailMessage is a fully composed outbound email.
type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// EmailSender delivers a composed email. A returned error marks the
// notification FAILED; there is no retry.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

// ComposeRequest carries the per-notification fields rendered into the
// generic email wrapper.
type ComposeRequest struct {
	RecipientName string
	MessageBody   string
	LinkURL       string
}

// ComposedEmail is the wrapper output. Subject is a generic default; the
// dispatcher prefers the notification title when one is set.
type ComposedEmail struct {
	Subject string
	HTML    string
	Text    string
}

// EmailComposer renders the themed wrapper around a notification message.
type EmailComposer interface {
	Compose(req ComposeRequest) (*ComposedEmail, error)
}

// PushSender delivers a mobile push notification to a device token. The
// payload carries the notification type plus stored metadata.
type PushSender interface {
	SendPush(ctx context.Context, deviceToken, alert string, payload map[string]any) error
}
