// Package email implements the outbound email channel: a themed HTML wrapper
// around notification messages plus two interchangeable delivery backends.
package email

import (
	"bytes"
	"fmt"
	"html/template"

	"bookkeeping-notifier/internal/domain/delivery"
	"bookkeeping-notifier/internal/infra/config"
)

// defaultSubject is used when a notification carries no title.
const defaultSubject = "You have a new notification"

// wrapperTemplate is the single generic layout every outbound email uses.
// Per-notification content is limited to the greeting name and the message
// body; everything else comes from configuration.
const wrapperTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin:0; padding:0; background-color:{{.Theme.Background}}; font-family:Arial, Helvetica, sans-serif;">
<table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="background-color:{{.Theme.Background}}; padding:24px 0;">
<tr><td align="center">
<table role="presentation" width="560" cellpadding="0" cellspacing="0" style="background-color:#ffffff; border-radius:8px; overflow:hidden;">
<tr><td style="background-color:{{.Theme.Primary}}; padding:20px 32px;" align="center">
<img src="{{.LogoURL}}" alt="{{.Signature.CompanyName}}" height="36" style="display:block;">
</td></tr>
<tr><td style="padding:32px;">
<p style="color:{{.Theme.Text}}; font-size:16px; margin:0 0 16px;">Hi {{.RecipientName}},</p>
<p style="color:{{.Theme.Text}}; font-size:16px; margin:0 0 24px;">{{.MessageBody}}</p>
<table role="presentation" cellpadding="0" cellspacing="0"><tr>
<td style="background-color:{{.Theme.Secondary}}; border-radius:6px;">
<a href="{{.LinkURL}}" style="display:inline-block; padding:12px 28px; color:#ffffff; font-size:15px; text-decoration:none;">Open dashboard</a>
</td></tr></table>
</td></tr>
<tr><td style="padding:0 32px 32px;">
<p style="color:{{.Theme.Text}}; font-size:14px; margin:0;">
{{.Signature.Name}}<br>
{{.Signature.Title}}, {{.Signature.CompanyName}}<br>
<a href="mailto:{{.Signature.Email}}" style="color:{{.Theme.Secondary}};">{{.Signature.Email}}</a>
</p>
</td></tr>
</table>
</td></tr>
</table>
</body>
</html>`

// Composer renders the themed wrapper. It is safe for concurrent use.
type Composer struct {
	tmpl      *template.Template
	theme     config.EmailTheme
	signature config.CompanySignature
	logoURL   string
	linkURL   string
}

func NewComposer(cfg *config.AppConfig) (*Composer, error) {
	tmpl, err := template.New("email").Parse(wrapperTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email wrapper template: %w", err)
	}
	return &Composer{
		tmpl:      tmpl,
		theme:     cfg.Theme,
		signature: cfg.Signature,
		logoURL:   cfg.LogoURL,
		linkURL:   cfg.LinkURL,
	}, nil
}

func (c *Composer) Compose(req delivery.ComposeRequest) (*delivery.ComposedEmail, error) {
	linkURL := req.LinkURL
	if linkURL == "" {
		linkURL = c.linkURL
	}

	data := struct {
		Theme         config.EmailTheme
		Signature     config.CompanySignature
		LogoURL       string
		LinkURL       string
		RecipientName string
		MessageBody   string
	}{
		Theme:         c.theme,
		Signature:     c.signature,
		LogoURL:       c.logoURL,
		LinkURL:       linkURL,
		RecipientName: req.RecipientName,
		MessageBody:   req.MessageBody,
	}

	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render email wrapper: %w", err)
	}

	text := fmt.Sprintf("Hi %s,\n\n%s\n\n%s\n%s, %s\n%s",
		req.RecipientName, req.MessageBody,
		c.signature.Name, c.signature.Title, c.signature.CompanyName, c.signature.Email)

	return &delivery.ComposedEmail{
		Subject: defaultSubject,
		HTML:    buf.String(),
		Text:    text,
	}, nil
}
