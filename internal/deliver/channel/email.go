package channel

import (
	"context"
	"fmt"

	"github.com/matcornic/hermes/v2"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailConfig holds an email channel's per-tenant configuration.
type EmailConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// EmailChannel implements email delivery via SendGrid, renamed from
// the teacher's SendGridChannel and extended with Hermes templating
// for digest (multi-alert) bodies.
type EmailChannel struct {
	apiKey    string
	fromEmail string
	fromName  string
	client    *sendgrid.Client
}

// NewEmailChannel constructs an EmailChannel.
func NewEmailChannel(cfg EmailConfig) (*EmailChannel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("email channel: api key is required")
	}
	if cfg.FromEmail == "" {
		return nil, fmt.Errorf("email channel: from email is required")
	}

	return &EmailChannel{
		apiKey:    cfg.APIKey,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		client:    sendgrid.NewSendClient(cfg.APIKey),
	}, nil
}

// Type implements Channel.
func (c *EmailChannel) Type() Type { return TypeEmail }

// Send implements Channel.
func (c *EmailChannel) Send(ctx context.Context, msg Message) error {
	if len(msg.Recipients) == 0 {
		return Permanent(fmt.Errorf("email channel: no recipients specified"))
	}

	from := mail.NewEmail(c.fromName, c.fromEmail)

	personalization := mail.NewPersonalization()
	for _, recipient := range msg.Recipients {
		personalization.AddTos(mail.NewEmail("", recipient))
	}

	m := mail.NewV3Mail()
	m.SetFrom(from)
	m.Subject = msg.Subject
	m.AddPersonalizations(personalization)

	if msg.Body != "" {
		m.AddContent(mail.NewContent("text/plain", msg.Body))
	}
	if msg.HTMLBody != "" {
		m.AddContent(mail.NewContent("text/html", msg.HTMLBody))
	}

	response, err := c.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("email channel: send failed: %w", err)
	}

	if response.StatusCode >= 400 {
		err := fmt.Errorf("email channel: sendgrid returned status %d: %s", response.StatusCode, response.Body)
		if response.StatusCode != 408 && response.StatusCode != 429 {
			return Permanent(err)
		}
		return err
	}

	return nil
}

// Test implements Channel.
func (c *EmailChannel) Test(ctx context.Context, recipient string) error {
	if recipient == "" {
		recipient = c.fromEmail
	}

	return c.Send(ctx, Message{
		Subject:    "Pulse notification channel test",
		Body:       "Your notification channel has been configured successfully. You will receive alerts at this email address when events matching your alert rules occur.",
		Recipients: []string{recipient},
	})
}

func hermesConfig() hermes.Hermes {
	return hermes.Hermes{
		Theme: new(hermes.Default),
		Product: hermes.Product{
			Name:      "Pulse",
			Link:      "https://pulse.example.com",
			Copyright: "Pulse monitoring",
		},
	}
}

// BuildDigest renders a batched-alert digest as a Hermes email,
// grounded on the teacher's backtest/alert_templates.go dictionary
// layout, generalized from backtest fields to (severity, subject)
// pairs.
func BuildDigest(entries []DigestEntry) (subject, body, htmlBody string, err error) {
	h := hermesConfig()

	dict := make([]hermes.Entry, 0, len(entries))
	for _, e := range entries {
		dict = append(dict, hermes.Entry{Key: e.Severity, Value: e.Subject})
	}

	email := hermes.Email{
		Body: hermes.Body{
			Title: "Alert digest",
			Intros: []string{
				fmt.Sprintf("%d alerts fired since the last digest.", len(entries)),
			},
			Dictionary: dict,
		},
	}

	htmlBody, err = h.GenerateHTML(email)
	if err != nil {
		return "", "", "", fmt.Errorf("email channel: render digest html: %w", err)
	}
	body, err = h.GeneratePlainText(email)
	if err != nil {
		return "", "", "", fmt.Errorf("email channel: render digest text: %w", err)
	}

	subject = fmt.Sprintf("Pulse alert digest: %d alerts", len(entries))
	return subject, body, htmlBody, nil
}

// DigestEntry is one line of a batched-alert digest.
type DigestEntry struct {
	Severity string
	Subject  string
}
