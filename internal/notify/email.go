package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"text/template"

	"pricewatch/internal/model"
)

// emailBody renders the plain-text message with savings context when a
// previous price is known.
var emailBody = template.Must(template.New("email").Parse(`{{.Message}}

Product: {{.ItemName}}
Current price: {{printf "%.2f" .NewPrice}}
{{- if .Savings}}
Previous price: {{printf "%.2f" .OldPrice}}
You save: {{printf "%.2f" .Savings}} ({{printf "%.1f" .SavingsPct}}%)
{{- end}}

{{.ProductURL}}
`))

type emailContext struct {
	Message    string
	ItemName   string
	ProductURL string
	NewPrice   float64
	OldPrice   float64
	Savings    float64
	SavingsPct float64
}

// SMTPConfig holds the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailSender delivers notifications over SMTP.
type EmailSender struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	log  *slog.Logger
}

var _ Sender = (*EmailSender)(nil)

// NewEmailSender creates a sender for the given relay.
func NewEmailSender(cfg SMTPConfig, log *slog.Logger) *EmailSender {
	return &EmailSender{cfg: cfg, send: smtp.SendMail, log: log}
}

// Channel identifies this sender's delivery channel.
func (e *EmailSender) Channel() model.NotificationChannel {
	return model.ChannelEmail
}

// Send renders and submits one notification email.
func (e *EmailSender) Send(_ context.Context, user *model.User, n *model.Notification) error {
	if user.Email == "" {
		return ErrChannelUnavailable
	}

	body, err := renderEmailBody(n)
	if err != nil {
		return fmt.Errorf("render email: %w", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", e.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", user.Email)
	fmt.Fprintf(&msg, "Subject: %s\r\n", n.Title)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)
	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}
	if err := e.send(addr, auth, e.cfg.From, []string{user.Email}, msg.Bytes()); err != nil {
		return fmt.Errorf("send mail to %s: %w", user.Email, err)
	}

	e.log.Debug("email sent", "to", user.Email, "notification_id", n.ID)
	return nil
}

func renderEmailBody(n *model.Notification) (string, error) {
	var data model.NotificationData
	if n.Data != "" {
		if err := json.Unmarshal([]byte(n.Data), &data); err != nil {
			return "", fmt.Errorf("decode payload: %w", err)
		}
	}

	ec := emailContext{
		Message:    n.Message,
		ItemName:   data.ItemName,
		ProductURL: data.ProductURL,
		NewPrice:   data.NewPrice,
	}
	if data.OldPrice != nil && *data.OldPrice > data.NewPrice {
		ec.OldPrice = *data.OldPrice
		ec.Savings = *data.OldPrice - data.NewPrice
		ec.SavingsPct = ec.Savings / *data.OldPrice * 100
	}

	var buf bytes.Buffer
	if err := emailBody.Execute(&buf, ec); err != nil {
		return "", err
	}
	return buf.String(), nil
}
