// Package mail sends transactional email.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SMTPConfig holds SMTP server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTP sends mail through an SMTP server.
type SMTP struct {
	cfg SMTPConfig
}

// NewSMTP creates an SMTP sender.
func NewSMTP(cfg SMTPConfig) *SMTP {
	return &SMTP{cfg: cfg}
}

// Send delivers m, dialing a new connection per message.
func (s *SMTP) Send(ctx context.Context, m Message) error {
	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return fmt.Errorf("setting sender: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return fmt.Errorf("setting recipient: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetDate()
	msg.SetBodyString(gomail.TypeTextPlain, m.Body)

	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}
	client, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending mail to %s: %w", m.To, err)
	}
	return nil
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	Log *zap.Logger
}

func (l LogSender) Send(_ context.Context, m Message) error {
	l.Log.Info("mail not sent, no SMTP host configured",
		zap.String("to", m.To),
		zap.String("subject", m.Subject),
		zap.String("body", m.Body),
	)
	return nil
}

var resetTemplate = template.Must(template.New("reset").Parse(`Hello {{.Name}},

Someone asked to reset the password for your inventory account.
Open the link below to choose a new password. It is valid for {{.Valid}}.

{{.Link}}

If you did not ask for this, you can ignore this message.
`))

// PasswordReset builds the password reset message.
func PasswordReset(to, name, link string, valid time.Duration) (Message, error) {
	var buf bytes.Buffer
	err := resetTemplate.Execute(&buf, struct {
		Name, Link string
		Valid      time.Duration
	}{name, link, valid})
	if err != nil {
		return Message{}, fmt.Errorf("rendering reset mail: %w", err)
	}
	return Message{To: to, Subject: "Reset your password", Body: buf.String()}, nil
}
