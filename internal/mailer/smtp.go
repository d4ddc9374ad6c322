package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// Config carries the SMTP connection settings. UseSSL selects implicit
// TLS on connect; UseTLS selects mandatory STARTTLS. SSL wins when both
// are set, mirroring how the deployment's MAIL_USE_* flags are read.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
	UseSSL   bool
	From     string
	Timeout  time.Duration
}

// SMTPTransport delivers notifications through a plain SMTP server.
type SMTPTransport struct {
	client *mail.Client
	from   string
}

func NewSMTPTransport(cfg Config) (*SMTPTransport, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
	}

	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	switch {
	case cfg.UseSSL:
		opts = append(opts, mail.WithSSL())
	case cfg.UseTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &SMTPTransport{client: client, from: cfg.From}, nil
}

// Send dials the SMTP server and delivers a single plain-text message.
// No timeouts beyond the client's own are imposed here.
func (t *SMTPTransport) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(t.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := t.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// compile-time check that SMTPTransport implements Transport
var _ Transport = (*SMTPTransport)(nil)
