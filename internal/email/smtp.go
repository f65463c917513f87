package email

import (
	"context"
	"crypto/tls"

	"gopkg.in/mail.v2"

	"github.com/staffmail/staffmail/internal/config"
)

// SMTPTransport delivers messages through an SMTP server, one
// connection per message.
type SMTPTransport struct {
	dialer *mail.Dialer
}

// NewSMTPTransport creates an SMTPTransport from the mail session settings.
func NewSMTPTransport(cfg config.SMTPConfig) *SMTPTransport {
	return &SMTPTransport{dialer: newDialer(cfg)}
}

func newDialer(cfg config.SMTPConfig) *mail.Dialer {
	var username, password string
	if cfg.RequireAuth {
		username = cfg.Credentials.Username
		password = cfg.Credentials.Password
	}

	d := mail.NewDialer(cfg.Host, cfg.Port, username, password)
	d.SSL = cfg.SSL || cfg.Port == 465
	d.RetryFailure = false
	if cfg.Timeout > 0 {
		d.Timeout = cfg.Timeout
	}
	if cfg.StartTLS {
		d.StartTLSPolicy = mail.OpportunisticStartTLS
	} else {
		d.StartTLSPolicy = mail.NoStartTLS
	}
	if cfg.InsecureSkipVerify {
		d.TLSConfig = &tls.Config{ServerName: cfg.Host, InsecureSkipVerify: true}
	}
	return d
}

// Deliver dials the server, sends msg and quits.
func (t *SMTPTransport) Deliver(ctx context.Context, msg *mail.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.dialer.DialAndSend(msg)
}
