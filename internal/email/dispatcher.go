package email

import (
	"context"
	"fmt"
	"time"

	"github.com/staffmail/staffmail/internal/config"
	"github.com/staffmail/staffmail/internal/logger"
	"github.com/staffmail/staffmail/internal/model"
)

// Dispatcher sends one email per contact through a lazily created transport.
// It is not safe for concurrent use.
type Dispatcher struct {
	from      From
	factory   TransportFactory
	transport Transport
	log       *logger.Logger
}

// NewDispatcher creates a Dispatcher for the configured provider.
func NewDispatcher(cfg *config.Config, log *logger.Logger) (*Dispatcher, error) {
	from := From{Address: cfg.SMTP.SenderAddress, Name: cfg.SMTP.SenderName}

	var factory TransportFactory
	switch cfg.Email.Provider {
	case config.ProviderSMTP, "":
		smtpCfg := cfg.SMTP
		factory = func(ctx context.Context) (Transport, error) {
			return NewSMTPTransport(smtpCfg), nil
		}
	case config.ProviderGmail:
		gmailCfg := cfg.Email.Gmail
		factory = func(ctx context.Context) (Transport, error) {
			t, err := NewGmailTransport(ctx, gmailCfg, from.Address)
			if err != nil {
				return nil, err
			}
			return t, nil
		}
	default:
		return nil, fmt.Errorf("email: unsupported provider %q", cfg.Email.Provider)
	}

	return NewDispatcherWithFactory(from, factory, log), nil
}

// NewDispatcherWithFactory creates a Dispatcher that builds its transport with factory.
func NewDispatcherWithFactory(from From, factory TransportFactory, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		from:    from,
		factory: factory,
		log:     log.WithComponent("dispatcher"),
	}
}

// Send composes and delivers a single message for c.
func (d *Dispatcher) Send(ctx context.Context, c model.Contact) error {
	t, err := d.session(ctx)
	if err != nil {
		return &DeliveryError{Recipient: c.EmailTo, Err: err}
	}

	start := time.Now()
	if err := t.Deliver(ctx, Compose(d.from, c)); err != nil {
		d.log.Error().Err(err).Str("recipient", c.EmailTo).Msg("email delivery failed")
		return &DeliveryError{Recipient: c.EmailTo, Err: err}
	}

	d.log.Delivery(c.EmailTo, c.EmailSubject, time.Since(start))
	return nil
}

// SendAll sends contacts in order. The first failure aborts the batch
// and is returned as is.
func (d *Dispatcher) SendAll(ctx context.Context, contacts []model.Contact) error {
	for _, c := range contacts {
		if err := d.Send(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// session returns the transport, creating it on first use
func (d *Dispatcher) session(ctx context.Context) (Transport, error) {
	if d.transport != nil {
		return d.transport, nil
	}
	t, err := d.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mail session: %w", err)
	}
	d.transport = t
	return t, nil
}
