package email

import (
	"context"
	"fmt"

	"gopkg.in/mail.v2"

	"github.com/staffmail/staffmail/internal/model"
)

// Sender is the contract the dispatch service uses to notify contacts.
type Sender interface {
	// Send delivers one message built from c.
	Send(ctx context.Context, c model.Contact) error
	// SendAll sends contacts one at a time, in order, stopping at the first failure.
	SendAll(ctx context.Context, contacts []model.Contact) error
}

// Transport hands a composed message to a delivery provider (SMTP, Gmail, ...).
type Transport interface {
	Deliver(ctx context.Context, msg *mail.Message) error
}

// TransportFactory builds the Transport on first use.
type TransportFactory func(ctx context.Context) (Transport, error)

// From is the fixed sender identity of every message.
type From struct {
	Address string
	Name    string
}

// DeliveryError reports a message that could not be delivered.
type DeliveryError struct {
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("email: delivery to %q failed: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
