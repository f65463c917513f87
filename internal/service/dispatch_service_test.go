package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/mail.v2"

	"github.com/staffmail/staffmail/internal/email"
	"github.com/staffmail/staffmail/internal/logger"
	"github.com/staffmail/staffmail/internal/model"
	"github.com/staffmail/staffmail/internal/repository"
)

type stubFetcher struct {
	contacts []model.Contact
	err      error
	calls    int
}

func (f *stubFetcher) FetchAll(ctx context.Context) ([]model.Contact, error) {
	f.calls++
	return f.contacts, f.err
}

// mockSender records every Send in order and fails the contact at failOn (1-indexed)
type mockSender struct {
	sent   []model.Contact
	calls  int
	failOn int
	err    error
}

func (m *mockSender) Send(ctx context.Context, c model.Contact) error {
	m.calls++
	if m.failOn > 0 && m.calls == m.failOn {
		return &email.DeliveryError{Recipient: c.EmailTo, Err: m.err}
	}
	m.sent = append(m.sent, c)
	return nil
}

func (m *mockSender) SendAll(ctx context.Context, contacts []model.Contact) error {
	for _, c := range contacts {
		if err := m.Send(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func TestRun_SendsEveryContactInOrder(t *testing.T) {
	contacts := []model.Contact{
		{EmailTo: "a@x.com", EmailSubject: "S1", EmailBody: "B1"},
		{EmailTo: "b@x.com", EmailSubject: "S2", EmailBody: "B2"},
	}
	fetcher := &stubFetcher{contacts: contacts}
	sender := &mockSender{}

	err := NewDispatchService(fetcher, sender, logger.Nop()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, contacts, sender.sent)
}

func TestRun_NoContacts(t *testing.T) {
	sender := &mockSender{}

	err := NewDispatchService(&stubFetcher{}, sender, logger.Nop()).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sender.calls)
}

func TestRun_FetchFailureSendsNothing(t *testing.T) {
	storeErr := &repository.StoreAccessError{Op: "connect", Err: errors.New("connection refused")}
	sender := &mockSender{}

	err := NewDispatchService(&stubFetcher{err: storeErr}, sender, logger.Nop()).Run(context.Background())

	assert.Same(t, storeErr, err, "store errors propagate unchanged")
	assert.Zero(t, sender.calls)
}

func TestRun_SendFailureAbortsRemaining(t *testing.T) {
	contacts := []model.Contact{
		{EmailTo: "1@x.com"}, {EmailTo: "2@x.com"}, {EmailTo: "3@x.com"}, {EmailTo: "4@x.com"},
	}
	boom := errors.New("535 authentication failed")
	sender := &mockSender{failOn: 3, err: boom}

	err := NewDispatchService(&stubFetcher{contacts: contacts}, sender, logger.Nop()).Run(context.Background())

	var deliveryErr *email.DeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	assert.Equal(t, "3@x.com", deliveryErr.Recipient)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, contacts[:2], sender.sent)
	assert.Equal(t, 3, sender.calls)
}

func TestRun_LogsRunSummary(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "info", "json")

	fetcher := &stubFetcher{contacts: []model.Contact{{EmailTo: "a@x.com"}}}
	require.NoError(t, NewDispatchService(fetcher, &mockSender{}, log).Run(context.Background()))

	out := buf.String()
	assert.Contains(t, out, `"component":"dispatch"`)
	assert.Contains(t, out, `"run_id":"`)
	assert.Contains(t, out, `"contacts":1`)
	assert.Contains(t, out, "dispatch completed")
}

// transportFunc adapts a function to email.Transport
type transportFunc func(ctx context.Context, msg *mail.Message) error

func (f transportFunc) Deliver(ctx context.Context, msg *mail.Message) error {
	return f(ctx, msg)
}

// End to end through the real dispatcher: store rows in, messages out.
func TestRun_WithDispatcher(t *testing.T) {
	var delivered []string
	transport := transportFunc(func(ctx context.Context, msg *mail.Message) error {
		delivered = append(delivered, msg.GetHeader("To")[0]+"|"+msg.GetHeader("Subject")[0])
		return nil
	})
	dispatcher := email.NewDispatcherWithFactory(email.From{Address: "work@example.com"}, func(ctx context.Context) (email.Transport, error) {
		return transport, nil
	}, logger.Nop())

	fetcher := &stubFetcher{contacts: []model.Contact{
		{EmailTo: "a@x.com", EmailSubject: "S1", EmailBody: "B1"},
		{EmailTo: "b@x.com", EmailSubject: "S2", EmailBody: "B2"},
	}}

	require.NoError(t, NewDispatchService(fetcher, dispatcher, logger.Nop()).Run(context.Background()))
	assert.Equal(t, []string{"a@x.com|S1", "b@x.com|S2"}, delivered)
}

func TestRun_WithDispatcherSingleFailure(t *testing.T) {
	attempts := 0
	transport := transportFunc(func(ctx context.Context, msg *mail.Message) error {
		attempts++
		return errors.New("dial tcp: connection refused")
	})
	dispatcher := email.NewDispatcherWithFactory(email.From{Address: "work@example.com"}, func(ctx context.Context) (email.Transport, error) {
		return transport, nil
	}, logger.Nop())

	fetcher := &stubFetcher{contacts: []model.Contact{{EmailTo: "a@x.com", EmailSubject: "S1", EmailBody: "B1"}}}
	err := NewDispatchService(fetcher, dispatcher, logger.Nop()).Run(context.Background())

	var deliveryErr *email.DeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	assert.Equal(t, "a@x.com", deliveryErr.Recipient)
	assert.Equal(t, 1, attempts)
}
