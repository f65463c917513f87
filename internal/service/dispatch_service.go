package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/staffmail/staffmail/internal/email"
	"github.com/staffmail/staffmail/internal/logger"
	"github.com/staffmail/staffmail/internal/model"
)

// ContactFetcher loads every contact to notify, in store order.
type ContactFetcher interface {
	FetchAll(ctx context.Context) ([]model.Contact, error)
}

// DispatchService fetches all contacts and mails each of them.
type DispatchService struct {
	contacts ContactFetcher
	sender   email.Sender
	log      *logger.Logger
}

// NewDispatchService creates a new DispatchService.
func NewDispatchService(contacts ContactFetcher, sender email.Sender, log *logger.Logger) *DispatchService {
	return &DispatchService{
		contacts: contacts,
		sender:   sender,
		log:      log.WithComponent("dispatch"),
	}
}

// Run performs one fetch-then-notify pass. Errors from either step are
// returned unchanged; nothing is retried.
func (s *DispatchService) Run(ctx context.Context) error {
	log := s.log.WithRunID(uuid.NewString())
	start := time.Now()

	contacts, err := s.contacts.FetchAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch contacts")
		return err
	}
	log.Info().Int("contacts", len(contacts)).Msg("contacts fetched")

	if err := s.sender.SendAll(ctx, contacts); err != nil {
		log.Error().Err(err).Msg("dispatch aborted")
		return err
	}

	log.Info().
		Int("sent", len(contacts)).
		Dur("duration", time.Since(start)).
		Msg("dispatch completed")
	return nil
}
