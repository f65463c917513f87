package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/staffmail/staffmail/internal/config"
	"github.com/staffmail/staffmail/internal/database"
	"github.com/staffmail/staffmail/internal/model"
)

// Column names read from each row
const (
	ColumnEmailTo          = "emailTo"
	ColumnEmailSubject     = "emailSubject"
	ColumnEmailBody        = "emailBody"
	ColumnEmailAttachments = "emailAttachments"
)

// Queryer is the part of a database handle the repository needs
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	Close() error
}

// Opener acquires a fresh connection for one fetch
type Opener func(ctx context.Context) (Queryer, error)

// ContactRepository reads contacts from the relational store
type ContactRepository struct {
	open  Opener
	query string
}

// NewContactRepository creates a ContactRepository connecting with cfg
func NewContactRepository(cfg config.DatabaseConfig) *ContactRepository {
	return NewContactRepositoryWithOpener(func(ctx context.Context) (Queryer, error) {
		db, err := database.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return db, nil
	}, cfg.Query)
}

// NewContactRepositoryWithOpener creates a ContactRepository using open for connections
func NewContactRepositoryWithOpener(open Opener, query string) *ContactRepository {
	if strings.TrimSpace(query) == "" {
		query = config.DefaultQuery
	}
	return &ContactRepository{open: open, query: query}
}

// FetchAll returns every contact in result-set order.
// The connection is opened for this call and closed before returning.
func (r *ContactRepository) FetchAll(ctx context.Context) (contacts []model.Contact, err error) {
	db, err := r.open(ctx)
	if err != nil {
		return nil, &StoreAccessError{Op: "connect", Err: err}
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			contacts, err = nil, &StoreAccessError{Op: "close", Err: cerr}
		}
	}()

	rows, err := db.QueryContext(ctx, r.query)
	if err != nil {
		return nil, &StoreAccessError{Op: "query", Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &StoreAccessError{Op: "query", Err: err}
	}
	idx, err := resolveColumns(columns)
	if err != nil {
		return nil, &StoreAccessError{Op: "query", Err: err}
	}

	var (
		to, subject, body, attachments sql.NullString
		discard                        interface{}
	)
	dest := make([]interface{}, len(columns))
	for i := range dest {
		dest[i] = &discard
	}
	dest[idx.to] = &to
	dest[idx.subject] = &subject
	dest[idx.body] = &body
	if idx.attachments >= 0 {
		dest[idx.attachments] = &attachments
	}

	for rows.Next() {
		attachments = sql.NullString{}
		if err := rows.Scan(dest...); err != nil {
			return nil, &StoreAccessError{Op: "scan", Err: fmt.Errorf("failed to scan contact row: %w", err)}
		}
		contacts = append(contacts, model.Contact{
			EmailTo:          to.String,
			EmailSubject:     subject.String,
			EmailBody:        body.String,
			EmailAttachments: attachments.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreAccessError{Op: "scan", Err: fmt.Errorf("failed to iterate contact rows: %w", err)}
	}
	return contacts, nil
}

type columnIndex struct {
	to, subject, body, attachments int
}

// resolveColumns finds the contact columns by name, ignoring case
func resolveColumns(columns []string) (columnIndex, error) {
	idx := columnIndex{to: -1, subject: -1, body: -1, attachments: -1}
	for i, name := range columns {
		switch {
		case strings.EqualFold(name, ColumnEmailTo):
			idx.to = i
		case strings.EqualFold(name, ColumnEmailSubject):
			idx.subject = i
		case strings.EqualFold(name, ColumnEmailBody):
			idx.body = i
		case strings.EqualFold(name, ColumnEmailAttachments):
			idx.attachments = i
		}
	}

	var missing []string
	if idx.to < 0 {
		missing = append(missing, ColumnEmailTo)
	}
	if idx.subject < 0 {
		missing = append(missing, ColumnEmailSubject)
	}
	if idx.body < 0 {
		missing = append(missing, ColumnEmailBody)
	}
	if len(missing) > 0 {
		return idx, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}
