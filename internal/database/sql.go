package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/staffmail/staffmail/internal/config"
)

const defaultConnectTimeout = 10 * time.Second

// DB wraps a single-connection SQL handle to the contact store
type DB struct {
	*sql.DB
}

// Open connects to the configured store and verifies the connection.
// The handle is limited to one connection; callers close it when done.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}
