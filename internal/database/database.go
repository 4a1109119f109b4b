// Package database opens the Postgres connection pool used by the
// reelist binaries.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
)

// Options tunes the pool and the startup wait.
type Options struct {
	// MaxWait bounds how long Open keeps pinging an unready server.
	MaxWait time.Duration
	// PingTimeout bounds a single ping.
	PingTimeout  time.Duration
	MaxOpenConns int
	MaxIdleConns int
}

// DefaultOptions suits the API server.
var DefaultOptions = Options{
	MaxWait:      30 * time.Second,
	PingTimeout:  5 * time.Second,
	MaxOpenConns: 10,
	MaxIdleConns: 5,
}

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Open connects through the pgx driver and waits, with capped exponential
// backoff, until the server answers a ping or opts.MaxWait elapses.
func Open(ctx context.Context, dsn string, opts Options) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("database url is empty")
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = DefaultOptions.PingTimeout
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := waitReady(ctx, db, opts); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func waitReady(ctx context.Context, db *sql.DB, opts Options) error {
	deadline := time.Now().Add(opts.MaxWait)
	backoff := initialBackoff

	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}

		if ctx.Err() != nil || !time.Now().Add(backoff).Before(deadline) {
			return fmt.Errorf("ping database after %d attempts: %w", attempt, err)
		}
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", backoff).Msg("database not ready")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("ping database after %d attempts: %w", attempt, ctx.Err())
		case <-timer.C:
		}
		backoff = min(backoff*2, maxBackoff)
	}
}
