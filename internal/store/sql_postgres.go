package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-otp-vault/internal/config"
	"github.com/MKhiriev/go-otp-vault/internal/logger"
	"github.com/MKhiriev/go-otp-vault/migrations"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver "pgx"
)

type DB struct {
	*sql.DB
	errorClassificator ErrorClassificator
	logger             *logger.Logger
}

// pingBackoffs are the waits between connection attempts at startup.
// Only classifier-retryable failures are retried.
var pingBackoffs = []time.Duration{time.Second, 3 * time.Second, 5 * time.Second}

func NewConnectPostgres(ctx context.Context, cfg config.DB, log *logger.Logger) (*DB, error) {
	// establish connection
	conn, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		log.Err(err).Str("func", "NewConnectPostgres").Msg("error occured during database connection")
		return nil, fmt.Errorf("error occured during database connection: %w", err)
	}

	// setup connections
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(4)

	// construct a DB struct
	db := &DB{
		DB:                 conn,
		logger:             log,
		errorClassificator: NewPostgresErrorClassifier(),
	}

	// ping database, retrying transient failures
	if err := db.pingWithRetry(ctx); err != nil {
		log.Err(err).Str("func", "NewConnectPostgres").Msg("error connecting database (ping)")
		return nil, err
	}
	log.Info().Str("func", "NewConnectPostgres").Msg("connected to database successfully")

	return db, nil
}

// Migrate applies all embedded schema migrations.
func (db *DB) Migrate() error {
	return migrations.Migrate(db.DB)
}

// pingWithRetry pings the database, retrying when the failure is classified
// as retryable (connection exceptions, deadlocks, server starting up).
func (db *DB) pingWithRetry(ctx context.Context) error {
	err := db.PingContext(ctx)
	if err == nil {
		return nil
	}

	for attempt, backoff := range pingBackoffs {
		// Network-level failures carry no Postgres error code and are
		// treated as transient; definite Postgres rejections are not.
		if code := postgresError(err); code != "" && db.errorClassificator.Classify(err) != Retryable {
			return err
		}

		db.logger.Warn().
			Str("func", "DB.pingWithRetry").
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(err).
			Msg("database not reachable yet, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		if err = db.PingContext(ctx); err == nil {
			return nil
		}
	}

	return err
}

func postgresError(err error) string {
	var pgErr *pgconn.PgError
	// if postgres returns error
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	return ""
}
