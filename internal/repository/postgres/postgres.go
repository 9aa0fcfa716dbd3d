package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"review-portal-backend/internal/logger"
	"review-portal-backend/internal/repository"
)

// Postgres error codes for ids that cannot name a row.
const (
	codeInvalidTextRepresentation = "22P02"
	codeForeignKeyViolation       = "23503"
)

// isNotFound reports whether err means the addressed row does not exist: no
// row matched, an id is not a valid uuid, or a referenced row is missing.
func isNotFound(err error) bool {
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeInvalidTextRepresentation, codeForeignKeyViolation:
			return true
		}
	}
	return false
}

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
	repository.ProfileRepository
	repository.ApplicationRepository
	repository.CommentRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                    db,
		ProfileRepository:     NewProfileRepository(db),
		ApplicationRepository: NewApplicationRepository(db),
		CommentRepository:     NewCommentRepository(db),
	}
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
// The change triggers notify on channel.
func Migrate(ctx context.Context, db *sql.DB, channel string) error {
	logger.Info("Applying database schema", "channel", channel)
	if _, err := db.ExecContext(ctx, Schema(channel)); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Schema returns the DDL with the notification channel filled in.
func Schema(channel string) string {
	return strings.Replace(schemaSQL, ":channel", pq.QuoteLiteral(channel), 1)
}

// Ping reports whether the database is reachable. Used by /healthz.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
