// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Common errors for repository operations.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrWishNotFound    = errors.New("wish not found")
	// ErrNoCredits is returned when a credit consumption finds neither the
	// free credit nor any purchased credits available.
	ErrNoCredits = errors.New("no credits available")
)

// DB is the query interface satisfied by both *pgxpool.Pool and pgx.Tx.
// Repository methods that must participate in a caller-owned transaction
// take it explicitly.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
