package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"wishing-well/internal/model"
)

// BoostRepository handles the append-only boost event log. The log serves the
// per-wish cooldown lookup and the rising feed's trailing-window counts.
type BoostRepository struct {
	pool *pgxpool.Pool
}

// NewBoostRepository creates a new BoostRepository instance.
func NewBoostRepository(pool *pgxpool.Pool) *BoostRepository {
	return &BoostRepository{pool: pool}
}

// Insert appends a boost event. It takes an explicit DB so the boost service
// can run it in the same transaction as the credit spend and counter bump.
func (r *BoostRepository) Insert(ctx context.Context, db DB, wishID, who string) (*model.BoostEvent, error) {
	const query = `
		INSERT INTO wishes_boosts (id, wish_id, who, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, wish_id, who, created_at
	`

	var e model.BoostEvent
	err := db.QueryRow(ctx, query, uuid.NewString(), wishID, who).Scan(
		&e.ID,
		&e.WishID,
		&e.Who,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert boost event: %w", err)
	}

	return &e, nil
}

// InsertWithTime appends a boost event with a specific timestamp.
// Useful for testing window boundaries without sleeping.
func (r *BoostRepository) InsertWithTime(ctx context.Context, wishID, who string, createdAt time.Time) (*model.BoostEvent, error) {
	const query = `
		INSERT INTO wishes_boosts (id, wish_id, who, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, wish_id, who, created_at
	`

	var e model.BoostEvent
	err := r.pool.QueryRow(ctx, query, uuid.NewString(), wishID, who, createdAt).Scan(
		&e.ID,
		&e.WishID,
		&e.Who,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert boost event: %w", err)
	}

	return &e, nil
}

// ExistsRecent reports whether the session already boosted the wish inside
// the cooldown window. Served by the (wish_id, who, created_at) index.
func (r *BoostRepository) ExistsRecent(ctx context.Context, wishID, who string, window time.Duration) (bool, error) {
	const query = `
		SELECT EXISTS(
			SELECT 1 FROM wishes_boosts
			WHERE wish_id = $1 AND who = $2
			  AND created_at >= NOW() - make_interval(secs => $3)
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query, wishID, who, window.Seconds()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check recent boosts: %w", err)
	}

	return exists, nil
}

// ListByWish retrieves boost events for a wish, newest first.
func (r *BoostRepository) ListByWish(ctx context.Context, wishID string, limit int) ([]*model.BoostEvent, error) {
	const query = `
		SELECT id, wish_id, who, created_at
		FROM wishes_boosts
		WHERE wish_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, wishID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list boost events: %w", err)
	}
	defer rows.Close()

	var events []*model.BoostEvent
	for rows.Next() {
		var e model.BoostEvent
		err := rows.Scan(
			&e.ID,
			&e.WishID,
			&e.Who,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan boost event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating boost events: %w", err)
	}

	return events, nil
}
