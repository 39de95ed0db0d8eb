package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainerrors "github.com/growshare/marketplace/internal/domain/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyEntry is a cached response keyed by user and Idempotency-Key
// header. RequestHash detects the same key being reused with a different
// payload, which is rejected rather than replayed.
type IdempotencyEntry struct {
	Key            string
	UserID         string
	RequestHash    string
	ResponseBody   string
	ResponseStatus int
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

type IdempotencyRepository struct {
	pool *pgxpool.Pool
}

func NewIdempotencyRepository(pool *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

func (r *IdempotencyRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// Get returns the stored entry for (userID, key), or nil when none exists or
// it has expired. A stored entry whose request hash differs from requestHash
// returns ErrDuplicateIdempotencyKey.
func (r *IdempotencyRepository) Get(ctx context.Context, userID, key, requestHash string) (*IdempotencyEntry, error) {
	e := &IdempotencyEntry{}
	err := r.db(ctx).QueryRow(ctx,
		`SELECT key, user_id, request_hash, response_body, response_status, created_at, expires_at
		 FROM idempotency_keys
		 WHERE user_id = $1 AND key = $2 AND expires_at > NOW()`,
		userID, key,
	).Scan(&e.Key, &e.UserID, &e.RequestHash, &e.ResponseBody, &e.ResponseStatus, &e.CreatedAt, &e.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}
	if e.RequestHash != requestHash {
		return nil, domainerrors.ErrDuplicateIdempotencyKey
	}
	return e, nil
}

func (r *IdempotencyRepository) Set(ctx context.Context, entry *IdempotencyEntry) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO idempotency_keys (key, user_id, request_hash, response_body, response_status, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, key) DO UPDATE
		 SET response_body = EXCLUDED.response_body, response_status = EXCLUDED.response_status`,
		entry.Key, entry.UserID, entry.RequestHash, entry.ResponseBody, entry.ResponseStatus,
		entry.CreatedAt, entry.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("set idempotency key: %w", err)
	}
	return nil
}

// Cleanup deletes expired keys and returns how many were removed.
func (r *IdempotencyRepository) Cleanup(ctx context.Context) (int64, error) {
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM idempotency_keys WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
