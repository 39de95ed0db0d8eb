package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	domainErrors "github.com/growshare/marketplace/internal/domain/errors"
	"github.com/growshare/marketplace/internal/domain/listing"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ListingRepository implements listing.Repository using PostgreSQL.
type ListingRepository struct {
	pool *pgxpool.Pool
}

// NewListingRepository creates a new ListingRepository.
func NewListingRepository(pool *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{pool: pool}
}

func (r *ListingRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// Create inserts a new listing.
func (r *ListingRepository) Create(ctx context.Context, l *listing.Listing) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO listings
		 (id, owner_id, type, title, unit_price_cents, daily_rate_cents, weekly_rate_cents,
		  currency, quantity, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		l.ID, l.OwnerID, string(l.Type), l.Title, l.UnitPriceCents, l.DailyRateCents, l.WeeklyRateCents,
		l.Currency, l.Quantity, string(l.Status), l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

// GetByID retrieves a listing by its ID.
func (r *ListingRepository) GetByID(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	l := &listing.Listing{}
	var typ, status string
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, owner_id, type, title, unit_price_cents, daily_rate_cents, weekly_rate_cents,
		        currency, quantity, status, created_at, updated_at
		 FROM listings WHERE id = $1`, id,
	).Scan(
		&l.ID, &l.OwnerID, &typ, &l.Title, &l.UnitPriceCents, &l.DailyRateCents, &l.WeeklyRateCents,
		&l.Currency, &l.Quantity, &status, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrListingNotFound
		}
		return nil, fmt.Errorf("scan listing: %w", err)
	}
	l.Type = listing.Type(typ)
	l.Status = listing.Status(status)
	return l, nil
}

// ReserveQuantity is the single conditional update that closes the
// decrement race: the quantity check and the decrement happen in one
// statement, and the listing flips to sold exactly when stock hits zero.
func (r *ListingRepository) ReserveQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE listings SET
		  quantity = quantity - $2,
		  status = CASE WHEN quantity - $2 = 0 THEN 'sold' ELSE status END,
		  updated_at = NOW()
		 WHERE id = $1 AND status = 'available' AND quantity >= $2`,
		id, quantity,
	)
	if err != nil {
		return fmt.Errorf("reserve listing quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// The conditional missed: either the listing is gone, not
		// available, or short on stock.
		var status string
		var have int
		err := r.db(ctx).QueryRow(ctx,
			`SELECT status, quantity FROM listings WHERE id = $1`, id).Scan(&status, &have)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrListingNotFound
			}
			return fmt.Errorf("check listing: %w", err)
		}
		if status != string(listing.StatusAvailable) {
			return domainErrors.ErrListingUnavailable
		}
		return domainErrors.ErrInsufficientQuantity
	}
	return nil
}

// RestoreQuantity credits quantity back and reopens a sold listing.
func (r *ListingRepository) RestoreQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE listings SET
		  quantity = quantity + $2,
		  status = CASE WHEN status = 'sold' THEN 'available' ELSE status END,
		  updated_at = NOW()
		 WHERE id = $1`,
		id, quantity,
	)
	if err != nil {
		return fmt.Errorf("restore listing quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrListingNotFound
	}
	return nil
}

// SetAvailability flips a tool/plot listing between available and unavailable.
func (r *ListingRepository) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	status := listing.StatusUnavailable
	if available {
		status = listing.StatusAvailable
	}
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE listings SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("set listing availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrListingNotFound
	}
	return nil
}
