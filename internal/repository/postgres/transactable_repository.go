package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	domainErrors "github.com/growshare/marketplace/internal/domain/errors"
	"github.com/growshare/marketplace/internal/domain/transactable"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// allowedSortColumns is a whitelist of columns valid for ORDER BY.
var allowedSortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"amount":     "amount_cents",
	"status":     "status",
}

// TransactableRepository implements transactable.Repository using PostgreSQL.
type TransactableRepository struct {
	pool *pgxpool.Pool
}

// NewTransactableRepository creates a new TransactableRepository.
func NewTransactableRepository(pool *pgxpool.Pool) *TransactableRepository {
	return &TransactableRepository{pool: pool}
}

func (r *TransactableRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

const transactableColumns = `id, kind, owner_id, counterparty_id, listing_id, quantity,
	amount_cents, currency, start_date, end_date, inventory_held, notes, status,
	approved_at, paid_at, completed_at, cancelled_at, created_at, updated_at`

// Create inserts a new transactable.
func (r *TransactableRepository) Create(ctx context.Context, t *transactable.Transactable) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO transactables
		 (id, kind, owner_id, counterparty_id, listing_id, quantity,
		  amount_cents, currency, start_date, end_date, inventory_held, notes, status,
		  approved_at, paid_at, completed_at, cancelled_at, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		t.ID, string(t.Kind), t.OwnerID, t.CounterpartyID, t.ListingID, t.Quantity,
		t.AmountCents, t.Currency, t.StartDate, t.EndDate, t.InventoryHeld, t.Notes, string(t.Status),
		t.ApprovedAt, t.PaidAt, t.CompletedAt, t.CancelledAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transactable: %w", err)
	}
	return nil
}

// GetByID retrieves a transactable by its ID.
func (r *TransactableRepository) GetByID(ctx context.Context, id uuid.UUID) (*transactable.Transactable, error) {
	return r.scan(r.db(ctx).QueryRow(ctx,
		`SELECT `+transactableColumns+` FROM transactables WHERE id = $1`, id))
}

// UpdateStatus persists the entity guarded by a compare-and-set on the
// status the caller read. A concurrent transition makes the WHERE clause
// miss and surfaces ErrStaleState instead of silently overwriting.
func (r *TransactableRepository) UpdateStatus(ctx context.Context, t *transactable.Transactable, expected transactable.Status) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE transactables SET
		  status=$1, notes=$2, inventory_held=$3,
		  approved_at=$4, paid_at=$5, completed_at=$6, cancelled_at=$7, updated_at=$8
		 WHERE id=$9 AND status=$10`,
		string(t.Status), t.Notes, t.InventoryHeld,
		t.ApprovedAt, t.PaidAt, t.CompletedAt, t.CancelledAt, t.UpdatedAt,
		t.ID, string(expected),
	)
	if err != nil {
		return fmt.Errorf("update transactable status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing row from a concurrent transition.
		var exists bool
		if err := r.db(ctx).QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM transactables WHERE id=$1)`, t.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check transactable exists: %w", err)
		}
		if !exists {
			return domainErrors.ErrTransactableNotFound
		}
		return domainErrors.ErrStaleState
	}
	return nil
}

// SetInventoryHeld flips the inventory-held flag atomically and reports
// whether this call performed the flip.
func (r *TransactableRepository) SetInventoryHeld(ctx context.Context, id uuid.UUID, held bool) (bool, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE transactables SET inventory_held=$1, updated_at=NOW()
		 WHERE id=$2 AND inventory_held=$3`,
		held, id, !held,
	)
	if err != nil {
		return false, fmt.Errorf("set inventory held: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// List lists transactables with optional filters.
func (r *TransactableRepository) List(ctx context.Context, f transactable.ListFilter) ([]*transactable.Transactable, error) {
	query := `SELECT ` + transactableColumns + ` FROM transactables WHERE 1=1`
	args := []any{}
	argIdx := 1

	if f.UserID != nil {
		query += fmt.Sprintf(" AND (owner_id = $%d OR counterparty_id = $%d)", argIdx, argIdx)
		args = append(args, *f.UserID)
		argIdx++
	}
	if f.Kind != nil {
		query += fmt.Sprintf(" AND kind = $%d", argIdx)
		args = append(args, string(*f.Kind))
		argIdx++
	}
	if f.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(*f.Status))
		argIdx++
	}

	sortCol, ok := allowedSortColumns[f.SortBy]
	if !ok {
		sortCol = "created_at"
	}
	order := "DESC"
	if f.SortOrder == "asc" {
		order = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortCol, order)

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactables: %w", err)
	}
	defer rows.Close()

	var result []*transactable.Transactable
	for rows.Next() {
		t, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (r *TransactableRepository) scan(row scanner) (*transactable.Transactable, error) {
	t := &transactable.Transactable{}
	var kind, status string
	err := row.Scan(
		&t.ID, &kind, &t.OwnerID, &t.CounterpartyID, &t.ListingID, &t.Quantity,
		&t.AmountCents, &t.Currency, &t.StartDate, &t.EndDate, &t.InventoryHeld, &t.Notes, &status,
		&t.ApprovedAt, &t.PaidAt, &t.CompletedAt, &t.CancelledAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrTransactableNotFound
		}
		return nil, fmt.Errorf("scan transactable: %w", err)
	}
	t.Kind = transactable.Kind(kind)
	t.Status = transactable.Status(status)
	return t, nil
}
