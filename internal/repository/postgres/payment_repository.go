package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	domainErrors "github.com/growshare/marketplace/internal/domain/errors"
	"github.com/growshare/marketplace/internal/domain/payment"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentRepository implements payment.Repository using PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

const paymentColumns = `id, transactable_id, provider, external_ref, client_secret,
	amount_cents, fee_cents, net_cents, currency, status, metadata,
	created_at, updated_at, succeeded_at`

// Create inserts a new payment record. payment_records carries a UNIQUE
// constraint on transactable_id; concurrent initiations race on it and
// exactly one insert wins.
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Record) error {
	metadata, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.db(ctx).Exec(ctx,
		`INSERT INTO payment_records
		 (id, transactable_id, provider, external_ref, client_secret,
		  amount_cents, fee_cents, net_cents, currency, status, metadata,
		  created_at, updated_at, succeeded_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		p.ID, p.TransactableID, p.Provider, p.ExternalRef, p.ClientSecret,
		p.AmountCents, p.FeeCents, p.NetCents, p.Currency, string(p.Status), metadata,
		p.CreatedAt, p.UpdatedAt, p.SucceededAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrPaymentAlreadyPending
		}
		return fmt.Errorf("insert payment record: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Record, error) {
	return r.scan(r.db(ctx).QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payment_records WHERE id = $1`, id))
}

// GetByTransactableID retrieves the record for a transactable.
func (r *PaymentRepository) GetByTransactableID(ctx context.Context, transactableID uuid.UUID) (*payment.Record, error) {
	return r.scan(r.db(ctx).QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payment_records WHERE transactable_id = $1`, transactableID))
}

// GetByExternalRef retrieves a record by its provider reference.
func (r *PaymentRepository) GetByExternalRef(ctx context.Context, externalRef string) (*payment.Record, error) {
	return r.scan(r.db(ctx).QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payment_records WHERE external_ref = $1`, externalRef))
}

// Update updates an existing record.
func (r *PaymentRepository) Update(ctx context.Context, p *payment.Record) error {
	metadata, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE payment_records SET
		  external_ref=$1, client_secret=$2, status=$3, metadata=$4,
		  updated_at=$5, succeeded_at=$6
		 WHERE id=$7`,
		p.ExternalRef, p.ClientSecret, string(p.Status), metadata,
		p.UpdatedAt, p.SucceededAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update payment record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrPaymentNotFound
	}
	return nil
}

// AddEvent appends to the payment audit trail.
func (r *PaymentRepository) AddEvent(ctx context.Context, event *payment.Event) error {
	data, err := json.Marshal(event.EventData)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	_, err = r.db(ctx).Exec(ctx,
		`INSERT INTO payment_events (id, record_id, event_type, event_data, created_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		event.ID, event.RecordID, event.EventType, data,
	)
	if err != nil {
		return fmt.Errorf("insert payment event: %w", err)
	}
	return nil
}

// GetEvents retrieves the audit trail for a record.
func (r *PaymentRepository) GetEvents(ctx context.Context, recordID uuid.UUID) ([]*payment.Event, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, record_id, event_type, event_data, created_at
		 FROM payment_events WHERE record_id = $1 ORDER BY created_at ASC`, recordID)
	if err != nil {
		return nil, fmt.Errorf("get payment events: %w", err)
	}
	defer rows.Close()

	var events []*payment.Event
	for rows.Next() {
		e := &payment.Event{}
		var data []byte
		if err := rows.Scan(&e.ID, &e.RecordID, &e.EventType, &data, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment event: %w", err)
		}
		if len(data) > 0 {
			e.EventData = make(map[string]any)
			if err := json.Unmarshal(data, &e.EventData); err != nil {
				return nil, fmt.Errorf("unmarshal event data: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *PaymentRepository) scan(row scanner) (*payment.Record, error) {
	p := &payment.Record{}
	var status string
	var metadata []byte
	err := row.Scan(
		&p.ID, &p.TransactableID, &p.Provider, &p.ExternalRef, &p.ClientSecret,
		&p.AmountCents, &p.FeeCents, &p.NetCents, &p.Currency, &status, &metadata,
		&p.CreatedAt, &p.UpdatedAt, &p.SucceededAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("scan payment record: %w", err)
	}
	p.Status = payment.Status(status)
	if len(metadata) > 0 {
		p.Metadata = make(map[string]any)
		if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return p, nil
}
