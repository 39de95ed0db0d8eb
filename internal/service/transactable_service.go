package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	domainErrors "github.com/growshare/marketplace/internal/domain/errors"
	"github.com/growshare/marketplace/internal/domain/listing"
	"github.com/growshare/marketplace/internal/domain/pricing"
	"github.com/growshare/marketplace/internal/domain/transactable"
	"github.com/growshare/marketplace/internal/infrastructure/observability"
)

// TransactableService creates bookings, rentals and orders and validates
// every status transition against the per-kind transition tables.
type TransactableService struct {
	transactableRepo transactable.Repository
	listingRepo      listing.Repository
	txManager        TransactionManager
	dispatcher       *Dispatcher
	metrics          *observability.Metrics
}

func NewTransactableService(
	transactableRepo transactable.Repository,
	listingRepo listing.Repository,
	txManager TransactionManager,
	dispatcher *Dispatcher,
	metrics *observability.Metrics,
) *TransactableService {
	return &TransactableService{
		transactableRepo: transactableRepo,
		listingRepo:      listingRepo,
		txManager:        txManager,
		dispatcher:       dispatcher,
		metrics:          metrics,
	}
}

// CreateBooking creates a pending plot booking priced from the listing's
// rates. The plot stays available until the owner approves.
func (s *TransactableService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*transactable.Transactable, error) {
	return s.createRental(ctx, transactable.KindBooking, listing.TypePlot, req.ListingID, req.CounterpartyID, req.StartDate, req.EndDate, req.Notes)
}

// CreateRental creates a pending tool rental priced from the listing's
// rates. The tool stays available until the owner approves.
func (s *TransactableService) CreateRental(ctx context.Context, req CreateRentalRequest) (*transactable.Transactable, error) {
	return s.createRental(ctx, transactable.KindRental, listing.TypeTool, req.ListingID, req.CounterpartyID, req.StartDate, req.EndDate, req.Notes)
}

func (s *TransactableService) createRental(
	ctx context.Context,
	kind transactable.Kind,
	wantType listing.Type,
	listingID, counterpartyID uuid.UUID,
	start, end time.Time,
	notes string,
) (*transactable.Transactable, error) {
	l, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l.Type != wantType {
		return nil, domainErrors.NewValidationError("listing_id", "listing is not a "+string(wantType))
	}
	if l.Status != listing.StatusAvailable {
		return nil, domainErrors.ErrListingUnavailable
	}

	amount, err := pricing.RentalCost(l.DailyRateCents, l.WeeklyRateCents, start, end)
	if err != nil {
		return nil, err
	}

	t, err := transactable.New(kind, l.OwnerID, counterpartyID, l.ID, amount, l.Currency)
	if err != nil {
		return nil, err
	}
	t.StartDate = &start
	t.EndDate = &end
	t.Notes = notes

	if err := s.transactableRepo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.dispatcher.RequestCreated(ctx, t)
	return t, nil
}

// CreateOrder creates a pending produce order. The listing quantity is
// decremented atomically in the same transaction as the insert, so two
// buyers can never both claim the last unit.
func (s *TransactableService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*transactable.Transactable, error) {
	l, err := s.listingRepo.GetByID(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}
	if l.Type != listing.TypeProduce {
		return nil, domainErrors.NewValidationError("listing_id", "listing is not produce")
	}

	amount, err := pricing.OrderCost(l.UnitPriceCents, req.Quantity)
	if err != nil {
		return nil, err
	}

	t, err := transactable.New(transactable.KindOrder, l.OwnerID, req.CounterpartyID, l.ID, amount, l.Currency)
	if err != nil {
		return nil, err
	}
	t.Quantity = req.Quantity
	t.Notes = req.Notes
	t.InventoryHeld = true

	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.listingRepo.ReserveQuantity(ctx, l.ID, req.Quantity); err != nil {
			s.metrics.InventoryReservations.WithLabelValues("reserve", "rejected").Inc()
			return err
		}
		return s.transactableRepo.Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.InventoryReservations.WithLabelValues("reserve", "ok").Inc()

	s.dispatcher.RequestCreated(ctx, t)
	return t, nil
}

// GetByID retrieves a transactable, restricted to its two parties.
func (s *TransactableService) GetByID(ctx context.Context, id, userID uuid.UUID) (*transactable.Transactable, error) {
	t, err := s.transactableRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := t.RoleOf(userID); err != nil {
		return nil, err
	}
	return t, nil
}

// List lists the user's transactables.
func (s *TransactableService) List(ctx context.Context, userID uuid.UUID, filter transactable.ListFilter) ([]*transactable.Transactable, error) {
	filter.UserID = &userID
	return s.transactableRepo.List(ctx, filter)
}

// Transition moves a transactable to the requested target status on behalf
// of the acting user. The write is a compare-and-set on the status that was
// read, so two concurrent actors cannot both win; the loser gets
// ErrStaleState. Inventory moves in the same transaction as the status.
func (s *TransactableService) Transition(ctx context.Context, req TransitionRequest) (*transactable.Transactable, error) {
	t, err := s.transactableRepo.GetByID(ctx, req.TransactableID)
	if err != nil {
		return nil, err
	}

	role, err := t.RoleOf(req.ActorID)
	if err != nil {
		return nil, err
	}

	expected := t.Status
	if err := t.TransitionTo(req.Target, role); err != nil {
		s.metrics.TransitionFailures.WithLabelValues(string(t.Kind), "not_allowed").Inc()
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.transactableRepo.UpdateStatus(ctx, t, expected); err != nil {
			return err
		}

		switch {
		case t.Status == transactable.StatusConfirmed && t.Kind != transactable.KindOrder:
			// Approval takes the plot or tool off the market.
			return s.holdAvailability(ctx, t)
		case t.Status == transactable.StatusCancelled:
			return s.releaseInventory(ctx, t)
		case t.Status == transactable.StatusCompleted && t.Kind != transactable.KindOrder:
			// The tool or plot comes back at the end of the rental.
			return s.releaseInventory(ctx, t)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domainErrors.ErrStaleState) {
			s.metrics.TransitionFailures.WithLabelValues(string(t.Kind), "stale").Inc()
		}
		return nil, err
	}

	s.metrics.TransitionsTotal.WithLabelValues(string(t.Kind), string(t.Status)).Inc()
	s.dispatcher.StatusChanged(ctx, t, role)
	return t, nil
}

func (s *TransactableService) holdAvailability(ctx context.Context, t *transactable.Transactable) error {
	flipped, err := s.transactableRepo.SetInventoryHeld(ctx, t.ID, true)
	if err != nil {
		return err
	}
	if !flipped {
		return nil
	}
	t.InventoryHeld = true
	return s.listingRepo.SetAvailability(ctx, t.ListingID, false)
}

// releaseInventory returns held stock or availability to the listing. The
// inventory-held flip guards the credit: under concurrent retries only the
// caller that wins the flip performs the restore.
func (s *TransactableService) releaseInventory(ctx context.Context, t *transactable.Transactable) error {
	if !t.InventoryHeld {
		return nil
	}
	flipped, err := s.transactableRepo.SetInventoryHeld(ctx, t.ID, false)
	if err != nil {
		return err
	}
	if !flipped {
		return nil
	}
	t.InventoryHeld = false

	if t.Kind == transactable.KindOrder {
		if err := s.listingRepo.RestoreQuantity(ctx, t.ListingID, t.Quantity); err != nil {
			return err
		}
		s.metrics.InventoryReservations.WithLabelValues("restore", "ok").Inc()
		return nil
	}
	return s.listingRepo.SetAvailability(ctx, t.ListingID, true)
}
