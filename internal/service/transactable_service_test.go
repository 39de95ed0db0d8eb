package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	domainErrors "github.com/growshare/marketplace/internal/domain/errors"
	"github.com/growshare/marketplace/internal/domain/listing"
	"github.com/growshare/marketplace/internal/domain/notification"
	"github.com/growshare/marketplace/internal/domain/transactable"
	"github.com/growshare/marketplace/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transactableFixture struct {
	svc              *TransactableService
	transactableRepo *testutil.MockTransactableRepository
	listingRepo      *testutil.MockListingRepository
	notificationRepo *testutil.MockNotificationRepository
	outboxRepo       *testutil.MockOutboxRepository
}

func setupTransactableService() *transactableFixture {
	transactableRepo := testutil.NewMockTransactableRepository()
	listingRepo := testutil.NewMockListingRepository()
	notificationRepo := testutil.NewMockNotificationRepository()
	outboxRepo := testutil.NewMockOutboxRepository()
	metrics := testutil.NewMetrics()
	dispatcher := NewDispatcher(notificationRepo, outboxRepo, nil, metrics)

	svc := NewTransactableService(transactableRepo, listingRepo, &testutil.MockTxManager{}, dispatcher, metrics)
	return &transactableFixture{
		svc:              svc,
		transactableRepo: transactableRepo,
		listingRepo:      listingRepo,
		notificationRepo: notificationRepo,
		outboxRepo:       outboxRepo,
	}
}

func futureRange(t *testing.T, daysOut, durationDays int) (time.Time, time.Time) {
	t.Helper()
	start := time.Now().AddDate(0, 0, daysOut)
	return start, start.AddDate(0, 0, durationDays)
}

func TestCreateRental_Success(t *testing.T) {
	f := setupTransactableService()
	ctx := context.Background()

	owner := uuid.New()
	tool := testutil.ToolListing(owner, 1000, 5000)
	require.NoError(t, f.listingRepo.Create(ctx, tool))

	renter := uuid.New()
	start, end := futureRange(t, 10, 3)

	rental, err := f.svc.CreateRental(ctx, CreateRentalRequest{
		ListingID:      tool.ID,
		CounterpartyID: renter,
		StartDate:      start,
		EndDate:        end,
	})
	require.NoError(t, err)

	assert.Equal(t, transactable.KindRental, rental.Kind)
	assert.Equal(t, transactable.StatusPending, rental.Status)
	assert.Equal(t, owner, rental.OwnerID)
	assert.Equal(t, int64(3000), rental.AmountCents, "3 days at the daily rate")
	assert.False(t, rental.InventoryHeld, "tool stays available until approval")

	stored, err := f.listingRepo.GetByID(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, listing.StatusAvailable, stored.Status)

	created := f.notificationRepo.ByType(notification.TypeRequestCreated)
	require.Len(t, created, 1)
	assert.Equal(t, owner, created[0].RecipientID, "owner hears about the new request")
}

func TestCreateBooking_UsesWeeklyTier(t *testing.T) {
	f := setupTransactableService()
	ctx := context.Background()

	plot := testutil.PlotListing(uuid.New(), 1000, 5000)
	require.NoError(t, f.listingRepo.Create(ctx, plot))

	start, end := futureRange(t, 14, 10)
	booking, err := f.svc.CreateBooking(ctx, CreateBookingRequest{
		ListingID:      plot.ID,
		CounterpartyID: uuid.New(),
		StartDate:      start,
		EndDate:        end,
	})
	require.NoError(t, err)
	assert.Equal(t, transactable.KindBooking, booking.Kind)
	assert.Equal(t, int64(8000), booking.AmountCents, "one week at 5000 plus 3 days at 1000")
}

func TestCreateRental_RejectsWrongListingType(t *testing.T) {
	f := setupTransactableService()
	ctx := context.Background()

	produce := testutil.ProduceListing(uuid.New(), 250, 10)
	require.NoError(t, f.listingRepo.Create(ctx, produce))

	start, end := futureRange(t, 5, 2)
	_, err := f.svc.CreateRental(ctx, CreateRentalRequest{
		ListingID:      produce.ID,
		CounterpartyID: uuid.New(),
		StartDate:      start,
		EndDate:        end,
	})
	require.Error(t, err)

	var validationErr *domainErrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestCreateRental_UnavailableListing(t *testing.T) {
	f := setupTransactableService()
	ctx := context.Background()

	tool := testutil.ToolListing(uuid.New(), 1000, 0)
	tool.Status = listing.StatusUnavailable
	require.NoError(t, f.listingRepo.Create(ctx, tool))

	start, end := futureRange(t, 5, 2)
	_, err := f.svc.CreateRental(ctx, CreateRentalRequest{
		ListingID:      tool.ID,
		CounterpartyID: uuid.New(),
		StartDate:      start,
		EndDate:        end,
	})
	assert.ErrorIs(t, err, domainErrors.ErrListingUnavailable)
}

func TestCreateOrder_ReservesStock(t *testing.T) {
	f := setupTransactableService()
	ctx := context.Background()

	produce := testutil.ProduceListing(uuid.New(), 250, 5)
	require.NoError(t, f.listingRepo.Create(ctx, produce))

	order, err := f.svc.CreateOrder(ctx, CreateOrderRequest{
		ListingID:      produce.ID,
		CounterpartyID: uuid.New(),
		Quantity:       3,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(750), order.AmountCents)
	assert.True(t, order.InventoryHeld)

	stored, err := f.listingRepo.GetByID(ctx, produce.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Quantity)
}

func TestCreateOrder_DrainingStockMarksListingSold(t *testing.T) {
	f := setupTransactableService()
	ctx := context.Background()

	produce := testutil.ProduceListing(uuid.New(), 250, 2)
	require.NoError(t, f.listingRepo.Create(ctx, produce))

	_, err := f.svc.CreateOrder(ctx, CreateOrderRequest{
		ListingID:      produce.ID,
		CounterpartyID: uuid.New(),
		Quantity:       2,
	})
	require.NoError(t, err)

	stored, err := f.listingRepo.GetByID(ctx, produce.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Quantity)
	assert.Equal(t, listing.StatusSold, stored.Status)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	f := setupTransactableService()
	ctx := context.Background()

	produce := testutil.ProduceListing(uuid.New(), 250, 2)
	require.NoError(t, f.listingRepo.Create(ctx, produce))

	_, err := f.svc.CreateOrder(ctx, CreateOrderRequest{
		ListingID:      produce.ID,
		CounterpartyID: uuid.New(),
		Quantity:       3,
	})
	assert.ErrorIs(t, err, domainErrors.ErrInsufficientQuantity)
}

func TestCreateOrder_ConcurrentBuyersForLastUnit(t *testing.T) {
	f := setupTransactableService()
	ctx := context.Background()

	produce := testutil.ProduceListing(uuid.New(), 250, 1)
	require.NoError(t, f.listingRepo.Create(ctx, produce))

	const buyers = 8
	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateOrder(ctx, CreateOrderRequest{
				ListingID:      produce.ID,
				CounterpartyID: uuid.New(),
				Quantity:       1,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one buyer gets the last unit")

	stored, err := f.listingRepo.GetByID(ctx, produce.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Quantity, "stock never goes negative")
}

func TestTransition_ApprovalTakesToolOffMarket(t *testing.T) {
	f := setupTransactableService()
	ctx := context.Background()

	owner := uuid.New()
	tool := testutil.ToolListing(owner, 1000, 0)
	require.NoError(t, f.listingRepo.Create(ctx, tool))

	renter := uuid.New()
	start, end := futureRange(t, 10, 3)
	rental, err := f.svc.CreateRental(ctx, CreateRentalRequest{
		ListingID:      tool.ID,
		CounterpartyID: renter,
		StartDate:      start,
		EndDate:        end,
	})
	require.NoError(t, err)

	approved, err := f.svc.Transition(ctx, TransitionRequest{
		TransactableID: rental.ID,
		ActorID:        owner,
		Target:         transactable.StatusConfirmed,
	})
	require.NoError(t, err)
	assert.Equal(t, transactable.StatusConfirmed, approved.Status)
	require.NotNil(t, approved.ApprovedAt)

	stored, err := f.listingRepo.GetByID(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, listing.StatusUnavailable, stored.Status)

	approvals := f.notificationRepo.ByType(notification.TypeApproved)
	require.Len(t, approvals, 1)
	assert.Equal(t, renter, approvals[0].RecipientID)
}

func TestTransition_ThirdPartyForbidden(t *testing.T) {
	f := setupTransactableService()
	ctx := context.Background()

	tool := testutil.ToolListing(uuid.New(), 1000, 0)
	require.NoError(t, f.listingRepo.Create(ctx, tool))
	start, end := futureRange(t, 10, 3)
	rental, err := f.svc.CreateRental(ctx, CreateRentalRequest{
		ListingID:      tool.ID,
		CounterpartyID: uuid.New(),
		StartDate:      start,
		EndDate:        end,
	})
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, TransitionRequest{
		TransactableID: rental.ID,
		ActorID:        uuid.New(),
		Target:         transactable.StatusCancelled,
	})
	assert.ErrorIs(t, err, domainErrors.ErrForbidden)
}

func TestTransition_CounterpartyCannotApprove(t *testing.T) {
	f := setupTransactableService()
	ctx := context.Background()

	tool := testutil.ToolListing(uuid.New(), 1000, 0)
	require.NoError(t, f.listingRepo.Create(ctx, tool))
	renter := uuid.New()
	start, end := futureRange(t, 10, 3)
	rental, err := f.svc.CreateRental(ctx, CreateRentalRequest{
		ListingID:      tool.ID,
		CounterpartyID: renter,
		StartDate:      start,
		EndDate:        end,
	})
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, TransitionRequest{
		TransactableID: rental.ID,
		ActorID:        renter,
		Target:         transactable.StatusConfirmed,
	})
	assert.ErrorIs(t, err, domainErrors.ErrInvalidStateTransition)
}

func TestTransition_ConcurrentActorsOneWins(t *testing.T) {
	f := setupTransactableService()
	ctx := context.Background()

	owner := uuid.New()
	tool := testutil.ToolListing(owner, 1000, 0)
	require.NoError(t, f.listingRepo.Create(ctx, tool))
	renter := uuid.New()
	start, end := futureRange(t, 10, 3)
	rental, err := f.svc.CreateRental(ctx, CreateRentalRequest{
		ListingID:      tool.ID,
		CounterpartyID: renter,
		StartDate:      start,
		EndDate:        end,
	})
	require.NoError(t, err)

	// Owner approves while the renter cancels. Both targets are legal
	// from pending; the compare-and-set lets exactly one commit.
	var wg sync.WaitGroup
	var approveErr, cancelErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, approveErr = f.svc.Transition(ctx, TransitionRequest{
			TransactableID: rental.ID, ActorID: owner, Target: transactable.StatusConfirmed,
		})
	}()
	go func() {
		defer wg.Done()
		_, cancelErr = f.svc.Transition(ctx, TransitionRequest{
			TransactableID: rental.ID, ActorID: renter, Target: transactable.StatusCancelled,
		})
	}()
	wg.Wait()

	failures := 0
	for _, err := range []error{approveErr, cancelErr} {
		if err != nil {
			// The loser sees either the CAS miss or, if it re-read after
			// the winner committed, an invalid transition.
			assert.True(t,
				errors.Is(err, domainErrors.ErrStaleState) || errors.Is(err, domainErrors.ErrInvalidStateTransition),
				"unexpected error: %v", err)
			failures++
		}
	}
	assert.Equal(t, 1, failures, "exactly one side loses")

	stored, err := f.transactableRepo.GetByID(ctx, rental.ID)
	require.NoError(t, err)
	assert.Contains(t,
		[]transactable.Status{transactable.StatusConfirmed, transactable.StatusCancelled},
		stored.Status)
}

func TestTransition_StaleWrite(t *testing.T) {
	f := setupTransactableService()
	ctx := context.Background()

	tool := testutil.ToolListing(uuid.New(), 1000, 0)
	require.NoError(t, f.listingRepo.Create(ctx, tool))
	start, end := futureRange(t, 10, 3)
	rental, err := f.svc.CreateRental(ctx, CreateRentalRequest{
		ListingID:      tool.ID,
		CounterpartyID: uuid.New(),
		StartDate:      start,
		EndDate:        end,
	})
	require.NoError(t, err)

	f.transactableRepo.UpdateStatusFunc = func(ctx context.Context, txb *transactable.Transactable, expected transactable.Status) error {
		return domainErrors.ErrStaleState
	}

	_, err = f.svc.Transition(ctx, TransitionRequest{
		TransactableID: rental.ID,
		ActorID:        rental.OwnerID,
		Target:         transactable.StatusConfirmed,
	})
	assert.ErrorIs(t, err, domainErrors.ErrStaleState)
}

func TestTransition_CancelOrderRestoresStockOnce(t *testing.T) {
	f := setupTransactableService()
	ctx := context.Background()

	produce := testutil.ProduceListing(uuid.New(), 250, 5)
	require.NoError(t, f.listingRepo.Create(ctx, produce))

	buyer := uuid.New()
	order, err := f.svc.CreateOrder(ctx, CreateOrderRequest{
		ListingID:      produce.ID,
		CounterpartyID: buyer,
		Quantity:       3,
	})
	require.NoError(t, err)

	cancelled, err := f.svc.Transition(ctx, TransitionRequest{
		TransactableID: order.ID,
		ActorID:        buyer,
		Target:         transactable.StatusCancelled,
	})
	require.NoError(t, err)
	assert.False(t, cancelled.InventoryHeld)

	stored, err := f.listingRepo.GetByID(ctx, produce.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Quantity, "cancellation returns held stock")

	// A second restore attempt (e.g. a retried release) must not
	// double-credit: the flag already flipped.
	released, err := f.transactableRepo.SetInventoryHeld(ctx, order.ID, false)
	require.NoError(t, err)
	assert.False(t, released)
}

func TestTransition_CompletedRentalReturnsTool(t *testing.T) {
	f := setupTransactableService()
	ctx := context.Background()

	owner := uuid.New()
	tool := testutil.ToolListing(owner, 1000, 0)
	require.NoError(t, f.listingRepo.Create(ctx, tool))
	renter := uuid.New()
	start, end := futureRange(t, 10, 3)
	rental, err := f.svc.CreateRental(ctx, CreateRentalRequest{
		ListingID:      tool.ID,
		CounterpartyID: renter,
		StartDate:      start,
		EndDate:        end,
	})
	require.NoError(t, err)

	for _, step := range []struct {
		actor  uuid.UUID
		target transactable.Status
	}{
		{owner, transactable.StatusConfirmed},
		{owner, transactable.StatusActive},
		{renter, transactable.StatusCompleted},
	} {
		_, err = f.svc.Transition(ctx, TransitionRequest{
			TransactableID: rental.ID, ActorID: step.actor, Target: step.target,
		})
		require.NoError(t, err)
	}

	stored, err := f.listingRepo.GetByID(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, listing.StatusAvailable, stored.Status, "tool comes back after the rental")
}

func TestGetByID_RestrictedToParties(t *testing.T) {
	f := setupTransactableService()
	ctx := context.Background()

	tool := testutil.ToolListing(uuid.New(), 1000, 0)
	require.NoError(t, f.listingRepo.Create(ctx, tool))
	start, end := futureRange(t, 10, 3)
	rental, err := f.svc.CreateRental(ctx, CreateRentalRequest{
		ListingID:      tool.ID,
		CounterpartyID: uuid.New(),
		StartDate:      start,
		EndDate:        end,
	})
	require.NoError(t, err)

	_, err = f.svc.GetByID(ctx, rental.ID, rental.OwnerID)
	assert.NoError(t, err)

	_, err = f.svc.GetByID(ctx, rental.ID, uuid.New())
	assert.ErrorIs(t, err, domainErrors.ErrForbidden)
}
