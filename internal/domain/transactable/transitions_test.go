package transactable

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	domainErrors "github.com/growshare/marketplace/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransactable(t *testing.T, kind Kind) *Transactable {
	t.Helper()
	txb, err := New(kind, uuid.New(), uuid.New(), uuid.New(), 5000, "USD")
	require.NoError(t, err)
	return txb
}

func TestNew_Validation(t *testing.T) {
	owner := uuid.New()

	_, err := New(KindRental, owner, uuid.New(), uuid.New(), 0, "USD")
	assert.Error(t, err, "zero amount")

	_, err = New(KindRental, owner, uuid.New(), uuid.New(), 5000, "DOLLARS")
	assert.Error(t, err, "bad currency")

	_, err = New(KindRental, owner, owner, uuid.New(), 5000, "USD")
	assert.Error(t, err, "owner dealing with themselves")

	txb, err := New(KindOrder, owner, uuid.New(), uuid.New(), 5000, "USD")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, txb.Status)
}

func TestAllowedTransitions_PendingByRole(t *testing.T) {
	for _, kind := range []Kind{KindBooking, KindRental, KindOrder} {
		assert.ElementsMatch(t,
			[]Status{StatusConfirmed, StatusCancelled},
			AllowedTransitions(kind, StatusPending, RoleOwner),
			"owner from pending, kind %s", kind)

		assert.ElementsMatch(t,
			[]Status{StatusCancelled},
			AllowedTransitions(kind, StatusPending, RoleCounterparty),
			"counterparty from pending, kind %s", kind)
	}
}

func TestAllowedTransitions_InProgressByKind(t *testing.T) {
	// Bookings and rentals go active; orders go ready.
	assert.Contains(t, AllowedTransitions(KindBooking, StatusConfirmed, RoleOwner), StatusActive)
	assert.Contains(t, AllowedTransitions(KindRental, StatusConfirmed, RoleOwner), StatusActive)
	assert.Contains(t, AllowedTransitions(KindOrder, StatusConfirmed, RoleOwner), StatusReady)

	assert.NotContains(t, AllowedTransitions(KindOrder, StatusConfirmed, RoleOwner), StatusActive)
	assert.NotContains(t, AllowedTransitions(KindRental, StatusConfirmed, RoleOwner), StatusReady)

	// Both parties can complete or cancel from the in-progress status.
	assert.ElementsMatch(t,
		[]Status{StatusCompleted, StatusCancelled},
		AllowedTransitions(KindRental, StatusActive, RoleCounterparty))
	assert.ElementsMatch(t,
		[]Status{StatusCompleted, StatusCancelled},
		AllowedTransitions(KindOrder, StatusReady, RoleOwner))
}

func TestAllowedTransitions_TerminalStatesAreEmpty(t *testing.T) {
	for _, kind := range []Kind{KindBooking, KindRental, KindOrder} {
		for _, status := range []Status{StatusCompleted, StatusCancelled} {
			for _, role := range []Role{RoleOwner, RoleCounterparty} {
				assert.Empty(t, AllowedTransitions(kind, status, role),
					"%s %s %s must allow nothing", kind, status, role)
			}
		}
	}
}

func TestTransitionTo_Disallowed(t *testing.T) {
	txb := newTestTransactable(t, KindRental)

	// Counterparty cannot approve.
	err := txb.TransitionTo(StatusConfirmed, RoleCounterparty)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidStateTransition)
	assert.Contains(t, err.Error(), "pending")
	assert.Contains(t, err.Error(), "confirmed")
	assert.Equal(t, StatusPending, txb.Status, "status must not move on a rejected transition")

	// Pending cannot skip straight to completed.
	err = txb.TransitionTo(StatusCompleted, RoleOwner)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidStateTransition)
}

func TestTransitionTo_StampsTimestamps(t *testing.T) {
	txb := newTestTransactable(t, KindBooking)

	require.NoError(t, txb.TransitionTo(StatusConfirmed, RoleOwner))
	require.NotNil(t, txb.ApprovedAt)

	require.NoError(t, txb.TransitionTo(StatusActive, RoleOwner))
	require.NoError(t, txb.TransitionTo(StatusCompleted, RoleCounterparty))
	require.NotNil(t, txb.CompletedAt)
	assert.True(t, txb.IsTerminal())
}

func TestTransitionTo_CancelStampsCancelledAt(t *testing.T) {
	txb := newTestTransactable(t, KindOrder)
	require.NoError(t, txb.TransitionTo(StatusCancelled, RoleCounterparty))
	require.NotNil(t, txb.CancelledAt)
	assert.True(t, txb.IsTerminal())
}

func TestRoleOf(t *testing.T) {
	txb := newTestTransactable(t, KindRental)

	role, err := txb.RoleOf(txb.OwnerID)
	require.NoError(t, err)
	assert.Equal(t, RoleOwner, role)

	role, err = txb.RoleOf(txb.CounterpartyID)
	require.NoError(t, err)
	assert.Equal(t, RoleCounterparty, role)

	_, err = txb.RoleOf(uuid.New())
	assert.True(t, errors.Is(err, domainErrors.ErrForbidden))
}

func TestPayableAndPaidStatus(t *testing.T) {
	// Orders are paid straight from pending; rentals and bookings need
	// owner approval first.
	assert.Equal(t, StatusPending, PayableStatus(KindOrder))
	assert.Equal(t, StatusConfirmed, PayableStatus(KindRental))
	assert.Equal(t, StatusConfirmed, PayableStatus(KindBooking))

	assert.Equal(t, StatusConfirmed, PaidStatus(KindOrder))
	assert.Equal(t, StatusActive, PaidStatus(KindRental))
	assert.Equal(t, StatusActive, PaidStatus(KindBooking))
}

func TestMarkPaid(t *testing.T) {
	rental := newTestTransactable(t, KindRental)
	require.NoError(t, rental.TransitionTo(StatusConfirmed, RoleOwner))

	require.NoError(t, rental.MarkPaid())
	assert.Equal(t, StatusActive, rental.Status)
	require.NotNil(t, rental.PaidAt)
	assert.WithinDuration(t, time.Now(), *rental.PaidAt, time.Second)

	// Already past the payable status.
	assert.Error(t, rental.MarkPaid())

	order := newTestTransactable(t, KindOrder)
	require.NoError(t, order.MarkPaid())
	assert.Equal(t, StatusConfirmed, order.Status)
	require.NotNil(t, order.ApprovedAt, "payment acceptance doubles as approval for orders")
}

func TestOtherParty(t *testing.T) {
	txb := newTestTransactable(t, KindBooking)
	assert.Equal(t, txb.CounterpartyID, txb.OtherParty(RoleOwner))
	assert.Equal(t, txb.OwnerID, txb.OtherParty(RoleCounterparty))
}
