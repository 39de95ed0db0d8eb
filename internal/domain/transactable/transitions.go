package transactable

import (
	"fmt"
	"time"

	"github.com/growshare/marketplace/internal/domain/errors"
)

// transitionTables holds the legal transitions per kind, current status and
// actor role. Tables are data so the validator stays a lookup plus a
// membership check.
//
// The lifecycle is linear with a terminal cancel branch from every
// non-terminal state. Owners drive approval and fulfilment; counterparties
// may cancel before approval, and either side may complete or cancel a
// running transactable (cancellation after payment is what the refund
// policy arbitrates).
var transitionTables = map[Kind]map[Status]map[Role][]Status{
	KindBooking: {
		StatusPending: {
			RoleOwner:        {StatusConfirmed, StatusCancelled},
			RoleCounterparty: {StatusCancelled},
		},
		StatusConfirmed: {
			RoleOwner:        {StatusActive, StatusCancelled},
			RoleCounterparty: {},
		},
		StatusActive: {
			RoleOwner:        {StatusCompleted, StatusCancelled},
			RoleCounterparty: {StatusCompleted, StatusCancelled},
		},
		StatusCompleted: {},
		StatusCancelled: {},
	},
	KindRental: {
		StatusPending: {
			RoleOwner:        {StatusConfirmed, StatusCancelled},
			RoleCounterparty: {StatusCancelled},
		},
		StatusConfirmed: {
			RoleOwner:        {StatusActive, StatusCancelled},
			RoleCounterparty: {},
		},
		StatusActive: {
			RoleOwner:        {StatusCompleted, StatusCancelled},
			RoleCounterparty: {StatusCompleted, StatusCancelled},
		},
		StatusCompleted: {},
		StatusCancelled: {},
	},
	KindOrder: {
		StatusPending: {
			RoleOwner:        {StatusConfirmed, StatusCancelled},
			RoleCounterparty: {StatusCancelled},
		},
		StatusConfirmed: {
			RoleOwner:        {StatusReady, StatusCancelled},
			RoleCounterparty: {},
		},
		StatusReady: {
			RoleOwner:        {StatusCompleted, StatusCancelled},
			RoleCounterparty: {StatusCompleted, StatusCancelled},
		},
		StatusCompleted: {},
		StatusCancelled: {},
	},
}

// AllowedTransitions returns the set of statuses the given role may move a
// transactable of this kind to from the current status. An empty set means
// no transitions (terminal state or role has no rights here).
func AllowedTransitions(kind Kind, current Status, role Role) []Status {
	table, ok := transitionTables[kind]
	if !ok {
		return nil
	}
	byRole, ok := table[current]
	if !ok {
		return nil
	}
	return byRole[role]
}

// CanTransition checks if the role may move from current to target.
func CanTransition(kind Kind, current, target Status, role Role) bool {
	for _, s := range AllowedTransitions(kind, current, role) {
		if s == target {
			return true
		}
	}
	return false
}

// TransitionTo moves the transactable to target on behalf of role. A
// disallowed target fails with an error naming the attempted and current
// status; it never coerces.
func (t *Transactable) TransitionTo(target Status, role Role) error {
	if !CanTransition(t.Kind, t.Status, target, role) {
		return errors.NewDomainError(
			"invalid_transition",
			fmt.Sprintf("%s %s: cannot transition from %s to %s", t.Kind, role, t.Status, target),
			errors.ErrInvalidStateTransition,
		)
	}
	t.applyStatus(target, time.Now())
	return nil
}
