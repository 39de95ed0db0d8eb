package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"
	domainErrors "github.com/growshare/marketplace/internal/domain/errors"
	"github.com/growshare/marketplace/internal/domain/listing"
	"github.com/growshare/marketplace/internal/domain/notification"
	"github.com/growshare/marketplace/internal/domain/outbox"
	"github.com/growshare/marketplace/internal/domain/payment"
	"github.com/growshare/marketplace/internal/domain/transactable"
)

// --- Transactable Repository Mock ---

// MockTransactableRepository is an in-memory transactable.Repository. The
// default behaviors preserve the compare-and-set and flag-flip semantics of
// the real store so concurrency tests exercise the same guarantees.
type MockTransactableRepository struct {
	mu    sync.Mutex
	items map[uuid.UUID]*transactable.Transactable

	CreateFunc           func(ctx context.Context, t *transactable.Transactable) error
	GetByIDFunc          func(ctx context.Context, id uuid.UUID) (*transactable.Transactable, error)
	UpdateStatusFunc     func(ctx context.Context, t *transactable.Transactable, expected transactable.Status) error
	SetInventoryHeldFunc func(ctx context.Context, id uuid.UUID, held bool) (bool, error)
	ListFunc             func(ctx context.Context, filter transactable.ListFilter) ([]*transactable.Transactable, error)
}

func NewMockTransactableRepository() *MockTransactableRepository {
	return &MockTransactableRepository{items: make(map[uuid.UUID]*transactable.Transactable)}
}

func (m *MockTransactableRepository) Create(ctx context.Context, t *transactable.Transactable) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.items[t.ID] = &cp
	return nil
}

func (m *MockTransactableRepository) GetByID(ctx context.Context, id uuid.UUID) (*transactable.Transactable, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok {
		return nil, domainErrors.ErrTransactableNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MockTransactableRepository) UpdateStatus(ctx context.Context, t *transactable.Transactable, expected transactable.Status) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, t, expected)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[t.ID]
	if !ok {
		return domainErrors.ErrTransactableNotFound
	}
	if stored.Status != expected {
		return domainErrors.ErrStaleState
	}
	cp := *t
	m.items[t.ID] = &cp
	return nil
}

func (m *MockTransactableRepository) SetInventoryHeld(ctx context.Context, id uuid.UUID, held bool) (bool, error) {
	if m.SetInventoryHeldFunc != nil {
		return m.SetInventoryHeldFunc(ctx, id, held)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[id]
	if !ok {
		return false, domainErrors.ErrTransactableNotFound
	}
	if stored.InventoryHeld == held {
		return false, nil
	}
	stored.InventoryHeld = held
	return true, nil
}

func (m *MockTransactableRepository) List(ctx context.Context, filter transactable.ListFilter) ([]*transactable.Transactable, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*transactable.Transactable
	for _, t := range m.items {
		if filter.UserID != nil && t.OwnerID != *filter.UserID && t.CounterpartyID != *filter.UserID {
			continue
		}
		if filter.Kind != nil && t.Kind != *filter.Kind {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

// --- Listing Repository Mock ---

// MockListingRepository is an in-memory listing.Repository whose default
// ReserveQuantity is as atomic as the SQL conditional update it stands in
// for.
type MockListingRepository struct {
	mu    sync.Mutex
	items map[uuid.UUID]*listing.Listing

	CreateFunc          func(ctx context.Context, l *listing.Listing) error
	GetByIDFunc         func(ctx context.Context, id uuid.UUID) (*listing.Listing, error)
	ReserveQuantityFunc func(ctx context.Context, id uuid.UUID, quantity int) error
	RestoreQuantityFunc func(ctx context.Context, id uuid.UUID, quantity int) error
	SetAvailabilityFunc func(ctx context.Context, id uuid.UUID, available bool) error
}

func NewMockListingRepository() *MockListingRepository {
	return &MockListingRepository{items: make(map[uuid.UUID]*listing.Listing)}
}

func (m *MockListingRepository) Create(ctx context.Context, l *listing.Listing) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, l)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.items[l.ID] = &cp
	return nil
}

func (m *MockListingRepository) GetByID(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.items[id]
	if !ok {
		return nil, domainErrors.ErrListingNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *MockListingRepository) ReserveQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	if m.ReserveQuantityFunc != nil {
		return m.ReserveQuantityFunc(ctx, id, quantity)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.items[id]
	if !ok {
		return domainErrors.ErrListingNotFound
	}
	if l.Status != listing.StatusAvailable {
		return domainErrors.ErrListingUnavailable
	}
	if l.Quantity < quantity {
		return domainErrors.ErrInsufficientQuantity
	}
	l.Quantity -= quantity
	if l.Quantity == 0 {
		l.Status = listing.StatusSold
	}
	return nil
}

func (m *MockListingRepository) RestoreQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	if m.RestoreQuantityFunc != nil {
		return m.RestoreQuantityFunc(ctx, id, quantity)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.items[id]
	if !ok {
		return domainErrors.ErrListingNotFound
	}
	l.Quantity += quantity
	if l.Status == listing.StatusSold {
		l.Status = listing.StatusAvailable
	}
	return nil
}

func (m *MockListingRepository) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	if m.SetAvailabilityFunc != nil {
		return m.SetAvailabilityFunc(ctx, id, available)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.items[id]
	if !ok {
		return domainErrors.ErrListingNotFound
	}
	if available {
		l.Status = listing.StatusAvailable
	} else {
		l.Status = listing.StatusUnavailable
	}
	return nil
}

// --- Payment Repository Mock ---

// MockPaymentRepository is an in-memory payment.Repository enforcing the
// one-record-per-transactable constraint.
type MockPaymentRepository struct {
	mu      sync.Mutex
	records map[uuid.UUID]*payment.Record
	byTxb   map[uuid.UUID]uuid.UUID
	byRef   map[string]uuid.UUID
	events  map[uuid.UUID][]*payment.Event

	CreateFunc             func(ctx context.Context, r *payment.Record) error
	GetByIDFunc            func(ctx context.Context, id uuid.UUID) (*payment.Record, error)
	GetByTransactableFunc  func(ctx context.Context, transactableID uuid.UUID) (*payment.Record, error)
	GetByExternalRefFunc   func(ctx context.Context, externalRef string) (*payment.Record, error)
	UpdateFunc             func(ctx context.Context, r *payment.Record) error
	AddEventFunc           func(ctx context.Context, event *payment.Event) error
	GetEventsFunc          func(ctx context.Context, recordID uuid.UUID) ([]*payment.Event, error)
}

func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		records: make(map[uuid.UUID]*payment.Record),
		byTxb:   make(map[uuid.UUID]uuid.UUID),
		byRef:   make(map[string]uuid.UUID),
		events:  make(map[uuid.UUID][]*payment.Event),
	}
}

func (m *MockPaymentRepository) Create(ctx context.Context, r *payment.Record) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byTxb[r.TransactableID]; exists {
		return domainErrors.ErrPaymentAlreadyPending
	}
	cp := *r
	m.records[r.ID] = &cp
	m.byTxb[r.TransactableID] = r.ID
	if r.ExternalRef != "" {
		m.byRef[r.ExternalRef] = r.ID
	}
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Record, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, domainErrors.ErrPaymentNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MockPaymentRepository) GetByTransactableID(ctx context.Context, transactableID uuid.UUID) (*payment.Record, error) {
	if m.GetByTransactableFunc != nil {
		return m.GetByTransactableFunc(ctx, transactableID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byTxb[transactableID]
	if !ok {
		return nil, domainErrors.ErrPaymentNotFound
	}
	cp := *m.records[id]
	return &cp, nil
}

func (m *MockPaymentRepository) GetByExternalRef(ctx context.Context, externalRef string) (*payment.Record, error) {
	if m.GetByExternalRefFunc != nil {
		return m.GetByExternalRefFunc(ctx, externalRef)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byRef[externalRef]
	if !ok {
		return nil, domainErrors.ErrPaymentNotFound
	}
	cp := *m.records[id]
	return &cp, nil
}

func (m *MockPaymentRepository) Update(ctx context.Context, r *payment.Record) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[r.ID]; !ok {
		return domainErrors.ErrPaymentNotFound
	}
	cp := *r
	m.records[r.ID] = &cp
	if r.ExternalRef != "" {
		m.byRef[r.ExternalRef] = r.ID
	}
	return nil
}

func (m *MockPaymentRepository) AddEvent(ctx context.Context, event *payment.Event) error {
	if m.AddEventFunc != nil {
		return m.AddEventFunc(ctx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.RecordID] = append(m.events[event.RecordID], event)
	return nil
}

func (m *MockPaymentRepository) GetEvents(ctx context.Context, recordID uuid.UUID) ([]*payment.Event, error) {
	if m.GetEventsFunc != nil {
		return m.GetEventsFunc(ctx, recordID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*payment.Event(nil), m.events[recordID]...), nil
}

// --- Notification Repository Mock ---

// MockNotificationRepository is an in-memory notification.Repository.
type MockNotificationRepository struct {
	mu            sync.Mutex
	Notifications []*notification.Notification

	CreateFunc func(ctx context.Context, n *notification.Notification) error
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{}
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Notifications = append(m.Notifications, n)
	return nil
}

func (m *MockNotificationRepository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]*notification.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*notification.Notification
	for _, n := range m.Notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.Notifications {
		if n.ID == id {
			n.Read = true
		}
	}
	return nil
}

// ByType returns the stored notifications of one type.
func (m *MockNotificationRepository) ByType(typ notification.Type) []*notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*notification.Notification
	for _, n := range m.Notifications {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

// Count returns how many notifications were created.
func (m *MockNotificationRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Notifications)
}

// --- Outbox Repository Mock ---

// MockOutboxRepository is an in-memory outbox.Repository.
type MockOutboxRepository struct {
	mu      sync.Mutex
	Entries []*outbox.Entry

	InsertFunc func(ctx context.Context, entry *outbox.Entry) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Insert(ctx context.Context, entry *outbox.Entry) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*outbox.Entry
	for _, e := range m.Entries {
		if e.Status == outbox.StatusPending {
			out = append(out, e)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Entries {
		if e.ID == id {
			e.Status = outbox.StatusPublished
		}
	}
	return nil
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Entries {
		if e.ID == id {
			e.RetryCount++
			if e.RetryCount >= e.MaxRetries {
				e.Status = outbox.StatusFailed
			}
		}
	}
	return nil
}

// ByEventType returns the stored entries of one event type.
func (m *MockOutboxRepository) ByEventType(eventType string) []*outbox.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*outbox.Entry
	for _, e := range m.Entries {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// --- Transaction Manager Mock ---

// MockTxManager runs the callback without a real transaction.
type MockTxManager struct {
	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *MockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}
