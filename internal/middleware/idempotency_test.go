package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	domainErrors "github.com/growshare/marketplace/internal/domain/errors"
	"github.com/growshare/marketplace/internal/repository/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]*postgres.IdempotencyEntry
	getErr  error
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{entries: make(map[string]*postgres.IdempotencyEntry)}
}

func (s *memoryIdempotencyStore) Get(ctx context.Context, userID, key, requestHash string) (*postgres.IdempotencyEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	entry, ok := s.entries[userID+"/"+key]
	if !ok {
		return nil, nil
	}
	if entry.RequestHash != requestHash {
		return nil, domainErrors.ErrDuplicateIdempotencyKey
	}
	return entry, nil
}

func (s *memoryIdempotencyStore) Set(ctx context.Context, entry *postgres.IdempotencyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.UserID+"/"+entry.Key] = entry
	return nil
}

func idempotentHandler(store IdempotencyStore, calls *int) http.Handler {
	return Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"abc"}`))
	}))
}

func keyedRequest(userID uuid.UUID, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	if userID != uuid.Nil {
		ctx := context.WithValue(req.Context(), UserIDKey, userID.String())
		req = req.WithContext(ctx)
	}
	return req
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := idempotentHandler(store, &calls)
	user := uuid.New()

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, keyedRequest(user, "key-1", `{"quantity":1}`))
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, 1, calls)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, keyedRequest(user, "key-1", `{"quantity":1}`))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, 1, calls, "the handler must not run twice")
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("X-Idempotency-Replayed"))
}

func TestIdempotency_KeyReuseWithDifferentBody(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := idempotentHandler(store, &calls)
	user := uuid.New()

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, keyedRequest(user, "key-1", `{"quantity":1}`))
	require.Equal(t, 1, calls)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, keyedRequest(user, "key-1", `{"quantity":5}`))
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, 1, calls)
	assert.Contains(t, second.Body.String(), "idempotency_key_conflict")
}

func TestIdempotency_KeysAreUserScoped(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := idempotentHandler(store, &calls)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, keyedRequest(uuid.New(), "key-1", `{"quantity":1}`))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, keyedRequest(uuid.New(), "key-1", `{"quantity":1}`))

	assert.Equal(t, 2, calls, "different users never share replay state")
}

func TestIdempotency_NoKeyPassesThrough(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := idempotentHandler(store, &calls)
	user := uuid.New()

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, keyedRequest(user, "", `{"quantity":1}`))
		assert.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestIdempotency_StorageFailureDoesNotBlock(t *testing.T) {
	store := newMemoryIdempotencyStore()
	store.getErr = assert.AnError
	calls := 0
	handler := idempotentHandler(store, &calls)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, keyedRequest(uuid.New(), "key-1", `{"quantity":1}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, calls)
}
