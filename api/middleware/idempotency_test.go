package middleware

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cartfold/cartfold-backend/pkg/enums"
	"github.com/cartfold/cartfold-backend/pkg/logger"
)

type memIdempotencyStore struct {
	mu      sync.Mutex
	data    map[string]string
	failSet bool
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{data: map[string]string{}}
}

func (s *memIdempotencyStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.data[key]
	return value, ok, nil
}

func (s *memIdempotencyStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet {
		return fmt.Errorf("redis unavailable")
	}
	s.data[key] = value
	return nil
}

func (s *memIdempotencyStore) SetNX(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = value
	return true, nil
}

func (s *memIdempotencyStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func (s *memIdempotencyStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func idempotentRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set(idempotencyHeader, key)
	ctx := WithIdentity(req.Context(), uuid.MustParse("b3e6f4f0-0000-0000-0000-000000000001"), enums.RoleCustomer, "access-1")
	return req.WithContext(ctx)
}

func newIdempotencyHandler(store *memIdempotencyStore, handler http.HandlerFunc) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return Idempotency(store, logg)(handler)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	t.Parallel()

	store := newMemIdempotencyStore()
	calls := 0
	handler := newIdempotencyHandler(store, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"o-1"}}`))
	})

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, idempotentRequest("key-1", `{"address":"1 Main St"}`))
	if first.Code != http.StatusCreated {
		t.Fatalf("first request: expected 201, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, idempotentRequest("key-1", `{"address":"1 Main St"}`))
	if second.Code != http.StatusCreated {
		t.Fatalf("replay: expected 201, got %d", second.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replay body mismatch: %s vs %s", second.Body.String(), first.Body.String())
	}
	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	t.Parallel()

	store := newMemIdempotencyStore()
	handler := newIdempotencyHandler(store, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, idempotentRequest("key-1", `{"address":"1 Main St"}`))
	if first.Code != http.StatusCreated {
		t.Fatalf("first request: expected 201, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, idempotentRequest("key-1", `{"address":"2 Side St"}`))
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409 for reused key with new body, got %d", second.Code)
	}
	if !strings.Contains(second.Body.String(), "different request body") {
		t.Fatalf("unexpected body: %s", second.Body.String())
	}
}

func TestIdempotencyRejectsInFlightKey(t *testing.T) {
	t.Parallel()

	store := newMemIdempotencyStore()
	release := make(chan struct{})
	started := make(chan struct{})
	handler := newIdempotencyHandler(store, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusCreated)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(httptest.NewRecorder(), idempotentRequest("key-1", `{}`))
	}()
	<-started

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, idempotentRequest("key-1", `{}`))
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409 while first request is in flight, got %d", second.Code)
	}
	if !strings.Contains(second.Body.String(), "still in progress") {
		t.Fatalf("unexpected body: %s", second.Body.String())
	}

	close(release)
	<-done
}

func TestIdempotencyReleasesKeyWhenStoreFails(t *testing.T) {
	t.Parallel()

	store := newMemIdempotencyStore()
	store.failSet = true
	calls := 0
	handler := newIdempotencyHandler(store, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, idempotentRequest("key-1", `{}`))
	if first.Code != http.StatusCreated {
		t.Fatalf("first request: expected 201, got %d", first.Code)
	}
	if store.len() != 0 {
		t.Fatal("expected reservation released after failed store")
	}

	// The retry must reach the handler instead of a stuck pending marker.
	store.failSet = false
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, idempotentRequest("key-1", `{}`))
	if second.Code != http.StatusCreated {
		t.Fatalf("retry: expected 201, got %d", second.Code)
	}
	if calls != 2 {
		t.Fatalf("expected handler to run twice, ran %d times", calls)
	}
}

func TestIdempotencyReleasesKeyOnPanic(t *testing.T) {
	t.Parallel()

	store := newMemIdempotencyStore()
	calls := 0
	handler := newIdempotencyHandler(store, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		w.WriteHeader(http.StatusCreated)
	})

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		handler.ServeHTTP(httptest.NewRecorder(), idempotentRequest("key-1", `{}`))
	}()
	if store.len() != 0 {
		t.Fatal("expected reservation released after panic")
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, idempotentRequest("key-1", `{}`))
	if second.Code != http.StatusCreated {
		t.Fatalf("retry: expected 201, got %d", second.Code)
	}
	if calls != 2 {
		t.Fatalf("expected handler to run twice, ran %d times", calls)
	}
}

func TestIdempotencySkipsWithoutHeader(t *testing.T) {
	t.Parallel()

	store := newMemIdempotencyStore()
	calls := 0
	handler := newIdempotencyHandler(store, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	for range 2 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
		req = req.WithContext(WithIdentity(req.Context(), uuid.New(), enums.RoleCustomer, "access-1"))
		handler.ServeHTTP(rec, req)
	}
	if calls != 2 {
		t.Fatalf("expected both requests handled, got %d", calls)
	}
	if store.len() != 0 {
		t.Fatal("expected no records without the header")
	}
}
