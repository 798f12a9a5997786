package middleware_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/TaskForge/internal/middleware"
)

// fakeKV is an in-memory stand-in for a JetStream KV bucket.
type fakeKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return &fakeEntry{key: key, value: v}, nil
}

func (f *fakeKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return 1, nil
}

func (f *fakeKV) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

// Remaining jetstream.KeyValue methods are unused by the middleware.
func (f *fakeKV) Bucket() string { return "test" }
func (f *fakeKV) Create(_ context.Context, _ string, _ []byte, _ ...jetstream.KVCreateOpt) (uint64, error) {
	return 0, nil
}
func (f *fakeKV) Update(_ context.Context, _ string, _ []byte, _ uint64) (uint64, error) {
	return 0, nil
}
func (f *fakeKV) PutString(_ context.Context, _, _ string) (uint64, error)             { return 0, nil }
func (f *fakeKV) Delete(_ context.Context, _ string, _ ...jetstream.KVDeleteOpt) error { return nil }
func (f *fakeKV) Purge(_ context.Context, _ string, _ ...jetstream.KVDeleteOpt) error  { return nil }
func (f *fakeKV) GetRevision(_ context.Context, _ string, _ uint64) (jetstream.KeyValueEntry, error) {
	return nil, nil
}
func (f *fakeKV) Keys(_ context.Context, _ ...jetstream.WatchOpt) ([]string, error) { return nil, nil }
func (f *fakeKV) ListKeys(_ context.Context, _ ...jetstream.WatchOpt) (jetstream.KeyLister, error) {
	return nil, nil
}
func (f *fakeKV) ListKeysFiltered(_ context.Context, _ ...string) (jetstream.KeyLister, error) {
	return nil, nil
}
func (f *fakeKV) History(_ context.Context, _ string, _ ...jetstream.WatchOpt) ([]jetstream.KeyValueEntry, error) {
	return nil, nil
}
func (f *fakeKV) Watch(_ context.Context, _ string, _ ...jetstream.WatchOpt) (jetstream.KeyWatcher, error) {
	return nil, nil
}
func (f *fakeKV) WatchAll(_ context.Context, _ ...jetstream.WatchOpt) (jetstream.KeyWatcher, error) {
	return nil, nil
}
func (f *fakeKV) WatchFiltered(_ context.Context, _ []string, _ ...jetstream.WatchOpt) (jetstream.KeyWatcher, error) {
	return nil, nil
}
func (f *fakeKV) Status(_ context.Context) (jetstream.KeyValueStatus, error)      { return nil, nil }
func (f *fakeKV) PurgeDeletes(_ context.Context, _ ...jetstream.KVPurgeOpt) error { return nil }

type fakeEntry struct {
	key   string
	value []byte
}

func (e *fakeEntry) Bucket() string                  { return "test" }
func (e *fakeEntry) Key() string                     { return e.key }
func (e *fakeEntry) Value() []byte                   { return e.value }
func (e *fakeEntry) Revision() uint64                { return 1 }
func (e *fakeEntry) Created() time.Time              { return time.Time{} }
func (e *fakeEntry) Delta() uint64                   { return 0 }
func (e *fakeEntry) Operation() jetstream.KeyValueOp { return jetstream.KeyValuePut }

func countingHandler(counter *int, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*counter++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"call":%d}`, *counter)
	})
}

func post(handler http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/settings", http.NoBody)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIdempotencyWithoutKeyPassesThrough(t *testing.T) {
	counter := 0
	handler := middleware.Idempotency(newFakeKV())(countingHandler(&counter, http.StatusOK))

	post(handler, "")
	post(handler, "")

	if counter != 2 {
		t.Fatalf("expected 2 calls without a key, got %d", counter)
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	counter := 0
	kv := newFakeKV()
	handler := middleware.Idempotency(kv)(countingHandler(&counter, http.StatusOK))

	first := post(handler, "save-1")
	if !kv.has("save-1") {
		t.Fatal("expected response stored under save-1")
	}

	second := post(handler, "save-1")
	if counter != 1 {
		t.Fatalf("expected handler called once, got %d", counter)
	}
	if second.Code != first.Code {
		t.Fatalf("replayed status %d, want %d", second.Code, first.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body %q, want %q", second.Body.String(), first.Body.String())
	}
	if second.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatal("expected replay marker header on second response")
	}
	if first.Header().Get("Idempotency-Replayed") != "" {
		t.Fatal("first response must not carry the replay marker")
	}
}

func TestIdempotencyDistinctKeysAreIndependent(t *testing.T) {
	counter := 0
	handler := middleware.Idempotency(newFakeKV())(countingHandler(&counter, http.StatusOK))

	post(handler, "key-a")
	post(handler, "key-b")

	if counter != 2 {
		t.Fatalf("expected 2 calls for distinct keys, got %d", counter)
	}
}

func TestIdempotencyIgnoresGET(t *testing.T) {
	counter := 0
	kv := newFakeKV()
	handler := middleware.Idempotency(kv)(countingHandler(&counter, http.StatusOK))

	req := httptest.NewRequest(http.MethodGet, "/api/settings", http.NoBody)
	req.Header.Set("Idempotency-Key", "get-key")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if counter != 1 {
		t.Fatalf("expected handler called, got %d", counter)
	}
	if kv.has("get-key") {
		t.Fatal("GET responses must not be cached")
	}
}

func TestIdempotencyDoesNotCacheServerErrors(t *testing.T) {
	counter := 0
	kv := newFakeKV()
	handler := middleware.Idempotency(kv)(countingHandler(&counter, http.StatusBadGateway))

	post(handler, "retry-me")
	if kv.has("retry-me") {
		t.Fatal("5xx responses must not be cached")
	}

	post(handler, "retry-me")
	if counter != 2 {
		t.Fatalf("expected retry to reach the handler, got %d calls", counter)
	}
}
