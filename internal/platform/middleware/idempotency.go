package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"dealdesk/internal/platform/metrics"
	dErrors "dealdesk/pkg/domain-errors"
	"dealdesk/pkg/platform/httputil"
	"dealdesk/pkg/requestcontext"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
	maxKeyLength      = 128
)

// CachedResponse is a completed response kept for replay.
type CachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// IdempotencyStore keeps responses by key. Load returns nil, nil on a miss.
//
// Reserve claims a key while its first request is in flight and reports false
// when the key is already claimed or completed. Save stores the response and
// ends the claim; Release ends it without a response so the key can be retried.
type IdempotencyStore interface {
	Load(ctx context.Context, key string) (*CachedResponse, error)
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Save(ctx context.Context, key string, resp CachedResponse, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// reservationTTL bounds how long a crashed request can hold a key.
const reservationTTL = time.Minute

// Idempotency replays the first successful response for a repeated
// Idempotency-Key on mutating requests. Keys are scoped to the caller and
// route, so two actors can never collide. A repeat that arrives while the
// first request is still running gets 409 conflict instead of running the
// handler a second time. Store failures fall through to normal processing.
func Idempotency(store IdempotencyStore, ttl time.Duration, m *metrics.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}
			raw := r.Header.Get(idempotencyHeader)
			if raw == "" || len(raw) > maxKeyLength {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := requestcontext.ActorID(ctx).String() + ":" + r.Method + ":" + r.URL.Path + ":" + raw
			load := func() *CachedResponse {
				cached, err := store.Load(ctx, key)
				if err != nil {
					logger.WarnContext(ctx, "idempotency lookup failed", "error", err, "request_id", GetRequestID(ctx))
				}
				return cached
			}

			if cached := load(); cached != nil {
				m.IncrementIdempotentReplay()
				replay(w, cached)
				return
			}

			reserved, err := store.Reserve(ctx, key, reservationTTL)
			if err != nil {
				logger.WarnContext(ctx, "idempotency reserve failed", "error", err, "request_id", GetRequestID(ctx))
				next.ServeHTTP(w, r)
				return
			}
			if !reserved {
				// The holder may have finished between the lookup and the claim.
				if cached := load(); cached != nil {
					m.IncrementIdempotentReplay()
					replay(w, cached)
					return
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "a request with this Idempotency-Key is still in progress"))
				return
			}

			saved := false
			defer func() {
				if saved {
					return
				}
				if err := store.Release(context.WithoutCancel(ctx), key); err != nil {
					logger.WarnContext(ctx, "idempotency release failed", "error", err, "request_id", GetRequestID(ctx))
				}
			}()

			capture := &responseCapture{statusWriter: statusWriter{ResponseWriter: w, status: http.StatusOK}}
			next.ServeHTTP(capture, r)

			if capture.status >= 200 && capture.status < 300 {
				resp := CachedResponse{Status: capture.status, Header: w.Header().Clone(), Body: capture.body.Bytes()}
				if err := store.Save(ctx, key, resp, ttl); err != nil {
					logger.WarnContext(ctx, "idempotency save failed", "error", err, "request_id", GetRequestID(ctx))
					return
				}
				saved = true
			}
		})
	}
}

func replay(w http.ResponseWriter, cached *CachedResponse) {
	for k, vals := range cached.Header {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(cached.Status)
	_, _ = w.Write(cached.Body)
}

type responseCapture struct {
	statusWriter
	body bytes.Buffer
}

func (c *responseCapture) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.statusWriter.Write(b)
}

// MemoryIdempotencyStore keeps responses and in-flight claims in process.
// Expired keys are dropped on access.
type MemoryIdempotencyStore struct {
	mu       sync.Mutex
	entries  map[string]memoryEntry
	reserved map[string]time.Time
	now      func() time.Time
}

type memoryEntry struct {
	resp      CachedResponse
	expiresAt time.Time
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		entries:  make(map[string]memoryEntry),
		reserved: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (s *MemoryIdempotencyStore) Load(_ context.Context, key string) (*CachedResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return nil, nil
	}
	resp := e.resp
	return &resp, nil
}

// Reserve claims key unless a live response or claim already holds it.
func (s *MemoryIdempotencyStore) Reserve(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(key); ok {
		return false, nil
	}
	if until, ok := s.reserved[key]; ok && s.now().Before(until) {
		return false, nil
	}
	s.reserved[key] = s.now().Add(ttl)
	return true, nil
}

// Save keeps the first response stored under key and ends its claim.
func (s *MemoryIdempotencyStore) Save(_ context.Context, key string, resp CachedResponse, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reserved, key)
	if _, ok := s.live(key); ok {
		return nil
	}
	s.entries[key] = memoryEntry{resp: resp, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reserved, key)
	return nil
}

// live returns the unexpired entry for key. Callers hold mu.
func (s *MemoryIdempotencyStore) live(key string) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}
