package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "leanquest/pkg/domain-errors"
	"leanquest/pkg/platform/circuit"
	"leanquest/pkg/platform/httputil"
)

// =============================================================================
// Pipeline Test Suite
// =============================================================================
// The pipeline is the sole boundary converting transport failures into coded
// errors, so its behavior under 401/429/network failure is unit tested here
// against a real httptest server rather than mocks.

type PipelineSuite struct {
	suite.Suite
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	raw, _ := json.Marshal(data)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(httputil.Envelope{Success: status < 400, Data: raw})
}

// noSleep records requested delays instead of waiting.
type noSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (n *noSleep) sleep(_ context.Context, d time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delays = append(n.delays, d)
	return nil
}

func (s *PipelineSuite) newPipeline(serverURL string, store TokenStore, opts ...Option) *Pipeline {
	p, err := New(serverURL, store, opts...)
	s.Require().NoError(err)
	return p
}

func (s *PipelineSuite) TestConcurrent401sCoalesceIntoOneRefresh() {
	var refreshCalls atomic.Int32
	var unauthorizedServed atomic.Int32
	bothRejected := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		// Hold the refresh open until both original requests have been
		// rejected, so both callers are waiting on the same flight.
		select {
		case <-bothRejected:
		case <-time.After(2 * time.Second):
		}
		time.Sleep(50 * time.Millisecond)
		writeEnvelope(w, http.StatusOK, Pair{AccessToken: "new-token", RefreshToken: "new-refresh"})
	})
	mux.HandleFunc("/api/users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new-token" {
			if unauthorizedServed.Add(1) == 2 {
				close(bothRejected)
			}
			writeEnvelope(w, http.StatusUnauthorized, nil)
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]string{"username": "kaizen-kid"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := NewMemoryTokenStore(Pair{AccessToken: "stale-token", RefreshToken: "ref-1"})
	p := s.newPipeline(srv.URL, store)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var out map[string]string
			errs[i] = p.Get(context.Background(), "/api/users/me", &out)
		}(i)
	}
	wg.Wait()

	s.NoError(errs[0])
	s.NoError(errs[1])
	s.Equal(int32(1), refreshCalls.Load(), "concurrent 401s must share one refresh call")

	pair, err := store.Tokens(context.Background())
	s.Require().NoError(err)
	s.Equal("new-token", pair.AccessToken)
	s.Equal("new-refresh", pair.RefreshToken)
}

func (s *PipelineSuite) TestRefreshFailureClearsTokensAndSignalsLogout() {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(httputil.Envelope{Success: false, Error: "refresh token revoked", Code: "unauthorized"})
	})
	mux.HandleFunc("/api/users/me", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, nil)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var loggedOut atomic.Bool
	store := NewMemoryTokenStore(Pair{AccessToken: "stale", RefreshToken: "revoked"})
	p := s.newPipeline(srv.URL, store, WithLogoutHook(func() { loggedOut.Store(true) }))

	err := p.Get(context.Background(), "/api/users/me", nil)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.True(loggedOut.Load(), "logout hook must fire on refresh failure")

	pair, storeErr := store.Tokens(context.Background())
	s.Require().NoError(storeErr)
	s.True(pair.Empty(), "tokens must be cleared on refresh failure")
}

func (s *PipelineSuite) TestSecond401AfterRefreshFailsWithoutLooping() {
	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		writeEnvelope(w, http.StatusOK, Pair{AccessToken: "still-rejected", RefreshToken: "r2"})
	})
	mux.HandleFunc("/api/users/me", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, nil)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := NewMemoryTokenStore(Pair{AccessToken: "a", RefreshToken: "r"})
	p := s.newPipeline(srv.URL, store)

	err := p.Get(context.Background(), "/api/users/me", nil)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Equal(int32(1), refreshCalls.Load(), "original request is retried exactly once after refresh")
}

func (s *PipelineSuite) TestRetryAfterHonored() {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/submissions", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(httputil.Envelope{Success: false, Error: "rate limit exceeded", Code: "rate_limited"})
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]int{"xpGain": 75})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sleeper := &noSleep{}
	store := NewMemoryTokenStore(Pair{AccessToken: "ok"})
	p := s.newPipeline(srv.URL, store, WithSleeper(sleeper.sleep))

	var out map[string]int
	err := p.Post(context.Background(), "/api/submissions", map[string]string{"questId": "q1"}, &out)
	s.Require().NoError(err)
	s.Equal(75, out["xpGain"])
	s.Equal(int32(2), calls.Load())

	s.Require().Len(sleeper.delays, 1)
	s.GreaterOrEqual(sleeper.delays[0], 2*time.Second, "Retry-After: 2 means a delay of at least 2s")
}

func (s *PipelineSuite) TestRetryBudgetExhaustion() {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/submissions", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(httputil.Envelope{Success: false, Error: "rate limit exceeded", Code: "rate_limited"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sleeper := &noSleep{}
	store := NewMemoryTokenStore(Pair{AccessToken: "ok"})
	p := s.newPipeline(srv.URL, store, WithSleeper(sleeper.sleep), WithRetryBudget(2))

	err := p.Post(context.Background(), "/api/submissions", map[string]string{}, nil)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))
	s.Equal(int32(3), calls.Load(), "initial attempt plus two retries")
	s.Len(sleeper.delays, 2)
}

func (s *PipelineSuite) TestMissingRetryAfterDefaultsToOneSecond() {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/submissions", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(httputil.Envelope{Success: false, Code: "rate_limited"})
			return
		}
		writeEnvelope(w, http.StatusOK, nil)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sleeper := &noSleep{}
	store := NewMemoryTokenStore(Pair{AccessToken: "ok"})
	p := s.newPipeline(srv.URL, store, WithSleeper(sleeper.sleep))

	err := p.Post(context.Background(), "/api/submissions", map[string]string{}, nil)
	s.Require().NoError(err)
	s.Require().Len(sleeper.delays, 1)
	s.GreaterOrEqual(sleeper.delays[0], 1*time.Second)
	s.Less(sleeper.delays[0], 2*time.Second)
}

func (s *PipelineSuite) TestServerErrorMessageSurfaced() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/submissions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(httputil.Envelope{Success: false, Error: "checklist item missing", Code: "invalid_input"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := NewMemoryTokenStore(Pair{AccessToken: "ok"})
	p := s.newPipeline(srv.URL, store)

	err := p.Post(context.Background(), "/api/submissions", map[string]string{}, nil)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	s.Contains(err.Error(), "checklist item missing")
}

func (s *PipelineSuite) TestSuccessFalseEnvelopeIsAFailure() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/me", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(httputil.Envelope{Success: false, Error: "shadow ban", Code: "forbidden"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := NewMemoryTokenStore(Pair{AccessToken: "ok"})
	p := s.newPipeline(srv.URL, store)

	err := p.Get(context.Background(), "/api/users/me", nil)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *PipelineSuite) TestNetworkFailureIsUnavailable() {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on

	store := NewMemoryTokenStore(Pair{AccessToken: "ok"})
	p := s.newPipeline(srv.URL, store)

	err := p.Get(context.Background(), "/api/users/me", nil)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *PipelineSuite) TestOpenBreakerFailsFastWithoutDialing() {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on

	store := NewMemoryTokenStore(Pair{AccessToken: "ok"})
	breaker := circuit.New("backend", circuit.WithFailureThreshold(2))
	p := s.newPipeline(srv.URL, store, WithBreaker(breaker))

	for i := 0; i < 2; i++ {
		err := p.Get(context.Background(), "/api/users/me", nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	}
	s.True(breaker.IsOpen(), "two consecutive transport failures open the breaker")

	err := p.Get(context.Background(), "/api/users/me", nil)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Contains(err.Error(), "circuit open", "open breaker short-circuits before dialing")
}

func (s *PipelineSuite) TestBreakerClosesAfterSuccess() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/me", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, nil)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := NewMemoryTokenStore(Pair{AccessToken: "ok"})
	breaker := circuit.New("backend", circuit.WithFailureThreshold(1))
	breaker.RecordFailure()
	s.Require().True(breaker.IsOpen())

	// A probe outside the pipeline succeeded, so the operator resets the
	// breaker; the next request closes the loop normally.
	breaker.Reset()

	p := s.newPipeline(srv.URL, store, WithBreaker(breaker))
	s.Require().NoError(p.Get(context.Background(), "/api/users/me", nil))
	s.False(breaker.IsOpen())
}

func (s *PipelineSuite) TestTenantHeaderAttached() {
	var gotTenant atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/me", func(w http.ResponseWriter, r *http.Request) {
		gotTenant.Store(r.Header.Get(TenantHeader))
		writeEnvelope(w, http.StatusOK, nil)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := NewMemoryTokenStore(Pair{AccessToken: "ok"})
	p := s.newPipeline(srv.URL, store, WithTenantID("tenant-7"))

	s.Require().NoError(p.Get(context.Background(), "/api/users/me", nil))
	s.Equal("tenant-7", gotTenant.Load())
}

func TestFileTokenStore(t *testing.T) {
	dir := t.TempDir()
	store := NewFileTokenStore(dir)
	ctx := context.Background()

	pair, err := store.Tokens(ctx)
	if err != nil {
		t.Fatalf("read empty store: %v", err)
	}
	if !pair.Empty() {
		t.Fatalf("expected empty pair, got %+v", pair)
	}

	want := Pair{AccessToken: "a", RefreshToken: "r", ExpiresIn: 900}
	if err := store.Set(ctx, want); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := store.Tokens(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, err = store.Tokens(ctx)
	if err != nil {
		t.Fatalf("read after clear: %v", err)
	}
	if !got.Empty() {
		t.Fatalf("expected cleared pair, got %+v", got)
	}
}
