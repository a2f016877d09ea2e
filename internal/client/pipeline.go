package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	dErrors "leanquest/pkg/domain-errors"
	"leanquest/pkg/platform/circuit"
	"leanquest/pkg/platform/httputil"
)

// Header carrying the tenant on every request.
const TenantHeader = "X-Tenant-ID"

const (
	defaultRetryBudget = 3
	defaultRetryAfter  = 1 * time.Second
	defaultJitter      = 100 * time.Millisecond
)

// Pipeline sends authenticated JSON requests with three layers of resilience:
//
//   - 401: refresh the token pair and retry the original request once. All
//     concurrent 401s share a single refresh call (singleflight); refresh
//     failure clears stored tokens, fires the logout hook, and fails with an
//     unauthorized-coded error.
//   - 429: honor Retry-After (default 1s) plus a fixed jitter, up to a bounded
//     retry budget; exhaustion fails with a rate-limited-coded error.
//   - transport/parse failure: fails with an unavailable-coded error, which
//     callers such as the progression orchestrator may degrade on.
//
// All other non-2xx responses (and success=false envelopes, which clients must
// treat identically) surface the server's message under the matching code.
type Pipeline struct {
	baseURL     string
	refreshPath string
	tenantID    string
	httpClient  *http.Client
	tokens      TokenStore
	logger      *slog.Logger
	retryBudget int
	retryAfter  time.Duration
	jitter      time.Duration
	sleep       func(context.Context, time.Duration) error
	onLogout    func()
	tracer      trace.Tracer
	breaker     *circuit.Breaker

	refreshGroup singleflight.Group
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithHTTPClient(c *http.Client) Option {
	return func(p *Pipeline) { p.httpClient = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithTenantID sets the tenant attached as the X-Tenant-ID header.
func WithTenantID(tenantID string) Option {
	return func(p *Pipeline) { p.tenantID = tenantID }
}

// WithRetryBudget bounds the number of delayed retries after 429 responses.
func WithRetryBudget(n int) Option {
	return func(p *Pipeline) { p.retryBudget = n }
}

// WithJitter sets the fixed delay added on top of Retry-After.
func WithJitter(d time.Duration) Option {
	return func(p *Pipeline) { p.jitter = d }
}

// WithSleeper overrides how retry delays are waited out. Tests inject a
// recording sleeper instead of burning wall-clock time.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(p *Pipeline) { p.sleep = sleep }
}

// WithLogoutHook registers the callback fired when a refresh definitively
// fails and the session is over.
func WithLogoutHook(fn func()) Option {
	return func(p *Pipeline) { p.onLogout = fn }
}

// WithRefreshPath overrides the token refresh endpoint (default /auth/refresh).
func WithRefreshPath(path string) Option {
	return func(p *Pipeline) { p.refreshPath = path }
}

// WithBreaker guards transport calls with a circuit breaker. While the breaker
// is open, requests fail fast with an unavailable-coded error instead of
// waiting out a timeout, so callers can drop to their offline path
// immediately.
func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Pipeline) { p.breaker = b }
}

// New constructs a Pipeline. The token store is required; everything else has
// a default.
func New(baseURL string, tokens TokenStore, opts ...Option) (*Pipeline, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token store is required")
	}
	p := &Pipeline{
		baseURL:     baseURL,
		refreshPath: "/auth/refresh",
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		tokens:      tokens,
		logger:      slog.Default(),
		retryBudget: defaultRetryBudget,
		retryAfter:  defaultRetryAfter,
		jitter:      defaultJitter,
		sleep:       sleepContext,
		onLogout:    func() {},
		tracer:      otel.Tracer("leanquest/client"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Get issues an authenticated GET and decodes the envelope data into out.
func (p *Pipeline) Get(ctx context.Context, path string, out any) error {
	return p.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues an authenticated POST with a JSON body.
func (p *Pipeline) Post(ctx context.Context, path string, body, out any) error {
	return p.do(ctx, http.MethodPost, path, body, out)
}

// Put issues an authenticated PUT with a JSON body.
func (p *Pipeline) Put(ctx context.Context, path string, body, out any) error {
	return p.do(ctx, http.MethodPut, path, body, out)
}

func (p *Pipeline) do(ctx context.Context, method, path string, body, out any) (err error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.request", trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	))
	defer func() {
		label := "ok"
		if err != nil {
			label = string(dErrors.CodeOf(err))
		}
		requestsTotal.WithLabelValues(label).Inc()
		span.End()
	}()

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to encode request body")
		}
	}

	authRetried := false
	rateRetries := 0
	for {
		if p.breaker != nil && p.breaker.IsOpen() {
			return dErrors.New(dErrors.CodeUnavailable, "backend circuit open")
		}

		status, respBody, sendErr := p.send(ctx, method, path, payload)
		if sendErr != nil {
			if p.breaker != nil {
				if _, change := p.breaker.RecordFailure(); change.Opened {
					p.logger.WarnContext(ctx, "backend circuit opened", "breaker", p.breaker.Name())
				}
			}
			return dErrors.Wrap(sendErr, dErrors.CodeUnavailable, "request failed")
		}
		if p.breaker != nil {
			if _, change := p.breaker.RecordSuccess(); change.Closed {
				p.logger.InfoContext(ctx, "backend circuit closed", "breaker", p.breaker.Name())
			}
		}

		switch {
		case status == http.StatusUnauthorized && !authRetried:
			authRetried = true
			if refreshErr := p.refreshTokens(ctx); refreshErr != nil {
				return refreshErr
			}
			continue

		case status == http.StatusTooManyRequests:
			if rateRetries >= p.retryBudget {
				return dErrors.New(dErrors.CodeRateLimited, "rate limit retries exhausted")
			}
			delay := p.retryAfterDelay(respBody.retryAfter)
			p.logger.WarnContext(ctx, "rate limited, backing off",
				"path", path, "delay", delay, "attempt", rateRetries+1)
			rateLimitRetriesTotal.Inc()
			if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
				return dErrors.Wrap(sleepErr, dErrors.CodeUnavailable, "canceled during rate limit backoff")
			}
			rateRetries++
			continue
		}

		return p.finish(status, respBody, out)
	}
}

type response struct {
	envelope   httputil.Envelope
	parsed     bool
	retryAfter string
}

// send performs one HTTP attempt with the current access token attached.
func (p *Pipeline) send(ctx context.Context, method, path string, payload []byte) (int, response, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, bodyReader)
	if err != nil {
		return 0, response{}, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	pair, err := p.tokens.Tokens(ctx)
	if err != nil {
		return 0, response{}, fmt.Errorf("read token store: %w", err)
	}
	if pair.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	}
	if p.tenantID != "" {
		req.Header.Set(TenantHeader, p.tenantID)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, response{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, response{}, fmt.Errorf("read response body: %w", err)
	}

	out := response{retryAfter: resp.Header.Get("Retry-After")}
	if json.Unmarshal(raw, &out.envelope) == nil {
		out.parsed = true
	}
	return resp.StatusCode, out, nil
}

// finish translates the terminal response into a result or coded error.
func (p *Pipeline) finish(status int, resp response, out any) error {
	if status >= 200 && status < 300 && resp.parsed && resp.envelope.Success {
		if out == nil || len(resp.envelope.Data) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.envelope.Data, out); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to decode response data")
		}
		return nil
	}

	if status >= 200 && status < 300 && !resp.parsed {
		return dErrors.New(dErrors.CodeUnavailable, "non-JSON response body")
	}

	// Non-2xx, or a success=false envelope: surface the server's message and
	// code when present, else fall back to the HTTP status mapping.
	code := dErrors.FromHTTPStatus(status)
	message := "request failed"
	if resp.parsed {
		if resp.envelope.Code != "" {
			code = dErrors.Code(resp.envelope.Code)
		}
		if resp.envelope.Error != "" {
			message = resp.envelope.Error
		}
	}
	if status >= 200 && status < 300 {
		// success=false on a 2xx is still a failure per the envelope contract.
		if code == dErrors.CodeInternal && resp.envelope.Code == "" {
			code = dErrors.CodeUnavailable
		}
	}
	return dErrors.New(code, message)
}

// refreshTokens coalesces concurrent refresh attempts into one call.
// DoChan decouples the shared refresh from any single caller's context, so
// one canceled request cannot abort a refresh others are waiting on.
func (p *Pipeline) refreshTokens(ctx context.Context) error {
	ch := p.refreshGroup.DoChan("refresh", func() (any, error) {
		return nil, p.doRefresh(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Shared {
			refreshWaitersCoalesced.Inc()
		}
		return res.Err
	case <-ctx.Done():
		return dErrors.Wrap(ctx.Err(), dErrors.CodeUnavailable, "canceled while waiting for token refresh")
	}
}

// doRefresh performs the actual refresh call. Any failure here means the
// session is unrecoverable: tokens are cleared, the logout hook fires, and
// the caller gets an unauthorized-coded error.
func (p *Pipeline) doRefresh(ctx context.Context) error {
	pair, err := p.tokens.Tokens(ctx)
	if err != nil || pair.RefreshToken == "" {
		return p.failRefresh(ctx, dErrors.New(dErrors.CodeUnauthorized, "no refresh token available"))
	}

	body, _ := json.Marshal(map[string]string{"refreshToken": pair.RefreshToken})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+p.refreshPath, bytes.NewReader(body))
	if err != nil {
		return p.failRefresh(ctx, dErrors.Wrap(err, dErrors.CodeUnauthorized, "failed to build refresh request"))
	}
	req.Header.Set("Content-Type", "application/json")
	if p.tenantID != "" {
		req.Header.Set(TenantHeader, p.tenantID)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return p.failRefresh(ctx, dErrors.Wrap(err, dErrors.CodeUnauthorized, "token refresh failed"))
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var env httputil.Envelope
	if resp.StatusCode != http.StatusOK || json.Unmarshal(raw, &env) != nil || !env.Success {
		return p.failRefresh(ctx, dErrors.New(dErrors.CodeUnauthorized, "token refresh rejected"))
	}

	var refreshed Pair
	if err := json.Unmarshal(env.Data, &refreshed); err != nil || refreshed.AccessToken == "" {
		return p.failRefresh(ctx, dErrors.New(dErrors.CodeUnauthorized, "malformed refresh response"))
	}
	if refreshed.RefreshToken == "" {
		// Server may omit rotation; keep the pair usable.
		refreshed.RefreshToken = pair.RefreshToken
	}
	if err := p.tokens.Set(ctx, refreshed); err != nil {
		return p.failRefresh(ctx, dErrors.Wrap(err, dErrors.CodeUnauthorized, "failed to persist refreshed tokens"))
	}

	refreshesTotal.WithLabelValues("success").Inc()
	return nil
}

func (p *Pipeline) failRefresh(ctx context.Context, err error) error {
	refreshesTotal.WithLabelValues("failure").Inc()
	if clearErr := p.tokens.Clear(ctx); clearErr != nil {
		p.logger.ErrorContext(ctx, "failed to clear tokens after refresh failure", "error", clearErr)
	}
	p.onLogout()
	return err
}

// retryAfterDelay resolves the 429 backoff: Retry-After seconds or HTTP date,
// defaulting to one second, plus the fixed jitter.
func (p *Pipeline) retryAfterDelay(header string) time.Duration {
	delay := p.retryAfter
	if header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
			delay = time.Duration(secs) * time.Second
		} else if at, err := http.ParseTime(header); err == nil {
			if until := time.Until(at); until > 0 {
				delay = until
			}
		}
	}
	return delay + p.jitter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
