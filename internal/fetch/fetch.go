// Package fetch retrieves listing pages politely: one request per host per
// delay window, bounded retries on transient failures, a timeout per attempt.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/cenkalti/backoff/v4"
	"github.com/jimezsa/admitscrape/internal/network"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultDelay      = 25 * time.Second
	DefaultMaxRetries = 3
	DefaultTimeout    = 30 * time.Second

	maxBodyBytes = 16 << 20
)

var ErrFetchFailed = errors.New("fetch failed")

// Error describes a page that could not be fetched after all attempts.
type Error struct {
	URL      string
	Attempts int
	Status   int
	Err      error
}

func (e *Error) Error() string {
	if e.Status >= 400 {
		return fmt.Sprintf("fetch %s: http %d after %d attempt(s)", e.URL, e.Status, e.Attempts)
	}
	return fmt.Sprintf("fetch %s: %v after %d attempt(s)", e.URL, e.Err, e.Attempts)
}

func (e *Error) Unwrap() []error {
	return []error{ErrFetchFailed, e.Err}
}

type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d", e.status)
}

type Options struct {
	Delay      time.Duration
	MaxRetries int
	Timeout    time.Duration
	Headers    map[string]string
}

type Fetcher struct {
	client network.Doer
	opts   Options
	logger zerolog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func New(client network.Doer, opts Options, logger zerolog.Logger) *Fetcher {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Fetcher{
		client:   client,
		opts:     opts,
		logger:   logger.With().Str("component", "fetch").Logger(),
		limiters: map[string]*rate.Limiter{},
	}
}

// Delay returns the minimum gap enforced between requests to one host.
func (f *Fetcher) Delay() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opts.Delay
}

// RaiseDelay lengthens the per-host delay to d. Shorter values are ignored,
// so a published Crawl-delay can only slow the crawler down.
func (f *Fetcher) RaiseDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if d <= f.opts.Delay {
		return
	}
	f.opts.Delay = d
	for _, limiter := range f.limiters {
		limiter.SetLimit(rate.Every(d))
	}
}

// Fetch returns the body of target. Timeouts, transport errors, 429 and 5xx
// responses are retried up to MaxRetries times; every attempt waits for the
// host's delay window. Other 4xx responses fail immediately.
func (f *Fetcher) Fetch(ctx context.Context, target string) ([]byte, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, &Error{URL: target, Err: err}
	}
	limiter := f.limiterFor(parsed.Host)

	var (
		body     []byte
		attempts int
		status   int
	)
	operation := func() error {
		if err := limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		attempts++

		var opErr error
		body, status, opErr = f.do(ctx, target)
		if opErr == nil {
			return nil
		}
		var se *statusError
		if errors.As(opErr, &se) && !transientStatus(se.status) {
			return backoff.Permanent(opErr)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return opErr
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(f.opts.MaxRetries)), ctx)
	notify := func(err error, _ time.Duration) {
		f.logger.Warn().Err(err).Str("url", target).Int("attempt", attempts).Msg("transient fetch failure, retrying")
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, &Error{URL: target, Attempts: attempts, Status: status, Err: err}
	}

	f.logger.Debug().Str("url", target).Int("attempts", attempts).Int("bytes", len(body)).Msg("fetched")
	return body, nil
}

func (f *Fetcher) do(ctx context.Context, target string) ([]byte, int, error) {
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, target, nil)
	if err != nil {
		return nil, 0, backoff.Permanent(err)
	}
	applyHeaders(req, f.opts.Headers)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, resp.StatusCode, &statusError{status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func (f *Fetcher) limiterFor(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	if limiter, ok := f.limiters[host]; ok {
		return limiter
	}
	limit := rate.Inf
	if f.opts.Delay > 0 {
		limit = rate.Every(f.opts.Delay)
	}
	limiter := rate.NewLimiter(limit, 1)
	f.limiters[host] = limiter
	return limiter
}

func transientStatus(status int) bool {
	return status == 429 || status >= 500
}

func applyHeaders(req *fhttp.Request, headers map[string]string) {
	req.Header.Set("accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("accept-language", "en-US,en;q=0.9")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
}
