package fetch

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type step struct {
	status int
	body   string
	err    error
	block  bool
}

type scriptedDoer struct {
	mu    sync.Mutex
	steps []step
	calls []time.Time
}

func (d *scriptedDoer) Do(req *fhttp.Request) (*fhttp.Response, error) {
	d.mu.Lock()
	d.calls = append(d.calls, time.Now())
	idx := len(d.calls) - 1
	if idx >= len(d.steps) {
		idx = len(d.steps) - 1
	}
	s := d.steps[idx]
	d.mu.Unlock()

	if s.block {
		<-req.Context().Done()
		return nil, req.Context().Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return &fhttp.Response{
		StatusCode: s.status,
		Header:     fhttp.Header{},
		Body:       io.NopCloser(strings.NewReader(s.body)),
	}, nil
}

func (d *scriptedDoer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func TestFetchSuccess(t *testing.T) {
	doer := &scriptedDoer{steps: []step{{status: 200, body: "<html>ok</html>"}}}
	f := New(doer, Options{MaxRetries: 2}, zerolog.Nop())

	body, err := f.Fetch(context.Background(), "https://example.com/survey/index.php")
	require.NoError(t, err)
	require.Equal(t, "<html>ok</html>", string(body))
	require.Equal(t, 1, doer.count())
}

func TestFetchRetriesTransientWithDelay(t *testing.T) {
	delay := 40 * time.Millisecond
	doer := &scriptedDoer{steps: []step{
		{status: 503},
		{err: errors.New("connection reset by peer")},
		{status: 200, body: "page"},
	}}
	f := New(doer, Options{Delay: delay, MaxRetries: 3}, zerolog.Nop())

	start := time.Now()
	body, err := f.Fetch(context.Background(), "https://example.com/p")
	require.NoError(t, err)
	require.Equal(t, "page", string(body))
	require.Equal(t, 3, doer.count())

	// The first request goes out immediately, each retry waits a full window.
	require.GreaterOrEqual(t, time.Since(start), 2*delay-5*time.Millisecond)
	for i := 1; i < len(doer.calls); i++ {
		gap := doer.calls[i].Sub(doer.calls[i-1])
		require.GreaterOrEqual(t, gap, delay-5*time.Millisecond, "gap %d", i)
	}
}

func TestFetchGivesUpAfterMaxRetries(t *testing.T) {
	doer := &scriptedDoer{steps: []step{{status: 500}}}
	f := New(doer, Options{MaxRetries: 2}, zerolog.Nop())

	_, err := f.Fetch(context.Background(), "https://example.com/p")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrFetchFailed)

	var fetchErr *Error
	require.True(t, errors.As(err, &fetchErr))
	require.Equal(t, 3, fetchErr.Attempts)
	require.Equal(t, 500, fetchErr.Status)
	require.Equal(t, 3, doer.count())
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	doer := &scriptedDoer{steps: []step{{status: 404}}}
	f := New(doer, Options{MaxRetries: 5}, zerolog.Nop())

	_, err := f.Fetch(context.Background(), "https://example.com/missing")
	require.ErrorIs(t, err, ErrFetchFailed)
	require.Equal(t, 1, doer.count())
	require.Contains(t, err.Error(), "http 404")
}

func TestFetchRetriesTooManyRequests(t *testing.T) {
	doer := &scriptedDoer{steps: []step{{status: 429}, {status: 200, body: "ok"}}}
	f := New(doer, Options{MaxRetries: 1}, zerolog.Nop())

	body, err := f.Fetch(context.Background(), "https://example.com/p")
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))
	require.Equal(t, 2, doer.count())
}

func TestFetchTimeoutIsTransient(t *testing.T) {
	doer := &scriptedDoer{steps: []step{{block: true}, {status: 200, body: "late"}}}
	f := New(doer, Options{MaxRetries: 1, Timeout: 20 * time.Millisecond}, zerolog.Nop())

	body, err := f.Fetch(context.Background(), "https://example.com/slow")
	require.NoError(t, err)
	require.Equal(t, "late", string(body))
	require.Equal(t, 2, doer.count())
}

func TestFetchStopsOnCancelledContext(t *testing.T) {
	doer := &scriptedDoer{steps: []step{{status: 503}}}
	f := New(doer, Options{Delay: time.Hour, MaxRetries: 3}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.Fetch(ctx, "https://example.com/p")
	require.ErrorIs(t, err, ErrFetchFailed)
	require.Equal(t, 1, doer.count())
}

func TestLimiterIsPerHost(t *testing.T) {
	doer := &scriptedDoer{steps: []step{{status: 200, body: "x"}}}
	f := New(doer, Options{Delay: time.Hour}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := f.Fetch(ctx, "https://a.example.com/")
	require.NoError(t, err)
	_, err = f.Fetch(ctx, "https://b.example.com/")
	require.NoError(t, err)
	require.Equal(t, 2, doer.count())
}

func TestRaiseDelayOnlyLengthens(t *testing.T) {
	f := New(&scriptedDoer{steps: []step{{status: 200}}}, Options{Delay: 25 * time.Second}, zerolog.Nop())

	f.RaiseDelay(10 * time.Second)
	require.Equal(t, 25*time.Second, f.Delay())

	f.RaiseDelay(30 * time.Second)
	require.Equal(t, 30*time.Second, f.Delay())
}
