package robots

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/rs/zerolog"
)

type fakeDoer struct {
	status int
	body   string
	err    error
	calls  int
	urls   []string
}

func (f *fakeDoer) Do(req *fhttp.Request) (*fhttp.Response, error) {
	f.calls++
	f.urls = append(f.urls, req.URL.String())
	if f.err != nil {
		return nil, f.err
	}
	return &fhttp.Response{
		StatusCode: f.status,
		Header:     fhttp.Header{},
		Body:       io.NopCloser(strings.NewReader(f.body)),
	}, nil
}

const gradcafeRobots = `
User-agent: *
Disallow: /restricted/
Crawl-delay: 30

User-agent: BadBot
Disallow: /
`

func newTestChecker(doer *fakeDoer) *Checker {
	return NewChecker(doer, "https://www.thegradcafe.com/", "admitscrape", time.Second, zerolog.Nop())
}

func TestCheckerDisallowRules(t *testing.T) {
	doer := &fakeDoer{status: 200, body: gradcafeRobots}
	checker := newTestChecker(doer)

	if err := checker.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doer.urls[0] != "https://www.thegradcafe.com/robots.txt" {
		t.Fatalf("fetched %q, want robots.txt at site root", doer.urls[0])
	}

	cases := []struct {
		path string
		want bool
	}{
		{"/restricted/anything", false},
		{"/restricted/", false},
		{"/survey/index.php", true},
		{"https://www.thegradcafe.com/survey/index.php?q=&t=a&pp=250&o=0", true},
		{"https://www.thegradcafe.com/restricted/page", false},
		{"survey/", true},
	}
	for _, tc := range cases {
		if got := checker.Allowed(tc.path); got != tc.want {
			t.Fatalf("Allowed(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}

	if got := checker.CrawlDelay(); got != 30*time.Second {
		t.Fatalf("CrawlDelay() = %v, want 30s", got)
	}
}

func TestCheckerRequire(t *testing.T) {
	checker := newTestChecker(&fakeDoer{status: 200, body: gradcafeRobots})
	if err := checker.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := checker.Require("/survey/index.php"); err != nil {
		t.Fatalf("Require() error = %v", err)
	}
	if err := checker.Require("/restricted/x"); !errors.Is(err, ErrDisallowed) {
		t.Fatalf("Require() error = %v, want ErrDisallowed", err)
	}
}

func TestCheckerMissingOrEmptyPermitsAll(t *testing.T) {
	for _, doer := range []*fakeDoer{
		{status: 404, body: "not found"},
		{status: 200, body: ""},
	} {
		checker := newTestChecker(doer)
		if err := checker.Load(context.Background()); err != nil {
			t.Fatalf("Load(status=%d) error = %v", doer.status, err)
		}
		if !checker.Allowed("/anything/at/all") {
			t.Fatalf("Allowed() = false for status=%d body=%q, want true", doer.status, doer.body)
		}
		if checker.CrawlDelay() != 0 {
			t.Fatalf("CrawlDelay() = %v, want 0", checker.CrawlDelay())
		}
	}
}

func TestCheckerFailsClosed(t *testing.T) {
	t.Run("transport error", func(t *testing.T) {
		doer := &fakeDoer{err: errors.New("connection reset")}
		checker := newTestChecker(doer)
		err := checker.Load(context.Background())
		if !errors.Is(err, ErrDirectivesUnavailable) {
			t.Fatalf("Load() error = %v, want ErrDirectivesUnavailable", err)
		}
		if doer.calls != 1 {
			t.Fatalf("calls = %d, want exactly one attempt", doer.calls)
		}
		if checker.Allowed("/survey/index.php") {
			t.Fatalf("Allowed() = true after failed load, want false")
		}
	})

	t.Run("server error", func(t *testing.T) {
		checker := newTestChecker(&fakeDoer{status: 503})
		if err := checker.Load(context.Background()); !errors.Is(err, ErrDirectivesUnavailable) {
			t.Fatalf("Load() error = %v, want ErrDirectivesUnavailable", err)
		}
		if checker.Loaded() {
			t.Fatalf("Loaded() = true after 503")
		}
	})
}

func TestCheckerAgentGroup(t *testing.T) {
	checker := NewChecker(&fakeDoer{}, "https://example.com", "BadBot", 0, zerolog.Nop())
	if err := checker.LoadBytes(200, []byte(gradcafeRobots)); err != nil {
		t.Fatalf("LoadBytes() error = %v", err)
	}
	if checker.Allowed("/survey/") {
		t.Fatalf("Allowed() = true for BadBot, want false")
	}
}
