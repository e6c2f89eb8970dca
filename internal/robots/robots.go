// Package robots decides whether the crawler may request a path, based on
// the site's published robots.txt.
//
// A missing robots.txt (any 4xx) or an empty one permits everything. A robots.txt
// that cannot be fetched (transport error or 5xx) is fatal: Load returns
// ErrDirectivesUnavailable and nothing is allowed until a later Load succeeds.
package robots

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/jimezsa/admitscrape/internal/network"
	"github.com/rs/zerolog"
	"github.com/temoto/robotstxt"
)

var (
	ErrDirectivesUnavailable = errors.New("robots.txt unavailable")
	ErrDisallowed            = errors.New("disallowed by robots.txt")
)

const maxRobotsBytes = 512 << 10

type Checker struct {
	client    network.Doer
	baseURL   string
	userAgent string
	timeout   time.Duration
	logger    zerolog.Logger

	group  *robotstxt.Group
	status int
}

func NewChecker(client network.Doer, baseURL, userAgent string, timeout time.Duration, logger zerolog.Logger) *Checker {
	if strings.TrimSpace(userAgent) == "" {
		userAgent = "*"
	}
	return &Checker{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		timeout:   timeout,
		logger:    logger.With().Str("component", "robots").Logger(),
	}
}

// RobotsURL returns the directive file location for the configured site.
func (c *Checker) RobotsURL() string {
	return c.baseURL + "/robots.txt"
}

// Load fetches and parses robots.txt once. It never retries.
func (c *Checker) Load(ctx context.Context) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target := c.RobotsURL()
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDirectivesUnavailable, err)
	}
	req.Header.Set("accept", "text/plain,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		c.group = nil
		return fmt.Errorf("%w: %s: %v", ErrDirectivesUnavailable, target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		c.group = nil
		return fmt.Errorf("%w: read %s: %v", ErrDirectivesUnavailable, target, err)
	}

	return c.parse(resp.StatusCode, body)
}

// LoadBytes installs directives from an already fetched response.
func (c *Checker) LoadBytes(status int, body []byte) error {
	return c.parse(status, body)
}

func (c *Checker) parse(status int, body []byte) error {
	c.group = nil
	c.status = status
	if status >= 500 {
		return fmt.Errorf("%w: http %d", ErrDirectivesUnavailable, status)
	}

	data, err := robotstxt.FromStatusAndBytes(status, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDirectivesUnavailable, err)
	}
	c.group = data.FindGroup(c.userAgent)

	if status >= 400 {
		c.logger.Warn().Int("status", status).Msg("robots.txt missing, all paths permitted")
	} else {
		c.logger.Debug().Int("bytes", len(body)).Msg("robots.txt loaded")
	}
	return nil
}

// Loaded reports whether directives are available.
func (c *Checker) Loaded() bool {
	return c.group != nil
}

// Allowed reports whether path (or an absolute URL on the site) may be crawled.
// Nothing is allowed before a successful Load.
func (c *Checker) Allowed(path string) bool {
	if c.group == nil {
		return false
	}
	return c.group.Test(requestPath(path))
}

// Require returns ErrDisallowed when path may not be crawled.
func (c *Checker) Require(path string) error {
	if c.group == nil {
		return ErrDirectivesUnavailable
	}
	if !c.Allowed(path) {
		return fmt.Errorf("%w: %s", ErrDisallowed, requestPath(path))
	}
	return nil
}

// CrawlDelay returns the Crawl-delay published for the matched group, or zero.
func (c *Checker) CrawlDelay() time.Duration {
	if c.group == nil {
		return 0
	}
	return c.group.CrawlDelay
}

func requestPath(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "/"
	}
	if !strings.Contains(value, "://") {
		if !strings.HasPrefix(value, "/") {
			value = "/" + value
		}
		return value
	}
	u, err := url.Parse(value)
	if err != nil {
		return value
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path
}
