package models

import "time"

// ScraperConfig contains runtime options shared by the HTTP transport.
type ScraperConfig struct {
	Proxies    []string
	Timeout    time.Duration
	UserAgents []string
}
