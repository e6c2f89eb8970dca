package scraper

import (
	"fmt"
	"strings"
)

const SiteGradCafe = "gradcafe"

// SourceOptions addresses a site's listing pages.
type SourceOptions struct {
	BaseURL     string
	ListingPath string
	PerPage     int
}

func Registry(opts SourceOptions) map[string]Source {
	return map[string]Source{
		SiteGradCafe: NewGradCafe(opts.BaseURL, opts.ListingPath, opts.PerPage),
	}
}

// Lookup returns the source registered under name.
func Lookup(name string, opts SourceOptions) (Source, error) {
	name = NormalizeSite(name)
	if name == "" {
		name = SiteGradCafe
	}
	source, ok := Registry(opts)[name]
	if !ok {
		return nil, fmt.Errorf("unknown site %q", name)
	}
	return source, nil
}

func NormalizeSite(site string) string {
	site = strings.ToLower(strings.TrimSpace(site))
	site = strings.TrimPrefix(site, "www.")
	site = strings.TrimPrefix(site, "the")
	site = strings.TrimSuffix(site, ".com")
	return site
}
