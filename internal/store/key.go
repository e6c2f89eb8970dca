package store

import (
	"net/url"
	"strings"

	"github.com/jimezsa/admitscrape/internal/models"
)

// Key returns the deduplication key for a record: its source URL with the
// scheme and host lowercased, the fragment removed and no trailing slash.
func Key(rec models.AdmissionRecord) (string, bool) {
	return NormalizeURL(rec.SourceURL)
}

func NormalizeURL(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	u, err := url.Parse(value)
	if err != nil || u.Host == "" {
		return "", false
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String(), true
}
