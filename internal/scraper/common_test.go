package scraper

import (
	"testing"
)

func TestCleanText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Stanford\n\t University ", "Stanford University"},
		{"Texas A&amp;M", "Texas A&M"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := cleanText(tc.in); got != tc.want {
			t.Fatalf("cleanText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAbsoluteURL(t *testing.T) {
	base := "https://www.thegradcafe.com/survey/index.php"
	cases := []struct {
		href string
		want string
	}{
		{"/result/123", "https://www.thegradcafe.com/result/123"},
		{"https://other.com/a", "https://other.com/a"},
		{"//cdn.example.com/asset", "https://cdn.example.com/asset"},
		{"", ""},
	}

	for _, tc := range cases {
		got := absoluteURL(base, tc.href)
		if got != tc.want {
			t.Fatalf("absoluteURL(%q) = %q, want %q", tc.href, got, tc.want)
		}
	}
}
