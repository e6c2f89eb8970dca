package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestNormalizeColorMode(t *testing.T) {
	cases := map[string]ColorMode{
		"always":  ColorAlways,
		" NEVER ": ColorNever,
		"auto":    ColorAuto,
		"":        ColorAuto,
		"rainbow": ColorAuto,
	}
	for in, want := range cases {
		if got := NormalizeColorMode(in); got != want {
			t.Fatalf("NormalizeColorMode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMessagesRouteToStreams(t *testing.T) {
	var out, errOut bytes.Buffer
	u := New(&out, &errOut, ColorNever, false)

	u.Infof("records: %d", 3)
	u.Successf("done\n")
	u.Warnf("page %d failed", 2)
	u.Progressf("page %d", 1)
	u.Errorf("boom")

	if got, want := out.String(), "records: 3\ndone\n"; got != want {
		t.Fatalf("stdout = %q, want %q", got, want)
	}
	if got, want := errOut.String(), "page 2 failed\npage 1\nboom\n"; got != want {
		t.Fatalf("stderr = %q, want %q", got, want)
	}
}

func TestKeyValuesAligns(t *testing.T) {
	var out bytes.Buffer
	u := New(&out, &bytes.Buffer{}, ColorNever, true)

	if err := u.KeyValues([]Pair{{"pages", "2"}, {"accepted", "10"}}); err != nil {
		t.Fatalf("KeyValues() error = %v", err)
	}
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if strings.Index(lines[0], "2") != strings.Index(lines[1], "10") {
		t.Fatalf("values not aligned:\n%s", out.String())
	}
}

func TestLinkTextPlainWithoutColor(t *testing.T) {
	u := New(&bytes.Buffer{}, &bytes.Buffer{}, ColorNever, false)
	if got := u.LinkText("https://www.thegradcafe.com/robots.txt"); got != "https://www.thegradcafe.com/robots.txt" {
		t.Fatalf("LinkText() = %q, want the bare URL", got)
	}
	if got := ColorizeLink(nil, true, "x"); got != "x" {
		t.Fatalf("ColorizeLink(nil) = %q, want x", got)
	}
}
