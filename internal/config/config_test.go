package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.BaseURL != "https://www.thegradcafe.com" || cfg.PerPage != 250 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if d, _ := cfg.DelayDuration(); d != 25*time.Second {
		t.Fatalf("default delay = %v, want 25s", d)
	}
	if cfg.MaxConsecutiveFailures != 3 || cfg.MaxRetries != 3 {
		t.Fatalf("unexpected retry defaults: %+v", cfg)
	}
}

func TestLoadFileJSON5AndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
  // slower than the default
  "delay": "40s",
  "max_pages": 5,
  "output": "sqlite:admissions.db"
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ADMITSCRAPE_MAX_PAGES", "7")
	t.Setenv("ADMITSCRAPE_TIMEOUT", "10")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Output != "sqlite:admissions.db" {
		t.Fatalf("Output = %q", cfg.Output)
	}
	if cfg.MaxPages != 7 {
		t.Fatalf("env should override file, MaxPages = %d", cfg.MaxPages)
	}

	opts := cfg.FetchOptions()
	if opts.Delay != 40*time.Second || opts.Timeout != 10*time.Second {
		t.Fatalf("unexpected fetch options: %+v", opts)
	}
	if pc := cfg.PipelineConfig("run-1"); pc.MaxPages != 7 || pc.RunID != "run-1" {
		t.Fatalf("unexpected pipeline config: %+v", pc)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Delay = "soon"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for bad delay")
	}

	for _, value := range []string{"-5", "-0.5", "-5s", "NaN", "Inf", "-Inf", "1e300"} {
		cfg = DefaultConfig()
		cfg.Delay = value
		if err := cfg.Validate(); err == nil {
			d, _ := cfg.DelayDuration()
			t.Fatalf("delay %q accepted as %v", value, d)
		}
		cfg = DefaultConfig()
		cfg.Timeout = value
		if err := cfg.Validate(); err == nil {
			t.Fatalf("timeout %q accepted", value)
		}
	}

	cfg = DefaultConfig()
	cfg.Delay = "0"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero delay rejected: %v", err)
	}
	cfg.Delay = "2.5"
	if d, err := cfg.DelayDuration(); err != nil || d != 2500*time.Millisecond {
		t.Fatalf("DelayDuration(2.5) = %v, %v", d, err)
	}

	cfg = DefaultConfig()
	cfg.BaseURL = "ftp://example.com"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for non-http base url")
	}
}

func TestInitAndProxies(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ADMITSCRAPE_PROXIES", "")

	created, err := Init()
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected config and proxies files, got %v", created)
	}
	again, err := Init()
	if err != nil || len(again) != 0 {
		t.Fatalf("second Init() = %v, %v; want nothing created", again, err)
	}

	path, err := ProxiesPath()
	if err != nil {
		t.Fatalf("ProxiesPath() error = %v", err)
	}
	if err := os.WriteFile(path, []byte("# comment\nhttp://a:1\n\nhttp://b:2\n"), 0o644); err != nil {
		t.Fatalf("write proxies: %v", err)
	}
	proxies, err := LoadProxies("")
	if err != nil || len(proxies) != 2 {
		t.Fatalf("LoadProxies() = %v, %v", proxies, err)
	}

	flagged, _ := LoadProxies("http://c:3, http://d:4")
	if len(flagged) != 2 || flagged[1] != "http://d:4" {
		t.Fatalf("unexpected flag proxies: %v", flagged)
	}
}
