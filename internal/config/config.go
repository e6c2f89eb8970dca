package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jimezsa/admitscrape/internal/fetch"
	"github.com/jimezsa/admitscrape/internal/pipeline"
	"github.com/jimezsa/admitscrape/internal/scraper"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

const (
	DirName         = "admitscrape"
	ConfigFileName  = "config.json"
	ProxiesFileName = "proxies.txt"

	EnvPrefix = "ADMITSCRAPE_"
)

// Config holds crawl settings. Durations are Go duration strings ("25s").
type Config struct {
	Site                   string `json:"site"`
	BaseURL                string `json:"base_url"`
	ListingPath            string `json:"listing_path"`
	PerPage                int    `json:"per_page"`
	Delay                  string `json:"delay"`
	Timeout                string `json:"timeout"`
	MaxRetries             int    `json:"max_retries"`
	MaxPages               int    `json:"max_pages"`
	MaxRecords             int    `json:"max_records"`
	MaxConsecutiveFailures int    `json:"max_consecutive_failures"`
	Output                 string `json:"output"`
	UserAgent              string `json:"user_agent"`
	LogFile                string `json:"log_file,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Site:                   scraper.SiteGradCafe,
		BaseURL:                scraper.DefaultBaseURL,
		ListingPath:            scraper.DefaultListingPath,
		PerPage:                scraper.DefaultPerPage,
		Delay:                  fetch.DefaultDelay.String(),
		Timeout:                fetch.DefaultTimeout.String(),
		MaxRetries:             fetch.DefaultMaxRetries,
		MaxConsecutiveFailures: pipeline.DefaultMaxConsecutiveFailures,
		Output:                 "admissions.jsonl",
		UserAgent:              "admitscrape",
	}
}

func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, DirName), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

func ProxiesPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ProxiesFileName), nil
}

// Load resolves defaults, then the config file, then ADMITSCRAPE_* variables.
func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), err
	}
	return LoadFile(path)
}

func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json5.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

// Validate checks the values that cannot be defaulted silently.
func (c Config) Validate() error {
	if _, err := c.DelayDuration(); err != nil {
		return err
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if c.MaxPages < 0 || c.MaxRecords < 0 {
		return fmt.Errorf("max_pages and max_records must not be negative")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base_url must be an http(s) URL, got %q", c.BaseURL)
	}
	return nil
}

func (c Config) DelayDuration() (time.Duration, error) {
	return parseDuration("delay", c.Delay, fetch.DefaultDelay)
}

func (c Config) TimeoutDuration() (time.Duration, error) {
	return parseDuration("timeout", c.Timeout, fetch.DefaultTimeout)
}

func (c Config) SourceOptions() scraper.SourceOptions {
	return scraper.SourceOptions{
		BaseURL:     c.BaseURL,
		ListingPath: c.ListingPath,
		PerPage:     c.PerPage,
	}
}

func (c Config) FetchOptions() fetch.Options {
	delay, _ := c.DelayDuration()
	timeout, _ := c.TimeoutDuration()
	return fetch.Options{
		Delay:      delay,
		MaxRetries: c.MaxRetries,
		Timeout:    timeout,
	}
}

func (c Config) PipelineConfig(runID string) pipeline.Config {
	return pipeline.Config{
		RunID:                  runID,
		MaxPages:               c.MaxPages,
		MaxRecords:             c.MaxRecords,
		MaxConsecutiveFailures: c.MaxConsecutiveFailures,
	}
}

// Init writes default config.json and proxies.txt if they don't already exist.
func Init() ([]string, error) {
	var created []string

	dir, err := ConfigDir()
	if err != nil {
		return created, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return created, err
	}

	configPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := writeConfig(configPath, DefaultConfig()); err != nil {
			return created, err
		}
		created = append(created, configPath)
	}

	proxiesPath := filepath.Join(dir, ProxiesFileName)
	if _, err := os.Stat(proxiesPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(proxiesPath, []byte(""), 0o644); err != nil {
			return created, err
		}
		created = append(created, proxiesPath)
	}

	return created, nil
}

func writeConfig(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func LoadProxies(flagValue string) ([]string, error) {
	if strings.TrimSpace(flagValue) != "" {
		return splitCSV(flagValue), nil
	}

	if env := strings.TrimSpace(os.Getenv(EnvPrefix + "PROXIES")); env != "" {
		return splitCSV(env), nil
	}

	path, err := ProxiesPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var proxies []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		proxies = append(proxies, line)
	}
	return proxies, nil
}

func applyEnv(cfg *Config) {
	cfg.Site = envString("SITE", cfg.Site)
	cfg.BaseURL = envString("BASE_URL", cfg.BaseURL)
	cfg.ListingPath = envString("LISTING_PATH", cfg.ListingPath)
	cfg.PerPage = envInt("PER_PAGE", cfg.PerPage)
	cfg.Delay = envString("DELAY", cfg.Delay)
	cfg.Timeout = envString("TIMEOUT", cfg.Timeout)
	cfg.MaxRetries = envInt("MAX_RETRIES", cfg.MaxRetries)
	cfg.MaxPages = envInt("MAX_PAGES", cfg.MaxPages)
	cfg.MaxRecords = envInt("MAX_RECORDS", cfg.MaxRecords)
	cfg.MaxConsecutiveFailures = envInt("MAX_CONSECUTIVE_FAILURES", cfg.MaxConsecutiveFailures)
	cfg.Output = envString("OUTPUT", cfg.Output)
	cfg.UserAgent = envString("USER_AGENT", cfg.UserAgent)
	cfg.LogFile = envString("LOG_FILE", cfg.LogFile)
}

func envString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(EnvPrefix + key)); val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(EnvPrefix + key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

// maxSeconds keeps bare-number durations inside time.Duration.
const maxSeconds = float64(math.MaxInt64 / int64(time.Second))

func parseDuration(name, value string, fallback time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	var d time.Duration
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds > maxSeconds {
			return 0, fmt.Errorf("%s: %q is not a usable number of seconds", name, value)
		}
		d = time.Duration(seconds * float64(time.Second))
	} else if d, err = time.ParseDuration(value); err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}
	return d, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
