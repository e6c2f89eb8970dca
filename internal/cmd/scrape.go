package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jimezsa/admitscrape/internal/config"
	"github.com/jimezsa/admitscrape/internal/fetch"
	"github.com/jimezsa/admitscrape/internal/models"
	"github.com/jimezsa/admitscrape/internal/network"
	"github.com/jimezsa/admitscrape/internal/pipeline"
	"github.com/jimezsa/admitscrape/internal/robots"
	"github.com/jimezsa/admitscrape/internal/scraper"
	"github.com/jimezsa/admitscrape/internal/store"
	"github.com/jimezsa/admitscrape/internal/ui"
)

const proxyBanDuration = 10 * time.Minute

type ScrapeCmd struct {
	Site       string `help:"Source site (default: gradcafe)."`
	BaseURL    string `name:"base-url" help:"Survey base URL."`
	Pages      int    `help:"Stop after N listing pages (0: until an empty page)."`
	MaxRecords int    `name:"max-records" help:"Stop once N records were accepted (0: no limit)."`
	Delay      string `help:"Minimum delay between requests to the site, e.g. 25s."`
	Retries    int    `help:"Retries per page on transient failures (-1: from config)." default:"-1"`
	Timeout    string `help:"Timeout per request, e.g. 30s."`
	Output     string `name:"output" short:"o" help:"Store target: path.jsonl, sqlite:path.db or mysql://dsn."`
	Proxies    string `help:"Comma-separated proxy URLs." env:"ADMITSCRAPE_PROXIES"`
	RunID      string `name:"run-id" help:"Run identifier attached to logs (default: random UUID)."`
}

func (s *ScrapeCmd) Run(ctx *Context) error {
	cfg, err := s.resolveConfig(ctx.Config)
	if err != nil {
		return err
	}

	client, err := newHTTPClient(cfg, s.Proxies)
	if err != nil {
		return err
	}
	source, err := scraper.Lookup(cfg.Site, cfg.SourceOptions())
	if err != nil {
		return err
	}
	timeout, _ := cfg.TimeoutDuration()
	checker := robots.NewChecker(client, cfg.BaseURL, cfg.UserAgent, timeout, ctx.Logger)
	fetcher := fetch.New(client, cfg.FetchOptions(), ctx.Logger)

	runCtx := ctx.RunContext()
	sink, err := store.Open(runCtx, cfg.Output)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer sink.Close()
	reportResume(ctx, sink, cfg.Output)

	runner := pipeline.NewRunner(source, checker, fetcher, sink, cfg.PipelineConfig(s.RunID), ctx.Logger)
	if !ctx.JSONOutput && !ctx.PlainText {
		runner.OnState = func(state pipeline.State, page int) {
			if state == pipeline.StateFetching {
				ctx.UI.Progressf("fetching page %d", page)
			}
		}
	}

	summary, runErr := runner.Run(runCtx)
	if err := writeSummary(ctx, summary); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if !ctx.JSONOutput && !ctx.PlainText {
		ctx.UI.Successf("Stored %d new record(s) in %s", summary.Persisted, cfg.Output)
	}
	return nil
}

// reportResume notes what an existing JSONL output already held.
func reportResume(ctx *Context, sink store.Store, target string) {
	js, ok := sink.(*store.JSONLStore)
	if !ok {
		return
	}
	if n := js.Repaired(); n > 0 {
		ctx.Logger.Warn().Str("output", target).Int64("bytes", n).Msg("dropped torn final line")
		ctx.UI.Warnf("Dropped an incomplete final line (%d bytes) from %s", n, target)
	}
	if n := js.Len(); n > 0 {
		ctx.Logger.Info().Str("output", target).Int("records", n).Msg("resuming output")
	}
}

// resolveConfig applies flag overrides on top of the loaded configuration.
func (s *ScrapeCmd) resolveConfig(base config.Config) (config.Config, error) {
	cfg := base
	if strings.TrimSpace(s.Site) != "" {
		cfg.Site = s.Site
	}
	if strings.TrimSpace(s.BaseURL) != "" {
		cfg.BaseURL = strings.TrimSpace(s.BaseURL)
	}
	if s.Pages > 0 {
		cfg.MaxPages = s.Pages
	}
	if s.MaxRecords > 0 {
		cfg.MaxRecords = s.MaxRecords
	}
	if strings.TrimSpace(s.Delay) != "" {
		cfg.Delay = s.Delay
	}
	if s.Retries >= 0 {
		cfg.MaxRetries = s.Retries
	}
	if strings.TrimSpace(s.Timeout) != "" {
		cfg.Timeout = s.Timeout
	}
	if strings.TrimSpace(s.Output) != "" {
		cfg.Output = s.Output
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newHTTPClient(cfg config.Config, proxiesFlag string) (*network.Client, error) {
	proxies, err := config.LoadProxies(proxiesFlag)
	if err != nil {
		return nil, err
	}

	var rotator *network.Rotator
	if len(proxies) > 0 {
		rotator, err = network.NewRotator(proxies, proxyBanDuration)
		if err != nil {
			return nil, err
		}
	}

	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	scraperCfg := models.ScraperConfig{Proxies: proxies, Timeout: timeout}
	if ua := strings.TrimSpace(cfg.UserAgent); ua != "" {
		scraperCfg.UserAgents = []string{ua}
	}
	return network.NewClient(rotator, scraperCfg)
}

func writeSummary(ctx *Context, summary pipeline.Summary) error {
	if ctx.JSONOutput {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	pairs := summaryPairs(summary)
	if ctx.PlainText {
		for _, pair := range pairs {
			if _, err := fmt.Fprintf(ctx.Out, "%s\t%s\n", pair.Key, pair.Value); err != nil {
				return err
			}
		}
		return nil
	}
	return ctx.UI.KeyValues(pairs)
}

func summaryPairs(s pipeline.Summary) []ui.Pair {
	pairs := []ui.Pair{
		{Key: "run_id", Value: s.RunID},
		{Key: "pages_fetched", Value: strconv.Itoa(s.PagesFetched)},
		{Key: "pages_failed", Value: strconv.Itoa(s.PagesFailed)},
		{Key: "rows_seen", Value: strconv.Itoa(s.RowsSeen)},
		{Key: "accepted", Value: fmt.Sprintf("%d (clean %d, degraded %d)", s.Accepted, s.Clean, s.Degraded)},
		{Key: "persisted", Value: strconv.Itoa(s.Persisted)},
		{Key: "duplicates", Value: strconv.Itoa(s.Duplicates)},
		{Key: "rejected", Value: fmt.Sprintf("%d %s", s.RejectedTotal(), formatCounts(s.Rejected))},
		{Key: "dropped_fields", Value: formatCounts(s.Dropped)},
		{Key: "stop_reason", Value: s.StopReason},
		{Key: "duration", Value: s.Duration().Round(time.Millisecond).String()},
	}
	if len(s.FailedPages) > 0 {
		pages := make([]string, 0, len(s.FailedPages))
		for _, page := range s.FailedPages {
			pages = append(pages, strconv.Itoa(page))
		}
		pairs = append(pairs, ui.Pair{Key: "failed_pages", Value: strings.Join(pages, ",")})
	}
	return pairs
}

// formatCounts renders a reason/field histogram as "a=1 b=2", sorted by key.
func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", key, counts[key]))
	}
	return strings.Join(parts, " ")
}
