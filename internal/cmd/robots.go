package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/jimezsa/admitscrape/internal/robots"
)

var defaultRobotsPaths = []string{"/survey/", "/survey/index.php", "/search/", "/search/index.php"}

type RobotsCmd struct {
	Check RobotsCheckCmd `cmd:"" help:"Fetch robots.txt and test listing paths against it."`
}

type RobotsCheckCmd struct {
	Paths   []string `arg:"" optional:"" help:"Paths or URLs to test (default: the survey and search listings)."`
	BaseURL string   `name:"base-url" help:"Site base URL."`
	Proxies string   `help:"Comma-separated proxy URLs." env:"ADMITSCRAPE_PROXIES"`
}

type RobotsCheckResult struct {
	Path    string `json:"path"`
	Allowed bool   `json:"allowed"`
}

type robotsReport struct {
	RobotsURL         string              `json:"robots_url"`
	UserAgent         string              `json:"user_agent"`
	CrawlDelaySeconds float64             `json:"crawl_delay_seconds"`
	Paths             []RobotsCheckResult `json:"paths"`
}

func (c *RobotsCheckCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	if strings.TrimSpace(c.BaseURL) != "" {
		cfg.BaseURL = strings.TrimSpace(c.BaseURL)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	client, err := newHTTPClient(cfg, c.Proxies)
	if err != nil {
		return err
	}
	timeout, _ := cfg.TimeoutDuration()
	checker := robots.NewChecker(client, cfg.BaseURL, cfg.UserAgent, timeout, ctx.Logger)
	if err := checker.Load(ctx.RunContext()); err != nil {
		return err
	}

	paths := c.Paths
	if len(paths) == 0 {
		paths = defaultRobotsPaths
	}
	report := robotsReport{
		RobotsURL:         checker.RobotsURL(),
		UserAgent:         cfg.UserAgent,
		CrawlDelaySeconds: checker.CrawlDelay().Seconds(),
		Paths:             make([]RobotsCheckResult, 0, len(paths)),
	}
	for _, path := range paths {
		report.Paths = append(report.Paths, RobotsCheckResult{Path: path, Allowed: checker.Allowed(path)})
	}

	return writeRobotsReport(ctx, report)
}

func writeRobotsReport(ctx *Context, report robotsReport) error {
	if ctx.JSONOutput {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	if ctx.PlainText {
		for _, res := range report.Paths {
			fmt.Fprintf(ctx.Out, "%s\t%s\n", res.Path, verdict(res.Allowed))
		}
		return nil
	}

	fmt.Fprintf(ctx.Out, "robots.txt: %s\n\n", ctx.UI.LinkText(report.RobotsURL))
	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "path\tverdict")
	for _, res := range report.Paths {
		fmt.Fprintf(tw, "%s\t%s\n", res.Path, verdict(res.Allowed))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if report.CrawlDelaySeconds > 0 {
		ctx.UI.Warnf("Crawl-delay: %gs (configured delay %s, the larger applies)", report.CrawlDelaySeconds, ctx.Config.Delay)
	}
	return nil
}

func verdict(allowed bool) string {
	if allowed {
		return "allow"
	}
	return "deny"
}
