package cmd

import (
	"github.com/alecthomas/kong"
)

type CLI struct {
	Color   string `help:"Color output: auto, always, never." enum:"auto,always,never" default:"auto"`
	JSON    bool   `help:"JSON output to stdout; disables colors."`
	Plain   bool   `help:"TSV output to stdout; disables colors."`
	Verbose bool   `help:"Enable debug logging."`
	LogFile string `name:"log-file" help:"Also write logs to a rotating file."`

	VersionFlag kong.VersionFlag `help:"Print version."`

	Version VersionCmd `cmd:"" help:"Print version."`
	Config  ConfigCmd  `cmd:"" help:"Manage configuration."`
	Scrape  ScrapeCmd  `cmd:"" help:"Crawl the admissions survey into a store."`
	Robots  RobotsCmd  `cmd:"" help:"robots.txt utilities."`
	Records RecordsCmd `cmd:"" help:"Export, merge and diff stored records."`
	Report  ReportCmd  `cmd:"" help:"Write a summary report over stored records."`
	Proxies ProxiesCmd `cmd:"" help:"Proxy utilities."`
}

func NewCLI() *CLI {
	return &CLI{}
}
