package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/jimezsa/admitscrape/internal/cmd"
	"github.com/jimezsa/admitscrape/internal/config"
	"github.com/jimezsa/admitscrape/internal/logging"
	"github.com/jimezsa/admitscrape/internal/ui"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	os.Exit(run())
}

func run() int {
	cli := cmd.NewCLI()
	applyEnvDefaults(cli)
	versionString := buildVersion()

	parser, err := kong.New(cli,
		kong.Name("admitscrape"),
		kong.Description("Polite crawler for graduate admissions survey results."),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"version": versionString},
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		fallbackUI := ui.New(os.Stdout, os.Stderr, ui.NormalizeColorMode(os.Getenv(config.EnvPrefix+"COLOR")), false)
		fallbackUI.Errorf("%v", err)
		return 1
	}

	colorMode := ui.NormalizeColorMode(cli.Color)
	userInterface := ui.New(os.Stdout, os.Stderr, colorMode, cli.JSON || cli.Plain)

	cfg, err := config.Load()
	if err != nil {
		userInterface.Errorf("config: %v", err)
		return 1
	}
	configDir, err := config.ConfigDir()
	if err != nil {
		userInterface.Errorf("%v", err)
		return 1
	}

	logFile := cli.LogFile
	if logFile == "" {
		logFile = cfg.LogFile
	}
	logger, closer := logging.New(logging.Options{Verbose: cli.Verbose, File: logFile})
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCtx := &cmd.Context{
		Ctx:        ctx,
		Out:        os.Stdout,
		Err:        os.Stderr,
		UI:         userInterface,
		Config:     cfg,
		ConfigDir:  configDir,
		Logger:     logger,
		Verbose:    cli.Verbose,
		JSONOutput: cli.JSON,
		PlainText:  cli.Plain,
		Version:    versionString,
		ColorMode:  colorMode,
	}

	if err := kctx.Run(runCtx); err != nil {
		userInterface.Errorf("%v", err)
		return 1
	}
	return 0
}

func buildVersion() string {
	if commit == "" && date == "" {
		return version
	}
	if commit == "" {
		return fmt.Sprintf("%s (%s)", version, date)
	}
	if date == "" {
		return fmt.Sprintf("%s (%s)", version, commit)
	}
	return fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

func applyEnvDefaults(cli *cmd.CLI) {
	if envBool(config.EnvPrefix + "JSON") {
		cli.JSON = true
	}
	if envBool(config.EnvPrefix + "PLAIN") {
		cli.Plain = true
	}
	if envBool(config.EnvPrefix + "VERBOSE") {
		cli.Verbose = true
	}
	if value := os.Getenv(config.EnvPrefix + "COLOR"); value != "" {
		cli.Color = value
	}
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
