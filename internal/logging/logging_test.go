package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "admitscrape.log")

	logger, closer := New(Options{File: path, Console: &console})
	logger.Info().Str("run_id", "abc").Msg("hello")
	logger.Debug().Msg("hidden")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if !strings.Contains(console.String(), `"run_id":"abc"`) {
		t.Fatalf("console missing entry: %s", console.String())
	}
	if strings.Contains(console.String(), "hidden") {
		t.Fatalf("debug entry written at info level")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"message":"hello"`) {
		t.Fatalf("log file missing entry: %s", data)
	}
}

func TestNewVerbose(t *testing.T) {
	var console bytes.Buffer
	logger, closer := New(Options{Verbose: true, Console: &console})
	defer closer.Close()

	logger.Debug().Msg("shown")
	if !strings.Contains(console.String(), "shown") {
		t.Fatalf("expected debug entry, got %s", console.String())
	}
}
