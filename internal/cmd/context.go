package cmd

import (
	"context"
	"io"

	"github.com/jimezsa/admitscrape/internal/config"
	"github.com/jimezsa/admitscrape/internal/ui"
	"github.com/rs/zerolog"
)

type Context struct {
	// Ctx is cancelled on SIGINT/SIGTERM.
	Ctx        context.Context
	Out        io.Writer
	Err        io.Writer
	UI         *ui.UI
	Config     config.Config
	ConfigDir  string
	Logger     zerolog.Logger
	Verbose    bool
	JSONOutput bool
	PlainText  bool
	Version    string
	ColorMode  ui.ColorMode
}

func (c *Context) RunContext() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}
