package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/jwtbearer/credentials"
	"github.com/effective-security/jwtbearer/grant"
	"github.com/effective-security/jwtbearer/x/ctl"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/jwtbearer", "cli")

// Cli provides CLI context to run commands
type Cli struct {
	Cfg      string          `help:"Location of the client config file, GOOGLE_APPLICATION_CREDENTIALS is used if not set" type:"path"`
	Debug    bool            `short:"D" help:"Enable debug mode"`
	LogLevel string          `short:"l" help:"Set the logging level (debug|info|warn|error)" default:"error"`
	Version  ctl.VersionFlag `name:"version" help:"Print version information and quit"`

	// Output is the destination for all output from the command, typically set to os.Stdout
	output io.Writer
	// ErrOutput is the destinaton for errors.
	// If not set, errors will be written to os.StdError
	errOutput io.Writer

	ctx    context.Context
	client *grant.Client
}

// Context for requests
func (c *Cli) Context() context.Context {
	if c.ctx == nil {
		c.ctx = context.Background()
	}
	return c.ctx
}

// Writer returns a writer for control output
func (c *Cli) Writer() io.Writer {
	if c.output != nil {
		return c.output
	}
	return os.Stdout
}

// WithWriter allows to specify a custom writer
func (c *Cli) WithWriter(out io.Writer) *Cli {
	c.output = out
	return c
}

// ErrWriter returns a writer for control output
func (c *Cli) ErrWriter() io.Writer {
	if c.errOutput != nil {
		return c.errOutput
	}
	return os.Stderr
}

// WithErrWriter allows to specify a custom error writer
func (c *Cli) WithErrWriter(out io.Writer) *Cli {
	c.errOutput = out
	return c
}

// AfterApply hook sets the log level
func (c *Cli) AfterApply(app *kong.Kong, vars kong.Vars) error {
	if c.Debug {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		val := strings.TrimLeft(c.LogLevel, "=")
		l, err := xlog.ParseLevel(strings.ToUpper(val))
		if err != nil {
			return errors.WithStack(err)
		}
		xlog.SetGlobalLogLevel(l)
	}

	return nil
}

// WriteJSON prints response to out
func (c *Cli) WriteJSON(value any) error {
	return ctl.WriteJSON(c.Writer(), value)
}

// Client returns grant.Client from the config file
func (c *Cli) Client() (*grant.Client, error) {
	if c.client != nil {
		return c.client, nil
	}

	cfg := &credentials.Config{}
	if c.Cfg != "" {
		var err error
		cfg, err = credentials.LoadConfig(c.Cfg)
		if err != nil {
			return nil, err
		}
	}

	client, err := cfg.NewClient(c.Context())
	if err != nil {
		return nil, errors.WithMessage(err, "unable to create token client")
	}

	logger.KV(xlog.DEBUG, "cfg", c.Cfg, "identity", client.Credentials().Identity())
	c.client = client
	return client, nil
}
