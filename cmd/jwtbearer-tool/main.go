package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/effective-security/jwtbearer/cmd/jwtbearer-tool/cli"
	"github.com/effective-security/jwtbearer/internal/version"
	"github.com/effective-security/jwtbearer/x/ctl"

	// register KMS signer loaders
	_ "github.com/effective-security/jwtbearer/cryptoprov/awskmscrypto"
	_ "github.com/effective-security/jwtbearer/cryptoprov/gcpkmscrypto"
)

type app struct {
	cli.Cli

	Token     cli.TokenCmd     `cmd:"" help:"obtain access token"`
	Assertion cli.AssertionCmd `cmd:"" help:"print signed assertion without exchanging it"`
	Pubkey    cli.PubKeyCmd    `cmd:"" help:"print public key of the signer"`
}

func main() {
	realMain(os.Args, os.Stdout, os.Stderr, os.Exit)
}

func realMain(args []string, out io.Writer, errout io.Writer, exit func(int)) {
	cl := app{
		Cli: cli.Cli{},
	}
	cl.Cli.WithErrWriter(errout).
		WithWriter(out)

	parser, err := kong.New(&cl,
		kong.Name("jwtbearer-tool"),
		kong.Description("OAuth2 JWT Bearer grant client"),
		kong.Writers(out, errout),
		kong.Exit(exit),
		ctl.BoolPtrMapper,
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version.Current().String(),
		})
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args[1:])
	parser.FatalIfErrorf(err)

	if ctx != nil {
		if cl.Debug {
			// in DEBUG more print command line
			_, _ = fmt.Fprintf(ctx.Stdout, "#\n# %s\n#\n", strings.Join(args, " "))
		}
		err = ctx.Run(&cl.Cli)
		ctx.FatalIfErrorf(err)
	}
}
