// steeze-commandd hosts the components declared in a manifest, serves their
// commands over HTTP, and runs the manifest's Lua scripts against them.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joeydtaylor/steeze-command/pkg/serverfx"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var manifestPath, listen, demo string

	flagSet := pflag.NewFlagSet("steeze-commandd", pflag.ContinueOnError)
	flagSet.StringVar(&manifestPath, "manifest", "", "manifest path (default $COMMAND_MANIFEST or manifest.toml)")
	flagSet.StringVar(&listen, "listen", "", "listen address (default $SERVER_LISTEN_ADDRESS or :4000)")
	flagSet.StringVar(&demo, "demo", "", "install the demo counter commands on this component")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	fx.New(serverfx.Module(options(manifestPath, listen, demo)...)).Run()
	return nil
}

func options(manifestPath, listen, demo string) []serverfx.Option {
	opts := []serverfx.Option{
		serverfx.WithService("steeze-commandd"),
		serverfx.WithManifest(manifestPath),
		serverfx.WithListen(listen),
	}
	if demo != "" {
		opts = append(opts, serverfx.WithCommands(demo, installCounter))
	}
	return opts
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "usage: steeze-commandd [flags]\n\n")
	flagSet.PrintDefaults()
}
