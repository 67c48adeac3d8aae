// Command simtool imports daily prices and runs threshold trading simulations from the terminal.
//
// Usage:
//
//	simtool [-config config.yaml] <command> [flags]
//
// Commands: import, instruments, remove, run, migrate.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
)

var configPath = flag.String("config", "", "Path to the YAML configuration file")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&importCmd{}, "data")
	commander.Register(&instrumentsCmd{}, "data")
	commander.Register(&removeCmd{}, "data")
	commander.Register(&runCmd{}, "simulation")
	commander.Register(&migrateCmd{}, "admin")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}
