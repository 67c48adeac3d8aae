package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"portfolio-sim/internal/ingestion"
)

type removeCmd struct{}

func (*removeCmd) Name() string     { return "remove" }
func (*removeCmd) Synopsis() string { return "remove instruments with their prices and stored runs" }
func (*removeCmd) Usage() string {
	return `simtool remove <SYMBOL>...

  Deletes each instrument together with all of its price bars and stored
  simulation runs. Stops at the first symbol that cannot be removed.
`
}

func (*removeCmd) SetFlags(*flag.FlagSet) {}

func (*removeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx)
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	defer a.close()

	rm := ingestion.NewRemover(ingestion.RemoverOptions{
		Instruments: a.stores.Instruments,
		Bars:        a.stores.Bars,
		Runs:        a.stores.Runs,
		Logger:      a.logger,
	})

	if err := removeSymbols(ctx, rm, os.Stdout, f.Args()); err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func removeSymbols(ctx context.Context, rm *ingestion.Remover, w io.Writer, symbols []string) error {
	for _, symbol := range symbols {
		res, err := rm.Remove(ctx, symbol)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: removed with %d bars and %d runs\n",
			res.Instrument.Symbol, res.BarsDeleted, res.RunsDeleted)
	}
	return nil
}
