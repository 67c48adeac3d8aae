package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"portfolio-sim/internal/bootstrap"
	"portfolio-sim/internal/ingestion"
)

type importCmd struct {
	symbol string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import daily prices from CSV files" }
func (*importCmd) Usage() string {
	return `simtool import -symbol <SYMBOL> <file.csv>...

  Imports Date,Open,High,Low,Close,Volume rows for one symbol, creating the
  instrument if needed. Use "-" to read from stdin. Existing bars for the same
  dates are replaced.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", "", "Ticker symbol the prices belong to")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.symbol == "" || f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx)
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	defer a.close()

	if a.stores.Backend == bootstrap.BackendMemory {
		a.logger.Warn("no postgres_dsn configured, imported bars are discarded on exit")
	}

	im := ingestion.NewImporter(ingestion.ImporterOptions{
		Instruments: a.stores.Instruments,
		Bars:        a.stores.Bars,
		Logger:      a.logger,
	})

	for _, name := range f.Args() {
		res, err := importFile(ctx, im, c.symbol, name)
		if err != nil {
			fail(fmt.Errorf("%s: %w", name, err))
			return subcommands.ExitFailure
		}
		fmt.Printf("%s: %d bars stored for %s (%d duplicates skipped)\n",
			name, res.BarsStored, res.Instrument.Symbol, res.DuplicatesSkipped)
	}
	return subcommands.ExitSuccess
}

func importFile(ctx context.Context, im *ingestion.Importer, symbol, name string) (*ingestion.ImportResult, error) {
	var r io.Reader = os.Stdin
	if name != "-" {
		file, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		r = file
	}
	return im.Import(ctx, symbol, r)
}
