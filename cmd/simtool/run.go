package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"

	"portfolio-sim/internal/bootstrap"
	"portfolio-sim/internal/config"
	"portfolio-sim/internal/domain"
	"portfolio-sim/internal/ingestion"
	"portfolio-sim/internal/metrics"
	"portfolio-sim/internal/reporting"
	"portfolio-sim/internal/simulation"
)

// Output formats of the run command.
const (
	formatText     = "text"
	formatJSON     = "json"
	formatMarkdown = "markdown"
	formatCSV      = "csv"
)

type runCmd struct {
	strategy string
	start    string
	end      string
	format   string
	csvKind  string
	dataFile string
	persist  bool

	cash, buy, sell, buySlip, sellSlip, trade, monthly float64

	overrides config.StrategyConfig // set by collectOverrides
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "run the threshold trading simulation" }
func (*runCmd) Usage() string {
	return `simtool run [-strategy <name>] [-start YYYY-MM-DD] [-end YYYY-MM-DD] [-format text|json|markdown|csv] <SYMBOL>...

  Simulates each symbol with the selected strategy preset. Parameter flags
  override individual preset fields. Several symbols run concurrently.
  With -data the CSV file is imported for the single symbol before the run.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.strategy, "strategy", "default", "Strategy preset name")
	f.StringVar(&c.start, "start", "", "First simulated date (inclusive)")
	f.StringVar(&c.end, "end", "", "Last simulated date (inclusive)")
	f.StringVar(&c.format, "format", formatText, "Output format: text, json, markdown or csv")
	f.StringVar(&c.csvKind, "csv", "history", "CSV export with -format csv: history or trades")
	f.StringVar(&c.dataFile, "data", "", "Price CSV to import before running")
	f.BoolVar(&c.persist, "persist", false, "Store the run")

	f.Float64Var(&c.cash, "cash", 0, "Initial cash")
	f.Float64Var(&c.buy, "buy-threshold", 0, "Buy when the daily change exceeds this percent")
	f.Float64Var(&c.sell, "sell-threshold", 0, "Sell when the daily change is below this percent")
	f.Float64Var(&c.buySlip, "buy-slippage", 0, "Buy slippage in percent")
	f.Float64Var(&c.sellSlip, "sell-slippage", 0, "Sell slippage in percent")
	f.Float64Var(&c.trade, "trade-percent", 0, "Fraction of cash (buy) or shares (sell) per trade, in (0, 1]")
	f.Float64Var(&c.monthly, "monthly", 0, "Deposit on the first trading day of each month")
}

// collectOverrides records which parameter flags were set explicitly.
func (c *runCmd) collectOverrides(f *flag.FlagSet) {
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "cash":
			c.overrides.InitialCash = &c.cash
		case "buy-threshold":
			c.overrides.BuyThresholdPct = &c.buy
		case "sell-threshold":
			c.overrides.SellThresholdPct = &c.sell
		case "buy-slippage":
			c.overrides.BuySlippagePct = &c.buySlip
		case "sell-slippage":
			c.overrides.SellSlippagePct = &c.sellSlip
		case "trade-percent":
			c.overrides.TradePercent = &c.trade
		case "monthly":
			c.overrides.MonthlyInvestment = &c.monthly
		}
	})
}

func (c *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.validateFlags(f); err != nil {
		fail(err)
		f.Usage()
		return subcommands.ExitUsageError
	}
	c.collectOverrides(f)

	a, err := openApp(ctx)
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	defer a.close()

	simCfg, err := c.simulationConfig(a.cfg)
	if err != nil {
		fail(err)
		return subcommands.ExitUsageError
	}

	if c.dataFile != "" {
		im := ingestion.NewImporter(ingestion.ImporterOptions{
			Instruments: a.stores.Instruments,
			Bars:        a.stores.Bars,
			Logger:      a.logger,
		})
		if _, err := importFile(ctx, im, f.Arg(0), c.dataFile); err != nil {
			fail(fmt.Errorf("%s: %w", c.dataFile, err))
			return subcommands.ExitFailure
		}
	}

	publisher, err := bootstrap.NewPublisher(a.cfg.NATS, a.logger)
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	defer publisher.Close()

	runner := simulation.NewRunner(simulation.RunnerOptions{
		Instruments: a.stores.Instruments,
		Bars:        a.stores.Bars,
		Runs:        a.stores.Runs,
		Publisher:   publisher,
		Logger:      a.logger,
	})

	reqs := make([]simulation.RunRequest, 0, f.NArg())
	for _, symbol := range f.Args() {
		reqs = append(reqs, simulation.RunRequest{Symbol: symbol, Config: simCfg, Persist: c.persist})
	}

	results, err := runner.RunBatch(ctx, reqs, a.cfg.Workers)
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}

	status := subcommands.ExitSuccess
	for _, res := range results {
		if res.Err != nil {
			fail(fmt.Errorf("%s: %w", res.Request.Symbol, res.Err))
			status = subcommands.ExitFailure
			continue
		}
		if err := renderRun(os.Stdout, c.format, c.csvKind, a.cfg.Currency, res.Run); err != nil {
			fail(err)
			status = subcommands.ExitFailure
		}
	}
	return status
}

func (c *runCmd) validateFlags(f *flag.FlagSet) error {
	switch c.format {
	case formatText, formatJSON, formatMarkdown, formatCSV:
	default:
		return fmt.Errorf("unknown format %q", c.format)
	}
	if c.csvKind != "history" && c.csvKind != "trades" {
		return fmt.Errorf("unknown csv export %q", c.csvKind)
	}
	if f.NArg() == 0 {
		return errors.New("at least one symbol is required")
	}
	if c.dataFile != "" && f.NArg() != 1 {
		return errors.New("-data requires exactly one symbol")
	}
	return nil
}

// simulationConfig resolves the preset, applies flag overrides and the date range.
func (c *runCmd) simulationConfig(cfg *config.Config) (domain.SimulationConfig, error) {
	base, ok := cfg.Strategy(c.strategy)
	if !ok {
		return domain.SimulationConfig{}, fmt.Errorf("unknown strategy %q (available: %s)",
			c.strategy, strings.Join(cfg.StrategyNames(), ", "))
	}
	sc := c.overrides.Apply(base)

	var err error
	if c.start != "" {
		if sc.StartDate, err = domain.ParseDate(c.start); err != nil {
			return domain.SimulationConfig{}, err
		}
	}
	if c.end != "" {
		if sc.EndDate, err = domain.ParseDate(c.end); err != nil {
			return domain.SimulationConfig{}, err
		}
	}
	return sc, nil
}

// renderRun writes one run in the requested format.
func renderRun(w io.Writer, format, csvKind, currency string, run *domain.SimulationRun) error {
	summary := metrics.Summarize(&run.Result, run.Config)

	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Run     *domain.SimulationRun    `json:"run"`
			Summary metrics.FormattedSummary `json:"summary"`
		}{run, summary.Format(currency)})
	case formatMarkdown:
		_, err := io.WriteString(w, reporting.RenderMarkdown(run, summary, currency))
		return err
	case formatCSV:
		if csvKind == "trades" {
			return reporting.TradesCSV(w, run.Result.Trades)
		}
		return reporting.HistoryCSV(w, run.Result.History)
	default:
		_, err := io.WriteString(w, renderMarkdown(reporting.RenderMarkdown(run, summary, currency)))
		return err
	}
}
