package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"

	"portfolio-sim/internal/domain"
)

type instrumentsCmd struct{}

func (*instrumentsCmd) Name() string     { return "instruments" }
func (*instrumentsCmd) Synopsis() string { return "list instruments and their price coverage" }
func (*instrumentsCmd) Usage() string {
	return `simtool instruments

  Lists every stored instrument with its number of bars and date coverage.
`
}

func (*instrumentsCmd) SetFlags(*flag.FlagSet) {}

func (*instrumentsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	defer a.close()

	instruments, err := a.stores.Instruments.List(ctx)
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}

	var sb strings.Builder
	sb.WriteString("# Instruments\n\n")
	if len(instruments) == 0 {
		sb.WriteString("No instruments stored.\n")
		printMarkdown(sb.String())
		return subcommands.ExitSuccess
	}

	sb.WriteString("| Symbol | Bars | First | Last |\n")
	sb.WriteString("|--------|------|-------|------|\n")
	for _, inst := range instruments {
		bars, err := a.stores.Bars.GetAll(ctx, inst.ID)
		if err != nil {
			fail(err)
			return subcommands.ExitFailure
		}
		first, last := "-", "-"
		if len(bars) > 0 {
			first = bars[0].Date.Format(domain.DateFormat)
			last = bars[len(bars)-1].Date.Format(domain.DateFormat)
		}
		sb.WriteString(fmt.Sprintf("| %s | %d | %s | %s |\n", inst.Symbol, len(bars), first, last))
	}
	printMarkdown(sb.String())
	return subcommands.ExitSuccess
}
