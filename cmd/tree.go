package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"gnureport"
)

type treeCmd struct {
	section string
	month   string
	start   string
}

func (*treeCmd) Name() string     { return "tree" }
func (*treeCmd) Synopsis() string { return "print the account tree of one report section" }
func (*treeCmd) Usage() string {
	return `tree -section <name> [-month <YYYY-MM>] [-start <YYYY-MM>]

  Prints the accounts managed by one configured section, indented by depth,
  with either the accumulated total for one month or over the whole range.
`
}

func (c *treeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.section, "section", "", "Config section to print (required)")
	f.StringVar(&c.month, "month", "", "Print sums for this month only")
	f.StringVar(&c.start, "start", "", "First month to scan (default: month of the earliest transaction)")
}

func (c *treeCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.section == "" {
		fmt.Fprintln(os.Stderr, "Error: -section is required.")
		return subcommands.ExitUsageError
	}

	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}

	var section *gnureport.SectionConfig
	for i := range cfg.Sections {
		if strings.EqualFold(cfg.Sections[i].Label, c.section) {
			section = &cfg.Sections[i]
			break
		}
	}
	if section == nil {
		fmt.Fprintf(os.Stderr, "Error: no config section named %q\n", c.section)
		return subcommands.ExitUsageError
	}

	var month *gnureport.Month
	if c.month != "" {
		m, err := parseMonth(c.month)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
		month = &m
	}

	book, err := OpenBook(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening book: %v\n", err)
		return subcommands.ExitFailure
	}
	defer book.Close()

	today := gnureport.Today()
	var start gnureport.Month
	if c.start != "" {
		start, err = parseMonth(c.start)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
	} else {
		earliest, ok := book.Earliest()
		if !ok {
			fmt.Fprintln(os.Stderr, "Error: book has no transactions")
			return subcommands.ExitFailure
		}
		start = gnureport.MonthOf(earliest)
	}

	agg, err := buildAggregator(book, *section, cfg.BaseCurrency, start, today)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building %s aggregator: %v\n", section.Label, err)
		return subcommands.ExitFailure
	}
	agg.WriteTree(os.Stdout, month)
	return subcommands.ExitSuccess
}
