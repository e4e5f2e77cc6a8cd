package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"gnureport"
)

type reportCmd struct {
	start string
	xlsx  bool
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "generate the monthly summary report" }
func (*reportCmd) Usage() string {
	return `report [-start <YYYY-MM>] [-xlsx]

  Aggregates the book's transactions into a monthly summary CSV, one set of
  columns per configured section, written to the configured output folder as
  Summary-YYYY-MM-DD.csv. With -xlsx an Excel workbook is written as well.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.start, "start", "", "First report month (default: month of the earliest transaction)")
	f.BoolVar(&c.xlsx, "xlsx", false, "Also write an Excel workbook")
}

func (c *reportCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}

	book, err := OpenBook(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening book: %v\n", err)
		return subcommands.ExitFailure
	}
	defer book.Close()

	today := gnureport.Today()
	start, err := c.startMonth(book)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	var aggregators []gnureport.Reporter
	var tables []*gnureport.Table
	for _, sec := range cfg.Sections {
		agg, err := buildAggregator(book, sec, cfg.BaseCurrency, start, today)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error building %s aggregator: %v\n", sec.Label, err)
			return subcommands.ExitFailure
		}
		aggregators = append(aggregators, agg)

		table, err := agg.ReportData(start, today, sec.Groups, sec.RunningSum)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error extracting %s report: %v\n", sec.Label, err)
			return subcommands.ExitFailure
		}
		if sec.Negate {
			table.Abs()
		}
		tables = append(tables, table)
	}

	auditCoverage(book.All(), aggregators)

	report := gnureport.BuildReport(start, today, tables...)
	name := filepath.Join(cfg.OutputFolder, today.Format("Summary-2006-01-02"))
	if err := writeCSV(report, name+".csv"); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.xlsx {
		if err := writeXLSX(report, name+".xlsx"); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing workbook: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	report.WriteSummary(os.Stdout, cfg.BaseCurrency)
	fmt.Println("Report creation finished.")
	return subcommands.ExitSuccess
}

// startMonth resolves the first report month: the -start flag, or the month
// of the earliest transaction in the book.
func (c *reportCmd) startMonth(book interface {
	Earliest() (gnureport.Date, bool)
}) (gnureport.Month, error) {
	if c.start != "" {
		return parseMonth(c.start)
	}
	earliest, ok := book.Earliest()
	if !ok {
		return gnureport.Month{}, fmt.Errorf("book has no transactions")
	}
	fmt.Printf("Earliest recorded transaction is on %s\n", earliest)
	return gnureport.MonthOf(earliest), nil
}

// auditCoverage warns about transactions no aggregator claimed, a
// consistency check that every transaction shows up in some report section.
func auditCoverage(txs []gnureport.Transaction, aggregators []gnureport.Reporter) {
	unclaimed := 0
	for _, tx := range txs {
		claimed := false
		for _, agg := range aggregators {
			if agg.Handled(tx.ID) {
				claimed = true
				break
			}
		}
		if !claimed {
			unclaimed++
		}
	}
	if unclaimed > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d transactions were not claimed by any report section\n", unclaimed)
	}
}

func writeCSV(report *gnureport.Report, path string) error {
	fd, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteCSV(fd); err != nil {
		fd.Close()
		return err
	}
	return fd.Close()
}

func writeXLSX(report *gnureport.Report, path string) error {
	buf, err := report.WriteXLSX()
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o644)
}
