// Package cmd implements the gcr subcommands.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/google/subcommands"

	"gnureport"
	"gnureport/ledger"
)

// Register the subcommands.
func Register(c *subcommands.Commander) {
	c.Register(&reportCmd{}, "reports")
	c.Register(&treeCmd{}, "reports")
	c.Register(&rewriteQfxCmd{}, "tools")
}

var bookPath = flag.String("book", "", "Path to the GnuCash SQLite book (overrides the config file)")
var configPath = flag.String("config", "config.ini", "Path to the INI configuration file")

// LoadConfig is the central function to read the reporter configuration,
// falling back to the built-in defaults when no config file exists.
func LoadConfig() (*gnureport.Config, error) {
	cfg, err := gnureport.LoadConfig(*configPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("no %s found, using defaults", *configPath)
		return gnureport.DefaultConfig(), nil
	}
	return cfg, err
}

// OpenBook opens the GnuCash book named on the command line or in the
// configuration.
func OpenBook(cfg *gnureport.Config) (*ledger.Book, error) {
	path := *bookPath
	if path == "" {
		path = cfg.BookPath
	}
	if path == "" {
		return nil, fmt.Errorf("no input book provided, use -book or default_gnucash_book in %s", *configPath)
	}
	return ledger.Open(path)
}

// buildAggregator constructs the aggregator one config section describes.
func buildAggregator(book *ledger.Book, sec gnureport.SectionConfig, base string, start gnureport.Month, today gnureport.Date) (gnureport.Reporter, error) {
	var excluded []gnureport.TransactionFilter
	if len(sec.IgnoreCategories) > 0 {
		excluded = append(excluded, gnureport.CategoryIntersectionExclusion(sec.IgnoreCategories...))
	}
	if sec.Commodity {
		if !book.HasCurrency(base) {
			return nil, fmt.Errorf("book does not declare base currency %q", base)
		}
		valuer := &gnureport.Valuer{Base: base, Prices: book}
		return gnureport.NewCommodityAggregator(book, start, today, sec.Rule(), sec.Label, valuer, excluded...)
	}
	return gnureport.NewCashAggregator(book, start, today, sec.Rule(), sec.Label, excluded...)
}

// parseMonth reads a month flag like "2024-03".
func parseMonth(s string) (gnureport.Month, error) {
	for _, layout := range []string{"2006-01", "2006-1"} {
		if t, err := time.Parse(layout, s); err == nil {
			return gnureport.NewMonth(t.Year(), t.Month()), nil
		}
	}
	return gnureport.Month{}, fmt.Errorf("invalid month %q, want YYYY-MM", s)
}
