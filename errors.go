package gnureport

import (
	"fmt"
	"strings"
)

// AmbiguousRootError reports that an account tree has more than one account
// at its minimal depth, so no single root can be determined. This is a
// configuration or data inconsistency and aborts report generation.
type AmbiguousRootError struct {
	Paths []string
}

func (e *AmbiguousRootError) Error() string {
	return fmt.Sprintf("ambiguous tree root, %d accounts at minimal depth: %s",
		len(e.Paths), strings.Join(e.Paths, ", "))
}

// MissingPriceError reports that a commodity has no price quoted in the base
// currency at all, so valuation cannot proceed.
type MissingPriceError struct {
	Commodity string
	Currency  string
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("no price for commodity %q in currency %q", e.Commodity, e.Currency)
}

// MissingAccountColumnError reports that a report group references an
// account path never observed in the ledger for the configured date range,
// which usually means a typo in the configuration.
type MissingAccountColumnError struct {
	Path string
}

func (e *MissingAccountColumnError) Error() string {
	return fmt.Sprintf("report column references unknown account %q", e.Path)
}
