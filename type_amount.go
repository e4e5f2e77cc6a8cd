package gnureport

import (
	"sort"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Amount is the capability shared by every value the account tree can
// accumulate: a zero value that is valid, key-wise (or plain) addition and
// subtraction, and a zero test. Cash and Holdings implement it.
type Amount[A any] interface {
	Add(A) A
	Sub(A) A
	IsZero() bool
}

// Cash is an exact monetary scalar. The zero value is zero cash.
type Cash struct {
	value decimal.Decimal
}

// C wraps a decimal into a Cash value.
func C(value decimal.Decimal) Cash { return Cash{value: value} }

// CashFromParts builds a Cash value from a rational numerator/denominator
// pair, the representation GnuCash stores amounts in.
func CashFromParts(num, denom int64) Cash {
	if denom == 0 {
		return Cash{}
	}
	return Cash{value: decimal.NewFromInt(num).Div(decimal.NewFromInt(denom))}
}

func (c Cash) Add(o Cash) Cash     { return Cash{value: c.value.Add(o.value)} }
func (c Cash) Sub(o Cash) Cash     { return Cash{value: c.value.Sub(o.value)} }
func (c Cash) Neg() Cash           { return Cash{value: c.value.Neg()} }
func (c Cash) IsZero() bool        { return c.value.IsZero() }
func (c Cash) IsNegative() bool    { return c.value.IsNegative() }
func (c Cash) Equal(o Cash) bool   { return c.value.Equal(o.value) }
func (c Cash) Decimal() decimal.Decimal { return c.value }

// String returns the plain decimal representation, the form written to CSV.
func (c Cash) String() string { return c.value.StringFixed(2) }

// Display formats the value with the symbol and digit grouping of the given
// ISO currency code.
func (c Cash) Display(currency string) string {
	// the money constructor is the only way to get a never-nil currency
	cur := *money.New(0, currency).Currency()
	shifted := c.value.Shift(int32(cur.Fraction))
	return cur.Formatter().Format(shifted.IntPart())
}

// Holdings is a per-commodity quantity map. The zero value is an empty
// holding; all operations treat a missing key as zero quantity.
type Holdings struct {
	units map[string]decimal.Decimal
}

// HoldingsOf returns a holding of a single commodity.
func HoldingsOf(commodity string, quantity decimal.Decimal) Holdings {
	return Holdings{units: map[string]decimal.Decimal{commodity: quantity}}
}

// Add merges two holdings key-wise over the union of their commodities.
func (h Holdings) Add(o Holdings) Holdings { return h.merge(o, false) }

// Sub subtracts o key-wise over the union of their commodities.
func (h Holdings) Sub(o Holdings) Holdings { return h.merge(o, true) }

func (h Holdings) merge(o Holdings, neg bool) Holdings {
	merged := make(map[string]decimal.Decimal, len(h.units)+len(o.units))
	for c, q := range h.units {
		merged[c] = q
	}
	for c, q := range o.units {
		if neg {
			q = q.Neg()
		}
		merged[c] = merged[c].Add(q)
	}
	return Holdings{units: merged}
}

// IsZero reports whether every commodity quantity is zero.
func (h Holdings) IsZero() bool {
	for _, q := range h.units {
		if !q.IsZero() {
			return false
		}
	}
	return true
}

// Quantity returns the quantity held of the given commodity.
func (h Holdings) Quantity(commodity string) decimal.Decimal {
	return h.units[commodity]
}

// Commodities returns the commodities present in the holding, sorted.
func (h Holdings) Commodities() []string {
	names := make([]string, 0, len(h.units))
	for c := range h.units {
		names = append(names, c)
	}
	sort.Strings(names)
	return names
}

// String formats the holding like "CAD 100.00, XEQT 5.5".
func (h Holdings) String() string {
	parts := make([]string, 0, len(h.units))
	for _, c := range h.Commodities() {
		parts = append(parts, c+" "+h.units[c].String())
	}
	return strings.Join(parts, ", ")
}
