package gnureport

import "github.com/shopspring/decimal"

// PriceSource is the read-only price table a Valuer looks prices up in.
// Prices are keyed by the commodity being priced and the currency the quote
// is expressed in.
type PriceSource interface {
	// PriceAsOf returns the latest price for commodity quoted in currency
	// dated on or before the given day.
	PriceAsOf(commodity, currency string, on Date) (decimal.Decimal, bool)
	// EarliestPrice returns the oldest price for commodity quoted in
	// currency, used for commodities first priced after the reporting
	// range already started.
	EarliestPrice(commodity, currency string) (decimal.Decimal, bool)
}

// Valuer converts commodity quantities into a base currency using the price
// in effect at the end of each reporting month.
type Valuer struct {
	Base   string // base currency mnemonic, e.g. "CAD"
	Prices PriceSource
}

// Convert values a commodity quantity in the base currency as of the end of
// the given month: the latest price dated on or before the month's last day,
// or the earliest available price when the commodity was first priced later.
// A commodity with no base-currency price at all is a MissingPriceError.
func (v *Valuer) Convert(quantity decimal.Decimal, commodity string, m Month) (Cash, error) {
	if quantity.IsZero() {
		// nothing held, no price needed
		return Cash{}, nil
	}
	if commodity == v.Base {
		return C(quantity), nil
	}

	price, ok := v.Prices.PriceAsOf(commodity, v.Base, m.End())
	if !ok {
		price, ok = v.Prices.EarliestPrice(commodity, v.Base)
	}
	if !ok {
		return Cash{}, &MissingPriceError{Commodity: commodity, Currency: v.Base}
	}
	return C(quantity.Mul(price)), nil
}

// Value converts a whole holding into base currency, summing the valuation
// of each commodity it contains.
func (v *Valuer) Value(h Holdings, m Month) (Cash, error) {
	var total Cash
	for _, commodity := range h.Commodities() {
		cash, err := v.Convert(h.Quantity(commodity), commodity, m)
		if err != nil {
			return Cash{}, err
		}
		total = total.Add(cash)
	}
	return total, nil
}
