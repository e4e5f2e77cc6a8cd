package gnureport

import (
	"github.com/shopspring/decimal"
)

// fakeBook is an in-memory TransactionSource and PriceSource for tests.
type fakeBook struct {
	accounts map[string]AccountInfo
	txs      []Transaction
	prices   map[string][]pricePoint // keyed commodity "/" currency, chronological
}

type pricePoint struct {
	on    Date
	value decimal.Decimal
}

func newFakeBook() *fakeBook {
	return &fakeBook{
		accounts: make(map[string]AccountInfo),
		prices:   make(map[string][]pricePoint),
	}
}

// account registers an account and all of its ancestors; ancestors default
// to the same category unless already registered.
func (f *fakeBook) account(path, category string) {
	for p := path; p != ""; p = parentPath(p) {
		if _, ok := f.accounts[p]; !ok {
			f.accounts[p] = AccountInfo{Path: p, Category: category}
		}
	}
}

func (f *fakeBook) tx(id string, posted Date, splits ...Split) {
	f.txs = append(f.txs, Transaction{ID: id, Posted: posted, Splits: splits})
}

func (f *fakeBook) price(commodity, currency string, on Date, value string) {
	key := commodity + "/" + currency
	f.prices[key] = append(f.prices[key], pricePoint{on: on, value: decimal.RequireFromString(value)})
}

func (f *fakeBook) Transactions(from, to Date) ([]Transaction, error) {
	var out []Transaction
	for _, tx := range f.txs {
		if !tx.Posted.Before(from) && tx.Posted.Before(to) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeBook) Account(path string) (AccountInfo, bool) {
	info, ok := f.accounts[path]
	return info, ok
}

func (f *fakeBook) PriceAsOf(commodity, currency string, on Date) (decimal.Decimal, bool) {
	var latest pricePoint
	found := false
	for _, p := range f.prices[commodity+"/"+currency] {
		if p.on.After(on) {
			continue
		}
		if !found || p.on.After(latest.on) {
			latest = p
			found = true
		}
	}
	return latest.value, found
}

func (f *fakeBook) EarliestPrice(commodity, currency string) (decimal.Decimal, bool) {
	var earliest pricePoint
	found := false
	for _, p := range f.prices[commodity+"/"+currency] {
		if !found || p.on.Before(earliest.on) {
			earliest = p
			found = true
		}
	}
	return earliest.value, found
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// expenseSplit is a shorthand for a split on an expense account.
func expenseSplit(path, value string) Split {
	return Split{Account: path, Category: "EXPENSE", Value: decimal.RequireFromString(value)}
}
