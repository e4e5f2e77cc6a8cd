// Package ledger reads GnuCash SQLite books. The whole book is loaded into
// memory on open; the Book then serves as a read-only transaction and price
// source for the reporting engine.
package ledger

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"gnureport"
)

// postDateLayouts are the timestamp formats GnuCash has used for the
// post_date column across versions.
var postDateLayouts = []string{
	"2006-01-02 15:04:05",
	"20060102150405",
	"2006-01-02",
}

type priceKey struct {
	commodity string
	currency  string
}

// priceSeries is a chronologically sorted price history for one
// commodity/currency pair.
type priceSeries struct {
	days   []gnureport.Date
	values []decimal.Decimal
}

func (s *priceSeries) append(on gnureport.Date, v decimal.Decimal) {
	s.days = append(s.days, on)
	s.values = append(s.values, v)
}

func (s *priceSeries) sort() {
	sort.Sort(chronological{s})
}

type chronological struct{ *priceSeries }

func (s chronological) Len() int           { return len(s.days) }
func (s chronological) Less(i, j int) bool { return s.days[i].Before(s.days[j]) }
func (s chronological) Swap(i, j int) {
	s.days[i], s.days[j] = s.days[j], s.days[i]
	s.values[i], s.values[j] = s.values[j], s.values[i]
}

// asOf returns the value on a given day, or the most recent value before it.
func (s *priceSeries) asOf(day gnureport.Date) (decimal.Decimal, bool) {
	i := sort.Search(len(s.days), func(i int) bool { return s.days[i].After(day) })
	if i == 0 {
		return decimal.Decimal{}, false
	}
	return s.values[i-1], true
}

func (s *priceSeries) earliest() (decimal.Decimal, bool) {
	if len(s.days) == 0 {
		return decimal.Decimal{}, false
	}
	return s.values[0], true
}

// Book is a read-only GnuCash book. It implements
// [gnureport.TransactionSource] and [gnureport.PriceSource].
type Book struct {
	db           *sql.DB
	accounts     map[string]gnureport.AccountInfo // by full path
	transactions []gnureport.Transaction          // chronological
	prices       map[priceKey]*priceSeries
	currencies   map[string]bool // currency mnemonics declared in the book
}

// Open loads the GnuCash SQLite book at path into memory. The returned Book
// must be closed after all aggregators and report extraction complete.
func Open(path string) (*Book, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open book %s: %w", path, err)
	}
	b := &Book{
		db:         db,
		accounts:   make(map[string]gnureport.AccountInfo),
		prices:     make(map[priceKey]*priceSeries),
		currencies: make(map[string]bool),
	}
	if err := b.load(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

// Close releases the underlying database handle.
func (b *Book) Close() error { return b.db.Close() }

type rawAccount struct {
	guid      string
	name      string
	kind      string
	parent    string
	commodity string
}

func (b *Book) load() error {
	commodities, err := b.loadCommodities()
	if err != nil {
		return err
	}
	paths, kinds, accountCommodities, err := b.loadAccounts(commodities)
	if err != nil {
		return err
	}
	if err := b.loadTransactions(paths, kinds, accountCommodities); err != nil {
		return err
	}
	return b.loadPrices(commodities)
}

// loadCommodities returns guid to mnemonic, recording declared currencies.
func (b *Book) loadCommodities() (map[string]string, error) {
	rows, err := b.db.Query(`SELECT guid, namespace, mnemonic FROM commodities`)
	if err != nil {
		return nil, fmt.Errorf("reading commodities: %w", err)
	}
	defer rows.Close()

	commodities := make(map[string]string)
	for rows.Next() {
		var guid, namespace, mnemonic string
		if err := rows.Scan(&guid, &namespace, &mnemonic); err != nil {
			return nil, err
		}
		commodities[guid] = mnemonic
		if namespace == "CURRENCY" || namespace == "ISO4217" {
			b.currencies[mnemonic] = true
		}
	}
	return commodities, rows.Err()
}

// loadAccounts computes the full colon-delimited path of every account. The
// invisible ROOT account is excluded from paths.
func (b *Book) loadAccounts(commodities map[string]string) (paths, kinds, accountCommodities map[string]string, err error) {
	rows, err := b.db.Query(`SELECT guid, name, account_type, parent_guid, commodity_guid FROM accounts`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading accounts: %w", err)
	}
	defer rows.Close()

	raw := make(map[string]rawAccount)
	for rows.Next() {
		var a rawAccount
		var parent, commodity sql.NullString
		if err := rows.Scan(&a.guid, &a.name, &a.kind, &parent, &commodity); err != nil {
			return nil, nil, nil, err
		}
		a.parent = parent.String
		a.commodity = commodity.String
		raw[a.guid] = a
	}
	if err := rows.Err(); err != nil {
		return nil, nil, nil, err
	}

	paths = make(map[string]string, len(raw))       // guid -> full path
	kinds = make(map[string]string, len(raw))       // guid -> category
	accountCommodities = make(map[string]string, len(raw)) // guid -> commodity mnemonic
	for guid, a := range raw {
		if a.kind == "ROOT" || a.kind == "TEMPLATE" {
			continue
		}
		var segments []string
		for cur := a; ; {
			segments = append([]string{cur.name}, segments...)
			parent, ok := raw[cur.parent]
			if !ok || parent.kind == "ROOT" {
				break
			}
			cur = parent
		}
		path := strings.Join(segments, gnureport.PathSeparator)
		paths[guid] = path
		kinds[guid] = a.kind
		accountCommodities[guid] = commodities[a.commodity]
		b.accounts[path] = gnureport.AccountInfo{Path: path, Category: a.kind}
	}
	return paths, kinds, accountCommodities, nil
}

func (b *Book) loadTransactions(paths, kinds, accountCommodities map[string]string) error {
	rows, err := b.db.Query(`
		SELECT t.guid, t.post_date, s.account_guid,
		       s.value_num, s.value_denom, s.quantity_num, s.quantity_denom
		FROM splits s JOIN transactions t ON s.tx_guid = t.guid`)
	if err != nil {
		return fmt.Errorf("reading transactions: %w", err)
	}
	defer rows.Close()

	index := make(map[string]int) // tx guid -> position in b.transactions
	for rows.Next() {
		var txGUID, postDate, accountGUID string
		var valueNum, valueDenom, quantityNum, quantityDenom int64
		if err := rows.Scan(&txGUID, &postDate, &accountGUID, &valueNum, &valueDenom, &quantityNum, &quantityDenom); err != nil {
			return err
		}
		path, ok := paths[accountGUID]
		if !ok {
			continue // split on the ROOT or a template account
		}
		i, ok := index[txGUID]
		if !ok {
			posted, err := parsePostDate(postDate)
			if err != nil {
				return fmt.Errorf("transaction %s: %w", txGUID, err)
			}
			index[txGUID] = len(b.transactions)
			i = len(b.transactions)
			b.transactions = append(b.transactions, gnureport.Transaction{ID: txGUID, Posted: posted})
		}
		b.transactions[i].Splits = append(b.transactions[i].Splits, gnureport.Split{
			Account:   path,
			Category:  kinds[accountGUID],
			Value:     ratDecimal(valueNum, valueDenom),
			Quantity:  ratDecimal(quantityNum, quantityDenom),
			Commodity: accountCommodities[accountGUID],
		})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	sort.SliceStable(b.transactions, func(i, j int) bool {
		a, z := b.transactions[i], b.transactions[j]
		if a.Posted != z.Posted {
			return a.Posted.Before(z.Posted)
		}
		return a.ID < z.ID
	})
	return nil
}

func (b *Book) loadPrices(commodities map[string]string) error {
	rows, err := b.db.Query(`SELECT commodity_guid, currency_guid, date, value_num, value_denom FROM prices`)
	if err != nil {
		return fmt.Errorf("reading prices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var commodityGUID, currencyGUID, day string
		var num, denom int64
		if err := rows.Scan(&commodityGUID, &currencyGUID, &day, &num, &denom); err != nil {
			return err
		}
		on, err := parsePostDate(day)
		if err != nil {
			return fmt.Errorf("price for %s: %w", commodities[commodityGUID], err)
		}
		key := priceKey{commodity: commodities[commodityGUID], currency: commodities[currencyGUID]}
		series, ok := b.prices[key]
		if !ok {
			series = &priceSeries{}
			b.prices[key] = series
		}
		series.append(on, ratDecimal(num, denom))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, series := range b.prices {
		series.sort()
	}
	return nil
}

// Transactions returns the transactions posted in [from, to), chronological.
func (b *Book) Transactions(from, to gnureport.Date) ([]gnureport.Transaction, error) {
	var out []gnureport.Transaction
	for _, tx := range b.transactions {
		if tx.Posted.Before(from) {
			continue
		}
		if !tx.Posted.Before(to) {
			break
		}
		out = append(out, tx)
	}
	return out, nil
}

// Account resolves a full account path.
func (b *Book) Account(path string) (gnureport.AccountInfo, bool) {
	info, ok := b.accounts[path]
	return info, ok
}

// PriceAsOf returns the latest price of commodity in currency dated on or
// before the given day.
func (b *Book) PriceAsOf(commodity, currency string, on gnureport.Date) (decimal.Decimal, bool) {
	series, ok := b.prices[priceKey{commodity: commodity, currency: currency}]
	if !ok {
		return decimal.Decimal{}, false
	}
	return series.asOf(on)
}

// EarliestPrice returns the oldest price of commodity in currency.
func (b *Book) EarliestPrice(commodity, currency string) (decimal.Decimal, bool) {
	series, ok := b.prices[priceKey{commodity: commodity, currency: currency}]
	if !ok {
		return decimal.Decimal{}, false
	}
	return series.earliest()
}

// Earliest returns the posting date of the oldest transaction in the book.
func (b *Book) Earliest() (gnureport.Date, bool) {
	if len(b.transactions) == 0 {
		return gnureport.Date{}, false
	}
	return b.transactions[0].Posted, true
}

// HasCurrency reports whether the book declares the given currency.
func (b *Book) HasCurrency(mnemonic string) bool { return b.currencies[mnemonic] }

// TransactionCount returns the number of transactions in the book.
func (b *Book) TransactionCount() int { return len(b.transactions) }

// All returns every transaction in the book, chronological, for coverage
// auditing.
func (b *Book) All() []gnureport.Transaction { return b.transactions }

func parsePostDate(s string) (gnureport.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range postDateLayouts {
		if len(s) != len(layout) {
			continue
		}
		if t, err := time.Parse(layout, s); err == nil {
			return gnureport.NewDate(t.Date()), nil
		}
	}
	return gnureport.Date{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func ratDecimal(num, denom int64) decimal.Decimal {
	if denom == 0 {
		return decimal.Decimal{}
	}
	return decimal.NewFromInt(num).Div(decimal.NewFromInt(denom))
}
