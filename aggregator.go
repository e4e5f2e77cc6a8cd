package gnureport

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Split is one leg of a double-entry transaction as seen by the aggregation
// engine. Value is the monetary amount in the book currency; Quantity and
// Commodity carry the position change for commodity accounts.
type Split struct {
	Account   string // full colon-delimited account path
	Category  string // account category, e.g. "EXPENSE", "BANK"
	Value     decimal.Decimal
	Quantity  decimal.Decimal
	Commodity string
}

// Transaction is a posted transaction with its splits.
type Transaction struct {
	ID     string
	Posted Date
	Splits []Split
}

// AccountInfo describes one ledger account, used to decide membership of
// ancestor accounts while building the tree.
type AccountInfo struct {
	Path     string
	Category string
}

// TransactionSource is the read-only ledger collaborator an aggregator scans.
type TransactionSource interface {
	// Transactions returns the transactions posted in [from, to), in
	// chronological order.
	Transactions(from, to Date) ([]Transaction, error)
	// Account resolves a full account path, reporting false for paths the
	// ledger does not know.
	Account(path string) (AccountInfo, bool)
}

// Rule decides which accounts an aggregator manages: by account category
// when Type is set, otherwise by path prefix.
type Rule struct {
	Type string
	Root string
}

// Managed reports whether the account belongs to the managed subtree.
func (r Rule) Managed(path, category string) bool {
	if r.Type != "" {
		return category == r.Type
	}
	return strings.HasPrefix(path, r.Root)
}

// TransactionFilter reports whether a whole transaction must be excluded
// from an aggregation pass.
type TransactionFilter func(tx Transaction) bool

// CategoryIntersectionExclusion excludes a transaction when any of its
// splits touches one of the given account categories. This skips internal
// transfers already handled elsewhere, e.g. a bank or credit-card leg.
func CategoryIntersectionExclusion(categories ...string) TransactionFilter {
	set := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		set[c] = struct{}{}
	}
	return func(tx Transaction) bool {
		for _, s := range tx.Splits {
			if _, ok := set[s.Category]; ok {
				return true
			}
		}
		return false
	}
}

// ExactCategorySetExclusion excludes a transaction only when the multiset of
// its split categories equals exactly the given categories. Stricter than
// CategoryIntersectionExclusion; both exist because ledgers use both rules
// for different transfer shapes.
func ExactCategorySetExclusion(categories ...string) TransactionFilter {
	want := append([]string(nil), categories...)
	sort.Strings(want)
	return func(tx Transaction) bool {
		if len(tx.Splits) != len(want) {
			return false
		}
		got := make([]string, len(tx.Splits))
		for i, s := range tx.Splits {
			got[i] = s.Category
		}
		sort.Strings(got)
		for i := range got {
			if got[i] != want[i] {
				return false
			}
		}
		return true
	}
}

// Group is an ordered list of account paths reported as one column. Its
// displayed name joins the last path segment of each member with "/".
type Group []string

// Name returns the column name for the group.
func (g Group) Name() string {
	segments := make([]string, len(g))
	for i, path := range g {
		segments[i] = lastSegment(path)
	}
	return strings.Join(segments, "/")
}

// Row maps column names to values for one report month.
type Row map[string]Cash

// Table is the columnar result of one aggregator: ordered headers and one
// row per month of the reporting range.
type Table struct {
	Label   string
	Headers []string
	Rows    map[Month]Row
}

// Abs flips every negative cell to its absolute value. Income is recorded
// negative in a double-entry ledger; reports show it positive.
func (t *Table) Abs() {
	for _, row := range t.Rows {
		for name, v := range row {
			if v.IsNegative() {
				row[name] = v.Neg()
			}
		}
	}
}

// Aggregator routes the qualifying splits of a date-bounded transaction
// stream into one account tree and derives columnar report data from it.
// The scan happens once, at construction; months are processed strictly in
// ascending order.
type Aggregator[A Amount[A]] struct {
	label    string
	rule     Rule
	source   TransactionSource
	excluded []TransactionFilter
	amount   func(Split) A

	tree    *Tree[A]
	handled map[string]struct{}
}

func newAggregator[A Amount[A]](source TransactionSource, start Month, today Date, rule Rule, label string, amount func(Split) A, excluded []TransactionFilter) (*Aggregator[A], error) {
	g := &Aggregator[A]{
		label:    label,
		rule:     rule,
		source:   source,
		excluded: excluded,
		amount:   amount,
		tree:     NewTree[A](),
		handled:  make(map[string]struct{}),
	}
	if err := g.scan(start, today); err != nil {
		return nil, err
	}
	return g, nil
}

// scan performs the single bounded ingestion pass, one month at a time from
// start through the month containing today.
func (g *Aggregator[A]) scan(start Month, today Date) error {
	for m := start; !m.InFuture(today); m = m.Next() {
		txs, err := g.source.Transactions(m.Start(), m.Next().Start())
		if err != nil {
			return fmt.Errorf("fetching transactions for %s: %w", m, err)
		}
		for _, tx := range txs {
			for _, s := range g.managedSplits(tx) {
				g.tree.Accumulate(s.Account, m, g.amount(s), g.managedPath)
				g.handled[tx.ID] = struct{}{}
			}
		}
	}
	return nil
}

// managedSplits selects the splits of tx that belong to this aggregator,
// or nothing when an exclusion filter claims the whole transaction.
func (g *Aggregator[A]) managedSplits(tx Transaction) []Split {
	for _, exclude := range g.excluded {
		if exclude(tx) {
			return nil
		}
	}
	var splits []Split
	for _, s := range tx.Splits {
		if g.rule.Managed(s.Account, s.Category) {
			splits = append(splits, s)
		}
	}
	return splits
}

// managedPath adapts the membership rule to bare ancestor paths during tree
// construction, resolving each path's category through the ledger.
func (g *Aggregator[A]) managedPath(path string) bool {
	info, ok := g.source.Account(path)
	if !ok {
		return false
	}
	return g.rule.Managed(info.Path, info.Category)
}

// Label returns the human-readable label of the aggregator.
func (g *Aggregator[A]) Label() string { return g.label }

// Tree exposes the account tree, for tree printing.
func (g *Aggregator[A]) Tree() *Tree[A] { return g.tree }

// Handled reports whether the transaction with the given id contributed at
// least one split to this aggregator. Callers use it to audit that every
// ledger transaction is claimed by some aggregator.
func (g *Aggregator[A]) Handled(id string) bool {
	_, ok := g.handled[id]
	return ok
}

// HandledCount returns the number of transactions claimed.
func (g *Aggregator[A]) HandledCount() int { return len(g.handled) }

// HeaderNames derives the column-name sequence of a report without running
// the extraction pass: the total column, one column per group, and the
// residual column when groups are present.
func (g *Aggregator[A]) HeaderNames(groups []Group) []string {
	headers := []string{g.totalLabel(groups)}
	if len(groups) > 0 {
		for _, grp := range groups {
			headers = append(headers, grp.Name())
		}
		headers = append(headers, g.otherLabel())
	}
	return headers
}

func (g *Aggregator[A]) totalLabel(groups []Group) string {
	if len(groups) > 0 {
		return "Total " + g.label
	}
	return g.label
}

func (g *Aggregator[A]) otherLabel() string { return "Other " + g.label }

// rows builds the per-month report values in the accumulated amount type.
// Months are emitted chronologically so that the running-sum lookup of the
// previous month always finds an already-computed row.
func (g *Aggregator[A]) rows(start Month, today Date, groups []Group, runningSum bool) (map[Month]map[string]A, error) {
	for _, grp := range groups {
		for _, path := range grp {
			if g.tree.Node(path) == nil {
				return nil, &MissingAccountColumnError{Path: path}
			}
		}
	}

	root, err := g.tree.Root()
	if err != nil {
		return nil, err
	}

	totalLabel := g.totalLabel(groups)
	otherLabel := g.otherLabel()
	rows := make(map[Month]map[string]A)

	for m := start; !m.InFuture(today); m = m.Next() {
		var total A
		if root != nil {
			total = root.Sum(m)
		}
		row := map[string]A{totalLabel: total}
		rows[m] = row
		if prev, ok := rows[m.Previous()]; runningSum && ok {
			row[totalLabel] = row[totalLabel].Add(prev[totalLabel])
		}

		if len(groups) == 0 {
			continue
		}
		other := total
		for _, grp := range groups {
			var sum A
			for _, path := range grp {
				// the group's own node value, not its subtree
				sum = sum.Add(g.tree.Node(path).Sum(m))
			}
			other = other.Sub(sum)
			row[grp.Name()] = sum
			if prev, ok := rows[m.Previous()]; runningSum && ok {
				row[grp.Name()] = row[grp.Name()].Add(prev[grp.Name()])
			}
		}
		row[otherLabel] = other
		if prev, ok := rows[m.Previous()]; runningSum && ok {
			row[otherLabel] = row[otherLabel].Add(prev[otherLabel])
		}
	}

	return rows, nil
}

// dropZeroOther removes the residual column when it is zero for every month,
// meaning the groups already account for the whole total. It reports whether
// the column was dropped.
func dropZeroOther[A Amount[A]](rows map[Month]map[string]A, otherLabel string) bool {
	for _, row := range rows {
		if v, ok := row[otherLabel]; ok && !v.IsZero() {
			return false
		}
	}
	dropped := false
	for _, row := range rows {
		if _, ok := row[otherLabel]; ok {
			delete(row, otherLabel)
			dropped = true
		}
	}
	return dropped
}

func (g *Aggregator[A]) headersFor(groups []Group, otherDropped bool) []string {
	headers := g.HeaderNames(groups)
	if otherDropped && len(groups) > 0 {
		headers = headers[:len(headers)-1]
	}
	return headers
}

// WriteTree prints the account tree indented by depth, one line per
// account, with either the sum for one month or the sum over all months.
func (g *Aggregator[A]) WriteTree(w io.Writer, m *Month) {
	g.tree.Walk(func(n *Node[A]) {
		var total A
		if m != nil {
			total = n.Sum(*m)
		} else {
			for _, v := range n.Sums {
				total = total.Add(v)
			}
		}
		indent := strings.Repeat("    ", pathDepth(n.Path))
		fmt.Fprintf(w, "%s%s: %v\n", indent, lastSegment(n.Path), total)
	})
}

// Reporter is the caller-facing surface shared by both aggregator variants.
type Reporter interface {
	Label() string
	HeaderNames(groups []Group) []string
	Handled(id string) bool
	ReportData(start Month, today Date, groups []Group, runningSum bool) (*Table, error)
	WriteTree(w io.Writer, m *Month)
}

// CashAggregator aggregates the monetary value of splits.
type CashAggregator struct {
	*Aggregator[Cash]
}

// NewCashAggregator scans the source once, from the start month through the
// month containing today, accumulating the value of every qualifying split.
func NewCashAggregator(source TransactionSource, start Month, today Date, rule Rule, label string, excluded ...TransactionFilter) (*CashAggregator, error) {
	g, err := newAggregator(source, start, today, rule, label, func(s Split) Cash { return C(s.Value) }, excluded)
	if err != nil {
		return nil, err
	}
	return &CashAggregator{Aggregator: g}, nil
}

// ReportData extracts the monthly report table for [start, today].
func (g *CashAggregator) ReportData(start Month, today Date, groups []Group, runningSum bool) (*Table, error) {
	rows, err := g.rows(start, today, groups, runningSum)
	if err != nil {
		return nil, err
	}
	dropped := false
	if len(groups) > 0 {
		dropped = dropZeroOther(rows, g.otherLabel())
	}
	table := &Table{Label: g.label, Headers: g.headersFor(groups, dropped), Rows: make(map[Month]Row, len(rows))}
	for m, row := range rows {
		table.Rows[m] = Row(row)
	}
	return table, nil
}

// CommodityAggregator aggregates commodity quantities and converts them to
// base currency at extraction time.
type CommodityAggregator struct {
	*Aggregator[Holdings]
	valuer *Valuer
}

// NewCommodityAggregator scans the source once, accumulating the commodity
// quantity of every qualifying split. The valuer converts accumulated
// holdings into base currency during report extraction.
func NewCommodityAggregator(source TransactionSource, start Month, today Date, rule Rule, label string, valuer *Valuer, excluded ...TransactionFilter) (*CommodityAggregator, error) {
	g, err := newAggregator(source, start, today, rule, label, func(s Split) Holdings { return HoldingsOf(s.Commodity, s.Quantity) }, excluded)
	if err != nil {
		return nil, err
	}
	return &CommodityAggregator{Aggregator: g, valuer: valuer}, nil
}

// ReportData extracts the monthly report table for [start, today], tracking
// quantities throughout and valuing them in base currency only at the end.
func (g *CommodityAggregator) ReportData(start Month, today Date, groups []Group, runningSum bool) (*Table, error) {
	rows, err := g.rows(start, today, groups, runningSum)
	if err != nil {
		return nil, err
	}
	dropped := false
	if len(groups) > 0 {
		dropped = dropZeroOther(rows, g.otherLabel())
	}
	table := &Table{Label: g.label, Headers: g.headersFor(groups, dropped), Rows: make(map[Month]Row, len(rows))}
	for m, row := range rows {
		converted := make(Row, len(row))
		for name, holding := range row {
			cash, err := g.valuer.Value(holding, m)
			if err != nil {
				return nil, fmt.Errorf("valuing %q for %s: %w", name, m, err)
			}
			converted[name] = cash
		}
		table.Rows[m] = converted
	}
	return table, nil
}
