package gnureport

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCashAggregatorSingleExpense(t *testing.T) {
	// one 50.00 expense posted March 2024, range January through March
	book := newFakeBook()
	book.account("Expenses:Food", "EXPENSE")
	book.account("Assets:Checking", "BANK")
	book.tx("t1", NewDate(2024, time.March, 5),
		expenseSplit("Expenses:Food", "50.00"),
		Split{Account: "Assets:Checking", Category: "BANK", Value: decimal.RequireFromString("-50.00")},
	)

	start := NewMonth(2024, time.January)
	today := NewDate(2024, time.March, 20)
	agg, err := NewCashAggregator(book, start, today, Rule{Type: "EXPENSE"}, "Expenses")
	if err != nil {
		t.Fatalf("NewCashAggregator() error = %v", err)
	}

	if !agg.Handled("t1") {
		t.Errorf("transaction t1 not recorded as handled")
	}
	if food := agg.Tree().Node("Expenses:Food"); food == nil || food.Parent != agg.Tree().Node("Expenses") {
		t.Errorf("Expenses:Food not linked to Expenses")
	}

	table, err := agg.ReportData(start, today, nil, false)
	if err != nil {
		t.Fatalf("ReportData() error = %v", err)
	}
	if want := []string{"Expenses"}; !reflect.DeepEqual(table.Headers, want) {
		t.Errorf("Headers = %v, want %v", table.Headers, want)
	}
	wantRows := map[Month]string{
		NewMonth(2024, time.January):  "0.00",
		NewMonth(2024, time.February): "0.00",
		NewMonth(2024, time.March):    "50.00",
	}
	if len(table.Rows) != len(wantRows) {
		t.Fatalf("got %d rows, want %d", len(table.Rows), len(wantRows))
	}
	for m, want := range wantRows {
		if got := table.Rows[m]["Expenses"].String(); got != want {
			t.Errorf("%v total = %s, want %s", m, got, want)
		}
	}
}

func TestAggregatorSkipsFutureAndOutOfRange(t *testing.T) {
	book := newFakeBook()
	book.account("Expenses:Food", "EXPENSE")
	book.tx("past", NewDate(2023, time.December, 31), expenseSplit("Expenses:Food", "1.00"))
	book.tx("in", NewDate(2024, time.January, 15), expenseSplit("Expenses:Food", "2.00"))
	book.tx("future", NewDate(2024, time.March, 1), expenseSplit("Expenses:Food", "4.00"))

	start := NewMonth(2024, time.January)
	today := NewDate(2024, time.February, 10)
	agg, err := NewCashAggregator(book, start, today, Rule{Type: "EXPENSE"}, "Expenses")
	if err != nil {
		t.Fatalf("NewCashAggregator() error = %v", err)
	}

	if agg.Handled("past") || agg.Handled("future") {
		t.Errorf("out-of-range transactions were handled")
	}
	if agg.HandledCount() != 1 {
		t.Errorf("HandledCount() = %d, want 1", agg.HandledCount())
	}
}

func TestReportDataGroupsAndOther(t *testing.T) {
	book := newFakeBook()
	book.account("Expenses:Food", "EXPENSE")
	book.account("Expenses:Rent", "EXPENSE")
	book.account("Expenses:Misc", "EXPENSE")
	march := NewDate(2024, time.March, 5)
	book.tx("t1", march, expenseSplit("Expenses:Food", "30.00"))
	book.tx("t2", march, expenseSplit("Expenses:Rent", "60.00"))
	book.tx("t3", march, expenseSplit("Expenses:Misc", "10.00"))

	start := NewMonth(2024, time.March)
	today := march
	agg, err := NewCashAggregator(book, start, today, Rule{Type: "EXPENSE"}, "Expenses")
	if err != nil {
		t.Fatalf("NewCashAggregator() error = %v", err)
	}

	groups := []Group{{"Expenses:Food"}, {"Expenses:Rent"}}
	table, err := agg.ReportData(start, today, groups, false)
	if err != nil {
		t.Fatalf("ReportData() error = %v", err)
	}

	want := []string{"Total Expenses", "Food", "Rent", "Other Expenses"}
	if !reflect.DeepEqual(table.Headers, want) {
		t.Errorf("Headers = %v, want %v", table.Headers, want)
	}
	row := table.Rows[start]
	checks := map[string]string{
		"Total Expenses": "100.00",
		"Food":           "30.00",
		"Rent":           "60.00",
		"Other Expenses": "10.00",
	}
	for name, wantV := range checks {
		if got := row[name].String(); got != wantV {
			t.Errorf("%s = %s, want %s", name, got, wantV)
		}
	}

	// Total == sum(groups) + Other
	sum := row["Food"].Add(row["Rent"]).Add(row["Other Expenses"])
	if !sum.Equal(row["Total Expenses"]) {
		t.Errorf("Total %v != groups+other %v", row["Total Expenses"], sum)
	}
}

func TestReportDataDropsZeroOther(t *testing.T) {
	// groups Checking=100, Savings=0 fully account for the 100 total
	book := newFakeBook()
	book.account("Assets:Checking", "ASSET")
	book.account("Assets:Savings", "ASSET")
	march := NewDate(2024, time.March, 5)
	book.tx("t1", march, Split{Account: "Assets:Checking", Category: "ASSET", Value: decimal.RequireFromString("100.00")})
	book.tx("t2", march, Split{Account: "Assets:Savings", Category: "ASSET", Value: decimal.Zero})

	start := NewMonth(2024, time.March)
	agg, err := NewCashAggregator(book, start, march, Rule{Root: "Assets"}, "Assets")
	if err != nil {
		t.Fatalf("NewCashAggregator() error = %v", err)
	}

	groups := []Group{{"Assets:Checking"}, {"Assets:Savings"}}
	table, err := agg.ReportData(start, march, groups, false)
	if err != nil {
		t.Fatalf("ReportData() error = %v", err)
	}

	want := []string{"Total Assets", "Checking", "Savings"}
	if !reflect.DeepEqual(table.Headers, want) {
		t.Errorf("Headers = %v, want %v", table.Headers, want)
	}
	row := table.Rows[start]
	if _, ok := row["Other Assets"]; ok {
		t.Errorf("Other Assets column still present: %v", row)
	}
	if got := row["Checking"].String(); got != "100.00" {
		t.Errorf("Checking = %s, want 100.00", got)
	}
	if got := row["Savings"].String(); got != "0.00" {
		t.Errorf("Savings = %s, want 0.00", got)
	}
}

func TestReportDataRunningSum(t *testing.T) {
	book := newFakeBook()
	book.account("Expenses:Food", "EXPENSE")
	book.tx("t1", NewDate(2024, time.January, 10), expenseSplit("Expenses:Food", "10.00"))
	book.tx("t2", NewDate(2024, time.February, 10), expenseSplit("Expenses:Food", "20.00"))
	book.tx("t3", NewDate(2024, time.March, 10), expenseSplit("Expenses:Food", "30.00"))

	start := NewMonth(2024, time.January)
	today := NewDate(2024, time.March, 20)
	agg, err := NewCashAggregator(book, start, today, Rule{Type: "EXPENSE"}, "Expenses")
	if err != nil {
		t.Fatalf("NewCashAggregator() error = %v", err)
	}

	table, err := agg.ReportData(start, today, nil, true)
	if err != nil {
		t.Fatalf("ReportData() error = %v", err)
	}

	// each month carries the sum of all months through it
	wantRows := map[Month]string{
		NewMonth(2024, time.January):  "10.00",
		NewMonth(2024, time.February): "30.00",
		NewMonth(2024, time.March):    "60.00",
	}
	for m, want := range wantRows {
		if got := table.Rows[m]["Expenses"].String(); got != want {
			t.Errorf("running sum for %v = %s, want %s", m, got, want)
		}
	}
}

func TestReportDataMissingAccountColumn(t *testing.T) {
	book := newFakeBook()
	book.account("Expenses:Food", "EXPENSE")
	book.tx("t1", NewDate(2024, time.March, 5), expenseSplit("Expenses:Food", "50.00"))

	start := NewMonth(2024, time.March)
	today := NewDate(2024, time.March, 20)
	agg, err := NewCashAggregator(book, start, today, Rule{Type: "EXPENSE"}, "Expenses")
	if err != nil {
		t.Fatalf("NewCashAggregator() error = %v", err)
	}

	_, err = agg.ReportData(start, today, []Group{{"Expenses:Fod"}}, false)
	var missing *MissingAccountColumnError
	if !errors.As(err, &missing) {
		t.Fatalf("ReportData() error = %v, want MissingAccountColumnError", err)
	}
	if missing.Path != "Expenses:Fod" {
		t.Errorf("MissingAccountColumnError.Path = %q, want Expenses:Fod", missing.Path)
	}
}

func TestCategoryIntersectionExclusion(t *testing.T) {
	book := newFakeBook()
	book.account("Assets:Savings:Emergency", "ASSET")
	book.account("Assets:Checking", "BANK")
	book.account("Assets:Savings:Goal", "ASSET")
	march := NewDate(2024, time.March, 5)
	// transfer touching a BANK leg must be skipped entirely
	book.tx("transfer", march,
		Split{Account: "Assets:Savings:Emergency", Category: "ASSET", Value: decimal.RequireFromString("200.00")},
		Split{Account: "Assets:Checking", Category: "BANK", Value: decimal.RequireFromString("-200.00")},
	)
	book.tx("internal", march,
		Split{Account: "Assets:Savings:Goal", Category: "ASSET", Value: decimal.RequireFromString("75.00")},
	)

	start := NewMonth(2024, time.March)
	agg, err := NewCashAggregator(book, start, march, Rule{Root: "Assets:Savings"}, "Savings",
		CategoryIntersectionExclusion("BANK", "CREDIT"))
	if err != nil {
		t.Fatalf("NewCashAggregator() error = %v", err)
	}

	if agg.Handled("transfer") {
		t.Errorf("excluded transaction was handled")
	}
	root := agg.Tree().Node("Assets:Savings")
	if root == nil {
		t.Fatalf("no Assets:Savings node")
	}
	if got := root.Sum(start).String(); got != "75.00" {
		t.Errorf("savings total = %s, want 75.00 (transfer excluded)", got)
	}
}

func TestExactCategorySetExclusion(t *testing.T) {
	exclude := ExactCategorySetExclusion("BANK", "CREDIT")
	tests := []struct {
		name       string
		categories []string
		want       bool
	}{
		{"exact match", []string{"CREDIT", "BANK"}, true},
		{"superset", []string{"BANK", "CREDIT", "EXPENSE"}, false},
		{"subset", []string{"BANK"}, false},
		{"repeated category", []string{"BANK", "BANK"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := Transaction{ID: "t"}
			for _, c := range tt.categories {
				tx.Splits = append(tx.Splits, Split{Account: "A", Category: c})
			}
			if got := exclude(tx); got != tt.want {
				t.Errorf("exclude(%v) = %v, want %v", tt.categories, got, tt.want)
			}
		})
	}
}

func TestHeaderNames(t *testing.T) {
	book := newFakeBook()
	start := NewMonth(2024, time.March)
	today := NewDate(2024, time.March, 20)
	agg, err := NewCashAggregator(book, start, today, Rule{Type: "INCOME"}, "Income")
	if err != nil {
		t.Fatalf("NewCashAggregator() error = %v", err)
	}

	tests := []struct {
		name   string
		groups []Group
		want   []string
	}{
		{"no groups", nil, []string{"Income"}},
		{"single path groups", []Group{{"Income:Salary"}, {"Income:Interest"}},
			[]string{"Total Income", "Salary", "Interest", "Other Income"}},
		{"combined group", []Group{{"Income:Interest", "Income:Dividends"}},
			[]string{"Total Income", "Interest/Dividends", "Other Income"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := agg.HeaderNames(tt.groups); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("HeaderNames() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCommodityAggregatorValuation(t *testing.T) {
	// 10 units held through March, priced 5.00 on March 15 (6.00 on Feb 1)
	book := newFakeBook()
	book.account("Assets:Brokerage:XEQT", "STOCK")
	book.account("Assets:Brokerage", "ASSET")
	book.tx("buy", NewDate(2024, time.February, 20), Split{
		Account:   "Assets:Brokerage:XEQT",
		Category:  "STOCK",
		Quantity:  decimal.NewFromInt(10),
		Commodity: "XEQT",
	})
	book.price("XEQT", "CAD", NewDate(2024, time.February, 1), "6.00")
	book.price("XEQT", "CAD", NewDate(2024, time.March, 15), "5.00")

	start := NewMonth(2024, time.February)
	today := NewDate(2024, time.March, 20)
	valuer := &Valuer{Base: "CAD", Prices: book}
	agg, err := NewCommodityAggregator(book, start, today, Rule{Root: "Assets:Brokerage"}, "Investments", valuer)
	if err != nil {
		t.Fatalf("NewCommodityAggregator() error = %v", err)
	}

	// running sum keeps the February position visible through March
	table, err := agg.ReportData(start, today, nil, true)
	if err != nil {
		t.Fatalf("ReportData() error = %v", err)
	}
	if got := table.Rows[NewMonth(2024, time.February)]["Investments"].String(); got != "60.00" {
		t.Errorf("February value = %s, want 60.00 (February price)", got)
	}
	if got := table.Rows[NewMonth(2024, time.March)]["Investments"].String(); got != "50.00" {
		t.Errorf("March value = %s, want 50.00 (price of March 15)", got)
	}
}

func TestWriteTree(t *testing.T) {
	book := newFakeBook()
	book.account("Expenses:Food:Fruit", "EXPENSE")
	book.tx("t1", NewDate(2024, time.March, 5), expenseSplit("Expenses:Food:Fruit", "10.00"))

	start := NewMonth(2024, time.March)
	today := NewDate(2024, time.March, 20)
	agg, err := NewCashAggregator(book, start, today, Rule{Type: "EXPENSE"}, "Expenses")
	if err != nil {
		t.Fatalf("NewCashAggregator() error = %v", err)
	}

	var sb strings.Builder
	agg.WriteTree(&sb, nil)
	want := "Expenses: 10.00\n    Food: 10.00\n        Fruit: 10.00\n"
	if sb.String() != want {
		t.Errorf("WriteTree() = %q, want %q", sb.String(), want)
	}
}

func TestTableAbs(t *testing.T) {
	table := &Table{
		Label:   "Income",
		Headers: []string{"Income"},
		Rows: map[Month]Row{
			NewMonth(2024, time.February): {"Income": cash("-2000.00")},
			// a refund-heavy month can already be positive and must stay so
			NewMonth(2024, time.March): {"Income": cash("150.00")},
		},
	}
	table.Abs()
	if got := table.Rows[NewMonth(2024, time.February)]["Income"]; !got.Equal(cash("2000.00")) {
		t.Errorf("February income = %s, want 2000.00", got)
	}
	if got := table.Rows[NewMonth(2024, time.March)]["Income"]; !got.Equal(cash("150.00")) {
		t.Errorf("March income = %s, want 150.00", got)
	}
}
