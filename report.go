package gnureport

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Report is the merged output of several aggregator tables over one month
// range: a "Month" column followed by each table's columns, one row per
// month, in chronological order. Months where every value is zero are
// skipped, which commonly happens for the current, still-empty month.
type Report struct {
	Headers []string
	Months  []Month
	Values  map[Month][]Cash // aligned with Headers[1:]
}

// BuildReport merges the given tables into a single report covering every
// month from start through the month containing today.
func BuildReport(start Month, today Date, tables ...*Table) *Report {
	headers := []string{"Month"}
	for _, t := range tables {
		headers = append(headers, t.Headers...)
	}

	r := &Report{Headers: headers, Values: make(map[Month][]Cash)}
	for m := start; !m.InFuture(today); m = m.Next() {
		values := make([]Cash, 0, len(headers)-1)
		allZero := true
		for _, t := range tables {
			row := t.Rows[m]
			for _, name := range t.Headers {
				v := row[name]
				if !v.IsZero() {
					allZero = false
				}
				values = append(values, v)
			}
		}
		if allZero {
			continue
		}
		r.Months = append(r.Months, m)
		r.Values[m] = values
	}
	return r
}

// WriteSummary prints the most recent reported month to w, one line per
// column, with the values formatted in the given currency.
func (r *Report) WriteSummary(w io.Writer, currency string) {
	if len(r.Months) == 0 {
		return
	}
	last := r.Months[len(r.Months)-1]
	fmt.Fprintf(w, "%s:\n", last)
	for i, h := range r.Headers[1:] {
		fmt.Fprintf(w, "  %s: %s\n", h, r.Values[last][i].Display(currency))
	}
}

// WriteCSV writes the report as CSV, months down, columns across.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(r.Headers); err != nil {
		return err
	}
	for _, m := range r.Months {
		record := make([]string, 0, len(r.Headers))
		record = append(record, m.String())
		for _, v := range r.Values[m] {
			record = append(record, v.String())
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX renders the report as a single-sheet Excel workbook.
func (r *Report) WriteXLSX() ([]byte, error) {
	xlsx := excelize.NewFile()
	sheet := xlsx.GetSheetName(xlsx.GetActiveSheetIndex())

	_ = xlsx.SetColWidth(sheet, "A", "A", 16)
	if len(r.Headers) > 1 {
		last, _ := excelize.ColumnNumberToName(len(r.Headers))
		_ = xlsx.SetColWidth(sheet, "B", last, 14)
	}

	bold, err := xlsx.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	for i, h := range r.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = xlsx.SetCellStr(sheet, cell, h)
		_ = xlsx.SetCellStyle(sheet, cell, cell, bold)
	}

	// cells hold the exact decimal text, like the CSV output
	for rowIdx, m := range r.Months {
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx+2)
		_ = xlsx.SetCellStr(sheet, cell, m.String())
		for colIdx, v := range r.Values[m] {
			cell, _ := excelize.CoordinatesToCellName(colIdx+2, rowIdx+2)
			_ = xlsx.SetCellStr(sheet, cell, v.String())
		}
	}

	buf, err := xlsx.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}
