package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// WriteCSV writes the summary lines, a blank line, then the table.
func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	records := [][]string{{r.Title}}
	for _, s := range r.Summary {
		records = append(records, []string{s.Label, s.Value})
	}
	records = append(records, []string{}, r.Columns)
	for _, row := range r.Rows {
		row.Description = defuseFormula(row.Description)
		records = append(records, row.Values())
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// defuseFormula quotes free text that a spreadsheet would evaluate as a formula.
func defuseFormula(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}
