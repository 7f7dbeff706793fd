package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel renders each sheet as a "# name" heading followed by its non-blank rows,
// cells joined by tabs. Reading stops once limit runes have been collected.
func extractExcel(content []byte, limit int) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var b limitedBuilder
	b.limit = limit
	for _, sheet := range f.GetSheetList() {
		rows, err := f.Rows(sheet)
		if err != nil {
			return "", fmt.Errorf("sheet %q: %w", sheet, err)
		}
		b.line("# " + sheet)
		for rows.Next() && !b.full() {
			cols, err := rows.Columns()
			if err != nil {
				rows.Close()
				return "", fmt.Errorf("sheet %q: %w", sheet, err)
			}
			b.line(strings.TrimRight(strings.Join(cols, "\t"), "\t "))
		}
		if err := rows.Close(); err != nil {
			return "", err
		}
		if b.full() {
			break
		}
	}
	return b.String(), nil
}
