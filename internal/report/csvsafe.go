package report

import "strings"

// Leading characters a spreadsheet may treat as the start of a formula.
const formulaTriggers = "=+-@|%\t\r\n"

// EscapeCSVCell protects against CSV formula injection by prefixing cells
// that start with a formula trigger with a single quote.
func EscapeCSVCell(value string) string {
	if value == "" {
		return value
	}
	if strings.IndexByte(formulaTriggers, value[0]) >= 0 {
		return "'" + value
	}
	return value
}

// EscapeCSVRow escapes all cells in a row
func EscapeCSVRow(row []string) []string {
	escaped := make([]string, len(row))
	for i, cell := range row {
		escaped[i] = EscapeCSVCell(cell)
	}
	return escaped
}
