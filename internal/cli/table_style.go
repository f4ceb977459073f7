package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
)

// PlainTableWriter writes kubectl-style tables without box-drawing
// characters, so output can be piped to grep, awk or cut.
type PlainTableWriter struct {
	headers      []string
	rows         [][]string
	columnWidths []int
	// minPadding is the minimum space between columns
	minPadding  int
	showHeaders bool
	output      io.Writer
}

// NewPlainTableWriter creates a plain table writer. Headers are shown unless
// SetNoHeaders(true) is called.
func NewPlainTableWriter(output io.Writer) *PlainTableWriter {
	return &PlainTableWriter{
		headers:      []string{},
		rows:         [][]string{},
		columnWidths: []int{},
		minPadding:   3,
		showHeaders:  true,
		output:       output,
	}
}

// SetHeaders sets the column headers. Headers are printed in uppercase.
func (w *PlainTableWriter) SetHeaders(headers []string) {
	w.headers = make([]string, len(headers))
	w.columnWidths = make([]int, len(headers))
	for i, h := range headers {
		w.headers[i] = strings.ToUpper(h)
		w.columnWidths[i] = cellWidth(w.headers[i])
	}
}

// SetNoHeaders controls whether to suppress the header row.
func (w *PlainTableWriter) SetNoHeaders(noHeaders bool) {
	w.showHeaders = !noHeaders
}

// AppendRow adds a row, padding or truncating it to the header count.
func (w *PlainTableWriter) AppendRow(row []string) {
	normalized := make([]string, len(w.headers))
	copy(normalized, row)
	for i, cell := range normalized {
		w.columnWidths[i] = max(w.columnWidths[i], cellWidth(cell))
	}
	w.rows = append(w.rows, normalized)
}

// Render writes the table. Nothing is written when there are no headers, or
// when there are no rows and headers are suppressed.
func (w *PlainTableWriter) Render() {
	if len(w.headers) == 0 || (len(w.rows) == 0 && !w.showHeaders) {
		return
	}
	if w.showHeaders {
		w.printRow(w.headers)
	}
	for _, row := range w.rows {
		w.printRow(row)
	}
}

func (w *PlainTableWriter) printRow(row []string) {
	var sb strings.Builder
	last := len(row) - 1
	for i, cell := range row {
		if i == last {
			sb.WriteString(cell)
			break
		}
		sb.WriteString(text.Pad(cell, w.columnWidths[i]+w.minPadding, ' '))
	}
	fmt.Fprintln(w.output, strings.TrimRight(sb.String(), " "))
}

// cellWidth is the printed width of s, ignoring color escape sequences.
func cellWidth(s string) int {
	return text.RuneWidthWithoutEscSequences(s)
}
