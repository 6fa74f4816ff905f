package output

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// columnGap separates table columns.
const columnGap = "  "

// Column is one table column. Right aligns cells to the column's right
// edge, for sizes and counts.
type Column struct {
	Title string
	Right bool
}

// Table renders rows under a header with a dashed rule, padded to the
// widest cell per column. Width is counted in runes.
type Table struct {
	cols []Column
	rows [][]string
}

// NewTable creates a table with the given columns.
func NewTable(cols ...Column) *Table {
	return &Table{cols: cols}
}

// AddRow adds a row. Missing cells render blank and extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.cols))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Len is the number of rows added.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table to w. A table without columns writes nothing.
func (t *Table) Render(w io.Writer) error {
	if len(t.cols) == 0 {
		return nil
	}

	widths := make([]int, len(t.cols))
	header := make([]string, len(t.cols))
	for i, c := range t.cols {
		header[i] = c.Title
		widths[i] = utf8.RuneCountInString(c.Title)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}

	rule := make([]string, len(widths))
	for i, width := range widths {
		rule[i] = strings.Repeat("-", width)
	}

	if err := t.line(w, header, widths); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, strings.Join(rule, columnGap)); err != nil {
		return err
	}
	for _, row := range t.rows {
		if err := t.line(w, row, widths); err != nil {
			return err
		}
	}
	return nil
}

// String returns the rendered table.
func (t *Table) String() string {
	var sb strings.Builder
	_ = t.Render(&sb)
	return sb.String()
}

func (t *Table) line(w io.Writer, cells []string, widths []int) error {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		pad := strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell))
		if t.cols[i].Right {
			parts[i] = pad + cell
		} else {
			parts[i] = cell + pad
		}
	}
	_, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, columnGap), " "))
	return err
}

// Fields renders labelled values, one per line, with every value starting
// in the same column:
//
//	Wallet:  savings
//	Address: bc1q...
//
// It is the text layout for wallet, backup and signature details.
type Fields struct {
	indent string
	labels []string
	values []string
}

// NewFields starts an empty block. Each line is prefixed by indent.
func NewFields(indent string) *Fields {
	return &Fields{indent: indent}
}

// Add appends a line. It returns f so calls chain.
func (f *Fields) Add(label, value string) *Fields {
	f.labels = append(f.labels, label)
	f.values = append(f.values, value)
	return f
}

// Addf appends a line with a formatted value.
func (f *Fields) Addf(label, format string, args ...any) *Fields {
	return f.Add(label, fmt.Sprintf(format, args...))
}

// Render writes the block to w.
func (f *Fields) Render(w io.Writer) error {
	width := 0
	for _, l := range f.labels {
		width = max(width, utf8.RuneCountInString(l))
	}
	for i, l := range f.labels {
		pad := strings.Repeat(" ", width-utf8.RuneCountInString(l))
		line := strings.TrimRight(f.indent+l+":"+pad+" "+f.values[i], " ")
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// String returns the rendered block.
func (f *Fields) String() string {
	var sb strings.Builder
	_ = f.Render(&sb)
	return sb.String()
}
