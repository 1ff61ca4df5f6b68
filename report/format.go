// Package report renders evaluation results as CSV files, console tables and JSON documents
package report

import (
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
)

// Format controls how numbers and tables are rendered. It is passed to every writer instead of
// being set globally.
type Format struct {
	// Precision is the number of decimals of every float
	Precision int `json:"precision"`

	// PercPrecision is the number of decimals of percentages
	PercPrecision int `json:"perc_precision"`

	// Padding is the number of spaces between console table columns
	Padding int `json:"padding"`

	// Indent prefixes every console table row
	Indent string `json:"indent"`

	// MaxRows truncates console tables. 0 prints every row.
	MaxRows int `json:"max_rows"`
}

// NewDefaultFormat renders one decimal and a two space indent
func NewDefaultFormat() *Format {
	return &Format{
		Precision:     1,
		PercPrecision: 1,
		Padding:       1,
		Indent:        "  ",
	}
}

// Float formats a value with the configured precision. Missing values are empty.
func (f *Format) Float(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', f.Precision, 64)
}

// Int formats a value rounded to the nearest integer. Missing values are empty.
func (f *Format) Int(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatInt(int64(math.Round(v)), 10)
}

// Perc formats a fraction as a percentage. Missing values are empty.
func (f *Format) Perc(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v*100, 'f', f.PercPrecision, 64) + "%"
}

func indentExpand(indent string, growth int) string {
	return strings.Repeat(indent, growth)
}

func (f *Format) table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, f.Padding, ' ', tabwriter.AlignRight)
}

// row writes tab terminated cells prefixed by the indent
func (f *Format) row(tbl io.Writer, cells ...string) error {
	var sb strings.Builder
	sb.WriteString(indentExpand(f.Indent, 1))
	for _, cell := range cells {
		sb.WriteString(cell)
		sb.WriteByte('\t')
	}
	sb.WriteByte('\n')
	_, err := io.WriteString(tbl, sb.String())
	return err
}

func (f *Format) truncated(n int) int {
	if f.MaxRows > 0 && n > f.MaxRows {
		return f.MaxRows
	}
	return n
}
