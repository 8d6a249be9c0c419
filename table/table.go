// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/stockparfait/errors"
)

// Row interface that a table row representation must implement.
type Row interface {
	CSV() []string // an encoding/csv compatible row representation
}

// Strings is the simplest Row: the cells are already formatted.
type Strings []string

var _ Row = Strings{}

func (s Strings) CSV() []string { return s }

// Table container.
//
// A typical use:
//   t := NewTable("Kind", "Date", "Reason")
//   t.AddRow(Strings{"daily_quotes", "2024-01-04", "data is empty"})
//   t.WriteText(os.Stdout, Params{MaxColWidth: 40})
type Table struct {
	Header []string // optional, may be nil
	Rows   []Row
}

// NewTable creates a new Table instance with optional column headers.  It is
// expected that, when present, the number of column headers is the same as the
// number of elements in each Row.
func NewTable(header ...string) *Table {
	return &Table{Header: header}
}

// AddRow adds one or more rows to the table.
func (t *Table) AddRow(rows ...Row) {
	t.Rows = append(t.Rows, rows...)
}

// Params are parameters for pretty-printing or CSV export of Table data.
type Params struct {
	Rows        int  // max. number of rows to write; 0 = unlimited (default)
	NoHeader    bool // whether to print the header, default - yes
	MaxColWidth int  // for WriteText only; 0 = unlimited, otherwise must be >= 4
}

// rows iterates over the rows to be written, respecting p.Rows.
func (t *Table) rows(p Params, f func(row []string) error) error {
	for i, r := range t.Rows {
		if p.Rows > 0 && i >= p.Rows {
			break
		}
		if err := f(r.CSV()); err != nil {
			return errors.Annotate(err, "row %d", i)
		}
	}
	return nil
}

// WriteCSV writes the entire table to w in CSV format.
func (t *Table) WriteCSV(w io.Writer, p Params) error {
	cw := csv.NewWriter(w)
	if !p.NoHeader && len(t.Header) > 0 {
		if err := cw.Write(t.Header); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
	}
	if err := t.rows(p, cw.Write); err != nil {
		return errors.Annotate(err, "failed to write row")
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Annotate(err, "failed to flush written rows")
	}
	return nil
}

// WriteText writes the table as a text formatted for ease of reading. Column
// widths are counted in runes, so that non-ASCII company names line up.
func (t *Table) WriteText(w io.Writer, p Params) error {
	if p.MaxColWidth != 0 && p.MaxColWidth < 4 {
		return errors.Reason("MaxColWidth [%d] must be 0 or >= 4", p.MaxColWidth)
	}
	var widths []int
	update := func(row []string) error {
		if len(row) == 0 {
			return errors.Reason("row size = 0")
		}
		if len(widths) == 0 {
			widths = make([]int, len(row))
		}
		if len(row) != len(widths) {
			return errors.Reason("row size [%d] != expected size [%d]",
				len(row), len(widths))
		}
		for i := range widths {
			if n := utf8.RuneCountInString(row[i]); widths[i] < n {
				widths[i] = n
				if p.MaxColWidth > 0 && widths[i] > p.MaxColWidth {
					widths[i] = p.MaxColWidth
				}
			}
		}
		return nil
	}

	write := func(row []string) error {
		cells := make([]string, len(row))
		for i, s := range row {
			r := []rune(s)
			if len(r) > widths[i] {
				r = append(r[:widths[i]-2], '.', '.')
			}
			cells[i] = strings.Repeat(" ", widths[i]-len(r)) + string(r)
		}
		_, err := fmt.Fprintf(w, "%s\n", strings.Join(cells, " | "))
		return err
	}

	header := !p.NoHeader && len(t.Header) > 0
	if header {
		if err := update(t.Header); err != nil {
			return errors.Annotate(err, "failed to update header widths")
		}
	}
	if err := t.rows(p, update); err != nil {
		return errors.Annotate(err, "failed to update row widths")
	}
	if header {
		if err := write(t.Header); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
		dashes := make([]string, len(widths))
		for i, n := range widths {
			dashes[i] = strings.Repeat("-", n)
		}
		if err := write(dashes); err != nil {
			return errors.Annotate(err, "failed to write header separator")
		}
	}
	if err := t.rows(p, write); err != nil {
		return errors.Annotate(err, "failed to write row")
	}
	return nil
}
