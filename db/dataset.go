// Copyright 2024 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package db

import (
	"fmt"
	"strconv"

	"github.com/stockparfait/errors"
)

// Dataset is an in-memory table of named columns. Rows are not ordered in any
// meaningful way. A nil *Dataset is a valid empty dataset for all the read
// methods.
type Dataset struct {
	names []string
	index map[string]int
	cols  [][]Value
	rows  int
}

// NewDataset creates an empty dataset with the given columns.
func NewDataset(columns ...string) *Dataset {
	d := &Dataset{index: make(map[string]int)}
	for _, c := range columns {
		d.addColumn(c)
	}
	return d
}

// addColumn appends a column of nulls, unless it already exists, and returns
// its index.
func (d *Dataset) addColumn(name string) int {
	if i, ok := d.index[name]; ok {
		return i
	}
	d.index[name] = len(d.names)
	d.names = append(d.names, name)
	d.cols = append(d.cols, make([]Value, d.rows))
	return len(d.names) - 1
}

// Len is the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return d.rows
}

// Empty is true for a nil dataset or a dataset without rows.
func (d *Dataset) Empty() bool {
	return d.Len() == 0
}

// Columns returns the column names in their order.
func (d *Dataset) Columns() []string {
	if d == nil {
		return nil
	}
	res := make([]string, len(d.names))
	copy(res, d.names)
	return res
}

// Has checks whether the column exists.
func (d *Dataset) Has(column string) bool {
	if d == nil {
		return false
	}
	_, ok := d.index[column]
	return ok
}

// Column returns the values of the column, or nil if there is no such column.
// The slice is shared with the dataset and must not be modified.
func (d *Dataset) Column(column string) []Value {
	if d == nil {
		return nil
	}
	i, ok := d.index[column]
	if !ok {
		return nil
	}
	return d.cols[i]
}

// Row returns a copy of the i'th row in the column order.
func (d *Dataset) Row(i int) []Value {
	row := make([]Value, len(d.names))
	for j := range d.names {
		row[j] = d.cols[j][i]
	}
	return row
}

// AddRow appends a row of values in the column order.
func (d *Dataset) AddRow(values ...Value) error {
	if len(values) != len(d.names) {
		return errors.Reason("row size [%d] != number of columns [%d]",
			len(values), len(d.names))
	}
	for j, v := range values {
		d.cols[j] = append(d.cols[j], v)
	}
	d.rows++
	return nil
}

// AddRecord appends a row given as ordered (column, value) pairs. New columns
// are added as needed, and are null in the previous rows; columns absent from
// the record are null in the new row.
func (d *Dataset) AddRecord(columns []string, values []Value) error {
	if len(columns) != len(values) {
		return errors.Reason("%d columns but %d values", len(columns), len(values))
	}
	for _, c := range columns {
		d.addColumn(c)
	}
	for j := range d.cols {
		d.cols[j] = append(d.cols[j], nil)
	}
	for k, c := range columns {
		d.cols[d.index[c]][d.rows] = values[k]
	}
	d.rows++
	return nil
}

// Append all rows of another dataset, merging the columns by name.
func (d *Dataset) Append(other *Dataset) {
	for i := 0; i < other.Len(); i++ {
		// Column lists always match the values, the error is impossible.
		_ = d.AddRecord(other.names, other.Row(i))
	}
}

// Filter returns a new dataset with the same columns and only the rows for
// which keep(i) is true.
func (d *Dataset) Filter(keep func(i int) bool) *Dataset {
	res := NewDataset(d.Columns()...)
	for i := 0; i < d.Len(); i++ {
		if keep(i) {
			for j := range res.cols {
				res.cols[j] = append(res.cols[j], d.cols[j][i])
			}
			res.rows++
		}
	}
	return res
}

// Type of the column inferred from its values.
func (d *Dataset) Type(column string) ColumnType {
	return InferType(d.Column(column))
}

// FillNulls returns a copy of the dataset where each column holds values of a
// single type and no nulls: float nulls become 0.0, int nulls 0, bool nulls
// false, and string or mixed columns are converted to text with nulls as "".
// The result can be written by any of the Store formats without losing rows.
func (d *Dataset) FillNulls() *Dataset {
	res := NewDataset(d.Columns()...)
	res.rows = d.Len()
	for j, name := range res.names {
		src := d.Column(name)
		dst := make([]Value, len(src))
		tp := InferType(src)
		for i, v := range src {
			switch tp {
			case TypeFloat:
				f, _ := Number(v)
				dst[i] = f
			case TypeInt:
				dst[i] = toInt64(v)
			case TypeBool:
				b, _ := v.(bool)
				dst[i] = b
			default:
				dst[i] = Text(v)
			}
		}
		res.cols[j] = dst
	}
	return res
}

// Text is the uniform text representation of a value; nulls are empty.
func Text(v Value) string {
	if IsNull(v) {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}
