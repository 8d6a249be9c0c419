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

package db

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/marketdata/message"
	"github.com/stockparfait/marketdata/table"
)

// CSVConfig controls how a CSV file is read into a Dataset.
type CSVConfig struct {
	Header  []string `json:"header"`  // for headless CSV
	Numeric []string `json:"numeric"` // columns parsed as numbers
}

var _ message.Message = &CSVConfig{}

// InitMessage implements message.Message.
func (c *CSVConfig) InitMessage(js interface{}) error {
	return errors.Annotate(message.Init(c, js), "failed to init from JSON")
}

// parseNumber converts a CSV cell to int64 if it's an integer, or float64
// otherwise. Empty cells are nulls.
func parseNumber(s string) (Value, error) {
	if s == "" {
		return nil, nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.Annotate(err, "not a number: '%s'", s)
	}
	return f, nil
}

// ReadCSV reads a CSV table into a Dataset. Cells are strings, except in the
// Numeric columns. A nil config reads a CSV with a header and no numeric
// columns.
func ReadCSV(r io.Reader, c *CSVConfig) (*Dataset, error) {
	if c == nil {
		c = &CSVConfig{}
	}
	cr := csv.NewReader(r)
	header := c.Header
	if len(header) == 0 {
		var err error
		header, err = cr.Read()
		if err == io.EOF {
			return NewDataset(), nil
		}
		if err != nil {
			return nil, errors.Annotate(err, "failed to read CSV header")
		}
	}
	numeric := make(map[string]struct{}, len(c.Numeric))
	for _, n := range c.Numeric {
		numeric[n] = struct{}{}
	}
	d := NewDataset(header...)
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Annotate(err, "failed to read CSV row %d", line)
		}
		if len(row) != len(header) {
			return nil, errors.Reason("row %d has %d cells, expected %d",
				line, len(row), len(header))
		}
		values := make([]Value, len(row))
		for i, s := range row {
			if _, ok := numeric[header[i]]; !ok {
				values[i] = s
				continue
			}
			if values[i], err = parseNumber(s); err != nil {
				return nil, errors.Annotate(err, "row %d column %s", line, header[i])
			}
		}
		if err := d.AddRow(values...); err != nil {
			return nil, errors.Annotate(err, "row %d", line)
		}
	}
	return d, nil
}

// ReadCSVFile reads a CSV file into a Dataset.
func ReadCSVFile(fileName string, c *CSVConfig) (*Dataset, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open file for reading: '%s'", fileName)
	}
	defer f.Close()
	return ReadCSV(f, c)
}

// Table converts the dataset into a table of text cells.
func (d *Dataset) Table() *table.Table {
	t := table.NewTable(d.Columns()...)
	for i := 0; i < d.Len(); i++ {
		row := d.Row(i)
		cells := make(table.Strings, len(row))
		for j, v := range row {
			cells[j] = Text(v)
		}
		t.AddRow(cells)
	}
	return t
}

func writeCSVFile(fileName string, d *Dataset) error {
	f, err := os.OpenFile(fileName, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Annotate(err, "failed to open file for writing: '%s'", fileName)
	}
	if err := d.Table().WriteCSV(f, table.Params{}); err != nil {
		f.Close()
		return errors.Annotate(err, "failed to write CSV to '%s'", fileName)
	}
	if err := f.Close(); err != nil {
		return errors.Annotate(err, "failed to close '%s'", fileName)
	}
	return nil
}
