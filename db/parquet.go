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
	"encoding/json"
	"fmt"

	"github.com/stockparfait/errors"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

// parquetField is a node of the parquet-go JSON schema.
type parquetField struct {
	Tag    string         `json:"Tag"`
	Fields []parquetField `json:"Fields,omitempty"`
}

// parquetInName is the internal name of the i-th column. JSON records are keyed
// by it, so that any column name is written as is.
func parquetInName(i int) string {
	return fmt.Sprintf("Column%d", i)
}

// parquetTag is the schema tag of the i-th column.
func parquetTag(i int, name string, tp ColumnType) string {
	var t string
	switch tp {
	case TypeFloat:
		t = "type=DOUBLE"
	case TypeInt:
		t = "type=INT64"
	case TypeBool:
		t = "type=BOOLEAN"
	default:
		t = "type=BYTE_ARRAY, convertedtype=UTF8"
	}
	return fmt.Sprintf("name=%s, inname=%s, %s, repetitiontype=REQUIRED",
		name, parquetInName(i), t)
}

// parquetSchema of a dataset whose columns have no nulls.
func parquetSchema(d *Dataset) (string, error) {
	root := parquetField{Tag: "name=parquet_go_root, repetitiontype=REQUIRED"}
	for i, c := range d.Columns() {
		root.Fields = append(root.Fields, parquetField{Tag: parquetTag(i, c, d.Type(c))})
	}
	b, err := json.Marshal(root)
	if err != nil {
		return "", errors.Annotate(err, "failed to marshal parquet schema")
	}
	return string(b), nil
}

// writeParquetFile writes a dataset without nulls, as produced by FillNulls,
// into a new snappy-compressed parquet file.
func writeParquetFile(fileName string, d *Dataset) (err error) {
	schema, err := parquetSchema(d)
	if err != nil {
		return err
	}
	fw, err := local.NewLocalFileWriter(fileName)
	if err != nil {
		return errors.Annotate(err, "failed to open file for writing: '%s'", fileName)
	}
	defer func() {
		if cerr := fw.Close(); cerr != nil && err == nil {
			err = errors.Annotate(cerr, "failed to close '%s'", fileName)
		}
	}()

	pw, err := writer.NewJSONWriter(schema, fw, 4)
	if err != nil {
		return errors.Annotate(err, "failed to create parquet writer")
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	inNames := make([]string, len(d.Columns()))
	for j := range inNames {
		inNames[j] = parquetInName(j)
	}
	for i := 0; i < d.Len(); i++ {
		rec := make(map[string]interface{}, len(inNames))
		for j, v := range d.Row(i) {
			rec[inNames[j]] = v
		}
		b, err := json.Marshal(rec)
		if err != nil {
			return errors.Annotate(err, "failed to encode row %d", i)
		}
		if err := pw.Write(string(b)); err != nil {
			return errors.Annotate(err, "failed to write row %d", i)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return errors.Annotate(err, "failed to finalize parquet file")
	}
	return nil
}

// ParquetRows reads the number of rows recorded in a parquet file.
func ParquetRows(fileName string) (int64, error) {
	fr, err := local.NewLocalFileReader(fileName)
	if err != nil {
		return 0, errors.Annotate(err, "failed to open file for reading: '%s'", fileName)
	}
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, nil, 1)
	if err != nil {
		return 0, errors.Annotate(err, "failed to read parquet footer of '%s'", fileName)
	}
	defer pr.ReadStop()
	return pr.GetNumRows(), nil
}

// ReadParquetFile reads a flat parquet file, as written by Store, back into a
// Dataset.
func ReadParquetFile(fileName string) (*Dataset, error) {
	fr, err := local.NewLocalFileReader(fileName)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open file for reading: '%s'", fileName)
	}
	defer fr.Close()
	pr, err := reader.NewParquetColumnReader(fr, 1)
	if err != nil {
		return nil, errors.Annotate(err, "failed to read parquet footer of '%s'", fileName)
	}
	defer pr.ReadStop()

	rows := pr.GetNumRows()
	var names []string
	var cols [][]interface{}
	// Schema[0] is the root; a flat file has one leaf per column.
	for i, el := range pr.Footer.Schema[1:] {
		values, _, _, err := pr.ReadColumnByIndex(int64(i), rows)
		if err != nil {
			return nil, errors.Annotate(err, "failed to read column %s", el.Name)
		}
		if int64(len(values)) != rows {
			return nil, errors.Reason("column %s has %d values, expected %d",
				el.Name, len(values), rows)
		}
		names = append(names, el.Name)
		cols = append(cols, values)
	}
	d := NewDataset(names...)
	for i := int64(0); i < rows; i++ {
		row := make([]Value, len(cols))
		for j := range cols {
			row[j] = cols[j][i]
		}
		if err := d.AddRow(row...); err != nil {
			return nil, errors.Annotate(err, "row %d", i)
		}
	}
	return d, nil
}
