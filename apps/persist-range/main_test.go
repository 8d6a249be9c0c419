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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stockparfait/logging"
	"github.com/stockparfait/marketdata/db"
	"github.com/stockparfait/marketdata/jquants"
	"github.com/stockparfait/marketdata/persist"
	"github.com/stockparfait/testutil"

	. "github.com/smartystreets/goconvey/convey"
)

const testCatalog = `
apis:
  daily_quotes:
    method: prices/daily_quotes
    output_dir: daily_quotes
    is_range: true
`

const quotes4 = `{"daily_quotes": [
  {"Date": "2024-01-04", "Code": "72030", "Open": 100, "High": 110, "Low": 95, "Close": 105, "Volume": 1000}
]}`

const quotes5 = `{"daily_quotes": [
  {"Date": "2024-01-05", "Code": "72030", "Open": 105, "High": 112, "Low": 101, "Close": 110, "Volume": 1500},
  {"Date": "2024-01-05", "Code": "67580", "Open": 200, "High": 210, "Low": 190, "Close": 205, "Volume": 2000}
]}`

func TestMain(t *testing.T) {
	tmpdir, tmpdirErr := os.MkdirTemp("", "test_persist_range_app")
	defer os.RemoveAll(tmpdir)

	Convey("Setup succeeded", t, func() {
		So(tmpdirErr, ShouldBeNil)
	})

	Convey("parseFlags", t, func() {
		flags, err := parseFlags([]string{
			"-start", "20240101", "-end", "20240131", "-workers", "2",
			"-chunk-size", "5", "-skip-weekends", "-retry-failed", "-dry-run",
			"-exclude", "topix", "-log-level", "warning"})
		So(err, ShouldBeNil)
		So(flags.Start, ShouldResemble, db.NewDate(2024, 1, 1))
		So(flags.End, ShouldResemble, db.NewDate(2024, 1, 31))
		So(flags.Workers, ShouldEqual, 2)
		So(flags.ChunkSize, ShouldEqual, 5)
		So(flags.SkipWeekends, ShouldBeTrue)
		So(flags.RetryFailed, ShouldBeTrue)
		So(flags.DryRun, ShouldBeTrue)
		So(flags.Exclude, ShouldResemble, []string{"topix"})
		So(flags.LogLevel, ShouldEqual, logging.Warning)

		Convey("dates are required", func() {
			_, err := parseFlags([]string{"-start", "20240101"})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "missing required -end")
		})

		Convey("start after end", func() {
			_, err := parseFlags([]string{"-start", "20240201", "-end", "20240101"})
			So(err, ShouldNotBeNil)
		})

		Convey("negative chunk size", func() {
			_, err := parseFlags([]string{
				"-start", "20240101", "-end", "20240102", "-chunk-size", "-1"})
			So(err, ShouldNotBeNil)
		})
	})

	Convey("run works", t, func() {
		server := testutil.NewTestServer()
		defer server.Close()
		jquants.URL = server.URL() + "/v1"
		newSource = func(token string) persist.Source {
			return jquants.NewClient(token, server.Client())
		}

		catalogFile := filepath.Join(tmpdir, "catalog.yaml")
		So(testutil.WriteFile(catalogFile, testCatalog), ShouldBeNil)
		outDir := filepath.Join(tmpdir, "out")
		ctx := context.Background()

		Convey("dry run prints the chunks", func() {
			flags, err := parseFlags([]string{
				"-catalog", catalogFile, "-output-dir", outDir,
				"-start", "20240104", "-end", "20240109",
				"-chunk-size", "2", "-skip-weekends", "-dry-run"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(run(ctx, flags, &buf), ShouldBeNil)
			So("\n"+buf.String(), ShouldEqual, `
     Start |        End | Days
---------- | ---------- | ----
2024-01-04 | 2024-01-05 |    2
2024-01-08 | 2024-01-09 |    2
`)
			So(server.RequestPath, ShouldEqual, "")
		})

		Convey("persists a range", func() {
			server.ResponseBody = []string{quotes4, quotes5}
			flags, err := parseFlags([]string{
				"-catalog", catalogFile, "-output-dir", outDir,
				"-start", "20240104", "-end", "20240105", "-workers", "1", "-strict"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(run(ctx, flags, &buf), ShouldBeNil)

			n, err := db.ParquetRows(filepath.Join(outDir, "daily_quotes", "20240104.parquet"))
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
			n, err = db.ParquetRows(filepath.Join(outDir, "daily_quotes", "20240105.parquet"))
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)
		})

		Convey("config errors stop before any work", func() {
			flags, err := parseFlags([]string{
				"-config", filepath.Join(tmpdir, "missing.toml"),
				"-start", "20240104", "-end", "20240105"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(run(ctx, flags, &buf), ShouldNotBeNil)
			So(buf.String(), ShouldEqual, "")
		})
	})
}
