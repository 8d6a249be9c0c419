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

package persist

import (
	"context"
	"sync"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/marketdata/db"
)

// testSource serves the rows of per-method datasets, selecting them by the
// Date column, and counts the calls.
type testSource struct {
	mu    sync.Mutex
	data  map[string]*db.Dataset
	calls map[string]int
	fail  map[string]int // number of calls to fail per method
}

var _ Source = &testSource{}

func newTestSource() *testSource {
	return &testSource{
		data:  make(map[string]*db.Dataset),
		calls: make(map[string]int),
		fail:  make(map[string]int),
	}
}

func (s *testSource) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *testSource) call(method string) (*db.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[method]++
	if s.fail[method] > 0 {
		s.fail[method]--
		return nil, errors.Reason("upstream error for %s", method)
	}
	return s.data[method], nil
}

func (s *testSource) selectDates(d *db.Dataset, start, end db.Date) *db.Dataset {
	if !d.Has("Date") {
		return d
	}
	return d.Filter(func(i int) bool {
		date, err := db.NewDateFromString(db.Text(d.Column("Date")[i]))
		return err == nil && date.InRange(start, end)
	})
}

func (s *testSource) FetchStatic(ctx context.Context, method string) (*db.Dataset, error) {
	return s.call(method)
}

func (s *testSource) FetchOne(ctx context.Context, method string, date db.Date) (*db.Dataset, error) {
	d, err := s.call(method)
	if err != nil || d == nil {
		return d, err
	}
	return s.selectDates(d, date, date), nil
}

func (s *testSource) FetchRange(ctx context.Context, method string, start, end db.Date) (*db.Dataset, error) {
	d, err := s.call(method)
	if err != nil || d == nil {
		return d, err
	}
	return s.selectDates(d, start, end), nil
}

// testQuotes creates valid daily quotes of two securities for the dates.
func testQuotes(dates ...db.Date) *db.Dataset {
	d := db.NewDataset("Date", "Code", "Open", "High", "Low", "Close", "Volume")
	for _, date := range dates {
		for _, code := range []string{"72030", "67580"} {
			if err := d.AddRow(date.String(), code, 100.0, 110.0, 95.0, 105.0, int64(1000)); err != nil {
				panic(err)
			}
		}
	}
	return d
}
