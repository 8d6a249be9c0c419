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

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/marketdata/db"
)

// SplitColumns are the candidate date columns of bulk range results, in the
// order of preference.
var SplitColumns = []string{"Date", "DisclosedDate", "AnnouncementDate", "PayableDate"}

// splitColumn finds the column to split a range result by dates.
func splitColumn(d *db.Dataset) (string, bool) {
	for _, c := range SplitColumns {
		if d.Has(c) {
			return c, true
		}
	}
	return "", false
}

// splitByDate groups the row indices by the dates in the column. Rows with
// unparseable dates are dropped.
func splitByDate(d *db.Dataset, column string) map[db.Date][]int {
	res := make(map[db.Date][]int)
	for i, v := range d.Column(column) {
		if db.IsNull(v) {
			continue
		}
		date, err := db.NewDateFromString(db.Text(v))
		if err != nil {
			continue
		}
		res[date] = append(res[date], i)
	}
	return res
}

// persistRangeKind persists a range-capable kind for all the dates with a
// single bulk fetch, unless all the files already exist. Returns the results
// for every date and whether the fetch was made.
func (p *Planner) persistRangeKind(ctx context.Context, k *Kind, dates []db.Date) ([]Result, bool) {
	results := make([]Result, len(dates))
	var missing []int
	for i, date := range dates {
		path := p.path(k, date)
		u := Unit{Kind: k.Name, Date: date}
		if p.config.Store.Exists(path) {
			results[i] = skipped(u, SkippedExists, path)
			continue
		}
		results[i] = Result{Unit: u, Path: path}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		logging.Debugf(ctx, "%s: all %d files exist, skipping", k.Name, len(dates))
		return results, false
	}
	// Applies the same outcome to every missing date.
	all := func(r func(Result) Result) ([]Result, bool) {
		for _, i := range missing {
			results[i] = r(results[i])
		}
		return results, true
	}
	start, end := dates[0], dates[len(dates)-1]
	d, err := p.config.Source.FetchRange(ctx, k.Method, start, end)
	if err != nil {
		logging.Errorf(ctx, "%s [%s, %s]: %s", k.Name, start, end, err.Error())
		return all(func(r Result) Result {
			return failed(r.Unit, r.Path, "fetch failed: %s", err.Error())
		})
	}
	u := Unit{Kind: k.Name}
	if r := p.check(ctx, k, u, "", d); r != nil {
		return all(func(x Result) Result {
			y := *r
			y.Unit, y.Path = x.Unit, x.Path
			return y
		})
	}
	col, ok := splitColumn(d)
	if !ok {
		err := errors.Reason("no date column to split by, expected one of %v", SplitColumns)
		logging.Errorf(ctx, "%s: %s", k.Name, err.Error())
		return all(func(r Result) Result { return failed(r.Unit, r.Path, "%s", err.Error()) })
	}
	rows := splitByDate(d, col)
	for _, i := range missing {
		r := results[i]
		idx, ok := rows[r.Date]
		if !ok {
			results[i] = skipped(r.Unit, SkippedEmpty, r.Path)
			continue
		}
		keep := make(map[int]struct{}, len(idx))
		for _, j := range idx {
			keep[j] = struct{}{}
		}
		part := d.Filter(func(j int) bool {
			_, ok := keep[j]
			return ok
		})
		results[i] = p.write(ctx, r.Unit, r.Path, part)
	}
	return results, true
}

// persistRange is PersistRange without the summary. Returns the results and
// the number of API calls saved by bulk fetches.
func (p *Planner) persistRange(ctx context.Context, start, end db.Date, retryFailed bool) ([]Result, int) {
	var dates []db.Date
	for _, d := range db.DateRange(start, end) {
		if p.config.Constraints.CheckDate(d) {
			dates = append(dates, d)
		}
	}
	if len(dates) == 0 {
		return nil, 0
	}
	var rangeKinds, dateKinds []*Kind
	for _, k := range p.kinds() {
		if k.IsRange {
			rangeKinds = append(rangeKinds, k)
		} else {
			dateKinds = append(dateKinds, k)
		}
	}
	var results []Result
	saved := 0
	for _, k := range rangeKinds {
		rs, fetched := p.persistRangeKind(ctx, k, dates)
		if fetched {
			saved += len(dates) - 1
		}
		if retryFailed && len(failedUnits(rs)) > 0 {
			logging.Infof(ctx, "retrying %s for [%s, %s]", k.Name, dates[0], dates[len(dates)-1])
			retried, _ := p.persistRangeKind(ctx, k, dates)
			retry(rs, retried)
		}
		results = append(results, rs...)
	}
	for _, date := range dates {
		results = append(results, p.persistForDate(ctx, dateKinds, date, retryFailed)...)
	}
	return results, saved
}

// PersistRange persists all the enabled kinds for every date in the inclusive
// range. Range-capable kinds are fetched with one call for the whole range
// and split into per-date files; the other kinds are fetched date by date.
func (p *Planner) PersistRange(ctx context.Context, start, end db.Date, retryFailed bool) *Summary {
	results, saved := p.persistRange(ctx, start, end, retryFailed)
	s := summarize(results, saved)
	logging.Infof(ctx, "[%s, %s]: %d succeeded, %d skipped, %d failed, %d API calls saved",
		start, end, len(s.Success), len(s.Skipped), len(s.Failed), s.APICallsSaved)
	return s
}
