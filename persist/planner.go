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
	"strings"
	"time"

	"github.com/stockparfait/logging"
	"github.com/stockparfait/marketdata/db"
	"github.com/stockparfait/marketdata/validate"
)

// Source of market data. An upstream "no data" response is an empty dataset,
// not an error. Implementations must be safe for concurrent use.
type Source interface {
	FetchStatic(ctx context.Context, method string) (*db.Dataset, error)
	FetchOne(ctx context.Context, method string, date db.Date) (*db.Dataset, error)
	FetchRange(ctx context.Context, method string, start, end db.Date) (*db.Dataset, error)
}

// Config of a Planner.
type Config struct {
	Catalog     *Catalog
	Source      Source
	Validator   *validate.Validator
	Store       *db.Store
	Constraints *db.Constraints  // optional
	Now         func() time.Time // defaults to time.Now
}

// Planner persists datasets of the catalog kinds, skipping the files which
// already exist. A Planner is used by one goroutine at a time.
type Planner struct {
	config Config
}

// NewPlanner creates a Planner.
func NewPlanner(c Config) *Planner {
	if c.Now == nil {
		c.Now = time.Now
	}
	return &Planner{config: c}
}

// kinds lists the enabled kinds selected by the constraints.
func (p *Planner) kinds() []*Kind {
	var res []*Kind
	for _, k := range p.config.Catalog.Enabled() {
		if p.config.Constraints.CheckKind(k.Name) {
			res = append(res, k)
		}
	}
	return res
}

func (p *Planner) path(k *Kind, date db.Date) string {
	return p.config.Store.Path(k.OutputDir, k.FilePattern, date)
}

// fetch the dataset of a single date according to the kind's call shape.
func (p *Planner) fetch(ctx context.Context, k *Kind, date db.Date) (*db.Dataset, error) {
	switch {
	case k.IsStatic:
		return p.config.Source.FetchStatic(ctx, k.Method)
	case k.IsRange:
		return p.config.Source.FetchRange(ctx, k.Method, date, date)
	default:
		return p.config.Source.FetchOne(ctx, k.Method, date)
	}
}

// check the dataset before writing. Returns a non-nil result for an empty or
// an invalid dataset.
func (p *Planner) check(ctx context.Context, k *Kind, u Unit, path string, d *db.Dataset) *Result {
	if d.Empty() {
		logging.Warningf(ctx, "%s: empty data", u)
		r := skipped(u, SkippedEmpty, path)
		return &r
	}
	if ok, errs := p.config.Validator.Validate(ctx, k.Name, d); !ok {
		r := failed(u, path, "validation failed: %s", strings.Join(errs, "; "))
		return &r
	}
	return nil
}

// write the dataset of a unit.
func (p *Planner) write(ctx context.Context, u Unit, path string, d *db.Dataset) Result {
	if err := p.config.Store.Write(path, d); err != nil {
		logging.Errorf(ctx, "%s: %s", u, err.Error())
		return failed(u, path, "write failed: %s", err.Error())
	}
	logging.Infof(ctx, "%s: saved %d records to %s", u, d.Len(), path)
	return Result{Unit: u, Status: Success, Records: d.Len(), Path: path}
}

// PersistOne persists the dataset of the kind for the date, unless its file
// already exists, in which case the data source is not called at all.
func (p *Planner) PersistOne(ctx context.Context, k *Kind, date db.Date) Result {
	u := Unit{Kind: k.Name, Date: date}
	path := p.path(k, date)
	if p.config.Store.Exists(path) {
		logging.Debugf(ctx, "%s: file exists, skipping: %s", u, path)
		return skipped(u, SkippedExists, path)
	}
	d, err := p.fetch(ctx, k, date)
	if err != nil {
		logging.Errorf(ctx, "%s: %s", u, err.Error())
		return failed(u, path, "fetch failed: %s", err.Error())
	}
	if r := p.check(ctx, k, u, path, d); r != nil {
		return *r
	}
	return p.write(ctx, u, path, d)
}

// persistForDate runs PersistOne for each of the kinds, retrying the failed
// ones once when requested.
func (p *Planner) persistForDate(ctx context.Context, kinds []*Kind, date db.Date, retryFailed bool) []Result {
	results := make([]Result, len(kinds))
	for i, k := range kinds {
		results[i] = p.PersistOne(ctx, k, date)
	}
	if !retryFailed {
		return results
	}
	for i, k := range kinds {
		if results[i].Status == Failed {
			logging.Infof(ctx, "retrying %s", results[i].Unit)
			results[i] = p.PersistOne(ctx, k, date)
		}
	}
	return results
}

// PersistAllForDate persists all the enabled kinds for the date. A date outside
// of the constraints is not persisted at all.
func (p *Planner) PersistAllForDate(ctx context.Context, date db.Date, retryFailed bool) *Summary {
	if !p.config.Constraints.CheckDate(date) {
		logging.Warningf(ctx, "%s is outside of the configured dates, skipping", date)
		return NewSummary()
	}
	s := summarize(p.persistForDate(ctx, p.kinds(), date, retryFailed), 0)
	logging.Infof(ctx, "%s: %d succeeded, %d skipped, %d failed",
		date, len(s.Success), len(s.Skipped), len(s.Failed))
	return s
}

// Today is the current date of the exchange calendar.
func (p *Planner) Today() db.Date {
	return db.DateInTokyo(p.config.Now())
}

// PersistStatic persists all the enabled static kinds, keyed by the current
// date.
func (p *Planner) PersistStatic(ctx context.Context, retryFailed bool) *Summary {
	var kinds []*Kind
	for _, k := range p.kinds() {
		if k.IsStatic {
			kinds = append(kinds, k)
		}
	}
	return summarize(p.persistForDate(ctx, kinds, p.Today(), retryFailed), 0)
}
