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

package validate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stockparfait/logging"
	"github.com/stockparfait/marketdata/db"
	"gonum.org/v1/gonum/floats"
)

// EmptyData is the only error reported for a dataset without rows.
const EmptyData = "data is empty"

// maxDateSpanDays is the largest span of the Date column in a single dataset.
// Wider spans usually mean the source returned historical rows by mistake.
const maxDateSpanDays = 365

// Name fragments of date-like columns which do not actually hold dates.
var notDateColumns = []string{"consolidated", "updated", "modified", "created", "published", "dated"}

// OHLC column sets checked for price consistency.
var ohlcSets = [][4]string{
	{"Open", "High", "Low", "Close"},
	{"MorningOpen", "MorningHigh", "MorningLow", "MorningClose"},
	{"WholeDayOpen", "WholeDayHigh", "WholeDayLow", "WholeDayClose"},
}

var priceColumns = []string{"Open", "High", "Low", "Close"}

// Validator checks datasets against the rules of their kinds.
type Validator struct {
	registry *Registry
}

// NewValidator creates a Validator using the given rules.
func NewValidator(r *Registry) *Validator {
	return &Validator{registry: r}
}

// Validate the dataset of the given kind. All the checks are run and all the
// problems are reported, in a fixed order of the checks. A kind without a rule
// is always valid.
func (v *Validator) Validate(ctx context.Context, kind string, d *db.Dataset) (bool, []string) {
	if d.Empty() {
		return false, []string{EmptyData}
	}
	rule := v.registry.Get(kind)
	if rule == nil {
		logging.Warningf(ctx, "no validation rule for %s", kind)
		return true, nil
	}
	var errs []string
	errs = append(errs, checkRequired(d, rule)...)
	errs = append(errs, checkTypes(d, rule)...)
	errs = append(errs, checkRanges(d, rule)...)
	errs = append(errs, checkDateFormat(d, rule)...)
	if rule.OHLC {
		errs = append(errs, checkOHLC(d)...)
	}
	if rule.code != nil {
		errs = append(errs, checkCodes(d, rule)...)
	}
	errs = append(errs, checkDuplicates(d)...)
	errs = append(errs, checkDateSpan(d)...)
	if len(errs) > 0 {
		logging.Errorf(ctx, "validation of %s failed: %s", kind, strings.Join(errs, "; "))
		return false, errs
	}
	return true, nil
}

func checkRequired(d *db.Dataset, r *Rule) []string {
	var missing []string
	for _, c := range r.RequiredColumns {
		if !d.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return []string{"missing required columns: " + strings.Join(missing, ", ")}
}

func checkTypes(d *db.Dataset, r *Rule) []string {
	var errs []string
	for _, c := range r.NumericColumns {
		for _, x := range d.Column(c) {
			if _, ok := db.Number(x); !ok && !db.IsNull(x) {
				errs = append(errs, fmt.Sprintf("column %s should be numeric", c))
				break
			}
		}
	}
	for _, c := range r.StringColumns {
		for _, x := range d.Column(c) {
			if _, ok := x.(string); !ok && !db.IsNull(x) {
				errs = append(errs, fmt.Sprintf("column %s should be string", c))
				break
			}
		}
	}
	return errs
}

// numbers collects the numeric values of a column, skipping everything else.
func numbers(values []db.Value) []float64 {
	res := make([]float64, 0, len(values))
	for _, x := range values {
		if f, ok := db.Number(x); ok {
			res = append(res, f)
		}
	}
	return res
}

func checkRanges(d *db.Dataset, r *Rule) []string {
	var errs []string
	for _, c := range r.PositiveColumns {
		if xs := numbers(d.Column(c)); len(xs) > 0 && floats.Min(xs) < 0 {
			errs = append(errs, fmt.Sprintf("column %s contains negative values", c))
		}
	}
	if !r.HasPriceRange() {
		return errs
	}
	lo, hi := r.PriceRange[0], r.PriceRange[1]
	for _, c := range priceColumns {
		xs := numbers(d.Column(c))
		if len(xs) > 0 && (floats.Min(xs) < lo || floats.Max(xs) > hi) {
			errs = append(errs, fmt.Sprintf("column %s contains values outside range [%s, %s]",
				c, db.Text(lo), db.Text(hi)))
		}
	}
	return errs
}

// isDateColumn selects the columns subject to the date format check.
func isDateColumn(name string) bool {
	if name == "Date" {
		return true
	}
	lower := strings.ToLower(name)
	if !strings.Contains(lower, "date") {
		return false
	}
	for _, k := range notDateColumns {
		if strings.Contains(lower, k) {
			return false
		}
	}
	return true
}

func checkDateFormat(d *db.Dataset, r *Rule) []string {
	if r.DateFormat == "" {
		return nil
	}
	var errs []string
	for _, c := range d.Columns() {
		if !isDateColumn(c) {
			continue
		}
		for _, x := range d.Column(c) {
			if db.IsNull(x) {
				continue
			}
			s, ok := x.(string)
			if c == "PayableDate" && ok && (s == "" || s == "-") {
				continue
			}
			if ok {
				if _, err := time.Parse(r.DateFormat, s); err == nil {
					continue
				}
			}
			errs = append(errs, fmt.Sprintf(
				"column %s has invalid date format, expected %s", c, r.DateFormat))
			break
		}
	}
	return errs
}

func checkOHLC(d *db.Dataset) []string {
	var errs []string
	for _, set := range ohlcSets {
		if !(d.Has(set[0]) && d.Has(set[1]) && d.Has(set[2]) && d.Has(set[3])) {
			continue
		}
		open, high, low, cls := d.Column(set[0]), d.Column(set[1]), d.Column(set[2]), d.Column(set[3])
		var badRange, badHigh, badLow int
		for i := 0; i < d.Len(); i++ {
			o, okO := db.Number(open[i])
			h, okH := db.Number(high[i])
			l, okL := db.Number(low[i])
			c, okC := db.Number(cls[i])
			if okH && okL && h < l {
				badRange++
			}
			if okH && ((okO && h < o) || (okC && h < c)) {
				badHigh++
			}
			if okL && ((okO && l > o) || (okC && l > c)) {
				badLow++
			}
		}
		if badRange > 0 {
			errs = append(errs, fmt.Sprintf("found %d records with %s < %s", badRange, set[1], set[2]))
		}
		if badHigh > 0 {
			errs = append(errs, fmt.Sprintf(
				"found %d records where %s is not the highest price", badHigh, set[1]))
		}
		if badLow > 0 {
			errs = append(errs, fmt.Sprintf(
				"found %d records where %s is not the lowest price", badLow, set[2]))
		}
	}
	return errs
}

// checkCodes applies the code format to the Code column only; other code
// columns like LocalCode are not checked.
func checkCodes(d *db.Dataset, r *Rule) []string {
	var bad int
	for _, x := range d.Column("Code") {
		if !r.code.MatchString(db.Text(x)) {
			bad++
		}
	}
	if bad == 0 {
		return nil
	}
	return []string{fmt.Sprintf("column Code contains %d malformed codes", bad)}
}

// checkDuplicates counts the rows repeating an earlier (Date, Code) pair.
func checkDuplicates(d *db.Dataset) []string {
	if !d.Has("Date") || !d.Has("Code") {
		return nil
	}
	dates, codes := d.Column("Date"), d.Column("Code")
	seen := make(map[[2]string]struct{}, d.Len())
	var dups int
	for i := 0; i < d.Len(); i++ {
		k := [2]string{db.Text(dates[i]), db.Text(codes[i])}
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	if dups == 0 {
		return nil
	}
	return []string{fmt.Sprintf("found %d duplicate records", dups)}
}

// checkDateSpan flags a Date column spanning more than a year. Values which do
// not parse as dates are left to the date format check.
func checkDateSpan(d *db.Dataset) []string {
	var secs []float64
	for _, x := range d.Column("Date") {
		s, ok := x.(string)
		if !ok {
			continue
		}
		t, err := db.ParseTime(s)
		if err != nil {
			continue
		}
		secs = append(secs, float64(t.Unix()))
	}
	if len(secs) < 2 {
		return nil
	}
	// Only whole days count towards the span.
	if int((floats.Max(secs)-floats.Min(secs))/(24*60*60)) > maxDateSpanDays {
		return []string{"date range too large, may contain historical data contamination"}
	}
	return nil
}
