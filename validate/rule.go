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
	"regexp"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/marketdata/message"
)

// Rule is a declarative set of checks for one dataset kind. Rules never modify
// the datasets they check.
type Rule struct {
	RequiredColumns []string  `yaml:"required_columns"`
	DateFormat      string    `yaml:"date_format"` // Go layout or strftime
	NumericColumns  []string  `yaml:"numeric_columns"`
	StringColumns   []string  `yaml:"string_columns"`
	PositiveColumns []string  `yaml:"positive_columns"` // must be non-negative
	PriceRange      []float64 `yaml:"price_range"`      // [min, max] of Open/High/Low/Close
	VolumeRange     []float64 `yaml:"volume_range"`     // accepted but not checked
	OHLC            bool      `yaml:"ohlc_validation"`
	CodeFormat      string    `yaml:"code_format"` // regexp for the Code column

	code *regexp.Regexp
}

var _ message.Message = &Rule{}

// InitMessage implements message.Message.
func (r *Rule) InitMessage(js interface{}) error {
	if err := message.Init(r, js); err != nil {
		return err
	}
	return r.init()
}

// init normalizes and checks the declared values.
func (r *Rule) init() error {
	for _, p := range []struct {
		name string
		rng  []float64
	}{{"price_range", r.PriceRange}, {"volume_range", r.VolumeRange}} {
		if len(p.rng) == 0 {
			continue
		}
		if len(p.rng) != 2 || p.rng[0] > p.rng[1] {
			return errors.Reason("%s must be [min, max], got %v", p.name, p.rng)
		}
	}
	r.DateFormat = Layout(r.DateFormat)
	if r.CodeFormat != "" {
		// Codes must match from their first character.
		re, err := regexp.Compile("^(?:" + r.CodeFormat + ")")
		if err != nil {
			return errors.Annotate(err, "invalid code_format")
		}
		r.code = re
	}
	return nil
}

// HasPriceRange is true when the price range is declared.
func (r *Rule) HasPriceRange() bool {
	return len(r.PriceRange) == 2
}

var strftime = strings.NewReplacer(
	"%Y", "2006",
	"%m", "01",
	"%d", "02",
	"%H", "15",
	"%M", "04",
	"%S", "05",
)

// Layout converts a strftime date format like "%Y-%m-%d" to the equivalent Go
// layout. Go layouts are returned unchanged.
func Layout(format string) string {
	if !strings.Contains(format, "%") {
		return format
	}
	return strftime.Replace(format)
}
