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
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Registry maps dataset kind names to their rules. It is safe for concurrent
// use; in practice it is built once and then only read.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]*Rule
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]*Rule)}
}

// Set the rule for the kind, replacing any previous rule.
func (r *Registry) Set(kind string, rule *Rule) error {
	if err := rule.init(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[kind] = rule
	return nil
}

// Get the rule for the kind, or nil.
func (r *Registry) Get(kind string) *Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rules[kind]
}

// Kinds lists the kinds with rules in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := maps.Keys(r.rules)
	slices.Sort(kinds)
	return kinds
}

const (
	dateLayout = "2006-01-02"
	codeFormat = `^[A-Z0-9]{4,5}$`
)

var wholeDay = []string{"WholeDayOpen", "WholeDayHigh", "WholeDayLow", "WholeDayClose"}

// defaultRules are the rules of the J-Quants datasets, keyed by kind name.
func defaultRules() map[string]*Rule {
	return map[string]*Rule{
		"daily_quotes": {
			RequiredColumns: []string{"Date", "Code", "Open", "High", "Low", "Close", "Volume"},
			DateFormat:      dateLayout,
			NumericColumns:  []string{"Open", "High", "Low", "Close", "Volume"},
			PositiveColumns: []string{"Volume"},
			PriceRange:      []float64{0, 1000000},
			VolumeRange:     []float64{0, 1000000000},
			OHLC:            true,
		},
		"listed_info": {
			RequiredColumns: []string{"Date", "Code", "CompanyName", "MarketCode"},
			DateFormat:      dateLayout,
			StringColumns:   []string{"CompanyName", "MarketCode"},
		},
		"statements": {
			RequiredColumns: []string{"DisclosedDate", "LocalCode", "TypeOfDocument"},
			DateFormat:      dateLayout,
			CodeFormat:      codeFormat,
		},
		"announcement": {
			RequiredColumns: []string{"Date", "Code", "CompanyName"},
			DateFormat:      dateLayout,
			StringColumns:   []string{"CompanyName"},
			CodeFormat:      codeFormat,
		},
		"trades_spec": {
			RequiredColumns: []string{"PublishedDate", "StartDate", "EndDate", "Section"},
			DateFormat:      dateLayout,
			StringColumns:   []string{"Section"},
		},
		"topix": {
			RequiredColumns: []string{"Date", "Open", "High", "Low", "Close"},
			DateFormat:      dateLayout,
			NumericColumns:  []string{"Open", "High", "Low", "Close"},
			PositiveColumns: []string{"Open", "High", "Low", "Close"},
			OHLC:            true,
		},
		"index_option": {
			RequiredColumns: append([]string{"Date", "Code"}, wholeDay...),
			DateFormat:      dateLayout,
			NumericColumns:  wholeDay,
			PositiveColumns: wholeDay,
			OHLC:            true,
		},
		"weekly_margin_interest": {
			RequiredColumns: []string{"Date", "Code", "ShortMarginTradeVolume", "LongMarginTradeVolume"},
			DateFormat:      dateLayout,
			NumericColumns:  []string{"ShortMarginTradeVolume", "LongMarginTradeVolume"},
			PositiveColumns: []string{"ShortMarginTradeVolume", "LongMarginTradeVolume"},
		},
		"short_selling": {
			RequiredColumns: []string{"Date", "Sector33Code", "SellingExcludingShortSellingTurnoverValue"},
			DateFormat:      dateLayout,
			NumericColumns:  []string{"SellingExcludingShortSellingTurnoverValue"},
			PositiveColumns: []string{"SellingExcludingShortSellingTurnoverValue"},
		},
		"indices": {
			RequiredColumns: []string{"Date", "Code", "Open", "High", "Low", "Close"},
			DateFormat:      dateLayout,
			NumericColumns:  []string{"Open", "High", "Low", "Close"},
			PositiveColumns: []string{"Open", "High", "Low", "Close"},
			OHLC:            true,
		},
		"short_selling_positions": {
			RequiredColumns: []string{"DisclosedDate", "CalculatedDate", "Code", "ShortSellerName"},
			DateFormat:      dateLayout,
			StringColumns:   []string{"ShortSellerName"},
			CodeFormat:      codeFormat,
		},
		"breakdown": {
			RequiredColumns: []string{"Date", "Code", "LongSellValue", "LongBuyValue"},
			DateFormat:      dateLayout,
			NumericColumns:  []string{"LongSellValue", "LongBuyValue"},
			PositiveColumns: []string{"LongSellValue", "LongBuyValue"},
		},
		"prices_am": {
			RequiredColumns: []string{"Date", "Code", "MorningOpen", "MorningHigh", "MorningLow", "MorningClose"},
			DateFormat:      dateLayout,
			NumericColumns:  []string{"MorningOpen", "MorningHigh", "MorningLow", "MorningClose"},
			PositiveColumns: []string{"MorningOpen", "MorningHigh", "MorningLow", "MorningClose"},
			OHLC:            true,
		},
		"dividend": {
			RequiredColumns: []string{"AnnouncementDate", "Code", "ReferenceNumber"},
			DateFormat:      dateLayout,
			StringColumns:   []string{"ReferenceNumber"},
			CodeFormat:      codeFormat,
		},
		"fs_details": {
			RequiredColumns: []string{"DisclosedDate", "LocalCode", "TypeOfDocument"},
			DateFormat:      dateLayout,
			CodeFormat:      codeFormat,
		},
		"futures": {
			RequiredColumns: append([]string{"Date", "Code"}, wholeDay...),
			DateFormat:      dateLayout,
			NumericColumns:  wholeDay,
			PositiveColumns: wholeDay,
			OHLC:            true,
		},
		"options": {
			RequiredColumns: append([]string{"Date", "Code"}, wholeDay...),
			DateFormat:      dateLayout,
			NumericColumns:  wholeDay,
			PositiveColumns: wholeDay,
			OHLC:            true,
		},
		"market_segments": {
			RequiredColumns: []string{"MarketCode", "MarketCodeName"},
			StringColumns:   []string{"MarketCode", "MarketCodeName"},
		},
		"sectors_17": {
			RequiredColumns: []string{"Sector17Code", "Sector17CodeName"},
			StringColumns:   []string{"Sector17Code", "Sector17CodeName"},
		},
		"sectors_33": {
			RequiredColumns: []string{"Sector33Code", "Sector33CodeName"},
			StringColumns:   []string{"Sector33Code", "Sector33CodeName"},
		},
		"listed_companies": {
			RequiredColumns: []string{"Date", "Code", "CompanyName"},
			DateFormat:      dateLayout,
			StringColumns:   []string{"CompanyName"},
			CodeFormat:      codeFormat,
		},
	}
}

// DefaultRegistry creates a Registry with the rules of all the built-in
// dataset kinds.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for k, rule := range defaultRules() {
		if err := r.Set(k, rule); err != nil {
			panic(err) // built-in rules are always valid
		}
	}
	return r
}
