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

package jquants

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Shape is the calling convention of an endpoint with respect to dates.
type Shape int

const (
	ShapeNone Shape = iota // no date parameter
	ShapeDate              // a single date parameter
	ShapeSpan              // "from" and "to" date parameters
)

func (s Shape) String() string {
	switch s {
	case ShapeNone:
		return "none"
	case ShapeDate:
		return "date"
	case ShapeSpan:
		return "span"
	}
	return "unknown"
}

// Endpoint of the API.
type Endpoint struct {
	Key       string // the key of the records list in the response
	Shape     Shape
	DateParam string // for ShapeDate
}

// Endpoints supported by the Client, keyed by the path relative to the base
// URL. The path is also the method name used in the catalog.
var Endpoints = map[string]Endpoint{
	"listed/info":                     {Key: "info", Shape: ShapeDate, DateParam: "date"},
	"prices/daily_quotes":             {Key: "daily_quotes", Shape: ShapeDate, DateParam: "date"},
	"prices/prices_am":                {Key: "prices_am", Shape: ShapeNone},
	"markets/trades_spec":             {Key: "trades_spec", Shape: ShapeSpan},
	"markets/weekly_margin_interest":  {Key: "weekly_margin_interest", Shape: ShapeDate, DateParam: "date"},
	"markets/short_selling":           {Key: "short_selling", Shape: ShapeDate, DateParam: "date"},
	"markets/short_selling_positions": {Key: "short_selling_positions", Shape: ShapeDate, DateParam: "calculated_date"},
	"markets/breakdown":               {Key: "breakdown", Shape: ShapeDate, DateParam: "date"},
	"markets/trading_calendar":        {Key: "trading_calendar", Shape: ShapeSpan},
	"indices":                         {Key: "indices", Shape: ShapeDate, DateParam: "date"},
	"indices/topix":                   {Key: "topix", Shape: ShapeSpan},
	"fins/statements":                 {Key: "statements", Shape: ShapeDate, DateParam: "date"},
	"fins/fs_details":                 {Key: "fs_details", Shape: ShapeDate, DateParam: "date"},
	"fins/dividend":                   {Key: "dividend", Shape: ShapeDate, DateParam: "date"},
	"fins/announcement":               {Key: "announcement", Shape: ShapeNone},
	"option/index_option":             {Key: "index_option", Shape: ShapeDate, DateParam: "date"},
	"derivatives/futures":             {Key: "futures", Shape: ShapeDate, DateParam: "date"},
	"derivatives/options":             {Key: "options", Shape: ShapeDate, DateParam: "date"},
}

// Known checks whether the method is an endpoint or a built-in table.
func Known(method string) bool {
	if _, ok := Endpoints[method]; ok {
		return true
	}
	_, ok := builtinTables[method]
	return ok
}

// Methods lists all the known methods in sorted order.
func Methods() []string {
	res := append(maps.Keys(Endpoints), maps.Keys(builtinTables)...)
	slices.Sort(res)
	return res
}
