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

// Package jquants is a client for the J-Quants market data API.
//
// Each API endpoint is identified by its path relative to the base URL, e.g.
// "prices/daily_quotes", and has a fixed call shape: no date parameter, a
// single date parameter, or a from/to span. The Client implements the three
// kinds of fetches used by the persistence planner on top of these shapes:
//
//   ctx = fetch.UseClient(ctx, http.DefaultClient)
//   c := jquants.NewClient(idToken)
//   d, err := c.FetchOne(ctx, "prices/daily_quotes", db.NewDate(2024, 1, 5))
//
// Paging with pagination_key is handled transparently. A response without the
// expected result key, such as {"message": "..."}, is reported as empty data.
package jquants
