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
	"fmt"
	"math"
	"time"

	"github.com/stockparfait/errors"
)

// lessLex is a lexicographic ordering on the slices of int.
func lessLex(x, y []int) bool {
	l := len(x)
	if len(y) < l {
		l = len(y)
	}
	for i := 0; i < l; i++ {
		if x[i] < y[i] {
			return true
		}
		if x[i] > y[i] {
			return false
		}
	}
	return len(x) < len(y)
}

// ParseTime accepts the date and timestamp formats seen in the market data
// API responses and in the command line dates (YYYYMMDD).
func ParseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02",
		"20060102",
		"2006-01-02 15:04:05.999",
		"2006-01-02T15:04:05.999",
		"2006-01-02T15:04:05.999Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006/01/02",
	}
	var err error
	for _, f := range formats {
		var tm time.Time
		tm, err = time.Parse(f, s)
		if err == nil {
			return tm, nil
		}
	}
	return time.Time{}, err
}

// Date records a calendar date as year, month and day. The struct is designed
// to fit into 4 bytes and to be usable as a map key.
type Date struct {
	YearVal  uint16
	MonthVal uint8
	DayVal   uint8
}

// NewDate is the constructor for Date.
func NewDate(year uint16, month, day uint8) Date {
	return Date{year, month, day}
}

// NewDateFromTime creates a Date instance from a time.Time value, using its
// own location.
func NewDateFromTime(t time.Time) Date {
	return Date{
		YearVal:  uint16(t.Year()),
		MonthVal: uint8(t.Month()),
		DayVal:   uint8(t.Day()),
	}
}

// NewDateFromString creates a Date instance from a string representation,
// either YYYY-MM-DD, YYYYMMDD or a timestamp.
func NewDateFromString(s string) (Date, error) {
	t, err := ParseTime(s)
	if err != nil {
		return Date{}, errors.Annotate(err, "failed to parse a Date string: '%s'", s)
	}
	return NewDateFromTime(t), nil
}

// DateInTokyo returns the current date in the Tokyo timezone, which is the
// calendar of the exchange the data comes from.
func DateInTokyo(now time.Time) Date {
	tz := "Asia/Tokyo"
	location, err := time.LoadLocation(tz)
	if err != nil {
		// JST has no daylight saving, a fixed zone is exact.
		location = time.FixedZone("JST", 9*60*60)
	}
	return NewDateFromTime(now.In(location))
}

func (d Date) Year() uint16 { return d.YearVal }
func (d Date) Month() uint8 { return d.MonthVal }
func (d Date) Day() uint8   { return d.DayVal }

// String representation of the value, YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year(), d.Month(), d.Day())
}

// Compact representation YYYYMMDD, used in file names and API parameters.
func (d Date) Compact() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year(), d.Month(), d.Day())
}

// ToTime converts Date to Time in UTC.
func (d Date) ToTime() time.Time {
	return time.Date(int(d.Year()), time.Month(d.Month()), int(d.Day()), 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n days later (or earlier, for negative n).
func (d Date) AddDays(n int) Date {
	return NewDateFromTime(d.ToTime().AddDate(0, 0, n))
}

// Weekday of the date.
func (d Date) Weekday() time.Weekday {
	return d.ToTime().Weekday()
}

// IsWeekend is true for Saturdays and Sundays.
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// DaysTill is the number of days from d to d2, negative if d2 is earlier.
func (d Date) DaysTill(d2 Date) int {
	return int(math.Round(d2.ToTime().Sub(d.ToTime()).Hours() / 24))
}

// Before compares two Date objects for strict inequality (self < d2).
func (d Date) Before(d2 Date) bool {
	return lessLex([]int{int(d.Year()), int(d.Month()), int(d.Day())},
		[]int{int(d2.Year()), int(d2.Month()), int(d2.Day())})
}

// After compares two Date objects for strict inequality, self > d2.
func (d Date) After(d2 Date) bool {
	return d2.Before(d)
}

// IsZero checks whether the date has a zero value.
func (d Date) IsZero() bool {
	return d.Year() == 0 && d.Month() == 0 && d.Day() == 0
}

// InRange checks if d is in the inclusive date range. Any of the bounds may be
// zero value, in which case it's ignored.
func (d Date) InRange(start, end Date) bool {
	if d.IsZero() {
		return false
	}
	if !start.IsZero() && start.After(d) {
		return false
	}
	if !end.IsZero() && end.Before(d) {
		return false
	}
	return true
}

// DateRange lists every calendar date in the inclusive range [start, end].
func DateRange(start, end Date) []Date {
	var dates []Date
	for d := start; !d.After(end); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates
}

// Value is an arbitrary value of a dataset cell. A nil Value is a null.
type Value = interface{}

// IsNull checks for a missing value: nil or a float NaN.
func IsNull(v Value) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	return false
}

// Number converts a numeric Value to float64. The second result is false for
// nulls and for non-numeric values, including numeric-looking strings.
func Number(v Value) (float64, bool) {
	if IsNull(v) {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}

// isInt is true for integer-typed values.
func isInt(v Value) bool {
	switch v.(type) {
	case int, int32, int64, uint32, uint64:
		return true
	}
	return false
}

// toInt64 converts integer-typed values; anything else is 0.
func toInt64(v Value) int64 {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	}
	return 0
}

// ColumnType is the storage type of a dataset column, inferred from its
// non-null values.
type ColumnType int

const (
	TypeString ColumnType = iota // strings, mixed or all-null values
	TypeFloat
	TypeInt
	TypeBool
)

func (t ColumnType) String() string {
	switch t {
	case TypeFloat:
		return "float"
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	}
	return "string"
}

// InferType of a column of values. Integers mixed with floats are float; any
// other mix of kinds, or a column with no non-null values, is a string
// column.
func InferType(values []Value) ColumnType {
	var ints, floats, bools, strs, others int
	for _, v := range values {
		if IsNull(v) {
			continue
		}
		switch v.(type) {
		case bool:
			bools++
		case string:
			strs++
		case float64, float32:
			floats++
		default:
			if isInt(v) {
				ints++
			} else {
				others++
			}
		}
	}
	switch {
	case others > 0 || strs > 0 || (bools > 0 && ints+floats > 0):
		return TypeString
	case bools > 0:
		return TypeBool
	case floats > 0:
		return TypeFloat
	case ints > 0:
		return TypeInt
	}
	return TypeString
}
