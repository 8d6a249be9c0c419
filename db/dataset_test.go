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
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDataset(t *testing.T) {
	t.Parallel()

	Convey("Dataset works", t, func() {
		d := NewDataset("Date", "Code", "Close")
		So(d.AddRow("2024-01-05", "72030", 2500.5), ShouldBeNil)
		So(d.AddRow("2024-01-05", "67580", nil), ShouldBeNil)

		Convey("read methods", func() {
			So(d.Len(), ShouldEqual, 2)
			So(d.Empty(), ShouldBeFalse)
			So(d.Columns(), ShouldResemble, []string{"Date", "Code", "Close"})
			So(d.Has("Code"), ShouldBeTrue)
			So(d.Has("Open"), ShouldBeFalse)
			So(d.Column("Close"), ShouldResemble, []Value{2500.5, nil})
			So(d.Column("Open"), ShouldBeNil)
			So(d.Row(1), ShouldResemble, []Value{"2024-01-05", "67580", nil})
			So(d.Type("Close"), ShouldEqual, TypeFloat)
		})

		Convey("nil and empty datasets", func() {
			var n *Dataset
			So(n.Len(), ShouldEqual, 0)
			So(n.Empty(), ShouldBeTrue)
			So(n.Has("Date"), ShouldBeFalse)
			So(n.Columns(), ShouldBeNil)
			So(NewDataset("A").Empty(), ShouldBeTrue)
		})

		Convey("AddRow checks the row size", func() {
			So(d.AddRow("2024-01-05"), ShouldNotBeNil)
			So(d.Len(), ShouldEqual, 2)
		})

		Convey("AddRecord adds new columns", func() {
			So(d.AddRecord([]string{"Code", "Volume"}, []Value{"13010", int64(100)}), ShouldBeNil)
			So(d.Len(), ShouldEqual, 3)
			So(d.Columns(), ShouldResemble, []string{"Date", "Code", "Close", "Volume"})
			So(d.Column("Volume"), ShouldResemble, []Value{nil, nil, int64(100)})
			So(d.Column("Date"), ShouldResemble, []Value{"2024-01-05", "2024-01-05", nil})
			So(d.AddRecord([]string{"Code"}, nil), ShouldNotBeNil)
		})

		Convey("Append merges columns by name", func() {
			other := NewDataset("Code", "Date")
			So(other.AddRow("99840", "2024-01-06"), ShouldBeNil)
			d.Append(other)
			So(d.Len(), ShouldEqual, 3)
			So(d.Row(2), ShouldResemble, []Value{"2024-01-06", "99840", nil})

			e := NewDataset()
			e.Append(d)
			So(e.Len(), ShouldEqual, 3)
			So(e.Columns(), ShouldResemble, d.Columns())
			e.Append(nil)
			So(e.Len(), ShouldEqual, 3)
		})

		Convey("Filter keeps the selected rows", func() {
			f := d.Filter(func(i int) bool { return d.Column("Code")[i] == "67580" })
			So(f.Len(), ShouldEqual, 1)
			So(f.Columns(), ShouldResemble, d.Columns())
			So(f.Row(0), ShouldResemble, []Value{"2024-01-05", "67580", nil})
		})

		Convey("FillNulls by column type", func() {
			ds := NewDataset("F", "I", "B", "S", "M", "N")
			So(ds.AddRow(1.5, int64(3), true, "a", "x", nil), ShouldBeNil)
			So(ds.AddRow(math.NaN(), nil, nil, nil, 2.0, nil), ShouldBeNil)
			f := ds.FillNulls()
			So(f.Column("F"), ShouldResemble, []Value{1.5, 0.0})
			So(f.Column("I"), ShouldResemble, []Value{int64(3), int64(0)})
			So(f.Column("B"), ShouldResemble, []Value{true, false})
			So(f.Column("S"), ShouldResemble, []Value{"a", ""})
			So(f.Column("M"), ShouldResemble, []Value{"x", "2"})
			So(f.Column("N"), ShouldResemble, []Value{"", ""})
			So(f.Len(), ShouldEqual, 2)
			// The original is not modified.
			So(ds.Column("I"), ShouldResemble, []Value{int64(3), nil})
		})
	})
}
