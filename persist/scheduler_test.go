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
	"os"
	"testing"

	"github.com/stockparfait/marketdata/db"

	. "github.com/smartystreets/goconvey/convey"
)

func TestScheduler(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	Convey("Chunks work", t, func() {
		Convey("15 days by 7", func() {
			start := db.NewDate(2024, 1, 1)
			end := db.NewDate(2024, 1, 15)
			chunks, err := Chunks(start, end, 7)
			So(err, ShouldBeNil)
			So(chunks, ShouldResemble, []Chunk{
				{Start: db.NewDate(2024, 1, 1), End: db.NewDate(2024, 1, 7)},
				{Start: db.NewDate(2024, 1, 8), End: db.NewDate(2024, 1, 14)},
				{Start: db.NewDate(2024, 1, 15), End: db.NewDate(2024, 1, 15)},
			})
			So(chunks[0].Days(), ShouldEqual, 7)
			So(chunks[2].Days(), ShouldEqual, 1)
			So(chunks[1].String(), ShouldEqual, "[2024-01-08, 2024-01-14]")
		})

		Convey("across month and year ends", func() {
			chunks, err := Chunks(db.NewDate(2023, 12, 30), db.NewDate(2024, 1, 2), 3)
			So(err, ShouldBeNil)
			So(chunks, ShouldResemble, []Chunk{
				{Start: db.NewDate(2023, 12, 30), End: db.NewDate(2024, 1, 1)},
				{Start: db.NewDate(2024, 1, 2), End: db.NewDate(2024, 1, 2)},
			})
		})

		Convey("a single day", func() {
			d := db.NewDate(2024, 1, 5)
			chunks, err := Chunks(d, d, 7)
			So(err, ShouldBeNil)
			So(chunks, ShouldResemble, []Chunk{{Start: d, End: d}})
		})

		Convey("invalid arguments", func() {
			_, err := Chunks(db.NewDate(2024, 1, 1), db.NewDate(2024, 1, 5), 0)
			So(err, ShouldNotBeNil)
			_, err = Chunks(db.NewDate(2024, 1, 5), db.NewDate(2024, 1, 1), 7)
			So(err, ShouldNotBeNil)
		})

		Convey("weekend detection", func() {
			So(Chunk{Start: db.NewDate(2024, 1, 6), End: db.NewDate(2024, 1, 7)}.HasWeekday(), ShouldBeFalse)
			So(Chunk{Start: db.NewDate(2024, 1, 6), End: db.NewDate(2024, 1, 8)}.HasWeekday(), ShouldBeTrue)
		})
	})

	Convey("Scheduler works", t, func() {
		root, err := os.MkdirTemp("", "testscheduler")
		So(err, ShouldBeNil)
		defer os.RemoveAll(root)

		src := newTestSource()
		p := testPlanner(root, src)
		config := p.config
		config.Constraints = db.NewConstraints().Kind("daily_quotes", "listed_info")
		start, end := db.NewDate(2024, 1, 1), db.NewDate(2024, 1, 15)
		dates := db.DateRange(start, end)
		src.data["prices/daily_quotes"] = testQuotes(dates...)
		info := db.NewDataset()
		for _, d := range dates {
			info.Append(testListedInfo(d))
		}
		src.data["listed/info"] = info

		Convey("Plan", func() {
			s := &Scheduler{Config: config, ChunkSize: 1, SkipWeekends: true}
			chunks, err := s.Plan(db.NewDate(2024, 1, 5), db.NewDate(2024, 1, 8))
			So(err, ShouldBeNil)
			So(chunks, ShouldResemble, []Chunk{
				{Start: db.NewDate(2024, 1, 5), End: db.NewDate(2024, 1, 5)},
				{Start: db.NewDate(2024, 1, 8), End: db.NewDate(2024, 1, 8)},
			})
			s.SkipWeekends = false
			chunks, err = s.Plan(db.NewDate(2024, 1, 5), db.NewDate(2024, 1, 8))
			So(err, ShouldBeNil)
			So(len(chunks), ShouldEqual, 4)

			_, err = (&Scheduler{Config: config, ChunkSize: -1}).Plan(start, end)
			So(err, ShouldNotBeNil)
		})

		Convey("Run in parallel", func() {
			s := &Scheduler{Config: config, Workers: 3}
			summary, err := s.Run(ctx, start, end)
			So(err, ShouldBeNil)
			So(summary.Failed, ShouldBeEmpty)
			So(len(summary.Success), ShouldEqual, 30)
			So(summary.Records, ShouldEqual, 45)
			// Chunks of 7, 7 and 1 days.
			So(summary.APICallsSaved, ShouldEqual, 6+6+0)
			So(src.Calls("prices/daily_quotes"), ShouldEqual, 3)
			So(src.Calls("listed/info"), ShouldEqual, 15)
			So(summary.Success[0], ShouldResemble, Unit{Kind: "daily_quotes", Date: start})

			Convey("and skip everything the second time", func() {
				summary, err := s.Run(ctx, start, end)
				So(err, ShouldBeNil)
				So(summary.Success, ShouldBeEmpty)
				So(len(summary.Skipped), ShouldEqual, 30)
				So(summary.APICallsSaved, ShouldEqual, 0)
				So(src.Calls("prices/daily_quotes"), ShouldEqual, 3)
			})
		})

		Convey("Run sequentially with chunk retries", func() {
			src.fail["prices/daily_quotes"] = 1
			s := &Scheduler{Config: config, Workers: 1, RetryFailed: true}
			summary, err := s.Run(ctx, start, end)
			So(err, ShouldBeNil)
			So(summary.Failed, ShouldBeEmpty)
			So(len(summary.Success), ShouldEqual, 30)
			So(src.Calls("prices/daily_quotes"), ShouldEqual, 4)
			So(src.Calls("listed/info"), ShouldEqual, 15)
		})

		Convey("Run reports failures without retries", func() {
			src.fail["prices/daily_quotes"] = 1
			s := &Scheduler{Config: config, Workers: 1}
			summary, err := s.Run(ctx, start, end)
			So(err, ShouldBeNil)
			So(len(summary.Failed), ShouldEqual, 7)
			So(len(summary.Success), ShouldEqual, 23)
		})

		Convey("Run rejects bad ranges", func() {
			s := &Scheduler{Config: config}
			_, err := s.Run(ctx, end, start)
			So(err, ShouldNotBeNil)
		})
	})
}
