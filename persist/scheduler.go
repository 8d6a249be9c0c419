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
	"github.com/stockparfait/iterator"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/marketdata/db"
	"golang.org/x/exp/slices"
)

// Default Scheduler parameters.
const (
	DefaultChunkSize = 7
	DefaultWorkers   = 3
)

// Chunk is an inclusive range of dates.
type Chunk struct {
	Start db.Date
	End   db.Date
}

func (c Chunk) String() string {
	return "[" + c.Start.String() + ", " + c.End.String() + "]"
}

// Days is the number of dates in the chunk.
func (c Chunk) Days() int {
	return c.Start.DaysTill(c.End) + 1
}

// HasWeekday checks whether any date of the chunk is a weekday.
func (c Chunk) HasWeekday() bool {
	for _, d := range db.DateRange(c.Start, c.End) {
		if !d.IsWeekend() {
			return true
		}
	}
	return false
}

// Chunks splits the inclusive range into contiguous chunks of size days, the
// last one possibly shorter.
func Chunks(start, end db.Date, size int) ([]Chunk, error) {
	if size < 1 {
		return nil, errors.Reason("chunk size must be positive, got %d", size)
	}
	if start.After(end) {
		return nil, errors.Reason("start date %s is after end date %s", start, end)
	}
	var res []Chunk
	for s := start; !s.After(end); {
		e := s.AddDays(size - 1)
		if e.After(end) {
			e = end
		}
		res = append(res, Chunk{Start: s, End: e})
		s = e.AddDays(1)
	}
	return res, nil
}

// Scheduler splits long date ranges into chunks and persists them in
// parallel, each chunk by its own Planner.
type Scheduler struct {
	Config       Config
	ChunkSize    int  // default DefaultChunkSize
	Workers      int  // default DefaultWorkers
	SkipWeekends bool // drop the chunks without weekdays
	RetryFailed  bool // retry the chunks with failures once
}

// Plan lists the chunks to be processed for the range.
func (s *Scheduler) Plan(start, end db.Date) ([]Chunk, error) {
	size := s.ChunkSize
	if size == 0 {
		size = DefaultChunkSize
	}
	chunks, err := Chunks(start, end, size)
	if err != nil {
		return nil, err
	}
	if !s.SkipWeekends {
		return chunks, nil
	}
	var res []Chunk
	for _, c := range chunks {
		if c.HasWeekday() {
			res = append(res, c)
		}
	}
	return res, nil
}

type chunkResult struct {
	chunk   Chunk
	results []Result
	saved   int
}

func (c chunkResult) failed() bool {
	return len(failedUnits(c.results)) > 0
}

// runChunks processes the chunks in parallel and returns their results in
// the order of the chunks.
func (s *Scheduler) runChunks(ctx context.Context, chunks []Chunk) []chunkResult {
	workers := s.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}
	f := func(c Chunk) chunkResult {
		p := NewPlanner(s.Config)
		// Retries are done for whole chunks, so the units are not retried here.
		results, saved := p.persistRange(ctx, c.Start, c.End, false)
		logging.Infof(ctx, "chunk %s: %d units, %d failed",
			c, len(results), len(failedUnits(results)))
		return chunkResult{chunk: c, results: results, saved: saved}
	}
	pm := iterator.ParallelMap(ctx, workers, iterator.FromSlice(chunks), f)
	defer pm.Close()

	res := iterator.Reduce[chunkResult, []chunkResult](pm, []chunkResult{},
		func(r chunkResult, acc []chunkResult) []chunkResult {
			return append(acc, r)
		})
	slices.SortFunc(res, func(a, b chunkResult) bool {
		return a.chunk.Start.Before(b.chunk.Start)
	})
	return res
}

// Run persists all the enabled kinds for the range. Only the errors in the
// range or the chunk size are returned; failures of individual units are
// reported in the summary.
func (s *Scheduler) Run(ctx context.Context, start, end db.Date) (*Summary, error) {
	chunks, err := s.Plan(start, end)
	if err != nil {
		return nil, errors.Annotate(err, "invalid range")
	}
	logging.Infof(ctx, "processing %d chunks of [%s, %s]", len(chunks), start, end)
	results := s.runChunks(ctx, chunks)

	if s.RetryFailed {
		var again []Chunk
		index := make(map[Chunk]int)
		for i, r := range results {
			if r.failed() {
				again = append(again, r.chunk)
				index[r.chunk] = i
			}
		}
		if len(again) > 0 {
			logging.Infof(ctx, "retrying %d failed chunks", len(again))
			for _, r := range s.runChunks(ctx, again) {
				retry(results[index[r.chunk]].results, r.results)
			}
		}
	}
	summary := NewSummary()
	for _, r := range results {
		summary.Merge(summarize(r.results, r.saved))
	}
	return summary, nil
}
