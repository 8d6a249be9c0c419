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
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/stockparfait/marketdata/db"
	"github.com/stockparfait/marketdata/table"
)

// Status of a processing unit: one dataset kind for one date.
type Status int

const (
	Success Status = iota
	SkippedExists
	SkippedEmpty
	Failed
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case SkippedExists:
		return "already exists"
	case SkippedEmpty:
		return "empty data"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Unit identifies a processing unit. Date is zero for units without a date.
type Unit struct {
	Kind string
	Date db.Date
}

func (u Unit) String() string {
	if u.Date.IsZero() {
		return u.Kind
	}
	return u.Kind + "@" + u.Date.String()
}

// Result of processing a unit.
type Result struct {
	Unit
	Status  Status
	Records int
	Reason  string // for failures
	Path    string
}

func skipped(u Unit, s Status, path string) Result {
	return Result{Unit: u, Status: s, Path: path}
}

func failed(u Unit, path, format string, args ...interface{}) Result {
	return Result{Unit: u, Status: Failed, Path: path, Reason: fmt.Sprintf(format, args...)}
}

// Skip is a skipped unit with the reason.
type Skip struct {
	Unit
	Reason string
}

// Failure is a failed unit with the reason.
type Failure struct {
	Unit
	Reason string
}

// Summary of a run.
type Summary struct {
	ID            string
	Success       []Unit
	Skipped       []Skip
	Failed        []Failure
	Records       int
	APICallsSaved int
}

// NewSummary creates an empty Summary with a new run ID.
func NewSummary() *Summary {
	return &Summary{ID: uuid.NewString()}
}

// summarize the results of a run.
func summarize(results []Result, saved int) *Summary {
	s := NewSummary()
	for _, r := range results {
		s.Add(r)
	}
	s.APICallsSaved = saved
	return s
}

// Add the result of a unit to the summary.
func (s *Summary) Add(r Result) {
	switch r.Status {
	case Success:
		s.Success = append(s.Success, r.Unit)
		s.Records += r.Records
	case SkippedExists, SkippedEmpty:
		s.Skipped = append(s.Skipped, Skip{Unit: r.Unit, Reason: r.Status.String()})
	default:
		s.Failed = append(s.Failed, Failure{Unit: r.Unit, Reason: r.Reason})
	}
}

// Merge another summary into s. The run ID of s is kept.
func (s *Summary) Merge(other *Summary) {
	if other == nil {
		return
	}
	s.Success = append(s.Success, other.Success...)
	s.Skipped = append(s.Skipped, other.Skipped...)
	s.Failed = append(s.Failed, other.Failed...)
	s.Records += other.Records
	s.APICallsSaved += other.APICallsSaved
}

// Table of the summary counts, for printing.
func (s *Summary) Table() *table.Table {
	t := table.NewTable("Run", "Success", "Skipped", "Failed", "Records", "API calls saved")
	t.AddRow(table.Strings{
		s.ID,
		strconv.Itoa(len(s.Success)),
		strconv.Itoa(len(s.Skipped)),
		strconv.Itoa(len(s.Failed)),
		strconv.Itoa(s.Records),
		strconv.Itoa(s.APICallsSaved),
	})
	return t
}

// FailureTable lists the failed units, for printing.
func (s *Summary) FailureTable() *table.Table {
	t := table.NewTable("Kind", "Date", "Reason")
	for _, f := range s.Failed {
		date := ""
		if !f.Date.IsZero() {
			date = f.Date.String()
		}
		t.AddRow(table.Strings{f.Kind, date, f.Reason})
	}
	return t
}

// retry replaces the failed results with the results of their retries.
// Retried results for units which did not fail are ignored, so a unit is
// reclassified at most once.
func retry(results, retried []Result) {
	failedAt := make(map[Unit]int)
	for i, r := range results {
		if r.Status == Failed {
			failedAt[r.Unit] = i
		}
	}
	for _, r := range retried {
		if i, ok := failedAt[r.Unit]; ok {
			results[i] = r
			delete(failedAt, r.Unit)
		}
	}
}

// failedUnits of the results.
func failedUnits(results []Result) []Unit {
	var res []Unit
	for _, r := range results {
		if r.Status == Failed {
			res = append(res, r.Unit)
		}
	}
	return res
}
