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

package main

import (
	"context"
	"flag"
	"io"
	"os"
	"strconv"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/marketdata/config"
	"github.com/stockparfait/marketdata/db"
	"github.com/stockparfait/marketdata/jquants"
	"github.com/stockparfait/marketdata/persist"
	"github.com/stockparfait/marketdata/table"
)

type Flags struct {
	Config       string
	Catalog      string
	OutputDir    string
	Start        db.Date // required
	End          db.Date // required
	Workers      int     // 0: from config
	ChunkSize    int     // 0: from config
	SkipWeekends bool
	RetryFailed  bool
	DryRun       bool // only print the chunks
	Strict       bool
	Kinds        []string
	Exclude      []string
	LogLevel     logging.Level
}

func parseDate(name, value string) (db.Date, error) {
	if value == "" {
		return db.Date{}, errors.Reason("missing required -%s argument", name)
	}
	d, err := db.NewDateFromString(value)
	if err != nil {
		return db.Date{}, errors.Annotate(err, "invalid -%s", name)
	}
	return d, nil
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	var start, end, kinds, exclude string
	fs := flag.NewFlagSet("persist-range", flag.ExitOnError)
	fs.StringVar(&flags.Config, "config", "", "config file (TOML)")
	fs.StringVar(&flags.Catalog, "catalog", "", "dataset catalog (YAML)")
	fs.StringVar(&flags.OutputDir, "output-dir", "", "output directory")
	fs.StringVar(&start, "start", "", "first date, YYYYMMDD (required)")
	fs.StringVar(&end, "end", "", "last date, YYYYMMDD (required)")
	fs.IntVar(&flags.Workers, "workers", 0, "number of parallel workers; default: from config")
	fs.IntVar(&flags.ChunkSize, "chunk-size", 0, "days per chunk; default: from config")
	fs.BoolVar(&flags.SkipWeekends, "skip-weekends", false, "skip the chunks with only weekend days")
	fs.BoolVar(&flags.RetryFailed, "retry-failed", false, "retry the failed chunks once")
	fs.BoolVar(&flags.DryRun, "dry-run", false, "print the chunks without persisting anything")
	fs.BoolVar(&flags.Strict, "strict", false, "exit with an error if any unit failed")
	fs.StringVar(&kinds, "kinds", "", "comma separated kinds to persist; default: all")
	fs.StringVar(&exclude, "exclude", "", "comma separated kinds to skip")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	var err error
	if flags.Start, err = parseDate("start", start); err != nil {
		return nil, err
	}
	if flags.End, err = parseDate("end", end); err != nil {
		return nil, err
	}
	if flags.Start.After(flags.End) {
		return nil, errors.Reason("-start %s is after -end %s", flags.Start, flags.End)
	}
	if flags.Workers < 0 || flags.ChunkSize < 0 {
		return nil, errors.Reason("-workers and -chunk-size must not be negative")
	}
	flags.Kinds = config.ParseList(kinds)
	flags.Exclude = config.ParseList(exclude)
	return &flags, nil
}

var newSource = func(token string) persist.Source {
	return jquants.NewClient(token, nil)
}

func scheduler(flags *Flags) (*persist.Scheduler, error) {
	c, err := config.Load(flags.Config)
	if err != nil {
		return nil, errors.Annotate(err, "failed to load config")
	}
	if flags.Catalog != "" {
		c.Catalog = flags.Catalog
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.ChunkSize > 0 {
		c.ChunkSize = flags.ChunkSize
	}
	pc, err := c.Persist(newSource(c.Token), flags.Kinds, flags.Exclude)
	if err != nil {
		return nil, err
	}
	return &persist.Scheduler{
		Config:       pc,
		ChunkSize:    c.ChunkSize,
		Workers:      c.Workers,
		SkipWeekends: flags.SkipWeekends,
		RetryFailed:  flags.RetryFailed,
	}, nil
}

func chunksTable(chunks []persist.Chunk) *table.Table {
	t := table.NewTable("Start", "End", "Days")
	for _, c := range chunks {
		t.AddRow(table.Strings{c.Start.String(), c.End.String(), strconv.Itoa(c.Days())})
	}
	return t
}

func printSummary(w io.Writer, s *persist.Summary) error {
	if err := s.Table().WriteText(w, table.Params{}); err != nil {
		return errors.Annotate(err, "failed to print summary")
	}
	if len(s.Failed) == 0 {
		return nil
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return errors.Annotate(err, "failed to print summary")
	}
	if err := s.FailureTable().WriteText(w, table.Params{}); err != nil {
		return errors.Annotate(err, "failed to print failures")
	}
	return nil
}

func run(ctx context.Context, flags *Flags, w io.Writer) error {
	s, err := scheduler(flags)
	if err != nil {
		return err
	}
	if flags.DryRun {
		chunks, err := s.Plan(flags.Start, flags.End)
		if err != nil {
			return errors.Annotate(err, "invalid range")
		}
		logging.Infof(ctx, "dry run: %d chunks", len(chunks))
		if err := chunksTable(chunks).WriteText(w, table.Params{}); err != nil {
			return errors.Annotate(err, "failed to print chunks")
		}
		return nil
	}
	summary, err := s.Run(ctx, flags.Start, flags.End)
	if err != nil {
		return err
	}
	if err := printSummary(w, summary); err != nil {
		return err
	}
	if flags.Strict && len(summary.Failed) > 0 {
		return errors.Reason("%d units failed", len(summary.Failed))
	}
	return nil
}

func main() {
	ctx := context.Background()
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		ctx = logging.Use(ctx, logging.DefaultGoLogger(logging.Info))
		logging.Errorf(ctx, "failed to parse flags: %s", err.Error())
		os.Exit(1)
	}
	ctx = logging.Use(ctx, logging.DefaultGoLogger(flags.LogLevel))

	if err := run(ctx, flags, os.Stdout); err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}
