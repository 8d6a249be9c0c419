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

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/marketdata/config"
	"github.com/stockparfait/marketdata/db"
	"github.com/stockparfait/marketdata/jquants"
	"github.com/stockparfait/marketdata/persist"
	"github.com/stockparfait/marketdata/table"
)

type Flags struct {
	Config       string // TOML config file; default: built-in defaults
	Catalog      string // overrides the config
	OutputDir    string // overrides the config
	Date         db.Date
	RetryFailed  bool
	UpdateStatic bool
	Strict       bool // exit with an error when any unit fails
	Kinds        []string
	Exclude      []string
	LogLevel     logging.Level
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	var date, kinds, exclude string
	fs := flag.NewFlagSet("persist", flag.ExitOnError)
	fs.StringVar(&flags.Config, "config", "", "config file (TOML)")
	fs.StringVar(&flags.Catalog, "catalog", "", "dataset catalog (YAML)")
	fs.StringVar(&flags.OutputDir, "output-dir", "", "output directory")
	fs.StringVar(&date, "date", "", "date to persist, YYYYMMDD; default: today in Tokyo")
	fs.BoolVar(&flags.RetryFailed, "retry-failed", false, "retry the failed kinds once")
	fs.BoolVar(&flags.UpdateStatic, "update-static", false, "also persist the static kinds")
	fs.BoolVar(&flags.Strict, "strict", false, "exit with an error if any kind failed")
	fs.StringVar(&kinds, "kinds", "", "comma separated kinds to persist; default: all")
	fs.StringVar(&exclude, "exclude", "", "comma separated kinds to skip")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if date != "" {
		d, err := db.NewDateFromString(date)
		if err != nil {
			return nil, errors.Annotate(err, "invalid -date")
		}
		flags.Date = d
	}
	flags.Kinds = config.ParseList(kinds)
	flags.Exclude = config.ParseList(exclude)
	return &flags, nil
}

var newSource = func(token string) persist.Source {
	return jquants.NewClient(token, nil)
}

func planner(flags *Flags) (*persist.Planner, error) {
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
	pc, err := c.Persist(newSource(c.Token), flags.Kinds, flags.Exclude)
	if err != nil {
		return nil, err
	}
	return persist.NewPlanner(pc), nil
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
	p, err := planner(flags)
	if err != nil {
		return err
	}
	date := flags.Date
	if date.IsZero() {
		date = p.Today()
	}
	logging.Infof(ctx, "persisting data for %s", date)
	s := p.PersistAllForDate(ctx, date, flags.RetryFailed)
	if flags.UpdateStatic {
		s.Merge(p.PersistStatic(ctx, flags.RetryFailed))
	}
	if err := printSummary(w, s); err != nil {
		return err
	}
	if flags.Strict && len(s.Failed) > 0 {
		return errors.Reason("%d units failed", len(s.Failed))
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
