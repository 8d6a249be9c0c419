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

// Package config reads the settings shared by the persistence apps and wires
// them into a persist.Config.
package config

import (
	"os"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/marketdata/db"
	"github.com/stockparfait/marketdata/jquants"
	"github.com/stockparfait/marketdata/persist"
	"github.com/stockparfait/marketdata/validate"

	toml "github.com/pelletier/go-toml/v2"
	"golang.org/x/exp/slices"
)

// TokenEnv is the environment variable with the ID token, used when the
// config file does not set one.
const TokenEnv = "JQUANTS_ID_TOKEN"

var plans = []string{"free", "light", "standard", "premium"}

// Config of the persistence apps.
type Config struct {
	Token     string `toml:"token"`      // J-Quants ID token
	OutputDir string `toml:"output_dir"` // root of the persisted files
	Catalog   string `toml:"catalog"`    // dataset catalog YAML
	Plan      string `toml:"plan"`       // subscription plan
	Workers   int    `toml:"workers"`
	ChunkSize int    `toml:"chunk_size"`
	Earliest  string `toml:"earliest"` // first date to persist, YYYYMMDD
	Latest    string `toml:"latest"`   // last date to persist, YYYYMMDD

	earliest db.Date
	latest   db.Date
}

// Default config, with the token from the environment.
func Default() *Config {
	return &Config{
		Token:     os.Getenv(TokenEnv),
		OutputDir: "persistdata",
		Catalog:   "config/api_config.yaml",
		Plan:      "free",
		Workers:   persist.DefaultWorkers,
		ChunkSize: persist.DefaultChunkSize,
	}
}

const sample = `token = "${JQUANTS_ID_TOKEN}"
output_dir = "persistdata"
catalog = "config/api_config.yaml"
plan = "free"
workers = 3
chunk_size = 7
# earliest = "20220101"
`

// Load the TOML config file on top of the defaults. Environment variables in
// the form ${VAR} are expanded. An empty file name returns the defaults.
func Load(fileName string) (*Config, error) {
	c := Default()
	if fileName == "" {
		return c, c.check()
	}
	b, err := os.ReadFile(fileName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Annotate(err,
				"config file '%s' does not exist.\nPlease create config file containing:\n%s",
				fileName, sample)
		}
		return nil, errors.Annotate(err, "failed to read config file '%s'", fileName)
	}
	token := c.Token
	d := toml.NewDecoder(strings.NewReader(os.ExpandEnv(string(b))))
	d.DisallowUnknownFields()
	if err := d.Decode(c); err != nil {
		return nil, errors.Annotate(err, "failed to parse config file '%s'", fileName)
	}
	if c.Token == "" {
		c.Token = token
	}
	return c, c.check()
}

func (c *Config) check() error {
	if !slices.Contains(plans, c.Plan) {
		return errors.Reason("plan must be one of [%s], got '%s'",
			strings.Join(plans, ", "), c.Plan)
	}
	if c.Workers < 1 {
		return errors.Reason("workers must be >= 1, got %d", c.Workers)
	}
	if c.ChunkSize < 1 {
		return errors.Reason("chunk_size must be >= 1, got %d", c.ChunkSize)
	}
	var err error
	if c.Earliest != "" {
		if c.earliest, err = db.NewDateFromString(c.Earliest); err != nil {
			return errors.Annotate(err, "invalid earliest")
		}
	}
	if c.Latest != "" {
		if c.latest, err = db.NewDateFromString(c.Latest); err != nil {
			return errors.Annotate(err, "invalid latest")
		}
	}
	if !c.earliest.IsZero() && !c.latest.IsZero() && c.earliest.After(c.latest) {
		return errors.Reason("earliest %s is after latest %s", c.earliest, c.latest)
	}
	return nil
}

// Persist loads the catalog and assembles the configuration of a
// persist.Planner. The kinds not available in the subscription plan are
// excluded, and only the dates between earliest and latest are persisted. When kinds is not empty, only these kinds are persisted.
func (c *Config) Persist(src persist.Source, kinds, exclude []string) (persist.Config, error) {
	var pc persist.Config
	if src == nil {
		return pc, errors.Reason("no data source")
	}
	catalog, err := persist.LoadCatalog(c.Catalog)
	if err != nil {
		return pc, errors.Annotate(err, "failed to load catalog")
	}
	for _, k := range catalog.Enabled() {
		if !jquants.Known(k.Method) {
			return pc, errors.Reason("kind %s: unsupported method '%s'", k.Name, k.Method)
		}
	}
	for _, k := range append(append([]string{}, kinds...), exclude...) {
		if catalog.Kind(k) == nil {
			return pc, errors.Reason("unknown kind: '%s'", k)
		}
	}
	registry, err := catalog.Registry()
	if err != nil {
		return pc, errors.Annotate(err, "failed to create validation rules")
	}
	cs := db.NewConstraints().Kind(kinds...).ExcludeKind(exclude...).
		StartAt(c.earliest).EndAt(c.latest)
	for _, k := range catalog.Enabled() {
		if !k.Available(c.Plan) {
			cs.ExcludeKind(k.Name)
		}
	}
	pc = persist.Config{
		Catalog:     catalog,
		Source:      src,
		Validator:   validate.NewValidator(registry),
		Store:       db.NewStore(c.OutputDir),
		Constraints: cs,
	}
	return pc, nil
}

// ParseList splits a comma separated list, ignoring empty items.
func ParseList(s string) []string {
	var res []string
	for _, x := range strings.Split(s, ",") {
		if x = strings.TrimSpace(x); x != "" {
			res = append(res, x)
		}
	}
	return res
}
