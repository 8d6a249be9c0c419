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
	"os"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/marketdata/message"
	"github.com/stockparfait/marketdata/validate"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// Kind is a dataset kind: one fetchable category of market data and where it
// is persisted.
type Kind struct {
	Name         string  `yaml:"-"` // the catalog key
	Method       string  `yaml:"method" required:"true"`
	OutputDir    string  `yaml:"output_dir" required:"true"`
	FilePattern  string  `yaml:"file_pattern" default:"{date}.parquet"`
	IsStatic     bool    `yaml:"is_static"`
	IsRange      bool    `yaml:"is_range"`
	Enabled      bool    `yaml:"enabled" default:"true"`
	PlanRequired string  `yaml:"plan_required" default:"free" choices:"free,light,standard,premium"`
	Description  string  `yaml:"description"`
	RetryCount   int     `yaml:"retry_count" default:"3"`
	RetryDelay   float64 `yaml:"retry_delay" default:"1"`
}

var _ message.Message = &Kind{}

// InitMessage implements message.Message.
func (k *Kind) InitMessage(js interface{}) error {
	if err := message.Init(k, js); err != nil {
		return err
	}
	if k.IsStatic && k.IsRange {
		return errors.Reason("a kind cannot be both is_static and is_range")
	}
	return nil
}

var plans = []string{"free", "light", "standard", "premium"}

// Available checks whether the kind is accessible with the given subscription
// plan. Plans are ordered; an unknown plan only has access to free kinds.
func (k *Kind) Available(plan string) bool {
	if k.PlanRequired == "free" {
		return true
	}
	return slices.Index(plans, k.PlanRequired) <= slices.Index(plans, plan)
}

// Catalog of dataset kinds and their optional validation rule overrides.
type Catalog struct {
	APIs            map[string]*Kind          `yaml:"apis" required:"true"`
	ValidationRules map[string]*validate.Rule `yaml:"validation_rules"`
}

var _ message.Message = &Catalog{}

// InitMessage implements message.Message.
func (c *Catalog) InitMessage(js interface{}) error {
	if err := message.Init(c, js); err != nil {
		return errors.Annotate(err, "invalid catalog")
	}
	for name, k := range c.APIs {
		if k == nil {
			return errors.Reason("kind %s has no attributes", name)
		}
		k.Name = name
	}
	return nil
}

// LoadCatalog reads a YAML catalog file. Environment variables in the form
// ${VAR} are expanded before parsing.
func LoadCatalog(fileName string) (*Catalog, error) {
	b, err := os.ReadFile(fileName)
	if err != nil {
		return nil, errors.Annotate(err, "failed to read catalog '%s'", fileName)
	}
	return ParseCatalog(os.ExpandEnv(string(b)))
}

// ParseCatalog parses the YAML text of a catalog.
func ParseCatalog(text string) (*Catalog, error) {
	var js interface{}
	if err := yaml.Unmarshal([]byte(text), &js); err != nil {
		return nil, errors.Annotate(err, "failed to parse catalog YAML")
	}
	var c Catalog
	if err := c.InitMessage(js); err != nil {
		return nil, err
	}
	return &c, nil
}

// Kind by name, or nil.
func (c *Catalog) Kind(name string) *Kind {
	return c.APIs[name]
}

// Names of all the kinds in sorted order.
func (c *Catalog) Names() []string {
	names := maps.Keys(c.APIs)
	slices.Sort(names)
	return names
}

// Enabled kinds sorted by name.
func (c *Catalog) Enabled() []*Kind {
	var res []*Kind
	for _, n := range c.Names() {
		if k := c.APIs[n]; k.Enabled {
			res = append(res, k)
		}
	}
	return res
}

// Registry creates the validation rules: the built-in rules overridden by the
// catalog's own.
func (c *Catalog) Registry() (*validate.Registry, error) {
	r := validate.DefaultRegistry()
	for name, rule := range c.ValidationRules {
		if rule == nil {
			return nil, errors.Reason("validation rule %s is empty", name)
		}
		if err := r.Set(name, rule); err != nil {
			return nil, errors.Annotate(err, "validation rule %s", name)
		}
	}
	return r, nil
}
