// Copyright 2022 Stock Parfait

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

// Constraints to filter the dataset kinds and dates of a run. Zero value means
// no constraints.
type Constraints struct {
	Kinds        map[string]struct{}
	ExcludeKinds map[string]struct{}
	Start        Date
	End          Date
}

// NewConstraints creates a new Constraints with no constraints.
func NewConstraints() *Constraints {
	return &Constraints{
		Kinds:        make(map[string]struct{}),
		ExcludeKinds: make(map[string]struct{}),
	}
}

// Kind adds dataset kinds to the constraints.
func (c *Constraints) Kind(kinds ...string) *Constraints {
	if c.Kinds == nil {
		c.Kinds = make(map[string]struct{})
	}
	for _, k := range kinds {
		c.Kinds[k] = struct{}{}
	}
	return c
}

// ExcludeKind adds dataset kinds to be ignored.
func (c *Constraints) ExcludeKind(kinds ...string) *Constraints {
	if c.ExcludeKinds == nil {
		c.ExcludeKinds = make(map[string]struct{})
	}
	for _, k := range kinds {
		c.ExcludeKinds[k] = struct{}{}
	}
	return c
}

// StartAt adds start date to the Constraints.
func (c *Constraints) StartAt(dt Date) *Constraints {
	c.Start = dt
	return c
}

// EndAt adds end date to the Constraints.
func (c *Constraints) EndAt(dt Date) *Constraints {
	c.End = dt
	return c
}

// CheckKind whether it satisfies the constraints. A nil Constraints accepts
// everything.
func (c *Constraints) CheckKind(kind string) bool {
	if c == nil {
		return true
	}
	if _, ok := c.ExcludeKinds[kind]; ok {
		return false
	}
	if len(c.Kinds) > 0 {
		if _, ok := c.Kinds[kind]; !ok {
			return false
		}
	}
	return true
}

// CheckDate whether the date is within the constrained range, both ends
// inclusive.
func (c *Constraints) CheckDate(d Date) bool {
	if c == nil {
		return true
	}
	if !c.Start.IsZero() && d.Before(c.Start) {
		return false
	}
	if !c.End.IsZero() && d.After(c.End) {
		return false
	}
	return true
}
