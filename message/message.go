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

package message

import (
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/stockparfait/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Message is a typed record initialized from a generic decoded document: the
// result of decoding JSON or YAML into an interface{}. Both decoders produce
// maps with string keys, slices, strings, bools and numbers, which is all Init
// needs.
//
// It is intended to be implemented by struct pointers, e.g.:
//
//   type Kind struct {
//     Method    string `yaml:"method" required:"true"`
//     Pattern   string `yaml:"file_pattern" default:"{date}.parquet"`
//     Plan      string `yaml:"plan_required" default:"free" choices:"free,light"`
//     Ignored   int    `yaml:"-"`
//     Rules     []Rule `yaml:"rules"` // *Rule implements Message
//   }
//
//   func (k *Kind) InitMessage(js interface{}) error {
//     return message.Init(k, js)
//   }
type Message interface {
	// InitMessage converts a generic document into the specific message. It
	// typically checks for required fields, sets the default values of optional
	// fields, and rejects unrecognized fields.
	InitMessage(js interface{}) error
}

var rMessage = reflect.TypeOf((*Message)(nil)).Elem()

func initMessage(jv interface{}, t reflect.Type) (reflect.Value, error) {
	var Nil reflect.Value
	if t.Kind() != reflect.Ptr {
		return Nil, errors.Reason(
			"type %s implements Message but is not a pointer", t.Name())
	}
	ptr := reflect.New(t.Elem())
	m := ptr.Interface().(Message)
	if err := m.InitMessage(jv); err != nil {
		return Nil, errors.Annotate(err, "%s.InitMessage() failed", t.Elem().Name())
	}
	return ptr, nil
}

// number extracts a numeric value as produced by the JSON decoder (float64) or
// the YAML decoder (int, int64, uint64 or float64).
func number(jv interface{}) (float64, bool) {
	switch x := jv.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}

// toMap accepts both string-keyed maps and the interface-keyed maps some YAML
// decoders produce for mappings with non-string keys.
func toMap(jv interface{}) (map[string]interface{}, bool) {
	switch m := jv.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		res := make(map[string]interface{}, len(m))
		for k, v := range m {
			s, ok := k.(string)
			if !ok {
				return nil, false
			}
			res[s] = v
		}
		return res, true
	}
	return nil, false
}

// convert recursively converts a generic value to the type t. Types whose
// pointer implements Message are initialized by their InitMessage method; a
// nil value yields the zero value, or a Message initialized with defaults.
func convert(jv interface{}, t reflect.Type) (reflect.Value, error) {
	var Nil reflect.Value
	if t.Implements(rMessage) {
		if jv == nil {
			return reflect.Zero(t), nil
		}
		return initMessage(jv, t)
	}
	if pt := reflect.PtrTo(t); pt.Implements(rMessage) {
		if jv == nil {
			jv = map[string]interface{}{}
		}
		ptr, err := initMessage(jv, pt)
		if err != nil {
			return Nil, err
		}
		return ptr.Elem(), nil
	}
	if jv == nil {
		return reflect.Zero(t), nil
	}
	switch t.Kind() {
	case reflect.Ptr:
		v, err := convert(jv, t.Elem())
		if err != nil {
			return Nil, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(v)
		return ptr, nil

	case reflect.Bool:
		b, ok := jv.(bool)
		if !ok {
			return Nil, errors.Reason("not a bool: %v", jv)
		}
		return reflect.ValueOf(b).Convert(t), nil

	case reflect.Int, reflect.Int64:
		f, ok := number(jv)
		if !ok {
			return Nil, errors.Reason("not a number: %v", jv)
		}
		if f != float64(int64(f)) {
			return Nil, errors.Reason("not an integer: %v", jv)
		}
		return reflect.ValueOf(int64(f)).Convert(t), nil

	case reflect.Float64:
		f, ok := number(jv)
		if !ok {
			return Nil, errors.Reason("not a number: %v", jv)
		}
		return reflect.ValueOf(f).Convert(t), nil

	case reflect.String:
		s, ok := jv.(string)
		if !ok {
			return Nil, errors.Reason("not a string: %v", jv)
		}
		return reflect.ValueOf(s).Convert(t), nil

	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return Nil, errors.Reason("map[%s] is not supported", t.Key().Kind())
		}
		m, ok := toMap(jv)
		if !ok {
			return Nil, errors.Reason("not a map with string keys: %v", jv)
		}
		res := reflect.MakeMapWithSize(t, len(m))
		for k, v := range m {
			el, err := convert(v, t.Elem())
			if err != nil {
				return Nil, errors.Annotate(err, "map key '%s'", k)
			}
			res.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), el)
		}
		return res, nil

	case reflect.Slice:
		l, ok := jv.([]interface{})
		if !ok {
			return Nil, errors.Reason("not a list: %v", jv)
		}
		res := reflect.MakeSlice(t, len(l), len(l))
		for i, v := range l {
			el, err := convert(v, t.Elem())
			if err != nil {
				return Nil, errors.Annotate(err, "list element %d", i)
			}
			res.Index(i).Set(el)
		}
		return res, nil
	}
	return Nil, errors.Reason("unsupported type: %s", t)
}

// parseDefault converts a default tag value to the type t.
func parseDefault(s string, t reflect.Type) (reflect.Value, error) {
	var Nil reflect.Value
	switch t.Kind() {
	case reflect.Ptr:
		v, err := parseDefault(s, t.Elem())
		if err != nil {
			return Nil, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(v)
		return ptr, nil
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Nil, errors.Annotate(err, "invalid bool value: %s", s)
		}
		return reflect.ValueOf(b).Convert(t), nil
	case reflect.Int, reflect.Int64:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Nil, errors.Annotate(err, "invalid int value: %s", s)
		}
		return reflect.ValueOf(i).Convert(t), nil
	case reflect.Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Nil, errors.Annotate(err, "invalid float64 value: %s", s)
		}
		return reflect.ValueOf(f).Convert(t), nil
	case reflect.String:
		return reflect.ValueOf(s).Convert(t), nil
	}
	return Nil, errors.Reason("default values of type %s are not supported", t)
}

// setChecked assigns v to the field value fv after checking the choices tag.
func setChecked(f reflect.StructField, fv, v reflect.Value) error {
	if choices, ok := f.Tag.Lookup("choices"); ok {
		if f.Type.Kind() != reflect.String {
			return errors.Reason("choices tag applied to a non-string field %s", f.Name)
		}
		if s := v.String(); !StringIn(s, strings.Split(choices, ",")...) {
			return errors.Reason("%s must be one of [%s], got '%s'", f.Name, choices, s)
		}
	}
	fv.Set(v)
	return nil
}

// key is the document key of a struct field: the name from the yaml or json
// tag, in this order, or the field name itself. Returns "" for the fields
// excluded with "-".
func key(f reflect.StructField) string {
	for _, tag := range []string{"yaml", "json"} {
		t, ok := f.Tag.Lookup(tag)
		if !ok {
			continue
		}
		name := strings.Split(t, ",")[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// Init populates the struct pointed to by m from a generic document js, which
// must be a map. It is the usual implementation of Message.InitMessage.
//
// Recognized struct tags:
// `yaml:"name" json:"name" required:"true" default:"value" choices:"a,b,c"`
//
// Only exported fields are considered. A field without a yaml or json tag uses
// its Go name as the key, and qualifiers like ",omitempty" are ignored, so the
// same struct can be marshaled back into a compatible document. Missing
// required fields and unrecognized keys are errors, reported all at once and in
// sorted order. The "choices" tag is supported only for string fields.
func Init(m Message, js interface{}) error {
	rt := reflect.TypeOf(m)
	if !(rt.Kind() == reflect.Ptr && rt.Elem().Kind() == reflect.Struct) {
		return errors.Reason("expected a struct pointer, got %s", rt)
	}
	if js == nil {
		return errors.Reason("document is nil")
	}
	doc, ok := toMap(js)
	if !ok {
		return errors.Reason("document is not a map: %v", js)
	}
	rt = rt.Elem()
	rv := reflect.ValueOf(m).Elem()
	seen := make(map[string]struct{})
	var missing []string
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if r, _ := utf8.DecodeRuneInString(f.Name); !unicode.IsUpper(r) {
			continue
		}
		name := key(f)
		if name == "" {
			continue
		}
		fv := rv.Field(i)
		if jv, ok := doc[name]; ok {
			seen[name] = struct{}{}
			v, err := convert(jv, f.Type)
			if err != nil {
				return errors.Annotate(err, "field %s", name)
			}
			if err := setChecked(f, fv, v); err != nil {
				return err
			}
			continue
		}
		if f.Tag.Get("required") == "true" {
			missing = append(missing, name)
			continue
		}
		var v reflect.Value
		var err error
		if d, ok := f.Tag.Lookup("default"); ok {
			v, err = parseDefault(d, f.Type)
		} else {
			v, err = convert(nil, f.Type)
		}
		if err != nil {
			return errors.Annotate(err, "default value for %s", name)
		}
		if err := setChecked(f, fv, v); err != nil {
			return err
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return errors.Reason("missing required fields: %s", strings.Join(missing, ", "))
	}
	var extra []string
	for _, k := range maps.Keys(doc) {
		if _, ok := seen[k]; !ok {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		slices.Sort(extra)
		return errors.Reason("unsupported fields for %s: %s",
			rt.Name(), strings.Join(extra, ", "))
	}
	return nil
}

// StringIn checks that s equals one of the values.
func StringIn(s string, values ...string) bool {
	return slices.Contains(values, s)
}
