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

package jquants

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/fetch"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/marketdata/db"
)

// URL is the default base URL of the server. It may be overwritten in tests
// before creating a new client.
var URL = "https://api.jquants.com/v1"

// paginationKey is both the response field and the query parameter for paging.
const paginationKey = "pagination_key"

// Client for querying J-Quants endpoints. It is safe for concurrent use.
type Client struct {
	baseURL string
	token   string // ID token
	http    *http.Client
}

// NewClient creates a new client authenticated with the ID token. When hc is
// nil, http.DefaultClient is used for transport.
func NewClient(token string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	auth := *hc
	auth.Transport = &bearerTransport{token: token, base: hc.Transport}
	return &Client{baseURL: URL, token: token, http: &auth}
}

// bearerTransport adds the Authorization header to every request.
type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+t.token)
	return base.RoundTrip(r)
}

func endpoint(method string) (Endpoint, error) {
	ep, ok := Endpoints[method]
	if !ok {
		return Endpoint{}, errors.Reason("unsupported method: '%s'", method)
	}
	return ep, nil
}

// toValue converts a decoded JSON value into a dataset value. Integral numbers
// become int64, other numbers float64.
func toValue(v interface{}) db.Value {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return i
		}
	}
	f, err := n.Float64()
	if err != nil {
		return s
	}
	return f
}

func expectDelim(dec *json.Decoder, delim json.Delim) error {
	t, err := dec.Token()
	if err != nil {
		return errors.Annotate(err, "failed to read JSON token")
	}
	if d, ok := t.(json.Delim); !ok || d != delim {
		return errors.Reason("expected '%s', got %v", delim, t)
	}
	return nil
}

// decodeRecord reads one JSON object preserving the order of its keys.
func decodeRecord(dec *json.Decoder) ([]string, []db.Value, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, nil, err
	}
	var columns []string
	var values []db.Value
	for dec.More() {
		t, err := dec.Token()
		if err != nil {
			return nil, nil, errors.Annotate(err, "failed to read a key")
		}
		key, ok := t.(string)
		if !ok {
			return nil, nil, errors.Reason("expected a key, got %v", t)
		}
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return nil, nil, errors.Annotate(err, "failed to decode value of %s", key)
		}
		columns = append(columns, key)
		values = append(values, toValue(v))
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, nil, err
	}
	return columns, values, nil
}

// decodeRecords appends the list of JSON records to the dataset.
func decodeRecords(raw json.RawMessage, d *db.Dataset) error {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := expectDelim(dec, '['); err != nil {
		return err
	}
	for i := 0; dec.More(); i++ {
		columns, values, err := decodeRecord(dec)
		if err != nil {
			return errors.Annotate(err, "record %d", i)
		}
		if err := d.AddRecord(columns, values); err != nil {
			return errors.Annotate(err, "record %d", i)
		}
	}
	return expectDelim(dec, ']')
}

// query fetches all the pages of the endpoint. A response without the result
// key returns an empty dataset.
func (c *Client) query(ctx context.Context, method string, ep Endpoint, query url.Values) (*db.Dataset, error) {
	ctx = fetch.UseClient(ctx, c.http)
	uri := c.baseURL + "/" + method
	d := db.NewDataset()
	for page := 1; ; page++ {
		var body map[string]json.RawMessage
		if err := fetch.FetchJSON(ctx, uri, &body, query, nil); err != nil {
			return nil, errors.Annotate(err, "failed to fetch %s page %d", method, page)
		}
		raw, ok := body[ep.Key]
		if !ok {
			var msg string
			if m, ok := body["message"]; ok {
				msg = string(m)
			}
			logging.Warningf(ctx, "J-Quants: %s returned no '%s': %s", method, ep.Key, msg)
			return db.NewDataset(), nil
		}
		n := d.Len()
		if err := decodeRecords(raw, d); err != nil {
			return nil, errors.Annotate(err, "failed to parse %s page %d", method, page)
		}
		var next string
		if k, ok := body[paginationKey]; ok {
			if err := json.Unmarshal(k, &next); err != nil {
				return nil, errors.Annotate(err, "bad %s in %s", paginationKey, method)
			}
		}
		logging.Infof(ctx, "J-Quants: fetched %s page %d with %d rows; %s: %s",
			method, page, d.Len()-n, paginationKey, next)
		if next == "" {
			return d, nil
		}
		if query.Get(paginationKey) == next {
			return nil, errors.Reason("%s: repeated %s '%s'", method, paginationKey, next)
		}
		query = withParam(query, paginationKey, next)
	}
}

// withParam returns a copy of the query with the parameter set.
func withParam(q url.Values, key, value string) url.Values {
	res := url.Values{}
	for k, v := range q {
		res[k] = v
	}
	res.Set(key, value)
	return res
}

func dateQuery(ep Endpoint, start, end db.Date) url.Values {
	switch ep.Shape {
	case ShapeDate:
		return url.Values{ep.DateParam: {start.Compact()}}
	case ShapeSpan:
		return url.Values{"from": {start.Compact()}, "to": {end.Compact()}}
	}
	return url.Values{}
}

// FetchStatic downloads the current version of a static dataset.
func (c *Client) FetchStatic(ctx context.Context, method string) (*db.Dataset, error) {
	if t, ok := builtinTables[method]; ok {
		return t.dataset()
	}
	ep, err := endpoint(method)
	if err != nil {
		return nil, err
	}
	return c.query(ctx, method, ep, url.Values{})
}

// FetchOne downloads the data for a single date. Endpoints without a date
// parameter ignore it.
func (c *Client) FetchOne(ctx context.Context, method string, date db.Date) (*db.Dataset, error) {
	ep, err := endpoint(method)
	if err != nil {
		return nil, err
	}
	return c.query(ctx, method, ep, dateQuery(ep, date, date))
}

// FetchRange downloads the data for the inclusive range of dates. For
// endpoints taking a single date it issues one request per date and
// concatenates the results.
func (c *Client) FetchRange(ctx context.Context, method string, start, end db.Date) (*db.Dataset, error) {
	ep, err := endpoint(method)
	if err != nil {
		return nil, err
	}
	if start.After(end) {
		return nil, errors.Reason("start %s is after end %s", start, end)
	}
	if ep.Shape != ShapeDate {
		return c.query(ctx, method, ep, dateQuery(ep, start, end))
	}
	res := db.NewDataset()
	for _, date := range db.DateRange(start, end) {
		d, err := c.query(ctx, method, ep, dateQuery(ep, date, date))
		if err != nil {
			return nil, errors.Annotate(err, "failed to fetch %s for %s", method, date)
		}
		res.Append(d)
	}
	return res, nil
}
