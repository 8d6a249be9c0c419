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
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stockparfait/marketdata/db"
	"github.com/stockparfait/marketdata/persist"
	"github.com/stockparfait/testutil"

	. "github.com/smartystreets/goconvey/convey"
)

type recordingTransport struct {
	header http.Header
}

func (t *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.header = req.Header
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       http.NoBody,
		Request:    req,
	}, nil
}

func TestJQuants(t *testing.T) {
	Convey("Client implements the data source", t, func() {
		var s persist.Source = NewClient("token", nil)
		So(s, ShouldNotBeNil)
	})

	Convey("Bearer token is added to requests", t, func() {
		rt := &recordingTransport{}
		c := NewClient("secret", &http.Client{Transport: rt})
		req, err := http.NewRequest("GET", "http://localhost/v1/indices", nil)
		So(err, ShouldBeNil)
		_, err = c.http.Transport.RoundTrip(req)
		So(err, ShouldBeNil)
		So(rt.header.Get("Authorization"), ShouldEqual, "Bearer secret")
		So(req.Header.Get("Authorization"), ShouldEqual, "")
	})

	Convey("Values are decoded with their natural types", t, func() {
		d := db.NewDataset()
		err := decodeRecords([]byte(
			`[{"Code": "72030", "Close": 2500.5, "Volume": 1200, "Flag": true, "Open": null}]`), d)
		So(err, ShouldBeNil)
		So(d.Columns(), ShouldResemble, []string{"Code", "Close", "Volume", "Flag", "Open"})
		So(d.Row(0), ShouldResemble, []db.Value{"72030", 2500.5, int64(1200), true, nil})

		Convey("null list is empty", func() {
			d := db.NewDataset()
			So(decodeRecords([]byte("null"), d), ShouldBeNil)
			So(d.Len(), ShouldEqual, 0)
		})

		Convey("non-list is an error", func() {
			So(decodeRecords([]byte(`{"a": 1}`), db.NewDataset()), ShouldNotBeNil)
		})
	})

	Convey("Known methods", t, func() {
		So(Known("prices/daily_quotes"), ShouldBeTrue)
		So(Known("markets/sectors33"), ShouldBeTrue)
		So(Known("prices/unknown"), ShouldBeFalse)
		methods := Methods()
		So(len(methods), ShouldEqual, len(Endpoints)+len(builtinTables))
		So(methods[0], ShouldEqual, "derivatives/futures")
	})

	Convey("API calls work correctly", t, func() {
		server := testutil.NewTestServer()
		defer server.Close()
		server.ResponseBody = []string{"{}"}

		URL = server.URL() + "/v1"
		c := NewClient("testtoken", server.Client())
		ctx := context.Background()

		Convey("FetchOne with a date parameter", func() {
			server.ResponseBody = []string{
				`{"daily_quotes": [{"Date": "2024-01-05", "Code": "72030", "Close": 2500.0}]}`,
			}
			d, err := c.FetchOne(ctx, "prices/daily_quotes", db.NewDate(2024, 1, 5))
			So(err, ShouldBeNil)
			So(d.Len(), ShouldEqual, 1)
			So(d.Column("Code"), ShouldResemble, []db.Value{"72030"})
			So(server.RequestPath, ShouldEqual, "/v1/prices/daily_quotes")
			So(server.RequestQuery, ShouldResemble, url.Values{"date": {"20240105"}})
		})

		Convey("FetchOne follows pagination", func() {
			server.ResponseBody = []string{
				`{"daily_quotes": [{"Code": "72030"}, {"Code": "67580"}], "pagination_key": "next"}`,
				`{"daily_quotes": [{"Code": "99840", "Close": 10.5}]}`,
			}
			d, err := c.FetchOne(ctx, "prices/daily_quotes", db.NewDate(2024, 1, 5))
			So(err, ShouldBeNil)
			So(d.Len(), ShouldEqual, 3)
			So(d.Column("Code"), ShouldResemble, []db.Value{"72030", "67580", "99840"})
			So(d.Column("Close"), ShouldResemble, []db.Value{nil, nil, 10.5})
			So(server.RequestQuery, ShouldResemble, url.Values{
				"date":           {"20240105"},
				"pagination_key": {"next"},
			})
		})

		Convey("repeated pagination key is an error", func() {
			server.ResponseBody = []string{
				`{"indices": [{"Code": "0000"}], "pagination_key": "k"}`,
				`{"indices": [{"Code": "0001"}], "pagination_key": "k"}`,
			}
			_, err := c.FetchOne(ctx, "indices", db.NewDate(2024, 1, 5))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "repeated pagination_key")
		})

		Convey("sentinel response is empty data", func() {
			server.ResponseBody = []string{`{"message": "This API is not available on your subscription"}`}
			d, err := c.FetchOne(ctx, "fins/fs_details", db.NewDate(2024, 1, 5))
			So(err, ShouldBeNil)
			So(d.Len(), ShouldEqual, 0)
		})

		Convey("span endpoints use from and to", func() {
			server.ResponseBody = []string{
				`{"topix": [{"Date": "2024-01-04", "Close": 2400.1}, {"Date": "2024-01-05", "Close": 2410.2}]}`,
			}
			d, err := c.FetchRange(ctx, "indices/topix", db.NewDate(2024, 1, 4), db.NewDate(2024, 1, 5))
			So(err, ShouldBeNil)
			So(d.Len(), ShouldEqual, 2)
			So(server.RequestQuery, ShouldResemble, url.Values{
				"from": {"20240104"},
				"to":   {"20240105"},
			})
		})

		Convey("FetchOne on a span endpoint uses a one-day span", func() {
			server.ResponseBody = []string{`{"trades_spec": []}`}
			d, err := c.FetchOne(ctx, "markets/trades_spec", db.NewDate(2024, 1, 5))
			So(err, ShouldBeNil)
			So(d.Len(), ShouldEqual, 0)
			So(server.RequestQuery, ShouldResemble, url.Values{
				"from": {"20240105"},
				"to":   {"20240105"},
			})
		})

		Convey("date endpoints fetch a range one date at a time", func() {
			server.ResponseBody = []string{
				`{"daily_quotes": [{"Date": "2024-01-04", "Code": "72030"}]}`,
				`{"daily_quotes": [{"Date": "2024-01-05", "Code": "72030"}]}`,
				`{"message": "no data"}`,
			}
			d, err := c.FetchRange(ctx, "prices/daily_quotes", db.NewDate(2024, 1, 4), db.NewDate(2024, 1, 6))
			So(err, ShouldBeNil)
			So(d.Column("Date"), ShouldResemble, []db.Value{"2024-01-04", "2024-01-05"})
			So(server.RequestQuery, ShouldResemble, url.Values{"date": {"20240106"}})
		})

		Convey("endpoints without dates ignore them", func() {
			server.ResponseBody = []string{`{"announcement": [{"Code": "72030", "Date": "2024-02-01"}]}`}
			d, err := c.FetchRange(ctx, "fins/announcement", db.NewDate(2024, 1, 4), db.NewDate(2024, 1, 6))
			So(err, ShouldBeNil)
			So(d.Len(), ShouldEqual, 1)
			So(len(server.RequestQuery), ShouldEqual, 0)
		})

		Convey("FetchStatic queries without parameters", func() {
			server.ResponseBody = []string{`{"info": [{"Code": "72030", "CompanyName": "トヨタ自動車"}]}`}
			d, err := c.FetchStatic(ctx, "listed/info")
			So(err, ShouldBeNil)
			So(d.Column("CompanyName"), ShouldResemble, []db.Value{"トヨタ自動車"})
			So(server.RequestPath, ShouldEqual, "/v1/listed/info")
			So(len(server.RequestQuery), ShouldEqual, 0)
		})

		Convey("built-in static tables", func() {
			d, err := c.FetchStatic(ctx, "markets/sectors17")
			So(err, ShouldBeNil)
			So(d.Len(), ShouldEqual, 18)
			So(d.Row(9), ShouldResemble, []db.Value{"10", "情報通信・サービスその他", "IT & SERVICES, OTHERS"})

			d, err = c.FetchStatic(ctx, "markets/sectors33")
			So(err, ShouldBeNil)
			So(d.Len(), ShouldEqual, 34)
			So(d.Row(0)[0], ShouldEqual, "0050")

			d, err = c.FetchStatic(ctx, "markets/segments")
			So(err, ShouldBeNil)
			So(d.Len(), ShouldEqual, 10)
		})

		Convey("unknown methods are errors", func() {
			_, err := c.FetchOne(ctx, "prices/unknown", db.NewDate(2024, 1, 5))
			So(err, ShouldNotBeNil)
			_, err = c.FetchStatic(ctx, "prices/unknown")
			So(err, ShouldNotBeNil)
			_, err = c.FetchRange(ctx, "prices/unknown", db.NewDate(2024, 1, 5), db.NewDate(2024, 1, 6))
			So(err, ShouldNotBeNil)
		})

		Convey("inverted range is an error", func() {
			_, err := c.FetchRange(ctx, "indices/topix", db.NewDate(2024, 1, 6), db.NewDate(2024, 1, 5))
			So(err, ShouldNotBeNil)
		})
	})
}
