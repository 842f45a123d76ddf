// Copyright 2025 The httpsig Authors. All rights reserved.
// Use of this source code is governed by the Apache License,
// Version 2.0, that can be found in the LICENSE file.

package component

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webbotauth/httpsig/sfv"
)

type testMessage struct {
	authority string
	method    string
	url       *url.URL
	status    int
	headers   http.Header
	trailers  http.Header
	related   Message
}

func (m *testMessage) Authority() string       { return m.authority }
func (m *testMessage) GetMethod() string       { return m.method }
func (m *testMessage) GetURL() *url.URL        { return m.url }
func (m *testMessage) GetStatus() int          { return m.status }
func (m *testMessage) Headers() http.Header    { return m.headers }
func (m *testMessage) Trailers() http.Header   { return m.trailers }
func (m *testMessage) RelatedRequest() Message { return m.related }

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func testRequest(t *testing.T) *testMessage {
	t.Helper()
	return &testMessage{
		authority: "example.com",
		method:    "post",
		url:       mustURL(t, "https://example.com/foo?param=Value&Pet=dog"),
		headers: http.Header{
			"Host":          []string{"example.com"},
			"Date":          []string{"Tue, 20 Apr 2021 02:07:55 GMT"},
			"Cache-Control": []string{"max-age=60", "   must-revalidate"},
			"X-Empty":       []string{""},
			"X-Dict":        []string{"a=1,   b=2;x=1;y=2,   c=(a   b    c)"},
		},
	}
}

func TestResolveDerived(t *testing.T) {
	msg := testRequest(t)

	cases := []struct {
		id   Identifier
		want string
	}{
		{New(Method), "POST"},
		{New(Authority), "example.com"},
		{New(Scheme), "https"},
		{New(TargetUri), "https://example.com/foo?param=Value&Pet=dog"},
		{New(RequestTarget), "/foo?param=Value&Pet=dog"},
		{New(Path), "/foo"},
		{New(Query), "?param=Value&Pet=dog"},
		{New(QueryParam).WithName("Pet"), "dog"},
	}
	for _, tc := range cases {
		got, err := Resolve(msg, tc.id)
		require.NoError(t, err, "component: %s", tc.id.Name)
		require.Equal(t, tc.want, got, "component: %s", tc.id.Name)
	}
}

func TestResolveDerivedEdgeCases(t *testing.T) {
	msg := testRequest(t)

	// authority is lowercased
	msg.authority = "EXAMPLE.com:8443"
	got, err := Resolve(msg, New(Authority))
	require.NoError(t, err)
	require.Equal(t, "example.com:8443", got)

	// empty path canonicalizes to "/"
	msg.url = mustURL(t, "https://example.com")
	got, err = Resolve(msg, New(Path))
	require.NoError(t, err)
	require.Equal(t, "/", got)

	// empty query still gets a "?" marker
	got, err = Resolve(msg, New(Query))
	require.NoError(t, err)
	require.Equal(t, "?", got)

	// query parameter values are re-encoded
	msg.url = mustURL(t, "https://example.com/?q=a%20b")
	got, err = Resolve(msg, New(QueryParam).WithName("q"))
	require.NoError(t, err)
	require.Equal(t, "a+b", got)

	// a repeated query parameter has no canonical value
	msg.url = mustURL(t, "https://example.com/?q=1&q=2")
	_, err = Resolve(msg, New(QueryParam).WithName("q"))
	require.ErrorIs(t, err, ErrorUnsupported)

	// absent query parameter
	_, err = Resolve(msg, New(QueryParam).WithName("missing"))
	require.ErrorIs(t, err, ErrorNotFound)

	// @status on a request-like message
	_, err = Resolve(msg, New(Status))
	require.ErrorIs(t, err, ErrorNotFound)
}

func TestResolveStatus(t *testing.T) {
	resp := &testMessage{status: 503}
	got, err := Resolve(resp, New(Status))
	require.NoError(t, err)
	require.Equal(t, "503", got)
}

func TestResolveField(t *testing.T) {
	msg := testRequest(t)

	got, err := Resolve(msg, New("Date"))
	require.NoError(t, err)
	require.Equal(t, "Tue, 20 Apr 2021 02:07:55 GMT", got)

	// multiple values are trimmed and joined
	got, err = Resolve(msg, New("cache-control"))
	require.NoError(t, err)
	require.Equal(t, "max-age=60, must-revalidate", got)

	// an empty field is present with an empty value
	got, err = Resolve(msg, New("x-empty"))
	require.NoError(t, err)
	require.Equal(t, "", got)

	_, err = Resolve(msg, New("x-absent"))
	require.ErrorIs(t, err, ErrorNotFound)
}

func TestResolveFieldFlags(t *testing.T) {
	msg := testRequest(t)

	// sf re-serializes the combined value canonically
	got, err := Resolve(msg, New("x-dict").WithFlag(FlagSF))
	require.NoError(t, err)
	require.Equal(t, "a=1, b=2;x=1;y=2, c=(a b c)", got)

	// key selects and re-serializes one member
	got, err = Resolve(msg, New("x-dict").WithKey("b"))
	require.NoError(t, err)
	require.Equal(t, "2;x=1;y=2", got)

	got, err = Resolve(msg, New("x-dict").WithKey("c"))
	require.NoError(t, err)
	require.Equal(t, "(a b c)", got)

	_, err = Resolve(msg, New("x-dict").WithKey("zz"))
	require.ErrorIs(t, err, ErrorNotFound)

	// bs wraps each raw value as a byte sequence
	got, err = Resolve(msg, New("cache-control").WithFlag(FlagBS))
	require.NoError(t, err)
	require.Equal(t, ":bWF4LWFnZT02MA==:, :bXVzdC1yZXZhbGlkYXRl:", got)
}

func TestResolveTrailer(t *testing.T) {
	msg := testRequest(t)
	msg.trailers = http.Header{"Expires": []string{"Wed, 09 Nov 2022 07:28:00 GMT"}}

	got, err := Resolve(msg, New("expires").WithFlag(FlagTR))
	require.NoError(t, err)
	require.Equal(t, "Wed, 09 Nov 2022 07:28:00 GMT", got)

	// without tr the lookup stays in the header section
	_, err = Resolve(msg, New("expires"))
	require.ErrorIs(t, err, ErrorNotFound)
}

func TestResolveRelatedRequest(t *testing.T) {
	req := testRequest(t)
	resp := &testMessage{
		status:  200,
		headers: http.Header{"Content-Type": []string{"application/json"}},
		related: req,
	}

	got, err := Resolve(resp, New(Authority).WithFlag(FlagReq))
	require.NoError(t, err)
	require.Equal(t, "example.com", got)

	got, err = Resolve(resp, New("date").WithFlag(FlagReq))
	require.NoError(t, err)
	require.Equal(t, "Tue, 20 Apr 2021 02:07:55 GMT", got)

	// no related request to resolve against
	_, err = Resolve(req, New(Authority).WithFlag(FlagReq))
	require.ErrorIs(t, err, ErrorNotFound)
}

func TestNewLowercasesFieldNames(t *testing.T) {
	require.Equal(t, "cache-control", New("Cache-Control").Name)
	require.Equal(t, Authority, New(Authority).Name)
}

func TestIdentifierText(t *testing.T) {
	text, err := New("cache-control").WithKey("max-age").Text()
	require.NoError(t, err)
	require.Equal(t, `"cache-control";key="max-age"`, text)

	text, err = New(Authority).Text()
	require.NoError(t, err)
	require.Equal(t, `"@authority"`, text)

	text, err = New("signature-agent").WithFlag(FlagSF).Text()
	require.NoError(t, err)
	require.Equal(t, `"signature-agent";sf`, text)
}

func TestFromItem(t *testing.T) {
	id, err := FromItem(sfv.Item{Bare: sfv.String("@authority")})
	require.NoError(t, err)
	require.Equal(t, Authority, id.Name)

	id, err = FromItem(sfv.Item{
		Bare:   sfv.String("Signature-Agent"),
		Params: sfv.Params{{Key: FlagSF, Value: sfv.Boolean(true)}},
	})
	require.NoError(t, err)
	require.Equal(t, "signature-agent", id.Name)
	require.True(t, id.hasFlag(FlagSF))

	id, err = FromItem(sfv.Item{
		Bare: sfv.String("@query-param"),
		Params: sfv.Params{
			{Key: FlagName, Value: sfv.String("q")},
			{Key: FlagReq, Value: sfv.Boolean(true)},
		},
	})
	require.NoError(t, err)
	require.Equal(t, QueryParam, id.Name)
}

func TestFromItemRejectsInvalid(t *testing.T) {
	cases := []sfv.Item{
		// component names must be strings
		{Bare: sfv.Token("authority")},
		// unknown derived component
		{Bare: sfv.String("@unknown")},
		// derived components take no flags beyond req
		{Bare: sfv.String("@authority"), Params: sfv.Params{{Key: FlagSF, Value: sfv.Boolean(true)}}},
		// name only applies to @query-param
		{Bare: sfv.String("@path"), Params: sfv.Params{{Key: FlagName, Value: sfv.String("x")}}},
		// unknown field flag
		{Bare: sfv.String("x-hdr"), Params: sfv.Params{{Key: "zz", Value: sfv.Boolean(true)}}},
		// key must carry a string
		{Bare: sfv.String("x-hdr"), Params: sfv.Params{{Key: FlagKey, Value: sfv.Integer(1)}}},
		// key and bs are mutually exclusive
		{Bare: sfv.String("x-hdr"), Params: sfv.Params{
			{Key: FlagKey, Value: sfv.String("a")},
			{Key: FlagBS, Value: sfv.Boolean(true)},
		}},
		// sf and bs are mutually exclusive
		{Bare: sfv.String("x-hdr"), Params: sfv.Params{
			{Key: FlagSF, Value: sfv.Boolean(true)},
			{Key: FlagBS, Value: sfv.Boolean(true)},
		}},
	}
	for _, it := range cases {
		_, err := FromItem(it)
		require.ErrorIs(t, err, ErrorUnsupported)
	}
}
