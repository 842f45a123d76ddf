// Copyright 2025 The httpsig Authors. All rights reserved.
// Use of this source code is governed by the Apache License,
// Version 2.0, that can be found in the LICENSE file.

package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/webbotauth/httpsig"
)

// Ed25519 key whose RFC 7638 thumbprint is wantKeyId.
const (
	testJWK   = `{"kty":"OKP","crv":"Ed25519","x":"JrQLj5P_89iXES9-vFgrIy29clF9CC_oPPsw3c5D0bs"}`
	wantKeyId = "poqkLGiymh_W0uP6PZFw-dvez3QJT5SolqXBCW38r0U"
)

func TestParseThumbprintKeyId(t *testing.T) {
	ring, err := Parse([]byte(`{"keys":[` + testJWK + `]}`))
	require.NoError(t, err)

	alg, ok := ring.Finder()(context.Background(), wantKeyId)
	require.True(t, ok)
	require.Equal(t, wantKeyId, alg.KeyId())
	require.Equal(t, httpsig.AlgorithmEd25519, alg.AlgName())

	_, ok = ring.Finder()(context.Background(), "someone-else")
	require.False(t, ok)
}

func TestParseValidityWindow(t *testing.T) {
	doc := `{"keys":[{"kty":"OKP","crv":"Ed25519","x":"JrQLj5P_89iXES9-vFgrIy29clF9CC_oPPsw3c5D0bs","nbf":1000,"exp":2000}]}`
	ring, err := Parse([]byte(doc))
	require.NoError(t, err)

	find := func(at int64) bool {
		ring.now = func() time.Time { return time.Unix(at, 0) }
		_, ok := ring.Finder()(context.Background(), wantKeyId)
		return ok
	}
	require.False(t, find(999), "before nbf")
	require.True(t, find(1000), "at nbf")
	require.True(t, find(1999), "inside window")
	require.False(t, find(2000), "at exp")
	require.False(t, find(3000), "after exp")
}

func TestParseRejectsBadDocuments(t *testing.T) {
	_, err := Parse([]byte(`not json`))
	require.Error(t, err)

	// symmetric keys have no place in a public key directory
	_, err = Parse([]byte(`{"keys":[{"kty":"oct","k":"c2VjcmV0LXNlY3JldC1zZWNyZXQtc2VjcmV0ISE"}]}`))
	require.Error(t, err)

	_, err = Parse([]byte(`{"keys":[{"kty":"OKP"}]}`))
	require.Error(t, err)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != WellKnownPath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/http-message-signatures-directory+json")
		_, _ = w.Write([]byte(`{"keys":[` + testJWK + `]}`))
	}))
	defer srv.Close()

	ring, err := Fetch(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	_, ok := ring.Finder()(context.Background(), wantKeyId)
	require.True(t, ok)
}

func TestFetchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.Client(), srv.URL)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected status 403")
}
