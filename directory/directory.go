// Copyright 2025 The httpsig Authors. All rights reserved.
// Use of this source code is governed by the Apache License,
// Version 2.0, that can be found in the LICENSE file.

// Package directory consumes HTTP message signature key directories: JSON
// documents of JWKs served from a well-known path.  It maps RFC 7638
// thumbprint key IDs to verification keys; fetching policy (caching,
// refresh) stays with the caller.
package directory

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/webbotauth/httpsig"
)

// WellKnownPath is where a host serves its key directory.
const WellKnownPath = "/.well-known/http-message-signatures-directory"

// maxDocumentSize bounds how much of a directory response gets read.
const maxDocumentSize = 1 << 20

// Directory is the wire form of a key directory document.
type Directory struct {
	Keys    []json.RawMessage `json:"keys"`
	Purpose *string           `json:"purpose,omitempty"`
}

// Entry is one directory key, addressable by its thumbprint key ID and
// bounded by an optional validity window.
type Entry struct {
	KeyID     string
	NotBefore time.Time // zero when the key carries no nbf
	Expires   time.Time // zero when the key carries no exp

	alg httpsig.VerifyingAlgorithm
}

func (e *Entry) validAt(t time.Time) bool {
	if !e.NotBefore.IsZero() && t.Before(e.NotBefore) {
		return false
	}
	if !e.Expires.IsZero() && !t.Before(e.Expires) {
		return false
	}
	return true
}

// KeyRing holds the parsed entries of one directory document.
type KeyRing struct {
	entries map[string]*Entry
	now     func() time.Time
}

// Parse decodes a directory document and builds verification key material
// for every key it can.  Keys of unsupported types fail the whole parse
// rather than being silently dropped.
func Parse(doc []byte) (*KeyRing, error) {
	var dir Directory
	if err := json.Unmarshal(doc, &dir); err != nil {
		return nil, fmt.Errorf("parsing key directory: %w", err)
	}
	ring := &KeyRing{
		entries: make(map[string]*Entry, len(dir.Keys)),
		now:     time.Now,
	}
	for _, raw := range dir.Keys {
		entry, err := parseEntry(raw)
		if err != nil {
			return nil, err
		}
		ring.entries[entry.KeyID] = entry
	}
	return ring, nil
}

func parseEntry(raw json.RawMessage) (*Entry, error) {
	key, err := jwk.ParseKey(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}

	thumbprint, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("cannot generate key id from key: %w", err)
	}
	keyId := base64.RawURLEncoding.EncodeToString(thumbprint)

	pk, err := jwk.PublicRawKeyOf(key)
	if err != nil {
		return nil, fmt.Errorf("extracting public key: %w", err)
	}

	var alg httpsig.VerifyingAlgorithm
	switch pub := pk.(type) {
	case ed25519.PublicKey:
		alg, err = httpsig.NewAsymmetricVerifyingAlgorithm(httpsig.AlgorithmEd25519, pub, keyId)
	case *ecdsa.PublicKey:
		alg, err = httpsig.NewAsymmetricVerifyingAlgorithm(httpsig.AlgorithmEcdsaP256Sha256, pub, keyId)
	default:
		return nil, fmt.Errorf("unsupported key type %T in directory", pk)
	}
	if err != nil {
		return nil, err
	}

	var bounds struct {
		Nbf *int64 `json:"nbf"`
		Exp *int64 `json:"exp"`
	}
	if err := json.Unmarshal(raw, &bounds); err != nil {
		return nil, fmt.Errorf("parsing key validity bounds: %w", err)
	}
	entry := &Entry{KeyID: keyId, alg: alg}
	if bounds.Nbf != nil {
		entry.NotBefore = time.Unix(*bounds.Nbf, 0)
	}
	if bounds.Exp != nil {
		entry.Expires = time.Unix(*bounds.Exp, 0)
	}
	return entry, nil
}

// Finder adapts the ring to the verifier's key lookup.  Keys outside their
// validity window are reported as unknown.
func (r *KeyRing) Finder() httpsig.KeyFinder {
	return func(_ context.Context, keyId string) (httpsig.VerifyingAlgorithm, bool) {
		entry, ok := r.entries[keyId]
		if !ok || !entry.validAt(r.now()) {
			return nil, false
		}
		return entry.alg, true
	}
}

// Fetch retrieves and parses a directory from baseURL's well-known path,
// e.g. "https://signature-agent.example".
func Fetch(ctx context.Context, client *http.Client, baseURL string) (*KeyRing, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+WellKnownPath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching key directory: unexpected status %d", resp.StatusCode)
	}
	doc, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, err
	}
	return Parse(doc)
}
