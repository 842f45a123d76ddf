// Copyright 2025 The httpsig Authors. All rights reserved.
// Use of this source code is governed by the Apache License,
// Version 2.0, that can be found in the LICENSE file.

package httpsig

import (
	"encoding/base64"
	"io"
	"strings"
)

// NonceLen is the decoded length of a web-bot-auth replay nonce.
const NonceLen = 64

// GenerateNonce reads NonceLen random bytes from r and encodes them as
// unpadded base64.  Replay tracking is the caller's concern; the core only
// generates and length-checks nonces.
func GenerateNonce(r io.Reader) (string, error) {
	var b [NonceLen]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return "", err
	}
	return base64.RawStdEncoding.EncodeToString(b[:]), nil
}

// ValidateNonce checks that a nonce is base64 (padded or not) decoding to
// exactly NonceLen bytes.
func ValidateNonce(nonce string) error {
	enc := base64.RawStdEncoding
	if strings.ContainsRune(nonce, '=') {
		enc = base64.StdEncoding
	}
	b, err := enc.DecodeString(nonce)
	if err != nil || len(b) != NonceLen {
		return ErrorInvalidNonce
	}
	return nil
}
