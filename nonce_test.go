// Copyright 2025 The httpsig Authors. All rights reserved.
// Use of this source code is governed by the Apache License,
// Version 2.0, that can be found in the LICENSE file.

package httpsig

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateNonce(t *testing.T) {
	nonce, err := GenerateNonce(rand.Reader)
	require.NoError(t, err)
	// unpadded base64 of 64 bytes
	require.Len(t, nonce, 86)
	require.NotContains(t, nonce, "=")
	require.NoError(t, ValidateNonce(nonce))

	other, err := GenerateNonce(rand.Reader)
	require.NoError(t, err)
	require.NotEqual(t, nonce, other)
}

func TestGenerateNonceShortReader(t *testing.T) {
	_, err := GenerateNonce(strings.NewReader("not enough entropy"))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestValidateNonce(t *testing.T) {
	// both padded and unpadded encodings of 64 bytes are accepted
	require.NoError(t, ValidateNonce(testNonce))
	require.NoError(t, ValidateNonce(strings.TrimRight(testNonce, "=")))

	require.ErrorIs(t, ValidateNonce(""), ErrorInvalidNonce)
	require.ErrorIs(t, ValidateNonce("!!!not base64!!!"), ErrorInvalidNonce)
	require.ErrorIs(t, ValidateNonce(base64.RawStdEncoding.EncodeToString(make([]byte, 63))), ErrorInvalidNonce)
	require.ErrorIs(t, ValidateNonce(base64.RawStdEncoding.EncodeToString(make([]byte, 65))), ErrorInvalidNonce)
}
