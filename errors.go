// Copyright 2025 The httpsig Authors. All rights reserved.
// Use of this source code is governed by the Apache License,
// Version 2.0, that can be found in the LICENSE file.

package httpsig

import "errors"

var (
	ErrorUnknownAlgorithm     = errors.New("algorithm name not in HTTP Signature Algorithms Registry")
	ErrorAlgorithmKeyMismatch = errors.New("wrong key type for specified algorithm")
	ErrorEmptyKeyId           = errors.New("expected a non-empty key ID")
	ErrorUnknownKeyId         = errors.New("key ID provided, but key lookup failed")
	ErrorInvalidSigLength     = errors.New("the base64-decoded signature has an unexpected length")
	ErrorMissingSig           = errors.New("missing 'Signature' header")
	ErrorMissingSigInput      = errors.New("missing 'Signature-Input' header")
	ErrorMalformedSigInput    = errors.New("malformed 'Signature-Input' header")
	ErrorMalformedSig         = errors.New("malformed 'Signature' header")
	ErrorUnknownLabel         = errors.New("no signature found for the selected label")
	ErrorTagMismatch          = errors.New("signature tag does not match the expected profile tag")
	ErrorSigNotYetValid       = errors.New("signature created time is in the future")
	ErrorSigExpired           = errors.New("signature has expired")
	ErrorMissingKeyId         = errors.New("signature parameters do not include a key ID")
	ErrorMissingTimeBounds    = errors.New("signature parameters must include created and expires")
	ErrorInvalidNonce         = errors.New("nonce must decode to exactly 64 bytes")
	ErrorVerifyFailed         = errors.New("failed to verify signature")
	ErrorNonAsciiContent      = errors.New("signature base may contain only ASCII characters")
	ErrorDuplicateComponent   = errors.New("duplicate covered component identifier")
	ErrorInvalidTimeBounds    = errors.New("created time is after expires time")
)
