// Copyright 2025 The httpsig Authors. All rights reserved.
// Use of this source code is governed by the Apache License,
// Version 2.0, that can be found in the LICENSE file.

package httpsig

import (
	"crypto/hmac"
	"crypto/sha256"
	"strings"
)

func NewHmacSha256SigningAlgorithm(key []byte, keyId string) (SigningAlgorithm, error) {
	if keyId = strings.TrimSpace(keyId); keyId == "" {
		return nil, ErrorEmptyKeyId
	}
	copiedKey := make([]byte, len(key))
	copy(copiedKey, key)
	return &hmacSigningAlgorithm{
		algName: AlgorithmHmacSha256,
		keyId:   keyId,
		key:     copiedKey,
	}, nil
}

type hmacSigningAlgorithm struct {
	algName AlgorithmName
	keyId   string
	key     []byte
}

func (s *hmacSigningAlgorithm) KeyId() string {
	return s.keyId
}

func (s *hmacSigningAlgorithm) AlgName() AlgorithmName {
	return s.algName
}

func (s *hmacSigningAlgorithm) Sign(input []byte) ([]byte, error) {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(input)
	return mac.Sum(nil), nil
}

func NewHmacSha256VerifyingAlgorithm(key []byte, keyId string) (VerifyingAlgorithm, error) {
	if keyId = strings.TrimSpace(keyId); keyId == "" {
		return nil, ErrorEmptyKeyId
	}
	copiedKey := make([]byte, len(key))
	copy(copiedKey, key)
	return &hmacVerifyingAlgorithm{
		algName: AlgorithmHmacSha256,
		keyId:   keyId,
		key:     copiedKey,
	}, nil
}

type hmacVerifyingAlgorithm struct {
	algName AlgorithmName
	keyId   string
	key     []byte
}

func (v *hmacVerifyingAlgorithm) KeyId() string {
	return v.keyId
}

func (v *hmacVerifyingAlgorithm) AlgName() AlgorithmName {
	return v.algName
}

func (v *hmacVerifyingAlgorithm) Verify(in, sig []byte) (bool, error) {
	mac := hmac.New(sha256.New, v.key)
	mac.Write(in)
	return hmac.Equal(mac.Sum(nil), sig), nil
}
