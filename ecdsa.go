// Copyright 2025 The httpsig Authors. All rights reserved.
// Use of this source code is governed by the Apache License,
// Version 2.0, that can be found in the LICENSE file.

package httpsig

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"math/big"
)

type ecdsaSigningAlgorithm struct {
	algName AlgorithmName
	keyId   string
	privKey *ecdsa.PrivateKey
	hashOpt crypto.Hash
}

func (esa *ecdsaSigningAlgorithm) KeyId() string {
	return esa.keyId
}

func (esa *ecdsaSigningAlgorithm) AlgName() AlgorithmName {
	return esa.algName
}

func (esa *ecdsaSigningAlgorithm) Sign(in []byte) ([]byte, error) {
	// a fresh hash per call keeps one algorithm value usable from many
	// goroutines at once
	h := esa.hashOpt.New()
	h.Write(in)
	digest := h.Sum(nil)

	r, s, err := ecdsa.Sign(rand.Reader, esa.privKey, digest)
	if err != nil {
		return nil, err
	}

	sig := make([]byte, ecdsaSigLen)
	r.FillBytes(sig[:ecdsaIntLen])
	s.FillBytes(sig[ecdsaIntLen:])

	return sig, nil
}

type ecdsaVerifyingAlgorithm struct {
	algName AlgorithmName
	keyId   string
	pubKey  *ecdsa.PublicKey
	hashOpt crypto.Hash
}

const (
	ecdsaIntLen = 32
	ecdsaSigLen = ecdsaIntLen * 2
)

func parseSig(sig []byte) (r *big.Int, s *big.Int, err error) {
	if len(sig) != ecdsaSigLen {
		return nil, nil, ErrorInvalidSigLength
	}

	r = new(big.Int)
	r.SetBytes(sig[:ecdsaIntLen])

	s = new(big.Int)
	s.SetBytes(sig[ecdsaIntLen:])

	return r, s, nil
}

func (v *ecdsaVerifyingAlgorithm) KeyId() string {
	return v.keyId
}

func (v *ecdsaVerifyingAlgorithm) AlgName() AlgorithmName {
	return v.algName
}

func (v *ecdsaVerifyingAlgorithm) Verify(in, sig []byte) (bool, error) {
	h := v.hashOpt.New()
	h.Write(in)
	digest := h.Sum(nil)

	r, s, err := parseSig(sig)
	if err != nil {
		return false, err
	}

	return ecdsa.Verify(v.pubKey, digest, r, s), nil
}
