// Copyright 2025 The httpsig Authors. All rights reserved.
// Use of this source code is governed by the Apache License,
// Version 2.0, that can be found in the LICENSE file.

package httpsig

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
)

type rsaPssSigningAlgorithm struct {
	keyId   string
	privKey *rsa.PrivateKey
	hashOpt crypto.Hash
}

func (s *rsaPssSigningAlgorithm) KeyId() string {
	return s.keyId
}

func (s *rsaPssSigningAlgorithm) AlgName() AlgorithmName {
	return AlgorithmRsaPssSha512
}

func (s *rsaPssSigningAlgorithm) Sign(in []byte) ([]byte, error) {
	// a fresh hash per call keeps one algorithm value usable from many
	// goroutines at once
	h := s.hashOpt.New()
	h.Write(in)
	digest := h.Sum(nil)
	return rsa.SignPSS(rand.Reader, s.privKey, s.hashOpt, digest, &rsa.PSSOptions{
		SaltLength: 64,
		Hash:       s.hashOpt,
	})
}

type rsaPssVerifyingAlgorithm struct {
	keyId   string
	pubKey  *rsa.PublicKey
	hashOpt crypto.Hash
}

func (v *rsaPssVerifyingAlgorithm) KeyId() string {
	return v.keyId
}

func (v *rsaPssVerifyingAlgorithm) AlgName() AlgorithmName {
	return AlgorithmRsaPssSha512
}

func (v *rsaPssVerifyingAlgorithm) Verify(in, sig []byte) (bool, error) {
	h := v.hashOpt.New()
	h.Write(in)
	digest := h.Sum(nil)

	err := rsa.VerifyPSS(v.pubKey, v.hashOpt, digest, sig, &rsa.PSSOptions{
		SaltLength: 64,
		Hash:       v.hashOpt,
	})
	return err == nil, nil
}

type rsaV15SigningAlgorithm struct {
	algName AlgorithmName
	keyId   string
	privKey crypto.Signer
	hashOpt crypto.Hash
}

func (s *rsaV15SigningAlgorithm) KeyId() string {
	return s.keyId
}

func (s *rsaV15SigningAlgorithm) AlgName() AlgorithmName {
	return s.algName
}

func (s *rsaV15SigningAlgorithm) Sign(in []byte) ([]byte, error) {
	h := s.hashOpt.New()
	h.Write(in)
	digest := h.Sum(nil)

	return s.privKey.Sign(rand.Reader, digest, s.hashOpt)
}

type rsaV15VerifyingAlgorithm struct {
	algName AlgorithmName
	keyId   string
	pubKey  *rsa.PublicKey
	hashOpt crypto.Hash
}

func (v *rsaV15VerifyingAlgorithm) KeyId() string {
	return v.keyId
}

func (v *rsaV15VerifyingAlgorithm) AlgName() AlgorithmName {
	return v.algName
}

func (v *rsaV15VerifyingAlgorithm) Verify(in, sig []byte) (bool, error) {
	h := v.hashOpt.New()
	h.Write(in)
	digest := h.Sum(nil)

	err := rsa.VerifyPKCS1v15(v.pubKey, v.hashOpt, digest, sig)
	return err == nil, nil
}
