// Copyright 2025 The httpsig Authors. All rights reserved.
// Use of this source code is governed by the Apache License,
// Version 2.0, that can be found in the LICENSE file.

package httpsig

import (
	"bytes"
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"net/http"
	"strings"
	"time"

	"github.com/webbotauth/httpsig/component"
	"github.com/webbotauth/httpsig/safepool"
	"github.com/webbotauth/httpsig/sfv"
)

type AlgorithmName string

const (
	AlgorithmRsaPssSha512    AlgorithmName = "rsa-pss-sha512"
	AlgorithmRsaV15Sha256    AlgorithmName = "rsa-v1_5-sha256"
	AlgorithmEcdsaP256Sha256 AlgorithmName = "ecdsa-p256-sha256"
	AlgorithmHmacSha256      AlgorithmName = "hmac-sha256"
	AlgorithmEd25519         AlgorithmName = "ed25519"
)

type VerifyingAlgorithm interface {
	KeyId() string
	AlgName() AlgorithmName
	Verify(input, sig []byte) (bool, error)
}

func NewAsymmetricVerifyingAlgorithm(algName AlgorithmName, pubKey crypto.PublicKey, keyId string) (VerifyingAlgorithm, error) {
	if keyId = strings.TrimSpace(keyId); keyId == "" {
		return nil, ErrorEmptyKeyId
	}

	switch algName {
	case AlgorithmEcdsaP256Sha256:
		if ecdsaPubKey, ok := pubKey.(*ecdsa.PublicKey); ok {
			return &ecdsaVerifyingAlgorithm{
				algName: algName,
				keyId:   keyId,
				pubKey:  ecdsaPubKey,
				hashOpt: crypto.SHA256,
			}, nil
		}
		return nil, ErrorAlgorithmKeyMismatch
	case AlgorithmEd25519:
		if ed25519PubKey, ok := pubKey.(ed25519.PublicKey); ok {
			return &ed25519VerifyingAlgorithm{
				algName: algName,
				keyId:   keyId,
				pubKey:  ed25519PubKey,
			}, nil
		}
		return nil, ErrorAlgorithmKeyMismatch
	case AlgorithmRsaPssSha512:
		if rsaPubKey, ok := pubKey.(*rsa.PublicKey); ok {
			return &rsaPssVerifyingAlgorithm{
				keyId:   keyId,
				pubKey:  rsaPubKey,
				hashOpt: crypto.SHA512,
			}, nil
		}
		return nil, ErrorAlgorithmKeyMismatch
	case AlgorithmRsaV15Sha256:
		if rsaPubKey, ok := pubKey.(*rsa.PublicKey); ok {
			return &rsaV15VerifyingAlgorithm{
				algName: algName,
				keyId:   keyId,
				pubKey:  rsaPubKey,
				hashOpt: crypto.SHA256,
			}, nil
		}
		return nil, ErrorAlgorithmKeyMismatch
	}

	return nil, ErrorUnknownAlgorithm
}

// KeyFinder resolves a keyid from Signature-Input to verification key
// material, typically backed by a key directory.
type KeyFinder func(ctx context.Context, keyId string) (VerifyingAlgorithm, bool)

type VerifierOption func(*verifyOptions)

type verifyOptions struct {
	now   func() time.Time
	tag   string
	label string
}

// WithExpectedTag overrides the profile tag a signature must carry.
func WithExpectedTag(tag string) VerifierOption {
	return func(o *verifyOptions) {
		o.tag = tag
	}
}

// WithTargetLabel pins verification to one signature label instead of the
// first Signature-Input member.
func WithTargetLabel(label string) VerifierOption {
	return func(o *verifyOptions) {
		o.label = label
	}
}

func withVerifyTime(now func() time.Time) VerifierOption {
	return func(o *verifyOptions) {
		o.now = now
	}
}

// matchesProfile reports whether a Signature-Input member carries every
// parameter the profile demands: the expected tag, a keyid, and explicit
// created/expires bounds.  A signature missing any of them is never
// selected for verification.
func matchesProfile(ps sfv.Params, tag string) bool {
	got, ok := stringParam(ps, "tag")
	if !ok || got != tag {
		return false
	}
	if _, ok := stringParam(ps, "keyid"); !ok {
		return false
	}
	if _, ok := intParam(ps, "created"); !ok {
		return false
	}
	_, ok = intParam(ps, "expires")
	return ok
}

// NewVerifier returns a Verifier that checks web-bot-auth message
// signatures, resolving key IDs through algFinder.
func NewVerifier(algFinder KeyFinder, opts ...VerifierOption) (Verifier, error) {
	v := &verifier{
		algFinder: algFinder,
		opts: verifyOptions{
			now: now,
			tag: Tag,
		},
		sigBufferPool: safepool.NewBufferPool(func() *bytes.Buffer {
			return bytes.NewBuffer(make([]byte, 0, 16*1024))
		}),
	}
	for _, opt := range opts {
		opt(&v.opts)
	}
	return v, nil
}

type verifier struct {
	algFinder KeyFinder
	opts      verifyOptions

	sigBufferPool *safepool.BufferPool
}

// verify is the whole pipeline: parse headers, vet parameters, rebuild the
// signature base from the live message, then hand off to the injected
// crypto capability.  Every failure is terminal; nothing falls back to a
// weaker check.
func (v *verifier) verify(ctx context.Context, msg component.Message) error {
	headers := msg.Headers()

	inputVals := headers.Values(SignatureInputHeaderName)
	if len(inputVals) == 0 {
		return ErrorMissingSigInput
	}
	sigVals := headers.Values(SignatureHeaderName)
	if len(sigVals) == 0 {
		return ErrorMissingSig
	}

	inputDict, err := sfv.ParseDictionary(strings.Join(inputVals, ", "))
	if err != nil {
		return err
	}
	sigDict, err := sfv.ParseDictionary(strings.Join(sigVals, ", "))
	if err != nil {
		return err
	}

	// Pick the signature to check: the pinned label if one was configured,
	// otherwise the first member carrying the expected tag and a keyid.
	// Falling back to the first inner list keeps the failure specific when
	// nothing matches.
	var chosen, firstInner *sfv.Member
	for i := range inputDict {
		m := &inputDict[i]
		if !m.IsInner {
			continue
		}
		if v.opts.label != "" {
			if m.Key == v.opts.label {
				chosen = m
				break
			}
			continue
		}
		if firstInner == nil {
			firstInner = m
		}
		if matchesProfile(m.Inner.Params, v.opts.tag) {
			chosen = m
			break
		}
	}
	if chosen == nil {
		if v.opts.label != "" {
			return ErrorUnknownLabel
		}
		if chosen = firstInner; chosen == nil {
			return ErrorMalformedSigInput
		}
	}

	sigMember, ok := sigDict.Get(chosen.Key)
	if !ok {
		return ErrorUnknownLabel
	}
	if sigMember.IsInner {
		return ErrorMalformedSig
	}
	bsig, ok := sigMember.Item.Bare.AsBytes()
	if !ok {
		return ErrorMalformedSig
	}

	comps := make([]component.Identifier, len(chosen.Inner.Items))
	for i, it := range chosen.Inner.Items {
		if comps[i], err = component.FromItem(it); err != nil {
			return err
		}
	}
	params := chosen.Inner.Params

	tag, ok := stringParam(params, "tag")
	if !ok || tag != v.opts.tag {
		return ErrorTagMismatch
	}
	nowT := v.opts.now()
	created, ok := intParam(params, "created")
	if !ok {
		return ErrorMissingTimeBounds
	}
	if time.Unix(created, 0).After(nowT) {
		return ErrorSigNotYetValid
	}
	expires, ok := intParam(params, "expires")
	if !ok {
		return ErrorMissingTimeBounds
	}
	if !nowT.Before(time.Unix(expires, 0)) {
		return ErrorSigExpired
	}
	keyId, ok := stringParam(params, "keyid")
	if !ok {
		return ErrorMissingKeyId
	}
	if nonce, ok := stringParam(params, "nonce"); ok {
		if err := ValidateNonce(nonce); err != nil {
			return err
		}
	}

	alg, ok := v.algFinder(ctx, keyId)
	if !ok {
		return ErrorUnknownKeyId
	}

	sigInput := v.sigBufferPool.Get()
	sigInputHeader := v.sigBufferPool.Get()
	defer func() {
		v.sigBufferPool.Put(sigInput)
		v.sigBufferPool.Put(sigInputHeader)
	}()

	// re-serialize the parsed member byte-for-byte: the params line of the
	// rebuilt base must match what the signer serialized
	if err := chosen.Inner.AppendTo(sigInputHeader); err != nil {
		return err
	}

	if err := buildSignatureBase(comps, func(c component.Identifier) (string, error) {
		return component.Resolve(msg, c)
	}, sigInputHeader.String(), sigInput); err != nil {
		return err
	}

	ok, err = alg.Verify(sigInput.Bytes(), bsig)
	if err != nil {
		return err
	}
	if !ok {
		return ErrorVerifyFailed
	}
	return nil
}

func (v *verifier) Verify(req *http.Request) error {
	return v.verify(req.Context(), (*httpRequest)(req))
}

func (v *verifier) VerifyResponse(ctx context.Context, resp *http.Response) error {
	return v.verify(ctx, (*httpResponse)(resp))
}

type Verifier interface {
	Verify(req *http.Request) error
	VerifyResponse(ctx context.Context, resp *http.Response) error
}
