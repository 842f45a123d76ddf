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
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/webbotauth/httpsig/component"
	"github.com/webbotauth/httpsig/safepool"
	"github.com/webbotauth/httpsig/sfv"
)

// defaultSigName is an arbitrary label; verifiers key off the signature
// parameters, not the name.
const defaultSigName = "sig1"

type SigningAlgorithm interface {
	KeyId() string
	AlgName() AlgorithmName
	Sign(input []byte) ([]byte, error)
}

func NewAsymmetricSigningAlgorithm(algName AlgorithmName, privKey crypto.Signer, keyId string) (SigningAlgorithm, error) {
	if keyId = strings.TrimSpace(keyId); keyId == "" {
		return nil, ErrorEmptyKeyId
	}

	switch algName {
	case AlgorithmRsaPssSha512:
		if rsaKey, ok := privKey.(*rsa.PrivateKey); ok {
			return &rsaPssSigningAlgorithm{
				keyId:   keyId,
				privKey: rsaKey,
				hashOpt: crypto.SHA512,
			}, nil
		}
		return nil, ErrorAlgorithmKeyMismatch
	case AlgorithmRsaV15Sha256:
		if _, ok := privKey.(*rsa.PrivateKey); !ok {
			return nil, ErrorAlgorithmKeyMismatch
		}
		return &rsaV15SigningAlgorithm{
			algName: algName,
			keyId:   keyId,
			privKey: privKey,
			hashOpt: crypto.SHA256,
		}, nil
	case AlgorithmEcdsaP256Sha256:
		if ecdsaPrivKey, ok := privKey.(*ecdsa.PrivateKey); ok {
			return &ecdsaSigningAlgorithm{
				algName: algName,
				keyId:   keyId,
				privKey: ecdsaPrivKey,
				hashOpt: crypto.SHA256,
			}, nil
		}
		return nil, ErrorAlgorithmKeyMismatch
	case AlgorithmEd25519:
		if ed25519PrivKey, ok := privKey.(ed25519.PrivateKey); ok {
			return &ed25519SigningAlgorithm{
				algName: algName,
				keyId:   keyId,
				privKey: ed25519PrivKey,
			}, nil
		}
		return nil, ErrorAlgorithmKeyMismatch
	}
	return nil, ErrorUnknownAlgorithm
}

type SignerOption func(options *sigOptions)

func WithSigNamer(namer func() string) func(s *sigOptions) {
	return func(s *sigOptions) {
		s.sigNamer = namer
	}
}

// WithMaxAge bounds signature lifetime: expires is created plus duration.
func WithMaxAge(duration time.Duration) func(s *sigOptions) {
	return func(s *sigOptions) {
		s.maxAge = duration
	}
}

// WithCoveredComponents overrides the profile's automatic component set.
func WithCoveredComponents(components ...string) func(s *sigOptions) {
	return func(s *sigOptions) {
		s.autoCover = false
		s.components = s.components[:0]
		for _, c := range components {
			s.components = append(s.components, component.New(c))
		}
	}
}

// WithComponentIdentifiers is WithCoveredComponents for identifiers that
// carry flags, e.g. a dictionary member selector.
func WithComponentIdentifiers(components ...component.Identifier) func(s *sigOptions) {
	return func(s *sigOptions) {
		s.autoCover = false
		s.components = components
	}
}

// WithNonce supplies a fixed nonce instead of generating one per signature.
// It must decode to exactly NonceLen bytes.
func WithNonce(nonce string) func(s *sigOptions) {
	return func(s *sigOptions) {
		s.nonce = nonce
	}
}

// WithTag overrides the web-bot-auth purpose tag.
func WithTag(tag string) func(s *sigOptions) {
	return func(s *sigOptions) {
		s.tag = tag
	}
}

func WithAlg(alg bool) func(s *sigOptions) {
	return func(s *sigOptions) {
		s.hasAlg = alg
	}
}

// WithRandom sets the random byte source used for nonce generation.
func WithRandom(r io.Reader) func(s *sigOptions) {
	return func(s *sigOptions) {
		s.random = r
	}
}

func withTime(created func() time.Time) func(s *sigOptions) {
	return func(s *sigOptions) {
		s.created = created
	}
}

// signer is safe for use from multiple goroutines to create HTTP message signatures.
type signer struct {
	alg  SigningAlgorithm
	opts sigOptions

	sigBufferPool *safepool.BufferPool
	b64BufferPool *safepool.ByteSlicePool
}

// NewSigner returns a Signer that creates and attaches web-bot-auth HTTP
// message signatures to http.Request and http.Response structs.
func NewSigner(alg SigningAlgorithm, opts ...SignerOption) (Signer, error) {
	s := &signer{
		alg: alg,
		opts: sigOptions{
			algName:   alg.AlgName(),
			keyId:     alg.KeyId(),
			created:   now,
			random:    rand.Reader,
			maxAge:    time.Hour,
			autoCover: true,
			tag:       Tag,
			hasAlg:    true,
			sigNamer: func() string {
				return defaultSigName
			},
		},
		sigBufferPool: safepool.NewBufferPool(func() *bytes.Buffer {
			return bytes.NewBuffer(make([]byte, 0, 16*1024))
		}),
		b64BufferPool: safepool.NewByteSlicePool(func() []byte {
			return make([]byte, 0, 256)
		}),
	}
	for _, opt := range opts {
		opt(&s.opts)
	}
	if s.opts.keyId == "" {
		return nil, ErrorEmptyKeyId
	}
	if s.opts.maxAge < 0 {
		return nil, ErrorInvalidTimeBounds
	}
	if s.opts.nonce != "" {
		if err := ValidateNonce(s.opts.nonce); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// coveredComponents picks the web-bot-auth component set for one message:
// @authority always, signature-agent only when the header is present and
// non-empty (an empty header is treated like an absent one).
func (s *signer) coveredComponents(msg component.Message) []component.Identifier {
	if !s.opts.autoCover {
		return s.opts.components
	}
	comps := []component.Identifier{component.New(component.Authority)}
	if agent := strings.TrimSpace(msg.Headers().Get(SignatureAgentHeaderName)); agent != "" {
		comps = append(comps, component.New("signature-agent"))
	}
	return comps
}

func (s *signer) sign(ctx context.Context, msg component.Message) error {
	sigInput := s.sigBufferPool.Get()
	sigInputHeader := s.sigBufferPool.Get()
	headerBuf := s.sigBufferPool.Get()
	b64Buf := s.b64BufferPool.Get()
	defer func() {
		s.sigBufferPool.Put(sigInput)
		s.sigBufferPool.Put(sigInputHeader)
		s.sigBufferPool.Put(headerBuf)
		s.b64BufferPool.Put(b64Buf)
	}()

	comps := s.coveredComponents(msg)

	createdAt := s.opts.created()
	created := createdAt.Unix()
	expires := createdAt.Add(s.opts.maxAge).Unix()
	if expires < created {
		return ErrorInvalidTimeBounds
	}

	nonce := s.opts.nonce
	if nonce == "" {
		var err error
		if nonce, err = GenerateNonce(s.opts.random); err != nil {
			return err
		}
	}

	params := sfv.Params{
		{Key: "created", Value: sfv.Integer(created)},
		{Key: "expires", Value: sfv.Integer(expires)},
		{Key: "nonce", Value: sfv.String(nonce)},
		{Key: "keyid", Value: sfv.String(s.opts.keyId)},
	}
	if s.opts.hasAlg {
		params = append(params, sfv.Param{Key: "alg", Value: sfv.String(string(s.opts.algName))})
	}
	params = append(params, sfv.Param{Key: "tag", Value: sfv.String(s.opts.tag)})

	items := make([]sfv.Item, len(comps))
	for i, c := range comps {
		items[i] = c.Item()
	}
	list := sfv.InnerList{Items: items, Params: params}
	if err := list.AppendTo(sigInputHeader); err != nil {
		return err
	}
	paramsLine := sigInputHeader.String()

	if err := buildSignatureBase(comps, func(c component.Identifier) (string, error) {
		return component.Resolve(msg, c)
	}, paramsLine, sigInput); err != nil {
		return err
	}

	rawSig, err := s.alg.Sign(sigInput.Bytes())
	if err != nil {
		return err
	}

	sigName := s.opts.sigNamer()
	headerBuf.WriteString(sigName)
	headerBuf.WriteByte('=')
	headerBuf.WriteString(paramsLine)
	sigInputValue := headerBuf.String()

	headerBuf.Reset()
	headerBuf.WriteString(sigName)
	headerBuf.WriteString("=:")
	// encode the signature bytes in base64 for the header
	l := base64.StdEncoding.EncodedLen(len(rawSig))
	if l > cap(*b64Buf) {
		*b64Buf = make([]byte, 0, l)
	}
	b := (*b64Buf)[0:l]
	base64.StdEncoding.Encode(b, rawSig)
	headerBuf.Write(b)
	headerBuf.WriteByte(':')

	// the message stays untouched unless signing succeeded
	msg.Headers().Set(SignatureInputHeaderName, sigInputValue)
	msg.Headers().Set(SignatureHeaderName, headerBuf.String())

	return nil
}

// Sign computes a signature over the covered components of the request and adds it to the request.
func (s *signer) Sign(req *http.Request) error {
	return s.sign(req.Context(), (*httpRequest)(req))
}

// SignResponse computes a signature over the covered components of the response and adds it to the response.
func (s *signer) SignResponse(ctx context.Context, resp *http.Response) error {
	return s.sign(ctx, (*httpResponse)(resp))
}

// Signer objects sign HTTP requests.
type Signer interface {
	Sign(req *http.Request) error
	SignResponse(ctx context.Context, resp *http.Response) error
}
