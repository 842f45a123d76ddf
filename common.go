// Copyright 2025 The httpsig Authors. All rights reserved.
// Use of this source code is governed by the Apache License,
// Version 2.0, that can be found in the LICENSE file.

package httpsig

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/webbotauth/httpsig/component"
	"github.com/webbotauth/httpsig/sfv"
)

const (
	SignatureInputHeaderName = "Signature-Input"
	SignatureHeaderName      = "Signature"
	SignatureAgentHeaderName = "Signature-Agent"
)

// Tag is the signature purpose asserted by the web-bot-auth profile.
const Tag = "web-bot-auth"

func now() time.Time {
	return time.Now()
}

type sigOptions struct {
	created    func() time.Time
	random     io.Reader
	maxAge     time.Duration
	components []component.Identifier
	// autoCover selects the profile component set per message: @authority,
	// plus signature-agent when that header is present.
	autoCover bool
	keyId     string
	algName   AlgorithmName
	nonce     string
	tag       string
	hasAlg    bool
	sigNamer  func() string
}

// buildSignatureBase writes the exact bytes that get signed: one
// `"<identifier>": <value>` line per covered component, then the
// `"@signature-params"` line, with no trailing newline.  Sign and verify
// share this one code path; any divergence between the two would let a
// forged base verify.
func buildSignatureBase(components []component.Identifier, resolve func(component.Identifier) (string, error), paramsLine string, base *bytes.Buffer) error {
	seen := make(map[string]struct{}, len(components))
	for _, c := range components {
		name, err := c.Text()
		if err != nil {
			return err
		}
		if _, ok := seen[name]; ok {
			return ErrorDuplicateComponent
		}
		seen[name] = struct{}{}

		value, err := resolve(c)
		if err != nil {
			return err
		}
		base.WriteString(name)
		base.WriteString(": ")
		base.WriteString(value)
		base.WriteByte('\n')
	}
	base.WriteString(`"@signature-params": `)
	base.WriteString(paramsLine)

	for _, b := range base.Bytes() {
		if b > 0x7f {
			return ErrorNonAsciiContent
		}
	}
	return nil
}

type httpRequest http.Request
type httpResponse http.Response

func (r *httpRequest) Headers() http.Header {
	return r.Header
}

func (r *httpRequest) Trailers() http.Header {
	return r.Trailer
}

func (r *httpRequest) Authority() string {
	// client-side requests carry the authority on the URL, server-side
	// ones on Host
	if r.Host != "" {
		return r.Host
	}
	if r.URL != nil {
		return r.URL.Host
	}
	return ""
}

func (r *httpRequest) GetURL() *url.URL {
	return r.URL
}

func (r *httpRequest) GetMethod() string {
	return r.Method
}

func (r *httpRequest) GetStatus() int {
	return 0
}

func (r *httpRequest) RelatedRequest() component.Message {
	return nil
}

func (r *httpResponse) Headers() http.Header {
	return r.Header
}

func (r *httpResponse) Trailers() http.Header {
	return r.Trailer
}

func (r *httpResponse) Authority() string {
	return ""
}

func (r *httpResponse) GetURL() *url.URL {
	return nil
}

func (r *httpResponse) GetMethod() string {
	return ""
}

func (r *httpResponse) GetStatus() int {
	return r.StatusCode
}

func (r *httpResponse) RelatedRequest() component.Message {
	if r.Request == nil {
		return nil
	}
	return (*httpRequest)(r.Request)
}

func stringParam(ps sfv.Params, key string) (string, bool) {
	v, ok := ps.Get(key)
	if !ok {
		return "", false
	}
	return v.AsString()
}

func intParam(ps sfv.Params, key string) (int64, bool) {
	v, ok := ps.Get(key)
	if !ok {
		return 0, false
	}
	return v.AsInteger()
}
