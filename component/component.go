// Copyright 2025 The httpsig Authors. All rights reserved.
// Use of this source code is governed by the Apache License,
// Version 2.0, that can be found in the LICENSE file.

// Package component models the covered components of an HTTP message
// signature and resolves them to the canonical values that appear in a
// signature base.
package component

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/webbotauth/httpsig/sfv"
)

// Derived component names from RFC 9421 section 2.2.
const (
	SignatureParams = "@signature-params"
	Method          = "@method"
	TargetUri       = "@target-uri"
	Authority       = "@authority"
	Scheme          = "@scheme"
	RequestTarget   = "@request-target"
	Path            = "@path"
	Query           = "@query"
	QueryParam      = "@query-param"
	Status          = "@status"
)

// Identifier parameter names.
const (
	FlagSF   = "sf"   // strict structured-field re-serialization
	FlagKey  = "key"  // single dictionary member selection
	FlagBS   = "bs"   // binary-wrapped field values
	FlagReq  = "req"  // resolve against the related request
	FlagTR   = "tr"   // field comes from the trailer section
	FlagName = "name" // query parameter name, only on @query-param
)

var (
	ErrorNotFound    = errors.New("component not found in message")
	ErrorUnsupported = errors.New("unsupported component identifier")
)

// Identifier names one covered component: a derived component ("@"-prefixed)
// or a lowercase HTTP field name, with its ordered flag parameters.
type Identifier struct {
	Name   string
	Params sfv.Params
}

// New returns an identifier for a derived component or header field name
// with no parameters.  Field names are lowercased.
func New(name string) Identifier {
	if !strings.HasPrefix(name, "@") {
		name = strings.ToLower(name)
	}
	return Identifier{Name: name}
}

// WithFlag returns a copy of the identifier with a boolean flag appended.
func (id Identifier) WithFlag(flag string) Identifier {
	return Identifier{Name: id.Name, Params: append(id.Params[:len(id.Params):len(id.Params)], sfv.Param{Key: flag, Value: sfv.Boolean(true)})}
}

// WithKey returns a copy of the identifier selecting one dictionary member.
func (id Identifier) WithKey(member string) Identifier {
	return Identifier{Name: id.Name, Params: append(id.Params[:len(id.Params):len(id.Params)], sfv.Param{Key: FlagKey, Value: sfv.String(member)})}
}

// WithName returns a copy of the identifier carrying a query parameter name.
func (id Identifier) WithName(name string) Identifier {
	return Identifier{Name: id.Name, Params: append(id.Params[:len(id.Params):len(id.Params)], sfv.Param{Key: FlagName, Value: sfv.String(name)})}
}

// FromItem converts a parsed Signature-Input list item into an identifier,
// validating the component name and its parameters.
func FromItem(it sfv.Item) (Identifier, error) {
	name, ok := it.Bare.AsString()
	if !ok {
		return Identifier{}, ErrorUnsupported
	}
	if strings.HasPrefix(name, "@") {
		switch name {
		case Method, TargetUri, Authority, Scheme, RequestTarget, Path, Query, Status:
			for _, p := range it.Params {
				if p.Key != FlagReq {
					return Identifier{}, ErrorUnsupported
				}
				if _, ok := p.Value.AsBoolean(); !ok {
					return Identifier{}, ErrorUnsupported
				}
			}
		case QueryParam:
			for _, p := range it.Params {
				switch p.Key {
				case FlagReq:
					if _, ok := p.Value.AsBoolean(); !ok {
						return Identifier{}, ErrorUnsupported
					}
				case FlagName:
					if _, ok := p.Value.AsString(); !ok {
						return Identifier{}, ErrorUnsupported
					}
				default:
					return Identifier{}, ErrorUnsupported
				}
			}
		default:
			return Identifier{}, ErrorUnsupported
		}
		return Identifier{Name: name, Params: it.Params}, nil
	}

	keys := 0
	for _, p := range it.Params {
		switch p.Key {
		case FlagSF, FlagBS, FlagReq, FlagTR:
			if _, ok := p.Value.AsBoolean(); !ok {
				return Identifier{}, ErrorUnsupported
			}
		case FlagKey:
			if _, ok := p.Value.AsString(); !ok {
				return Identifier{}, ErrorUnsupported
			}
			keys++
		default:
			return Identifier{}, ErrorUnsupported
		}
	}
	// key selects a structured member, bs wraps raw bytes: the two (and sf)
	// cannot both apply to one field.
	if keys > 1 || (keys == 1 && (hasFlag(it.Params, FlagBS) || hasFlag(it.Params, FlagSF))) || (hasFlag(it.Params, FlagBS) && hasFlag(it.Params, FlagSF)) {
		return Identifier{}, ErrorUnsupported
	}
	return Identifier{Name: strings.ToLower(name), Params: it.Params}, nil
}

// Item returns the sfv form of the identifier, as it appears in
// Signature-Input and on signature base lines.
func (id Identifier) Item() sfv.Item {
	return sfv.Item{Bare: sfv.String(id.Name), Params: id.Params}
}

// Text returns the serialized identifier, e.g. `"cache-control";key="max-age"`.
func (id Identifier) Text() (string, error) {
	var buf bytes.Buffer
	if err := id.Item().AppendTo(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (id Identifier) hasFlag(flag string) bool {
	return hasFlag(id.Params, flag)
}

func hasFlag(ps sfv.Params, flag string) bool {
	v, ok := ps.Get(flag)
	if !ok {
		return false
	}
	b, ok := v.AsBoolean()
	return ok && b
}

func (id Identifier) stringParam(key string) (string, bool) {
	v, ok := id.Params.Get(key)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// Message is the read-only view of a request- or response-like HTTP message
// that the resolver works against.  Implementations must never be mutated
// by the resolver.
type Message interface {
	Authority() string
	GetMethod() string
	GetURL() *url.URL
	GetStatus() int
	Headers() http.Header
	Trailers() http.Header
	// RelatedRequest returns the request a response answers, or nil.
	RelatedRequest() Message
}

// Resolve extracts the canonical value of one covered component from the
// message.  Any failure aborts base construction in the caller.
func Resolve(msg Message, id Identifier) (string, error) {
	target := msg
	if id.hasFlag(FlagReq) {
		if target = msg.RelatedRequest(); target == nil {
			return "", ErrorNotFound
		}
	}
	if strings.HasPrefix(id.Name, "@") {
		return resolveDerived(target, id)
	}
	return resolveField(target, id)
}

func resolveDerived(msg Message, id Identifier) (string, error) {
	u := msg.GetURL()
	switch id.Name {
	case Method:
		if m := msg.GetMethod(); m != "" {
			return strings.ToUpper(m), nil
		}
		return "", ErrorNotFound
	case Authority:
		if a := msg.Authority(); a != "" {
			return strings.ToLower(a), nil
		}
		return "", ErrorNotFound
	case Scheme:
		if u == nil || u.Scheme == "" {
			return "", ErrorNotFound
		}
		return strings.ToLower(u.Scheme), nil
	case TargetUri:
		if u == nil {
			return "", ErrorNotFound
		}
		return u.String(), nil
	case RequestTarget:
		if u == nil {
			return "", ErrorNotFound
		}
		return u.RequestURI(), nil
	case Path:
		if u == nil {
			return "", ErrorNotFound
		}
		if p := u.EscapedPath(); p != "" {
			return p, nil
		}
		return "/", nil
	case Query:
		if u == nil {
			return "", ErrorNotFound
		}
		return "?" + u.RawQuery, nil
	case QueryParam:
		name, ok := id.stringParam(FlagName)
		if !ok {
			return "", ErrorUnsupported
		}
		if u == nil {
			return "", ErrorNotFound
		}
		vals := u.Query()[name]
		switch len(vals) {
		case 0:
			return "", ErrorNotFound
		case 1:
			return url.QueryEscape(vals[0]), nil
		default:
			// one base line per identifier: a repeated parameter has no
			// single canonical value
			return "", ErrorUnsupported
		}
	case Status:
		if s := msg.GetStatus(); s != 0 {
			return strconv.Itoa(s), nil
		}
		return "", ErrorNotFound
	default:
		return "", ErrorUnsupported
	}
}

func resolveField(msg Message, id Identifier) (string, error) {
	h := msg.Headers()
	if id.hasFlag(FlagTR) {
		h = msg.Trailers()
	}
	if h == nil {
		return "", ErrorNotFound
	}
	vals := h.Values(id.Name)
	if len(vals) == 0 {
		return "", ErrorNotFound
	}
	trimmed := make([]string, len(vals))
	for i, v := range vals {
		trimmed[i] = strings.TrimSpace(v)
	}

	if id.hasFlag(FlagBS) {
		var buf bytes.Buffer
		for i, v := range trimmed {
			if i > 0 {
				buf.WriteString(", ")
			}
			it := sfv.Item{Bare: sfv.Bytes([]byte(v))}
			if err := it.AppendTo(&buf); err != nil {
				return "", err
			}
		}
		return buf.String(), nil
	}

	combined := strings.Join(trimmed, ", ")

	if member, ok := id.stringParam(FlagKey); ok {
		d, err := sfv.ParseDictionary(combined)
		if err != nil {
			return "", err
		}
		m, ok := d.Get(member)
		if !ok {
			return "", ErrorNotFound
		}
		var buf bytes.Buffer
		if m.IsInner {
			err = m.Inner.AppendTo(&buf)
		} else {
			err = m.Item.AppendTo(&buf)
		}
		if err != nil {
			return "", err
		}
		return buf.String(), nil
	}

	if id.hasFlag(FlagSF) {
		return reserialize(combined)
	}

	return combined, nil
}

// reserialize parses a field as a structured value and emits the canonical
// form.  RFC 9421 takes the field's type from the registry; lacking one we
// try dictionary, then list, then item.
func reserialize(combined string) (string, error) {
	var buf bytes.Buffer
	if d, err := sfv.ParseDictionary(combined); err == nil {
		if err := d.AppendTo(&buf); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
	if l, err := sfv.ParseList(combined); err == nil {
		if err := l.AppendTo(&buf); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
	it, err := sfv.ParseItem(combined)
	if err != nil {
		return "", err
	}
	if err := it.AppendTo(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
