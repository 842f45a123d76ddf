// Copyright 2025 The httpsig Authors. All rights reserved.
// Use of this source code is governed by the Apache License,
// Version 2.0, that can be found in the LICENSE file.

package sfv

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

// SyntaxError reports a malformed structured field value.  Offset is the
// byte position in the input at which parsing failed.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("structured field: %s at offset %d", e.Msg, e.Offset)
}

// ParseItem parses a complete field value as a single item, rejecting
// trailing garbage.
func ParseItem(in string) (Item, error) {
	p := &parser{in: in}
	p.skipSP()
	it, err := p.parseItem()
	if err != nil {
		return Item{}, err
	}
	if err := p.expectEOF(); err != nil {
		return Item{}, err
	}
	return it, nil
}

// ParseDictionary parses a complete field value as a dictionary, rejecting
// trailing garbage.  An empty input yields an empty dictionary.
func ParseDictionary(in string) (Dictionary, error) {
	p := &parser{in: in}
	p.skipSP()
	var d Dictionary
	for !p.eof() {
		key, err := p.parseKey()
		if err != nil {
			return nil, err
		}
		m := Member{Key: key}
		if p.peek() == '=' {
			p.pos++
			if p.peek() == '(' {
				m.IsInner = true
				m.Inner, err = p.parseInnerList()
			} else {
				m.Item, err = p.parseItem()
			}
		} else {
			m.Item = Item{Bare: Boolean(true)}
			m.Item.Params, err = p.parseParams()
		}
		if err != nil {
			return nil, err
		}
		d = append(d, m)
		more, err := p.parseMemberSep()
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return d, nil
}

// ParseList parses a complete field value as a top-level list, rejecting
// trailing garbage.
func ParseList(in string) (List, error) {
	p := &parser{in: in}
	p.skipSP()
	var l List
	for !p.eof() {
		var e ListEntry
		var err error
		if p.peek() == '(' {
			e.IsInner = true
			e.Inner, err = p.parseInnerList()
		} else {
			e.Item, err = p.parseItem()
		}
		if err != nil {
			return nil, err
		}
		l = append(l, e)
		more, err := p.parseMemberSep()
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return l, nil
}

type parser struct {
	in  string
	pos int
}

func (p *parser) err(msg string) error {
	return &SyntaxError{Offset: p.pos, Msg: msg}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.in)
}

// peek returns the next byte, or 0 at end of input.
func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.in[p.pos]
}

func (p *parser) skipSP() {
	for !p.eof() && p.in[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) expectEOF() error {
	p.skipSP()
	if !p.eof() {
		return p.err("trailing garbage after value")
	}
	return nil
}

// parseMemberSep consumes the OWS "," OWS between dictionary or list
// members, reporting whether another member follows.
func (p *parser) parseMemberSep() (bool, error) {
	p.skipSP()
	if p.eof() || p.in[p.pos] != ',' {
		return false, nil
	}
	p.pos++
	p.skipSP()
	if p.eof() {
		return false, p.err("trailing comma")
	}
	return true, nil
}

func (p *parser) parseKey() (string, error) {
	if p.eof() || !isKeyStart(p.in[p.pos]) {
		return "", p.err("expected a key")
	}
	start := p.pos
	p.pos++
	for !p.eof() && isKeyChar(p.in[p.pos]) {
		p.pos++
	}
	return p.in[start:p.pos], nil
}

func (p *parser) parseItem() (Item, error) {
	bare, err := p.parseBareItem()
	if err != nil {
		return Item{}, err
	}
	params, err := p.parseParams()
	if err != nil {
		return Item{}, err
	}
	return Item{Bare: bare, Params: params}, nil
}

func (p *parser) parseParams() (Params, error) {
	var ps Params
	for !p.eof() && p.in[p.pos] == ';' {
		p.pos++
		p.skipSP()
		key, err := p.parseKey()
		if err != nil {
			return nil, err
		}
		value := Boolean(true)
		if !p.eof() && p.in[p.pos] == '=' {
			p.pos++
			if value, err = p.parseBareItem(); err != nil {
				return nil, err
			}
		}
		ps = append(ps, Param{Key: key, Value: value})
	}
	return ps, nil
}

func (p *parser) parseInnerList() (InnerList, error) {
	if p.peek() != '(' {
		return InnerList{}, p.err("expected '('")
	}
	p.pos++
	var l InnerList
	for {
		p.skipSP()
		if p.eof() {
			return InnerList{}, p.err("unterminated inner list")
		}
		if p.in[p.pos] == ')' {
			p.pos++
			break
		}
		it, err := p.parseItem()
		if err != nil {
			return InnerList{}, err
		}
		l.Items = append(l.Items, it)
		if c := p.peek(); c != ' ' && c != ')' {
			return InnerList{}, p.err("expected space or ')' after inner list item")
		}
	}
	params, err := p.parseParams()
	if err != nil {
		return InnerList{}, err
	}
	l.Params = params
	return l, nil
}

func (p *parser) parseBareItem() (BareItem, error) {
	if p.eof() {
		return BareItem{}, p.err("expected a bare item")
	}
	switch c := p.in[p.pos]; {
	case c == '"':
		return p.parseString()
	case c == ':':
		return p.parseByteSequence()
	case c == '?':
		return p.parseBoolean()
	case c == '@':
		p.pos++
		n, err := p.parseNumber()
		if err != nil {
			return BareItem{}, err
		}
		return Date(n), nil
	case c == '-' || (c >= '0' && c <= '9'):
		n, err := p.parseNumber()
		if err != nil {
			return BareItem{}, err
		}
		return Integer(n), nil
	case isTokenStart(c):
		return p.parseToken()
	default:
		return BareItem{}, p.err("unrecognized bare item")
	}
}

func (p *parser) parseString() (BareItem, error) {
	start := p.pos
	p.pos++ // opening quote
	var b []byte
	for !p.eof() {
		c := p.in[p.pos]
		switch {
		case c == '"':
			p.pos++
			return String(string(b)), nil
		case c == '\\':
			p.pos++
			if p.eof() {
				return BareItem{}, p.err("unterminated escape in string")
			}
			e := p.in[p.pos]
			if e != '"' && e != '\\' {
				return BareItem{}, p.err("invalid escape in string")
			}
			b = append(b, e)
			p.pos++
		case c < 0x20 || c > 0x7e:
			return BareItem{}, p.err("invalid character in string")
		default:
			b = append(b, c)
			p.pos++
		}
	}
	p.pos = start
	return BareItem{}, p.err("unterminated string")
}

func (p *parser) parseByteSequence() (BareItem, error) {
	start := p.pos
	p.pos++ // opening ':'
	for !p.eof() && p.in[p.pos] != ':' {
		c := p.in[p.pos]
		ok := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') || c == '+' || c == '/' || c == '='
		if !ok {
			return BareItem{}, p.err("invalid character in byte sequence")
		}
		p.pos++
	}
	if p.eof() {
		p.pos = start
		return BareItem{}, p.err("unterminated byte sequence")
	}
	encoded := p.in[start+1 : p.pos]
	p.pos++ // closing ':'
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		p.pos = start
		return BareItem{}, p.err("invalid base64 in byte sequence")
	}
	return Bytes(data), nil
}

func (p *parser) parseBoolean() (BareItem, error) {
	p.pos++ // '?'
	if p.eof() {
		return BareItem{}, p.err("unterminated boolean")
	}
	c := p.in[p.pos]
	p.pos++
	switch c {
	case '0':
		return Boolean(false), nil
	case '1':
		return Boolean(true), nil
	}
	p.pos -= 2
	return BareItem{}, p.err("invalid boolean")
}

func (p *parser) parseNumber() (int64, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	digits := 0
	for !p.eof() && p.in[p.pos] >= '0' && p.in[p.pos] <= '9' {
		p.pos++
		digits++
	}
	if digits == 0 {
		p.pos = start
		return 0, p.err("expected digits")
	}
	if digits > 15 {
		p.pos = start
		return 0, p.err("integer has too many digits")
	}
	if p.peek() == '.' {
		p.pos = start
		return 0, p.err("decimal values are not supported")
	}
	n, err := strconv.ParseInt(p.in[start:p.pos], 10, 64)
	if err != nil {
		p.pos = start
		return 0, p.err("invalid integer")
	}
	return n, nil
}

func (p *parser) parseToken() (BareItem, error) {
	start := p.pos
	p.pos++
	for !p.eof() && isTokenChar(p.in[p.pos]) {
		p.pos++
	}
	return Token(p.in[start:p.pos]), nil
}
