// Copyright 2025 The httpsig Authors. All rights reserved.
// Use of this source code is governed by the Apache License,
// Version 2.0, that can be found in the LICENSE file.

// Package sfv implements the subset of HTTP structured field values
// (RFC 8941) needed for HTTP message signatures: bare items, parameters,
// items, inner lists, lists and dictionaries.
//
// Serialization is canonical, and parsing preserves member and parameter
// order, so a value parsed from a canonically serialized field
// re-serializes to the identical bytes.  Signature verification depends on
// that property: the "@signature-params" line of a signature base is the
// re-serialization of the parsed Signature-Input member.
package sfv

import (
	"bytes"
	"encoding/base64"
	"strconv"
)

// Kind discriminates the bare item variants.
type Kind int

const (
	KindString Kind = iota
	KindToken
	KindInteger
	KindDate
	KindBoolean
	KindBytes
)

// maxInteger is the largest magnitude an sf-integer may carry (15 digits).
const maxInteger = 999_999_999_999_999

// BareItem is a single RFC 8941 bare item.  The zero value is the boolean
// false item.
type BareItem struct {
	kind Kind
	str  string
	num  int64
	flag bool
	data []byte
}

func String(s string) BareItem  { return BareItem{kind: KindString, str: s} }
func Token(s string) BareItem   { return BareItem{kind: KindToken, str: s} }
func Integer(i int64) BareItem  { return BareItem{kind: KindInteger, num: i} }
func Date(secs int64) BareItem  { return BareItem{kind: KindDate, num: secs} }
func Boolean(b bool) BareItem   { return BareItem{kind: KindBoolean, flag: b} }
func Bytes(b []byte) BareItem   { return BareItem{kind: KindBytes, data: b} }

func (b BareItem) Kind() Kind { return b.kind }

func (b BareItem) AsString() (string, bool) {
	return b.str, b.kind == KindString
}

func (b BareItem) AsToken() (string, bool) {
	return b.str, b.kind == KindToken
}

func (b BareItem) AsInteger() (int64, bool) {
	return b.num, b.kind == KindInteger
}

func (b BareItem) AsDate() (int64, bool) {
	return b.num, b.kind == KindDate
}

func (b BareItem) AsBoolean() (bool, bool) {
	return b.flag, b.kind == KindBoolean
}

func (b BareItem) AsBytes() ([]byte, bool) {
	return b.data, b.kind == KindBytes
}

// isTrue reports whether the bare item is the boolean true, whose
// serialization is elided in parameters and dictionary members.
func (b BareItem) isTrue() bool {
	return b.kind == KindBoolean && b.flag
}

func (b BareItem) appendTo(buf *bytes.Buffer) error {
	switch b.kind {
	case KindString:
		buf.WriteByte('"')
		for i := 0; i < len(b.str); i++ {
			c := b.str[i]
			if c < 0x20 || c > 0x7e {
				return &SyntaxError{Msg: "string contains non-printable character"}
			}
			if c == '"' || c == '\\' {
				buf.WriteByte('\\')
			}
			buf.WriteByte(c)
		}
		buf.WriteByte('"')
	case KindToken:
		if len(b.str) == 0 || !isTokenStart(b.str[0]) {
			return &SyntaxError{Msg: "invalid token"}
		}
		for i := 1; i < len(b.str); i++ {
			if !isTokenChar(b.str[i]) {
				return &SyntaxError{Msg: "invalid token"}
			}
		}
		buf.WriteString(b.str)
	case KindInteger:
		if b.num > maxInteger || b.num < -maxInteger {
			return &SyntaxError{Msg: "integer out of range"}
		}
		var ibuf [20]byte
		buf.Write(strconv.AppendInt(ibuf[:0], b.num, 10))
	case KindDate:
		if b.num > maxInteger || b.num < -maxInteger {
			return &SyntaxError{Msg: "date out of range"}
		}
		buf.WriteByte('@')
		var ibuf [20]byte
		buf.Write(strconv.AppendInt(ibuf[:0], b.num, 10))
	case KindBoolean:
		if b.flag {
			buf.WriteString("?1")
		} else {
			buf.WriteString("?0")
		}
	case KindBytes:
		buf.WriteByte(':')
		buf.WriteString(base64.StdEncoding.EncodeToString(b.data))
		buf.WriteByte(':')
	default:
		return &SyntaxError{Msg: "unknown bare item kind"}
	}
	return nil
}

// Param is one key/value pair attached to an item or inner list.
type Param struct {
	Key   string
	Value BareItem
}

// Params is an ordered parameter list.  Order is significant: it determines
// the serialized bytes and therefore the bytes that get signed.
type Params []Param

// Get returns the value for key.  Matching RFC 8941 semantics, the last
// occurrence of a key wins.
func (ps Params) Get(key string) (BareItem, bool) {
	for i := len(ps) - 1; i >= 0; i-- {
		if ps[i].Key == key {
			return ps[i].Value, true
		}
	}
	return BareItem{}, false
}

func (ps Params) appendTo(buf *bytes.Buffer) error {
	for _, p := range ps {
		buf.WriteByte(';')
		if err := appendKey(buf, p.Key); err != nil {
			return err
		}
		if p.Value.isTrue() {
			continue
		}
		buf.WriteByte('=')
		if err := p.Value.appendTo(buf); err != nil {
			return err
		}
	}
	return nil
}

// Item is a bare item with parameters.
type Item struct {
	Bare   BareItem
	Params Params
}

func (it Item) AppendTo(buf *bytes.Buffer) error {
	if err := it.Bare.appendTo(buf); err != nil {
		return err
	}
	return it.Params.appendTo(buf)
}

// InnerList is a parenthesized list of items with parameters, e.g. the
// value of a Signature-Input dictionary member.
type InnerList struct {
	Items  []Item
	Params Params
}

func (l InnerList) AppendTo(buf *bytes.Buffer) error {
	buf.WriteByte('(')
	for i, it := range l.Items {
		if i > 0 {
			buf.WriteByte(' ')
		}
		if err := it.AppendTo(buf); err != nil {
			return err
		}
	}
	buf.WriteByte(')')
	return l.Params.appendTo(buf)
}

// Member is a dictionary member: either an item or an inner list.
type Member struct {
	Key     string
	IsInner bool
	Item    Item
	Inner   InnerList
}

func (m Member) appendValueTo(buf *bytes.Buffer) error {
	if m.IsInner {
		return m.Inner.AppendTo(buf)
	}
	return m.Item.AppendTo(buf)
}

// Dictionary is an ordered list of keyed members.
type Dictionary []Member

// Get returns the member for key; the last occurrence wins.
func (d Dictionary) Get(key string) (Member, bool) {
	for i := len(d) - 1; i >= 0; i-- {
		if d[i].Key == key {
			return d[i], true
		}
	}
	return Member{}, false
}

func (d Dictionary) AppendTo(buf *bytes.Buffer) error {
	for i, m := range d {
		if i > 0 {
			buf.WriteString(", ")
		}
		if err := appendKey(buf, m.Key); err != nil {
			return err
		}
		if !m.IsInner && m.Item.Bare.isTrue() {
			if err := m.Item.Params.appendTo(buf); err != nil {
				return err
			}
			continue
		}
		buf.WriteByte('=')
		if err := m.appendValueTo(buf); err != nil {
			return err
		}
	}
	return nil
}

// ListEntry is a top-level list member: either an item or an inner list.
type ListEntry struct {
	IsInner bool
	Item    Item
	Inner   InnerList
}

// List is a top-level RFC 8941 list.
type List []ListEntry

func (l List) AppendTo(buf *bytes.Buffer) error {
	for i, e := range l {
		if i > 0 {
			buf.WriteString(", ")
		}
		var err error
		if e.IsInner {
			err = e.Inner.AppendTo(buf)
		} else {
			err = e.Item.AppendTo(buf)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func appendKey(buf *bytes.Buffer, key string) error {
	if !validKey(key) {
		return &SyntaxError{Msg: "invalid parameter or dictionary key"}
	}
	buf.WriteString(key)
	return nil
}

func validKey(key string) bool {
	if len(key) == 0 || !isKeyStart(key[0]) {
		return false
	}
	for i := 1; i < len(key); i++ {
		if !isKeyChar(key[i]) {
			return false
		}
	}
	return true
}

func isKeyStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || c == '*'
}

func isKeyChar(c byte) bool {
	return isKeyStart(c) || (c >= '0' && c <= '9') || c == '_' || c == '-' || c == '.'
}

func isTokenStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '*'
}

func isTokenChar(c byte) bool {
	switch {
	case isTokenStart(c), c >= '0' && c <= '9':
		return true
	case c == ':' || c == '/':
		return true
	}
	switch c {
	case '!', '#', '$', '%', '&', '\'', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}
