// Copyright 2025 The httpsig Authors. All rights reserved.
// Use of this source code is governed by the Apache License,
// Version 2.0, that can be found in the LICENSE file.

// Package safepool wraps sync.Pool with types for the scratch buffers the
// signing and verification hot paths reuse.
package safepool

import (
	"bytes"
	"sync"
)

type BufferPool struct {
	p sync.Pool
}

func NewBufferPool(newFn func() *bytes.Buffer) *BufferPool {
	return &BufferPool{
		p: sync.Pool{
			New: func() interface{} {
				return newFn()
			},
		},
	}
}

func (p *BufferPool) Get() *bytes.Buffer {
	return p.p.Get().(*bytes.Buffer)
}

func (p *BufferPool) Put(item *bytes.Buffer) {
	item.Reset()
	p.p.Put(item)
}

type ByteSlicePool struct {
	p sync.Pool
}

func NewByteSlicePool(newFn func() []byte) *ByteSlicePool {
	return &ByteSlicePool{
		p: sync.Pool{
			New: func() interface{} {
				s := newFn()
				return &s
			},
		},
	}
}

func (p *ByteSlicePool) Get() *[]byte {
	return p.p.Get().(*[]byte)
}

func (p *ByteSlicePool) Put(item *[]byte) {
	*item = (*item)[:0]
	p.p.Put(item)
}
