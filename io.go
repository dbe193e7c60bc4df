// Copyright 2026 Mohammad Shariful Islam
// SPDX-License-Identifier: MIT

package dngwrite

import (
	"encoding/binary"
	"io"
	"math"
)

// streamWriter is a wrapper around a Writer that provides methods to write
// binary data, with byte accounting for short-write detection.
// Note that this is not thread safe.
type streamWriter struct {
	w io.Writer

	buf []byte

	written  int64
	writeErr error
}

func newStreamWriter(w io.Writer) *streamWriter {
	return &streamWriter{
		w:   w,
		buf: make([]byte, 1024),
	}
}

// writeBytes forwards b to the underlying writer. After the first error the
// writer goes inert; written keeps counting the bytes that actually landed.
func (e *streamWriter) writeBytes(b []byte) {
	if e.writeErr != nil {
		return
	}
	n, err := e.w.Write(b)
	e.written += int64(n)
	e.writeErr = err
}

// writeSamples emits pixels as big-endian IEEE 754 samples, one row per
// Write call. The byte order must agree with the byte-order marker in the
// file header.
func (e *streamWriter) writeSamples(pixels []float32, width int) {
	rowSize := width * 4
	e.allocateBuf(rowSize)
	for len(pixels) > 0 && e.writeErr == nil {
		for i, s := range pixels[:width] {
			binary.BigEndian.PutUint32(e.buf[i*4:], math.Float32bits(s))
		}
		e.writeBytes(e.buf[:rowSize])
		pixels = pixels[width:]
	}
}

func (e *streamWriter) allocateBuf(length int) {
	if length > cap(e.buf) {
		e.buf = make([]byte, length)
	}
}
