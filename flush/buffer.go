// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flush

import (
	"fmt"

	"github.com/GermanBionicSystems/tftport/rgb565"
)

// Buffer is a pixel buffer owned by a Driver. It is allocated once by Register
// and keeps its capacity for the lifetime of the Driver.
//
// The render loop may write to a Buffer only while no flush of it is in
// flight.
type Buffer struct {
	owner *Driver
	index int
	pix   []byte
}

func newBuffer(owner *Driver, index, pixels int) *Buffer {
	return &Buffer{owner: owner, index: index, pix: make([]byte, 2*pixels)}
}

// Len returns the size of the buffer in bytes.
func (b *Buffer) Len() int {
	return len(b.pix)
}

// Cap returns the capacity in pixels.
func (b *Buffer) Cap() int {
	return len(b.pix) / 2
}

// Pix returns the bytes holding the pixels of r, row major and contiguous.
//
// It returns nil if r does not fit.
func (b *Buffer) Pix(r Rect) []byte {
	n := 2 * r.Pixels()
	if n <= 0 || n > len(b.pix) {
		return nil
	}
	return b.pix[:n]
}

// Image returns a view of the buffer laid out as r. Drawing on it writes
// directly into the buffer.
//
// It returns nil if r does not fit.
func (b *Buffer) Image(r Rect) *rgb565.Image {
	if r.Pixels() <= 0 {
		return nil
	}
	return rgb565.Wrap(b.pix, r.Rectangle())
}

func (b *Buffer) String() string {
	return fmt.Sprintf("flush.Buffer{%d, %d px}", b.index, b.Cap())
}
