// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rgb565 implements the 16 bits per pixel color format used by most
// small TFT controllers (ILI9341, ST7789, GC9307).
//
// Pixels are stored big-endian, which is the order the controllers expect on
// the wire after a RAMWR command. A buffer can be handed to the bus as-is.
package rgb565

import (
	"image"
	"image/color"
)

// RGB565 is a 16 bits color: 5 bits red, 6 bits green, 5 bits blue.
type RGB565 uint16

// New packs 8 bits channels into a RGB565.
func New(r, g, b uint8) RGB565 {
	return RGB565(uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(b)>>3)
}

// RGBA implements color.Color.
func (c RGB565) RGBA() (r, g, b, a uint32) {
	r8, g8, b8 := c.RGB()
	r = uint32(r8) * 0x101
	g = uint32(g8) * 0x101
	b = uint32(b8) * 0x101
	return r, g, b, 0xFFFF
}

// RGB returns the 8 bits channels, expanding the low bits so that full
// intensity maps to 0xFF.
func (c RGB565) RGB() (r, g, b uint8) {
	r5 := uint8(c >> 11)
	g6 := uint8(c>>5) & 0x3F
	b5 := uint8(c) & 0x1F
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2
}

func convert(c color.Color) color.Color {
	if v, ok := c.(RGB565); ok {
		return v
	}
	r, g, b, _ := c.RGBA()
	return New(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// Model converts any color to RGB565. Alpha is dropped.
var Model = color.ModelFunc(convert)

// Image is an in-memory image of RGB565 pixels.
type Image struct {
	// Pix holds the pixels, 2 bytes each, most significant byte first.
	Pix []byte
	// Stride is the distance in bytes between two vertically adjacent pixels.
	Stride int
	Rect   image.Rectangle
}

// NewImage returns an Image with the given bounds.
func NewImage(r image.Rectangle) *Image {
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return &Image{Rect: r}
	}
	return &Image{Pix: make([]byte, 2*w*h), Stride: 2 * w, Rect: r}
}

// Wrap returns an Image using pix as its backing store. No copy is done.
//
// It returns nil if pix is too small to hold r.
func Wrap(pix []byte, r image.Rectangle) *Image {
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return &Image{Rect: r}
	}
	if len(pix) < 2*w*h {
		return nil
	}
	return &Image{Pix: pix[:2*w*h], Stride: 2 * w, Rect: r}
}

// ColorModel implements image.Image.
func (i *Image) ColorModel() color.Model {
	return Model
}

// Bounds implements image.Image.
func (i *Image) Bounds() image.Rectangle {
	return i.Rect
}

// At implements image.Image.
func (i *Image) At(x, y int) color.Color {
	return i.RGB565At(x, y)
}

// RGB565At returns the pixel at (x, y) or 0 when out of bounds.
func (i *Image) RGB565At(x, y int) RGB565 {
	if !(image.Point{X: x, Y: y}.In(i.Rect)) {
		return 0
	}
	o := i.PixOffset(x, y)
	return RGB565(uint16(i.Pix[o])<<8 | uint16(i.Pix[o+1]))
}

// Set implements draw.Image.
func (i *Image) Set(x, y int, c color.Color) {
	i.SetRGB565(x, y, convert(c).(RGB565))
}

// SetRGB565 sets the pixel at (x, y) without going through the color model.
func (i *Image) SetRGB565(x, y int, c RGB565) {
	if !(image.Point{X: x, Y: y}.In(i.Rect)) {
		return
	}
	o := i.PixOffset(x, y)
	i.Pix[o] = byte(c >> 8)
	i.Pix[o+1] = byte(c)
}

// PixOffset returns the index of the first byte of the pixel at (x, y).
func (i *Image) PixOffset(x, y int) int {
	return (y-i.Rect.Min.Y)*i.Stride + (x-i.Rect.Min.X)*2
}

// Fill sets every pixel to c.
func (i *Image) Fill(c RGB565) {
	hi, lo := byte(c>>8), byte(c)
	for o := 0; o+1 < len(i.Pix); o += 2 {
		i.Pix[o] = hi
		i.Pix[o+1] = lo
	}
}
