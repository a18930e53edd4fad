// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rgb565

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNew(t *testing.T) {
	for _, tc := range []struct {
		name    string
		r, g, b uint8
		want    RGB565
	}{
		{"black", 0, 0, 0, 0x0000},
		{"white", 0xFF, 0xFF, 0xFF, 0xFFFF},
		{"red", 0xFF, 0, 0, 0xF800},
		{"green", 0, 0xFF, 0, 0x07E0},
		{"blue", 0, 0, 0xFF, 0x001F},
		{"low bits dropped", 0x07, 0x03, 0x07, 0x0000},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := New(tc.r, tc.g, tc.b); got != tc.want {
				t.Errorf("New(%#x, %#x, %#x) = %#04x, want %#04x", tc.r, tc.g, tc.b, got, tc.want)
			}
		})
	}
}

func TestRGBA(t *testing.T) {
	r, g, b, a := RGB565(0xFFFF).RGBA()
	if r != 0xFFFF || g != 0xFFFF || b != 0xFFFF || a != 0xFFFF {
		t.Errorf("RGBA() = (%#x, %#x, %#x, %#x), want all 0xffff", r, g, b, a)
	}
	r, g, b, _ = RGB565(0xF800).RGBA()
	if r != 0xFFFF || g != 0 || b != 0 {
		t.Errorf("red RGBA() = (%#x, %#x, %#x)", r, g, b)
	}
}

func TestModel(t *testing.T) {
	for _, tc := range []struct {
		name string
		c    color.Color
		want RGB565
	}{
		{"passthrough", RGB565(0x1234), 0x1234},
		{"black", color.Black, 0},
		{"white", color.White, 0xFFFF},
		{"nrgba", color.NRGBA{R: 0xFF, A: 0xFF}, 0xF800},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := Model.Convert(tc.c).(RGB565); got != tc.want {
				t.Errorf("Convert(%v) = %#04x, want %#04x", tc.c, got, tc.want)
			}
		})
	}
}

func TestImage(t *testing.T) {
	img := NewImage(image.Rect(10, 20, 12, 22))
	if got, want := len(img.Pix), 8; got != want {
		t.Fatalf("len(Pix) = %d, want %d", got, want)
	}
	img.Set(11, 21, color.White)
	img.SetRGB565(10, 20, 0xABCD)
	// Out of bounds writes are ignored.
	img.Set(0, 0, color.White)
	want := []byte{0xAB, 0xCD, 0, 0, 0, 0, 0xFF, 0xFF}
	if diff := cmp.Diff(img.Pix, want); diff != "" {
		t.Errorf("Pix difference (-got +want):\n%s", diff)
	}
	if got := img.RGB565At(10, 20); got != 0xABCD {
		t.Errorf("RGB565At() = %#04x", got)
	}
	if got := img.RGB565At(100, 100); got != 0 {
		t.Errorf("RGB565At() out of bounds = %#04x", got)
	}
}

func TestWrap(t *testing.T) {
	backing := make([]byte, 32)
	img := Wrap(backing, image.Rect(0, 0, 3, 2))
	if img == nil {
		t.Fatal("Wrap() returned nil")
	}
	if img.Stride != 6 || len(img.Pix) != 12 {
		t.Errorf("Wrap() stride=%d len=%d", img.Stride, len(img.Pix))
	}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	for i := 0; i < 12; i++ {
		if backing[i] != 0xFF {
			t.Fatalf("backing[%d] = %#x, want 0xff", i, backing[i])
		}
	}
	if backing[12] != 0 {
		t.Error("Wrap() wrote past the rectangle")
	}
	if Wrap(backing, image.Rect(0, 0, 10, 10)) != nil {
		t.Error("Wrap() should fail when the slice is too small")
	}
}

func TestFill(t *testing.T) {
	img := NewImage(image.Rect(0, 0, 2, 1))
	img.Fill(0x07E0)
	if diff := cmp.Diff(img.Pix, []byte{0x07, 0xE0, 0x07, 0xE0}); diff != "" {
		t.Errorf("Fill() difference (-got +want):\n%s", diff)
	}
}
