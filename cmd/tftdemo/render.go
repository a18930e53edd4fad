// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"image"
	"math"

	"github.com/GermanBionicSystems/tftport/flush"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// renderer draws the demo frames. The returned image is reused by the next
// frame.
type renderer struct {
	dc    *gg.Context
	img   *image.RGBA
	title font.Face
}

func newRenderer(w, h int) (*renderer, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	dc := gg.NewContext(w, h)
	img, ok := dc.Image().(*image.RGBA)
	if !ok {
		return nil, fmt.Errorf("unexpected image type %T", dc.Image())
	}
	return &renderer{
		dc:    dc,
		img:   img,
		title: truetype.NewFace(f, &truetype.Options{Size: math.Max(6, float64(h)/8)}),
	}, nil
}

func (r *renderer) frame(n int, s flush.Stats, enabled bool) image.Image {
	dc := r.dc
	w, h := float64(dc.Width()), float64(dc.Height())
	dc.SetRGB(0.05, 0.05, 0.15)
	dc.Clear()

	// Six dots orbiting the center.
	a := float64(n) * 0.1
	for i := 0; i < 6; i++ {
		t := a + float64(i)*math.Pi/3
		dc.DrawCircle(w/2+math.Cos(t)*w/3, h/2+math.Sin(t)*h/3, h/16)
		dc.SetRGB(0.5+0.5*math.Cos(t), 0.5+0.5*math.Sin(t), 1-float64(i)/6)
		dc.Fill()
	}

	padding := h / 20
	dc.SetRGB(1, 1, 1)
	dc.SetLineWidth(2)
	dc.DrawRoundedRectangle(padding, padding, w-2*padding, h-2*padding, padding)
	dc.Stroke()

	dc.SetFontFace(r.title)
	dc.DrawStringAnchored("tftport", w/2, h/2, 0.5, 0.5)

	status := fmt.Sprintf("#%d flushed %d skipped %d", n, s.Flushes, s.Skipped)
	if !enabled {
		status += " paused"
	}
	f := basicfont.Face7x13
	drawer := font.Drawer{
		Dst:  r.img,
		Src:  image.White,
		Face: f,
		Dot:  fixed.P(int(padding)+2, r.img.Bounds().Dy()-1-int(padding)-f.Descent),
	}
	drawer.DrawString(status)
	return r.img
}
