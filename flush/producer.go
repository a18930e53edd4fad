// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flush

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/GermanBionicSystems/tftport/rgb565"
	"periph.io/x/conn/v3/display"
)

// Producer is the render side of a Driver. It renders images into the Driver
// buffers band by band and flushes them.
//
// A Producer is not safe for concurrent use; there must be only one per
// Driver.
type Producer struct {
	d       *Driver
	next    int
	pending bool
}

// NewProducer returns the Producer for d.
func NewProducer(d *Driver) *Producer {
	return &Producer{d: d}
}

func (p *Producer) String() string {
	return fmt.Sprintf("flush.Producer{%s}", p.d)
}

// ColorModel implements display.Drawer.
func (p *Producer) ColorModel() color.Model {
	return rgb565.Model
}

// Bounds implements display.Drawer. Min is guaranteed to be {0, 0}.
func (p *Producer) Bounds() image.Rectangle {
	return p.d.Bounds()
}

// Draw implements display.Drawer.
//
// It returns once the last band was released.
func (p *Producer) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	return p.Flush(context.Background(), src, r, sp)
}

// Halt implements conn.Resource. It halts the Driver.
func (p *Producer) Halt() error {
	return p.d.Halt()
}

// Flush renders src into the area r of the panel, sp being the point of src
// aligned with r.Min.
//
// The area is sent in bands as high as the buffers allow. With two buffers, a
// band is rendered while the previous one is transferred.
//
// Cancelling ctx stops waiting for releases; a transfer in flight is never
// aborted and the next Flush waits for it.
func (p *Producer) Flush(ctx context.Context, src image.Image, r image.Rectangle, sp image.Point) error {
	clipped := r.Intersect(p.d.Bounds())
	if clipped.Empty() {
		return nil
	}
	sp = sp.Add(clipped.Min.Sub(r.Min))
	r = clipped
	if !p.pending {
		// A release left by a direct RequestFlush call.
		p.d.drain()
	}

	rows := p.d.bufs[0].Cap() / r.Dx()
	for y := r.Min.Y; y < r.Max.Y; y += rows {
		band := image.Rect(r.Min.X, y, r.Max.X, min(y+rows, r.Max.Y))
		buf := p.d.bufs[p.next]
		if len(p.d.bufs) == 1 {
			// The only buffer is read by the transfer until released.
			if err := p.wait(ctx); err != nil {
				return err
			}
		}
		dirty := FromRectangle(band)
		draw.Draw(buf.Image(dirty), band, src, sp.Add(band.Min.Sub(r.Min)), draw.Src)
		if err := p.wait(ctx); err != nil {
			return err
		}
		if err := p.d.RequestFlush(dirty, buf); err != nil {
			var te *TransferError
			if errors.As(err, &te) {
				p.pending = true
			}
			return err
		}
		p.pending = true
		p.next = (p.next + 1) % len(p.d.bufs)
	}
	return p.wait(ctx)
}

func (p *Producer) wait(ctx context.Context) error {
	if !p.pending {
		return nil
	}
	if err := p.d.Wait(ctx); err != nil {
		return err
	}
	p.pending = false
	return nil
}

var _ display.Drawer = &Producer{}
