// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package termpanel emulates a TFT panel controller in the terminal (stdout)
// using ANSI color codes.
//
// It accepts the same window and pixel stream as an ILI9341, so a render loop
// can be developed on a host before the hardware shows up. Only the window
// touched by a transfer is repainted.
package termpanel

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"sync"

	"github.com/GermanBionicSystems/tftport/rgb565"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"
)

// Opts represents the options available for this panel.
type Opts struct {
	W, H    int
	Palette *ansi256.Palette
	// Done makes transfers asynchronous: it is called from another goroutine
	// once the window was repainted.
	Done func()

	_ struct{}
}

// Dev is a panel emulator that outputs to the console.
type Dev struct {
	w       io.Writer
	palette ansi256.Palette
	done    func()

	mu    sync.Mutex
	ram   *rgb565.Image
	win   image.Rectangle
	buf   bytes.Buffer
	pends sync.WaitGroup
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	return NewWriter(colorable.NewColorableStdout(), opts)
}

// NewWriter returns a Dev writing ANSI sequences to w.
func NewWriter(w io.Writer, opts *Opts) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	return &Dev{
		w:       w,
		palette: *p,
		done:    opts.Done,
		ram:     rgb565.NewImage(image.Rect(0, 0, opts.W, opts.H)),
	}
}

func (d *Dev) String() string {
	return fmt.Sprintf("TermPanel{%s}", d.ram.Rect.Max)
}

// Init implements flush.Panel. It blanks the panel and clears the terminal.
func (d *Dev) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ram.Fill(0)
	d.win = d.ram.Rect
	_, err := io.WriteString(d.w, "\033[0m\033[2J")
	return err
}

// SetWindow implements flush.Panel.
func (d *Dev) SetWindow(x1, y1, x2, y2 int) error {
	r := image.Rect(x1, y1, x2+1, y2+1)
	if x1 > x2 || y1 > y2 || !r.In(d.ram.Rect) {
		return fmt.Errorf("termpanel: invalid window (%d,%d)-(%d,%d)", x1, y1, x2, y2)
	}
	d.mu.Lock()
	d.win = r
	d.mu.Unlock()
	return nil
}

// Transfer implements flush.Panel. The pixels fill the window row by row.
//
// Done is only called for transfers that return nil.
func (d *Dev) Transfer(w, h int, pix []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w != d.win.Dx() || h != d.win.Dy() || len(pix) < 2*w*h {
		return fmt.Errorf("termpanel: %dx%d pixels (%d bytes) do not fit window %s", w, h, len(pix), d.win)
	}
	for y := 0; y < h; y++ {
		o := d.ram.PixOffset(d.win.Min.X, d.win.Min.Y+y)
		copy(d.ram.Pix[o:o+2*w], pix[2*w*y:])
	}
	if err := d.refreshLocked(d.win); err != nil {
		return err
	}
	if d.done != nil {
		d.pends.Add(1)
		go func() {
			defer d.pends.Done()
			d.done()
		}()
	}
	return nil
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return rgb565.Model
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return d.ram.Rect
}

// Draw implements display.Drawer.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	clipped := r.Intersect(d.ram.Rect)
	if clipped.Empty() {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	draw.Src.Draw(d.ram, clipped, src, sp.Add(clipped.Min.Sub(r.Min)))
	return d.refreshLocked(clipped)
}

// Halt implements conn.Resource.
//
// It waits for pending Done calls and resets the terminal attributes.
func (d *Dev) Halt() error {
	d.pends.Wait()
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// At returns the color of the pixel at (x, y) in the controller RAM.
func (d *Dev) At(x, y int) rgb565.RGB565 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ram.RGB565At(x, y)
}

func (d *Dev) refreshLocked(r image.Rectangle) error {
	// This code is designed to minimize the amount of memory allocated per call.
	d.buf.Reset()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		fmt.Fprintf(&d.buf, "\033[%d;%dH", y+1, r.Min.X+1)
		for x := r.Min.X; x < r.Max.X; x++ {
			cr, cg, cb := d.ram.RGB565At(x, y).RGB()
			_, _ = io.WriteString(&d.buf, d.palette.Block(color.NRGBA{cr, cg, cb, 255}))
		}
	}
	_, _ = d.buf.WriteString("\033[0m")
	_, err := d.buf.WriteTo(d.w)
	return err
}

var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
