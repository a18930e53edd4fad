// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package websink emulates a TFT panel controller and streams its content to
// HTTP clients.
//
// The sink accepts the window and pixel stream of an ILI9341 class
// controller. Each completed transfer pushes a new frame to every client as a
// "multipart/x-mixed-replace" stream (MJPEG style) of PNG or JPEG images.
// Browsers render such a stream in an <img> tag.
package websink

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"net/http"
	"sync"

	"github.com/GermanBionicSystems/tftport/rgb565"
	"periph.io/x/conn/v3/display"
)

// Options for websink devices.
type Options struct {
	// Width and Height of the emulated panel.
	Width, Height int

	// Format is the image format sent to clients that do not ask for one.
	Format ImageFormat
}

// Sink is a panel whose RAM is served over HTTP.
type Sink struct {
	format ImageFormat

	mu      sync.Mutex
	ram     *image.RGBA
	win     image.Rectangle
	clients map[*client]struct{}
	frames  map[ImageFormat][]byte
}

var _ display.Drawer = (*Sink)(nil)
var _ http.Handler = (*Sink)(nil)

// New creates a new Sink.
func New(opt *Options) *Sink {
	s := &Sink{
		format:  opt.Format,
		ram:     image.NewRGBA(image.Rect(0, 0, opt.Width, opt.Height)),
		clients: map[*client]struct{}{},
		frames:  map[ImageFormat][]byte{},
	}
	s.win = s.ram.Rect
	s.blankLocked()
	return s
}

func (s *Sink) String() string {
	return fmt.Sprintf("WebSink{%s}", s.ram.Rect.Max)
}

// Init implements flush.Panel. It blanks the panel.
func (s *Sink) Init() error {
	s.mu.Lock()
	s.blankLocked()
	s.win = s.ram.Rect
	s.changedLocked()
	s.mu.Unlock()
	return nil
}

// SetWindow implements flush.Panel.
func (s *Sink) SetWindow(x1, y1, x2, y2 int) error {
	r := image.Rect(x1, y1, x2+1, y2+1)
	if x1 > x2 || y1 > y2 || !r.In(s.ram.Rect) {
		return fmt.Errorf("websink: invalid window (%d,%d)-(%d,%d)", x1, y1, x2, y2)
	}
	s.mu.Lock()
	s.win = r
	s.mu.Unlock()
	return nil
}

// Transfer implements flush.Panel. It is synchronous.
func (s *Sink) Transfer(w, h int, pix []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w != s.win.Dx() || h != s.win.Dy() {
		return fmt.Errorf("websink: %dx%d pixels do not fit window %s", w, h, s.win)
	}
	src := rgb565.Wrap(pix, s.win)
	if src == nil {
		return fmt.Errorf("websink: %d bytes is too short for %dx%d pixels", len(pix), w, h)
	}
	draw.Draw(s.ram, s.win, src, s.win.Min, draw.Src)
	s.changedLocked()
	return nil
}

// Halt implements conn.Resource and terminates all client streams
// asynchronously.
func (s *Sink) Halt() error {
	s.mu.Lock()
	for c := range s.clients {
		c.signal(c.terminate)
	}
	s.mu.Unlock()
	return nil
}

// ColorModel implements display.Drawer.
func (s *Sink) ColorModel() color.Model {
	return s.ram.ColorModel()
}

// Bounds implements display.Drawer.
func (s *Sink) Bounds() image.Rectangle {
	return s.ram.Rect
}

// Draw implements display.Drawer.
func (s *Sink) Draw(dstRect image.Rectangle, src image.Image, srcPts image.Point) error {
	s.mu.Lock()
	draw.Draw(s.ram, dstRect, src, srcPts, draw.Src)
	s.changedLocked()
	s.mu.Unlock()
	return nil
}

// blankLocked paints the RAM opaque black; a zero image.RGBA is transparent.
func (s *Sink) blankLocked() {
	draw.Draw(s.ram, s.ram.Rect, image.Black, image.Point{}, draw.Src)
}
