// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ili9341

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"sync"
	"time"

	"github.com/GermanBionicSystems/tftport/rgb565"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3/rpi"
)

// Native resolution, in portrait.
const (
	nativeW = 240
	nativeH = 320
)

// Rotation is the clock-wise rotation of the panel.
type Rotation uint8

// Possible rotations. Rotation90 and Rotation270 are landscape.
const (
	Rotation0 Rotation = iota
	Rotation90
	Rotation180
	Rotation270
)

// Opts defines the options for the device.
type Opts struct {
	Rotation Rotation
	// BGR is set for panels wired blue-green-red, which is most of them.
	BGR bool
	// Speed of the SPI bus. The controller accepts writes up to 10MHz per the
	// datasheet; most modules work far above that.
	Speed physic.Frequency
	// ChunkSize limits the size of a single SPI transaction. When 0, the limit
	// advertised by the SPI connection is used.
	ChunkSize int
	// Async makes Transfer return before the pixels are sent.
	Async bool
	// TxDone is called at the end of each Transfer when Async is set.
	TxDone func()
}

// DefaultOpts is a 320x240 landscape BGR panel at 32MHz.
var DefaultOpts = Opts{
	Rotation: Rotation90,
	BGR:      true,
	Speed:    32 * physic.MegaHertz,
}

func (o *Opts) madctl() byte {
	var m byte
	switch o.Rotation {
	case Rotation0:
		m = madMX
	case Rotation90:
		m = madMV
	case Rotation180:
		m = madMY
	case Rotation270:
		m = madMX | madMY | madMV
	}
	if o.BGR {
		m |= madBGR
	}
	return m
}

// Dev is an open handle to the display controller.
type Dev struct {
	c    conn.Conn
	dc   gpio.PinOut
	rst  gpio.PinOut
	opts Opts
	rect image.Rectangle

	// chunk is the largest transaction, 0 for unlimited.
	chunk int

	// mu is held for the duration of a bus transaction, including
	// background transfers.
	mu sync.Mutex
	// txErr is the error of the last background transfer.
	txErr error
}

// NewSPI returns a Dev object that communicates over SPI to an ILI9341
// controller. rst may be nil when the reset line is not connected.
//
// The controller is not initialized, call Init.
func NewSPI(p spi.Port, dc, rst gpio.PinOut, opts *Opts) (*Dev, error) {
	if dc == nil || dc == gpio.INVALID {
		return nil, errors.New("ili9341: a dc pin is required")
	}
	if rst == gpio.INVALID {
		return nil, errors.New("ili9341: use nil for rst, do not use gpio.INVALID")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Rotation > Rotation270 {
		return nil, fmt.Errorf("ili9341: invalid rotation %d", opts.Rotation)
	}
	speed := opts.Speed
	if speed == 0 {
		speed = DefaultOpts.Speed
	}
	if err := dc.Out(gpio.Low); err != nil {
		return nil, err
	}
	c, err := p.Connect(speed, spi.Mode0, 8)
	if err != nil {
		return nil, err
	}
	d := &Dev{c: c, dc: dc, rst: rst, opts: *opts, chunk: opts.ChunkSize}
	if d.chunk == 0 {
		if l, ok := c.(conn.Limits); ok {
			d.chunk = l.MaxTxSize()
		}
	}
	if opts.Rotation == Rotation90 || opts.Rotation == Rotation270 {
		d.rect = image.Rect(0, 0, nativeH, nativeW)
	} else {
		d.rect = image.Rect(0, 0, nativeW, nativeH)
	}
	return d, nil
}

// NewHat returns a Dev wired like the common Raspberry Pi 2.8" hats: D/C on
// GPIO25 and RESET on GPIO24.
func NewHat(p spi.Port, opts *Opts) (*Dev, error) {
	return NewSPI(p, rpi.P1_22, rpi.P1_18, opts)
}

func (d *Dev) String() string {
	return fmt.Sprintf("ili9341.Dev{%s, %s, %s}", d.c, d.dc, d.rect.Max)
}

// Init resets the controller and configures it for 16 bits pixels.
//
// It implements flush.Panel.
func (d *Dev) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	eh := errorHandler{d: d}
	eh.rstOut(gpio.High)
	eh.sleep(5 * time.Millisecond)
	eh.rstOut(gpio.Low)
	eh.sleep(20 * time.Millisecond)
	eh.rstOut(gpio.High)
	eh.sleep(150 * time.Millisecond)
	initDisplay(&eh, &d.opts)
	return eh.err
}

// SetWindow selects the area written by the next Transfer. Bounds are
// inclusive.
//
// It implements flush.Panel. It waits for a background transfer to end.
func (d *Dev) SetWindow(x1, y1, x2, y2 int) error {
	r := image.Rect(x1, y1, x2+1, y2+1)
	if x1 > x2 || y1 > y2 || !r.In(d.rect) {
		return fmt.Errorf("ili9341: invalid window (%d,%d)-(%d,%d)", x1, y1, x2, y2)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	eh := errorHandler{d: d}
	setWindow(&eh, x1, y1, x2, y2)
	return eh.err
}

// Transfer sends w*h pixels, 2 bytes each, to the window set by SetWindow.
//
// It implements flush.Panel. With Opts.Async, pix is read in the background
// and must not be modified until Opts.TxDone is called.
func (d *Dev) Transfer(w, h int, pix []byte) error {
	n := 2 * w * h
	if w <= 0 || h <= 0 || len(pix) < n {
		return fmt.Errorf("ili9341: invalid pixel stream; %dx%d needs %d bytes, got %d", w, h, n, len(pix))
	}
	pix = pix[:n]
	d.mu.Lock()
	if !d.opts.Async {
		defer d.mu.Unlock()
		eh := errorHandler{d: d}
		eh.sendData(pix)
		return eh.err
	}
	// The lock is handed over to the goroutine.
	go func() {
		eh := errorHandler{d: d}
		eh.sendData(pix)
		d.txErr = eh.err
		d.mu.Unlock()
		if eh.err != nil {
			log.Printf("ili9341: background transfer: %v", eh.err)
		}
		if d.opts.TxDone != nil {
			d.opts.TxDone()
		}
	}()
	return nil
}

// Err returns the error of the last background transfer.
func (d *Dev) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.txErr
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return rgb565.Model
}

// Bounds implements display.Drawer. Min is guaranteed to be {0, 0}.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Draw implements display.Drawer.
//
// It draws synchronously and ignores Opts.Async. It must not be used while a
// flush.Driver owns the device.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	clipped := r.Intersect(d.rect)
	if clipped.Empty() {
		return nil
	}
	img := rgb565.NewImage(clipped)
	draw.Src.Draw(img, clipped, src, sp.Add(clipped.Min.Sub(r.Min)))

	d.mu.Lock()
	defer d.mu.Unlock()
	eh := errorHandler{d: d}
	setWindow(&eh, clipped.Min.X, clipped.Min.Y, clipped.Max.X-1, clipped.Max.Y-1)
	eh.sendData(img.Pix)
	return eh.err
}

// Invert inverts the colors.
func (d *Dev) Invert(invert bool) error {
	cmd := invOff
	if invert {
		cmd = invOn
	}
	return d.command(cmd)
}

// Halt turns off the display. It waits for a background transfer to end.
//
// Sending Init again turns it back on.
func (d *Dev) Halt() error {
	return d.command(disOff)
}

func (d *Dev) command(cmd byte, params ...byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	eh := errorHandler{d: d}
	eh.sendCommand(cmd, params...)
	return eh.err
}

var _ display.Drawer = &Dev{}
