// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ili9341

import (
	"bytes"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi/spitest"
)

func writes(ops []conntest.IO) [][]byte {
	var out [][]byte
	for _, op := range ops {
		out = append(out, op.W)
	}
	return out
}

func newRecorded(t *testing.T, opts *Opts) (*Dev, *spitest.Record, *gpiotest.Pin) {
	t.Helper()
	record := &spitest.Record{}
	dc := &gpiotest.Pin{N: "DC"}
	dev, err := NewSPI(record, dc, nil, opts)
	if err != nil {
		t.Fatalf("NewSPI() failed: %v", err)
	}
	return dev, record, dc
}

func TestNew(t *testing.T) {
	for _, tc := range []struct {
		name       string
		opts       *Opts
		wantString string
		wantBounds image.Rectangle
	}{
		{
			name:       "default",
			wantString: "ili9341.Dev{playback, DC(0), (320,240)}",
			wantBounds: image.Rect(0, 0, 320, 240),
		},
		{
			name:       "portrait",
			opts:       &Opts{Rotation: Rotation180},
			wantString: "ili9341.Dev{playback, DC(0), (240,320)}",
			wantBounds: image.Rect(0, 0, 240, 320),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dev, err := NewSPI(&spitest.Playback{}, &gpiotest.Pin{N: "DC"}, nil, tc.opts)
			if err != nil {
				t.Fatalf("NewSPI() failed: %v", err)
			}
			if diff := cmp.Diff(dev.String(), tc.wantString); diff != "" {
				t.Errorf("String() difference (-got +want):\n%s", diff)
			}
			if diff := cmp.Diff(dev.Bounds(), tc.wantBounds); diff != "" {
				t.Errorf("Bounds() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestNewInvalid(t *testing.T) {
	if _, err := NewSPI(&spitest.Playback{}, nil, nil, nil); err == nil {
		t.Error("NewSPI() without dc succeeded")
	}
	if _, err := NewSPI(&spitest.Playback{}, gpio.INVALID, nil, nil); err == nil {
		t.Error("NewSPI() with invalid dc succeeded")
	}
	if _, err := NewSPI(&spitest.Playback{}, &gpiotest.Pin{}, gpio.INVALID, nil); err == nil {
		t.Error("NewSPI() with invalid rst succeeded")
	}
	if _, err := NewSPI(&spitest.Playback{}, &gpiotest.Pin{}, nil, &Opts{Rotation: 4}); err == nil {
		t.Error("NewSPI() with invalid rotation succeeded")
	}
}

func TestInit(t *testing.T) {
	record := &spitest.Record{}
	rst := &gpiotest.Pin{N: "RST"}
	dev, err := NewSPI(record, &gpiotest.Pin{N: "DC"}, rst, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := dev.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if rst.L != gpio.High {
		t.Error("reset line left low")
	}
	w := writes(record.Ops)
	if len(w) == 0 || !bytes.Equal(w[0], []byte{swReset}) {
		t.Fatalf("Init() did not start with a software reset: %x", w)
	}
	if last := w[len(w)-1]; !bytes.Equal(last, []byte{disOn}) {
		t.Errorf("Init() did not end with display on: %x", last)
	}
}

func TestSetWindowTransfer(t *testing.T) {
	dev, record, dc := newRecorded(t, &Opts{Rotation: Rotation90, ChunkSize: 4})
	if err := dev.SetWindow(0, 0, 319, 9); err != nil {
		t.Fatal(err)
	}
	pix := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if err := dev.Transfer(5, 1, pix); err != nil {
		t.Fatal(err)
	}
	want := [][]byte{
		{caSet}, {0x00, 0x00, 0x01, 0x3F},
		{paSet}, {0x00, 0x00, 0x00, 0x09},
		{ramWr},
		{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10},
	}
	if diff := cmp.Diff(writes(record.Ops), want); diff != "" {
		t.Errorf("bus difference (-got +want):\n%s", diff)
	}
	if dc.L != gpio.High {
		t.Error("dc must be high while sending pixels")
	}
}

func TestSetWindowInvalid(t *testing.T) {
	dev, record, _ := newRecorded(t, nil)
	for _, w := range [][4]int{
		{0, 0, 320, 0},
		{0, 0, 0, 240},
		{5, 0, 4, 0},
		{-1, 0, 4, 0},
	} {
		if err := dev.SetWindow(w[0], w[1], w[2], w[3]); err == nil {
			t.Errorf("SetWindow(%v) succeeded", w)
		}
	}
	if len(record.Ops) != 0 {
		t.Errorf("invalid windows reached the bus")
	}
}

func TestTransferInvalid(t *testing.T) {
	dev, _, _ := newRecorded(t, nil)
	if err := dev.Transfer(2, 2, make([]byte, 7)); err == nil {
		t.Error("Transfer() with a short buffer succeeded")
	}
	if err := dev.Transfer(0, 2, make([]byte, 8)); err == nil {
		t.Error("Transfer() with no width succeeded")
	}
}

func TestTransferAsync(t *testing.T) {
	done := make(chan struct{}, 1)
	dev, record, _ := newRecorded(t, &Opts{
		Rotation:  Rotation90,
		ChunkSize: 1024,
		Async:     true,
		TxDone:    func() { done <- struct{}{} },
	})
	pix := bytes.Repeat([]byte{0xAA}, 640)
	if err := dev.Transfer(320, 1, pix); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("TxDone was not called")
	}
	if err := dev.Err(); err != nil {
		t.Fatal(err)
	}
	// SetWindow waits for the background transfer.
	if err := dev.SetWindow(0, 0, 0, 0); err != nil {
		t.Fatal(err)
	}
	w := writes(record.Ops)
	if len(w) != 6 || !bytes.Equal(w[0], pix) {
		t.Errorf("unexpected bus writes: %d", len(w))
	}
}

func TestDraw(t *testing.T) {
	dev, record, _ := newRecorded(t, &Opts{Rotation: Rotation0})
	src := image.NewUniform(color.RGBA{G: 0xFF, A: 0xFF})
	if err := dev.Draw(image.Rect(238, 318, 250, 330), src, image.Point{}); err != nil {
		t.Fatal(err)
	}
	want := [][]byte{
		{caSet}, {0x00, 238, 0x00, 239},
		{paSet}, {0x01, 0x3E, 0x01, 0x3F},
		{ramWr},
		bytes.Repeat([]byte{0x07, 0xE0}, 4),
	}
	if diff := cmp.Diff(writes(record.Ops), want); diff != "" {
		t.Errorf("bus difference (-got +want):\n%s", diff)
	}
}

func TestHaltInvert(t *testing.T) {
	dev, record, _ := newRecorded(t, nil)
	if err := dev.Invert(true); err != nil {
		t.Fatal(err)
	}
	if err := dev.Invert(false); err != nil {
		t.Fatal(err)
	}
	if err := dev.Halt(); err != nil {
		t.Fatal(err)
	}
	want := [][]byte{{invOn}, {invOff}, {disOff}}
	if diff := cmp.Diff(writes(record.Ops), want); diff != "" {
		t.Errorf("bus difference (-got +want):\n%s", diff)
	}
}
