// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// tftdemo renders an animation through the flush handshake.
//
// The frames go to an ILI9341 on SPI, to the terminal or to a browser:
//
//	tftdemo -panel spi -dc GPIO25 -rst GPIO24 -async
//	tftdemo -panel term -width 80 -height 40
//	tftdemo -panel web -addr :8080
//
// SIGUSR1 toggles the panel updates while the render loop keeps running.
// SIGINT stops the demo.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/GermanBionicSystems/tftport/flush"
	"github.com/GermanBionicSystems/tftport/ili9341"
	"github.com/GermanBionicSystems/tftport/termpanel"
	"github.com/GermanBionicSystems/tftport/websink"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// panelKind selects the flush.Panel.
type panelKind string

// Set implements flag.Value.
func (p *panelKind) Set(s string) error {
	switch s {
	case "spi", "term", "web":
		*p = panelKind(s)
		return nil
	}
	return fmt.Errorf("unknown panel %q: expected spi, term or web", s)
}

func (p *panelKind) String() string {
	return string(*p)
}

var (
	panel   = panelKind("spi")
	width   = flag.Int("width", 0, "Panel width in pixels, 0 for the panel default")
	height  = flag.Int("height", 0, "Panel height in pixels, 0 for the panel default")
	spiBus  = flag.String("spi", "", "SPI bus name (empty for default)")
	dcPin   = flag.String("dc", "GPIO25", "Data/Command pin name")
	rstPin  = flag.String("rst", "GPIO24", "Reset pin name (empty if not connected)")
	rows    = flag.Int("rows", 20, "Rows held by each pixel buffer")
	buffers = flag.Int("buffers", 2, "Number of pixel buffers, 1 or 2")
	async   = flag.Bool("async", false, "Complete flushes from the end of transfer callback")
	addr    = flag.String("addr", ":8080", "HTTP address for -panel web")
	frames  = flag.Int("frames", 0, "Frames to render, 0 to run until interrupted")
	fps     = flag.Int("fps", 10, "Frames per second")
	strict  = flag.Bool("strict", false, "Panic on protocol violations")
)

func init() {
	flag.Var(&panel, "panel", "Panel to drive: spi, term or web")
}

// openPanel returns the panel and the flush options matching it.
func openPanel() (flush.Panel, flush.Opts, func(), error) {
	opts := flush.Opts{Width: 320, Height: 240, Rows: *rows, Buffers: *buffers, Mode: flush.Blocking, Strict: *strict}
	if *async {
		opts.Mode = flush.Async
	}
	var done func()
	if *async {
		done = flush.Complete
	}
	closer := func() {}

	switch panel {
	case "spi":
		p, err := spireg.Open(*spiBus)
		if err != nil {
			return nil, opts, nil, err
		}
		closer = func() { p.Close() }
		dc := gpioreg.ByName(*dcPin)
		if dc == nil {
			p.Close()
			return nil, opts, nil, fmt.Errorf("GPIO pin %s not found", *dcPin)
		}
		var rst gpio.PinOut
		if *rstPin != "" {
			pin := gpioreg.ByName(*rstPin)
			if pin == nil {
				p.Close()
				return nil, opts, nil, fmt.Errorf("GPIO pin %s not found", *rstPin)
			}
			rst = pin
		}
		o := ili9341.DefaultOpts
		o.Async = *async
		o.TxDone = done
		dev, err := ili9341.NewSPI(p, dc, rst, &o)
		if err != nil {
			p.Close()
			return nil, opts, nil, err
		}
		opts.Width, opts.Height = dev.Bounds().Dx(), dev.Bounds().Dy()
		return dev, opts, closer, nil

	case "term":
		opts.Width, opts.Height = 80, 40
		if *width != 0 {
			opts.Width = *width
		}
		if *height != 0 {
			opts.Height = *height
		}
		opts.Rows = min(opts.Rows, opts.Height)
		return termpanel.New(&termpanel.Opts{W: opts.Width, H: opts.Height, Done: done}), opts, closer, nil

	default:
		if *width != 0 {
			opts.Width = *width
		}
		if *height != 0 {
			opts.Height = *height
		}
		// The sink completes transfers before returning.
		opts.Mode = flush.Blocking
		sink := websink.New(&websink.Options{Width: opts.Width, Height: opts.Height, Format: websink.JPEG})
		srv := &http.Server{Addr: *addr, Handler: sink}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("tftdemo: %v", err)
			}
		}()
		closer = func() { srv.Close() }
		log.Printf("Serving the panel on http://%s/", *addr)
		return sink, opts, closer, nil
	}
}

func mainImpl() error {
	flag.Parse()
	if *fps <= 0 {
		return fmt.Errorf("invalid -fps %d", *fps)
	}

	// Initialize periph.io
	if _, err := host.Init(); err != nil {
		return err
	}

	p, opts, closer, err := openPanel()
	if err != nil {
		return err
	}
	defer closer()

	d, err := flush.Register(p, &opts)
	if err != nil {
		return err
	}
	defer d.Halt()
	log.Printf("Registered %s", d)

	r, err := newRenderer(opts.Width, opts.Height)
	if err != nil {
		return err
	}

	// SIGINT also aborts a Flush waiting for a completion that never comes.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	toggle := make(chan os.Signal, 1)
	notifyToggle(toggle)
	defer signal.Stop(toggle)

	ticker := time.NewTicker(time.Second / time.Duration(*fps))
	defer ticker.Stop()
	if err := run(ctx, d, r, toggle, ticker.C); err != nil {
		return err
	}
	s := d.Stats()
	log.Printf("Flushes: %d, skipped: %d, transfer errors: %d", s.Flushes, s.Skipped, s.TransferErrors)
	return nil
}

// run renders -frames frames, one per tick, until ctx is done.
func run(ctx context.Context, d *flush.Driver, r *renderer, toggle <-chan os.Signal, tick <-chan time.Time) error {
	pr := flush.NewProducer(d)
	for n := 0; *frames == 0 || n < *frames; n++ {
		img := r.frame(n, d.Stats(), d.UpdatesEnabled())
		if err := pr.Flush(ctx, img, img.Bounds(), image.Point{}); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var te *flush.TransferError
			if !errors.As(err, &te) {
				return err
			}
			log.Print(err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-toggle:
			if d.UpdatesEnabled() {
				d.DisableUpdates()
			} else {
				d.EnableUpdates()
			}
			log.Printf("Updates enabled: %t", d.UpdatesEnabled())
		case <-tick:
		}
	}
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "tftdemo: %s.\n", err)
		os.Exit(1)
	}
}
