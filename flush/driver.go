// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flush

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync/atomic"

	"periph.io/x/conn/v3"
)

// Panel is the controller side of a flush. It is implemented by the panel
// driver, e.g. ili9341.Dev.
type Panel interface {
	// Init brings the controller up. It is called once by Register.
	Init() error
	// SetWindow selects the destination of the next Transfer. Bounds are
	// inclusive.
	SetWindow(x1, y1, x2, y2 int) error
	// Transfer sends width*height pixels, 2 bytes each, to the window.
	Transfer(width, height int, pix []byte) error
}

// Mode selects who completes a flush.
type Mode int

const (
	// Blocking means Panel.Transfer returns once the pixels are out. The
	// Driver completes the flush right after.
	Blocking Mode = iota
	// Async means Panel.Transfer returns as soon as the transfer started. The
	// bus must call TransferComplete when it is done.
	Async
)

func (m Mode) String() string {
	switch m {
	case Blocking:
		return "Blocking"
	case Async:
		return "Async"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// State is the state of the flush state machine.
type State int32

// Flush states, in order.
const (
	Idle State = iota
	Submitted
	Transferring
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Submitted:
		return "Submitted"
	case Transferring:
		return "Transferring"
	case Completed:
		return "Completed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Opts defines the options for the Driver.
type Opts struct {
	// Width and Height is the resolution of the panel.
	Width, Height int
	// Rows is the number of full panel rows each buffer can hold.
	Rows int
	// Buffers is 1 or 2. With 2 buffers the render loop draws the next
	// region while the previous one is transferred.
	Buffers int
	Mode    Mode
	// Strict panics on protocol violations instead of returning an error.
	// Use it in debug builds.
	Strict bool
}

// DefaultOpts matches a 320x240 ILI9341 with a 10 rows buffer.
var DefaultOpts = Opts{
	Width:   320,
	Height:  240,
	Rows:    10,
	Buffers: 1,
	Mode:    Blocking,
}

// Stats are counters since Register.
type Stats struct {
	// Flushes is the number of flushes sent to the panel.
	Flushes uint64
	// Skipped is the number of flushes completed without the panel because
	// updates were disabled.
	Skipped uint64
	// Violations is the number of rejected protocol violations.
	Violations uint64
	// TransferErrors is the number of errors returned by the panel.
	TransferErrors uint64
}

// Driver is the handle of a registered display.
type Driver struct {
	panel Panel
	opts  Opts
	gate  Gate
	bufs  []*Buffer

	state   atomic.Int32
	release chan struct{}

	flushes    atomic.Uint64
	skipped    atomic.Uint64
	violations atomic.Uint64
	txErrors   atomic.Uint64
}

// active is the Driver reached by the package level TransferComplete.
var active atomic.Pointer[Driver]

// Register initializes the panel and returns the Driver feeding it.
//
// Only one Driver can be registered at a time; Halt unregisters it.
func Register(p Panel, opts *Opts) (*Driver, error) {
	if p == nil {
		return nil, errors.New("flush: nil panel")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.Buffers == 0 {
		o.Buffers = 1
	}
	if o.Width <= 0 || o.Height <= 0 {
		return nil, fmt.Errorf("flush: invalid resolution %dx%d", o.Width, o.Height)
	}
	if o.Rows <= 0 || o.Rows > o.Height {
		return nil, fmt.Errorf("flush: invalid rows %d for height %d", o.Rows, o.Height)
	}
	if o.Buffers < 1 || o.Buffers > 2 {
		return nil, fmt.Errorf("flush: invalid buffer count %d", o.Buffers)
	}
	if o.Mode != Blocking && o.Mode != Async {
		return nil, fmt.Errorf("flush: invalid mode %s", o.Mode)
	}
	d := &Driver{
		panel:   p,
		opts:    o,
		release: make(chan struct{}, 1),
	}
	// The slot is claimed before Init so a losing Register never touches its
	// panel.
	if !active.CompareAndSwap(nil, d) {
		return nil, ErrRegistered
	}
	if err := p.Init(); err != nil {
		active.CompareAndSwap(d, nil)
		return nil, fmt.Errorf("flush: panel init: %w", err)
	}
	for i := 0; i < o.Buffers; i++ {
		d.bufs = append(d.bufs, newBuffer(d, i, o.Width*o.Rows))
	}
	return d, nil
}

// TransferComplete completes the transfer in flight of the registered Driver.
//
// It is meant for bus callbacks that cannot carry the Driver.
func TransferComplete() error {
	d := active.Load()
	if d == nil {
		return ErrNotRegistered
	}
	return d.TransferComplete()
}

// Complete is TransferComplete for func() hooks. Errors are logged.
func Complete() {
	if err := TransferComplete(); err != nil {
		log.Print(err)
	}
}

func (d *Driver) String() string {
	return fmt.Sprintf("flush.Driver{%v, %dx%d, Rows: %d, Buffers: %d, %s}", d.panel, d.opts.Width, d.opts.Height, d.opts.Rows, len(d.bufs), d.opts.Mode)
}

// Bounds returns the panel area. Min is {0, 0}.
func (d *Driver) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.opts.Width, d.opts.Height)
}

// Buffer returns the i-th pixel buffer.
func (d *Driver) Buffer(i int) *Buffer {
	return d.bufs[i]
}

// Buffers returns the number of pixel buffers.
func (d *Driver) Buffers() int {
	return len(d.bufs)
}

// State returns the current state of the flush state machine.
func (d *Driver) State() State {
	return State(d.state.Load())
}

// EnableUpdates lets the following flushes reach the panel.
func (d *Driver) EnableUpdates() {
	d.gate.Enable()
}

// DisableUpdates makes the following flushes complete without touching the
// panel.
func (d *Driver) DisableUpdates() {
	d.gate.Disable()
}

// UpdatesEnabled reports whether flushes reach the panel.
func (d *Driver) UpdatesEnabled() bool {
	return d.gate.Enabled()
}

// Released returns the channel receiving one value per completed flush.
//
// Values are not queued: at most one is pending.
func (d *Driver) Released() <-chan struct{} {
	return d.release
}

// Wait blocks until the next release or until ctx is done.
func (d *Driver) Wait(ctx context.Context) error {
	select {
	case <-d.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of the counters.
func (d *Driver) Stats() Stats {
	return Stats{
		Flushes:        d.flushes.Load(),
		Skipped:        d.skipped.Load(),
		Violations:     d.violations.Load(),
		TransferErrors: d.txErrors.Load(),
	}
}

// RequestFlush sends the pixels of r, stored in buf, to the panel.
//
// When it returns nil, the flush is either complete (Blocking mode, updates
// disabled) or in flight until TransferComplete. The caller must not write to
// buf before the release is received.
//
// A *TransferError means the panel failed; the flush was still completed.
func (d *Driver) RequestFlush(r Rect, buf *Buffer) error {
	if !r.In(d.opts.Width, d.opts.Height) {
		return fmt.Errorf("flush: %s outside of %dx%d", r, d.opts.Width, d.opts.Height)
	}
	if buf == nil || buf.owner != d {
		return errors.New("flush: buffer not owned by this driver")
	}
	pix := buf.Pix(r)
	if pix == nil {
		return fmt.Errorf("flush: %s needs %d pixels, buffer holds %d", r, r.Pixels(), buf.Cap())
	}
	if !d.state.CompareAndSwap(int32(Idle), int32(Submitted)) {
		return d.violation("RequestFlush", d.State())
	}

	if !d.gate.Enabled() {
		d.skipped.Add(1)
		d.finish(Submitted)
		return nil
	}

	d.flushes.Add(1)
	if err := d.panel.SetWindow(r.X1, r.Y1, r.X2, r.Y2); err != nil {
		d.txErrors.Add(1)
		d.finish(Submitted)
		return &TransferError{Op: "set window", Err: err}
	}
	// The completion may fire before Transfer returns.
	d.state.Store(int32(Transferring))
	if err := d.panel.Transfer(r.Width(), r.Height(), pix); err != nil {
		// A failed transfer never started, no completion will come.
		d.txErrors.Add(1)
		d.finish(Transferring)
		return &TransferError{Op: "transfer", Err: err}
	}
	if d.opts.Mode == Blocking && !d.finish(Transferring) {
		return d.violation("RequestFlush", d.State())
	}
	return nil
}

// TransferComplete reports the end of the transfer in flight.
//
// It must be called exactly once per transfer in Async mode. In Blocking mode
// the Driver completes on its own and any call is a violation. It does not
// block and does not allocate, so it is safe to call from a bus callback.
func (d *Driver) TransferComplete() error {
	if d.opts.Mode == Blocking {
		return d.violation("TransferComplete", d.State())
	}
	if d.finish(Transferring) {
		return nil
	}
	return d.violation("TransferComplete", d.State())
}

// Halt unregisters the Driver and halts the panel if it supports it.
//
// It implements conn.Resource.
func (d *Driver) Halt() error {
	active.CompareAndSwap(d, nil)
	if h, ok := d.panel.(conn.Resource); ok {
		return h.Halt()
	}
	return nil
}

// finish moves from the given state to Completed then Idle and releases the
// render loop. It reports false if the Driver was not in that state.
func (d *Driver) finish(from State) bool {
	if !d.state.CompareAndSwap(int32(from), int32(Completed)) {
		return false
	}
	d.state.Store(int32(Idle))
	select {
	case d.release <- struct{}{}:
	default:
	}
	return true
}

// drain drops a pending release.
func (d *Driver) drain() {
	select {
	case <-d.release:
	default:
	}
}

func (d *Driver) violation(op string, s State) error {
	d.violations.Add(1)
	err := &ProtocolViolation{Op: op, State: s}
	if d.opts.Strict {
		panic(err)
	}
	return err
}

var _ conn.Resource = &Driver{}
