// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flush

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocolViolation is wrapped by every *ProtocolViolation.
	ErrProtocolViolation = errors.New("flush: protocol violation")
	// ErrNotRegistered is returned by TransferComplete when no Driver is
	// registered.
	ErrNotRegistered = errors.New("flush: no driver registered")
	// ErrRegistered is returned by Register while another Driver is
	// registered.
	ErrRegistered = errors.New("flush: a driver is already registered")
)

// ProtocolViolation reports a call that breaks the single outstanding flush
// contract: a second RequestFlush before the completion of the first one, or a
// TransferComplete without a transfer in flight.
//
// It is a programming error in the render loop or in the bus driver.
type ProtocolViolation struct {
	Op    string
	State State
}

func (p *ProtocolViolation) Error() string {
	return fmt.Sprintf("%s: %s while %s", ErrProtocolViolation, p.Op, p.State)
}

func (p *ProtocolViolation) Unwrap() error {
	return ErrProtocolViolation
}

// TransferError is a failure reported by the Panel.
//
// The flush was completed anyway, the buffer is released.
type TransferError struct {
	Op  string
	Err error
}

func (t *TransferError) Error() string {
	return fmt.Sprintf("flush: %s: %v", t.Op, t.Err)
}

func (t *TransferError) Unwrap() error {
	return t.Err
}
