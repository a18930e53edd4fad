// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package tftport is a container for the TFT display port.
//
// Package flush implements the handshake between the render loop and the
// panel, ili9341 drives the panel over SPI, termpanel and websink emulate it
// on a host.
package tftport
