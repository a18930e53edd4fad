// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ili9341 controls a 240x320 TFT panel driven by an ILI9341
// controller over 4-wire SPI.
//
// The driver exposes the three operations needed by a flush port: Init,
// SetWindow and Transfer. Pixels are RGB565, most significant byte first, as
// produced by the rgb565 package.
//
// Transfers can run in the background to mimic a DMA engine: set Opts.Async
// and Opts.TxDone, the latter being called once the last byte is out. This
// matches flush.Async with flush.Complete as the callback.
//
// # Wiring
//
// Connect SDI to SPI_MOSI, SCK to SPI_CLK, CS to SPI_CS, D/C to a GPIO and
// optionally RESET to a GPIO. The LED pin is not handled by this driver.
//
// # Datasheet
//
// https://cdn-shop.adafruit.com/datasheets/ILI9341.pdf
package ili9341
