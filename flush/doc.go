// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package flush binds a render loop to a TFT panel controller.
//
// A Driver owns the pixel buffers and forwards rectangular flush requests to a
// Panel, then signals the render loop that the buffer can be written again.
// Exactly one flush can be outstanding at any time:
//
//	Idle -> Submitted -> Transferring -> Completed -> Idle
//
// In Blocking mode the Panel copies the pixels before Transfer returns and the
// Driver completes the flush itself. In Async mode Transfer only starts the
// copy (typically a DMA transfer) and the bus must report the end of it by
// calling TransferComplete exactly once.
//
// Updates can be paused with DisableUpdates. A paused Driver still completes
// every flush, it only skips the panel, so the render loop never stalls.
//
// The package level TransferComplete and Complete functions exist for bus
// callbacks with a fixed signature that cannot carry the Driver. They resolve
// the Driver registered last, which is why only one Driver can be registered
// at a time.
package flush
