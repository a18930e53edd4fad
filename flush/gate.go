// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flush

import "sync/atomic"

// Gate decides whether flush requests reach the panel. The zero value is
// enabled.
//
// A closed gate never skips the completion of a flush.
type Gate struct {
	off atomic.Bool
}

// Enable lets flush requests through.
func (g *Gate) Enable() {
	g.off.Store(false)
}

// Disable turns flush requests into immediate completions.
func (g *Gate) Disable() {
	g.off.Store(true)
}

// Enabled reports the current state of the gate.
func (g *Gate) Enabled() bool {
	return !g.off.Load()
}
