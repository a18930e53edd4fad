// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flush

import (
	"fmt"
	"image"
)

// Rect is a dirty rectangle in panel coordinates. Both corners are inclusive.
type Rect struct {
	X1, Y1, X2, Y2 int
}

// FromRectangle converts a half-open image.Rectangle to a Rect.
func FromRectangle(r image.Rectangle) Rect {
	return Rect{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X - 1, Y2: r.Max.Y - 1}
}

// Rectangle returns the half-open image.Rectangle covering r.
func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2+1, r.Y2+1)
}

// Width returns the number of columns covered.
func (r Rect) Width() int {
	return r.X2 - r.X1 + 1
}

// Height returns the number of rows covered.
func (r Rect) Height() int {
	return r.Y2 - r.Y1 + 1
}

// Pixels returns Width() * Height().
func (r Rect) Pixels() int {
	return r.Width() * r.Height()
}

// In reports whether r is well formed and fits a w x h panel.
func (r Rect) In(w, h int) bool {
	return 0 <= r.X1 && r.X1 <= r.X2 && r.X2 < w &&
		0 <= r.Y1 && r.Y1 <= r.Y2 && r.Y2 < h
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.X1, r.Y1, r.X2, r.Y2)
}
