// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ili9341

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

// errorHandler sends commands until the first error, which it keeps.
type errorHandler struct {
	d   *Dev
	err error
}

func (eh *errorHandler) dcOut(l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.dc.Out(l)
}

func (eh *errorHandler) rstOut(l gpio.Level) {
	if eh.err != nil || eh.d.rst == nil {
		return
	}
	eh.err = eh.d.rst.Out(l)
}

func (eh *errorHandler) cTx(w []byte) {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.c.Tx(w, nil)
}

func (eh *errorHandler) sendCommand(cmd byte, params ...byte) {
	eh.dcOut(gpio.Low)
	eh.cTx([]byte{cmd})
	if len(params) != 0 {
		eh.dcOut(gpio.High)
		eh.cTx(params)
	}
}

// sendData sends pixels in chunks no larger than the connection supports.
func (eh *errorHandler) sendData(data []byte) {
	eh.dcOut(gpio.High)
	chunk := eh.d.chunk
	if chunk <= 0 {
		chunk = len(data)
	}
	for len(data) != 0 && eh.err == nil {
		n := min(chunk, len(data))
		eh.cTx(data[:n])
		data = data[n:]
	}
}

func (eh *errorHandler) sleep(d time.Duration) {
	if eh.err != nil {
		return
	}
	time.Sleep(d)
}
