// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ili9341

import "time"

// Commands, datasheet pages 83-88.
const (
	swReset   byte = 0x01
	slpOut    byte = 0x11
	invOff    byte = 0x20
	invOn     byte = 0x21
	gamSet    byte = 0x26
	disOff    byte = 0x28
	disOn     byte = 0x29
	caSet     byte = 0x2A
	paSet     byte = 0x2B
	ramWr     byte = 0x2C
	madCtl    byte = 0x36
	pixFmt    byte = 0x3A
	frmCtr1   byte = 0xB1
	disCtrl   byte = 0xB6
	pwCtrl1   byte = 0xC0
	pwCtrl2   byte = 0xC1
	vmCtrl1   byte = 0xC5
	vmCtrl2   byte = 0xC7
	pwCtrlA   byte = 0xCB
	pwCtrlB   byte = 0xCF
	gamCtrlP  byte = 0xE0
	gamCtrlN  byte = 0xE1
	timCtrlA  byte = 0xE8
	timCtrlB  byte = 0xEA
	pwSeqCtrl byte = 0xED
	gam3Ctrl  byte = 0xF2
	pumpRatio byte = 0xF7
)

// MADCTL bits.
const (
	madMY  byte = 0x80
	madMX  byte = 0x40
	madMV  byte = 0x20
	madBGR byte = 0x08
)

type controller interface {
	sendCommand(cmd byte, params ...byte)
	sleep(d time.Duration)
}

func initDisplay(ctrl controller, opts *Opts) {
	ctrl.sendCommand(swReset)
	ctrl.sleep(150 * time.Millisecond)

	ctrl.sendCommand(pwCtrlB, 0x00, 0xC1, 0x30)
	ctrl.sendCommand(pwSeqCtrl, 0x64, 0x03, 0x12, 0x81)
	ctrl.sendCommand(timCtrlA, 0x85, 0x00, 0x78)
	ctrl.sendCommand(pwCtrlA, 0x39, 0x2C, 0x00, 0x34, 0x02)
	ctrl.sendCommand(pumpRatio, 0x20) // DDVDH=2xVCI
	ctrl.sendCommand(timCtrlB, 0x00, 0x00)

	ctrl.sendCommand(pwCtrl1, 0x23)       // 4.60V
	ctrl.sendCommand(pwCtrl2, 0x10)       // DDVDH: VCIx2
	ctrl.sendCommand(vmCtrl1, 0x3E, 0x28) // VMH: 5.850V, VML: -1.500V
	ctrl.sendCommand(vmCtrl2, 0x86)

	ctrl.sendCommand(madCtl, opts.madctl())
	ctrl.sendCommand(pixFmt, 0x55) // 16 bits per pixel
	ctrl.sendCommand(frmCtr1, 0x00, 0x18)
	ctrl.sendCommand(disCtrl, 0x08, 0x82, 0x27)

	ctrl.sendCommand(gam3Ctrl, 0x00)
	ctrl.sendCommand(gamSet, 0x01)
	ctrl.sendCommand(gamCtrlP, 0x0F, 0x31, 0x2B, 0x0C, 0x0E, 0x08, 0x4E, 0xF1, 0x37, 0x07, 0x10, 0x03, 0x0E, 0x09, 0x00)
	ctrl.sendCommand(gamCtrlN, 0x00, 0x0E, 0x14, 0x03, 0x11, 0x07, 0x31, 0xC1, 0x48, 0x08, 0x0F, 0x0C, 0x31, 0x36, 0x0F)

	ctrl.sendCommand(slpOut)
	ctrl.sleep(120 * time.Millisecond)
	ctrl.sendCommand(disOn)
}

// setWindow selects the RAM area written by the next pixels and starts the
// memory write.
func setWindow(ctrl controller, x1, y1, x2, y2 int) {
	ctrl.sendCommand(caSet, byte(x1>>8), byte(x1), byte(x2>>8), byte(x2))
	ctrl.sendCommand(paSet, byte(y1>>8), byte(y1), byte(y2>>8), byte(y2))
	ctrl.sendCommand(ramWr)
}
