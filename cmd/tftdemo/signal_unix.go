// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build unix

package main

import (
	"os"
	"os/signal"
	"syscall"
)

func notifyToggle(c chan<- os.Signal) {
	signal.Notify(c, syscall.SIGUSR1)
}
