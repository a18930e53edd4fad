// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !unix

package main

import "os"

// notifyToggle is a no-op: there is no SIGUSR1.
func notifyToggle(c chan<- os.Signal) {}
