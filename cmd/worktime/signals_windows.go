//go:build windows

package main

import "os"

var resyncSignals []os.Signal
