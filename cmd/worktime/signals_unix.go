//go:build !windows

package main

import (
	"os"
	"syscall"
)

// resyncSignals are delivered when the process resumes after a suspend (fg after Ctrl-Z).
var resyncSignals = []os.Signal{syscall.SIGCONT}
