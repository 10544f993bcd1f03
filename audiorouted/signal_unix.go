//go:build unix

package main

import (
	"os"
	"syscall"
)

// switchSignals toggle between the speaker and the earpiece.
var switchSignals = []os.Signal{syscall.SIGUSR1}
