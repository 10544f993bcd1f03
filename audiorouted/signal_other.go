//go:build !unix

package main

import "os"

var switchSignals []os.Signal
