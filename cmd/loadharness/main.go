// loadharness drives a staged ramp of virtual users against an HTTP target,
// validates every response and evaluates thresholds over the aggregated
// metrics.
package main

import (
	"os"

	"github.com/pkg/errors"
)

const (
	exitError            = 1
	exitThresholdsFailed = 99
)

// exitCodeError carries the process exit status out of a command.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }

func (e *exitCodeError) Unwrap() error { return e.err }

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec *exitCodeError
	if errors.As(err, &ec) {
		return ec.code
	}
	return exitError
}

func main() {
	os.Exit(exitCode(newRootCmd().Execute()))
}
