package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess     = 0 // Training graduated or evaluation passed
	ExitEvalFailed  = 1 // A phase or evaluation fell short of its target
	ExitError       = 2 // Configuration or runtime error
)

// FailureError indicates that the engine ran successfully but the agent's
// output fell short: a failed trial or a failed curriculum phase.
type FailureError struct {
	Message string
}

func (e *FailureError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var failure *FailureError
		if errors.As(err, &failure) {
			os.Exit(ExitEvalFailed)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
