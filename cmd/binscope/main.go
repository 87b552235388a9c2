package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var silent *exitError
		if !errors.As(err, &silent) {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// exitError ends the process with a non-zero status after the command has
// already reported the problem
type exitError struct {
	msg string
}

func (e *exitError) Error() string { return e.msg }
