package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"sceneforge/internal/status"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode keeps job failure and wait timeout distinguishable for scripting
// callers.
func exitCode(err error) int {
	switch {
	case errors.Is(err, status.ErrJobFailed):
		return 2
	case errors.Is(err, status.ErrWaitTimeout):
		return 3
	}
	return 1
}
