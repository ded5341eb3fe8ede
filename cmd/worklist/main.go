package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"worklist/internal/workitem"
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

// exitCode maps error kinds to distinct process exit statuses so scripts can
// branch on the failure class.
func exitCode(err error) int {
	switch workitem.Kind(err) {
	case "":
		return 0
	case workitem.KindValidation:
		return 2
	case workitem.KindConflict:
		return 3
	case workitem.KindNotFound:
		return 4
	case workitem.KindInvalidTransition:
		return 5
	case workitem.KindConcurrency:
		return 6
	case workitem.KindDataStore:
		return 7
	default:
		return 1
	}
}
