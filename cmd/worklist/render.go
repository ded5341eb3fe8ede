package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"worklist/internal/workitem"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func stateLabel(state workitem.ProcedureStepState, colorize bool) string {
	label := string(state)
	if !colorize {
		return label
	}
	return colored(stateColor(state), label)
}

func stateColor(state workitem.ProcedureStepState) color.Attribute {
	switch state {
	case workitem.StateScheduled:
		return color.FgBlue
	case workitem.StateInProgress:
		return color.FgYellow
	case workitem.StateCompleted:
		return color.FgGreen
	case workitem.StateCanceled:
		return color.FgRed
	default:
		return color.Reset
	}
}
