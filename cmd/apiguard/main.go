package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	apierrors "apiguard/internal/errors"
)

// Exit codes. The gate code is what CI pipelines key on.
const (
	exitGate  = 1
	exitError = 2
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err, os.Stderr))
	}
}

// exitCode reports err on w and returns the process exit status for it.
func exitCode(err error, w io.Writer) int {
	var gate *gateError
	if errors.As(err, &gate) {
		fmt.Fprintln(w, gate.Error())
		return exitGate
	}

	fmt.Fprintf(w, "Error: %v\n", err)
	var ae *apierrors.Error
	if errors.As(err, &ae) {
		for _, fix := range ae.SuggestedFixes {
			switch fix.Type {
			case apierrors.RunCommand:
				fmt.Fprintf(w, "  fix: run '%s' (%s)\n", fix.Command, fix.Description)
			case apierrors.EditConfig:
				fmt.Fprintf(w, "  fix: set %s (%s)\n", fix.Setting, fix.Description)
			}
		}
	}
	return exitError
}
