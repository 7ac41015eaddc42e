// Package main is the entry point for the snowctl CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/snowcli/snowctl/internal/cmd"
)

func main() {
	err := cmd.Execute()
	if err == nil {
		return
	}

	// The result JSON is already on stdout for non-success results; the
	// error only carries the exit code.
	var exitErr *cmd.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
