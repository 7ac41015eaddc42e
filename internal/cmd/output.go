package cmd

import (
	"fmt"

	"github.com/snowcli/snowctl/internal/client"
)

// ExitError carries the process exit code for a non-success result. The
// result JSON has already been printed when this is returned, so the
// caller should exit silently with the code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// emitResult prints the single result object to stdout and converts a
// failing status into the process exit code.
func emitResult(res *client.Result) error {
	data, err := res.JSON()
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(data))

	if code := res.ExitCode(); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// emitInvalidArgs reports a bad flag combination as a structured result,
// checked before any network activity.
func emitInvalidArgs(message string) error {
	return emitResult(client.InvalidArgsResult(message))
}
