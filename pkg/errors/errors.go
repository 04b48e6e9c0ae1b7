package errorutils

import (
	"fmt"
	"io"
	"os"
)

var (
	exit             = os.Exit
	stderr io.Writer = os.Stderr
)

// Try terminates the process with status 1 when err is not nil. Only main
// packages should call it.
func Try(err error) {
	TryCode(err, func(error) int { return 1 })
}

// TryCode terminates the process with the status code picked for err.
func TryCode(err error, code func(error) int) {
	if err == nil {
		return
	}

	fmt.Fprintf(stderr, "ERROR: %v\n", err)
	exit(code(err))
}

func Must[T any](v T, err error) T {
	Try(err)
	return v
}
