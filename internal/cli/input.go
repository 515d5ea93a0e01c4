package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/dshills/cimedic/internal/redact"
)

// maxLogBytes bounds how much of a CI log is kept. Longer logs keep their
// tail, where failures are reported.
var maxLogBytes = 64 << 20

var stdin io.Reader = os.Stdin

// readLog returns the CI log named by path: a file, "-" for stdin, or the
// CI_LOGS environment variable when path is empty.
func readLog(path string) (string, error) {
	var r io.Reader
	switch path {
	case "":
		return redact.Tail(os.Getenv("CI_LOGS"), maxLogBytes), nil
	case "-":
		r = stdin
	default:
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("opening log: %w", err)
		}
		defer f.Close()
		r = f
	}
	log, err := redact.ReadTail(r, maxLogBytes)
	if err != nil {
		return "", fmt.Errorf("reading log: %w", err)
	}
	return log, nil
}
