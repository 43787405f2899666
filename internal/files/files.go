// Package files holds small filesystem helpers shared by the data sources and
// the command line tools.
package files

import (
	"os"

	"github.com/pkg/errors"
)

// Exists returns whether the file or directory exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Open opens path for reading, wrapping the error with the path for context.
func Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %q", path)
	}
	return f, nil
}
