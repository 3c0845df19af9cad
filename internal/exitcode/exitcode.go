package exitcode

import (
	"errors"
)

// The exit codes of the command line tool
const (
	Success     = 0
	BuildFailed = 1
	Usage       = 2
)

// Coder is an error that knows which exit code it should produce.
type Coder interface {
	error
	ExitCode() int
}

// Get gets the exit code associated with an error. Cases:
//
//	nil => Success
//	errors implementing Coder => value returned by ExitCode
//	all other errors => BuildFailed
func Get(err error) int {
	if err == nil {
		return Success
	}

	if coder := Coder(nil); errors.As(err, &coder) {
		return coder.ExitCode()
	}

	return BuildFailed
}

// Set wraps an error in a Coder, setting its exit code.
func Set(err error, code int) error {
	if err == nil {
		return nil
	}
	return coder{err, code}
}

var errReported = errors.New("The errors were already reported")

// Reported returns an error for a failure whose diagnostics were already
// printed, so only the exit code is left to report.
func Reported(code int) error {
	return coder{errReported, code}
}

func IsReported(err error) bool {
	return errors.Is(err, errReported)
}

var _ Coder = coder{}

type coder struct {
	error
	int
}

func (co coder) ExitCode() int {
	return co.int
}

func (co coder) Unwrap() error {
	return co.error
}
