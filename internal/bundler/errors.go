package bundler

import "fmt"

// A module that could not be parsed. The diagnostic itself has already been
// added to the log with its source line.
type SyntaxError struct {
	Path   string
	Line   int // 1-based
	Column int // 0-based, in bytes
	Text   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Text)
}

// A problem with the shape of the build as a whole. Nothing is emitted when
// one of these happens.
type GraphError struct {
	Reason string
}

func (e *GraphError) Error() string {
	return e.Reason
}

// A file that was found but could not be read. The module is replaced by a
// stub that throws when it's required.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("Could not read from file %q: %s", e.Path, e.Err.Error())
}

func (e *IOError) Unwrap() error {
	return e.Err
}
