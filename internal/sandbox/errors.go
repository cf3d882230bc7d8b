package sandbox

import (
	"errors"
	"fmt"
)

// ErrStatementNotAllowed marks statements the sandbox refuses to run.
var ErrStatementNotAllowed = errors.New("statement not allowed")

// ExecError is returned for any failure while running generated code.
type ExecError struct {
	Statement string
	Err       error
}

func (e *ExecError) Error() string {
	if e.Statement == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v (in statement: %s)", e.Err, abbreviate(e.Statement, 120))
}

func (e *ExecError) Unwrap() error { return e.Err }

func abbreviate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
