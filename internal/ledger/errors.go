package ledger

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTableNotFound is returned when no sheet holds a table with the name.
	ErrTableNotFound = errors.New("table not found")

	// ErrLockFilePresent is returned when the office owner file of the ledger
	// exists, meaning the ledger is open in another program.
	ErrLockFilePresent = errors.New("ledger is open in another program")

	// ErrDuplicateTable is returned when a transaction targets a table twice.
	ErrDuplicateTable = errors.New("table targeted more than once")
)

// LockedError reports a ledger that cannot be opened or saved because
// another program holds it.
type LockedError struct {
	// Path is the ledger file.
	Path string

	// Op is "open" or "save".
	Op string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *LockedError) Error() string {
	return fmt.Sprintf("ledger: cannot %s %s, it is open or locked by another program: close the file and try again: %v",
		e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *LockedError) Unwrap() error {
	return e.Err
}

// SchemaError reports a table that lacks a column the operation needs.
type SchemaError struct {
	Table   string
	Column  string
	Headers []string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("ledger: table %s has no column %q (available headers: %s)",
		e.Table, e.Column, strings.Join(e.Headers, ", "))
}
