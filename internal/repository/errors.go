package repository

import (
	"errors"
	"fmt"
)

// ErrMissingColumn is returned when the result set lacks a required column
var ErrMissingColumn = errors.New("required column missing from result set")

// StoreAccessError reports a failure to read from the contact store
type StoreAccessError struct {
	// Op is the failed step: connect, query, scan or close
	Op  string
	Err error
}

func (e *StoreAccessError) Error() string {
	return fmt.Sprintf("contact store %s: %v", e.Op, e.Err)
}

func (e *StoreAccessError) Unwrap() error {
	return e.Err
}
