package logstore

import "errors"

// ErrStorage marks failures of the underlying database. Callers match
// it with errors.Is to distinguish storage trouble from bad input.
var ErrStorage = errors.New("storage failure")

// ErrNotFound is returned when a lookup by id or ip matches nothing.
var ErrNotFound = errors.New("not found")
