package store

import "errors"

// ErrDuplicate reports a unique-constraint violation. Components translate
// it into the domain conflict error rather than trusting any pre-check.
var ErrDuplicate = errors.New("duplicate record")

// ErrMissing reports an update against a row that does not exist.
var ErrMissing = errors.New("record missing")
