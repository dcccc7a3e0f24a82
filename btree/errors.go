package btree

import "github.com/pkg/errors"

// ErrReverseIterationUnsupported is what Iterator.Err reports after a
// call to Iterator.Prev, which always returns false. Reverse
// iteration is an explicit Non-goal; calling it is a contract
// violation the caller must handle rather than a condition the core
// recovers from.
var ErrReverseIterationUnsupported = errors.New("reverse iteration not supported")

// ErrClosed is returned by any Handle operation that reports errors
// when invoked after Close; a second Close returns nil.
var ErrClosed = errors.New("handle is closed")
