package derive

import "errors"

// Temporary wraps an error that should cause the pipeline to retry the same
// step once more data becomes available, rather than aborting the run.
type Temporary struct{ err error }

func NewTemporaryError(err error) error { return &Temporary{err: err} }
func (e *Temporary) Error() string      { return e.err.Error() }
func (e *Temporary) Unwrap() error      { return e.err }

// Critical wraps an error that can never be resolved by retrying: the L1
// input is malformed or violates a hard invariant, and the claimed output
// cannot be correct.
type Critical struct{ err error }

func NewCriticalError(err error) error { return &Critical{err: err} }
func (e *Critical) Error() string      { return e.err.Error() }
func (e *Critical) Unwrap() error      { return e.err }

// EOF marks a stage that has nothing more to emit until fed more L1 data.
var EOF = errors.New("no more data")

func IsTemporary(err error) bool {
	var t *Temporary
	return errors.As(err, &t)
}

func IsCritical(err error) bool {
	var c *Critical
	return errors.As(err, &c)
}
