package chainweb

import "errors"

// ErrBlockedChain indicates a cut-extension attempt picked a chain whose
// adjacent parents can't currently be resolved. It is never surfaced to
// the caller of CutExtender.Extend: the extender retries with a freshly
// sampled chain instead.
var ErrBlockedChain = errors.New("chainweb: chain blocked, adjacent parent unresolved")

// ErrCutInvariant indicates a cut extension that should have succeeded by
// construction didn't. This is a programming-invariant violation, not an
// ordinary failure mode, and is always fatal.
var ErrCutInvariant = errors.New("chainweb: cut invariant violated on extension")

// ErrNonPoWVersion indicates the miner was configured with a chainweb
// version that has no epoch window (window(v) = None) or isn't a
// recognized version at all. It is always fatal.
var ErrNonPoWVersion = errors.New("chainweb: POW miner used with non-POW chainweb")

// FatalError marks an error as fatal to the current miner task: the task
// must stop rather than retry the same attempt, though the run_forever
// wrapper around MinerLoop will still restart it from a fresh state.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// Fatal wraps err as a FatalError.
func Fatal(err error) *FatalError {
	return &FatalError{Err: err}
}

// IsFatal reports whether err (or something it wraps) is a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
