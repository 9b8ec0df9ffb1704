package collectors

import "errors"

// ErrUnknownCollector is returned when the registry has no constructor for
// the requested name at all (not even a placeholder).
var ErrUnknownCollector = errors.New("collectors: unknown collector name")

// ErrNotImplemented is returned by placeholder constructors for catalogue
// entries named in spec.md/SPEC_FULL.md that do not yet have a concrete
// implementation (spec §12 supplemented-features registry note). It is a
// closed, explicit gap, not a silent one.
var ErrNotImplemented = errors.New("collectors: not implemented")

// ErrNotInitialized is returned by Health before Initialize has run.
var ErrNotInitialized = errors.New("collectors: not initialized")
