package alarm

import "errors"

var (
	// ErrConfiguration marks malformed limits, missing attributes and other
	// configuration mistakes. Fatal to the offending alarm only.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnsupportedType is returned when a data object's type is not among
	// the types an algorithm accepts. The alarm is skipped.
	ErrUnsupportedType = errors.New("unsupported data object type")
	// ErrInvalidParameter is returned for parameter keys an algorithm does
	// not recognize. Treated as a warning; defaults are used instead.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrComputation marks degenerate fits, empty ranges and divisions by
	// zero. The output becomes UNDEFINED.
	ErrComputation = errors.New("computation error")
	// ErrUnknownAlgorithm is returned when a configuration names an
	// algorithm that is not registered.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
)
