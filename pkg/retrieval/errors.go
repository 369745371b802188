package retrieval

import "errors"

var (
	// ErrEncoding classifies failures of the Encoder.
	ErrEncoding = errors.New("encoding failure")

	// ErrIndexBackend classifies failures of the VectorIndex.
	ErrIndexBackend = errors.New("index backend failure")

	// ErrCollectionNotFound is returned by stores queried for a collection
	// that does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidArgument marks caller mistakes such as a non-positive k.
	ErrInvalidArgument = errors.New("invalid argument")
)

// classified joins a failure class with its cause so both match errors.Is.
type classified struct {
	class error
	cause error
}

func (e *classified) Error() string {
	if e.cause == nil {
		return e.class.Error()
	}
	return e.class.Error() + ": " + e.cause.Error()
}

func (e *classified) Unwrap() []error {
	if e.cause == nil {
		return []error{e.class}
	}
	return []error{e.class, e.cause}
}

func classify(class, cause error) error {
	if cause == nil {
		return nil
	}
	if errors.Is(cause, class) {
		return cause
	}
	return &classified{class: class, cause: cause}
}
