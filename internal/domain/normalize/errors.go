package normalize

import "errors"

// Sentinel kinds for normalization errors.
var (
	// ErrFormat marks a field value that could not be normalized.
	ErrFormat = errors.New("unrecognized field format")
)
