package extract

import "errors"

// Sentinel kinds for extraction errors.
var (
	// ErrNoRecords is fatal for the cycle: an empty but structurally valid
	// document is indistinguishable from a broken one.
	ErrNoRecords = errors.New("no records found")
)
