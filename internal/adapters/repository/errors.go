package repository

import "errors"

// Sentinel kinds for snapshot store errors.
var (
	// ErrBusy surfaces write contention that survived the retry budget.
	ErrBusy = errors.New("store busy")
	// ErrIntegrity marks a uniqueness or foreign-key violation; these
	// cannot occur under the upsert/replace contracts and are never retried.
	ErrIntegrity = errors.New("store integrity violation")
)
