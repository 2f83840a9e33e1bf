package fetch

import "errors"

// Sentinel kinds for source fetch errors.
var (
	// ErrFetchFailed marks a request that failed after the retry budget.
	ErrFetchFailed = errors.New("source fetch failed")
	// ErrBadStatus marks a non-success HTTP response from the source.
	ErrBadStatus = errors.New("source returned bad status")
	// ErrEmptyBody marks a success response carrying no content.
	ErrEmptyBody = errors.New("source returned empty body")
)
