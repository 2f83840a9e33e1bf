package repository

import "time"

// Option applies a configuration option to the SQLStore.
type Option func(*SQLStore)

// WithMaxRetries sets the retry budget for contended writes.
func WithMaxRetries(n int) Option {
	return func(s *SQLStore) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithRetryBackoff sets the base delay between write retries; the actual
// delay grows linearly with the attempt number.
func WithRetryBackoff(d time.Duration) Option {
	return func(s *SQLStore) {
		if d > 0 {
			s.retryBackoff = d
		}
	}
}

// WithBusyTimeout sets the SQLite busy timeout applied at connect time.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *SQLStore) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}
